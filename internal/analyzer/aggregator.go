package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
	"github.com/sweeney/home-safety-sensor/internal/metrics"
	"github.com/sweeney/home-safety-sensor/internal/mqtt"
	"github.com/sweeney/home-safety-sensor/internal/state"
	"github.com/sweeney/home-safety-sensor/internal/status"
)

// Aggregator evaluates the shared state on a fixed period and emits the
// resulting alerts, pulses and aggregated reading. It owns the evaluator's
// edge latches and the sequence counter, so only one goroutine may drive it.
type Aggregator struct {
	store   *state.Store
	eval    *logic.Evaluator
	client  *mqtt.Client
	tracker *status.Tracker
	metrics *metrics.Metrics

	seq uint32
}

// NewAggregator creates an Aggregator. tracker and m may be nil.
func NewAggregator(store *state.Store, eval *logic.Evaluator, client *mqtt.Client, tracker *status.Tracker, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		store:   store,
		eval:    eval,
		client:  client,
		tracker: tracker,
		metrics: m,
	}
}

// Cycle runs one aggregation: snapshot, evaluate, write the alert level back,
// then send each alert followed by its pulse, then the aggregated reading.
// Sends never wait on the broker; their failures are logged by the client.
func (a *Aggregator) Cycle(now time.Time) message.Reading {
	started := time.Now()

	snap := a.store.Snapshot()
	res := a.eval.Evaluate(snap.Readings)
	a.store.SetAlertLevel(res.Level)

	for _, al := range res.Alerts {
		log.Printf("alert: %s", al)
		a.metrics.Alert(al.Kind.String(), al.Severity.String())
		a.client.SendAlert(al)
		if p, ok := al.ActuatorPulse(); ok {
			a.metrics.Pulse(p.Code.String())
			a.client.SendPulse(p)
		}
	}

	msg := message.NewReading(now, snap.Readings, res, a.seq)
	a.seq++

	a.client.SendReading(msg)
	if !a.client.Present(mqtt.TargetStats) {
		log.Printf("aggregator: reading #%d: %s", msg.Sequence, summary(msg))
	}

	if a.tracker != nil {
		a.tracker.Update(msg, a.eval.Counts())
		a.tracker.SetMQTTConnected(a.client.Connected())
	}
	a.metrics.Cycle(int(res.Level), msg.Sequence, time.Since(started).Seconds())
	return msg
}

// Sequence returns the number the next aggregated reading will carry.
func (a *Aggregator) Sequence() uint32 {
	return a.seq
}

// Run calls Cycle once per tick until ctx is done.
func (a *Aggregator) Run(ctx context.Context, tick <-chan time.Time) {
	log.Printf("aggregator: started")
	a.client.SendLog("Aggregator started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("aggregator: stopped after %d cycles", a.seq)
			return
		case t := <-tick:
			a.Cycle(t)
		}
	}
}

func summary(r message.Reading) string {
	temp, hum := "n/a", "n/a"
	if r.TempValid {
		temp = fmt.Sprintf("%dC", r.Temperature)
	}
	if r.HumidityValid {
		hum = fmt.Sprintf("%d%%", r.Humidity)
	}
	return fmt.Sprintf("temp=%s hum=%s gas=%s motion=%s door=%s level=%s",
		temp, hum,
		yesNo(r.GasValid, r.Gas, "DETECTED", "clean"),
		yesNo(r.MotionValid, r.Motion, "yes", "no"),
		yesNo(r.DistanceValid, r.DoorClosed, "CLOSED", "OPEN"),
		r.AlertLevel)
}

func yesNo(valid, v bool, yes, no string) string {
	switch {
	case !valid:
		return "n/a"
	case v:
		return yes
	default:
		return no
	}
}
