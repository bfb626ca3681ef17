package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/home-safety-sensor/internal/analyzer"
	"github.com/sweeney/home-safety-sensor/internal/broker"
	"github.com/sweeney/home-safety-sensor/internal/config"
	"github.com/sweeney/home-safety-sensor/internal/gpio"
	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/metrics"
	"github.com/sweeney/home-safety-sensor/internal/mqtt"
	"github.com/sweeney/home-safety-sensor/internal/sensor"
	"github.com/sweeney/home-safety-sensor/internal/state"
	"github.com/sweeney/home-safety-sensor/internal/status"
	"github.com/sweeney/home-safety-sensor/internal/web"
)

// lineOpener requests one GPIO line by offset.
type lineOpener func(offset int) (gpio.Line, error)

// openChip opens the configured chip. If that fails every request returns
// the open error, so each sensor fails its own init instead of the process.
func openChip(name string) (lineOpener, func()) {
	chip, err := gpio.OpenChip(name)
	if err != nil {
		log.Printf("gpio: %v", err)
		return func(int) (gpio.Line, error) { return nil, err }, func() {}
	}
	return chipOpener(chip), func() { chip.Close() }
}

func chipOpener(chip *gpio.Chip) lineOpener {
	return func(offset int) (gpio.Line, error) {
		l, err := chip.Line(offset)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

type runOptions struct {
	WithServices bool

	// Open requests GPIO lines; nil opens the configured chip.
	Open lineOpener

	// Now is the start-time clock; nil means time.Now.
	Now func() time.Time
}

// runAnalyzer runs the sampling engine until ctx is cancelled.
func runAnalyzer(ctx context.Context, cfg *config.Config, opts runOptions) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Open == nil {
		open, release := openChip(cfg.GPIO.Chip)
		defer release()
		opts.Open = open
	}
	topics := cfg.MQTT.Topics()

	if cfg.MQTT.EmbeddedBroker != "" {
		srv, err := broker.New(cfg.MQTT.EmbeddedBroker)
		if err != nil {
			return err
		}
		if err := srv.Serve(); err != nil {
			return err
		}
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	var services []*service
	defer func() {
		cancel()
		for _, s := range services {
			if err := s.stop(); err != nil {
				log.Printf("%s: stop: %v", s.name, err)
			}
		}
	}()
	var events web.EventSource
	if opts.WithServices {
		if cfg.MQTT.Broker == "" {
			return errors.New("--with-services needs a broker")
		}
		for _, name := range mqtt.Targets {
			s, err := startService(ctx, cfg, name, opts.Open)
			if err != nil {
				return err
			}
			services = append(services, s)
			if s.events != nil {
				events = s.events
			}
		}
	}

	var transport mqtt.Transport
	present := map[string]bool{}
	if cfg.MQTT.Broker != "" {
		rt, err := mqtt.Dial(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID + "-analyzer",
			Will:     mqtt.Will(topics, mqtt.ServiceSource),
		})
		if err != nil {
			log.Printf("mqtt: %v; running standalone", err)
		} else {
			transport = rt
			self := mqtt.NewService(mqtt.ServiceSource, rt, topics)
			if err := self.Announce(); err != nil {
				log.Printf("mqtt: %v", err)
			}
			defer self.Close()

			present, err = mqtt.Discover(ctx, rt, topics, cfg.MQTT.PresenceWait)
			if err != nil {
				log.Printf("mqtt: discovery: %v", err)
			}
		}
	} else {
		log.Printf("mqtt: no broker configured, running standalone")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := mqtt.NewClient(transport, topics, present, m)
	thresholds := cfg.Thresholds.Logic()

	tracker := status.NewTracker(opts.Now(), status.Config{
		SampleMs:    cfg.Timing.SampleInterval.Milliseconds(),
		AggregateMs: cfg.Timing.AggregateInterval.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: topics.Base(),
		HTTPAddr:    cfg.HTTP.Addr,
		Thresholds:  thresholds,
	})
	tracker.SetTargets(client.Presence())
	tracker.SetMQTTConnected(client.Connected())
	if net := loadNetworkInfo(networkEnvFile); net != nil {
		tracker.SetNetwork(net)
	}

	publishSystem(transport, topics, tracker, "STARTUP", "")

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, web.Options{
			DashboardPath: cfg.Dashboard.Path,
			Events:        events,
			Gatherer:      reg,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	store := state.NewStore()
	samplers, lines := buildSamplers(opts.Open, cfg, store, m)
	for _, s := range samplers {
		s.Events = client
	}
	defer func() {
		for _, l := range lines {
			l.Close()
		}
	}()

	engine := &analyzer.Engine{
		Samplers:          samplers,
		Aggregator:        analyzer.NewAggregator(store, logic.NewEvaluator(thresholds), client, tracker, m),
		SampleInterval:    cfg.Timing.SampleInterval,
		AggregateInterval: cfg.Timing.AggregateInterval,
	}
	log.Printf("started: sample=%v aggregate=%v broker=%q", cfg.Timing.SampleInterval, cfg.Timing.AggregateInterval, cfg.MQTT.Broker)
	if err := engine.Run(ctx); err != nil {
		log.Printf("engine: %v", err)
	}

	tracker.SetMQTTConnected(client.Connected())
	publishSystem(transport, topics, tracker, "SHUTDOWN", shutdownReason(ctx))
	return nil
}

// shutdownReason names the signal that cancelled ctx, if any.
func shutdownReason(ctx context.Context) string {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return ""
	}
	return cause.Error()
}

// publishSystem sends a retained status event. Failures are logged only.
func publishSystem(t mqtt.Transport, topics mqtt.Topics, tracker *status.Tracker, event, reason string) {
	if t == nil {
		log.Printf("no broker, %s event not published", event)
		return
	}
	err := t.Publish(mqtt.Message{
		Topic:    topics.System(),
		Payload:  status.FormatStatusEvent(tracker.Snapshot(), event, reason),
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

// buildSamplers requests each sensor's lines and wraps the sensors in
// samplers. A sensor whose lines cannot be requested is left out; the
// returned lines must be closed by the caller.
func buildSamplers(open lineOpener, cfg *config.Config, store *state.Store, m *metrics.Metrics) ([]*analyzer.Sampler, []gpio.Line) {
	var lines []gpio.Line
	request := func(name string, offset int) gpio.Line {
		l, err := open(offset)
		if err != nil {
			log.Printf("%s: request pin %d: %v, sampler disabled", name, offset, err)
			return nil
		}
		lines = append(lines, l)
		return l
	}

	var acqs []analyzer.Acquirer
	if l := request("climate", cfg.GPIO.DHT); l != nil {
		acqs = append(acqs, analyzer.ClimateAcquirer{Source: sensor.NewHumidityTemp(l)})
	}
	if l := request("gas", cfg.GPIO.Gas); l != nil {
		acqs = append(acqs, analyzer.GasAcquirer{Source: &sensor.Gas{Line: l}})
	}
	if l := request("motion", cfg.GPIO.Motion); l != nil {
		acqs = append(acqs, analyzer.MotionAcquirer{Source: &sensor.Motion{Line: l}})
	}
	trigger := request("distance", cfg.GPIO.Trigger)
	echo := request("distance", cfg.GPIO.Echo)
	if trigger != nil && echo != nil {
		acqs = append(acqs, analyzer.DistanceAcquirer{Source: sensor.NewRangefinder(trigger, echo)})
	}

	samplers := make([]*analyzer.Sampler, len(acqs))
	for i, a := range acqs {
		samplers[i] = &analyzer.Sampler{Acquirer: a, Store: store, Metrics: m, Verbose: cfg.Verbose}
	}
	return samplers, lines
}
