package mqtt

import (
	"fmt"
	"log"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
	"github.com/sweeney/home-safety-sensor/internal/metrics"
)

// Client sends analyzer output to the three downstream targets. Which
// targets are present is decided once at construction; an absent target
// is never retried, its sends are logged locally and skipped. Sends never
// wait on the broker.
type Client struct {
	transport Transport
	topics    Topics
	present   map[string]bool
	metrics   *metrics.Metrics
}

// NewClient creates a Client. A nil transport means no broker: every
// target is absent. present is copied; names outside Targets are ignored.
func NewClient(t Transport, topics Topics, present map[string]bool, m *metrics.Metrics) *Client {
	c := &Client{
		transport: t,
		topics:    topics,
		present:   make(map[string]bool, len(Targets)),
		metrics:   m,
	}
	for _, name := range Targets {
		c.present[name] = t != nil && present[name]
		if !c.present[name] {
			log.Printf("mqtt: target %s absent, sends will be logged locally", name)
		}
	}
	return c
}

// Present reports whether target was found at startup.
func (c *Client) Present(target string) bool {
	return c.present[target]
}

// Presence returns a copy of the presence map.
func (c *Client) Presence() map[string]bool {
	out := make(map[string]bool, len(c.present))
	for k, v := range c.present {
		out[k] = v
	}
	return out
}

// Connected reports whether the broker connection is currently up.
func (c *Client) Connected() bool {
	return c.transport != nil && c.transport.IsConnected()
}

// SendReading publishes one aggregated reading to stats_update.
func (c *Client) SendReading(r message.Reading) {
	desc := fmt.Sprintf("reading seq=%d level=%s", r.Sequence, r.AlertLevel)
	c.send(TargetStats, Message{Topic: c.topics.Readings(), Payload: r.Encode(), QoS: 0}, desc)
}

// SendAlert publishes an alert to event_logger.
func (c *Client) SendAlert(a logic.Alert) {
	t := message.AlertText(a)
	c.send(TargetEvents, Message{Topic: c.topics.Events(), Payload: t.Encode(), QoS: 1}, t.Text)
}

// SendLog publishes a free-form log line to event_logger.
func (c *Client) SendLog(msg string) {
	t := message.LogText(msg)
	c.send(TargetEvents, Message{Topic: c.topics.Events(), Payload: t.Encode(), QoS: 1}, t.Text)
}

// SendPulse notifies alert_manager. Pulses are QoS 0.
func (c *Client) SendPulse(p logic.Pulse) {
	msg := Message{Topic: c.topics.Pulses(), Payload: message.EncodePulse(p.Code), QoS: 0}
	c.send(TargetPulses, msg, "pulse "+p.Code.String())
}

// send hands msg to the transport without waiting on the broker. Delivery
// failures are logged and counted when the transport reports them.
func (c *Client) send(target string, msg Message, desc string) {
	if !c.present[target] {
		log.Printf("mqtt: %s absent, simulated send: %s", target, desc)
		c.metrics.Message(target, metrics.ResultSkipped)
		return
	}
	c.transport.PublishAsync(msg, func(err error) {
		if err != nil {
			log.Printf("mqtt: send to %s failed: %s: %v", target, desc, err)
			c.metrics.Message(target, metrics.ResultFailed)
			return
		}
		c.metrics.Message(target, metrics.ResultOK)
	})
}
