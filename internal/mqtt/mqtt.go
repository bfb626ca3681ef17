// Package mqtt carries analyzer output to the downstream services over MQTT,
// with a Transport abstraction for testing.
package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Downstream service names. Each doubles as a presence identity.
const (
	TargetStats   = "stats_update"
	TargetEvents  = "event_logger"
	TargetPulses  = "alert_manager"
	ServiceSource = "sensor_analyzer"
)

// Targets lists the outbound targets in a fixed order.
var Targets = []string{TargetStats, TargetEvents, TargetPulses}

// Presence payloads on the status topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// DefaultPrefix is the topic root when none is configured.
const DefaultPrefix = "home/safety"

// Topics derives every topic from one prefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Base is the effective prefix.
func (t Topics) Base() string { return t.prefix() }

// Readings carries aggregated readings for stats_update.
func (t Topics) Readings() string { return t.prefix() + "/readings" }

// Events carries alert and log text for event_logger.
func (t Topics) Events() string { return t.prefix() + "/events" }

// Pulses carries actuator codes for alert_manager.
func (t Topics) Pulses() string { return t.prefix() + "/pulses" }

// System carries the analyzer's retained STARTUP/SHUTDOWN status events.
func (t Topics) System() string { return t.prefix() + "/system" }

// Status is the retained presence topic of one service.
func (t Topics) Status(service string) string {
	return t.prefix() + "/service/" + service + "/status"
}

// StatusWildcard matches every service's presence topic.
func (t Topics) StatusWildcard() string {
	return t.prefix() + "/service/+/status"
}

// For returns the data topic of a target.
func (t Topics) For(target string) string {
	switch target {
	case TargetStats:
		return t.Readings()
	case TargetEvents:
		return t.Events()
	case TargetPulses:
		return t.Pulses()
	default:
		return ""
	}
}

// serviceFromStatus extracts the service name from a presence topic.
func (t Topics) serviceFromStatus(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/service/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/status")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// Message is one MQTT publication.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Handler receives messages for a subscription.
type Handler func(topic string, payload []byte)

// Transport is the broker connection used by Client and Service.
type Transport interface {
	// Publish sends msg and waits for the broker to acknowledge it.
	Publish(msg Message) error

	// PublishAsync sends msg without waiting on the broker. done, if
	// non-nil, is called once with the outcome, possibly from another
	// goroutine.
	PublishAsync(msg Message, done func(error))

	// Subscribe registers h for topic (MQTT wildcards allowed).
	Subscribe(topic string, h Handler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// Discover collects the retained presence of every service for up to wait
// and returns the names announced online. A service that never published,
// or whose last word was its will, is absent.
func Discover(ctx context.Context, t Transport, topics Topics, wait time.Duration) (map[string]bool, error) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	filter := topics.StatusWildcard()
	err := t.Subscribe(filter, func(topic string, payload []byte) {
		name, ok := topics.serviceFromStatus(topic)
		if !ok {
			return
		}
		mu.Lock()
		seen[name] = string(payload) == PayloadOnline
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()

	_ = t.Unsubscribe(filter)

	mu.Lock()
	defer mu.Unlock()
	online := make(map[string]bool, len(seen))
	for name, up := range seen {
		if up {
			online[name] = true
		}
	}
	return online, nil
}

// Match reports whether topic matches an MQTT subscription filter.
func Match(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
