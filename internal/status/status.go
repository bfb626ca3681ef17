// Package status provides a thread-safe status tracker for the home-safety daemon.
// It is read by HTTP handlers and by the startup/shutdown system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SampleMs    int64
	AggregateMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	Thresholds  logic.Thresholds
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	// Last is the most recent aggregated reading; valid only if HasReading.
	Last       message.Reading
	HasReading bool

	Counts        logic.AlertCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Targets       map[string]bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the reading and alert counts of an aggregation cycle.
func (t *Tracker) Update(r message.Reading, counts logic.AlertCounts) {
	t.mu.Lock()
	t.snap.Last = r
	t.snap.HasReading = true
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetTargets records which downstream targets were present at startup.
func (t *Tracker) SetTargets(present map[string]bool) {
	cp := make(map[string]bool, len(present))
	for k, v := range present {
		cp[k] = v
	}
	t.mu.Lock()
	t.snap.Targets = cp
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Targets != nil {
		s.Targets = make(map[string]bool, len(t.snap.Targets))
		for k, v := range t.snap.Targets {
			s.Targets[k] = v
		}
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
