// Package state holds the latest reading of every sensor behind one lock.
// Samplers write their own field, the aggregator reads a full copy and
// writes the alert level back.
package state

import (
	"sync"

	"github.com/sweeney/home-safety-sensor/internal/logic"
)

// Snapshot is a point-in-time copy of the shared state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	logic.Readings
	AlertLevel logic.Severity
}

// Store is the shared environmental state. The zero value is ready to use:
// every reading starts invalid and the alert level starts at INFO.
type Store struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// SetClimate records a successful humidity/temperature acquisition.
// Both values and the valid flag change together.
func (s *Store) SetClimate(temperature, humidity int) {
	s.mu.Lock()
	s.snap.Climate = logic.Climate{Temperature: temperature, Humidity: humidity, Valid: true}
	s.mu.Unlock()
}

// InvalidateClimate marks the climate reading stale. The last values are kept.
func (s *Store) InvalidateClimate() {
	s.mu.Lock()
	s.snap.Climate.Valid = false
	s.mu.Unlock()
}

func (s *Store) SetGas(detected bool) {
	s.mu.Lock()
	s.snap.Gas = logic.Presence{Detected: detected, Valid: true}
	s.mu.Unlock()
}

func (s *Store) InvalidateGas() {
	s.mu.Lock()
	s.snap.Gas.Valid = false
	s.mu.Unlock()
}

func (s *Store) SetMotion(detected bool) {
	s.mu.Lock()
	s.snap.Motion = logic.Presence{Detected: detected, Valid: true}
	s.mu.Unlock()
}

func (s *Store) InvalidateMotion() {
	s.mu.Lock()
	s.snap.Motion.Valid = false
	s.mu.Unlock()
}

func (s *Store) SetDistance(cm uint16) {
	s.mu.Lock()
	s.snap.Distance = logic.Distance{CM: cm, Valid: true}
	s.mu.Unlock()
}

func (s *Store) InvalidateDistance() {
	s.mu.Lock()
	s.snap.Distance.Valid = false
	s.mu.Unlock()
}

// SetAlertLevel stores the level computed by the last aggregation cycle.
// Only the aggregator calls this.
func (s *Store) SetAlertLevel(level logic.Severity) {
	s.mu.Lock()
	s.snap.AlertLevel = level
	s.mu.Unlock()
}

// Snapshot returns a copy of every reading and the alert level, taken
// under a single lock acquisition.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
