// Package sensor decodes the environmental sensors attached to the board:
// a DHT11 humidity/temperature sensor (single-wire bit-banged protocol),
// an HC-SR04 ultrasonic rangefinder (trigger pulse, echo duration), an MQ135
// gas sensor and a PIR motion sensor (digital level).
//
// Every wait on a line level is bounded by a deadline computed once per wait,
// so a missing or disconnected sensor fails the acquisition instead of
// hanging the caller.
package sensor

import (
	"errors"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
)

// Acquisition failures. Both are confined to a single attempt.
var (
	ErrTimeout          = errors.New("sensor: timeout")
	ErrChecksumMismatch = errors.New("sensor: checksum mismatch")
)

// Clock supplies time to the protocol decoders.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock. Sleeps shorter than a millisecond
// busy-wait, since the scheduler cannot honour microsecond sleeps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// waitWhile polls line until it leaves level, returning how long it stayed.
// Returns ErrTimeout if level persists beyond timeout.
func waitWhile(line gpio.Line, clock Clock, level int, timeout time.Duration) (time.Duration, error) {
	start := clock.Now()
	deadline := start.Add(timeout)
	for {
		v, err := line.Value()
		if err != nil {
			return 0, err
		}
		now := clock.Now()
		if v != level {
			return now.Sub(start), nil
		}
		if now.After(deadline) {
			return 0, ErrTimeout
		}
	}
}

// waitFor polls line until it reaches level and returns the time it did.
func waitFor(line gpio.Line, clock Clock, level int, timeout time.Duration) (time.Time, error) {
	deadline := clock.Now().Add(timeout)
	for {
		v, err := line.Value()
		if err != nil {
			return time.Time{}, err
		}
		now := clock.Now()
		if v == level {
			return now, nil
		}
		if now.After(deadline) {
			return time.Time{}, ErrTimeout
		}
	}
}
