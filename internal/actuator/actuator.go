// Package actuator implements the alert_manager service, which turns pulse
// codes into timed pulses on an indicator LED.
package actuator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

// DefaultQueue bounds the pulses waiting behind the one being played.
const DefaultQueue = 16

// Durations is how long the LED stays lit for each pulse code.
type Durations struct {
	Motion      time.Duration
	Gas         time.Duration
	Temperature time.Duration
	Door        time.Duration
}

// DefaultDurations returns the stock pulse lengths.
func DefaultDurations() Durations {
	return Durations{
		Motion:      2 * time.Second,
		Gas:         5 * time.Second,
		Temperature: 3 * time.Second,
		Door:        3 * time.Second,
	}
}

// For returns the duration for code, or false if the code has no pattern.
func (d Durations) For(code logic.PulseCode) (time.Duration, bool) {
	switch code {
	case logic.PulseMotion:
		return d.Motion, true
	case logic.PulseGas:
		return d.Gas, true
	case logic.PulseTemperature:
		return d.Temperature, true
	case logic.PulseDoor:
		return d.Door, true
	default:
		return 0, false
	}
}

// Actuator plays pulses one at a time. Handle may be called from any
// goroutine; only Run touches the LED after Init.
type Actuator struct {
	led       gpio.Line
	durations Durations
	queue     chan logic.PulseCode

	// after is time.After, replaced in tests.
	after func(time.Duration) <-chan time.Time
}

// New creates an Actuator driving led. queue <= 0 uses DefaultQueue.
func New(led gpio.Line, d Durations, queue int) *Actuator {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Actuator{
		led:       led,
		durations: d,
		queue:     make(chan logic.PulseCode, queue),
		after:     time.After,
	}
}

// Init configures the LED as an output, initially off.
func (a *Actuator) Init() error {
	if err := a.led.Output(gpio.Low); err != nil {
		return fmt.Errorf("led init: %w", err)
	}
	return nil
}

// Handle decodes a pulse message and queues it. Unknown codes are logged
// and dropped, as are pulses arriving while the queue is full.
func (a *Actuator) Handle(_ string, payload []byte) {
	code, err := message.DecodePulse(payload)
	if err != nil {
		log.Printf("alert_manager: %v", err)
		return
	}
	if _, ok := a.durations.For(code); !ok {
		log.Printf("alert_manager: unknown pulse code: %d", code)
		return
	}
	select {
	case a.queue <- code:
	default:
		log.Printf("alert_manager: queue full, dropping %s pulse", code)
	}
}

// Run plays queued pulses until ctx is done.
func (a *Actuator) Run(ctx context.Context) {
	log.Printf("alert_manager: ready")
	for {
		select {
		case <-ctx.Done():
			return
		case code := <-a.queue:
			if err := a.Pulse(ctx, code); err != nil {
				log.Printf("alert_manager: %v", err)
			}
		}
	}
}

// Pulse lights the LED for code's duration, then turns it off. A cancelled
// ctx cuts the pulse short; the LED is still turned off.
func (a *Actuator) Pulse(ctx context.Context, code logic.PulseCode) error {
	d, ok := a.durations.For(code)
	if !ok {
		return fmt.Errorf("unknown pulse code: %d", code)
	}
	log.Printf("alert_manager: %s pulse (%s)", code, d)
	if err := a.led.SetValue(gpio.High); err != nil {
		return fmt.Errorf("led on: %w", err)
	}
	select {
	case <-a.after(d):
	case <-ctx.Done():
	}
	if err := a.led.SetValue(gpio.Low); err != nil {
		return fmt.Errorf("led off: %w", err)
	}
	return nil
}
