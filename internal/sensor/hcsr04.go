package sensor

import (
	"fmt"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
)

const (
	// SpeedOfSoundCMPerUS is the speed of sound in air at ~20C.
	SpeedOfSoundCMPerUS = 0.0343

	// DefaultEchoTimeout bounds each echo edge wait.
	DefaultEchoTimeout = 50 * time.Millisecond

	triggerPulse = 10 * time.Microsecond
)

// Rangefinder reads an HC-SR04 style ultrasonic sensor.
type Rangefinder struct {
	Trigger gpio.Line
	Echo    gpio.Line
	Clock   Clock

	// Timeout bounds each of the two echo edge waits.
	Timeout time.Duration
}

// NewRangefinder creates a rangefinder using the system clock.
func NewRangefinder(trigger, echo gpio.Line) *Rangefinder {
	return &Rangefinder{
		Trigger: trigger,
		Echo:    echo,
		Clock:   SystemClock{},
		Timeout: DefaultEchoTimeout,
	}
}

// Init configures the trigger as a low output and the echo as an input
// with the internal bias disabled (the module drives the echo line).
func (r *Rangefinder) Init() error {
	if err := r.Trigger.Output(gpio.Low); err != nil {
		return fmt.Errorf("hcsr04 init trigger: %w", err)
	}
	if err := r.Echo.Input(); err != nil {
		return fmt.Errorf("hcsr04 init echo: %w", err)
	}
	if err := r.Echo.SetPull(gpio.PullNone); err != nil {
		return fmt.Errorf("hcsr04 init echo: %w", err)
	}
	return nil
}

// Acquire fires one trigger pulse and returns the echo distance in whole
// centimetres. Returns ErrTimeout if either echo edge does not arrive.
func (r *Rangefinder) Acquire() (uint16, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultEchoTimeout
	}

	if err := r.Trigger.SetValue(gpio.High); err != nil {
		return 0, fmt.Errorf("hcsr04 trigger: %w", err)
	}
	r.Clock.Sleep(triggerPulse)
	if err := r.Trigger.SetValue(gpio.Low); err != nil {
		return 0, fmt.Errorf("hcsr04 trigger: %w", err)
	}

	rise, err := waitFor(r.Echo, r.Clock, gpio.High, timeout)
	if err != nil {
		return 0, err
	}
	fall, err := waitFor(r.Echo, r.Clock, gpio.Low, timeout)
	if err != nil {
		return 0, err
	}
	return DistanceCM(fall.Sub(rise)), nil
}

// DistanceCM converts a round-trip echo duration to a one-way distance,
// truncated to whole centimetres.
func DistanceCM(echo time.Duration) uint16 {
	us := float64(echo) / float64(time.Microsecond)
	cm := us * SpeedOfSoundCMPerUS / 2
	if cm <= 0 {
		return 0
	}
	if cm > 65535 {
		return 65535
	}
	return uint16(cm)
}
