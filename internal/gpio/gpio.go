// Package gpio provides single-line digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation replays scripted waveforms for testing without hardware.
package gpio

import (
	"fmt"
	"time"
)

// Logic levels.
const (
	Low  = 0
	High = 1
)

// Pull selects the internal bias resistor of an input line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// Line is a single requested GPIO line.
// A Line is owned by exactly one goroutine; implementations are not
// required to be safe for concurrent use.
type Line interface {
	// Input reconfigures the line as an input.
	Input() error

	// Output reconfigures the line as an output driven to level.
	Output(level int) error

	// SetPull sets the bias resistor.
	SetPull(p Pull) error

	// Value reads the current logic level.
	Value() (int, error)

	// SetValue drives an output line to level.
	SetValue(level int) error

	// Close releases the line.
	Close() error
}

// EdgeEvent is delivered for each level transition on a watched line.
type EdgeEvent struct {
	Offset int
	Rising bool
	Time   time.Duration // kernel timestamp, monotonic
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinDHT     = 4
	DefaultPinGas     = 27
	DefaultPinMotion  = 21
	DefaultPinTrigger = 13
	DefaultPinEcho    = 25
	DefaultPinLED     = 16
)

// Code identifies a pin-service failure class. It is comparable and
// implements error so callers can match with errors.Is.
type Code string

func (c Code) Error() string { return string(c) }

const (
	NotConnected       Code = "not_connected"
	SendFailed         Code = "send_failed"
	EventNotRegistered Code = "event_not_registered"
	InputOutOfRange    Code = "input_out_of_range"
)

// Error wraps a Code with the operation and pin that failed.
type Error struct {
	Code Code
	Op   string
	Pin  int
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpio %s pin %d: %s: %v", e.Op, e.Pin, e.Code, e.Err)
	}
	return fmt.Sprintf("gpio %s pin %d: %s", e.Op, e.Pin, e.Code)
}

// Is reports whether target is this error's Code.
func (e *Error) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, op string, pin int, err error) error {
	return &Error{Code: code, Op: op, Pin: pin, Err: err}
}

func checkLevel(op string, pin, level int) error {
	if level != Low && level != High {
		return newError(InputOutOfRange, op, pin, fmt.Errorf("level %d", level))
	}
	return nil
}
