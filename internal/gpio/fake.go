package gpio

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced clock for timing-sensitive tests.
// It satisfies the sensor.Clock interface.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time. It does not advance the clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d without blocking.
func (c *FakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Segment is one constant-level stretch of a scripted waveform.
type Segment struct {
	Level    int
	Duration time.Duration
}

// DefaultStep is how far each FakeLine.Value call advances the clock.
const DefaultStep = time.Microsecond

// FakeLine is a test double that replays a scripted waveform.
//
// The waveform timeline starts at the first Value call after construction
// or Rewind. Every Value call advances Clock by Step, so busy-wait loops
// terminate deterministically. Once the waveform is exhausted, or when no
// waveform is set, Value returns Level.
type FakeLine struct {
	// Offset is reported in errors only.
	Offset int

	// Clock drives the waveform timeline. May be nil for static levels.
	Clock *FakeClock

	// Step is the clock advance per Value call; zero means DefaultStep.
	Step time.Duration

	// Waveform is the scripted sequence of levels.
	Waveform []Segment

	// Level is returned when no waveform segment applies.
	Level int

	// ReadError, if set, is returned by Value.
	ReadError error

	// WriteError, if set, is returned by Output and SetValue.
	WriteError error

	// IsOutput reports the current direction.
	IsOutput bool

	// Pull is the last bias set.
	Pull Pull

	// Writes records every level driven by Output or SetValue.
	Writes []int

	// Reads counts Value calls.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	started bool
	start   time.Time
}

// NewFakeLine creates a FakeLine with a static level.
func NewFakeLine(level int) *FakeLine {
	return &FakeLine{Level: level}
}

// NewWaveformLine creates a FakeLine replaying waveform on clock.
// After the waveform ends the line rests at idle.
func NewWaveformLine(clock *FakeClock, idle int, waveform []Segment) *FakeLine {
	return &FakeLine{Clock: clock, Level: idle, Waveform: waveform}
}

func (f *FakeLine) Input() error {
	f.IsOutput = false
	return nil
}

func (f *FakeLine) Output(level int) error {
	if err := checkLevel("output", f.Offset, level); err != nil {
		return err
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.IsOutput = true
	f.Writes = append(f.Writes, level)
	return nil
}

func (f *FakeLine) SetPull(p Pull) error {
	f.Pull = p
	return nil
}

// Value returns the scripted level at the current fake time.
func (f *FakeLine) Value() (int, error) {
	if f.Closed {
		return 0, newError(NotConnected, "read", f.Offset, nil)
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	f.Reads++
	level := f.levelAt()
	if f.Clock != nil {
		step := f.Step
		if step == 0 {
			step = DefaultStep
		}
		f.Clock.Advance(step)
	}
	return level, nil
}

func (f *FakeLine) SetValue(level int) error {
	if f.Closed {
		return newError(NotConnected, "write", f.Offset, nil)
	}
	if err := checkLevel("write", f.Offset, level); err != nil {
		return err
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, level)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Rewind restarts the waveform at the next Value call.
func (f *FakeLine) Rewind() {
	f.started = false
}

func (f *FakeLine) levelAt() int {
	if len(f.Waveform) == 0 || f.Clock == nil {
		return f.Level
	}
	now := f.Clock.Now()
	if !f.started {
		f.started = true
		f.start = now
	}
	elapsed := now.Sub(f.start)
	for _, seg := range f.Waveform {
		if elapsed < seg.Duration {
			return seg.Level
		}
		elapsed -= seg.Duration
	}
	return f.Level
}
