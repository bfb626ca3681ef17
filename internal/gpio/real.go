//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip is an open GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named GPIO chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, newError(NotConnected, "open", -1, fmt.Errorf("open gpio chip %s: %w", name, err))
	}
	return &Chip{chip: chip}, nil
}

// Line requests offset as an input with pull-down. Sensors needing a
// different bias set it with SetPull; Reconfigure keeps it otherwise.
func (c *Chip) Line(offset int) (*RealLine, error) {
	if err := c.checkOffset("request", offset); err != nil {
		return nil, err
	}
	l, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, newError(SendFailed, "request", offset, err)
	}
	return &RealLine{line: l, offset: offset}, nil
}

// Watch requests offset as an input and calls handler for every edge.
// The handler runs on the gpiocdev event goroutine and must not block.
func (c *Chip) Watch(offset int, pull Pull, handler func(EdgeEvent)) (*RealLine, error) {
	if err := c.checkOffset("watch", offset); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, newError(EventNotRegistered, "watch", offset, nil)
	}
	l, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		biasOption(pull),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(EdgeEvent{
				Offset: evt.Offset,
				Rising: evt.Type == gpiocdev.LineEventRisingEdge,
				Time:   evt.Timestamp,
			})
		}))
	if err != nil {
		return nil, newError(SendFailed, "watch", offset, err)
	}
	return &RealLine{line: l, offset: offset}, nil
}

// Close releases the chip.
func (c *Chip) Close() error {
	if c.chip == nil {
		return nil
	}
	if err := c.chip.Close(); err != nil {
		return fmt.Errorf("close chip: %w", err)
	}
	c.chip = nil
	return nil
}

func (c *Chip) checkOffset(op string, offset int) error {
	if c.chip == nil {
		return newError(NotConnected, op, offset, nil)
	}
	if offset < 0 || offset >= c.chip.Lines() {
		return newError(InputOutOfRange, op, offset, fmt.Errorf("chip has %d lines", c.chip.Lines()))
	}
	return nil
}

// RealLine is a Line backed by a gpiocdev line request.
type RealLine struct {
	line   *gpiocdev.Line
	offset int
}

func (l *RealLine) Input() error {
	return l.reconfigure("input", gpiocdev.AsInput)
}

func (l *RealLine) Output(level int) error {
	if err := checkLevel("output", l.offset, level); err != nil {
		return err
	}
	return l.reconfigure("output", gpiocdev.AsOutput(level))
}

func (l *RealLine) SetPull(p Pull) error {
	return l.reconfigure("pull", biasOption(p))
}

func (l *RealLine) Value() (int, error) {
	if l.line == nil {
		return 0, newError(NotConnected, "read", l.offset, nil)
	}
	v, err := l.line.Value()
	if err != nil {
		return 0, newError(SendFailed, "read", l.offset, err)
	}
	return v, nil
}

func (l *RealLine) SetValue(level int) error {
	if l.line == nil {
		return newError(NotConnected, "write", l.offset, nil)
	}
	if err := checkLevel("write", l.offset, level); err != nil {
		return err
	}
	if err := l.line.SetValue(level); err != nil {
		return newError(SendFailed, "write", l.offset, err)
	}
	return nil
}

// Close reconfigures the line to input with pull-down
// before releasing it, so attached modules see a known state on reboot.
func (l *RealLine) Close() error {
	if l.line == nil {
		return nil
	}
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.offset, err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", l.offset, err))
	}
	l.line = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (l *RealLine) reconfigure(op string, opts ...gpiocdev.LineConfigOption) error {
	if l.line == nil {
		return newError(NotConnected, op, l.offset, nil)
	}
	if err := l.line.Reconfigure(opts...); err != nil {
		return newError(SendFailed, op, l.offset, err)
	}
	return nil
}

func biasOption(p Pull) gpiocdev.LineBias {
	switch p {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}
