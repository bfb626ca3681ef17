//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, newError(NotConnected, "open", -1, errUnsupported)
}

// Line is not implemented on non-Linux platforms.
func (c *Chip) Line(offset int) (*RealLine, error) {
	return nil, newError(NotConnected, "request", offset, errUnsupported)
}

// Watch is not implemented on non-Linux platforms.
func (c *Chip) Watch(offset int, pull Pull, handler func(EdgeEvent)) (*RealLine, error) {
	return nil, newError(NotConnected, "watch", offset, errUnsupported)
}

// Close is a no-op on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

func (l *RealLine) Input() error             { return errUnsupported }
func (l *RealLine) Output(level int) error   { return errUnsupported }
func (l *RealLine) SetPull(p Pull) error     { return errUnsupported }
func (l *RealLine) Value() (int, error)      { return 0, errUnsupported }
func (l *RealLine) SetValue(level int) error { return errUnsupported }
func (l *RealLine) Close() error             { return nil }
