package sensor

import (
	"fmt"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
)

// Gas reads the digital output (D0) of an MQ135 module.
// D0 is active-low: it drops when concentration exceeds the onboard
// potentiometer setting. The module carries its own pull-up.
type Gas struct {
	Line gpio.Line
}

// Init configures the line as an input.
func (g *Gas) Init() error {
	if err := g.Line.Input(); err != nil {
		return fmt.Errorf("mq135 init: %w", err)
	}
	return nil
}

// Read returns true when gas is detected.
func (g *Gas) Read() (bool, error) {
	v, err := g.Line.Value()
	if err != nil {
		return false, fmt.Errorf("mq135 read: %w", err)
	}
	return v == gpio.Low, nil
}

// Motion reads a PIR module output, which is active-high.
type Motion struct {
	Line gpio.Line
}

// Init configures the line as an input.
func (m *Motion) Init() error {
	if err := m.Line.Input(); err != nil {
		return fmt.Errorf("pir init: %w", err)
	}
	return nil
}

// Read returns true when motion is detected.
func (m *Motion) Read() (bool, error) {
	v, err := m.Line.Value()
	if err != nil {
		return false, fmt.Errorf("pir read: %w", err)
	}
	return v == gpio.High, nil
}
