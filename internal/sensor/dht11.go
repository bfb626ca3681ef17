package sensor

import (
	"fmt"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
)

// DHT11 timing. The host holds the line low for at least 18 ms to wake the
// sensor; the sensor answers with ~80 us low, ~80 us high, then 40 bits.
// Each bit is ~50 us low followed by ~26 us high (0) or ~70 us high (1).
const (
	dhtStartLow       = 20 * time.Millisecond
	dhtStartRelease   = 40 * time.Microsecond
	dhtResponseWait   = 200 * time.Microsecond
	dhtBitLowTimeout  = 100 * time.Microsecond
	dhtBitHighTimeout = 120 * time.Microsecond
	dhtBitThreshold   = 50 * time.Microsecond
	dhtFrameBits      = 40
)

// Climate is one humidity/temperature acquisition.
type Climate struct {
	Temperature int // degrees Celsius
	Humidity    int // percent relative humidity
}

// HumidityTemp reads a DHT11 on a single bidirectional line.
// It must not be used concurrently; the owning sampling loop has it exclusively.
type HumidityTemp struct {
	Line  gpio.Line
	Clock Clock
}

// NewHumidityTemp creates a DHT11 decoder on line using the system clock.
func NewHumidityTemp(line gpio.Line) *HumidityTemp {
	return &HumidityTemp{Line: line, Clock: SystemClock{}}
}

// Init enables the pull-up that holds the single-wire bus high between
// frames, then drives the data line high.
func (h *HumidityTemp) Init() error {
	if err := h.Line.SetPull(gpio.PullUp); err != nil {
		return fmt.Errorf("dht11 init: %w", err)
	}
	if err := h.Line.Output(gpio.High); err != nil {
		return fmt.Errorf("dht11 init: %w", err)
	}
	return nil
}

// Acquire performs the start handshake and decodes one 40-bit frame.
// Returns ErrTimeout if any level wait expires and ErrChecksumMismatch if
// the fifth byte is not the low byte of the sum of the first four.
func (h *HumidityTemp) Acquire() (Climate, error) {
	frame, err := h.readFrame()
	if err != nil {
		return Climate{}, err
	}
	return decodeDHT11(frame)
}

func (h *HumidityTemp) readFrame() ([5]byte, error) {
	var frame [5]byte

	if err := h.Line.Output(gpio.Low); err != nil {
		return frame, fmt.Errorf("dht11 start: %w", err)
	}
	h.Clock.Sleep(dhtStartLow)
	if err := h.Line.SetValue(gpio.High); err != nil {
		return frame, fmt.Errorf("dht11 release: %w", err)
	}
	h.Clock.Sleep(dhtStartRelease)
	if err := h.Line.Input(); err != nil {
		return frame, fmt.Errorf("dht11 listen: %w", err)
	}

	// Sensor response: pulls low, then high, then low for the first bit.
	for _, level := range []int{gpio.High, gpio.Low, gpio.High} {
		if _, err := waitWhile(h.Line, h.Clock, level, dhtResponseWait); err != nil {
			return frame, err
		}
	}

	for i := 0; i < dhtFrameBits; i++ {
		if _, err := waitWhile(h.Line, h.Clock, gpio.Low, dhtBitLowTimeout); err != nil {
			return frame, err
		}
		high, err := waitWhile(h.Line, h.Clock, gpio.High, dhtBitHighTimeout)
		if err != nil {
			return frame, err
		}
		frame[i/8] <<= 1
		if high > dhtBitThreshold {
			frame[i/8] |= 1
		}
	}
	return frame, nil
}

func decodeDHT11(frame [5]byte) (Climate, error) {
	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return Climate{}, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksumMismatch, frame[4], sum)
	}
	// DHT11 has no fractional precision: bytes 1 and 3 are ignored.
	return Climate{
		Humidity:    int(frame[0]),
		Temperature: int(frame[2]),
	}, nil
}
