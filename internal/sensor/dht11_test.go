package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// dhtWaveform builds the line levels a DHT11 produces after the host
// releases the bus: response low/high, 40 data bits, trailing low.
func dhtWaveform(frame [5]byte) []gpio.Segment {
	us := time.Microsecond
	segs := []gpio.Segment{
		{Level: gpio.High, Duration: 20 * us},
		{Level: gpio.Low, Duration: 80 * us},
		{Level: gpio.High, Duration: 80 * us},
	}
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			high := 26 * us
			if b&(1<<bit) != 0 {
				high = 70 * us
			}
			segs = append(segs,
				gpio.Segment{Level: gpio.Low, Duration: 50 * us},
				gpio.Segment{Level: gpio.High, Duration: high},
			)
		}
	}
	return append(segs, gpio.Segment{Level: gpio.Low, Duration: 50 * us})
}

func newTestDHT(waveform []gpio.Segment, idle int) (*HumidityTemp, *gpio.FakeLine) {
	clock := gpio.NewFakeClock(testStart)
	line := gpio.NewWaveformLine(clock, idle, waveform)
	return &HumidityTemp{Line: line, Clock: clock}, line
}

func TestHumidityTempAcquire(t *testing.T) {
	frame := [5]byte{41, 0, 23, 0, 64}
	h, _ := newTestDHT(dhtWaveform(frame), gpio.High)

	got, err := h.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Humidity != 41 {
		t.Errorf("humidity: got %d, want 41", got.Humidity)
	}
	if got.Temperature != 23 {
		t.Errorf("temperature: got %d, want 23", got.Temperature)
	}
}

func TestHumidityTempIgnoresFractionalBytes(t *testing.T) {
	// Checksum covers all four bytes, including the fractional ones.
	frame := [5]byte{55, 3, 31, 9, 98}
	h, _ := newTestDHT(dhtWaveform(frame), gpio.High)

	got, err := h.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Humidity != 55 || got.Temperature != 31 {
		t.Errorf("got %+v, want humidity 55 temperature 31", got)
	}
}

func TestHumidityTempChecksumWraps(t *testing.T) {
	// 200+100+20+0 = 320, mod 256 = 64
	frame := [5]byte{200, 100, 20, 0, 64}
	h, _ := newTestDHT(dhtWaveform(frame), gpio.High)

	got, err := h.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Humidity != 200 || got.Temperature != 20 {
		t.Errorf("got %+v", got)
	}
}

func TestHumidityTempChecksumMismatch(t *testing.T) {
	frame := [5]byte{41, 0, 23, 0, 65}
	h, _ := newTestDHT(dhtWaveform(frame), gpio.High)

	got, err := h.Acquire()
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	if got != (Climate{}) {
		t.Errorf("expected no value on checksum mismatch, got %+v", got)
	}
}

func TestHumidityTempNoResponse(t *testing.T) {
	// Line stays pulled up: the sensor never answers.
	h, _ := newTestDHT(nil, gpio.High)

	_, err := h.Acquire()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestHumidityTempTruncatedFrame(t *testing.T) {
	// Sensor stops mid-frame and holds the line low.
	full := dhtWaveform([5]byte{41, 0, 23, 0, 64})
	h, _ := newTestDHT(full[:3+2*20], gpio.Low)

	_, err := h.Acquire()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestHumidityTempStartSignal(t *testing.T) {
	frame := [5]byte{41, 0, 23, 0, 64}
	clock := gpio.NewFakeClock(testStart)
	line := gpio.NewWaveformLine(clock, gpio.High, dhtWaveform(frame))
	h := &HumidityTemp{Line: line, Clock: clock}

	if _, err := h.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Host drives low, then high, then releases to input.
	if len(line.Writes) != 2 || line.Writes[0] != gpio.Low || line.Writes[1] != gpio.High {
		t.Errorf("start signal writes: got %v, want [0 1]", line.Writes)
	}
	if line.IsOutput {
		t.Error("expected line to be input after acquisition")
	}
	if elapsed := clock.Now().Sub(testStart); elapsed < 18*time.Millisecond {
		t.Errorf("start low held too briefly: total elapsed %v", elapsed)
	}
}

func TestHumidityTempReadError(t *testing.T) {
	h, line := newTestDHT(nil, gpio.High)
	line.ReadError = errors.New("simulated error")

	_, err := h.Acquire()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("expected read error to propagate, got %v", err)
	}
}

func TestHumidityTempInit(t *testing.T) {
	h, line := newTestDHT(nil, gpio.High)

	if err := h.Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !line.IsOutput || len(line.Writes) != 1 || line.Writes[0] != gpio.High {
		t.Errorf("expected line driven high as output, got output=%v writes=%v", line.IsOutput, line.Writes)
	}
	if line.Pull != gpio.PullUp {
		t.Errorf("expected pull-up on the data line, got %s", line.Pull)
	}
}
