package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeLineStaticLevel(t *testing.T) {
	f := NewFakeLine(High)

	for i := 0; i < 3; i++ {
		v, err := f.Value()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if v != High {
			t.Errorf("read %d: expected High, got %d", i, v)
		}
	}
	if f.Reads != 3 {
		t.Errorf("expected 3 reads, got %d", f.Reads)
	}
}

func TestFakeLineWaveform(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	f := NewWaveformLine(clock, High, []Segment{
		{Level: Low, Duration: 3 * time.Microsecond},
		{Level: High, Duration: 2 * time.Microsecond},
	})

	// One read per microsecond: L L L H H then idle H.
	want := []int{Low, Low, Low, High, High, High}
	for i, w := range want {
		v, err := f.Value()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if v != w {
			t.Errorf("read %d: expected %d, got %d", i, w, v)
		}
	}
}

func TestFakeLineWaveformStartsOnFirstRead(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	f := NewWaveformLine(clock, Low, []Segment{{Level: High, Duration: 5 * time.Microsecond}})

	// Time passing before the first read must not consume the waveform.
	clock.Sleep(20 * time.Millisecond)

	v, _ := f.Value()
	if v != High {
		t.Errorf("expected waveform to start at first read, got %d", v)
	}
}

func TestFakeLineAdvancesClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	f := &FakeLine{Clock: clock, Step: 2 * time.Microsecond, Level: Low}

	for i := 0; i < 5; i++ {
		f.Value()
	}

	if got := clock.Now().Sub(start); got != 10*time.Microsecond {
		t.Errorf("expected clock to advance 10us, got %v", got)
	}
}

func TestFakeLineRewind(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	f := NewWaveformLine(clock, Low, []Segment{{Level: High, Duration: time.Microsecond}})

	if v, _ := f.Value(); v != High {
		t.Fatalf("expected High on first read, got %d", v)
	}
	if v, _ := f.Value(); v != Low {
		t.Fatalf("expected idle Low after waveform, got %d", v)
	}

	f.Rewind()

	if v, _ := f.Value(); v != High {
		t.Errorf("after rewind: expected High, got %d", v)
	}
}

func TestFakeLineWrites(t *testing.T) {
	f := NewFakeLine(Low)

	if err := f.Output(Low); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsOutput {
		t.Error("expected line to be output after Output()")
	}
	f.SetValue(High)
	f.SetValue(Low)

	want := []int{Low, High, Low}
	if len(f.Writes) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(f.Writes))
	}
	for i := range want {
		if f.Writes[i] != want[i] {
			t.Errorf("write %d: expected %d, got %d", i, want[i], f.Writes[i])
		}
	}

	f.Input()
	if f.IsOutput {
		t.Error("expected line to be input after Input()")
	}
}

func TestFakeLineInvalidLevel(t *testing.T) {
	f := NewFakeLine(Low)

	err := f.SetValue(7)
	if !errors.Is(err, InputOutOfRange) {
		t.Errorf("expected InputOutOfRange, got %v", err)
	}
}

func TestFakeLineError(t *testing.T) {
	f := NewFakeLine(High)
	f.ReadError = errors.New("simulated error")

	_, err := f.Value()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeLineClose(t *testing.T) {
	f := NewFakeLine(High)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	_, err := f.Value()
	if !errors.Is(err, NotConnected) {
		t.Errorf("read after close: expected NotConnected, got %v", err)
	}
}

func TestErrorMatchesCode(t *testing.T) {
	err := newError(SendFailed, "read", 4, errors.New("ioctl"))

	if !errors.Is(err, SendFailed) {
		t.Error("expected errors.Is(err, SendFailed)")
	}
	if errors.Is(err, NotConnected) {
		t.Error("did not expect errors.Is(err, NotConnected)")
	}
	want := "gpio read pin 4: send_failed: ioctl"
	if err.Error() != want {
		t.Errorf("message: got %q, want %q", err.Error(), want)
	}
}
