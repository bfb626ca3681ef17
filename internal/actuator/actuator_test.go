package actuator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/gpio"
	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

// immediate returns an after func that records durations and fires at once.
func immediate(slept *[]time.Duration) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		*slept = append(*slept, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
}

func TestDurationsFor(t *testing.T) {
	d := DefaultDurations()
	tests := []struct {
		code logic.PulseCode
		want time.Duration
		ok   bool
	}{
		{logic.PulseMotion, 2 * time.Second, true},
		{logic.PulseGas, 5 * time.Second, true},
		{logic.PulseTemperature, 3 * time.Second, true},
		{logic.PulseDoor, 3 * time.Second, true},
		{logic.PulseNone, 0, false},
		{logic.PulseCode(9), 0, false},
	}
	for _, tt := range tests {
		got, ok := d.For(tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("For(%s): got (%v, %v), want (%v, %v)", tt.code, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInitDrivesLEDLow(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	a := New(led, DefaultDurations(), 0)

	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !led.IsOutput || len(led.Writes) != 1 || led.Writes[0] != gpio.Low {
		t.Errorf("expected output driven low, got output=%v writes=%v", led.IsOutput, led.Writes)
	}
}

func TestInitError(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	led.WriteError = &gpio.Error{Code: gpio.SendFailed, Op: "output", Pin: gpio.DefaultPinLED}
	a := New(led, DefaultDurations(), 0)

	if err := a.Init(); !errors.Is(err, gpio.SendFailed) {
		t.Errorf("expected SendFailed, got %v", err)
	}
}

func TestPulse(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	a := New(led, DefaultDurations(), 0)
	var slept []time.Duration
	a.after = immediate(&slept)

	if err := a.Pulse(context.Background(), logic.PulseGas); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	if len(led.Writes) != 2 || led.Writes[0] != gpio.High || led.Writes[1] != gpio.Low {
		t.Errorf("writes: got %v, want [1 0]", led.Writes)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Errorf("slept: got %v, want [5s]", slept)
	}
}

func TestPulseUnknown(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	a := New(led, DefaultDurations(), 0)

	if err := a.Pulse(context.Background(), logic.PulseCode(7)); err == nil {
		t.Error("expected error for unknown code")
	}
	if len(led.Writes) != 0 {
		t.Errorf("expected LED untouched, got %v", led.Writes)
	}
}

func TestPulseCancelledTurnsOff(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	a := New(led, DefaultDurations(), 0)
	a.after = func(time.Duration) <-chan time.Time { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Pulse(ctx, logic.PulseMotion); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	if len(led.Writes) != 2 || led.Writes[1] != gpio.Low {
		t.Errorf("expected LED off after cancel, got %v", led.Writes)
	}
}

func TestHandleFiltersAndQueues(t *testing.T) {
	a := New(gpio.NewFakeLine(gpio.Low), DefaultDurations(), 2)

	a.Handle("", nil)
	a.Handle("", message.EncodePulse(logic.PulseNone))
	a.Handle("", message.EncodePulse(logic.PulseCode(42)))
	if len(a.queue) != 0 {
		t.Fatalf("expected nothing queued, got %d", len(a.queue))
	}

	a.Handle("", message.EncodePulse(logic.PulseDoor))
	a.Handle("", message.EncodePulse(logic.PulseMotion))
	a.Handle("", message.EncodePulse(logic.PulseGas)) // dropped, queue full
	if len(a.queue) != 2 {
		t.Fatalf("expected 2 queued, got %d", len(a.queue))
	}
	if got := <-a.queue; got != logic.PulseDoor {
		t.Errorf("first queued: got %s, want DOOR", got)
	}
}

func TestRunPlaysSerially(t *testing.T) {
	led := gpio.NewFakeLine(gpio.Low)
	a := New(led, DefaultDurations(), 0)
	slept := make(chan time.Duration)
	a.after = func(d time.Duration) <-chan time.Time {
		slept <- d
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	a.Handle("home/safety/pulses", message.EncodePulse(logic.PulseTemperature))
	a.Handle("home/safety/pulses", message.EncodePulse(logic.PulseMotion))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	for _, want := range []time.Duration{3 * time.Second, 2 * time.Second} {
		select {
		case got := <-slept:
			if got != want {
				t.Errorf("pulse duration: got %v, want %v", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("pulse not played")
		}
	}
	cancel()
	<-done

	highs := 0
	for _, w := range led.Writes {
		if w == gpio.High {
			highs++
		}
	}
	if highs != 2 || led.Writes[len(led.Writes)-1] != gpio.Low {
		t.Errorf("writes: got %v", led.Writes)
	}
}
