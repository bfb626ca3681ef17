package logic

import "testing"

// quiet returns readings that trigger nothing under DefaultThresholds.
func quiet() Readings {
	return Readings{
		Climate:  Climate{Temperature: 22, Humidity: 40, Valid: true},
		Gas:      Presence{Detected: false, Valid: true},
		Motion:   Presence{Detected: false, Valid: true},
		Distance: Distance{CM: 50, Valid: true},
	}
}

func kinds(res Result) []AlertKind {
	out := make([]AlertKind, len(res.Alerts))
	for i, a := range res.Alerts {
		out[i] = a.Kind
	}
	return out
}

func TestNewEvaluator(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	if e == nil {
		t.Fatal("NewEvaluator returned nil")
	}
	if e.DoorClosed() {
		t.Error("door latch should start open")
	}
	if e.lastMotion {
		t.Error("motion latch should start false")
	}
	if e.Thresholds().TempHigh != 30 || e.Thresholds().TempLow != 15 {
		t.Errorf("unexpected thresholds: %+v", e.Thresholds())
	}
}

func TestQuietCycle(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	res := e.Evaluate(quiet())
	if len(res.Alerts) != 0 {
		t.Errorf("expected no alerts, got %v", kinds(res))
	}
	if len(res.Pulses()) != 0 {
		t.Errorf("expected no pulses, got %d", len(res.Pulses()))
	}
	if res.Level != SeverityInfo {
		t.Errorf("expected resting level INFO, got %s", res.Level)
	}
}

func TestTemperatureThresholds(t *testing.T) {
	tests := []struct {
		temp  int
		valid bool
		want  []AlertKind
	}{
		{temp: 31, valid: true, want: []AlertKind{AlertTempHigh}},
		{temp: 30, valid: true, want: nil},
		{temp: 15, valid: true, want: nil},
		{temp: 14, valid: true, want: []AlertKind{AlertTempLow}},
		{temp: -5, valid: true, want: []AlertKind{AlertTempLow}},
		{temp: 45, valid: false, want: nil},
		{temp: 0, valid: false, want: nil},
	}

	for _, tt := range tests {
		e := NewEvaluator(DefaultThresholds())
		r := quiet()
		r.Climate = Climate{Temperature: tt.temp, Humidity: 50, Valid: tt.valid}

		res := e.Evaluate(r)
		got := kinds(res)
		if len(got) != len(tt.want) {
			t.Errorf("temp=%d valid=%v: got alerts %v, want %v", tt.temp, tt.valid, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("temp=%d valid=%v: got alerts %v, want %v", tt.temp, tt.valid, got, tt.want)
			}
		}
		if len(got) > 0 {
			if res.Alerts[0].Severity != SeverityWarning {
				t.Errorf("temp=%d: expected WARNING, got %s", tt.temp, res.Alerts[0].Severity)
			}
			if res.Alerts[0].Value != tt.temp {
				t.Errorf("temp=%d: alert value %d", tt.temp, res.Alerts[0].Value)
			}
		}
	}
}

func TestTemperatureHighPrecedence(t *testing.T) {
	// Inverted bounds make both comparisons true; high wins.
	e := NewEvaluator(Thresholds{TempHigh: 10, TempLow: 40, DoorClosedCM: 10})
	r := quiet()
	r.Climate.Temperature = 25

	res := e.Evaluate(r)
	if len(res.Alerts) != 1 || res.Alerts[0].Kind != AlertTempHigh {
		t.Errorf("expected single TEMP_HIGH, got %v", kinds(res))
	}
}

func TestTemperatureHighPulses(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Climate.Temperature = 35

	res := e.Evaluate(r)
	if len(res.Pulses()) != 1 || res.Pulses()[0].Code != PulseTemperature {
		t.Errorf("expected temperature pulse, got %+v", res.Pulses())
	}

	r.Climate.Temperature = 5
	res = e.Evaluate(r)
	if len(res.Pulses()) != 0 {
		t.Errorf("expected no pulse for low temperature, got %+v", res.Pulses())
	}
}

func TestGasContinuous(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Gas.Detected = true

	for i := 0; i < 5; i++ {
		res := e.Evaluate(r)
		if len(res.Alerts) != 1 || res.Alerts[0].Kind != AlertGasDetected {
			t.Fatalf("cycle %d: expected GAS_DETECTED, got %v", i, kinds(res))
		}
		if res.Alerts[0].Severity != SeverityCritical {
			t.Errorf("cycle %d: expected CRITICAL, got %s", i, res.Alerts[0].Severity)
		}
		if len(res.Pulses()) != 1 || res.Pulses()[0].Code != PulseGas {
			t.Errorf("cycle %d: expected gas pulse, got %+v", i, res.Pulses())
		}
		if res.Level != SeverityCritical {
			t.Errorf("cycle %d: expected level CRITICAL, got %s", i, res.Level)
		}
	}

	r.Gas.Detected = false
	for i := 0; i < 3; i++ {
		if res := e.Evaluate(r); len(res.Alerts) != 0 {
			t.Errorf("clear cycle %d: expected no alerts, got %v", i, kinds(res))
		}
	}
}

func TestGasInvalidSkipped(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Gas = Presence{Detected: true, Valid: false}

	if res := e.Evaluate(r); len(res.Alerts) != 0 {
		t.Errorf("expected invalid gas reading to be skipped, got %v", kinds(res))
	}
}

func TestMotionContinuousByDefault(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Motion.Detected = true

	for i := 0; i < 4; i++ {
		res := e.Evaluate(r)
		if len(res.Alerts) != 1 || res.Alerts[0].Kind != AlertMotion {
			t.Fatalf("cycle %d: expected MOTION, got %v", i, kinds(res))
		}
		if res.Alerts[0].Severity != SeverityInfo {
			t.Errorf("cycle %d: expected INFO, got %s", i, res.Alerts[0].Severity)
		}
		if len(res.Pulses()) != 1 || res.Pulses()[0].Code != PulseMotion {
			t.Errorf("cycle %d: expected motion pulse, got %+v", i, res.Pulses())
		}
	}
	if got := e.Counts().Motion; got != 4 {
		t.Errorf("expected 4 motion alerts counted, got %d", got)
	}
}

func TestMotionEdgeTriggered(t *testing.T) {
	th := DefaultThresholds()
	th.MotionEdgeTriggered = true
	e := NewEvaluator(th)
	r := quiet()

	seq := []bool{true, true, true, false, true, true}
	want := []int{1, 0, 0, 0, 1, 0}
	for i, detected := range seq {
		r.Motion.Detected = detected
		res := e.Evaluate(r)
		if len(res.Alerts) != want[i] {
			t.Errorf("cycle %d (motion=%v): expected %d alerts, got %v", i, detected, want[i], kinds(res))
		}
	}
}

func TestDoorTransitions(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()

	steps := []struct {
		cm   uint16
		want []AlertKind
	}{
		{cm: 50, want: nil},                         // open, latch already open
		{cm: 8, want: []AlertKind{AlertDoorClosed}}, // open -> closed
		{cm: 10, want: nil},                         // boundary is closed
		{cm: 9, want: nil},
		{cm: 11, want: []AlertKind{AlertDoorOpen}}, // closed -> open
		{cm: 200, want: nil},
	}

	for i, s := range steps {
		r.Distance = Distance{CM: s.cm, Valid: true}
		res := e.Evaluate(r)
		got := kinds(res)
		if len(got) != len(s.want) || (len(got) == 1 && got[0] != s.want[0]) {
			t.Errorf("step %d (cm=%d): got %v, want %v", i, s.cm, got, s.want)
		}
		if len(got) == 1 {
			if len(res.Pulses()) != 1 || res.Pulses()[0].Code != PulseDoor {
				t.Errorf("step %d: expected door pulse, got %+v", i, res.Pulses())
			}
			if res.Alerts[0].Value != int(s.cm) {
				t.Errorf("step %d: alert value %d, want %d", i, res.Alerts[0].Value, s.cm)
			}
		}
	}
}

func TestDoorSteadyStateNoRepeat(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Distance = Distance{CM: 5, Valid: true}

	total := 0
	for i := 0; i < 20; i++ {
		total += len(e.Evaluate(r).Alerts)
	}
	if total != 1 {
		t.Errorf("expected exactly 1 door alert over 20 steady cycles, got %d", total)
	}
}

func TestDoorInvalidKeepsLatch(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()

	r.Distance = Distance{CM: 5, Valid: true}
	e.Evaluate(r)

	// Invalid readings neither fire nor move the latch.
	r.Distance = Distance{CM: 90, Valid: false}
	res := e.Evaluate(r)
	if len(res.Alerts) != 0 {
		t.Errorf("expected no alerts for invalid distance, got %v", kinds(res))
	}
	if !res.DoorClosed {
		t.Error("expected latched door state closed to be reported")
	}

	// Still closed when it comes back: no transition.
	r.Distance = Distance{CM: 6, Valid: true}
	if res := e.Evaluate(r); len(res.Alerts) != 0 {
		t.Errorf("expected no alerts on recovery, got %v", kinds(res))
	}
}

func TestLevelIsMaxSeverity(t *testing.T) {
	tests := []struct {
		name string
		mod  func(r *Readings)
		want Severity
	}{
		{"none", func(r *Readings) {}, SeverityInfo},
		{"motion only", func(r *Readings) { r.Motion.Detected = true }, SeverityInfo},
		{"temp only", func(r *Readings) { r.Climate.Temperature = 40 }, SeverityWarning},
		{"temp and motion", func(r *Readings) {
			r.Climate.Temperature = 40
			r.Motion.Detected = true
		}, SeverityWarning},
		{"gas and temp", func(r *Readings) {
			r.Gas.Detected = true
			r.Climate.Temperature = 2
		}, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(DefaultThresholds())
			r := quiet()
			tt.mod(&r)
			if got := e.Evaluate(r).Level; got != tt.want {
				t.Errorf("level: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluationOrder(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := Readings{
		Climate:  Climate{Temperature: 32, Humidity: 50, Valid: true},
		Gas:      Presence{Detected: true, Valid: true},
		Motion:   Presence{Detected: true, Valid: true},
		Distance: Distance{CM: 3, Valid: true},
	}

	res := e.Evaluate(r)
	want := []AlertKind{AlertTempHigh, AlertGasDetected, AlertMotion, AlertDoorClosed}
	got := kinds(res)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("alert %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

// Temperature 32 (valid), gas detected, no motion, door moving from 15cm to 8cm.
func TestScenarioHotGasDoorClosing(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	prev := Readings{
		Climate:  Climate{Temperature: 22, Humidity: 40, Valid: true},
		Gas:      Presence{Valid: true},
		Motion:   Presence{Valid: true},
		Distance: Distance{CM: 15, Valid: true},
	}
	if res := e.Evaluate(prev); len(res.Alerts) != 0 {
		t.Fatalf("setup cycle: expected no alerts, got %v", kinds(res))
	}

	res := e.Evaluate(Readings{
		Climate:  Climate{Temperature: 32, Humidity: 40, Valid: true},
		Gas:      Presence{Detected: true, Valid: true},
		Motion:   Presence{Detected: false, Valid: true},
		Distance: Distance{CM: 8, Valid: true},
	})

	want := []Alert{
		{Kind: AlertTempHigh, Severity: SeverityWarning, Value: 32},
		{Kind: AlertGasDetected, Severity: SeverityCritical, Value: 1},
		{Kind: AlertDoorClosed, Severity: SeverityInfo, Value: 8},
	}
	if len(res.Alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %v", len(want), kinds(res))
	}
	for i, w := range want {
		a := res.Alerts[i]
		if a.Kind != w.Kind || a.Severity != w.Severity || a.Value != w.Value {
			t.Errorf("alert %d: got %+v, want %+v", i, a, w)
		}
	}

	wantPulses := []PulseCode{PulseTemperature, PulseGas, PulseDoor}
	if len(res.Pulses()) != len(wantPulses) {
		t.Fatalf("expected %d pulses, got %+v", len(wantPulses), res.Pulses())
	}
	for i, c := range wantPulses {
		if res.Pulses()[i].Code != c {
			t.Errorf("pulse %d: got %s, want %s", i, res.Pulses()[i].Code, c)
		}
	}

	if res.Level != SeverityCritical {
		t.Errorf("level: got %s, want CRITICAL", res.Level)
	}
	if !res.DoorClosed {
		t.Error("expected door closed")
	}
}

func TestAlertString(t *testing.T) {
	a := Alert{Kind: AlertTempHigh, Severity: SeverityWarning, Value: 32, Description: "Temperature above threshold"}
	want := "[WARNING] Temperature above threshold (value=32)"
	if a.String() != want {
		t.Errorf("got %q, want %q", a.String(), want)
	}
}

func TestCounts(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := quiet()
	r.Gas.Detected = true
	r.Distance.CM = 4

	e.Evaluate(r)
	e.Evaluate(r)

	c := e.Counts()
	if c.Gas != 2 {
		t.Errorf("gas count: got %d, want 2", c.Gas)
	}
	if c.DoorClosed != 1 {
		t.Errorf("door closed count: got %d, want 1", c.DoorClosed)
	}
	if c.TempHigh != 0 || c.Motion != 0 {
		t.Errorf("unexpected counts: %+v", c)
	}
}

func TestAlertsCarryTheirPulse(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	res := e.Evaluate(Readings{
		Climate:  Climate{Temperature: 10, Humidity: 40, Valid: true},
		Gas:      Presence{Detected: true, Valid: true},
		Motion:   Presence{Detected: true, Valid: true},
		Distance: Distance{CM: 5, Valid: true},
	})

	want := []struct {
		kind  AlertKind
		pulse PulseCode
	}{
		{AlertTempLow, PulseNone},
		{AlertGasDetected, PulseGas},
		{AlertMotion, PulseMotion},
		{AlertDoorClosed, PulseDoor},
	}
	if len(res.Alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %v", len(want), kinds(res))
	}
	for i, w := range want {
		a := res.Alerts[i]
		if a.Kind != w.kind || a.Pulse != w.pulse {
			t.Errorf("alert %d: got %s with %s, want %s with %s", i, a.Kind, a.Pulse, w.kind, w.pulse)
		}
		p, ok := a.ActuatorPulse()
		if ok != (w.pulse != PulseNone) || (ok && (p.Code != w.pulse || p.Severity != a.Severity)) {
			t.Errorf("alert %d: ActuatorPulse got (%+v, %v)", i, p, ok)
		}
	}
}
