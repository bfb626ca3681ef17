package logic

import "fmt"

// Evaluator applies the alert rules to successive snapshots.
// It owns the edge latches, so one Evaluator must be driven by a single
// goroutine for the life of the process.
type Evaluator struct {
	thresholds Thresholds

	// Last observed derived states, for edge detection.
	lastDoorClosed bool
	lastMotion     bool

	counts AlertCounts
}

// NewEvaluator creates an Evaluator. Both latches start false
// (door open, no motion), so a door seen closed on the first valid
// cycle produces a closed transition.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Thresholds returns the configured thresholds.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate runs every rule against r in fixed order: temperature, gas,
// motion, door. Rules are independent; several may fire in one cycle.
// Invalid readings skip their rule.
func (e *Evaluator) Evaluate(r Readings) Result {
	var res Result

	if r.Climate.Valid {
		switch {
		case r.Climate.Temperature > e.thresholds.TempHigh:
			res.alert(AlertTempHigh, SeverityWarning, r.Climate.Temperature, "Temperature above threshold", PulseTemperature)
		case r.Climate.Temperature < e.thresholds.TempLow:
			res.alert(AlertTempLow, SeverityWarning, r.Climate.Temperature, "Temperature below threshold", PulseNone)
		}
	}

	// Gas is a continuous hazard: alert on every cycle it persists.
	if r.Gas.Valid && r.Gas.Detected {
		res.alert(AlertGasDetected, SeverityCritical, 1, "Gas detected - potential hazard!", PulseGas)
	}

	if r.Motion.Valid {
		if r.Motion.Detected && !(e.thresholds.MotionEdgeTriggered && e.lastMotion) {
			res.alert(AlertMotion, SeverityInfo, 1, "Motion detected", PulseMotion)
		}
		e.lastMotion = r.Motion.Detected
	}

	if r.Distance.Valid {
		closed := int(r.Distance.CM) <= e.thresholds.DoorClosedCM
		switch {
		case closed && !e.lastDoorClosed:
			res.alert(AlertDoorClosed, SeverityInfo, int(r.Distance.CM), "Door closed", PulseDoor)
		case !closed && e.lastDoorClosed:
			res.alert(AlertDoorOpen, SeverityInfo, int(r.Distance.CM), "Door opened", PulseDoor)
		}
		e.lastDoorClosed = closed
	}
	res.DoorClosed = e.lastDoorClosed

	for _, a := range res.Alerts {
		if a.Severity > res.Level {
			res.Level = a.Severity
		}
		e.count(a.Kind)
	}
	return res
}

// DoorClosed reports the latched door state from the last valid reading.
func (e *Evaluator) DoorClosed() bool {
	return e.lastDoorClosed
}

// Counts returns a copy of the alert counters.
func (e *Evaluator) Counts() AlertCounts {
	return e.counts
}

func (e *Evaluator) count(k AlertKind) {
	switch k {
	case AlertTempHigh:
		e.counts.TempHigh++
	case AlertTempLow:
		e.counts.TempLow++
	case AlertGasDetected:
		e.counts.Gas++
	case AlertMotion:
		e.counts.Motion++
	case AlertDoorClosed:
		e.counts.DoorClosed++
	case AlertDoorOpen:
		e.counts.DoorOpen++
	}
}

func (r *Result) alert(kind AlertKind, sev Severity, value int, desc string, pulse PulseCode) {
	r.Alerts = append(r.Alerts, Alert{Kind: kind, Severity: sev, Value: value, Description: desc, Pulse: pulse})
}

// Pulses returns the actuator commands of the cycle, in alert order.
func (r Result) Pulses() []Pulse {
	var out []Pulse
	for _, a := range r.Alerts {
		if p, ok := a.ActuatorPulse(); ok {
			out = append(out, p)
		}
	}
	return out
}

// ActuatorPulse returns the pulse that accompanies a, if any.
func (a Alert) ActuatorPulse() (Pulse, bool) {
	if a.Pulse == PulseNone {
		return Pulse{}, false
	}
	return Pulse{Code: a.Pulse, Severity: a.Severity}, true
}

// String formats an alert as "[LEVEL] description (value=N)".
func (a Alert) String() string {
	return fmt.Sprintf("[%s] %s (value=%d)", a.Severity, a.Description, a.Value)
}
