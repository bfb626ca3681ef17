// Package logic contains the pure alerting rules for the home-safety analyzer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

// Severity ranks alerts. The numeric values are the wire values.
type Severity uint8

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// AlertKind identifies which rule fired. The numeric values are the wire values.
type AlertKind uint8

const (
	AlertTempHigh    AlertKind = 1
	AlertTempLow     AlertKind = 2
	AlertGasDetected AlertKind = 3
	AlertMotion      AlertKind = 4
	AlertDoorClosed  AlertKind = 5
	AlertDoorOpen    AlertKind = 6
)

func (k AlertKind) String() string {
	switch k {
	case AlertTempHigh:
		return "TEMP_HIGH"
	case AlertTempLow:
		return "TEMP_LOW"
	case AlertGasDetected:
		return "GAS_DETECTED"
	case AlertMotion:
		return "MOTION"
	case AlertDoorClosed:
		return "DOOR_CLOSED"
	case AlertDoorOpen:
		return "DOOR_OPEN"
	default:
		return "UNKNOWN"
	}
}

// PulseCode selects an actuator pattern. The numeric values are the wire values.
type PulseCode uint8

const (
	PulseNone        PulseCode = 0
	PulseMotion      PulseCode = 1
	PulseGas         PulseCode = 2
	PulseTemperature PulseCode = 3
	PulseDoor        PulseCode = 4
)

func (c PulseCode) String() string {
	switch c {
	case PulseNone:
		return "NONE"
	case PulseMotion:
		return "MOTION"
	case PulseGas:
		return "GAS"
	case PulseTemperature:
		return "TEMPERATURE"
	case PulseDoor:
		return "DOOR"
	default:
		return "UNKNOWN"
	}
}

// Alert is an ephemeral alert event, built and sent within one cycle.
type Alert struct {
	Kind        AlertKind
	Severity    Severity
	Value       int
	Description string

	// Pulse is sent to the actuator right after the alert; PulseNone for
	// alerts without one.
	Pulse PulseCode
}

// Pulse is a fire-and-forget actuator command.
type Pulse struct {
	Code     PulseCode
	Severity Severity
}

// Thresholds are fixed at startup.
type Thresholds struct {
	TempHigh     int // alert when temperature > TempHigh
	TempLow      int // alert when temperature < TempLow
	HumidityHigh int // carried for display; no humidity rule exists
	HumidityLow  int
	DoorClosedCM int // door is closed when distance <= DoorClosedCM

	// MotionEdgeTriggered suppresses repeated motion alerts while motion
	// persists. Off by default: motion re-alerts every cycle.
	MotionEdgeTriggered bool
}

// DefaultThresholds returns the stock configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempHigh:     30,
		TempLow:      15,
		HumidityHigh: 80,
		HumidityLow:  20,
		DoorClosedCM: 10,
	}
}

// Climate is the latest humidity/temperature reading.
type Climate struct {
	Temperature int
	Humidity    int
	Valid       bool
}

// Presence is the latest reading of a binary detector.
type Presence struct {
	Detected bool
	Valid    bool
}

// Distance is the latest rangefinder reading.
type Distance struct {
	CM    uint16
	Valid bool
}

// Readings is the set of latest readings, one per sensor kind.
type Readings struct {
	Climate  Climate
	Gas      Presence
	Motion   Presence
	Distance Distance
}

// Result is the outcome of one evaluation cycle.
type Result struct {
	Alerts []Alert

	// Level is the highest severity fired this cycle, SeverityInfo if none.
	Level Severity

	// DoorClosed is derived from the latest valid distance reading.
	DoorClosed bool
}

// AlertCounts tracks the number of alerts of each kind since startup.
type AlertCounts struct {
	TempHigh   int
	TempLow    int
	Gas        int
	Motion     int
	DoorClosed int
	DoorOpen   int
}
