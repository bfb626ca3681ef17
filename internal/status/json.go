package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	AlertLevel    string       `json:"alert_level"`
	Sequence      *uint32      `json:"sequence"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastReading   string       `json:"last_reading,omitempty"`
	Sensors       *SensorsJSON `json:"sensors,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"alert_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorsJSON is the last aggregated reading. Invalid values are null.
type SensorsJSON struct {
	Temperature *int32  `json:"temperature"`
	Humidity    *int32  `json:"humidity"`
	Gas         *bool   `json:"gas"`
	Motion      *bool   `json:"motion"`
	DistanceCM  *uint16 `json:"distance_cm"`
	Door        string  `json:"door"`
}

// MQTTStatus reports MQTT connection state and target presence.
type MQTTStatus struct {
	Connected bool            `json:"connected"`
	Broker    string          `json:"broker"`
	Targets   map[string]bool `json:"targets"`
}

// CountsJSON is the JSON representation of alert counts.
type CountsJSON struct {
	TempHigh   int `json:"temp_high"`
	TempLow    int `json:"temp_low"`
	Gas        int `json:"gas"`
	Motion     int `json:"motion"`
	DoorClosed int `json:"door_closed"`
	DoorOpen   int `json:"door_open"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ThresholdsJSON is the JSON representation of the alert thresholds.
type ThresholdsJSON struct {
	TempHigh            int  `json:"temp_high"`
	TempLow             int  `json:"temp_low"`
	HumidityHigh        int  `json:"humidity_high"`
	HumidityLow         int  `json:"humidity_low"`
	DoorClosedCM        int  `json:"door_closed_cm"`
	MotionEdgeTriggered bool `json:"motion_edge_triggered"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs    int64          `json:"sample_ms"`
	AggregateMs int64          `json:"aggregate_ms"`
	Broker      string         `json:"broker"`
	TopicPrefix string         `json:"topic_prefix"`
	HTTPAddr    string         `json:"http_addr"`
	Thresholds  ThresholdsJSON `json:"thresholds"`
}

func buildInner(snap Snapshot) StatusInner {
	targets := snap.Targets
	if targets == nil {
		targets = map[string]bool{}
	}
	th := snap.Config.Thresholds

	inner := StatusInner{
		AlertLevel:    "UNKNOWN",
		Ready:         snap.HasReading,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Targets: targets},
		Counts: CountsJSON{
			TempHigh:   snap.Counts.TempHigh,
			TempLow:    snap.Counts.TempLow,
			Gas:        snap.Counts.Gas,
			Motion:     snap.Counts.Motion,
			DoorClosed: snap.Counts.DoorClosed,
			DoorOpen:   snap.Counts.DoorOpen,
		},
		Config: ConfigJSON{
			SampleMs:    snap.Config.SampleMs,
			AggregateMs: snap.Config.AggregateMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			Thresholds: ThresholdsJSON{
				TempHigh:            th.TempHigh,
				TempLow:             th.TempLow,
				HumidityHigh:        th.HumidityHigh,
				HumidityLow:         th.HumidityLow,
				DoorClosedCM:        th.DoorClosedCM,
				MotionEdgeTriggered: th.MotionEdgeTriggered,
			},
		},
	}

	if snap.HasReading {
		r := snap.Last
		seq := r.Sequence
		inner.Sequence = &seq
		inner.AlertLevel = r.AlertLevel.String()
		inner.LastReading = r.Timestamp.UTC().Format(time.RFC3339)
		inner.Sensors = buildSensors(snap)
	}
	return inner
}

func buildSensors(snap Snapshot) *SensorsJSON {
	r := snap.Last
	s := &SensorsJSON{Door: "unknown"}
	if r.TempValid {
		v := r.Temperature
		s.Temperature = &v
	}
	if r.HumidityValid {
		v := r.Humidity
		s.Humidity = &v
	}
	if r.GasValid {
		v := r.Gas
		s.Gas = &v
	}
	if r.MotionValid {
		v := r.Motion
		s.Motion = &v
	}
	if r.DistanceValid {
		v := r.Distance
		s.DistanceCM = &v
		s.Door = "open"
		if r.DoorClosed {
			s.Door = "closed"
		}
	}
	return s
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
