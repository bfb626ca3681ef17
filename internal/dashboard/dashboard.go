// Package dashboard implements the stats_update service: it turns each
// aggregated reading into the JSON document polled by the browser front end
// and prints a console summary.
package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

// DefaultPath is where the front end expects the document.
const DefaultPath = "dashboard.json"

// TimestampLayout formats the document timestamp in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// CO2 approximations derived from the gas detector (ppm).
const (
	CO2Clean    = 400
	CO2Detected = 1000
)

// Document is the dashboard JSON. Field order is part of the format.
type Document struct {
	Timestamp string   `json:"timestamp"`
	Sensors   Sensors  `json:"sensors"`
	Metadata  Metadata `json:"metadata"`
}

type Sensors struct {
	Door        Status `json:"door"`
	Temperature Value  `json:"temperature"`
	Humidity    Value  `json:"humidity"`
	Smoke       Smoke  `json:"smoke"`
	Motion      Status `json:"motion"`
	CO2         Value  `json:"co2"`
}

type Status struct {
	Status string `json:"status"`
}

// Value is a numeric reading, null when the sensor is invalid.
type Value struct {
	Value *int `json:"value"`
}

type Smoke struct {
	Status string `json:"status"`
	Alert  bool   `json:"alert"`
}

type Metadata struct {
	Sequence   uint32 `json:"sequence"`
	AlertLevel string `json:"alert_level"`
}

// Build maps an aggregated reading onto the dashboard document.
// Invalid sensors render as "unknown" or null.
func Build(r message.Reading) Document {
	d := Document{
		Timestamp: r.Timestamp.Local().Format(TimestampLayout),
		Sensors: Sensors{
			Door:   Status{Status: "unknown"},
			Smoke:  Smoke{Status: "unknown"},
			Motion: Status{Status: "unknown"},
		},
		Metadata: Metadata{
			Sequence:   r.Sequence,
			AlertLevel: levelName(r.AlertLevel),
		},
	}

	if r.DistanceValid {
		d.Sensors.Door.Status = "open"
		if r.DoorClosed {
			d.Sensors.Door.Status = "closed"
		}
	}
	if r.TempValid {
		d.Sensors.Temperature.Value = intp(int(r.Temperature))
	}
	if r.HumidityValid {
		d.Sensors.Humidity.Value = intp(int(r.Humidity))
	}
	if r.GasValid {
		d.Sensors.Smoke = Smoke{Status: "clear"}
		d.Sensors.CO2.Value = intp(CO2Clean)
		if r.Gas {
			d.Sensors.Smoke = Smoke{Status: "detected", Alert: true}
			d.Sensors.CO2.Value = intp(CO2Detected)
		}
	}
	if r.MotionValid {
		d.Sensors.Motion.Status = "clear"
		if r.Motion {
			d.Sensors.Motion.Status = "detected"
		}
	}
	return d
}

func levelName(s logic.Severity) string {
	switch s {
	case logic.SeverityCritical:
		return "critical"
	case logic.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

func intp(v int) *int { return &v }

// WriteFile replaces path with doc in one rename, so a polling reader sees
// either the previous document or the new one, never a partial write.
func WriteFile(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Writer handles readings delivered to stats_update.
type Writer struct {
	Path string

	// Console, if set, receives a rendered summary of every update.
	Console io.Writer

	// Color enables ANSI colors in the console summary.
	Color bool
}

// Handle decodes one reading, rewrites the dashboard file and prints the
// summary. A malformed payload is logged and dropped.
func (w *Writer) Handle(_ string, payload []byte) {
	if err := w.Update(payload); err != nil {
		log.Printf("stats_update: %v", err)
	}
}

// Update is Handle with the error returned.
func (w *Writer) Update(payload []byte) error {
	r, err := message.DecodeReading(payload)
	if err != nil {
		return err
	}
	path := w.Path
	if path == "" {
		path = DefaultPath
	}
	if err := WriteFile(path, Build(r)); err != nil {
		return err
	}
	if w.Console != nil {
		fmt.Fprint(w.Console, Render(r, w.Color))
	}
	return nil
}
