// Package analyzer runs the sampling loops and the aggregator that turns
// shared sensor state into alerts, pulses and aggregated readings.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/metrics"
	"github.com/sweeney/home-safety-sensor/internal/sensor"
	"github.com/sweeney/home-safety-sensor/internal/state"
)

// Acquirer is one sensor as driven by its sampling loop.
type Acquirer interface {
	// Name labels logs and metrics.
	Name() string

	// Init prepares the sensor's pins. Called once before the first sample.
	Init() error

	// Sample performs one acquisition and records the outcome in s: the new
	// value on success, or the validity flag cleared on failure. The returned
	// string summarises a successful reading.
	Sample(s *state.Store) (string, error)
}

// ClimateSource is implemented by sensor.HumidityTemp.
type ClimateSource interface {
	Init() error
	Acquire() (sensor.Climate, error)
}

// DistanceSource is implemented by sensor.Rangefinder.
type DistanceSource interface {
	Init() error
	Acquire() (uint16, error)
}

// PresenceSource is implemented by sensor.Gas and sensor.Motion.
type PresenceSource interface {
	Init() error
	Read() (bool, error)
}

// ClimateAcquirer samples temperature and humidity.
type ClimateAcquirer struct{ Source ClimateSource }

func (ClimateAcquirer) Name() string  { return "climate" }
func (a ClimateAcquirer) Init() error { return a.Source.Init() }

func (a ClimateAcquirer) Sample(s *state.Store) (string, error) {
	c, err := a.Source.Acquire()
	if err != nil {
		s.InvalidateClimate()
		return "", err
	}
	s.SetClimate(c.Temperature, c.Humidity)
	return fmt.Sprintf("%dC %d%%", c.Temperature, c.Humidity), nil
}

// GasAcquirer samples the gas detector.
type GasAcquirer struct{ Source PresenceSource }

func (GasAcquirer) Name() string  { return "gas" }
func (a GasAcquirer) Init() error { return a.Source.Init() }

func (a GasAcquirer) Sample(s *state.Store) (string, error) {
	detected, err := a.Source.Read()
	if err != nil {
		s.InvalidateGas()
		return "", err
	}
	s.SetGas(detected)
	if detected {
		return "DETECTED", nil
	}
	return "clean", nil
}

// MotionAcquirer samples the PIR detector.
type MotionAcquirer struct{ Source PresenceSource }

func (MotionAcquirer) Name() string  { return "motion" }
func (a MotionAcquirer) Init() error { return a.Source.Init() }

func (a MotionAcquirer) Sample(s *state.Store) (string, error) {
	detected, err := a.Source.Read()
	if err != nil {
		s.InvalidateMotion()
		return "", err
	}
	s.SetMotion(detected)
	if detected {
		return "detected", nil
	}
	return "none", nil
}

// DistanceAcquirer samples the door rangefinder.
type DistanceAcquirer struct{ Source DistanceSource }

func (DistanceAcquirer) Name() string  { return "distance" }
func (a DistanceAcquirer) Init() error { return a.Source.Init() }

func (a DistanceAcquirer) Sample(s *state.Store) (string, error) {
	cm, err := a.Source.Acquire()
	if err != nil {
		s.InvalidateDistance()
		return "", err
	}
	s.SetDistance(cm)
	return fmt.Sprintf("%dcm", cm), nil
}

// LogSink receives free-form log lines; *mqtt.Client forwards them to
// event_logger.
type LogSink interface {
	SendLog(msg string)
}

// sensorLabels names each acquirer in the startup log line.
var sensorLabels = map[string]string{
	"climate":  "Temperature",
	"gas":      "Gas",
	"motion":   "Motion",
	"distance": "Ultrasonic",
}

// Sampler is the periodic loop owning one Acquirer.
type Sampler struct {
	Acquirer Acquirer
	Store    *state.Store
	Metrics  *metrics.Metrics

	// Events, if set, is told when the sampler starts.
	Events LogSink

	// Verbose logs every successful reading, not just failures and recoveries.
	Verbose bool
}

// Run initialises the sensor, then samples once per tick until ctx is done.
// An Init failure ends this sampler only and is returned; acquisition
// failures are recorded as invalid readings and never end the loop.
func (s *Sampler) Run(ctx context.Context, tick <-chan time.Time) error {
	name := s.Acquirer.Name()
	if err := s.Acquirer.Init(); err != nil {
		log.Printf("%s: init failed, sampler stopped: %v", name, err)
		return fmt.Errorf("%s: init: %w", name, err)
	}
	log.Printf("%s: sampler started", name)
	if s.Events != nil {
		label, ok := sensorLabels[name]
		if !ok {
			label = name
		}
		s.Events.SendLog(label + " sensor sampler started")
	}

	failing := false
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s: sampler stopped", name)
			return nil
		case <-tick:
			desc, err := s.Acquirer.Sample(s.Store)
			s.Metrics.Acquisition(name, err == nil)
			switch {
			case err != nil:
				log.Printf("%s: read failed: %v", name, err)
				failing = true
			case failing:
				log.Printf("%s: recovered: %s", name, desc)
				failing = false
			case s.Verbose:
				log.Printf("%s: %s", name, desc)
			}
		}
	}
}
