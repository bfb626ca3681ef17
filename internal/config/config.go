// Package config loads the YAML configuration shared by every subcommand.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/home-safety-sensor/internal/actuator"
	"github.com/sweeney/home-safety-sensor/internal/dashboard"
	"github.com/sweeney/home-safety-sensor/internal/eventlog"
	"github.com/sweeney/home-safety-sensor/internal/gpio"
	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/mqtt"
)

type Config struct {
	GPIO       GPIOConfig       `yaml:"gpio"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Timing     TimingConfig     `yaml:"timing"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	HTTP       HTTPConfig       `yaml:"http"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	EventLog   EventLogConfig   `yaml:"eventlog"`
	Actuator   ActuatorConfig   `yaml:"actuator"`

	// Verbose logs every successful acquisition.
	Verbose bool `yaml:"verbose"`
}

type GPIOConfig struct {
	Chip    string `yaml:"chip"`
	DHT     int    `yaml:"dht"`
	Gas     int    `yaml:"gas"`
	Motion  int    `yaml:"motion"`
	Trigger int    `yaml:"trigger"`
	Echo    int    `yaml:"echo"`
	LED     int    `yaml:"led"`
}

type ThresholdsConfig struct {
	TempHigh            int  `yaml:"temp_high"`
	TempLow             int  `yaml:"temp_low"`
	HumidityHigh        int  `yaml:"humidity_high"`
	HumidityLow         int  `yaml:"humidity_low"`
	DoorClosedCM        int  `yaml:"door_closed_cm"`
	MotionEdgeTriggered bool `yaml:"motion_edge_triggered"`
}

// Logic converts to the evaluator's threshold type.
func (t ThresholdsConfig) Logic() logic.Thresholds {
	return logic.Thresholds{
		TempHigh:            t.TempHigh,
		TempLow:             t.TempLow,
		HumidityHigh:        t.HumidityHigh,
		HumidityLow:         t.HumidityLow,
		DoorClosedCM:        t.DoorClosedCM,
		MotionEdgeTriggered: t.MotionEdgeTriggered,
	}
}

type TimingConfig struct {
	SampleInterval    time.Duration `yaml:"sample_interval"`
	AggregateInterval time.Duration `yaml:"aggregate_interval"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`

	// PresenceWait is how long startup discovery listens for service
	// status messages.
	PresenceWait time.Duration `yaml:"presence_wait"`

	// EmbeddedBroker, if set, starts an in-process broker on this address
	// and replaces Broker.
	EmbeddedBroker string `yaml:"embedded_broker"`
}

// Topics returns the topic layout for the configured prefix.
func (m MQTTConfig) Topics() mqtt.Topics {
	return mqtt.Topics{Prefix: m.TopicPrefix}
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DashboardConfig struct {
	Path    string `yaml:"path"`
	Console bool   `yaml:"console"`
	Color   bool   `yaml:"color"`
}

type EventLogConfig struct {
	Path   string `yaml:"path"`
	Recent int    `yaml:"recent"`
}

type ActuatorConfig struct {
	Motion      time.Duration `yaml:"motion"`
	Gas         time.Duration `yaml:"gas"`
	Temperature time.Duration `yaml:"temperature"`
	Door        time.Duration `yaml:"door"`
	Queue       int           `yaml:"queue"`
}

// Durations converts to the actuator's pulse table.
func (a ActuatorConfig) Durations() actuator.Durations {
	return actuator.Durations{
		Motion:      a.Motion,
		Gas:         a.Gas,
		Temperature: a.Temperature,
		Door:        a.Door,
	}
}

// Default returns the stock configuration.
func Default() *Config {
	t := logic.DefaultThresholds()
	d := actuator.DefaultDurations()
	return &Config{
		GPIO: GPIOConfig{
			Chip:    "gpiochip0",
			DHT:     gpio.DefaultPinDHT,
			Gas:     gpio.DefaultPinGas,
			Motion:  gpio.DefaultPinMotion,
			Trigger: gpio.DefaultPinTrigger,
			Echo:    gpio.DefaultPinEcho,
			LED:     gpio.DefaultPinLED,
		},
		Thresholds: ThresholdsConfig{
			TempHigh:     t.TempHigh,
			TempLow:      t.TempLow,
			HumidityHigh: t.HumidityHigh,
			HumidityLow:  t.HumidityLow,
			DoorClosedCM: t.DoorClosedCM,
		},
		Timing: TimingConfig{
			SampleInterval:    time.Second,
			AggregateInterval: 2 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:       "tcp://localhost:1883",
			TopicPrefix:  mqtt.DefaultPrefix,
			ClientID:     "home-safety",
			PresenceWait: 2 * time.Second,
		},
		HTTP:      HTTPConfig{Addr: ":80"},
		Dashboard: DashboardConfig{Path: dashboard.DefaultPath, Console: true},
		EventLog:  EventLogConfig{Path: eventlog.DefaultPath, Recent: eventlog.DefaultRecent},
		Actuator: ActuatorConfig{
			Motion:      d.Motion,
			Gas:         d.Gas,
			Temperature: d.Temperature,
			Door:        d.Door,
			Queue:       actuator.DefaultQueue,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills settings explicitly set to empty values.
func (c *Config) applyDefaults() {
	def := Default()
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.EmbeddedBroker != "" {
		c.MQTT.Broker = "tcp://" + loopback(c.MQTT.EmbeddedBroker)
	}
	if c.Dashboard.Path == "" {
		c.Dashboard.Path = def.Dashboard.Path
	}
	if c.EventLog.Path == "" {
		c.EventLog.Path = def.EventLog.Path
	}
	if c.EventLog.Recent == 0 {
		c.EventLog.Recent = def.EventLog.Recent
	}
	if c.Actuator.Queue == 0 {
		c.Actuator.Queue = def.Actuator.Queue
	}
}

// loopback turns a listen address such as ":1883" into a dialable one.
func loopback(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	t := c.Thresholds
	if t.TempLow >= t.TempHigh {
		errs = append(errs, fmt.Errorf("thresholds: temp_low (%d) must be below temp_high (%d)", t.TempLow, t.TempHigh))
	}
	if t.HumidityLow >= t.HumidityHigh {
		errs = append(errs, fmt.Errorf("thresholds: humidity_low (%d) must be below humidity_high (%d)", t.HumidityLow, t.HumidityHigh))
	}
	if t.DoorClosedCM <= 0 {
		errs = append(errs, fmt.Errorf("thresholds: door_closed_cm must be positive"))
	}

	if c.Timing.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("timing: sample_interval must be positive"))
	}
	if c.Timing.AggregateInterval <= 0 {
		errs = append(errs, fmt.Errorf("timing: aggregate_interval must be positive"))
	}
	if c.MQTT.PresenceWait < 0 {
		errs = append(errs, fmt.Errorf("mqtt: presence_wait must not be negative"))
	}

	pins := map[string]int{
		"dht":     c.GPIO.DHT,
		"gas":     c.GPIO.Gas,
		"motion":  c.GPIO.Motion,
		"trigger": c.GPIO.Trigger,
		"echo":    c.GPIO.Echo,
		"led":     c.GPIO.LED,
	}
	owner := make(map[int]string, len(pins))
	for _, name := range []string{"dht", "gas", "motion", "trigger", "echo", "led"} {
		off := pins[name]
		if off < 0 {
			errs = append(errs, fmt.Errorf("gpio: %s offset %d is negative", name, off))
			continue
		}
		if other, dup := owner[off]; dup {
			errs = append(errs, fmt.Errorf("gpio: %s and %s share offset %d", other, name, off))
			continue
		}
		owner[off] = name
	}

	a := c.Actuator
	if a.Motion <= 0 || a.Gas <= 0 || a.Temperature <= 0 || a.Door <= 0 {
		errs = append(errs, fmt.Errorf("actuator: pulse durations must be positive"))
	}
	if c.EventLog.Recent < 0 {
		errs = append(errs, fmt.Errorf("eventlog: recent must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
