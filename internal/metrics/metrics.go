// Package metrics exposes the analyzer's Prometheus collectors.
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "home_safety"

// Acquisition results.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type Metrics struct {
	acquisitions *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	pulses       *prometheus.CounterVec
	messages     *prometheus.CounterVec
	alertLevel   prometheus.Gauge
	sequence     prometheus.Gauge
	cycle        prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Sensor acquisition attempts by sensor and result.",
		}, []string{"sensor", "result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by kind and severity.",
		}, []string{"kind", "severity"}),
		pulses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pulses_total",
			Help:      "Actuator pulses emitted by pattern code.",
		}, []string{"code"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Outbound messages by target and result.",
		}, []string{"target", "result"}),
		alertLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_level",
			Help:      "Alert level of the last aggregation cycle (0 info, 1 warning, 2 critical).",
		}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence",
			Help:      "Sequence number of the last aggregated reading.",
		}),
		cycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_cycle_seconds",
			Help:      "Time spent evaluating and emitting one aggregation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(m.acquisitions, m.alerts, m.pulses, m.messages, m.alertLevel, m.sequence, m.cycle)
	return m
}

// Acquisition counts one sampling attempt for sensor.
func (m *Metrics) Acquisition(sensor string, ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.acquisitions.WithLabelValues(sensor, result).Inc()
}

func (m *Metrics) Alert(kind, severity string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind, severity).Inc()
}

func (m *Metrics) Pulse(code string) {
	if m == nil {
		return
	}
	m.pulses.WithLabelValues(code).Inc()
}

// Message counts one outbound send. result is ResultOK, ResultFailed or
// ResultSkipped (target absent).
func (m *Metrics) Message(target, result string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(target, result).Inc()
}

// Cycle records the outcome of one aggregation cycle.
func (m *Metrics) Cycle(level int, sequence uint32, seconds float64) {
	if m == nil {
		return
	}
	m.alertLevel.Set(float64(level))
	m.sequence.Set(float64(sequence))
	m.cycle.Observe(seconds)
}
