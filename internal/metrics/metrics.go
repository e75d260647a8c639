// Package metrics provides Prometheus metrics for binding calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes, used as the outcome label.
const (
	OutcomeOK       = "ok"
	OutcomeArgument = "argument_error"
	OutcomeFault    = "fault"
	OutcomeUnknown  = "unknown_entry"
)

// Metrics holds all Prometheus metrics for the binding.
type Metrics struct {
	// Call metrics
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec

	// Handle metrics
	LiveHandles    *prometheus.GaugeVec
	HandlesDropped *prometheus.CounterVec

	// Session metrics
	Sessions prometheus.Gauge
}

// New creates metrics registered with reg under namespace. A nil reg creates
// unregistered metrics, which is convenient in tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total entry-point calls by entry and outcome",
		}, []string{"entry", "outcome"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Entry-point call duration by entry",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"entry"}),

		LiveHandles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_handles",
			Help:      "Handles currently held by hosts, by kind",
		}, []string{"kind"}),
		HandlesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_dropped_total",
			Help:      "Handles released, by kind",
		}, []string{"kind"}),

		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Open host sessions",
		}),
	}
}

// RecordCall records one entry-point call.
func (m *Metrics) RecordCall(entry, outcome string, duration time.Duration) {
	m.CallsTotal.WithLabelValues(entry, outcome).Inc()
	m.CallDuration.WithLabelValues(entry).Observe(duration.Seconds())
}

// HandleInserted records a handle handed to a host.
func (m *Metrics) HandleInserted(kind string) {
	m.LiveHandles.WithLabelValues(kind).Inc()
}

// HandleDropped records a released handle.
func (m *Metrics) HandleDropped(kind string) {
	m.LiveHandles.WithLabelValues(kind).Dec()
	m.HandlesDropped.WithLabelValues(kind).Inc()
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened() {
	m.Sessions.Inc()
}

// SessionClosed records a closed session.
func (m *Metrics) SessionClosed() {
	m.Sessions.Dec()
}
