package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Alerting metrics
	AlertsTotal           *prometheus.CounterVec
	AlertsSuppressedTotal *prometheus.CounterVec
	TransportFailures     *prometheus.CounterVec

	// Retry metrics
	RetryAttempts    *prometheus.CounterVec
	RetriesExhausted *prometheus.CounterVec

	// Background task metrics
	BackgroundPanics *prometheus.CounterVec

	registry *prometheus.Registry
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "opskit",
		Subsystem: "",
		Enabled:   true,
	}
}

// NewMetrics creates and registers all Prometheus metrics on a private registry
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "alerts_sent_total",
				Help:      "Total number of alerts delivered to the transport",
			},
			[]string{"project", "level"},
		),
		AlertsSuppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "alerts_suppressed_total",
				Help:      "Total number of duplicate error alerts suppressed by the dedup window",
			},
			[]string{"project"},
		),
		TransportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "transport_failures_total",
				Help:      "Total number of failed transport deliveries",
			},
			[]string{"project"},
		),
		RetryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "retry_attempts_total",
				Help:      "Total number of failed retry attempts by outcome",
			},
			[]string{"name", "outcome"},
		),
		RetriesExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "retries_exhausted_total",
				Help:      "Total number of operations that failed after all retry attempts",
			},
			[]string{"name"},
		),
		BackgroundPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "background_panics_total",
				Help:      "Total number of panics recovered in background tasks",
			},
			[]string{"task"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.AlertsTotal,
		m.AlertsSuppressedTotal,
		m.TransportFailures,
		m.RetryAttempts,
		m.RetriesExhausted,
		m.BackgroundPanics,
	)

	return m
}

// RecordAlert records a delivered alert
func (m *Metrics) RecordAlert(project, level string) {
	if m.AlertsTotal != nil {
		m.AlertsTotal.WithLabelValues(project, level).Inc()
	}
}

// RecordSuppressed records a deduplicated alert
func (m *Metrics) RecordSuppressed(project string) {
	if m.AlertsSuppressedTotal != nil {
		m.AlertsSuppressedTotal.WithLabelValues(project).Inc()
	}
}

// RecordTransportFailure records a failed transport delivery
func (m *Metrics) RecordTransportFailure(project string) {
	if m.TransportFailures != nil {
		m.TransportFailures.WithLabelValues(project).Inc()
	}
}

// RecordRetryAttempt records a failed retry attempt; outcome is "failure" or "timeout"
func (m *Metrics) RecordRetryAttempt(name, outcome string) {
	if m.RetryAttempts != nil {
		m.RetryAttempts.WithLabelValues(name, outcome).Inc()
	}
}

// RecordRetriesExhausted records an operation that exhausted its attempt budget
func (m *Metrics) RecordRetriesExhausted(name string) {
	if m.RetriesExhausted != nil {
		m.RetriesExhausted.WithLabelValues(name).Inc()
	}
}

// RecordBackgroundPanic records a recovered panic in a background task
func (m *Metrics) RecordBackgroundPanic(task string) {
	if m.BackgroundPanics != nil {
		m.BackgroundPanics.WithLabelValues(task).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Global metrics instance
var globalMetrics = NewMetrics(nil)

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// SetGlobalMetrics sets the global metrics instance
func SetGlobalMetrics(m *Metrics) {
	globalMetrics = m
}
