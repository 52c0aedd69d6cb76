// Package metrics exposes Prometheus metrics for repository operations, live
// subscriptions, cache health, sync jobs and the HTTP gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "projectsync"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Repository metrics
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	ActiveSubscriptions *prometheus.GaugeVec
	StreamEmissions     *prometheus.CounterVec
	CacheFailures       *prometheus.CounterVec

	// Sync metrics
	SyncJobRuns *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repository_operations_total",
				Help:      "Total number of repository operations",
			},
			[]string{"entity", "operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "repository_operation_duration_seconds",
				Help:      "Repository operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"entity", "operation"},
		),
		ActiveSubscriptions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_subscriptions",
				Help:      "Current number of open live subscriptions",
			},
			[]string{"entity"},
		),
		StreamEmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_emissions_total",
				Help:      "Total number of resources emitted on live subscriptions",
			},
			[]string{"entity", "state"},
		),
		CacheFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_failures_total",
				Help:      "Total number of swallowed local cache failures",
			},
			[]string{"entity", "operation"},
		),
		SyncJobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_job_runs_total",
				Help:      "Total number of scheduled sync job runs",
			},
			[]string{"job", "outcome"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
	}
}

// ObserveOperation records one repository operation.
func (m *Metrics) ObserveOperation(entity, operation string, err error, started time.Time) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.OperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(entity, operation).Observe(time.Since(started).Seconds())
}

// SubscriptionOpened increments the live subscription gauge and returns the
// matching decrement.
func (m *Metrics) SubscriptionOpened(entity string) func() {
	if m == nil {
		return func() {}
	}
	g := m.ActiveSubscriptions.WithLabelValues(entity)
	g.Inc()
	return g.Dec
}

// Emitted counts one stream emission.
func (m *Metrics) Emitted(entity, state string) {
	if m == nil {
		return
	}
	m.StreamEmissions.WithLabelValues(entity, state).Inc()
}

// CacheFailed counts one swallowed cache failure.
func (m *Metrics) CacheFailed(entity, operation string) {
	if m == nil {
		return
	}
	m.CacheFailures.WithLabelValues(entity, operation).Inc()
}

// SyncJobRan counts one scheduled job run.
func (m *Metrics) SyncJobRan(job string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.SyncJobRuns.WithLabelValues(job, outcome).Inc()
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
