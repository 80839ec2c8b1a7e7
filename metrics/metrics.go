package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EventsRecordedTotal *prometheus.CounterVec
	EventFailuresTotal  *prometheus.CounterVec

	AsyncTasksDropped *prometheus.CounterVec
	AsyncTasksFailed  *prometheus.CounterVec

	ContactSubmissionsTotal prometheus.Counter
	EmailsTotal             *prometheus.CounterVec

	RateLimitedTotal prometheus.Counter
}

// New creates the collectors and registers them on registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		EventsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_analytics_events_recorded_total",
				Help: "Analytics events persisted",
			},
			[]string{"type"},
		),
		EventFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_analytics_event_failures_total",
				Help: "Analytics events that failed validation or persistence",
			},
			[]string{"type", "reason"},
		),
		AsyncTasksDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_async_tasks_dropped_total",
				Help: "Background tasks dropped because the queue was full or closed",
			},
			[]string{"task"},
		),
		AsyncTasksFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_async_tasks_failed_total",
				Help: "Background tasks that returned an error or panicked",
			},
			[]string{"task"},
		),
		ContactSubmissionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portfolio_contact_submissions_total",
				Help: "Contact submissions persisted",
			},
		),
		EmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_emails_total",
				Help: "Emails attempted by kind and result",
			},
			[]string{"kind", "result"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portfolio_rate_limited_requests_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsRecordedTotal,
		m.EventFailuresTotal,
		m.AsyncTasksDropped,
		m.AsyncTasksFailed,
		m.ContactSubmissionsTotal,
		m.EmailsTotal,
		m.RateLimitedTotal,
	)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewNop returns collectors registered on a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
