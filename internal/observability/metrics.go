package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	authEventsTotal     *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec
	activityDropped     prometheus.Counter
	activityPersisted   *prometheus.CounterVec
	loginGuardFailOpens prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gema_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		authEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_auth_events_total",
			Help: "Authentication outcomes by event and result.",
		}, []string{"event", "result"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by policy.",
		}, []string{"policy"})

		activityDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gema_activity_dropped_total",
			Help: "Activity entries dropped because the dispatch queue was full.",
		})

		activityPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_activity_persisted_total",
			Help: "Activity entries written by the dispatcher, by result.",
		}, []string{"result"})

		loginGuardFailOpens = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gema_login_guard_fail_open_total",
			Help: "Brute-force checks that failed open because the store was unreachable.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			authEventsTotal,
			rateLimitedTotal,
			activityDropped,
			activityPersisted,
			loginGuardFailOpens,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthEvents counts login, refresh and logout outcomes.
func AuthEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return authEventsTotal
}

// RateLimited counts 429 responses per policy.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}

// ActivityDropped counts entries lost to a full queue.
func ActivityDropped() prometheus.Counter {
	RegisterMetrics()
	return activityDropped
}

// ActivityPersisted counts dispatcher writes by result.
func ActivityPersisted() *prometheus.CounterVec {
	RegisterMetrics()
	return activityPersisted
}

// LoginGuardFailOpens counts guard checks answered without the store.
func LoginGuardFailOpens() prometheus.Counter {
	RegisterMetrics()
	return loginGuardFailOpens
}
