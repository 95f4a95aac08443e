// Package metrics defines the Prometheus collectors of the ranking service
// and the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	RankingRequestsTotal *prometheus.CounterVec
	RankingLatency       *prometheus.HistogramVec
	RankingResultsCount  *prometheus.HistogramVec

	CacheRequestsTotal      *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec
	CircuitBreakerState     *prometheus.GaugeVec

	RateLimitedTotal prometheus.Counter
	EventsTotal      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "HTTP requests currently being served.",
			},
		),
		RankingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranking_requests_total",
				Help: "Ranking requests by type and outcome (ok, invalid, error).",
			},
			[]string{"type", "outcome"},
		),
		RankingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ranking_latency_seconds",
				Help:    "Time to produce a ranking page, by type and cache status.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"type", "cache_status"},
		),
		RankingResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ranking_results_count",
				Help:    "Places returned per ranking page.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"type"},
		),
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranking_cache_requests_total",
				Help: "Response cache lookups by result (hit, miss, bypass).",
			},
			[]string{"result"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranking_cache_invalidations_total",
				Help: "Response cache invalidations by trigger (sync_event, manual).",
			},
			[]string{"trigger"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_total",
				Help: "Kafka events by topic and status (published, consumed, dropped, failed).",
			},
			[]string{"topic", "status"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RankingRequestsTotal,
		m.RankingLatency,
		m.RankingResultsCount,
		m.CacheRequestsTotal,
		m.CacheInvalidationsTotal,
		m.CircuitBreakerState,
		m.RateLimitedTotal,
		m.EventsTotal,
	)
	return m
}

// Handler serves the registry m was created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
