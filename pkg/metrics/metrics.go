// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QuestionsTotal       *prometheus.CounterVec
	RetrievalLatency     *prometheus.HistogramVec
	EvidenceCount        prometheus.Histogram
	IndexBuildsTotal     *prometheus.CounterVec
	IndexBuildDuration   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	AlignmentMatches     prometheus.Histogram
	LLMLatency           *prometheus.HistogramVec
	LLMCircuitState      prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
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
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questions_total",
				Help: "Total questions answered by route (paper_only, code_only, hybrid, fallback).",
			},
			[]string{"route"},
		),
		RetrievalLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_latency_seconds",
				Help:    "Evidence retrieval latency in seconds by route.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"route"},
		),
		EvidenceCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "evidence_items_per_question",
				Help:    "Number of curated evidence items per question.",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
			},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index build operations by kind and status.",
			},
			[]string{"kind", "status"},
		),
		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Index build duration in seconds by kind.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "answer_cache_hits_total",
				Help: "Total number of answer cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "answer_cache_misses_total",
				Help: "Total number of answer cache misses.",
			},
		),
		AlignmentMatches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alignment_matches_per_paragraph",
				Help:    "Number of code matches found per aligned paragraph.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		LLMLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "LLM request latency in seconds by outcome.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		LLMCircuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "llm_circuit_breaker_state",
				Help: "LLM circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QuestionsTotal,
		m.RetrievalLatency,
		m.EvidenceCount,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AlignmentMatches,
		m.LLMLatency,
		m.LLMCircuitState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
