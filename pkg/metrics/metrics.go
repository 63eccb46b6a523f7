// Package metrics defines the Prometheus collectors used by the word-cloud
// generator and server, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	YouTubeRequestsTotal *prometheus.CounterVec
	YouTubeLatency       *prometheus.HistogramVec
	TitlesFetchedTotal   *prometheus.CounterVec
	TokensCountedTotal   prometheus.Counter
	SpamTitlesTotal      prometheus.Counter
	GenerationsTotal     *prometheus.CounterVec
	GenerationDuration   prometheus.Histogram
	RankedEntries        prometheus.Gauge
	LastGeneration       prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry(); binaries pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
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
		YouTubeRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "youtube_requests_total",
				Help: "YouTube searches by source (api, scrape) and outcome (ok, error).",
			},
			[]string{"source", "outcome"},
		),
		YouTubeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "youtube_request_duration_seconds",
				Help:    "Latency of one keyword search, pagination included.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		TitlesFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordcloud_titles_fetched_total",
				Help: "Video titles fetched per seed keyword.",
			},
			[]string{"keyword"},
		),
		TokensCountedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordcloud_tokens_counted_total",
				Help: "Tokens added to frequency tables.",
			},
		),
		SpamTitlesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordcloud_spam_titles_total",
				Help: "Titles rejected because they contain a spam marker.",
			},
		),
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordcloud_generations_total",
				Help: "Cloud generations by outcome (cloud, fallback, error).",
			},
			[]string{"outcome"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordcloud_generation_duration_seconds",
				Help:    "Wall time of one full generation.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		RankedEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordcloud_ranked_entries",
				Help: "Number of keywords in the latest cloud.",
			},
		),
		LastGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordcloud_last_generation_timestamp_seconds",
				Help: "Unix time of the latest successful generation.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "youtube_cache_hits_total",
				Help: "Total number of title cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "youtube_cache_misses_total",
				Help: "Total number of title cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.YouTubeRequestsTotal,
		m.YouTubeLatency,
		m.TitlesFetchedTotal,
		m.TokensCountedTotal,
		m.SpamTitlesTotal,
		m.GenerationsTotal,
		m.GenerationDuration,
		m.RankedEntries,
		m.LastGeneration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
