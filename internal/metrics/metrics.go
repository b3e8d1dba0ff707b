// Package metrics exposes Prometheus instrumentation for the insights pipeline.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/naka-gawa/github-insights/internal/gateway"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Cache metrics
	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec
	FetchFailuresTotal *prometheus.CounterVec

	// Upstream metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	InsightsBuildDuration prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_insights_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"resource"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_insights_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"resource"},
		),
		FetchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_insights_fetch_failures_total",
				Help: "Total number of upstream fetches that failed after a cache miss",
			},
			[]string{"resource", "kind"},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_insights_upstream_requests_total",
				Help: "Total number of HTTP requests sent upstream",
			},
			[]string{"code", "method"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "github_insights_upstream_request_duration_seconds",
				Help:    "Upstream HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		InsightsBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "github_insights_build_duration_seconds",
				Help:    "Time taken to assemble an insights snapshot",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}

	registerer.MustRegister(
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.FetchFailuresTotal,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.InsightsBuildDuration,
	)
	return m
}

// Hit records a cache hit for key.
func (m *Metrics) Hit(key string) {
	m.CacheHitsTotal.WithLabelValues(Resource(key)).Inc()
}

// Miss records a cache miss for key.
func (m *Metrics) Miss(key string) {
	m.CacheMissesTotal.WithLabelValues(Resource(key)).Inc()
}

// Failure records a failed upstream fetch for key.
func (m *Metrics) Failure(key string, err error) {
	kind := gateway.KindOf(err)
	if kind == "" {
		kind = gateway.KindOther
	}
	m.FetchFailuresTotal.WithLabelValues(Resource(key), kind).Inc()
}

// ObserveBuild records how long an insights snapshot took.
func (m *Metrics) ObserveBuild(d time.Duration) {
	m.InsightsBuildDuration.Observe(d.Seconds())
}

// InstrumentRoundTripper wraps next so every upstream request is counted and timed.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.UpstreamRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(m.UpstreamRequestDuration, next),
	)
}

// Resource is the part of a cache key before the first colon, e.g. "repos"
// for "repos:octocat:1". It keeps label cardinality independent of users.
func Resource(key string) string {
	resource, _, _ := strings.Cut(key, ":")
	if resource == "" {
		return "unknown"
	}
	return resource
}
