// Package metrics provides Prometheus metrics for the MCP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all server metrics on a private registry.
type Metrics struct {
	toolCalls        *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a metrics instance.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fds",
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool invocations",
			},
			[]string{"tool", "outcome"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fds",
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream API requests",
			},
			[]string{"status"},
		),
		upstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "fds",
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream request duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.toolCalls, m.upstreamRequests, m.upstreamDuration)

	return m
}

// RecordToolCall records one tool invocation and its outcome
// (ok, empty or error).
func (m *Metrics) RecordToolCall(tool, outcome string) {
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveRequest records one upstream request. It implements
// upstream.Observer.
func (m *Metrics) ObserveRequest(status string, duration time.Duration) {
	m.upstreamRequests.WithLabelValues(status).Inc()
	m.upstreamDuration.Observe(duration.Seconds())
}

// RegisterCacheStats exposes cache counters sampled from stats. Hits and
// misses are monotonic in the cache, so counter semantics hold.
func (m *Metrics) RegisterCacheStats(stats func() (hits, misses uint64, entries int)) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "fds",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}, func() float64 {
			hits, _, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "fds",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}, func() float64 {
			_, misses, _ := stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "fds",
			Name:      "cache_entries",
			Help:      "Number of entries currently in the cache",
		}, func() float64 {
			_, _, entries := stats()
			return float64(entries)
		}),
	)
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
