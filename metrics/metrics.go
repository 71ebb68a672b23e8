// Package metrics exposes Prometheus instrumentation for the forecast
// service: per-algorithm run counters and latencies plus HTTP request
// metrics, all registered on a private registry served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	algorithmRuns     *prometheus.CounterVec
	algorithmDuration *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	cacheEvents       *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		algorithmRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_algorithm_runs_total",
			Help: "Algorithm invocations by identifier and outcome status.",
		}, []string{"algorithm", "status"}),
		algorithmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_algorithm_duration_seconds",
			Help:    "Wall-clock time spent per algorithm invocation.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"algorithm"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_cache_events_total",
			Help: "Forecast cache hits and misses.",
		}, []string{"event"}),
	}
}

// ObserveAlgorithm records one algorithm invocation. Implements the
// forecast engine's recorder contract.
func (c *Collector) ObserveAlgorithm(id string, status string, duration time.Duration) {
	c.algorithmRuns.WithLabelValues(id, status).Inc()
	c.algorithmDuration.WithLabelValues(id).Observe(duration.Seconds())
}

// ObserveRequest records one handled HTTP request.
func (c *Collector) ObserveRequest(method, route string, code int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveCache records a forecast cache hit or miss.
func (c *Collector) ObserveCache(hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	c.cacheEvents.WithLabelValues(event).Inc()
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
