// Package telemetry exposes Prometheus collectors for the catscii service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamFetchesTotal       *prometheus.CounterVec
	upstreamFetchSeconds       prometheus.Histogram
	cacheEventsTotal           *prometheus.CounterVec
	renderSeconds              prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		upstreamFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catscii_upstream_fetches_total",
				Help: "Total number of upstream image fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upstreamFetchSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catscii_upstream_fetch_duration_seconds",
				Help:    "Histogram of upstream fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catscii_cache_events_total",
				Help: "Total number of cache slot events, labeled by event.",
			},
			[]string{"event"},
		)

		renderSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catscii_render_duration_seconds",
				Help:    "Histogram of decode+render pipeline latencies.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records an upstream fetch attempt and its latency.
func ObserveFetch(outcome string, duration time.Duration) {
	upstreamFetchesTotal.WithLabelValues(outcome).Inc()
	upstreamFetchSeconds.Observe(duration.Seconds())
}

// ObserveCacheEvent increments the cache event counter.
// Known events: "hit", "miss", "stale_served", "refresh_failed".
func ObserveCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// ObserveRender records the duration of one decode+render pass.
func ObserveRender(duration time.Duration) {
	renderSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
