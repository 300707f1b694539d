package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the points
// engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	grantsTotal        *prometheus.CounterVec
	pointsAwarded      *prometheus.CounterVec
	purchasesTotal     prometheus.Counter
	levelUpsTotal      prometheus.Counter
	recomputeFailures  prometheus.Counter
	suppressedAwards   prometheus.Counter
	duplicateGrants    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	grantsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "point_grants_total",
		Help: "Total ledger entries appended, by category",
	}, []string{"category"})

	pointsAwarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "points_awarded_total",
		Help: "Sum of positive point deltas appended, by category",
	}, []string{"category"})

	purchasesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_purchases_total",
		Help: "Total successful catalog item purchases",
	})

	levelUpsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "level_ups_total",
		Help: "Total level increases observed by recompute",
	})

	recomputeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recompute_failures_total",
		Help: "Recompute invocations that degraded to incremental updates",
	})

	suppressedAwards := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suppressed_awards_total",
		Help: "Challenge completions recorded with the award suppressed by a repeat limit",
	})

	duplicateGrants := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_grants_total",
		Help: "External grants absorbed as already recorded",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		grantsTotal, pointsAwarded, purchasesTotal, levelUpsTotal, recomputeFailures, suppressedAwards, duplicateGrants, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		grantsTotal:       grantsTotal,
		pointsAwarded:     pointsAwarded,
		purchasesTotal:    purchasesTotal,
		levelUpsTotal:     levelUpsTotal,
		recomputeFailures: recomputeFailures,
		suppressedAwards:  suppressedAwards,
		duplicateGrants:   duplicateGrants,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGrant records one appended ledger entry.
func (m *MetricsService) ObserveGrant(category string, points int) {
	if m == nil {
		return
	}
	m.grantsTotal.WithLabelValues(category).Inc()
	if points > 0 {
		m.pointsAwarded.WithLabelValues(category).Add(float64(points))
	}
}

// RecordPurchase counts a successful catalog purchase.
func (m *MetricsService) RecordPurchase() {
	if m == nil {
		return
	}
	m.purchasesTotal.Inc()
}

// RecordLevelUp counts a level increase.
func (m *MetricsService) RecordLevelUp() {
	if m == nil {
		return
	}
	m.levelUpsTotal.Inc()
}

// RecordRecomputeFailure counts a degraded recompute.
func (m *MetricsService) RecordRecomputeFailure() {
	if m == nil {
		return
	}
	m.recomputeFailures.Inc()
}

// RecordSuppressedAward counts a repeat-limited completion.
func (m *MetricsService) RecordSuppressedAward() {
	if m == nil {
		return
	}
	m.suppressedAwards.Inc()
}

// RecordDuplicateGrant counts an absorbed idempotent retry.
func (m *MetricsService) RecordDuplicateGrant() {
	if m == nil {
		return
	}
	m.duplicateGrants.Inc()
}
