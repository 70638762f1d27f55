package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, cache usage and allocation outcomes.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	allocationItems   *prometheus.CounterVec
	allocationRetries *prometheus.CounterVec
	rollbacks         prometheus.Counter
	outOfStockEvents  prometheus.Counter

	requestCount  uint64
	rollbackCount uint64
}

// MetricsSnapshot is a lightweight view of the counters for the status endpoint.
type MetricsSnapshot struct {
	RequestsTotal  uint64    `json:"requestsTotal"`
	RollbacksTotal uint64    `json:"rollbacksTotal"`
	Goroutines     int       `json:"goroutines"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// NewMetricsService registers the Prometheus collectors.
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
		Help:    "Latency for cache lookups",
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

	allocationItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_items_total",
		Help: "Allocation attempts per resource kind and outcome",
	}, []string{"kind", "outcome"})

	allocationRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_retries_total",
		Help: "Conditional write retries caused by concurrent stock changes",
	}, []string{"kind"})

	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_rollbacks_total",
		Help: "Allocated items whose partial writes were compensated",
	})

	outOfStockEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "out_of_stock_events_total",
		Help: "Display names that lost their last central batch",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		allocationItems, allocationRetries, rollbacks, outOfStockEvents, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		allocationItems:   allocationItems,
		allocationRetries: allocationRetries,
		rollbacks:         rollbacks,
		outOfStockEvents:  outOfStockEvents,
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
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// RecordAllocation counts one item outcome.
func (m *MetricsService) RecordAllocation(kind models.ResourceKind, outcome dto.AllocationStatus) {
	if m == nil {
		return
	}
	m.allocationItems.WithLabelValues(string(kind), string(outcome)).Inc()
}

// RecordRetry counts a conditional write that lost a race and was retried.
func (m *MetricsService) RecordRetry(kind models.ResourceKind) {
	if m == nil {
		return
	}
	m.allocationRetries.WithLabelValues(string(kind)).Inc()
}

// RecordRollback counts a compensated item.
func (m *MetricsService) RecordRollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
	atomic.AddUint64(&m.rollbackCount, 1)
}

// RecordOutOfStock counts a display name entering the out-of-stock registry.
func (m *MetricsService) RecordOutOfStock() {
	if m == nil {
		return
	}
	m.outOfStockEvents.Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		RequestsTotal:  atomic.LoadUint64(&m.requestCount),
		RollbacksTotal: atomic.LoadUint64(&m.rollbackCount),
		Goroutines:     runtime.NumGoroutine(),
		GeneratedAt:    time.Now().UTC(),
	}
}
