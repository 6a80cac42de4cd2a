package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and billing activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cyclesAccrued     prometheus.Counter
	accruedAmount     prometheus.Counter
	payments          prometheus.Counter
	paymentAmount     prometheus.Counter
	reconcileDuration prometheus.Histogram
	writeFailures     *prometheus.CounterVec
	staleWrites       prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cyclesAccrued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_cycles_accrued_total",
		Help: "Billing cycles charged across all students",
	})

	accruedAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_accrued_amount_total",
		Help: "Fee amount added to pending balances",
	})

	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_payments_total",
		Help: "Payments recorded",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_payment_amount_total",
		Help: "Amount received through recorded payments",
	})

	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_reconcile_duration_seconds",
		Help:    "Time spent reconciling an owner's ledger, load and dispatch included",
		Buckets: prometheus.DefBuckets,
	})

	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_write_failures_total",
		Help: "Billing instructions that could not be persisted",
	}, []string{"kind"})

	staleWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_stale_accruals_total",
		Help: "Accrual instructions skipped because the stored checkpoint had moved",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		cyclesAccrued, accruedAmount, payments, paymentAmount, reconcileDuration, writeFailures, staleWrites, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		cyclesAccrued:     cyclesAccrued,
		accruedAmount:     accruedAmount,
		payments:          payments,
		paymentAmount:     paymentAmount,
		reconcileDuration: reconcileDuration,
		writeFailures:     writeFailures,
		staleWrites:       staleWrites,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveReconcile records one ledger reconciliation.
func (m *MetricsService) ObserveReconcile(cycles int, accrued decimal.Decimal, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
	if cycles > 0 {
		m.cyclesAccrued.Add(float64(cycles))
		m.accruedAmount.Add(accrued.InexactFloat64())
	}
}

// RecordPayment counts a persisted payment.
func (m *MetricsService) RecordPayment(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.Inc()
	m.paymentAmount.Add(amount.InexactFloat64())
}

// RecordWriteFailure counts a billing instruction that was given up on.
func (m *MetricsService) RecordWriteFailure(kind string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(kind).Inc()
}

// RecordStaleAccrual counts an accrual skipped by the storage guard.
func (m *MetricsService) RecordStaleAccrual() {
	if m == nil {
		return
	}
	m.staleWrites.Inc()
}
