package utils

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	// Number of samples seen per operation
	operationCounts map[string]uint64

	systemStartTime time.Time

	registry        *prometheus.Registry
	requests        prometheus.Counter
	errors          prometheus.Counter
	operationTimes  *prometheus.HistogramVec
	operationErrors *prometheus.CounterVec
	compensations   *prometheus.CounterVec
}

// MetricsSnapshot is a point-in-time copy used by the health endpoint.
type MetricsSnapshot struct {
	Requests   uint64            `json:"requests"`
	Errors     uint64            `json:"errors"`
	Operations map[string]uint64 `json:"operations"`
	Uptime     string            `json:"uptime"`
}

func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	mc := &MetricsCollector{
		operationCounts: make(map[string]uint64),
		systemStartTime: time.Now(),
		registry:        registry,
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fritter_requests_total",
			Help: "Total API requests handled",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fritter_errors_total",
			Help: "Total API requests that ended in an error",
		}),
		operationTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fritter_operation_duration_seconds",
			Help:    "Reputation operation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fritter_operation_errors_total",
			Help: "Reputation operation failures by error code",
		}, []string{"operation", "code"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fritter_compensations_total",
			Help: "Compensating writes issued after a partial failure, by result",
		}, []string{"operation", "result"}),
	}
	registry.MustRegister(
		mc.requests,
		mc.errors,
		mc.operationTimes,
		mc.operationErrors,
		mc.compensations,
		prometheus.NewGoCollector(),
	)
	return mc
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
	mc.requests.Inc()
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
	mc.errors.Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	mc.operationCounts[operationName]++
	mc.mu.Unlock()

	mc.operationTimes.WithLabelValues(operationName).Observe(duration.Seconds())
}

// RecordOperationError counts a failed operation under its error code.
func (mc *MetricsCollector) RecordOperationError(operationName string, err error) {
	code := ErrDatabase
	if appErr := AsAppError(err); appErr != nil {
		code = appErr.Code
	}
	mc.operationErrors.WithLabelValues(operationName, code).Inc()
}

// RecordCompensation counts a compensating write and whether it succeeded.
func (mc *MetricsCollector) RecordCompensation(operationName string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	mc.compensations.WithLabelValues(operationName, result).Inc()
}

// Snapshot returns the in-process counters.
func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	ops := make(map[string]uint64, len(mc.operationCounts))
	for k, v := range mc.operationCounts {
		ops[k] = v
	}
	return MetricsSnapshot{
		Requests:   mc.requestCount,
		Errors:     mc.errorCount,
		Operations: ops,
		Uptime:     time.Since(mc.systemStartTime).Round(time.Second).String(),
	}
}

// Handler serves the Prometheus exposition format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
