// Package middleware provides metrics for HTTP middleware components.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRateLimitRequests     = "rate_limit_requests_total"
	MetricRateLimitBlocked      = "rate_limit_blocked_total"
	MetricRateLimitRedisErrors  = "rate_limit_redis_errors_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPRequestSizeBytes  = "http_request_size_bytes"
	MetricHTTPResponseSizeBytes = "http_response_size_bytes"
	MetricCanaryActive          = "canary_active"
	MetricCanaryRequests        = "canary_requests_total"
	MetricCanaryDuration        = "canary_request_duration_seconds"
)

var (
	latencyBuckets = []float64{0.01, 0.1, 0.5, 1.0, 2.0}
	sizeBuckets    = prometheus.ExponentialBuckets(100, 10, 8) // 100 B to ~100 MB

	httpLabels      = []string{"method", "path", "status"}
	rateLimitLabels = []string{"endpoint", "key_type"}
)

// Metrics contains Prometheus metrics for middleware operations.
// All operations are thread-safe.
type Metrics struct {
	rateLimitRequests    *prometheus.CounterVec
	rateLimitBlocked     *prometheus.CounterVec
	rateLimitRedisErrors prometheus.Counter
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestSize      *prometheus.HistogramVec
	httpResponseSize     *prometheus.HistogramVec
	canaryActive         prometheus.Gauge
	canaryRequests       *prometheus.CounterVec
	canaryDuration       *prometheus.HistogramVec
}

// NewMetrics initializes every collector. Nothing is registered until
// Register is called with a registry.
func NewMetrics() *Metrics {
	counterVec := func(name, help string, labels []string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	}
	histogramVec := func(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
	}

	return &Metrics{
		rateLimitRequests: counterVec(MetricRateLimitRequests,
			"Total number of rate limit checks by endpoint", rateLimitLabels),
		rateLimitBlocked: counterVec(MetricRateLimitBlocked,
			"Total number of rate limit violations (blocked requests) by endpoint", rateLimitLabels),
		rateLimitRedisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitRedisErrors,
			Help: "Total number of Redis errors during rate limiting (fail-open events)",
		}),
		httpRequestDuration: histogramVec(MetricHTTPRequestDuration,
			"HTTP request duration in seconds", latencyBuckets, httpLabels),
		httpRequestsTotal: counterVec(MetricHTTPRequestsTotal,
			"Total number of HTTP requests", httpLabels),
		httpRequestSize: histogramVec(MetricHTTPRequestSizeBytes,
			"HTTP request size in bytes", sizeBuckets, httpLabels),
		httpResponseSize: histogramVec(MetricHTTPResponseSizeBytes,
			"HTTP response size in bytes", sizeBuckets, httpLabels),
		canaryActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCanaryActive,
			Help: "Whether the canary deployment is active (1) or rolled back/disabled (0)",
		}),
		canaryRequests: counterVec(MetricCanaryRequests,
			"Total number of requests by deployment cohort and version", []string{"cohort", "version", "result"}),
		canaryDuration: histogramVec(MetricCanaryDuration,
			"Request duration in seconds by deployment cohort and version", latencyBuckets, []string{"cohort", "version"}),
	}
}

// Collectors returns all collectors owned by this Metrics instance.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rateLimitRequests,
		m.rateLimitBlocked,
		m.rateLimitRedisErrors,
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.httpRequestSize,
		m.httpResponseSize,
		m.canaryActive,
		m.canaryRequests,
		m.canaryDuration,
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRateLimitRequests counts a rate limit check for an endpoint. keyType
// is "user" for authenticated callers and "ip" otherwise.
func (m *Metrics) IncRateLimitRequests(endpoint, keyType string) {
	m.rateLimitRequests.WithLabelValues(endpoint, keyType).Inc()
}

// IncRateLimitBlocked counts a request rejected by the rate limiter.
func (m *Metrics) IncRateLimitBlocked(endpoint, keyType string) {
	m.rateLimitBlocked.WithLabelValues(endpoint, keyType).Inc()
}

// IncRateLimitRedisErrors counts a fail-open event caused by Redis being
// unavailable.
func (m *Metrics) IncRateLimitRedisErrors() {
	m.rateLimitRedisErrors.Inc()
}

// ObserveHTTPRequest records duration, count and size metrics for one
// completed request. path must already be normalized to a route template.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64, requestSize, responseSize int64) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": status,
	}
	m.httpRequestDuration.With(labels).Observe(duration)
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestSize.With(labels).Observe(float64(requestSize))
	m.httpResponseSize.With(labels).Observe(float64(responseSize))
}

// SetCanaryActive flips the canary gauge. The gauge reads 1 while the
// canary serves traffic and 0 after a rollback or when routing is disabled.
func (m *Metrics) SetCanaryActive(active bool) {
	if active {
		m.canaryActive.Set(1)
	} else {
		m.canaryActive.Set(0)
	}
}

// ObserveCanaryRequest records a request routed through the canary router
// under its cohort ("canary" or "stable") and serving version.
func (m *Metrics) ObserveCanaryRequest(cohort, version string, duration float64, isError bool) {
	result := "ok"
	if isError {
		result = "error"
	}
	m.canaryRequests.WithLabelValues(cohort, version, result).Inc()
	m.canaryDuration.WithLabelValues(cohort, version).Observe(duration)
}
