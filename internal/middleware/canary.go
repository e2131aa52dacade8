package middleware

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Cohort labels set on the X-Deployment-Cohort header.
const (
	CohortCanary = "canary"
	CohortStable = "stable"
)

// CanaryConfig holds configuration for canary deployment.
type CanaryConfig struct {
	Enabled          bool
	TrafficPercent   float64 // share of traffic routed to the canary (0-100)
	ErrorThreshold   float64 // error rate percent that triggers rollback
	LatencyThreshold float64 // average latency in seconds that triggers rollback
	AutoRollback     bool
	MonitoringWindow int // seconds
	Version          string
}

// cohortStats accumulates request counts and latency for one cohort.
type cohortStats struct {
	requests     int64
	errors       int64
	latencySum   float64
	latencyCount int64
}

func (s *cohortStats) observe(duration float64, isError bool) {
	s.requests++
	s.latencySum += duration
	s.latencyCount++
	if isError {
		s.errors++
	}
}

func (s *cohortStats) errorRate() float64 {
	if s.requests == 0 {
		return 0
	}
	return float64(s.errors) / float64(s.requests) * 100
}

func (s *cohortStats) avgLatency() float64 {
	if s.latencyCount == 0 {
		return 0
	}
	return s.latencySum / float64(s.latencyCount)
}

// CanaryRouter splits traffic between the stable build and a canary build
// and rolls the canary back when it misbehaves.
type CanaryRouter struct {
	config      CanaryConfig
	promMetrics *Metrics
	logger      *slog.Logger

	mu          sync.RWMutex
	active      bool
	canary      cohortStats
	stable      cohortStats
	windowStart time.Time
}

// NewCanaryRouter creates a canary router with the given configuration.
func NewCanaryRouter(config CanaryConfig, logger *slog.Logger) *CanaryRouter {
	return &CanaryRouter{
		config:      config,
		logger:      logger,
		active:      config.Enabled,
		windowStart: time.Now(),
	}
}

// SetPrometheusMetrics attaches the Prometheus collector so cohort traffic
// and the canary-active gauge are exported.
func (cr *CanaryRouter) SetPrometheusMetrics(metrics *Metrics) {
	cr.promMetrics = metrics
	if metrics != nil {
		cr.mu.RLock()
		metrics.SetCanaryActive(cr.active && cr.config.Enabled)
		cr.mu.RUnlock()
	}
}

// Middleware assigns each request to a cohort and records its outcome.
// Cohort assignment is deterministic per caller, so a seeker stays on the
// same build across feed pages.
func (cr *CanaryRouter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cr.mu.RLock()
		enabled := cr.active && cr.config.Enabled
		cr.mu.RUnlock()

		cohort := CohortStable
		if enabled {
			cohort = cr.assignCohort(r)
		}
		version := CohortStable
		if cohort == CohortCanary {
			version = cr.config.Version
		}

		r.Header.Set("X-Deployment-Cohort", cohort)
		r.Header.Set("X-Deployment-Version", version)
		w.Header().Set("X-Deployment-Cohort", cohort)
		w.Header().Set("X-Deployment-Version", version)

		if !enabled {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &canaryResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		cr.recordRequest(cohort, version, duration, wrapped.statusCode >= 500)

		if cr.config.AutoRollback && cohort == CohortCanary {
			cr.checkRollbackConditions()
		}
	})
}

// assignCohort hashes the caller identity into a bucket. Authenticated
// callers hash by user ID; anonymous ones by client IP.
func (cr *CanaryRouter) assignCohort(r *http.Request) string {
	identity := GetUserID(r.Context())
	if identity == "" {
		identity = IPKeyFunc()(r)
	}

	hash := sha256.Sum256([]byte(identity))
	hashValue := binary.BigEndian.Uint64(hash[:8])
	percentage := float64(hashValue%10000) / 100.0

	if percentage < cr.config.TrafficPercent {
		return CohortCanary
	}
	return CohortStable
}

func (cr *CanaryRouter) recordRequest(cohort, version string, duration float64, isError bool) {
	cr.mu.Lock()
	if cohort == CohortCanary {
		cr.canary.observe(duration, isError)
	} else {
		cr.stable.observe(duration, isError)
	}
	cr.mu.Unlock()

	if cr.promMetrics != nil {
		cr.promMetrics.ObserveCanaryRequest(cohort, version, duration, isError)
	}
}

// checkRollbackConditions rolls the canary back when its error rate or
// latency crosses the configured thresholds, or when it errors at twice the
// stable rate. Needs 100 canary samples before it will act.
func (cr *CanaryRouter) checkRollbackConditions() {
	cr.mu.RLock()
	samples := cr.canary.requests
	canaryErrorRate := cr.canary.errorRate()
	stableErrorRate := cr.stable.errorRate()
	canaryAvgLatency := cr.canary.avgLatency()
	stableAvgLatency := cr.stable.avgLatency()
	cr.mu.RUnlock()

	if samples < 100 {
		return
	}

	switch {
	case canaryErrorRate > cr.config.ErrorThreshold:
		cr.logger.Error("canary error rate over threshold",
			"canary_error_rate", fmt.Sprintf("%.2f%%", canaryErrorRate),
			"stable_error_rate", fmt.Sprintf("%.2f%%", stableErrorRate),
			"threshold", fmt.Sprintf("%.2f%%", cr.config.ErrorThreshold),
		)
		cr.Rollback("error_rate_exceeded")
	case canaryAvgLatency > cr.config.LatencyThreshold:
		cr.logger.Error("canary latency over threshold",
			"canary_avg_latency", fmt.Sprintf("%.3fs", canaryAvgLatency),
			"stable_avg_latency", fmt.Sprintf("%.3fs", stableAvgLatency),
			"threshold", fmt.Sprintf("%.3fs", cr.config.LatencyThreshold),
		)
		cr.Rollback("latency_exceeded")
	case stableErrorRate > 0 && canaryErrorRate > stableErrorRate*2:
		cr.logger.Error("canary erroring at twice the stable rate",
			"canary_error_rate", fmt.Sprintf("%.2f%%", canaryErrorRate),
			"stable_error_rate", fmt.Sprintf("%.2f%%", stableErrorRate),
		)
		cr.Rollback("relative_error_rate_high")
	}
}

// Rollback disables the canary and routes all traffic to stable.
func (cr *CanaryRouter) Rollback(reason string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.active {
		return
	}

	cr.active = false
	cr.logger.Warn("canary deployment rolled back",
		"reason", reason,
		"canary_version", cr.config.Version,
	)

	if cr.promMetrics != nil {
		cr.promMetrics.SetCanaryActive(false)
	}
}

// GetMetrics returns a snapshot of the current monitoring window.
func (cr *CanaryRouter) GetMetrics() MetricsSnapshot {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return MetricsSnapshot{
		CanaryRequests:   cr.canary.requests,
		CanaryErrors:     cr.canary.errors,
		CanaryErrorRate:  cr.canary.errorRate(),
		CanaryAvgLatency: cr.canary.avgLatency(),
		StableRequests:   cr.stable.requests,
		StableErrors:     cr.stable.errors,
		StableErrorRate:  cr.stable.errorRate(),
		StableAvgLatency: cr.stable.avgLatency(),
		WindowStart:      cr.windowStart,
		WindowDuration:   time.Since(cr.windowStart),
		CanaryActive:     cr.active,
		CanaryVersion:    cr.config.Version,
	}
}

// ResetMetrics starts a fresh monitoring window.
func (cr *CanaryRouter) ResetMetrics() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.canary = cohortStats{}
	cr.stable = cohortStats{}
	cr.windowStart = time.Now()
}

// MetricsSnapshot is a point-in-time view of canary health.
type MetricsSnapshot struct {
	CanaryRequests   int64         `json:"canary_requests"`
	CanaryErrors     int64         `json:"canary_errors"`
	CanaryErrorRate  float64       `json:"canary_error_rate"`
	CanaryAvgLatency float64       `json:"canary_avg_latency"`
	StableRequests   int64         `json:"stable_requests"`
	StableErrors     int64         `json:"stable_errors"`
	StableErrorRate  float64       `json:"stable_error_rate"`
	StableAvgLatency float64       `json:"stable_avg_latency"`
	WindowStart      time.Time     `json:"window_start"`
	WindowDuration   time.Duration `json:"window_duration"`
	CanaryActive     bool          `json:"canary_active"`
	CanaryVersion    string        `json:"canary_version"`
}

type canaryResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *canaryResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap returns the wrapped http.ResponseWriter.
func (rw *canaryResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
