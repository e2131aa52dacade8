package feed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricFeedRequestsTotal    = "feed_requests_total"
	MetricFeedRankingDuration  = "feed_ranking_duration_seconds"
	MetricFeedPoolSize         = "feed_pool_size"
	MetricFeedSessionCacheHits = "feed_session_cache_hits_total"
)

// Metrics contains Prometheus metrics for feed ranking operations.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	rankingDuration  prometheus.Histogram
	poolSize         prometheus.Histogram
	sessionCacheHits *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFeedRequestsTotal,
			Help: "Total number of feed requests by result",
		}, []string{"result"}),
		rankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricFeedRankingDuration,
			Help:    "Histogram of full-pool ranking pass duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		poolSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricFeedPoolSize,
			Help:    "Histogram of candidate pool sizes per ranking pass",
			Buckets: []float64{10, 50, 100, 250, 500, 1000},
		}),
		sessionCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFeedSessionCacheHits,
			Help: "Total number of feed session cache lookups by outcome",
		}, []string{"outcome"}),
	}
}

// Collectors returns all collectors owned by this Metrics instance.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.rankingDuration,
		m.poolSize,
		m.sessionCacheHits,
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

// IncRequests increments the feed request counter for a result
// ("ok" or "error").
func (m *Metrics) IncRequests(result string) {
	m.requestsTotal.WithLabelValues(result).Inc()
}

// ObserveRanking records the duration of a full ranking pass and the size
// of the pool it scored.
func (m *Metrics) ObserveRanking(d time.Duration, poolSize int) {
	m.rankingDuration.Observe(d.Seconds())
	m.poolSize.Observe(float64(poolSize))
}

// IncCacheLookup increments the session cache counter for an outcome
// ("hit" or "miss").
func (m *Metrics) IncCacheLookup(outcome string) {
	m.sessionCacheHits.WithLabelValues(outcome).Inc()
}
