// Package metrics provides Prometheus metrics for the rating engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric and the registry they live in.
type Manager struct {
	registry *prometheus.Registry

	// Match processing
	matchesProcessed prometheus.Counter
	matchesSkipped   prometheus.Counter
	matchesFailed    prometheus.Counter
	snapshotsWritten prometheus.Counter
	processDuration  prometheus.Histogram
	ratingDuration   prometheus.Histogram

	// Query paths
	leaderboardQueryDuration prometheus.Histogram
	tierQueryDuration        prometheus.Histogram

	// Rank cache
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheUpserts       prometheus.Counter
	cacheInvalidations prometheus.Counter

	// Match intake
	intakeQueueDepth prometheus.Gauge
	intakeWorkers    prometheus.Gauge
	intakeDropped    prometheus.Counter
	intakeDuplicate  prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager builds a Manager with its own registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	durationBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}

	m := &Manager{
		registry: reg,
		matchesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "matches_processed_total",
			Help: "Matches whose rating snapshots were applied.",
		}),
		matchesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "matches_skipped_total",
			Help: "Process attempts skipped because the match was already locked.",
		}),
		matchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "matches_failed_total",
			Help: "Process attempts that failed before any write.",
		}),
		snapshotsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "snapshots_written_total",
			Help: "Rating snapshots appended to the store.",
		}),
		processDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skill", Name: "process_duration_ms",
			Help: "End-to-end match processing latency.", Buckets: durationBuckets,
		}),
		ratingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skill", Name: "rating_compute_duration_ms",
			Help: "Rating function latency.", Buckets: durationBuckets,
		}),
		leaderboardQueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skill", Name: "leaderboard_query_duration_ms",
			Help: "Leaderboard page query latency.", Buckets: durationBuckets,
		}),
		tierQueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skill", Name: "tier_query_duration_ms",
			Help: "Tier lookup latency.", Buckets: durationBuckets,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "rankcache_hits_total",
			Help: "Rank cache reads served from a warm board.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "rankcache_misses_total",
			Help: "Rank cache reads that fell through to the store.",
		}),
		cacheUpserts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "rankcache_upserts_total",
			Help: "Rank cache board updates after applied matches.",
		}),
		cacheInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "rankcache_invalidations_total",
			Help: "Rank cache boards dropped.",
		}),
		intakeQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "skill", Name: "intake_queue_depth",
			Help: "Match ids waiting in the intake queue.",
		}),
		intakeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "skill", Name: "intake_workers",
			Help: "Running intake workers.",
		}),
		intakeDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "intake_dropped_total",
			Help: "Match ids rejected on backpressure.",
		}),
		intakeDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skill", Name: "intake_duplicate_total",
			Help: "Match ids short-circuited by the seen cache.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skill", Name: "http_requests_total",
			Help: "HTTP requests by endpoint, method and status.",
		}, []string{"endpoint", "method", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skill", Name: "http_request_duration_ms",
			Help: "HTTP request latency by endpoint and method.", Buckets: durationBuckets,
		}, []string{"endpoint", "method"}),
	}
	return m
}

var (
	defaultManager *Manager
	managerOnce    sync.Once
)

func get() *Manager {
	managerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// GetRegistry returns the registry backing the default manager, for
// serving scrapes.
func GetRegistry() *prometheus.Registry {
	return get().registry
}

// Package-level helpers over the default manager.

func RecordMatchProcessed() { get().matchesProcessed.Inc() }
func RecordMatchSkipped() { get().matchesSkipped.Inc() }
func RecordMatchFailed() { get().matchesFailed.Inc() }


func RecordSnapshotsWritten(n int) {
	get().snapshotsWritten.Add(float64(n))
}

func RecordProcessDuration(ms float64) { get().processDuration.Observe(ms) }
func RecordRatingDuration(ms float64) { get().ratingDuration.Observe(ms) }
func RecordLeaderboardQueryDuration(ms float64) { get().leaderboardQueryDuration.Observe(ms) }
func RecordTierQueryDuration(ms float64) { get().tierQueryDuration.Observe(ms) }

func RecordCacheHit() { get().cacheHits.Inc() }
func RecordCacheMiss() { get().cacheMisses.Inc() }
func RecordCacheUpsert() { get().cacheUpserts.Inc() }
func RecordCacheInvalidation() { get().cacheInvalidations.Inc() }

func UpdateIntakeQueueDepth(n int) { get().intakeQueueDepth.Set(float64(n)) }
func UpdateIntakeWorkers(n int) { get().intakeWorkers.Set(float64(n)) }
func RecordIntakeDropped() { get().intakeDropped.Inc() }
func RecordIntakeDuplicate() { get().intakeDuplicate.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	get().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	get().httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
