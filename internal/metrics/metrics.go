// Package metrics provides Prometheus metrics for the pageturn pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decode metrics
	decodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageturn_decodes_total",
			Help: "Total decode jobs by outcome",
		},
		[]string{"outcome"},
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageturn_decode_duration_seconds",
			Help:    "Decode duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Texture cache metrics
	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageturn_cache_hits_total",
			Help: "Total texture cache hits",
		},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageturn_cache_misses_total",
			Help: "Total texture cache misses",
		},
	)

	cacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageturn_cache_evictions_total",
			Help: "Total texture cache evictions",
		},
	)

	cacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageturn_cache_bytes",
			Help: "Bytes currently held by the texture cache",
		},
	)

	// Scheduler metrics
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageturn_queue_depth",
			Help: "Jobs waiting in the priority queue",
		},
	)

	inFlightJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageturn_inflight_jobs",
			Help: "Jobs dispatched but not yet delivered",
		},
	)

	cancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageturn_cancellations_total",
			Help: "Total jobs cancelled before delivery",
		},
	)

	droppedResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageturn_dropped_results_total",
			Help: "Decoded results dropped because the result channel was full",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDecode records a completed decode job.
func RecordDecode(kind string, outcome string, duration time.Duration) {
	decodesTotal.WithLabelValues(outcome).Inc()
	decodeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCacheHit records a texture cache hit.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss records a texture cache miss.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordEviction records n cache evictions.
func RecordEviction(n int) {
	cacheEvictionsTotal.Add(float64(n))
}

// SetCacheBytes updates the cache size gauge.
func SetCacheBytes(bytes int64) {
	cacheBytes.Set(float64(bytes))
}

// SetQueueDepth updates the queue depth gauge.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// SetInFlight updates the in-flight jobs gauge.
func SetInFlight(n int) {
	inFlightJobs.Set(float64(n))
}

// RecordCancellation records a cancelled job.
func RecordCancellation() {
	cancellationsTotal.Inc()
}

// RecordDroppedResult records a result dropped on delivery.
func RecordDroppedResult() {
	droppedResultsTotal.Inc()
}
