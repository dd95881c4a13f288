// Package metrics exposes the service's Prometheus gauges/counters/
// histograms behind /metrics, following cuemby-warren's pkg/metrics
// package-level-vars-plus-init-registration shape: one prometheus.Collector
// per concern, registered once at package load, timed with a small Timer
// helper.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue depth (C8), refreshed whenever internal/queue publishes a
	// queue_status event.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_queue_depth",
			Help: "Processing queue depth by job status",
		},
		[]string{"status"},
	)

	// Import Orchestrator (C7) latency and outcome counts.
	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_import_duration_seconds",
			Help:    "Time taken for one Import Orchestrator pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_imports_total",
			Help: "Total number of imports by outcome",
		},
		[]string{"outcome"}, // created, cached, failed
	)

	// Phase-2 Enricher (C9) outcome counts.
	EnrichmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_enrichments_total",
			Help: "Total number of Phase-2 enrichment jobs by outcome",
		},
		[]string{"outcome"}, // success, failed
	)

	// Hierarchy Cache (C11) hit rate.
	HierarchyCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_hierarchy_cache_hits_total",
			Help: "Hierarchy cache lookups by operation and hit/miss",
		},
		[]string{"operation", "result"}, // result: hit, miss
	)

	// Classification cache (C4) hit rate.
	ClassifyCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_classify_cache_hits_total",
			Help: "Classification cache lookups by hit/miss",
		},
		[]string{"result"},
	)

	// HTTP surface (§6).
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_api_requests_total",
			Help: "Total API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_api_request_duration_seconds",
			Help:    "API request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_rate_limit_rejections_total",
			Help: "Total requests rejected by a rate limit scope",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		QueueDepth,
		ImportDuration,
		ImportsTotal,
		EnrichmentsTotal,
		HierarchyCacheHits,
		ClassifyCacheHits,
		APIRequestsTotal,
		APIRequestDuration,
		RateLimitRejectionsTotal,
	)
}

// Handler returns the Prometheus scrape handler mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's elapsed time for a histogram observation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(h prometheus.ObserverVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// SetQueueDepth publishes a full queue-depth snapshot, replacing whatever
// was there before (the store.JobStats query is already a full count, not
// a delta).
func SetQueueDepth(pending, processing, completed, failed int) {
	QueueDepth.WithLabelValues("pending").Set(float64(pending))
	QueueDepth.WithLabelValues("processing").Set(float64(processing))
	QueueDepth.WithLabelValues("completed").Set(float64(completed))
	QueueDepth.WithLabelValues("failed").Set(float64(failed))
}
