package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lens"

var (
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed pages served, by feed kind and algorithm label",
		},
		[]string{"kind", "algorithm"},
	)

	FeedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_duration_seconds",
			Help:      "Time spent composing a feed page",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	FeedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_items",
			Help:      "Items per served page, by origin",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"origin"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Store adapter calls that failed, timed out or were rejected by the breaker",
		},
		[]string{"source"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
		},
		[]string{"source"},
	)

	ConsistencyAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_anomalies_total",
			Help:      "Dangling references skipped while composing a page",
		},
		[]string{"kind"},
	)

	Interactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Tracked watch events by outcome",
		},
		[]string{"outcome"},
	)

	ImportedVideos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_videos_total",
			Help:      "Catalog entries written by the channel importer",
		},
		[]string{"channel"},
	)

	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Background task executions by type and result",
		},
		[]string{"type", "result"},
	)
)
