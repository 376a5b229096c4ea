// Package metrics holds the Prometheus collectors of the claim search service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "claimsearch"

// Search Prometheus metrics.
var (
	StageMatches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_matches",
			Help:      "Rows matched by a search stage that ran",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"stage"},
	)

	StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_runs_total",
			Help:      "Search stages by final status",
		},
		[]string{"stage", "status"}, // "ran" / "skipped"
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pipeline_runs_total",
			Help:      "Search pipeline runs by stage policy",
		},
		[]string{"policy"},
	)

	DatasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the loaded base dataset",
		},
	)

	DatasetLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Time spent reading the base dataset from its source",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SnapshotCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "snapshot_cache_total",
			Help:      "Dataset snapshot cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers the search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			StageMatches,
			StageRunsTotal,
			PipelineRunsTotal,
			DatasetRows,
			DatasetLoadDuration,
			SnapshotCacheTotal,
		)
	})
}
