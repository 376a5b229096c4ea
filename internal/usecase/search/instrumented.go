package search

import (
	"github.com/kailas-cloud/claimsearch/internal/metrics"
)

// MetricsObserver records stage outcomes in Prometheus.
type MetricsObserver struct{}

// NewMetricsObserver creates a stage observer backed by the search metrics.
func NewMetricsObserver() *MetricsObserver { return &MetricsObserver{} }

// ObserveStage records the stage status and, for stages that ran, the match count.
func (MetricsObserver) ObserveStage(rep StageReport) {
	metrics.StageRunsTotal.WithLabelValues(string(rep.Stage), string(rep.Status)).Inc()
	if rep.Status == Ran {
		metrics.StageMatches.WithLabelValues(string(rep.Stage)).Observe(float64(rep.Matched))
	}
}
