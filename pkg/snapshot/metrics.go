package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Metrics instruments snapshot computation.
type Metrics struct {
	duration  prometheus.Histogram
	votes     prometheus.Counter
	results   *prometheus.CounterVec
	uncharted prometheus.Counter
}

// NewMetrics registers the snapshot metrics with registry. A nil registry yields working
// but unregistered collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gravity_snapshot_duration_seconds",
			Help:    "Time to load and aggregate a poll snapshot",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		votes: factory.NewCounter(prometheus.CounterOpts{
			Name: "gravity_snapshot_votes_aggregated_total",
			Help: "Total number of votes scanned while building snapshots",
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gravity_snapshot_results_total",
			Help: "Snapshot requests by outcome",
		}, []string{"outcome"}),
		uncharted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gravity_snapshot_uncharted_votes_total",
			Help: "Votes counted in totals but outside every chart bucket",
		}),
	}
}
