package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	engines  *prometheus.GaugeVec
	views    prometheus.Counter
	restarts prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		engines: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gravity_watcher_engines",
			Help: "Reconciliation engines by state.",
		}, []string{"state"}),
		views: f.NewCounter(prometheus.CounterOpts{
			Name: "gravity_watcher_views_published_total",
			Help: "Views published by all engines.",
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Name: "gravity_watcher_engine_restarts_total",
			Help: "Engines restarted after a baseline failure.",
		}),
	}
}
