package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "infomap_runs_total",
			Help: "Total number of clustering runs by outcome",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infomap_run_duration_seconds",
			Help:    "Duration of successful clustering runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	r.RunCodelengthBits = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_run_codelength_bits",
			Help: "Hierarchical codelength of the last successful run",
		},
	)

	r.RunModules = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_run_modules",
			Help: "Number of top-level modules found by the last successful run",
		},
	)

	r.RunDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_run_depth",
			Help: "Depth of the module hierarchy found by the last successful run",
		},
	)
}
