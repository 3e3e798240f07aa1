package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTrialMetrics() {
	r.TrialsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "infomap_trials_total",
			Help: "Total number of completed trials",
		},
	)

	r.TrialDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infomap_trial_duration_seconds",
			Help:    "Duration of a single trial in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	r.TrialCodelengthBits = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infomap_trial_codelength_bits",
			Help:    "Hierarchical codelength reached by each trial",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
	)

	r.OptimizerPasses = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "infomap_optimizer_passes_total",
			Help: "Total number of local moving passes",
		},
	)

	r.OptimizerMoves = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "infomap_optimizer_moves_total",
			Help: "Total number of nodes moved between modules",
		},
	)
}

func (r *Registry) initFlowMetrics() {
	r.FlowIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infomap_flow_iterations",
			Help:    "Power iterations needed to compute the flow",
			Buckets: prometheus.ExponentialBuckets(1, 2, 15),
		},
	)

	r.FlowNonConvergence = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "infomap_flow_nonconvergence_total",
			Help: "Number of flow calculations that hit the iteration cap",
		},
	)
}
