package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics of the clustering engine
type Registry struct {
	// Run Metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	RunCodelengthBits prometheus.Gauge
	RunModules        prometheus.Gauge
	RunDepth          prometheus.Gauge

	// Trial Metrics
	TrialsTotal         prometheus.Counter
	TrialDuration       prometheus.Histogram
	TrialCodelengthBits prometheus.Histogram
	OptimizerPasses     prometheus.Counter
	OptimizerMoves      prometheus.Counter

	// Flow Metrics
	FlowIterations     prometheus.Histogram
	FlowNonConvergence prometheus.Counter

	// Resource Metrics
	HeapInUseBytes     prometheus.Gauge
	PeakHeapInUseBytes prometheus.Gauge
	Goroutines         prometheus.Gauge

	registry *prometheus.Registry
	peakHeap uint64
	mu       sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{registry: reg}

	// Initialize all metrics
	r.initRunMetrics()
	r.initTrialMetrics()
	r.initFlowMetrics()
	r.initResourceMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
