package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
)

var _ infomap.Recorder = (*Registry)(nil)

// RecordRun records the outcome of a clustering run. The result gauges are
// only updated by successful runs.
func (r *Registry) RecordRun(status string, codelength float64, modules, depth int, duration time.Duration) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.SampleResources()
	if status != infomap.StatusSuccess {
		return
	}
	r.RunDuration.Observe(duration.Seconds())
	r.RunCodelengthBits.Set(codelength)
	r.RunModules.Set(float64(modules))
	r.RunDepth.Set(float64(depth))
}

// RecordTrial records a completed trial
func (r *Registry) RecordTrial(codelength float64, modules, passes, moves int, duration time.Duration) {
	r.TrialsTotal.Inc()
	r.TrialDuration.Observe(duration.Seconds())
	r.TrialCodelengthBits.Observe(codelength)
	r.OptimizerPasses.Add(float64(passes))
	r.OptimizerMoves.Add(float64(moves))
	r.SampleResources()
}

// RecordFlow records a flow calculation
func (r *Registry) RecordFlow(iterations int, converged bool) {
	r.FlowIterations.Observe(float64(iterations))
	if !converged {
		r.FlowNonConvergence.Inc()
	}
}

// SampleResources records the heap in use, the peak heap seen so far and
// the number of goroutines. RecordTrial and RecordRun call it.
func (r *Registry) SampleResources() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.peakHeap = max(r.peakHeap, m.HeapInuse)
	r.HeapInUseBytes.Set(float64(m.HeapInuse))
	r.PeakHeapInUseBytes.Set(float64(r.peakHeap))
	r.Goroutines.Set(float64(runtime.NumGoroutine()))
}

// WriteToTextfile writes every metric to path in the Prometheus text format,
// for collection by the node exporter.
func (r *Registry) WriteToTextfile(path string) error {
	r.SampleResources()
	return prometheus.WriteToTextfile(path, r.registry)
}
