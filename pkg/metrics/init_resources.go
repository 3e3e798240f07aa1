package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initResourceMetrics registers gauges sampled whenever a trial or a run
// finishes, so a textfile written after a run shows what it cost.
func (r *Registry) initResourceMetrics() {
	r.HeapInUseBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_heap_inuse_bytes",
			Help: "Heap in use when the last trial or run finished",
		},
	)

	r.PeakHeapInUseBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_peak_heap_inuse_bytes",
			Help: "Largest heap in use seen at the end of any trial or run",
		},
	)

	r.Goroutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "infomap_goroutines",
			Help: "Goroutines when the last trial finished, including busy trial workers",
		},
	)
}
