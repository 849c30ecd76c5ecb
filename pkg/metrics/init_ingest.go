package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initImportMetrics() {
	r.ImportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_imports_total",
			Help: "Total number of file imports by format and outcome",
		},
		[]string{"format", "status", "error_kind"},
	)

	r.ImportDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_import_duration_seconds",
			Help:    "End-to-end import latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"format", "status"},
	)

	r.ImportsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_imports_in_flight",
			Help: "Current number of imports being processed",
		},
	)

	r.ImportElementsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_import_elements_total",
			Help: "Vertices and edges committed by imports",
		},
		[]string{"graph", "kind"},
	)

	r.SchemaKeysCreated = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_schema_keys_created_total",
			Help: "Property keys provisioned by imports",
		},
		[]string{"graph"},
	)

	r.ImportPhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_import_phase_duration_seconds",
			Help:    "Time spent in each import phase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
}
