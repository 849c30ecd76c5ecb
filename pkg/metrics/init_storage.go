package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.StorageVerticesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluso_storage_vertices_total",
			Help: "Number of vertices per graph",
		},
		[]string{"graph"},
	)

	r.StorageEdgesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluso_storage_edges_total",
			Help: "Number of edges per graph",
		},
		[]string{"graph"},
	)

	r.StorageKeysTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluso_storage_property_keys_total",
			Help: "Number of property keys per graph",
		},
		[]string{"graph"},
	)

	r.StorageCommitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_storage_transactions_total",
			Help: "Transactions ended, by outcome",
		},
		[]string{"outcome"},
	)

	r.StorageOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	r.WALBytesWritten = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluso_wal_bytes_written",
			Help: "Bytes appended to a graph's WAL since it was opened",
		},
		[]string{"graph"},
	)

	r.GraphsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_graphs_total",
			Help: "Number of open graphs",
		},
	)
}
