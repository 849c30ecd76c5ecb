package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Import Metrics
	ImportsTotal        *prometheus.CounterVec
	ImportDuration      *prometheus.HistogramVec
	ImportsInFlight     prometheus.Gauge
	ImportElementsTotal *prometheus.CounterVec
	SchemaKeysCreated   *prometheus.CounterVec
	ImportPhaseDuration *prometheus.HistogramVec

	// Storage Metrics
	StorageVerticesTotal     *prometheus.GaugeVec
	StorageEdgesTotal        *prometheus.GaugeVec
	StorageKeysTotal         *prometheus.GaugeVec
	StorageCommitsTotal      *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	WALBytesWritten          *prometheus.GaugeVec
	GraphsTotal              prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge
	BuildInfo        *prometheus.GaugeVec

	started  time.Time
	registry *prometheus.Registry
	mu       sync.RWMutex
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

	r := &Registry{
		registry: reg,
		started:  time.Now(),
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initImportMetrics()
	r.initStorageMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
