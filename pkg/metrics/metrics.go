package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordImport records a finished import. errorKind is empty on success.
func (r *Registry) RecordImport(format, status, errorKind string, duration time.Duration) {
	r.ImportsTotal.WithLabelValues(format, status, errorKind).Inc()
	r.ImportDuration.WithLabelValues(format, status).Observe(duration.Seconds())
}

// RecordImportPhase records how long one phase of an import took
func (r *Registry) RecordImportPhase(phase string, duration time.Duration) {
	r.ImportPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordImportedElements counts committed vertices, edges and keys
func (r *Registry) RecordImportedElements(graph string, vertices, edges, keys int) {
	r.ImportElementsTotal.WithLabelValues(graph, "vertex").Add(float64(vertices))
	r.ImportElementsTotal.WithLabelValues(graph, "edge").Add(float64(edges))
	r.SchemaKeysCreated.WithLabelValues(graph).Add(float64(keys))
}

// RecordStorageOperation records a storage operation and its outcome
func (r *Registry) RecordStorageOperation(operation, outcome string, duration time.Duration) {
	r.StorageCommitsTotal.WithLabelValues(outcome).Inc()
	r.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// GraphStats is the per-graph snapshot UpdateGraphMetrics publishes
type GraphStats struct {
	Graph           string
	Vertices        uint64
	Edges           uint64
	Keys            uint64
	WALBytesWritten uint64
}

// UpdateGraphMetrics replaces the per-graph gauges
func (r *Registry) UpdateGraphMetrics(graphs []GraphStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.StorageVerticesTotal.Reset()
	r.StorageEdgesTotal.Reset()
	r.StorageKeysTotal.Reset()
	r.WALBytesWritten.Reset()
	for _, g := range graphs {
		r.StorageVerticesTotal.WithLabelValues(g.Graph).Set(float64(g.Vertices))
		r.StorageEdgesTotal.WithLabelValues(g.Graph).Set(float64(g.Edges))
		r.StorageKeysTotal.WithLabelValues(g.Graph).Set(float64(g.Keys))
		r.WALBytesWritten.WithLabelValues(g.Graph).Set(float64(g.WALBytesWritten))
	}
	r.GraphsTotal.Set(float64(len(graphs)))
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// SetVersion publishes the running build through cluso_build_info.
func (r *Registry) SetVersion(version string) {
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version).Set(1)
}

// TrackImport marks an import in flight; call the returned func when it ends.
func (r *Registry) TrackImport() (done func()) {
	r.ImportsInFlight.Inc()
	return r.ImportsInFlight.Dec
}
