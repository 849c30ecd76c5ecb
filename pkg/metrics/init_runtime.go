package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cluso"

// sizeBuckets covers JSON responses from a short error to a large listing.
var sizeBuckets = prometheus.ExponentialBuckets(64, 4, 8)

func (r *Registry) initHTTPMetrics() {
	factory := promauto.With(r.registry)
	labels := []string{"method", "path", "status"}

	r.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route template and status",
	}, labels)

	r.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, labels)

	r.HTTPRequestsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	r.HTTPResponseSizeBytes = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size in bytes",
		Buckets:   sizeBuckets,
	}, []string{"method", "path"})
}

func (r *Registry) initSystemMetrics() {
	factory := promauto.With(r.registry)

	r.UptimeSeconds = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the registry was created",
	})
	r.GoRoutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})
	r.MemoryAllocBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_alloc_bytes",
		Help:      "Bytes of allocated heap objects",
	})
	r.MemorySysBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_sys_bytes",
		Help:      "Bytes of memory obtained from the OS",
	})
	r.BuildInfo = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Always 1; the version label carries the running build",
	}, []string{"version"})
}
