package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the toolkit
type Registry struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Lookup metrics
	LookupsTotal   *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	CacheHitsTotal *prometheus.CounterVec
	CacheMissTotal *prometheus.CounterVec

	// Graph metrics
	GraphNodesTotal   prometheus.Gauge
	GraphEdgesTotal   prometheus.Gauge
	GraphOpsTotal     *prometheus.CounterVec
	RendersTotal      *prometheus.CounterVec
	TableExportsTotal prometheus.Counter

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
}

var (
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
	}

	r.initHTTPMetrics()
	r.initLookupMetrics()
	r.initGraphMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordLookup records a TI lookup outcome
func (r *Registry) RecordLookup(provider, iocType, status string) {
	r.LookupsTotal.WithLabelValues(provider, iocType, status).Inc()
}

// RecordLookupDuration records the latency of a single backend lookup
func (r *Registry) RecordLookupDuration(provider string, duration time.Duration) {
	r.LookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCacheAccess records a lookup-cache hit or miss
func (r *Registry) RecordCacheAccess(provider string, hit bool) {
	if hit {
		r.CacheHitsTotal.WithLabelValues(provider).Inc()
		return
	}
	r.CacheMissTotal.WithLabelValues(provider).Inc()
}

// UpdateGraphSize sets the current node and edge counts
func (r *Registry) UpdateGraphSize(nodes, edges int) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
}

// RecordGraphOp records a graph mutation or export operation
func (r *Registry) RecordGraphOp(operation, status string) {
	r.GraphOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRender records a rendering pass
func (r *Registry) RecordRender(renderer string) {
	r.RendersTotal.WithLabelValues(renderer).Inc()
}

// UpdateSystemMetrics refreshes process-level gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
}
