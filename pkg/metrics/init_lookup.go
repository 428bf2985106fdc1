package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLookupMetrics() {
	r.LookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatgraph_lookups_total",
			Help: "Total number of threat-intel lookups by provider, IoC type and status",
		},
		[]string{"provider", "ioc_type", "status"},
	)

	r.LookupDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threatgraph_lookup_duration_seconds",
			Help:    "Backend lookup latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	r.CacheHitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatgraph_lookup_cache_hits_total",
			Help: "Lookup results served from the memoization cache",
		},
		[]string{"provider"},
	)

	r.CacheMissTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatgraph_lookup_cache_misses_total",
			Help: "Lookups that had to hit the backend",
		},
		[]string{"provider"},
	)
}
