package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "threatgraph_graph_nodes_total",
			Help: "Current number of nodes in the entity graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "threatgraph_graph_edges_total",
			Help: "Current number of edges in the entity graph",
		},
	)

	r.GraphOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatgraph_graph_operations_total",
			Help: "Graph mutations and exports by operation and status",
		},
		[]string{"operation", "status"},
	)

	r.RendersTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatgraph_renders_total",
			Help: "Rendering passes by renderer kind",
		},
		[]string{"renderer"},
	)

	r.TableExportsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "threatgraph_table_exports_total",
			Help: "Tabular exports of the entity graph",
		},
	)
}
