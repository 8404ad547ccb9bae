package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRenderMetrics() {
	r.RenderFramesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_render_frames_total",
			Help: "Frames rendered by renderer mode",
		},
		[]string{"mode"},
	)

	r.RenderDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_render_duration_seconds",
			Help:    "Time to render one frame",
			Buckets: []float64{0.001, 0.005, 0.01, 0.016, 0.033, 0.1, 0.5},
		},
		[]string{"mode"},
	)

	r.RenderCulledNodes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sagagraph_render_culled_nodes_total",
			Help: "Nodes skipped because they were outside the viewport",
		},
	)

	r.RenderElementsDrawn = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_render_elements",
			Help:    "Elements drawn per frame",
			Buckets: []float64{10, 100, 500, 1000, 5000, 20000},
		},
		[]string{"mode"},
	)
}

func (r *Registry) initLoaderMetrics() {
	r.LoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_loads_total",
			Help: "Graph loads by source and status",
		},
		[]string{"source", "status"},
	)

	r.LoadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_load_duration_seconds",
			Help:    "Graph load latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	r.LoadRetriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_load_retries_total",
			Help: "Retried graph fetches",
		},
		[]string{"source"},
	)

	r.DataIntegrityIssues = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_data_integrity_issues_total",
			Help: "Nodes or edges skipped at load time",
		},
		[]string{"kind"},
	)

	r.GraphNodesLoaded = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sagagraph_graph_nodes_loaded",
			Help:    "Node count of loaded graphs",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
	)

	r.AnalyticsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_analytics_total",
			Help: "Analytics computations by kind and host",
		},
		[]string{"kind", "host"},
	)

	r.PathSearchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_path_searches_total",
			Help: "Shortest path searches by result",
		},
		[]string{"result"},
	)
}

func (r *Registry) initSessionMetrics() {
	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sagagraph_sessions_active",
			Help: "Visualization sessions currently open",
		},
	)

	r.SessionsCreatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sagagraph_sessions_created_total",
			Help: "Visualization sessions created",
		},
	)

	r.LayoutStoreOperations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_layout_store_operations_total",
			Help: "Layout snapshot store operations",
		},
		[]string{"backend", "operation", "status"},
	)
}
