package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutsAppliedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_layouts_applied_total",
			Help: "Total number of layouts applied",
		},
		[]string{"layout", "status"},
	)

	r.LayoutDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_layout_duration_seconds",
			Help:    "Time spent computing initial layout positions",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"layout"},
	)

	r.LayoutNodes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_layout_nodes",
			Help:    "Number of nodes per applied layout",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"layout"},
	)
}

func (r *Registry) initSimulationMetrics() {
	r.SimulationTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_simulation_ticks_total",
			Help: "Total number of simulation ticks",
		},
		[]string{"host"},
	)

	r.SimulationRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_simulation_runs_total",
			Help: "Completed simulation runs by end reason",
		},
		[]string{"host", "reason"},
	)

	r.SimulationRunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_simulation_run_duration_seconds",
			Help:    "Wall time of a simulation run until it settled or stopped",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"host"},
	)

	r.SimulationActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sagagraph_simulations_active",
			Help: "Number of simulations currently running",
		},
	)

	r.SimulationTickInterval = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sagagraph_simulation_tick_interval_seconds",
			Help:    "Time between consecutive simulation ticks delivered to a host",
			Buckets: []float64{0.001, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.5},
		},
	)
}

func (r *Registry) initWorkerMetrics() {
	r.WorkerFallbacksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_worker_fallbacks_total",
			Help: "Times the background worker was unavailable and in-process execution was used",
		},
		[]string{"stage"},
	)

	r.WorkerMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagagraph_worker_messages_total",
			Help: "Messages exchanged with the worker",
		},
		[]string{"direction", "type"},
	)

	r.WorkerQueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagagraph_worker_query_duration_seconds",
			Help:    "Round-trip time of worker queries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"type"},
	)

	r.HostsActive = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sagagraph_hosts_active",
			Help: "Simulation hosts currently open, by mode",
		},
		[]string{"mode"},
	)
}
