package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Layout Metrics
	LayoutsAppliedTotal *prometheus.CounterVec
	LayoutDuration      *prometheus.HistogramVec
	LayoutNodes         *prometheus.HistogramVec

	// Simulation Metrics
	SimulationTicksTotal   *prometheus.CounterVec
	SimulationRunsTotal    *prometheus.CounterVec
	SimulationRunDuration  *prometheus.HistogramVec
	SimulationActive       prometheus.Gauge
	SimulationTickInterval prometheus.Histogram

	// Worker Metrics
	WorkerFallbacksTotal *prometheus.CounterVec
	WorkerMessagesTotal  *prometheus.CounterVec
	WorkerQueryDuration  *prometheus.HistogramVec
	HostsActive          *prometheus.GaugeVec

	// Render Metrics
	RenderFramesTotal   *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	RenderCulledNodes   prometheus.Counter
	RenderElementsDrawn *prometheus.HistogramVec

	// Loader Metrics
	LoadsTotal          *prometheus.CounterVec
	LoadDuration        *prometheus.HistogramVec
	LoadRetriesTotal    *prometheus.CounterVec
	DataIntegrityIssues *prometheus.CounterVec
	GraphNodesLoaded    prometheus.Histogram

	// Analytics Metrics
	AnalyticsTotal    *prometheus.CounterVec
	PathSearchesTotal *prometheus.CounterVec

	// Session Metrics
	SessionsActive        prometheus.Gauge
	SessionsCreatedTotal  prometheus.Counter
	LayoutStoreOperations *prometheus.CounterVec

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
	}

	r.initHTTPMetrics()
	r.initLayoutMetrics()
	r.initSimulationMetrics()
	r.initWorkerMetrics()
	r.initRenderMetrics()
	r.initLoaderMetrics()
	r.initSessionMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// OrDefault returns r, or the global registry when r is nil
func OrDefault(r *Registry) *Registry {
	if r == nil {
		return DefaultRegistry()
	}
	return r
}
