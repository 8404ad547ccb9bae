package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordLayout records one layout application
func (r *Registry) RecordLayout(layout string, nodes int, duration time.Duration, err error) {
	r.LayoutsAppliedTotal.WithLabelValues(layout, status(err)).Inc()
	r.LayoutDuration.WithLabelValues(layout).Observe(duration.Seconds())
	r.LayoutNodes.WithLabelValues(layout).Observe(float64(nodes))
}

// RecordTick records one simulation tick delivered to the given host.
// interval is the time since the previous tick, zero for the first one.
func (r *Registry) RecordTick(host string, interval time.Duration) {
	r.SimulationTicksTotal.WithLabelValues(host).Inc()
	if interval > 0 {
		r.SimulationTickInterval.Observe(interval.Seconds())
	}
}

// RecordSimulationEnd records the end of a simulation run
func (r *Registry) RecordSimulationEnd(host, reason string, duration time.Duration) {
	r.SimulationRunsTotal.WithLabelValues(host, reason).Inc()
	r.SimulationRunDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// RecordWorkerFallback counts a switch to in-process execution.
// stage is "construct" for host selection or the query type at runtime.
func (r *Registry) RecordWorkerFallback(stage string) {
	r.WorkerFallbacksTotal.WithLabelValues(stage).Inc()
}

// RecordWorkerMessage counts a worker protocol message; direction is "in" or "out"
func (r *Registry) RecordWorkerMessage(direction, msgType string) {
	r.WorkerMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordWorkerQuery records a worker query round trip
func (r *Registry) RecordWorkerQuery(msgType string, duration time.Duration) {
	r.WorkerQueryDuration.WithLabelValues(msgType).Observe(duration.Seconds())
}

// RecordRender records one rendered frame
func (r *Registry) RecordRender(mode string, elements, culled int, duration time.Duration) {
	r.RenderFramesTotal.WithLabelValues(mode).Inc()
	r.RenderDuration.WithLabelValues(mode).Observe(duration.Seconds())
	r.RenderElementsDrawn.WithLabelValues(mode).Observe(float64(elements))
	if culled > 0 {
		r.RenderCulledNodes.Add(float64(culled))
	}
}

// RecordLoad records a graph load attempt sequence
func (r *Registry) RecordLoad(source string, nodes int, duration time.Duration, err error) {
	r.LoadsTotal.WithLabelValues(source, status(err)).Inc()
	r.LoadDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err == nil {
		r.GraphNodesLoaded.Observe(float64(nodes))
	}
}

// RecordLoadRetry counts a retried fetch
func (r *Registry) RecordLoadRetry(source string) {
	r.LoadRetriesTotal.WithLabelValues(source).Inc()
}

// RecordIntegrityIssue counts one skipped node or edge
func (r *Registry) RecordIntegrityIssue(kind string) {
	r.DataIntegrityIssues.WithLabelValues(kind).Inc()
}

// RecordAnalytics counts a centrality or community computation
func (r *Registry) RecordAnalytics(kind, host string) {
	r.AnalyticsTotal.WithLabelValues(kind, host).Inc()
}

// RecordPathSearch counts a shortest path search
func (r *Registry) RecordPathSearch(found bool) {
	if found {
		r.PathSearchesTotal.WithLabelValues("found").Inc()
	} else {
		r.PathSearchesTotal.WithLabelValues("not_found").Inc()
	}
}

// RecordLayoutStore counts a layout snapshot store operation
func (r *Registry) RecordLayoutStore(backend, operation string, err error) {
	r.LayoutStoreOperations.WithLabelValues(backend, operation, status(err)).Inc()
}

// SessionOpened updates session gauges for a new session
func (r *Registry) SessionOpened() {
	r.SessionsCreatedTotal.Inc()
	r.SessionsActive.Inc()
}

// SessionClosed updates session gauges for a destroyed session
func (r *Registry) SessionClosed() {
	r.SessionsActive.Dec()
}

// SetHostActive adjusts the open host gauge for a mode
func (r *Registry) SetHostActive(mode string, delta float64) {
	r.HostsActive.WithLabelValues(mode).Add(delta)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
