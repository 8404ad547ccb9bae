package health

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dd0wney/saga-graph/pkg/layoutstore"
)

// Static returns a check that always reports healthy
func Static(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy, LastChecked: time.Now()}
	}
}

// probeGraphID is looked up by StoreCheck; a miss proves the backend answers
const probeGraphID = "__health_probe__"

// StoreCheck probes a layout store with a lookup of a graph id that is never
// saved. ErrNotFound means the backend is reachable.
func StoreCheck(store layoutstore.Store) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "layout_store",
			Details: map[string]any{"backend": store.Backend()},
		}
		_, err := store.Load(ctx, probeGraphID)
		switch {
		case err == nil, errors.Is(err, layoutstore.ErrNotFound):
			check.Status = StatusHealthy
			check.Message = "Reachable"
		case errors.Is(err, layoutstore.ErrClosed):
			check.Status = StatusUnhealthy
			check.Message = "Store closed"
		default:
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}

// SessionsCheck reports session capacity. Degraded above 90% of max; max of
// zero means unlimited.
func SessionsCheck(usage func() (open, max int)) CheckFunc {
	return func(context.Context) Check {
		open, max := usage()
		check := Check{
			Name:    "sessions",
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d open", open),
			Details: map[string]any{"open": open, "max": max},
		}
		if max > 0 {
			if open >= max {
				check.Status = StatusDegraded
				check.Message = "Session limit reached"
			} else if float64(open)/float64(max) > 0.9 {
				check.Status = StatusDegraded
				check.Message = "Near session limit"
			}
		}
		return check
	}
}

// HostsCheck reports how many sessions run their simulation in a worker and
// how many fell back to in-process. Any fallback when workers are expected is
// degraded: layouts still run, on the serving goroutines.
func HostsCheck(workerExpected bool, modes func() (worker, inProcess int)) CheckFunc {
	return func(context.Context) Check {
		worker, inProcess := modes()
		check := Check{
			Name:    "simulation_hosts",
			Status:  StatusHealthy,
			Details: map[string]any{"worker": worker, "in_process": inProcess},
		}
		if workerExpected && inProcess > 0 {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d session(s) fell back to in-process simulation", inProcess)
		} else {
			check.Message = "Hosts running"
		}
		return check
	}
}

// BreakerCheck reports the graph source's circuit breaker state as returned
// by gobreaker's State.String: "closed", "half-open" or "open".
func BreakerCheck(state func() string) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{Name: "graph_source", Details: map[string]any{"breaker": s}}
		switch s {
		case "open":
			check.Status = StatusUnhealthy
			check.Message = "Circuit open"
		case "half-open":
			check.Status = StatusDegraded
			check.Message = "Circuit probing"
		default:
			check.Status = StatusHealthy
			check.Message = "Circuit closed"
		}
		return check
	}
}

// MemoryCheck reports Go heap usage, degraded above limitBytes
func MemoryCheck(limitBytes uint64) CheckFunc {
	return func(context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		check := Check{
			Name:   "memory",
			Status: StatusHealthy,
			Details: map[string]any{
				"heap_alloc_bytes": m.HeapAlloc,
				"sys_bytes":        m.Sys,
				"goroutines":       runtime.NumGoroutine(),
			},
			Message: "Memory usage normal",
		}
		if limitBytes > 0 && m.HeapAlloc > limitBytes {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
