// Package health aggregates component probes (layout store, viewer
// sessions, simulation hosts, graph source) into health responses.
package health

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single check
const DefaultTimeout = 2 * time.Second

// NewChecker creates a checker. A non-positive timeout uses DefaultTimeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		timeout:     timeout,
		started:     time.Now(),
	}
}

// Register adds a check reported by /health
func (hc *Checker) Register(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadiness adds a check reported by /ready
func (hc *Checker) RegisterReadiness(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// RegisterLiveness adds a check reported by /live
func (hc *Checker) RegisterLiveness(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.liveChecks[name] = check
}

// Check runs every /health check
func (hc *Checker) Check(ctx context.Context) Response {
	return hc.run(ctx, hc.snapshot(hc.checks))
}

// CheckReadiness runs the readiness checks
func (hc *Checker) CheckReadiness(ctx context.Context) Response {
	return hc.run(ctx, hc.snapshot(hc.readyChecks))
}

// CheckLiveness runs the liveness checks
func (hc *Checker) CheckLiveness(ctx context.Context) Response {
	return hc.run(ctx, hc.snapshot(hc.liveChecks))
}

// snapshot copies the map so checks run without the lock held
func (hc *Checker) snapshot(m map[string]CheckFunc) map[string]CheckFunc {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	out := make(map[string]CheckFunc, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (hc *Checker) run(ctx context.Context, checks map[string]CheckFunc) Response {
	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(hc.started),
	}

	for name, fn := range checks {
		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, hc.timeout)
		check := fn(cctx)
		cancel()
		if check.Name == "" {
			check.Name = name
		}
		check.Duration = time.Since(start)
		check.LastChecked = start
		response.Checks[name] = check
		response.Status = worst(response.Status, check.Status)
	}
	return response
}

func worst(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
