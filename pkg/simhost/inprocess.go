package simhost

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/parallel"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// InProcessHost runs the simulation on a goroutine of the calling process.
// mu is the single writer lock for node positions: the simulation ticks,
// drags and Read all take it.
type InProcessHost struct {
	mu      sync.Mutex
	logger  logging.Logger
	metrics *metrics.Registry
	pool    *parallel.WorkerPool
	mode    Mode

	g     *graph.Graph
	sim   *simulation.Simulation
	hooks Hooks

	baseCtx   context.Context
	runCtx    context.Context
	runCancel context.CancelFunc
	running   bool
	runs      int64 // launches so far; identifies the current run
	done      chan struct{}
	closed    bool
}

// NewInProcessHost creates an in-process host
func NewInProcessHost(cfg Config, logger logging.Logger, reg *metrics.Registry) (*InProcessHost, error) {
	return newInProcessHost(cfg, logger, reg, ModeInProcess)
}

// newInProcessHost labels logs and metrics with mode; the worker runs its
// simulation on an in-process host labelled ModeWorker.
func newInProcessHost(cfg Config, logger logging.Logger, reg *metrics.Registry, mode Mode) (*InProcessHost, error) {
	h := &InProcessHost{
		logger:  logging.OrNop(logger).With(logging.HostMode(string(mode))),
		metrics: metrics.OrDefault(reg),
		mode:    mode,
	}
	if cfg.ParallelWorkers > 0 {
		pool, err := parallel.NewWorkerPoolWithLogger(cfg.ParallelWorkers, h.logger)
		if err != nil {
			return nil, err
		}
		h.pool = pool
	}
	h.metrics.SetHostActive(string(h.mode), 1)
	return h, nil
}

// Mode implements Host
func (h *InProcessHost) Mode() Mode { return h.mode }

// Start implements Host
func (h *InProcessHost) Start(ctx context.Context, g *graph.Graph, req LayoutRequest, hooks Hooks) error {
	if err := requireGraph(g); err != nil {
		return err
	}
	h.Stop()

	layout, err := visualization.New(req.Kind, req.Config,
		visualization.WithLogger(h.logger),
		visualization.WithPool(h.pool))
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	started := time.Now()
	sim, err := layout.Apply(g, req.Width, req.Height)
	h.metrics.RecordLayout(string(req.Kind), g.Len(), time.Since(started), err)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.g = g
	h.sim = sim
	h.hooks = hooks
	if h.runCancel != nil {
		h.runCancel()
	}
	h.baseCtx = context.WithoutCancel(ctx)
	h.runCtx, h.runCancel = context.WithCancel(h.baseCtx)
	if sim != nil {
		sim.SetLocker(&h.mu)
		h.launchLocked()
	}
	run := h.runs
	h.mu.Unlock()

	h.logger.Info("layout applied",
		logging.Layout(string(req.Kind)),
		logging.Count(g.Len()),
		logging.Bool("simulated", sim != nil))

	if sim == nil {
		hooks.tick(run)
		hooks.end(run, simulation.EndConverged)
	}
	return nil
}

// launchLocked starts the run loop goroutine. Callers hold mu.
func (h *InProcessHost) launchLocked() {
	if h.running || h.sim == nil || h.closed {
		return
	}
	h.running = true
	h.runs++
	done := make(chan struct{})
	h.done = done
	sim, hooks, ctx, run := h.sim, h.hooks, h.runCtx, h.runs
	h.metrics.SimulationActive.Inc()

	go func() {
		defer close(done)
		defer h.metrics.SimulationActive.Dec()

		started := time.Now()
		var lastTick time.Time
		simHooks := simulation.Hooks{
			OnTick: func(int) {
				now := time.Now()
				var interval time.Duration
				if !lastTick.IsZero() {
					interval = now.Sub(lastTick)
				}
				lastTick = now
				h.metrics.RecordTick(string(h.mode), interval)
				hooks.tick(run)
			},
		}

		var reason simulation.EndReason
		for {
			var err error
			reason, err = sim.Run(ctx, simHooks)
			if err != nil {
				h.logger.Error("simulation run failed", logging.Error(err))
			}

			// A drag may have reheated the simulation after the loop
			// decided to end but before running was cleared.
			h.mu.Lock()
			again := err == nil && (reason == simulation.EndConverged || reason == simulation.EndMaxTicks) &&
				h.sim == sim && ctx.Err() == nil &&
				!sim.Settled() && sim.Ticks() < sim.Config().MaxTicks
			if !again {
				if h.sim == sim {
					h.running = false
				}
				h.mu.Unlock()
				break
			}
			h.mu.Unlock()
		}

		h.metrics.RecordSimulationEnd(string(h.mode), string(reason), time.Since(started))
		h.logger.Debug("simulation finished", logging.String("reason", string(reason)))
		hooks.end(run, reason)
	}()
}

// Drag implements the drag protocol: start pins and raises the alpha
// target, drag moves the pin, end lowers the target and keeps the pin,
// release unpins and reheats.
func (h *InProcessHost) Drag(ev DragEvent) error {
	h.mu.Lock()
	if err := requireGraph(h.g); err != nil {
		h.mu.Unlock()
		return err
	}
	n, ok := h.g.Node(ev.NodeID)
	if !ok {
		h.mu.Unlock()
		return unknownNode(ev.NodeID)
	}

	switch ev.Phase {
	case DragStart:
		n.Pin(ev.X, ev.Y)
		if h.sim != nil {
			h.sim.SetAlphaTarget(DragAlphaTarget)
			h.sim.Reheat(0)
			h.launchLocked()
		}
	case DragMove:
		n.Pin(ev.X, ev.Y)
	case DragEnd:
		if h.sim != nil {
			h.sim.SetAlphaTarget(0)
		}
	case DragRelease:
		n.Unpin()
		if h.sim != nil {
			h.sim.Reheat(DragAlphaTarget)
			h.launchLocked()
		}
	}
	simulated := h.sim != nil && h.running
	hooks, run := h.hooks, h.runs
	h.mu.Unlock()

	// Without a running simulation nothing else will redraw the moved node
	if !simulated {
		hooks.tick(run)
	}
	return nil
}

// Centrality implements Host
func (h *InProcessHost) Centrality(context.Context) (map[string]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := requireGraph(h.g); err != nil {
		return nil, err
	}
	h.metrics.RecordAnalytics("centrality", string(h.mode))
	return algorithms.DegreeCentrality(h.g), nil
}

// Communities implements Host
func (h *InProcessHost) Communities(context.Context) (map[string][]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := requireGraph(h.g); err != nil {
		return nil, err
	}
	h.metrics.RecordAnalytics("communities", string(h.mode))
	return algorithms.CommunitiesByType(h.g).Groups(), nil
}

// ShortestPath implements Host
func (h *InProcessHost) ShortestPath(_ context.Context, sourceID, targetID string) ([]string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := requireGraph(h.g); err != nil {
		return nil, false, err
	}
	path, ok := algorithms.ShortestPath(h.g, sourceID, targetID)
	h.metrics.RecordPathSearch(ok)
	return path, ok, nil
}

// Restore implements Host. A running simulation continues from the
// restored positions; a settled one is left settled.
func (h *InProcessHost) Restore(apply func(g *graph.Graph) int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := requireGraph(h.g); err != nil {
		return 0, err
	}
	return apply(h.g), nil
}

// runState reports the current run number and whether it is ticking
func (h *InProcessHost) runState() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs, h.running
}

// Read implements Host
func (h *InProcessHost) Read(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// Graph returns the graph of the last Start
func (h *InProcessHost) Graph() *graph.Graph {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.g
}

// Running implements Host
func (h *InProcessHost) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Stop implements Host. A later drag restarts the simulation.
func (h *InProcessHost) Stop() {
	h.mu.Lock()
	if h.runCancel != nil {
		h.runCancel()
	}
	done := h.done
	h.mu.Unlock()

	if done != nil {
		<-done
	}

	h.mu.Lock()
	if h.baseCtx != nil && !h.closed {
		h.runCtx, h.runCancel = context.WithCancel(h.baseCtx)
	}
	h.mu.Unlock()
}

// Close implements Host
func (h *InProcessHost) Close() error {
	h.Stop()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	if h.runCancel != nil {
		h.runCancel()
	}
	h.mu.Unlock()

	if h.pool != nil {
		h.pool.Close()
	}
	h.metrics.SetHostActive(string(h.mode), -1)
	return nil
}
