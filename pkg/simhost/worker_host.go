package simhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.nanomsg.org/mangos/v3"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// ErrWorker wraps error replies received from the worker
var ErrWorker = errors.New("worker error")

// WorkerHost runs the simulation in a worker and mirrors node state from
// its ticks. Ticks are merged onto the caller's nodes by id, so the graph
// passed to Start stays the one the renderer draws.
//
// If the worker stops answering the host degrades to an in-process host for
// the rest of its life; a single failed query only falls back for that query.
type WorkerHost struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	sock       *pairSocket
	worker     *Worker
	workerStop context.CancelFunc
	workerDone chan struct{}
	readerDone chan struct{}

	mu       sync.Mutex
	g        *graph.Graph
	hooks    Hooks
	gen      string
	closed   bool
	fallback *InProcessHost

	// epoch counts drags and restores sent; ticks stamped with an older
	// epoch predate them and are not merged
	epoch int64
	// running and run follow the worker's simulation runs for this gen
	running   bool
	run       int64
	simulated bool

	pendingMu sync.Mutex
	pending   map[string]chan *Message
}

// NewWorkerHost connects to the worker at cfg.WorkerAddress, spawning an
// embedded one first when cfg.SpawnWorker is set. It fails when the worker
// does not answer a ping within cfg.DialTimeout.
func NewWorkerHost(cfg Config, logger logging.Logger, reg *metrics.Registry) (*WorkerHost, error) {
	h := &WorkerHost{
		cfg:        cfg,
		logger:     logging.OrNop(logger).With(logging.HostMode(string(ModeWorker))),
		metrics:    metrics.OrDefault(reg),
		readerDone: make(chan struct{}),
		pending:    make(map[string]chan *Message),
	}

	if cfg.SpawnWorker {
		w, err := NewWorker(cfg, logger, reg)
		if err != nil {
			return nil, err
		}
		if err := w.Listen(cfg.WorkerAddress); err != nil {
			w.Close()
			return nil, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		h.worker, h.workerStop = w, cancel
		h.workerDone = make(chan struct{})
		go func() {
			defer close(h.workerDone)
			if err := w.Serve(ctx); err != nil {
				h.logger.Error("worker exited", logging.Error(err))
			}
		}()
	}

	sock, err := newPairSocket()
	if err == nil {
		err = sock.SetRecvDeadline(pollInterval)
	}
	if err == nil {
		err = sock.SetSendDeadline(cfg.SendTimeout)
	}
	if err == nil {
		err = sock.Dial(cfg.WorkerAddress)
	}
	if err != nil {
		if sock != nil {
			sock.Close()
		}
		h.stopWorker()
		return nil, fmt.Errorf("dial worker %s: %w", cfg.WorkerAddress, err)
	}
	h.sock = sock
	go h.readLoop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := h.request(ctx, &Message{Type: MsgPing}); err != nil {
		h.sock.Close()
		<-h.readerDone
		h.stopWorker()
		return nil, fmt.Errorf("worker handshake: %w", err)
	}

	h.logger.Info("worker connected",
		logging.String("address", cfg.WorkerAddress),
		logging.Bool("embedded", cfg.SpawnWorker))
	return h, nil
}

// Mode implements Host. A degraded host reports in-process.
func (h *WorkerHost) Mode() Mode {
	if fb := h.degraded(); fb != nil {
		return fb.Mode()
	}
	return ModeWorker
}

func (h *WorkerHost) degraded() *InProcessHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fallback
}

// Start implements Host. Layout errors are reported synchronously; the
// worker's own validation errors arrive as an error reply.
func (h *WorkerHost) Start(ctx context.Context, g *graph.Graph, req LayoutRequest, hooks Hooks) error {
	if err := requireGraph(g); err != nil {
		return err
	}
	if fb := h.degraded(); fb != nil {
		return fb.Start(ctx, g, req, hooks)
	}
	if _, err := visualization.New(req.Kind, req.Config); err != nil {
		return err
	}
	h.Stop()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	gen := uuid.NewString()
	h.g, h.hooks, h.gen = g, hooks, gen
	h.running, h.run, h.simulated = true, 0, !req.Kind.IsFixed()
	msg, err := NewMessage(MsgInit, initFromGraph(g, req))
	h.mu.Unlock()
	if err != nil {
		return err
	}
	msg.RequestID = gen

	if err := h.send(msg); err != nil {
		fb, ferr := h.degrade("init", err)
		if ferr != nil {
			return ferr
		}
		return fb.Start(ctx, g, req, hooks)
	}
	return nil
}

// Drag pins locally so the renderer follows the pointer before the next
// tick, then forwards the event.
func (h *WorkerHost) Drag(ev DragEvent) error {
	if fb := h.degraded(); fb != nil {
		return fb.Drag(ev)
	}

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
	msg, err := NewMessage(MsgDrag, ev)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	switch ev.Phase {
	case DragStart, DragMove:
		n.Pin(ev.X, ev.Y)
	case DragRelease:
		n.Unpin()
	}
	// the worker restarts a simulated layout on start and release; report
	// it running now rather than when its restart notice arrives
	if h.simulated && (ev.Phase == DragStart || ev.Phase == DragRelease) {
		h.running = true
	}
	h.epoch++
	msg.Epoch = h.epoch
	h.mu.Unlock()

	if err := h.send(msg); err != nil {
		h.rollback(msg.Epoch)
		h.logger.Warn("drag not delivered to worker",
			logging.NodeID(ev.NodeID), logging.Error(err))
		return err
	}
	return nil
}

// Restore applies the change locally, then hands the resulting state to
// the worker and waits until it has taken it over.
func (h *WorkerHost) Restore(apply func(g *graph.Graph) int) (int, error) {
	if fb := h.degraded(); fb != nil {
		return fb.Restore(apply)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}
	if err := requireGraph(h.g); err != nil {
		h.mu.Unlock()
		return 0, err
	}
	n := apply(h.g)
	h.epoch++
	msg := &Message{Type: MsgRestore, Nodes: captureState(h.g.Nodes), Epoch: h.epoch}
	h.mu.Unlock()

	if _, err := h.query(context.Background(), msg); err != nil {
		h.rollback(msg.Epoch)
		return n, fmt.Errorf("restore in worker: %w", err)
	}
	return n, nil
}

// rollback undoes the epoch raise of a message the worker never got,
// unless a later message raised it again
func (h *WorkerHost) rollback(epoch int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.epoch == epoch {
		h.epoch--
	}
}

// Running implements Host
func (h *WorkerHost) Running() bool {
	if fb := h.degraded(); fb != nil {
		return fb.Running()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen != "" && h.running
}

// Centrality implements Host
func (h *WorkerHost) Centrality(ctx context.Context) (map[string]int, error) {
	if fb := h.degraded(); fb != nil {
		return fb.Centrality(ctx)
	}
	if err := h.requireStarted(); err != nil {
		return nil, err
	}
	reply, err := h.query(ctx, &Message{Type: MsgCentrality})
	if err == nil {
		return reply.Centrality, nil
	}
	h.queryFallback(MsgCentrality, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.RecordAnalytics("centrality", string(ModeInProcess))
	return algorithms.DegreeCentrality(h.g), nil
}

// Communities implements Host
func (h *WorkerHost) Communities(ctx context.Context) (map[string][]string, error) {
	if fb := h.degraded(); fb != nil {
		return fb.Communities(ctx)
	}
	if err := h.requireStarted(); err != nil {
		return nil, err
	}
	reply, err := h.query(ctx, &Message{Type: MsgCommunities})
	if err == nil {
		if reply.Communities == nil {
			return map[string][]string{}, nil
		}
		return reply.Communities, nil
	}
	h.queryFallback(MsgCommunities, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.RecordAnalytics("communities", string(ModeInProcess))
	return algorithms.CommunitiesByType(h.g).Groups(), nil
}

// ShortestPath implements Host
func (h *WorkerHost) ShortestPath(ctx context.Context, sourceID, targetID string) ([]string, bool, error) {
	if fb := h.degraded(); fb != nil {
		return fb.ShortestPath(ctx, sourceID, targetID)
	}
	if err := h.requireStarted(); err != nil {
		return nil, false, err
	}
	reply, err := h.query(ctx, &Message{Type: MsgShortest, SourceID: sourceID, TargetID: targetID})
	if err == nil {
		return reply.Path, reply.Found, nil
	}
	h.queryFallback(MsgShortest, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	path, ok := algorithms.ShortestPath(h.g, sourceID, targetID)
	h.metrics.RecordPathSearch(ok)
	return path, ok, nil
}

// Read implements Host
func (h *WorkerHost) Read(fn func()) {
	if fb := h.degraded(); fb != nil {
		fb.Read(fn)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// Stop asks the worker to stop and stops merging its ticks. The worker's
// final end message is dropped.
func (h *WorkerHost) Stop() {
	if fb := h.degraded(); fb != nil {
		fb.Stop()
		return
	}
	h.mu.Lock()
	gen := h.gen
	h.gen = ""
	h.running = false
	closed := h.closed
	h.mu.Unlock()
	if gen == "" || closed {
		return
	}
	if err := h.send(&Message{Type: MsgStop, RequestID: gen}); err != nil {
		h.logger.Warn("stop not delivered to worker", logging.Error(err))
	}
}

// Close implements Host
func (h *WorkerHost) Close() error {
	h.Stop()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	fb := h.fallback
	h.mu.Unlock()

	err := h.sock.Close()
	<-h.readerDone
	h.stopWorker()
	if fb != nil {
		fb.Close()
	}
	h.failPending()
	return err
}

func (h *WorkerHost) stopWorker() {
	if h.worker == nil {
		return
	}
	h.workerStop()
	h.worker.Close()
	<-h.workerDone
}

func (h *WorkerHost) requireStarted() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return requireGraph(h.g)
}

func (h *WorkerHost) send(m *Message) error {
	if err := h.sock.SendMessage(m); err != nil {
		return err
	}
	h.metrics.RecordWorkerMessage("out", m.Type)
	return nil
}

// request sends m with a fresh RequestID and waits for the reply
func (h *WorkerHost) request(ctx context.Context, m *Message) (*Message, error) {
	m.RequestID = uuid.NewString()
	ch := make(chan *Message, 1)
	h.pendingMu.Lock()
	h.pending[m.RequestID] = ch
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, m.RequestID)
		h.pendingMu.Unlock()
	}()

	if err := h.send(m); err != nil {
		return nil, err
	}
	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if reply.Type == MsgError {
			return nil, fmt.Errorf("%w: %s", ErrWorker, reply.Error)
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// query is a request bounded by the query timeout
func (h *WorkerHost) query(ctx context.Context, m *Message) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.QueryTimeout)
	defer cancel()
	started := time.Now()
	reply, err := h.request(ctx, m)
	if err == nil {
		h.metrics.RecordWorkerQuery(m.Type, time.Since(started))
	}
	return reply, err
}

func (h *WorkerHost) queryFallback(msgType string, err error) {
	h.logger.Warn("worker query failed, computing in-process",
		logging.String("type", msgType), logging.Error(err))
	h.metrics.RecordWorkerFallback(msgType)
}

// degrade switches the host to an in-process host for good
func (h *WorkerHost) degrade(stage string, cause error) (*InProcessHost, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fallback != nil {
		return h.fallback, nil
	}
	fb, err := NewInProcessHost(h.cfg, h.logger, h.metrics)
	if err != nil {
		return nil, err
	}
	h.logger.Warn("worker unavailable, running simulation in-process",
		logging.String("stage", stage), logging.Error(cause))
	h.metrics.RecordWorkerFallback(stage)
	h.fallback = fb
	h.gen = ""
	return fb, nil
}

func (h *WorkerHost) failPending() {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
}

func (h *WorkerHost) readLoop() {
	defer close(h.readerDone)
	for {
		msg, err := h.sock.RecvMessage()
		if err != nil {
			switch {
			case errors.Is(err, mangos.ErrRecvTimeout):
				continue
			case errors.Is(err, mangos.ErrClosed):
				return
			}
			h.logger.Warn("dropped malformed worker message", logging.Error(err))
			continue
		}
		h.metrics.RecordWorkerMessage("in", msg.Type)
		h.dispatch(msg)
	}
}

func (h *WorkerHost) dispatch(msg *Message) {
	switch msg.Type {
	case MsgTick, MsgEnd, MsgRestart:
		h.mu.Lock()
		if msg.RequestID == "" || msg.RequestID != h.gen || h.g == nil {
			h.mu.Unlock()
			return
		}
		// Run numbers only grow. A restart can overtake the end of the run
		// before it, so an end only counts for the newest run seen.
		switch {
		case msg.Type == MsgEnd && msg.Run >= h.run:
			h.run, h.running = msg.Run, false
		case msg.Type != MsgEnd && msg.Run > h.run:
			h.run, h.running = msg.Run, true
		}
		fresh := msg.Type != MsgRestart && msg.Epoch >= h.epoch
		if fresh {
			mergeState(h.g, msg.Nodes)
		}
		hooks := h.hooks
		h.mu.Unlock()

		if msg.Type == MsgTick && fresh && hooks.OnTick != nil {
			hooks.OnTick()
		}
		if msg.Type == MsgEnd && hooks.OnEnd != nil {
			hooks.OnEnd(simulation.EndReason(msg.Reason))
		}
		return
	}

	h.pendingMu.Lock()
	ch, ok := h.pending[msg.RequestID]
	h.pendingMu.Unlock()
	if ok {
		select {
		case ch <- msg:
		default:
		}
		return
	}
	if msg.Type != MsgError {
		return
	}
	h.logger.Warn("worker reported error", logging.String("error", msg.Error))

	// a failed init leaves nothing running for this gen
	h.mu.Lock()
	failed := msg.RequestID != "" && msg.RequestID == h.gen && h.running
	if failed {
		h.running = false
	}
	hooks := h.hooks
	h.mu.Unlock()
	if failed && hooks.OnEnd != nil {
		hooks.OnEnd(simulation.EndStopped)
	}
}
