package simhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.nanomsg.org/mangos/v3"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// pollInterval bounds how long a Recv blocks before the loop rechecks for
// shutdown.
const pollInterval = 100 * time.Millisecond

// Worker is the background side of the worker protocol. It owns its own
// copy of the graph and simulation; the host only ever sees messages.
type Worker struct {
	sock    *pairSocket
	host    *InProcessHost
	logger  logging.Logger
	metrics *metrics.Registry

	mu  sync.Mutex
	gen string // RequestID of the init that produced the current graph

	epoch atomic.Int64 // highest host epoch applied

	closeOnce sync.Once
}

// NewWorker creates a worker. Call Listen, then Serve.
func NewWorker(cfg Config, logger logging.Logger, reg *metrics.Registry) (*Worker, error) {
	logger = logging.OrNop(logger).With(logging.Component("worker"))
	reg = metrics.OrDefault(reg)

	sock, err := newPairSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.SetRecvDeadline(pollInterval); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetSendDeadline(cfg.SendTimeout); err != nil {
		sock.Close()
		return nil, err
	}

	host, err := newInProcessHost(cfg, logger, reg, ModeWorker)
	if err != nil {
		sock.Close()
		return nil, err
	}

	return &Worker{sock: sock, host: host, logger: logger, metrics: reg}, nil
}

// Listen binds the worker to a mangos address such as inproc://name or
// tcp://127.0.0.1:7070.
func (w *Worker) Listen(addr string) error {
	if err := w.sock.Listen(addr); err != nil {
		return fmt.Errorf("worker listen %s: %w", addr, err)
	}
	w.logger.Info("worker listening", logging.String("address", addr))
	return nil
}

// Serve handles messages until ctx is cancelled or the worker is closed
func (w *Worker) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, err := w.sock.RecvMessage()
		if err != nil {
			switch {
			case errors.Is(err, mangos.ErrRecvTimeout):
				continue
			case errors.Is(err, mangos.ErrClosed):
				return nil
			}
			w.logger.Warn("worker dropped malformed message", logging.Error(err))
			continue
		}
		w.metrics.RecordWorkerMessage("in", msg.Type)
		w.handle(ctx, msg)
	}
}

func (w *Worker) handle(ctx context.Context, msg *Message) {
	switch msg.Type {
	case MsgPing:
		w.reply(&Message{Type: MsgPong, RequestID: msg.RequestID})

	case MsgInit:
		var data InitData
		if err := msg.Decode(&data); err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		g := graphFromInit("worker", data)
		w.mu.Lock()
		w.gen = msg.RequestID
		w.mu.Unlock()
		gen := msg.RequestID
		err := w.host.Start(ctx, g, data.Config, Hooks{
			onRunTick: func(run int64) { w.sendTick(gen, run) },
			onRunEnd:  func(run int64, reason simulation.EndReason) { w.sendEnd(gen, run, reason) },
		})
		if err != nil {
			w.replyError(msg.RequestID, err)
		}

	case MsgDrag:
		var ev DragEvent
		if err := msg.Decode(&ev); err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		before, _ := w.host.runState()
		if err := w.host.Drag(ev); err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		w.advance(msg.Epoch)
		if run, running := w.host.runState(); running && run > before {
			w.mu.Lock()
			gen := w.gen
			w.mu.Unlock()
			w.reply(&Message{Type: MsgRestart, RequestID: gen, Run: run, Epoch: w.epoch.Load()})
		}

	case MsgRestore:
		n, err := w.host.Restore(func(g *graph.Graph) int {
			mergeState(g, msg.Nodes)
			return len(msg.Nodes)
		})
		if err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		w.advance(msg.Epoch)
		w.logger.Debug("layout restored", logging.Count(n))
		w.reply(&Message{Type: MsgRestored, RequestID: msg.RequestID, Epoch: w.epoch.Load()})

	case MsgCentrality:
		c, err := w.host.Centrality(ctx)
		if err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		w.reply(&Message{Type: MsgCentralityResult, RequestID: msg.RequestID, Centrality: c})

	case MsgCommunities:
		c, err := w.host.Communities(ctx)
		if err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		w.reply(&Message{Type: MsgCommunitiesResult, RequestID: msg.RequestID, Communities: c})

	case MsgShortest:
		path, ok, err := w.host.ShortestPath(ctx, msg.SourceID, msg.TargetID)
		if err != nil {
			w.replyError(msg.RequestID, err)
			return
		}
		w.reply(&Message{Type: MsgShortestResult, RequestID: msg.RequestID, Path: path, Found: ok})

	case MsgStop:
		w.host.Stop()

	default:
		w.replyError(msg.RequestID, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

// advance records that every host change up to epoch has been applied
func (w *Worker) advance(epoch int64) {
	for {
		cur := w.epoch.Load()
		if epoch <= cur || w.epoch.CompareAndSwap(cur, epoch) {
			return
		}
	}
}

// capture snapshots node state. The epoch is read first, so the states are
// at least as new as the epoch claims.
func (w *Worker) capture() (int64, []NodeState) {
	epoch := w.epoch.Load()
	var states []NodeState
	w.host.Read(func() {
		if w.host.g != nil {
			states = captureState(w.host.g.Nodes)
		}
	})
	return epoch, states
}

func (w *Worker) sendTick(gen string, run int64) {
	epoch, states := w.capture()
	w.reply(&Message{Type: MsgTick, RequestID: gen, Nodes: states, Epoch: epoch, Run: run})
}

func (w *Worker) sendEnd(gen string, run int64, reason simulation.EndReason) {
	epoch, states := w.capture()
	w.reply(&Message{Type: MsgEnd, RequestID: gen, Nodes: states, Reason: string(reason), Epoch: epoch, Run: run})
}

func (w *Worker) reply(m *Message) {
	if err := w.sock.SendMessage(m); err != nil {
		if !errors.Is(err, mangos.ErrClosed) {
			w.logger.Warn("worker send failed", logging.String("type", m.Type), logging.Error(err))
		}
		return
	}
	w.metrics.RecordWorkerMessage("out", m.Type)
}

func (w *Worker) replyError(requestID string, err error) {
	w.logger.Warn("worker request failed", logging.Error(err))
	w.reply(&Message{Type: MsgError, RequestID: requestID, Error: err.Error()})
}

// Close stops the simulation and closes the socket. Serve returns.
func (w *Worker) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.host.Close()
		err = w.sock.Close()
	})
	return err
}
