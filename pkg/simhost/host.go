// Package simhost runs layouts and force simulations for a visualization
// session, either in-process or in a background worker reached over a
// mangos PAIR socket. The choice is made once, at construction.
package simhost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/validation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// Mode identifies where the simulation runs
type Mode string

const (
	ModeInProcess Mode = "in-process"
	ModeWorker    Mode = "worker"
)

// DragPhase is the stage of a pointer drag
type DragPhase string

const (
	DragStart   DragPhase = "start"
	DragMove    DragPhase = "drag"
	DragEnd     DragPhase = "end"
	DragRelease DragPhase = "release"
)

// DragAlphaTarget is the alpha target held while a node is being dragged,
// and the alpha a release reheats to.
const DragAlphaTarget = 0.3

var (
	// ErrNotStarted is returned by operations that need a graph
	ErrNotStarted = errors.New("simulation host has no graph")
	// ErrUnknownNode is returned when a drag names a node not in the graph
	ErrUnknownNode = errors.New("unknown node")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("simulation host closed")
)

// DragEvent moves or releases a node pin. X/Y are world coordinates.
type DragEvent struct {
	NodeID string    `json:"nodeId"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Phase  DragPhase `json:"type"`
}

// Hooks receive simulation progress. They are called without the host lock;
// use Host.Read to inspect node positions.
type Hooks struct {
	OnTick func()
	OnEnd  func(reason simulation.EndReason)

	// run-numbered variants used by the worker; they replace OnTick/OnEnd
	onRunTick func(run int64)
	onRunEnd  func(run int64, reason simulation.EndReason)
}

func (h Hooks) tick(run int64) {
	switch {
	case h.onRunTick != nil:
		h.onRunTick(run)
	case h.OnTick != nil:
		h.OnTick()
	}
}

func (h Hooks) end(run int64, reason simulation.EndReason) {
	switch {
	case h.onRunEnd != nil:
		h.onRunEnd(run, reason)
	case h.OnEnd != nil:
		h.OnEnd(reason)
	}
}

// LayoutRequest selects the layout a host applies on Start
type LayoutRequest struct {
	Kind   visualization.Kind   `json:"kind"`
	Config visualization.Config `json:"config"`
	Width  float64              `json:"width"`
	Height float64              `json:"height"`
}

// Host runs layouts and simulations over one graph at a time
type Host interface {
	Mode() Mode
	// Start applies the requested layout to g and, for simulated layouts,
	// starts ticking. A running simulation is stopped first.
	Start(ctx context.Context, g *graph.Graph, req LayoutRequest, hooks Hooks) error
	Drag(ev DragEvent) error
	Centrality(ctx context.Context) (map[string]int, error)
	Communities(ctx context.Context) (map[string][]string, error)
	ShortestPath(ctx context.Context, sourceID, targetID string) ([]string, bool, error)
	// Restore runs apply on the started graph with ticks held off, and makes
	// the positions and pins it leaves the ones the simulation continues
	// from. It returns apply's result.
	Restore(apply func(g *graph.Graph) int) (int, error)
	// Running reports whether a simulation is ticking, including runs
	// restarted by a drag after the last Start settled
	Running() bool
	// Read runs fn while no tick or drag can mutate node positions
	Read(fn func())
	// Stop halts the running simulation and waits for it to end
	Stop()
	// Close stops the simulation and releases the worker
	Close() error
}

// Config selects and tunes the host
type Config struct {
	Mode string `yaml:"mode" toml:"mode"`

	// WorkerAddress is any mangos transport address. Empty means a fresh
	// inproc:// address per host.
	WorkerAddress string `yaml:"worker_address" toml:"worker_address"`
	// SpawnWorker starts an embedded worker listening on WorkerAddress.
	// When false the host dials an external `sagagraph worker` process,
	// which holds one graph for one peer: only one session can use it.
	SpawnWorker bool `yaml:"spawn_worker" toml:"spawn_worker"`

	DialTimeout  time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout" toml:"query_timeout"`
	SendTimeout  time.Duration `yaml:"send_timeout" toml:"send_timeout"`
	// ParallelWorkers sizes the pool used by the many-body force; 0 disables it
	ParallelWorkers int `yaml:"parallel_workers" toml:"parallel_workers"`
}

// DefaultConfig prefers an embedded worker over inproc://
func DefaultConfig() Config {
	return Config{
		Mode:            string(ModeWorker),
		SpawnWorker:     true,
		DialTimeout:     2 * time.Second,
		QueryTimeout:    5 * time.Second,
		SendTimeout:     time.Second,
		ParallelWorkers: 4,
	}
}

// Validate checks the host configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("SimHost").
		OneOf("Mode", c.Mode, []string{string(ModeWorker), string(ModeInProcess)}).
		MinDuration("DialTimeout", c.DialTimeout, time.Millisecond).
		MinDuration("QueryTimeout", c.QueryTimeout, time.Millisecond).
		MinDuration("SendTimeout", c.SendTimeout, time.Millisecond).
		NonNegative("ParallelWorkers", c.ParallelWorkers).
		Validate()
}

// New returns a worker host when the configuration asks for one and the
// worker can be reached, otherwise an in-process host. A worker that cannot
// be constructed is logged at WARN and counted; it is never fatal.
func New(cfg Config, logger logging.Logger, reg *metrics.Registry) (Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).With(logging.Component("simhost"))
	reg = metrics.OrDefault(reg)

	if Mode(cfg.Mode) == ModeInProcess {
		return NewInProcessHost(cfg, logger, reg)
	}

	if cfg.WorkerAddress == "" {
		cfg.WorkerAddress = "inproc://sagagraph-worker-" + uuid.NewString()
	}
	wh, err := NewWorkerHost(cfg, logger, reg)
	if err == nil {
		return wh, nil
	}

	logger.Warn("worker unavailable, running simulation in-process",
		logging.String("address", cfg.WorkerAddress),
		logging.Error(err))
	reg.RecordWorkerFallback("construct")
	return NewInProcessHost(cfg, logger, reg)
}

func requireGraph(g *graph.Graph) error {
	if g == nil {
		return ErrNotStarted
	}
	return nil
}

func unknownNode(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownNode, id)
}
