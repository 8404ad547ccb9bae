package visualization

import (
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/parallel"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// Kind names a layout family
type Kind string

const (
	KindForce        Kind = "force"
	KindHierarchical Kind = "hierarchical"
	KindCircular     Kind = "circular"
	KindRadial       Kind = "radial"
	KindGrid         Kind = "grid"
	KindClustered    Kind = "clustered"
)

// Position represents a 2D coordinate
type Position = simulation.Point

// Layout positions the nodes of a graph inside a width × height viewport.
// Simulated layouts return the live simulation for a host to run; fixed
// layouts pin every node and return nil.
type Layout interface {
	Kind() Kind
	Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error)
}

// FixedLayout is a layout whose result is a deterministic set of positions.
// Positions computes them without touching the nodes, so callers can animate
// toward the result before pinning.
type FixedLayout interface {
	Layout
	Positions(g *graph.Graph, width, height float64) (map[string]Position, error)
}

// Option configures layout construction
type Option func(*options)

type options struct {
	logger logging.Logger
	pool   *parallel.WorkerPool
}

// WithLogger sets the logger used by the layout
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPool shares a worker pool with the many-body force of simulated layouts
func WithPool(p *parallel.WorkerPool) Option {
	return func(o *options) { o.pool = p }
}
