package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/parallel"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// ForceLayout implements the force-directed layout: link, many-body,
// centering and collision forces on a live simulation.
type ForceLayout struct {
	cfg    Config
	logger logging.Logger
	pool   *parallel.WorkerPool
}

// Kind implements Layout
func (fl *ForceLayout) Kind() Kind { return KindForce }

// Apply releases fixed-layout pins, seeds positions when the graph has none
// and returns the configured simulation.
func (fl *ForceLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	if g == nil || g.Len() == 0 {
		return nil, nil
	}
	cx, cy := viewportCenter(width, height)
	releaseFixedPins(g)
	if needsSeeding(g.Nodes) {
		simulation.PlaceSpiral(g.Nodes, cx, cy)
	}

	sim, err := simulation.New(g.Nodes, fl.cfg.Simulation, fl.logger)
	if err != nil {
		return nil, err
	}
	installBaseForces(sim, g, fl.cfg.Force, fl.cfg.Simulation, fl.pool)
	sim.SetForce("center", simulation.NewCenter(cx, cy, fl.cfg.Force.CenterStrength))

	fl.logger.Debug("force layout prepared", logging.Count(g.Len()))
	return sim, nil
}

// installBaseForces adds the link, charge and collision forces shared by
// the force and clustered layouts.
func installBaseForces(sim *simulation.Simulation, g *graph.Graph, fc ForceConfig, sc simulation.Config, pool *parallel.WorkerPool) {
	sim.SetForce("link", simulation.NewLink(g.Edges, fc.LinkDistance))

	charge := simulation.NewManyBody(fc.ChargeStrength)
	charge.DistanceMin = fc.ChargeDistanceMin
	if fc.ChargeDistanceMax > 0 {
		charge.DistanceMax = fc.ChargeDistanceMax
	} else {
		charge.DistanceMax = math.Inf(1)
	}
	charge.ParallelThreshold = sc.ParallelThreshold
	charge.Pool = pool
	sim.SetForce("charge", charge)

	sim.SetForce("collide", simulation.NewCollide(fc.CollidePadding, fc.CollideStrength))
}
