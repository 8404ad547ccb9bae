package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// CircularLayout arranges nodes evenly on a circle in sort order
type CircularLayout struct {
	cfg Config
}

// Kind implements Layout
func (cl *CircularLayout) Kind() Kind { return KindCircular }

// Apply pins every node on the circle
func (cl *CircularLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	return nil, applyFixed(cl, g, width, height)
}

// Positions computes the circle positions. A single node sits at StartAngle.
func (cl *CircularLayout) Positions(g *graph.Graph, width, height float64) (map[string]Position, error) {
	positions := make(map[string]Position)
	if g == nil || g.Len() == 0 {
		return positions, nil
	}

	cx, cy := viewportCenter(width, height)
	radius := cl.cfg.Circular.Radius
	if radius == 0 {
		radius = fitRadius(width, height, cl.cfg.Padding)
	}

	nodes := sortedNodes(g.Nodes, cl.cfg.Circular.SortBy)
	angleStep := 2 * math.Pi / float64(len(nodes))
	for i, n := range nodes {
		angle := cl.cfg.Circular.StartAngle + float64(i)*angleStep
		positions[n.ID] = Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return positions, nil
}
