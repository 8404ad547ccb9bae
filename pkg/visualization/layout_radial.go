package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// RadialLayout puts the root at the viewport center and every other node
// on the ring matching its hop distance from the root.
type RadialLayout struct {
	cfg    Config
	logger logging.Logger
}

// Kind implements Layout
func (rl *RadialLayout) Kind() Kind { return KindRadial }

// Apply pins every node on its ring
func (rl *RadialLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	return nil, applyFixed(rl, g, width, height)
}

// Root returns the configured root when present, otherwise the node with
// the highest importance (earliest on ties).
func (rl *RadialLayout) Root(g *graph.Graph) *graph.Node {
	if id := rl.cfg.Radial.Root; id != "" {
		if n, ok := g.Node(id); ok {
			return n
		}
		rl.logger.Warn("radial root not found, using most important node", logging.NodeID(id))
	}
	var root *graph.Node
	for _, n := range g.Nodes {
		if root == nil || n.Importance > root.Importance {
			root = n
		}
	}
	return root
}

// Positions places ring r at r × RingStep. Nodes unreachable from the root
// share the ring after the outermost reachable one.
func (rl *RadialLayout) Positions(g *graph.Graph, width, height float64) (map[string]Position, error) {
	positions := make(map[string]Position)
	if g == nil || g.Len() == 0 {
		return positions, nil
	}

	root := rl.Root(g)
	hops := algorithms.HopDistances(g, root.ID)
	maxHop := 0
	for _, h := range hops {
		maxHop = max(maxHop, h)
	}

	rings := make(map[int][]*graph.Node)
	for _, n := range g.Nodes {
		h, ok := hops[n.ID]
		if !ok {
			h = maxHop + 1
		}
		rings[h] = append(rings[h], n)
	}

	cx, cy := viewportCenter(width, height)
	for h, members := range rings {
		r := float64(h) * rl.cfg.Radial.RingStep
		step := 2 * math.Pi / float64(len(members))
		for i, n := range members {
			angle := float64(i)*step - math.Pi/2
			positions[n.ID] = Position{
				X: cx + r*math.Cos(angle),
				Y: cy + r*math.Sin(angle),
			}
		}
	}
	return positions, nil
}
