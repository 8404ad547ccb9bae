package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// GridLayout places nodes row-major in evenly sized cells
type GridLayout struct {
	cfg Config
}

// Kind implements Layout
func (gl *GridLayout) Kind() Kind { return KindGrid }

// Apply pins every node at its cell center
func (gl *GridLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	return nil, applyFixed(gl, g, width, height)
}

// Positions computes cell centers in sort order
func (gl *GridLayout) Positions(g *graph.Graph, width, height float64) (map[string]Position, error) {
	positions := make(map[string]Position)
	if g == nil || g.Len() == 0 {
		return positions, nil
	}

	nodes := sortedNodes(g.Nodes, gl.cfg.Grid.SortBy)
	cols := gl.cfg.Grid.Columns
	if cols == 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	}
	rows := (len(nodes) + cols - 1) / cols

	pad := gl.cfg.Padding
	cellW := math.Max(width-2*pad, 1) / float64(cols)
	cellH := math.Max(height-2*pad, 1) / float64(rows)

	for i, n := range nodes {
		row, col := i/cols, i%cols
		positions[n.ID] = Position{
			X: pad + (float64(col)+0.5)*cellW,
			Y: pad + (float64(row)+0.5)*cellH,
		}
	}
	return positions, nil
}
