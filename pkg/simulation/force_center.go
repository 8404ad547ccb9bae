package simulation

import (
	"math/rand"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Center translates all nodes so that their mean position moves toward
// (X, Y) by Strength each tick. It does not change relative positions.
type Center struct {
	X, Y     float64
	Strength float64

	nodes []*graph.Node
}

// NewCenter creates a centering force
func NewCenter(x, y, strength float64) *Center {
	return &Center{X: x, Y: y, Strength: strength}
}

// Initialize binds the force to nodes
func (c *Center) Initialize(nodes []*graph.Node, _ *rand.Rand) {
	c.nodes = nodes
}

// Apply shifts positions toward the center
func (c *Center) Apply(float64) {
	n := len(c.nodes)
	if n == 0 {
		return
	}
	var sx, sy float64
	for _, node := range c.nodes {
		sx += node.X
		sy += node.Y
	}
	sx = (sx/float64(n) - c.X) * c.Strength
	sy = (sy/float64(n) - c.Y) * c.Strength
	for _, node := range c.nodes {
		node.X -= sx
		node.Y -= sy
	}
}
