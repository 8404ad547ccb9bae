package simulation

import (
	"math/rand"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Point is a 2D position
type Point struct {
	X, Y float64
}

// Cluster pulls each node toward the center of its group with
// Strength × alpha.
type Cluster struct {
	Strength float64
	Centers  map[string]Point  // group key → center
	KeyOf    map[string]string // node id → group key

	nodes []*graph.Node
}

// NewCluster creates a cluster force
func NewCluster(strength float64, centers map[string]Point, keyOf map[string]string) *Cluster {
	return &Cluster{Strength: strength, Centers: centers, KeyOf: keyOf}
}

// Initialize binds the force to nodes
func (c *Cluster) Initialize(nodes []*graph.Node, _ *rand.Rand) {
	c.nodes = nodes
}

// Apply accelerates nodes toward their group centers
func (c *Cluster) Apply(alpha float64) {
	k := c.Strength * alpha
	for _, n := range c.nodes {
		center, ok := c.Centers[c.KeyOf[n.ID]]
		if !ok {
			continue
		}
		n.VX += (center.X - n.X) * k
		n.VY += (center.Y - n.Y) * k
	}
}
