package simulation

import (
	"math"
	"math/rand"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Collide keeps nodes from overlapping, treating each node as a circle of
// node.Radius() + Padding. Candidate pairs come from a uniform grid.
type Collide struct {
	Padding    float64
	Strength   float64
	Iterations int

	nodes []*graph.Node
	radii []float64
	rng   *rand.Rand
	cell  float64
}

// NewCollide creates a collision force
func NewCollide(padding, strength float64) *Collide {
	return &Collide{Padding: padding, Strength: strength, Iterations: 1}
}

// Initialize caches radii and the grid cell size
func (c *Collide) Initialize(nodes []*graph.Node, rng *rand.Rand) {
	c.nodes = nodes
	c.rng = rng
	c.radii = make([]float64, len(nodes))
	maxR := 0.0
	for i, n := range nodes {
		c.radii[i] = n.Radius() + c.Padding
		maxR = math.Max(maxR, c.radii[i])
	}
	c.cell = math.Max(2*maxR, 1)
}

type cellKey struct{ x, y int }

// Apply resolves overlaps on predicted positions (x + vx)
func (c *Collide) Apply(float64) {
	if len(c.nodes) < 2 {
		return
	}
	for k := 0; k < max(c.Iterations, 1); k++ {
		grid := make(map[cellKey][]int, len(c.nodes))
		for i, n := range c.nodes {
			key := c.key(n.X+n.VX, n.Y+n.VY)
			grid[key] = append(grid[key], i)
		}

		for i, node := range c.nodes {
			ri := c.radii[i]
			ri2 := ri * ri
			xi := node.X + node.VX
			yi := node.Y + node.VY
			home := c.key(xi, yi)

			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					for _, j := range grid[cellKey{home.x + dx, home.y + dy}] {
						if j <= i {
							continue
						}
						other := c.nodes[j]
						rj := c.radii[j]
						r := ri + rj
						x := xi - other.X - other.VX
						y := yi - other.Y - other.VY
						l := x*x + y*y
						if l >= r*r {
							continue
						}
						if x == 0 {
							x = jiggle(c.rng)
							l += x * x
						}
						if y == 0 {
							y = jiggle(c.rng)
							l += y * y
						}
						l = math.Sqrt(l)
						l = (r - l) / l * c.Strength
						x *= l
						y *= l
						rj2 := rj * rj
						share := rj2 / (ri2 + rj2)
						node.VX += x * share
						node.VY += y * share
						share = 1 - share
						other.VX -= x * share
						other.VY -= y * share
					}
				}
			}
		}
	}
}

func (c *Collide) key(x, y float64) cellKey {
	return cellKey{int(math.Floor(x / c.cell)), int(math.Floor(y / c.cell))}
}
