package simulation

import (
	"math"
	"math/rand"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Link pulls connected nodes toward Distance. Strength defaults per edge to
// 1/min(degree(source), degree(target)) and the correction is split between
// endpoints by degree.
type Link struct {
	Distance   float64
	Strength   func(e *graph.Edge) float64 // nil = degree based
	Iterations int

	edges     []*graph.Edge
	strengths []float64
	bias      []float64
	rng       *rand.Rand
}

// NewLink creates a link force over edges with the given rest distance
func NewLink(edges []*graph.Edge, distance float64) *Link {
	return &Link{Distance: distance, Iterations: 1, edges: edges}
}

// Initialize precomputes degree based strengths and biases
func (l *Link) Initialize(nodes []*graph.Node, rng *rand.Rand) {
	l.rng = rng
	count := make(map[*graph.Node]int, len(nodes))
	for _, e := range l.edges {
		if e.From == nil || e.To == nil {
			continue
		}
		count[e.From]++
		count[e.To]++
	}

	l.strengths = make([]float64, len(l.edges))
	l.bias = make([]float64, len(l.edges))
	for i, e := range l.edges {
		if e.From == nil || e.To == nil {
			continue
		}
		cs, ct := count[e.From], count[e.To]
		l.bias[i] = float64(cs) / float64(cs+ct)
		if l.Strength != nil {
			l.strengths[i] = l.Strength(e)
		} else {
			l.strengths[i] = 1 / float64(min(cs, ct))
		}
	}
}

// Apply nudges endpoint velocities toward the rest distance
func (l *Link) Apply(alpha float64) {
	iterations := max(l.Iterations, 1)
	for k := 0; k < iterations; k++ {
		for i, e := range l.edges {
			source, target := e.From, e.To
			if source == nil || target == nil || source == target {
				continue
			}
			x := target.X + target.VX - source.X - source.VX
			y := target.Y + target.VY - source.Y - source.VY
			if x == 0 {
				x = jiggle(l.rng)
			}
			if y == 0 {
				y = jiggle(l.rng)
			}
			d := math.Sqrt(x*x + y*y)
			d = (d - l.Distance) / d * alpha * l.strengths[i]
			x *= d
			y *= d

			b := l.bias[i]
			target.VX -= x * b
			target.VY -= y * b
			b = 1 - b
			source.VX += x * b
			source.VY += y * b
		}
	}
}
