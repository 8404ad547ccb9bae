package simulation

import (
	"math"
	"math/rand"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/parallel"
)

// ManyBody applies a pairwise charge between all nodes. Negative strength
// repels. Above ParallelThreshold nodes the per-node sums are computed on a
// worker pool; each worker only writes the velocities of its own chunk.
type ManyBody struct {
	Strength    float64
	DistanceMin float64
	DistanceMax float64 // +Inf means unbounded

	ParallelThreshold int
	Pool              *parallel.WorkerPool

	nodes []*graph.Node
	rng   *rand.Rand
	dvx   []float64
	dvy   []float64
}

// NewManyBody creates a many-body force with d3-style distance bounds
func NewManyBody(strength float64) *ManyBody {
	return &ManyBody{
		Strength:    strength,
		DistanceMin: 1,
		DistanceMax: math.Inf(1),
	}
}

// Initialize binds the force to nodes
func (m *ManyBody) Initialize(nodes []*graph.Node, rng *rand.Rand) {
	m.nodes = nodes
	m.rng = rng
	m.dvx = make([]float64, len(nodes))
	m.dvy = make([]float64, len(nodes))
}

// Parallel reports whether the next Apply will use the worker pool
func (m *ManyBody) Parallel() bool {
	return m.Pool != nil && m.ParallelThreshold > 0 && len(m.nodes) >= m.ParallelThreshold
}

// Apply accumulates the charge of every other node
func (m *ManyBody) Apply(alpha float64) {
	n := len(m.nodes)
	if n < 2 {
		return
	}
	if m.Parallel() {
		m.Pool.ForEachChunk(n, func(lo, hi int) {
			m.accumulate(lo, hi, alpha, nil)
		})
	} else {
		m.accumulate(0, n, alpha, m.rng)
	}
	for i, node := range m.nodes {
		node.VX += m.dvx[i]
		node.VY += m.dvy[i]
	}
}

// accumulate computes velocity deltas for nodes [lo, hi). Positions are only
// read here so chunks can run concurrently. rng is nil on worker goroutines;
// coincident nodes are then separated by a deterministic offset.
func (m *ManyBody) accumulate(lo, hi int, alpha float64, rng *rand.Rand) {
	dMin2 := m.DistanceMin * m.DistanceMin
	dMax2 := m.DistanceMax * m.DistanceMax
	for i := lo; i < hi; i++ {
		node := m.nodes[i]
		var vx, vy float64
		for j, other := range m.nodes {
			if i == j {
				continue
			}
			x := other.X - node.X
			y := other.Y - node.Y
			if x == 0 {
				x = separation(rng, i, j)
			}
			if y == 0 {
				y = separation(rng, j, i)
			}
			l := x*x + y*y
			if l >= dMax2 {
				continue
			}
			if l < dMin2 {
				l = math.Sqrt(dMin2 * l)
			}
			w := m.Strength * alpha / l
			vx += x * w
			vy += y * w
		}
		m.dvx[i] = vx
		m.dvy[i] = vy
	}
}

func separation(rng *rand.Rand, i, j int) float64 {
	if rng != nil {
		return jiggle(rng)
	}
	if i < j {
		return -1e-7
	}
	return 1e-7
}
