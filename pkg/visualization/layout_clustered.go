package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/parallel"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// ClusteredLayout groups nodes around per-cluster centers placed evenly on
// a circle and lets a simulation settle each group.
type ClusteredLayout struct {
	cfg    Config
	logger logging.Logger
	pool   *parallel.WorkerPool
}

// Kind implements Layout
func (cl *ClusteredLayout) Kind() Kind { return KindClustered }

// Centers returns the cluster centers and the group key of every node
func (cl *ClusteredLayout) Centers(g *graph.Graph, width, height float64) (map[string]Position, map[string]string, error) {
	keyOf, err := algorithms.CommunityKey(g, cl.cfg.Clustered.GroupBy)
	if err != nil {
		return nil, nil, err
	}

	var keys []string
	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		k := keyOf[n.ID]
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	cx, cy := viewportCenter(width, height)
	radius := cl.cfg.Clustered.ClusterRadius
	if radius == 0 {
		radius = math.Min(width, height) / 3
	}

	centers := make(map[string]Position, len(keys))
	if len(keys) == 1 {
		centers[keys[0]] = Position{X: cx, Y: cy}
		return centers, keyOf, nil
	}
	for i, k := range keys {
		angle := 2*math.Pi*float64(i)/float64(len(keys)) - math.Pi/2
		centers[k] = Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return centers, keyOf, nil
}

// Apply seeds every node near its cluster center and returns the simulation
func (cl *ClusteredLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	if g == nil || g.Len() == 0 {
		return nil, nil
	}
	centers, keyOf, err := cl.Centers(g, width, height)
	if err != nil {
		return nil, err
	}

	releaseFixedPins(g)
	spread := cl.cfg.Clustered.SeedSpread / 10
	index := make(map[string]int, len(centers))
	for _, n := range g.Nodes {
		if n.IsFixed() {
			continue
		}
		k := keyOf[n.ID]
		x, y := simulation.Phyllotaxis(index[k])
		index[k]++
		c := centers[k]
		n.X, n.Y = c.X+x*spread, c.Y+y*spread
		n.VX, n.VY = 0, 0
	}

	sim, err := simulation.New(g.Nodes, cl.cfg.Simulation, cl.logger)
	if err != nil {
		return nil, err
	}
	installBaseForces(sim, g, cl.cfg.Force, cl.cfg.Simulation, cl.pool)
	sim.SetForce("cluster", simulation.NewCluster(cl.cfg.Clustered.ClusterStrength, centers, keyOf))

	cl.logger.Debug("clustered layout prepared",
		logging.Count(g.Len()),
		logging.Int("clusters", len(centers)))
	return sim, nil
}
