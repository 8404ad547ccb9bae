package visualization

import (
	"fmt"
	"math"
	"testing"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

type nodeSpec struct {
	id         string
	typ        graph.EntityType
	importance float64
}

func buildGraph(t testing.TB, nodes []nodeSpec, edges [][2]string) *graph.Graph {
	t.Helper()
	p := &graph.Payload{}
	for _, n := range nodes {
		typ := n.typ
		if typ == "" {
			typ = graph.TypeCharacter
		}
		p.Nodes = append(p.Nodes, graph.NodeData{ID: n.id, Label: n.id, Type: string(typ), Importance: n.importance})
	}
	for _, e := range edges {
		p.Edges = append(p.Edges, graph.EdgeData{Source: e[0], Target: e[1], Strength: 50})
	}
	g, issues := graph.Build("test", p, nil)
	if len(issues) > 0 {
		t.Fatalf("unexpected build issues: %v", issues)
	}
	return g
}

func ids(n int) []nodeSpec {
	out := make([]nodeSpec, n)
	for i := range out {
		out[i] = nodeSpec{id: fmt.Sprintf("n%d", i)}
	}
	return out
}

// starGraph has hub "hub" (importance 90) and n leaves pointing at it
func starGraph(t testing.TB, n int) *graph.Graph {
	nodes := []nodeSpec{{id: "hub", importance: 90}}
	var edges [][2]string
	for i := 0; i < n; i++ {
		leaf := fmt.Sprintf("leaf%d", i)
		nodes = append(nodes, nodeSpec{id: leaf, importance: 10})
		edges = append(edges, [2]string{"hub", leaf})
	}
	return buildGraph(t, nodes, edges)
}

func applyAndSettle(t testing.TB, kind Kind, cfg Config, g *graph.Graph) {
	t.Helper()
	layout, err := New(kind, cfg)
	if err != nil {
		t.Fatalf("New(%s) failed: %v", kind, err)
	}
	sim, err := layout.Apply(g, 800, 600)
	if err != nil {
		t.Fatalf("Apply(%s) failed: %v", kind, err)
	}
	if sim != nil {
		sim.Settle()
	}
}

func assertFinite(t testing.TB, g *graph.Graph) {
	t.Helper()
	for _, n := range g.Nodes {
		if !n.HasFinitePosition() {
			t.Fatalf("node %s has non-finite position (%f, %f)", n.ID, n.X, n.Y)
		}
	}
}

func dist(a, b *graph.Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Simulation.FrameInterval = 0
	return cfg
}
