package simhost

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// chainGraph links n characters in a line: c0-c1-...-c(n-1)
func chainGraph(t testing.TB, n int) *graph.Graph {
	t.Helper()
	p := &graph.Payload{}
	for i := 0; i < n; i++ {
		typ := graph.TypeCharacter
		if i%3 == 0 {
			typ = graph.TypeLocation
		}
		p.Nodes = append(p.Nodes, graph.NodeData{ID: fmt.Sprintf("c%d", i), Type: string(typ), Importance: float64(i * 10 % 100)})
		if i > 0 {
			p.Edges = append(p.Edges, graph.EdgeData{Source: fmt.Sprintf("c%d", i-1), Target: fmt.Sprintf("c%d", i), Strength: 50})
		}
	}
	g, issues := graph.Build("chain", p, nil)
	if len(issues) > 0 {
		t.Fatalf("unexpected build issues: %v", issues)
	}
	return g
}

func request(kind visualization.Kind) LayoutRequest {
	cfg := visualization.DefaultConfig()
	cfg.Simulation.FrameInterval = time.Millisecond
	return LayoutRequest{Kind: kind, Config: cfg, Width: 800, Height: 600}
}

func testConfig(mode Mode) Config {
	cfg := DefaultConfig()
	cfg.Mode = string(mode)
	cfg.ParallelWorkers = 2
	return cfg
}

func newRegistry() *metrics.Registry { return metrics.NewRegistry() }

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", msg)
}

// endSignal returns hooks whose OnEnd reports on the returned channel
func endSignal() (Hooks, <-chan string) {
	ch := make(chan string, 8)
	return Hooks{OnEnd: func(r simulation.EndReason) { ch <- string(r) }}, ch
}

func waitEnd(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(20 * time.Second):
		t.Fatal("simulation did not end")
		return ""
	}
}

func allPositioned(h Host, g *graph.Graph) bool {
	ok := true
	h.Read(func() {
		for _, n := range g.Nodes {
			if !n.HasFinitePosition() {
				ok = false
			}
		}
		x0, y0 := g.Nodes[0].X, g.Nodes[0].Y
		same := true
		for _, n := range g.Nodes[1:] {
			if n.X != x0 || n.Y != y0 {
				same = false
			}
		}
		if same {
			ok = false
		}
	})
	return ok
}

var addrSeq int64

// withAddress gives cfg a fresh inproc address
func withAddress(cfg Config) Config {
	cfg.WorkerAddress = fmt.Sprintf("inproc://simhost-test-%d", atomic.AddInt64(&addrSeq, 1))
	return cfg
}
