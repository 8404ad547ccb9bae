package simhost

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

func newInProcess(t *testing.T) *InProcessHost {
	t.Helper()
	h, err := NewInProcessHost(testConfig(ModeInProcess), nil, newRegistry())
	if err != nil {
		t.Fatalf("NewInProcessHost: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestInProcess_FixedLayoutEndsImmediately(t *testing.T) {
	h := newInProcess(t)
	g := chainGraph(t, 12)

	var ticks int32
	var reason simulation.EndReason
	err := h.Start(context.Background(), g, request(visualization.KindGrid), Hooks{
		OnTick: func() { atomic.AddInt32(&ticks, 1) },
		OnEnd:  func(r simulation.EndReason) { reason = r },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if atomic.LoadInt32(&ticks) != 1 {
		t.Errorf("fixed layout should redraw once, got %d ticks", ticks)
	}
	if reason != simulation.EndConverged {
		t.Errorf("expected converged, got %q", reason)
	}
	if h.Running() {
		t.Error("fixed layout must not run a simulation")
	}
	if !allPositioned(h, g) {
		t.Error("grid layout left nodes unpositioned")
	}
}

func TestInProcess_ForceLayoutConverges(t *testing.T) {
	h := newInProcess(t)
	g := chainGraph(t, 20)
	first := g.Nodes[0]

	hooks, ended := endSignal()
	var ticks int32
	hooks.OnTick = func() { atomic.AddInt32(&ticks, 1) }
	if err := h.Start(context.Background(), g, request(visualization.KindForce), hooks); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r := waitEnd(t, ended); r != string(simulation.EndConverged) {
		t.Errorf("expected converged, got %q", r)
	}
	if atomic.LoadInt32(&ticks) == 0 {
		t.Error("expected tick callbacks")
	}
	if g.Nodes[0] != first {
		t.Error("node identity must be preserved")
	}
	if !allPositioned(h, g) {
		t.Error("force layout left nodes unpositioned")
	}
}

func TestInProcess_UnknownLayout(t *testing.T) {
	h := newInProcess(t)
	err := h.Start(context.Background(), chainGraph(t, 3), request("spiral"), Hooks{})
	if err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestInProcess_DragPinPersists(t *testing.T) {
	h := newInProcess(t)
	g := chainGraph(t, 10)

	var ticks int32
	hooks, ended := endSignal()
	hooks.OnTick = func() { atomic.AddInt32(&ticks, 1) }
	if err := h.Start(context.Background(), g, request(visualization.KindForce), hooks); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEnd(t, ended)

	if err := h.Drag(DragEvent{NodeID: "c3", X: 400, Y: 300, Phase: DragStart}); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if err := h.Drag(DragEvent{NodeID: "c3", X: 640, Y: 480, Phase: DragMove}); err != nil {
		t.Fatalf("drag: %v", err)
	}
	before := atomic.LoadInt32(&ticks)
	eventually(t, 5*time.Second, func() bool { return atomic.LoadInt32(&ticks) > before+5 },
		"simulation should tick while dragging")

	h.Read(func() {
		n, _ := g.Node("c3")
		if n.X != 640 || n.Y != 480 {
			t.Errorf("dragged node moved to (%v, %v)", n.X, n.Y)
		}
	})

	if err := h.Drag(DragEvent{NodeID: "c3", Phase: DragEnd}); err != nil {
		t.Fatalf("drag end: %v", err)
	}
	waitEnd(t, ended)
	h.Read(func() {
		n, _ := g.Node("c3")
		if !n.IsFixed() || n.X != 640 {
			t.Error("pin must survive drag end")
		}
	})

	if err := h.Drag(DragEvent{NodeID: "c3", Phase: DragRelease}); err != nil {
		t.Fatalf("release: %v", err)
	}
	h.Read(func() {
		n, _ := g.Node("c3")
		if n.IsFixed() {
			t.Error("release must unpin")
		}
	})
	waitEnd(t, ended)
}

func TestInProcess_DragErrors(t *testing.T) {
	h := newInProcess(t)
	if err := h.Drag(DragEvent{NodeID: "x", Phase: DragStart}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if err := h.Start(context.Background(), chainGraph(t, 3), request(visualization.KindCircular), Hooks{}); err != nil {
		t.Fatal(err)
	}
	if err := h.Drag(DragEvent{NodeID: "missing", Phase: DragStart}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestInProcess_StartWithoutGraph(t *testing.T) {
	h := newInProcess(t)
	err := h.Start(context.Background(), nil, request(visualization.KindForce), Hooks{})
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestInProcess_Restore(t *testing.T) {
	h := newInProcess(t)
	pin := func(g *graph.Graph) int {
		n, _ := g.Node("c2")
		n.Pin(123, 456)
		return 1
	}
	if _, err := h.Restore(pin); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}

	g := chainGraph(t, 6)
	hooks, ended := endSignal()
	if err := h.Start(context.Background(), g, request(visualization.KindForce), hooks); err != nil {
		t.Fatal(err)
	}
	waitEnd(t, ended)

	n, err := h.Restore(pin)
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	h.Read(func() {
		c2, _ := g.Node("c2")
		if !c2.IsFixed() || c2.X != 123 || c2.Y != 456 {
			t.Errorf("restore not applied: (%v, %v)", c2.X, c2.Y)
		}
	})
}

func TestInProcess_RunningWhileDragging(t *testing.T) {
	h := newInProcess(t)
	g := chainGraph(t, 8)
	hooks, ended := endSignal()
	if err := h.Start(context.Background(), g, request(visualization.KindForce), hooks); err != nil {
		t.Fatal(err)
	}
	waitEnd(t, ended)
	if h.Running() {
		t.Fatal("settled simulation reported running")
	}

	if err := h.Drag(DragEvent{NodeID: "c1", X: 50, Y: 50, Phase: DragStart}); err != nil {
		t.Fatal(err)
	}
	if !h.Running() {
		t.Error("drag start should restart the simulation")
	}
	if err := h.Drag(DragEvent{NodeID: "c1", Phase: DragEnd}); err != nil {
		t.Fatal(err)
	}
	waitEnd(t, ended)
	if h.Running() {
		t.Error("simulation should stop after the drag ends")
	}
}

func TestInProcess_Queries(t *testing.T) {
	h := newInProcess(t)
	ctx := context.Background()
	if _, err := h.Centrality(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}

	g := chainGraph(t, 6)
	if err := h.Start(ctx, g, request(visualization.KindGrid), Hooks{}); err != nil {
		t.Fatal(err)
	}

	c, err := h.Centrality(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c["c0"] != 1 || c["c2"] != 2 {
		t.Errorf("unexpected centrality %v", c)
	}

	groups, err := h.Communities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := algorithms.CommunitiesByType(g).Groups()
	if len(groups) != len(want) {
		t.Errorf("expected %d communities, got %d", len(want), len(groups))
	}

	path, ok, err := h.ShortestPath(ctx, "c0", "c5")
	if err != nil || !ok || len(path) != 6 {
		t.Errorf("unexpected path %v ok=%v err=%v", path, ok, err)
	}
}

func TestInProcess_StopAndClose(t *testing.T) {
	h, err := NewInProcessHost(testConfig(ModeInProcess), nil, newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	req := request(visualization.KindForce)
	req.Config.Simulation.FrameInterval = 20 * time.Millisecond
	hooks, ended := endSignal()
	if err := h.Start(context.Background(), chainGraph(t, 8), req, hooks); err != nil {
		t.Fatal(err)
	}
	h.Stop()
	if r := waitEnd(t, ended); r != string(simulation.EndCancelled) && r != string(simulation.EndStopped) {
		t.Errorf("unexpected end reason %q", r)
	}
	if h.Running() {
		t.Error("Stop must wait for the run to end")
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Start(context.Background(), chainGraph(t, 3), request(visualization.KindGrid), Hooks{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
