package interaction

import (
	"context"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/saga-graph/pkg/algorithms"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// fakeHost applies drags directly to the graph
type fakeHost struct {
	mu     sync.Mutex
	g      *graph.Graph
	events []simhost.DragEvent
}

func (h *fakeHost) Drag(ev simhost.DragEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.g.Node(ev.NodeID)
	if !ok {
		return simhost.ErrUnknownNode
	}
	h.events = append(h.events, ev)
	switch ev.Phase {
	case simhost.DragStart, simhost.DragMove:
		n.Pin(ev.X, ev.Y)
	case simhost.DragRelease:
		n.Unpin()
	}
	return nil
}

func (h *fakeHost) ShortestPath(_ context.Context, a, b string) ([]string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := algorithms.ShortestPath(h.g, a, b)
	return p, ok, nil
}

func (h *fakeHost) Read(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func (h *fakeHost) phases() []simhost.DragPhase {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]simhost.DragPhase, len(h.events))
	for i, ev := range h.events {
		out[i] = ev.Phase
	}
	return out
}

// testGraph: a(0,0) - b(100,0) - c(200,0); d(0,200) isolated; e has a URL
func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	p := &graph.Payload{
		Nodes: []graph.NodeData{
			{ID: "a", Type: "character"},
			{ID: "b", Type: "character"},
			{ID: "c", Type: "location"},
			{ID: "d", Type: "event"},
			{ID: "e", Type: "artifact", URL: "https://example.org/e"},
		},
		Edges: []graph.EdgeData{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}
	g, issues := graph.Build("test", p, nil)
	if len(issues) > 0 {
		t.Fatal(issues)
	}
	pos := map[string][2]float64{"a": {0, 0}, "b": {100, 0}, "c": {200, 0}, "d": {0, 200}, "e": {300, 300}}
	for _, n := range g.Nodes {
		n.X, n.Y = pos[n.ID][0], pos[n.ID][1]
	}
	return g
}

type recorder struct {
	mu       sync.Mutex
	notices  []string
	layouts  []visualization.Kind
	navigate []string
	saves    int
	redraws  int
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnNavigate: func(url string) { r.mu.Lock(); r.navigate = append(r.navigate, url); r.mu.Unlock() },
		OnSwitchLayout: func(k visualization.Kind) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.layouts = append(r.layouts, k)
			return nil
		},
		OnSave:   func() error { r.mu.Lock(); r.saves++; r.mu.Unlock(); return nil },
		OnRedraw: func() { r.mu.Lock(); r.redraws++; r.mu.Unlock() },
	}
}

func newController(t *testing.T, cfg Config) (*Controller, *fakeHost, *recorder, *graph.Graph) {
	t.Helper()
	g := testGraph(t)
	host := &fakeHost{g: g}
	rec := &recorder{}
	c, err := New(cfg, host, g, 800, 600, rec, rec.callbacks(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return c, host, rec, g
}

func node(g *graph.Graph, id string) *graph.Node {
	n, _ := g.Node(id)
	return n
}

func TestMultiSelectToggle(t *testing.T) {
	c, _, _, _ := newController(t, DefaultConfig())

	c.Click("a", Modifiers{})
	c.Click("b", Modifiers{Shift: true})
	if got := c.Selection(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("expected {a, b}, got %v", got)
	}
	c.Click("a", Modifiers{Shift: true})
	if got := c.Selection(); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("expected {b}, got %v", got)
	}
}

func TestSingleSelectWithoutMultiSelect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiSelect = false
	c, _, _, g := newController(t, cfg)

	c.Click("a", Modifiers{})
	c.Click("b", Modifiers{Shift: true})
	if got := c.Selection(); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("expected {b}, got %v", got)
	}
	if node(g, "a").Selected {
		t.Error("a should no longer be selected")
	}
}

func TestSelectDimsUnconnected(t *testing.T) {
	c, _, _, g := newController(t, DefaultConfig())
	c.Click("a", Modifiers{})

	if !node(g, "a").Selected || node(g, "a").Dimmed {
		t.Error("a should be selected and not dimmed")
	}
	if node(g, "b").Dimmed {
		t.Error("neighbour b should stay visible")
	}
	if !node(g, "c").Dimmed || !node(g, "d").Dimmed {
		t.Error("unconnected nodes should be dimmed")
	}
	if g.Edges[1].Opacity != DefaultConfig().DimOpacity {
		t.Error("edge b-c should be dimmed")
	}

	c.Click("", Modifiers{})
	if len(c.Selection()) != 0 || node(g, "c").Dimmed {
		t.Error("background click should clear selection and dimming")
	}
}

func TestClickNavigatesWhenNodeHasURL(t *testing.T) {
	c, _, rec, _ := newController(t, DefaultConfig())
	c.Click("e", Modifiers{})
	if len(rec.navigate) != 1 || rec.navigate[0] != "https://example.org/e" {
		t.Errorf("expected navigation, got %v", rec.navigate)
	}
	if len(c.Selection()) != 0 {
		t.Error("navigation must not select")
	}

	cfg := DefaultConfig()
	cfg.NavigateOnClick = false
	c, _, rec, _ = newController(t, cfg)
	c.Click("e", Modifiers{})
	if len(rec.navigate) != 0 || !slices.Equal(c.Selection(), []string{"e"}) {
		t.Error("with navigation off a click selects")
	}
}

func TestPointerDragPinsThroughTransform(t *testing.T) {
	c, host, _, g := newController(t, DefaultConfig())
	c.Viewport(func(v *Viewport) {
		v.T.K, v.T.X, v.T.Y = 2, 50, 20
	})
	// b at world (100, 0) is at screen (250, 20)
	c.PointerDown(250, 20, ButtonLeft, Modifiers{})
	if c.State() != StateSelecting {
		t.Fatalf("expected selecting, got %s", c.State())
	}
	c.PointerMove(251, 21)
	if c.State() != StateSelecting {
		t.Fatal("movement under the threshold must not start a drag")
	}
	c.PointerMove(310, 80)
	if c.State() != StateDragging {
		t.Fatalf("expected dragging, got %s", c.State())
	}
	c.PointerUp(310, 80)

	want := []simhost.DragPhase{simhost.DragStart, simhost.DragMove, simhost.DragEnd}
	if got := host.phases(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	b := node(g, "b")
	if !b.IsFixed() || b.X != 130 || b.Y != 30 {
		t.Errorf("expected b pinned at (130, 30), got (%v, %v) fixed=%v", b.X, b.Y, b.IsFixed())
	}
	if len(c.Selection()) != 0 {
		t.Error("a drag is not a click")
	}

	// double-click releases
	c.DoubleClick(310, 80)
	if b.IsFixed() {
		t.Error("double-click should release the pin")
	}
}

func TestBackgroundDragPans(t *testing.T) {
	c, _, _, _ := newController(t, DefaultConfig())
	c.PointerDown(500, 500, ButtonLeft, Modifiers{})
	c.PointerMove(510, 500)
	c.PointerMove(530, 480)
	if c.State() != StatePanning {
		t.Fatalf("expected panning, got %s", c.State())
	}
	c.PointerUp(530, 480)
	c.Viewport(func(v *Viewport) {
		if v.T.X != 30 || v.T.Y != -20 {
			t.Errorf("expected pan (30, -20), got (%v, %v)", v.T.X, v.T.Y)
		}
	})
	if c.State() != StateIdle {
		t.Error("pointer up should return to idle")
	}
}

func TestHover(t *testing.T) {
	c, _, rec, _ := newController(t, DefaultConfig())
	c.PointerMove(101, 1)
	if c.Hovered() != "b" || c.State() != StateHovering {
		t.Errorf("expected hovering b, got %q %s", c.Hovered(), c.State())
	}
	c.PointerMove(150, 150)
	if c.Hovered() != "" || c.State() != StateIdle {
		t.Error("expected idle over background")
	}
	if rec.redraws != 2 {
		t.Errorf("expected 2 redraws, got %d", rec.redraws)
	}
}

func TestWheelZoomsAboutPointer(t *testing.T) {
	c, _, _, _ := newController(t, DefaultConfig())
	var wx, wy float64
	c.Viewport(func(v *Viewport) { wx, wy = v.ScreenToWorld(200, 100) })
	c.Wheel(200, 100, -100)
	c.Viewport(func(v *Viewport) {
		if math.Abs(v.Zoom()-1.2) > 1e-9 {
			t.Errorf("expected zoom 1.2, got %v", v.Zoom())
		}
		x, y := v.ScreenToWorld(200, 100)
		if math.Abs(x-wx) > 1e-9 || math.Abs(y-wy) > 1e-9 {
			t.Error("point under the pointer moved")
		}
	})
	for i := 0; i < 50; i++ {
		c.Wheel(0, 0, -500)
	}
	c.Viewport(func(v *Viewport) {
		if v.Zoom() != DefaultConfig().MaxZoom {
			t.Errorf("zoom not clamped: %v", v.Zoom())
		}
	})
}

func TestFindPathHighlightsAndDims(t *testing.T) {
	c, _, rec, g := newController(t, DefaultConfig())
	path, ok := c.FindPath(context.Background(), "a", "c")
	if !ok || !slices.Equal(path, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected path %v", path)
	}
	for _, id := range path {
		if !node(g, id).Highlighted {
			t.Errorf("%s should be highlighted", id)
		}
	}
	if !node(g, "d").Dimmed {
		t.Error("off-path nodes should be dimmed")
	}
	for _, e := range g.Edges {
		if !e.Highlighted {
			t.Errorf("edge %s-%s should be highlighted", e.Source, e.Target)
		}
	}

	_, ok = c.FindPath(context.Background(), "a", "d")
	if ok {
		t.Fatal("a and d are disconnected")
	}
	if c.Path() != nil || node(g, "b").Highlighted {
		t.Error("no path must clear the highlight")
	}
	if len(rec.notices) != 1 || rec.notices[0] != NoPathMessage {
		t.Errorf("expected %q notice, got %v", NoPathMessage, rec.notices)
	}
}

func TestPathFromMenu(t *testing.T) {
	c, _, _, _ := newController(t, DefaultConfig())
	if err := c.Invoke(context.Background(), "a", ActionPathFrom); err != nil {
		t.Fatal(err)
	}
	if c.PendingPathSource() != "a" {
		t.Fatal("path source not armed")
	}
	c.Click("c", Modifiers{})
	if got := c.Path(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("expected path a-b-c, got %v", got)
	}
	if c.PendingPathSource() != "" {
		t.Error("path source should be consumed")
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	c, _, rec, _ := newController(t, DefaultConfig())

	if c.KeyPress(KeyEvent{Key: "h", InputFocused: true}) {
		t.Error("keys are ignored while an input has focus")
	}
	for _, key := range []string{"f", "h", "c", "r", "g", "k"} {
		if !c.KeyPress(KeyEvent{Key: key}) {
			t.Errorf("key %q not consumed", key)
		}
	}
	want := []visualization.Kind{
		visualization.KindForce, visualization.KindHierarchical, visualization.KindCircular,
		visualization.KindRadial, visualization.KindGrid, visualization.KindClustered,
	}
	if !slices.Equal(rec.layouts, want) {
		t.Errorf("expected %v, got %v", want, rec.layouts)
	}

	c.KeyPress(KeyEvent{Key: "s"})
	if rec.saves != 1 {
		t.Error("s should save the layout")
	}

	c.Click("a", Modifiers{})
	c.KeyPress(KeyEvent{Key: "Escape"})
	if len(c.Selection()) != 0 {
		t.Error("Escape should clear the selection")
	}

	c.KeyPress(KeyEvent{Key: "+"})
	c.Viewport(func(v *Viewport) {
		if v.Zoom() <= 1 {
			t.Error("+ should zoom in")
		}
	})
	c.KeyPress(KeyEvent{Key: "0"})
	c.Viewport(func(v *Viewport) {
		if v.Zoom() != 1 || v.T.X != 0 {
			t.Error("0 should reset the view")
		}
	})
	if c.KeyPress(KeyEvent{Key: "q"}) {
		t.Error("unbound keys are not consumed")
	}
}

func TestContextMenuPinRelease(t *testing.T) {
	c, _, _, g := newController(t, DefaultConfig())
	if m := c.PointerDown(150, 150, ButtonRight, Modifiers{}); m != nil {
		t.Error("background has no menu")
	}
	m := c.PointerDown(0, 0, ButtonRight, Modifiers{})
	if m == nil || m.NodeID != "a" {
		t.Fatalf("expected menu for a, got %+v", m)
	}
	if last := m.Items[len(m.Items)-1]; last.Action != ActionPin {
		t.Errorf("unpinned node should offer pin, got %s", last.Action)
	}

	if err := c.Invoke(context.Background(), "a", ActionPin); err != nil {
		t.Fatal(err)
	}
	if !node(g, "a").IsFixed() {
		t.Fatal("pin action should fix the node")
	}
	m = c.MenuFor("a")
	if last := m.Items[len(m.Items)-1]; last.Action != ActionRelease {
		t.Errorf("pinned node should offer release, got %s", last.Action)
	}
	if err := c.Invoke(context.Background(), "a", ActionRelease); err != nil {
		t.Fatal(err)
	}
	if node(g, "a").IsFixed() {
		t.Error("release should clear the pin")
	}
	if err := c.Invoke(context.Background(), "a", "explode"); err == nil {
		t.Error("unknown action should fail")
	}
}

func TestCollapseAndExpand(t *testing.T) {
	c, _, _, g := newController(t, DefaultConfig())
	// a is b's only other neighbour besides c; c hangs off b only
	if n := c.Collapse("b"); n != 2 {
		t.Errorf("expected 2 hidden, got %d", n)
	}
	if !node(g, "a").Hidden || !node(g, "c").Hidden || node(g, "b").Hidden {
		t.Error("collapse hides leaf neighbours only")
	}
	if c.MenuFor("a") != nil {
		t.Error("hidden nodes have no menu")
	}
	if n := c.ExpandNeighbors("b"); n != 2 {
		t.Errorf("expected 2 shown, got %d", n)
	}
	if node(g, "a").Hidden {
		t.Error("expand should show neighbours")
	}
}

func TestFocusCentersNode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FocusDuration = 20 * time.Millisecond
	cfg.FrameInterval = time.Millisecond
	c, _, _, _ := newController(t, cfg)

	if err := c.Invoke(context.Background(), "c", ActionFocus); err != nil {
		t.Fatal(err)
	}
	c.Viewport(func(v *Viewport) {
		sx, sy := v.WorldToScreen(200, 0)
		if math.Abs(sx-400) > 1e-6 || math.Abs(sy-300) > 1e-6 {
			t.Errorf("focused node at (%v, %v), want centre", sx, sy)
		}
		if v.Zoom() != cfg.FocusZoom {
			t.Errorf("expected zoom %v, got %v", cfg.FocusZoom, v.Zoom())
		}
	})
	if err := c.Focus(context.Background(), "nope"); err == nil {
		t.Error("unknown node should fail")
	}
}

func TestFocusYieldsToUserZoom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FocusDuration = 500 * time.Millisecond
	cfg.FrameInterval = 5 * time.Millisecond
	c, _, _, _ := newController(t, cfg)

	done := make(chan error, 1)
	go func() { done <- c.Focus(context.Background(), "c") }()
	time.Sleep(50 * time.Millisecond)

	c.ZoomBy(0.5)
	var want Viewport
	c.Viewport(func(v *Viewport) { want = *v })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("interrupted focus should not fail: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("focus did not stop")
	}
	c.Viewport(func(v *Viewport) {
		if v.T != want.T {
			t.Errorf("focus overwrote the user's zoom: got %+v, want %+v", v.T, want.T)
		}
	})
}

func TestSetGraphClearsState(t *testing.T) {
	c, _, _, _ := newController(t, DefaultConfig())
	c.Click("a", Modifiers{})
	c.SetGraph(testGraph(t))
	if len(c.Selection()) != 0 || c.Path() != nil {
		t.Error("reload must clear selection and path")
	}
}

func TestNoticesExpire(t *testing.T) {
	n := NewNotices(time.Second)
	now := time.Unix(0, 0)
	n.now = func() time.Time { return now }
	n.Notify(NoPathMessage)
	if got := n.Active(); len(got) != 1 {
		t.Fatalf("expected one notice, got %v", got)
	}
	now = now.Add(2 * time.Second)
	if got := n.Active(); len(got) != 0 {
		t.Errorf("expected expiry, got %v", got)
	}
}

func TestViewportFit(t *testing.T) {
	v := NewViewport(800, 600, 0.1, 8)
	tr := v.Fit(0, 0, 400, 300, 0)
	if math.Abs(tr.K-2) > 1e-9 {
		t.Errorf("expected zoom 2, got %v", tr.K)
	}
	v.T = tr
	if x, y := v.WorldToScreen(200, 150); math.Abs(x-400) > 1e-9 || math.Abs(y-300) > 1e-9 {
		t.Errorf("centre maps to (%v, %v)", x, y)
	}
}
