package viewer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/render"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

func testConfig(mode simhost.Mode) Config {
	cfg := DefaultConfig()
	cfg.Host.Mode = string(mode)
	cfg.Host.ParallelWorkers = 2
	cfg.Layout.Simulation.FrameInterval = time.Millisecond
	cfg.TransitionDuration = 30 * time.Millisecond
	cfg.FrameInterval = 5 * time.Millisecond
	cfg.Loader.Kind = loader.KindStatic
	cfg.Loader.Backoff = time.Millisecond
	cfg.Loader.MaxBackoff = time.Millisecond
	return cfg
}

func starPayload() *graph.Payload {
	p := &graph.Payload{Nodes: []graph.NodeData{{ID: "hub", Label: "Aria", Type: "character", Importance: 90}}}
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("leaf%d", i)
		p.Nodes = append(p.Nodes, graph.NodeData{ID: id, Label: id, Type: "location", Importance: 30})
		p.Edges = append(p.Edges, graph.EdgeData{Source: "hub", Target: id, Relationship: "visits", Strength: 50})
	}
	return p
}

func treePayload() *graph.Payload {
	p := &graph.Payload{}
	add := func(id string) {
		p.Nodes = append(p.Nodes, graph.NodeData{ID: id, Type: "faction", Importance: 50})
	}
	link := func(a, b string) {
		p.Edges = append(p.Edges, graph.EdgeData{Source: a, Target: b, Relationship: "commands", Strength: 60})
	}
	add("root")
	for _, c := range []string{"c1", "c2"} {
		add(c)
		link("root", c)
		for j := 1; j <= 2; j++ {
			gc := fmt.Sprintf("%s-g%d", c, j)
			add(gc)
			link(c, gc)
		}
	}
	return p
}

func newSession(t *testing.T, cfg Config, src loader.Source, store layoutstore.Store, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithMetrics(metrics.NewRegistry())}, opts...)
	s, err := NewSession("test", "saga", src, store, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Destroy() })
	return s
}

func waitSettled(t *testing.T, s *Session) simulation.EndReason {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reason, err := s.WaitSettled(ctx)
	require.NoError(t, err, "layout did not settle")
	return reason
}

func positions(s *Session) map[string][2]float64 {
	out := map[string][2]float64{}
	s.Host().Read(func() {
		for _, n := range s.Graph().Nodes {
			out[n.ID] = [2]float64{n.X, n.Y}
		}
	})
	return out
}

func TestSession_StarGraphLeavesEquidistant(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeWorker), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, string(simulation.EndConverged), string(waitSettled(t, s)))

	pos := positions(s)
	hub := pos["hub"]
	var dists []float64
	for i := 1; i <= 4; i++ {
		p := pos[fmt.Sprintf("leaf%d", i)]
		require.False(t, math.IsNaN(p[0]) || math.IsNaN(p[1]))
		dists = append(dists, math.Hypot(p[0]-hub[0], p[1]-hub[1]))
	}
	lo, hi := dists[0], dists[0]
	for _, d := range dists {
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	assert.Less(t, (hi-lo)/hi, 0.1, "leaf distances %v", dists)

	for i := 1; i <= 4; i++ {
		for j := i + 1; j <= 4; j++ {
			a, b := pos[fmt.Sprintf("leaf%d", i)], pos[fmt.Sprintf("leaf%d", j)]
			assert.Greater(t, math.Hypot(a[0]-b[0], a[1]-b[1]), 1.0, "leaf%d and leaf%d coincide", i, j)
		}
	}

	st := s.Status()
	assert.Equal(t, StateReady, st.State)
	assert.True(t, st.Settled)
	assert.Equal(t, 5, st.Nodes)
	assert.Equal(t, 4, st.Edges)
}

func TestSession_HierarchicalTreeLevels(t *testing.T) {
	cfg := testConfig(simhost.ModeInProcess)
	cfg.DefaultLayout = string(visualization.KindHierarchical)
	s := newSession(t, cfg, loader.NewStaticSource("tree", treePayload()), nil)
	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)

	pos := positions(s)
	levels := [][]string{
		{"root"},
		{"c1", "c2"},
		{"c1-g1", "c1-g2", "c2-g1", "c2-g2"},
	}
	for l := 1; l < len(levels); l++ {
		for _, child := range levels[l] {
			for _, parent := range levels[l-1] {
				assert.Greater(t, pos[child][1], pos[parent][1], "%s should be deeper than %s", child, parent)
			}
		}
	}
	for _, level := range levels {
		seen := map[float64]string{}
		for _, id := range level {
			x := pos[id][0]
			if other, dup := seen[x]; dup {
				t.Errorf("%s and %s share x=%v", id, other, x)
			}
			seen[x] = id
		}
	}
}

func TestSession_WorkerFallback(t *testing.T) {
	cfg := testConfig(simhost.ModeWorker)
	cfg.Host.WorkerAddress = "bogus://nowhere"
	s := newSession(t, cfg, loader.NewStaticSource("star", starPayload()), nil)
	assert.Equal(t, simhost.ModeInProcess, s.Host().Mode())

	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)
	for id, p := range positions(s) {
		assert.False(t, math.IsNaN(p[0]) || math.IsInf(p[0], 0) || math.IsNaN(p[1]) || math.IsInf(p[1], 0), "node %s", id)
	}

	var buf bytes.Buffer
	mode, err := s.Render(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, render.ModeScene, mode)
	assert.Contains(t, buf.String(), "<svg")
}

func TestSession_LoadFailureIsRetryable(t *testing.T) {
	src := loader.NewStaticSource("flaky", starPayload())
	src.Fail(&loader.FetchError{Source: "flaky", StatusCode: http.StatusServiceUnavailable, Retryable: true, Err: fmt.Errorf("unavailable")})
	cfg := testConfig(simhost.ModeInProcess)
	cfg.Loader.MaxRetries = 1
	s := newSession(t, cfg, src, nil)

	err := s.Load(context.Background())
	require.Error(t, err)
	st := s.Status()
	assert.Equal(t, StateError, st.State)
	assert.True(t, st.Retryable)
	assert.Contains(t, st.Message, "503")
	assert.Zero(t, s.Graph().Len(), "no partial graph after a failed load")

	_, err = s.Centrality(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	src.Set(starPayload())
	require.NoError(t, s.Retry(context.Background()))
	waitSettled(t, s)
	assert.Equal(t, StateReady, s.Status().State)
	assert.Equal(t, 5, s.Graph().Len())
}

func TestSession_InvalidPayloadIsNotRetryable(t *testing.T) {
	src := loader.NewStaticSource("broken", starPayload())
	src.Fail(fmt.Errorf("%w: truncated", loader.ErrInvalidPayload))
	s := newSession(t, testConfig(simhost.ModeInProcess), src, nil)

	require.Error(t, s.Load(context.Background()))
	st := s.Status()
	assert.Equal(t, StateError, st.State)
	assert.False(t, st.Retryable)
}

func TestSession_SwitchLayoutAnimates(t *testing.T) {
	frames := make(chan struct{}, 1024)
	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", starPayload()), nil,
		WithRedraw(func() {
			select {
			case frames <- struct{}{}:
			default:
			}
		}))
	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)
	for len(frames) > 0 {
		<-frames
	}

	require.NoError(t, s.SwitchLayout(context.Background(), visualization.KindCircular))
	waitSettled(t, s)
	assert.GreaterOrEqual(t, len(frames), 6, "transition should redraw once per frame")
	assert.Equal(t, string(visualization.KindCircular), s.Status().Layout)

	cx, cy := 400.0, 300.0
	for id, p := range positions(s) {
		if id == "hub" {
			continue
		}
		assert.InDelta(t, math.Hypot(p[0]-cx, p[1]-cy), math.Hypot(positions(s)["hub"][0]-cx, positions(s)["hub"][1]-cy), 1e-6, id)
	}

	assert.Error(t, s.SwitchLayout(context.Background(), "spiral"))
}

func TestSession_KeyboardShortcutSwitchesLayout(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))

	assert.True(t, s.Controller().KeyPress(interaction.KeyEvent{Key: "g"}))
	waitSettled(t, s)
	assert.Equal(t, string(visualization.KindGrid), s.Status().Layout)

	assert.False(t, s.Controller().KeyPress(interaction.KeyEvent{Key: "r", InputFocused: true}))
	assert.Equal(t, string(visualization.KindGrid), s.Status().Layout)
}

func TestSession_FindPath(t *testing.T) {
	p := starPayload()
	p.Nodes = append(p.Nodes, graph.NodeData{ID: "hermit", Type: "character"})
	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", p), nil)
	require.NoError(t, s.Load(context.Background()))

	path, ok, err := s.FindPath(context.Background(), "leaf1", "leaf3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"leaf1", "hub", "leaf3"}, path)

	_, ok, err = s.FindPath(context.Background(), "leaf1", "hermit")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, s.Notices(), interaction.NoPathMessage)
}

func TestSession_Analytics(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeWorker), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))

	degrees, err := s.Centrality(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, degrees["hub"])
	assert.Equal(t, 1, degrees["leaf2"])

	groups, err := s.Communities(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"leaf1", "leaf2", "leaf3", "leaf4"}, groups["location"])
}

func TestSession_SaveAndRestoreLayout(t *testing.T) {
	store := layoutstore.NewMemoryStore()
	cfg := testConfig(simhost.ModeInProcess)
	cfg.DefaultLayout = string(visualization.KindGrid)
	s := newSession(t, cfg, loader.NewStaticSource("star", starPayload()), store)

	_, err := s.RestoreLayout(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)
	saved := positions(s)
	require.NoError(t, s.SaveLayout(context.Background()))

	s.Host().Read(func() {
		for _, n := range s.Graph().Nodes {
			n.Pin(n.X+50, n.Y-50)
		}
	})
	n, err := s.RestoreLayout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	for id, p := range positions(s) {
		assert.InDelta(t, saved[id][0], p[0], 1e-9, id)
		assert.InDelta(t, saved[id][1], p[1], 1e-9, id)
	}
}

func TestSession_RestoreLayoutInWorker(t *testing.T) {
	store := layoutstore.NewMemoryStore()
	s := newSession(t, testConfig(simhost.ModeWorker), loader.NewStaticSource("star", starPayload()), store)
	require.Equal(t, simhost.ModeWorker, s.Host().Mode())
	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)
	saved := positions(s)["hub"]
	require.NoError(t, s.SaveLayout(context.Background()))

	h := s.Host()
	require.NoError(t, h.Drag(simhost.DragEvent{NodeID: "hub", X: 2000, Y: 2000, Phase: simhost.DragStart}))
	require.NoError(t, h.Drag(simhost.DragEvent{NodeID: "hub", X: 2000, Y: 2000, Phase: simhost.DragMove}))
	require.NoError(t, h.Drag(simhost.DragEvent{NodeID: "hub", Phase: simhost.DragEnd}))
	waitSettled(t, s)
	require.Equal(t, [2]float64{2000, 2000}, positions(s)["hub"])

	n, err := s.RestoreLayout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	restored := positions(s)["hub"]
	assert.InDelta(t, saved[0], restored[0], 1e-6)
	assert.InDelta(t, saved[1], restored[1], 1e-6)

	// the worker's ticks must continue from the restored layout
	s.Controller().Release("leaf1")
	waitSettled(t, s)
	hub := positions(s)["hub"]
	assert.Greater(t, math.Hypot(hub[0]-2000, hub[1]-2000), 1000.0, "hub went back to the dragged position %v", hub)
	assert.Less(t, math.Hypot(hub[0]-saved[0], hub[1]-saved[1]), 200.0, "hub %v drifted from the restored %v", hub, saved)
}

func TestSession_NotSettledWhileDragging(t *testing.T) {
	for _, mode := range []simhost.Mode{simhost.ModeInProcess, simhost.ModeWorker} {
		t.Run(string(mode), func(t *testing.T) {
			s := newSession(t, testConfig(mode), loader.NewStaticSource("star", starPayload()), nil)
			require.NoError(t, s.Load(context.Background()))
			waitSettled(t, s)
			require.True(t, s.Status().Settled)

			require.NoError(t, s.Host().Drag(simhost.DragEvent{NodeID: "hub", X: 100, Y: 100, Phase: simhost.DragStart}))
			time.Sleep(50 * time.Millisecond)
			assert.False(t, s.Status().Settled, "settled while the hub is held")

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			_, err := s.WaitSettled(ctx)
			cancel()
			assert.ErrorIs(t, err, context.DeadlineExceeded, "WaitSettled returned during the drag")

			require.NoError(t, s.Host().Drag(simhost.DragEvent{NodeID: "hub", Phase: simhost.DragEnd}))
			waitSettled(t, s)
			assert.True(t, s.Status().Settled)
		})
	}
}

func TestSession_RestoreOnLoadKeepsSavedPins(t *testing.T) {
	store := layoutstore.NewMemoryStore()
	fx, fy := 42.0, -17.0
	require.NoError(t, store.Save(context.Background(), &layoutstore.Snapshot{
		GraphID: "saga",
		Nodes:   []layoutstore.NodePosition{{ID: "hub", X: fx, Y: fy, FX: &fx, FY: &fy}},
	}))

	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", starPayload()), store)
	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)

	hub := positions(s)["hub"]
	assert.Equal(t, fx, hub[0])
	assert.Equal(t, fy, hub[1])
}

func TestSession_SaveWithoutStore(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))
	assert.ErrorIs(t, s.SaveLayout(context.Background()), ErrNoStore)
}

func TestSession_RenderFormats(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeInProcess), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))
	waitSettled(t, s)

	var png bytes.Buffer
	mode, err := s.Render(&png, "png")
	require.NoError(t, err)
	assert.Equal(t, render.ModeCanvas, mode)
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))

	var svg bytes.Buffer
	_, err = s.Render(&svg, "svg")
	require.NoError(t, err)
	assert.Contains(t, svg.String(), `id="node:hub"`)

	_, err = s.Render(&svg, "gif")
	assert.Error(t, err)
}

func TestSession_DestroyIsSynchronousAndIdempotent(t *testing.T) {
	s := newSession(t, testConfig(simhost.ModeWorker), loader.NewStaticSource("star", starPayload()), nil)
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.Destroy())
	assert.NoError(t, s.Destroy())

	assert.ErrorIs(t, s.Load(context.Background()), ErrDestroyed)
	_, err := s.Render(&bytes.Buffer{}, "")
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, s.SwitchLayout(context.Background(), visualization.KindGrid), ErrDestroyed)
}
