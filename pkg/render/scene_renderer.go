package render

import (
	"io"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

// SceneRenderer keeps one Element per node, ring, label and edge across
// frames. Prepare updates elements in place, so an element returned by
// HitTest or Element stays the same value for as long as its node or edge
// is drawn.
type SceneRenderer struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	mu        sync.Mutex
	scene     *Scene
	hovered   string
	overrides map[string]func(*Style)
	stats     frameStats
}

// NewSceneRenderer creates a scene renderer
func NewSceneRenderer(cfg Config, opts ...Option) (*SceneRenderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newSceneRenderer(cfg, buildOptions(opts)), nil
}

func newSceneRenderer(cfg Config, o options) *SceneRenderer {
	return &SceneRenderer{
		cfg:       cfg,
		logger:    o.logger,
		metrics:   o.metrics,
		scene:     &Scene{index: make(map[string]*Element), tol: cfg.HitTolerance},
		overrides: make(map[string]func(*Style)),
	}
}

// Mode implements Renderer
func (r *SceneRenderer) Mode() Mode { return ModeScene }

// Prepare implements Renderer
func (r *SceneRenderer) Prepare(g *graph.Graph, view View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	prev := r.scene.index
	next := &Scene{
		Width:    view.Width,
		Height:   view.Height,
		elements: make([]*Element, 0, len(prev)),
		index:    make(map[string]*Element, len(prev)),
		tol:      r.cfg.HitTolerance,
	}
	r.cfg.frame(g, view, false, func(el Element) {
		if fn, ok := r.overrides[el.ID]; ok {
			fn(&el.Style)
		}
		el.Hovered = el.ID == r.hovered
		existing, ok := prev[el.ID]
		if !ok {
			existing = &Element{}
		}
		*existing = el
		next.elements = append(next.elements, existing)
		next.index[el.ID] = existing
	})
	r.scene = next
	r.stats = frameStats{started: started, elements: next.Len()}
}

// Write implements Renderer
func (r *SceneRenderer) Write(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.scene.WriteSVG(w)
	if err == nil {
		r.metrics.RecordRender(string(ModeScene), r.stats.elements, 0, time.Since(r.stats.started))
	}
	return err
}

// Scene returns the current scene. It is replaced by the next Prepare.
func (r *SceneRenderer) Scene() *Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}

// HitTest returns the element under the screen point (x, y)
func (r *SceneRenderer) HitTest(x, y float64) (*Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene.HitTest(x, y)
}

// Element returns the element with the given id
func (r *SceneRenderer) Element(id string) (*Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene.Element(id)
}

// SetHovered marks one element as hovered; "" clears
func (r *SceneRenderer) SetHovered(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.scene.index[r.hovered]; ok {
		old.Hovered = false
	}
	r.hovered = id
	if el, ok := r.scene.index[id]; ok {
		el.Hovered = true
	}
}

// SetStyle adjusts the style of one element on every frame until
// ClearStyle.
func (r *SceneRenderer) SetStyle(id string, fn func(*Style)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[id] = fn
	if el, ok := r.scene.index[id]; ok {
		fn(&el.Style)
	}
}

// ClearStyle drops an override from SetStyle; it applies from the next frame
func (r *SceneRenderer) ClearStyle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, id)
}
