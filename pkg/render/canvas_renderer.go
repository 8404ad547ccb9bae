package render

import (
	"io"
	"sync"
	"time"

	"git.sr.ht/~sbinet/gg"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

// CanvasRenderer redraws the whole visible graph on every frame. Prepare
// only copies the visible geometry out of the graph; rasterising happens in
// Write, off the host lock. Elements are not retained.
type CanvasRenderer struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	mu       sync.Mutex
	view     View
	elements []Element
	stats    frameStats
}

// NewCanvasRenderer creates a canvas renderer
func NewCanvasRenderer(cfg Config, opts ...Option) (*CanvasRenderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newCanvasRenderer(cfg, buildOptions(opts)), nil
}

func newCanvasRenderer(cfg Config, o options) *CanvasRenderer {
	return &CanvasRenderer{cfg: cfg, logger: o.logger, metrics: o.metrics}
}

// Mode implements Renderer
func (r *CanvasRenderer) Mode() Mode { return ModeCanvas }

// Prepare implements Renderer
func (r *CanvasRenderer) Prepare(g *graph.Graph, view View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	started := time.Now()
	r.view = view
	r.elements = r.elements[:0]
	culled := r.cfg.frame(g, view, true, func(el Element) {
		r.elements = append(r.elements, el)
	})
	r.stats = frameStats{started: started, elements: len(r.elements), culled: culled}
}

// Stats returns the element and culled-node counts of the prepared frame
func (r *CanvasRenderer) Stats() (elements, culled int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.elements, r.stats.culled
}

// Write implements Renderer
func (r *CanvasRenderer) Write(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := r.rasterize()
	if err := dc.EncodePNG(w); err != nil {
		return err
	}
	r.metrics.RecordRender(string(ModeCanvas), r.stats.elements, r.stats.culled, time.Since(r.stats.started))
	return nil
}

func (r *CanvasRenderer) rasterize() *gg.Context {
	width, height := r.view.Width, r.view.Height
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	dc := gg.NewContext(width, height)
	dc.SetColor(bgDark)
	dc.Clear()

	for i := range r.elements {
		el := &r.elements[i]
		s := el.Style
		switch el.Kind {
		case ElementEdge:
			c := el.Curve
			dc.SetColor(withAlpha(s.Stroke, s.Opacity))
			dc.SetLineWidth(s.StrokeWidth)
			dc.MoveTo(c[0], c[1])
			dc.QuadraticTo(c[2], c[3], c[4], c[5])
			dc.Stroke()
			if el.HasArrow {
				a := el.Arrow
				dc.MoveTo(a[0], a[1])
				dc.LineTo(a[2], a[3])
				dc.LineTo(a[4], a[5])
				dc.ClosePath()
				dc.Fill()
			}

		case ElementRing:
			dc.SetColor(withAlpha(s.Stroke, s.Opacity))
			dc.SetLineWidth(s.StrokeWidth)
			dc.SetDash(s.Dash...)
			dc.DrawCircle(el.X, el.Y, el.R)
			dc.Stroke()
			dc.SetDash()

		case ElementNode:
			dc.DrawCircle(el.X, el.Y, el.R)
			dc.SetColor(withAlpha(s.Fill, s.Opacity))
			dc.FillPreserve()
			dc.SetColor(withAlpha(s.Stroke, s.Opacity))
			dc.SetLineWidth(s.StrokeWidth)
			dc.Stroke()

		case ElementLabel, ElementEdgeLabel:
			dc.SetColor(withAlpha(s.Fill, s.Opacity))
			dc.DrawStringAnchored(el.Text, el.X, el.Y, 0.5, 0)
		}
	}
	return dc
}
