package interaction

import (
	"context"
	"math"
	"time"

	"github.com/dd0wney/saga-graph/pkg/render"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// Viewport maps between screen and world coordinates. Zoom is clamped to
// [MinZoom, MaxZoom].
type Viewport struct {
	T             render.Transform
	Width, Height float64
	MinZoom       float64
	MaxZoom       float64
}

// NewViewport creates an identity viewport of the given size
func NewViewport(width, height, minZoom, maxZoom float64) *Viewport {
	return &Viewport{T: render.Identity(), Width: width, Height: height, MinZoom: minZoom, MaxZoom: maxZoom}
}

// View is the render view of the viewport
func (v *Viewport) View() render.View {
	return render.View{Transform: v.T, Width: int(v.Width), Height: int(v.Height)}
}

// ScreenToWorld converts a pointer position into world coordinates
func (v *Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return v.T.Invert(sx, sy)
}

// WorldToScreen converts a world point into screen coordinates
func (v *Viewport) WorldToScreen(x, y float64) (float64, float64) {
	return v.T.Apply(x, y)
}

// Zoom returns the current scale
func (v *Viewport) Zoom() float64 {
	return v.T.K
}

// Pan moves the view by a screen delta
func (v *Viewport) Pan(dx, dy float64) {
	v.T.X += dx
	v.T.Y += dy
}

func (v *Viewport) clamp(k float64) float64 {
	return math.Max(v.MinZoom, math.Min(v.MaxZoom, k))
}

// ZoomAt scales by factor keeping the world point under (sx, sy) fixed
func (v *Viewport) ZoomAt(factor, sx, sy float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	wx, wy := v.ScreenToWorld(sx, sy)
	v.T.K = v.clamp(v.T.K * factor)
	v.T.X = sx - wx*v.T.K
	v.T.Y = sy - wy*v.T.K
}

// Reset restores the identity transform
func (v *Viewport) Reset() {
	v.T = render.Identity()
}

// CenteredOn returns the transform that puts world point (x, y) in the
// middle of the viewport at zoom k.
func (v *Viewport) CenteredOn(x, y, k float64) render.Transform {
	k = v.clamp(k)
	return render.Transform{X: v.Width/2 - x*k, Y: v.Height/2 - y*k, K: k}
}

// Fit returns the transform that shows the whole world rectangle with
// padding pixels on each side.
func (v *Viewport) Fit(minX, minY, maxX, maxY, padding float64) render.Transform {
	w, h := maxX-minX, maxY-minY
	k := 1.0
	if w > 0 && h > 0 {
		k = math.Min((v.Width-2*padding)/w, (v.Height-2*padding)/h)
	}
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		k = 1
	}
	return v.CenteredOn((minX+maxX)/2, (minY+maxY)/2, k)
}

// Animate eases the transform to target over d, calling frame after each
// step. The caller serialises access to the viewport.
func (v *Viewport) Animate(ctx context.Context, target render.Transform, d, interval time.Duration, frame func()) error {
	from := v.T
	steps := 1
	if interval > 0 && d > interval {
		steps = int(d / interval)
	}
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()
	for i := 1; i <= steps; i++ {
		e := visualization.EaseCubicInOut(float64(i) / float64(steps))
		v.T = render.Transform{
			X: from.X + (target.X-from.X)*e,
			Y: from.Y + (target.Y-from.Y)*e,
			K: from.K + (target.K-from.K)*e,
		}
		if frame != nil {
			frame()
		}
		if i == steps {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
