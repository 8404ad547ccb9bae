package render

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// LoopHeight is how far above its node a self-loop's control point sits
const LoopHeight = 30.0

// CurveControlPoint returns the control point of the quadratic curve from
// (sx, sy) to (tx, ty): the midpoint moved perpendicular to the line by
// length × offset. Coincident endpoints get a loop above the point.
func CurveControlPoint(sx, sy, tx, ty, offset float64) (cx, cy float64) {
	dx, dy := tx-sx, ty-sy
	if math.Hypot(dx, dy) < 1e-9 {
		return sx, sy - LoopHeight*(1+math.Abs(offset))
	}
	mx, my := (sx+tx)/2, (sy+ty)/2
	return mx - dy*offset, my + dx*offset
}

// EdgeOffset is the signed curvature of e. The curvature hint wins; else it
// grows with strength. Parallel edges alternate sides and bow further out,
// and the sign is fixed against the sorted id pair so A→B and B→A do not
// overlap.
func EdgeOffset(e *graph.Edge) float64 {
	base := e.Curvature
	if base == 0 {
		base = 0.1 + 0.2*e.Strength/100
	}
	off := base * float64(e.ParallelIndex/2+1)
	if e.ParallelIndex%2 == 1 {
		off = -off
	}
	if e.Source > e.Target {
		off = -off
	}
	return off
}

// quadPoint evaluates the quadratic Bezier at t
func quadPoint(x1, y1, cx, cy, x2, y2, t float64) (float64, float64) {
	u := 1 - t
	return u*u*x1 + 2*u*t*cx + t*t*x2, u*u*y1 + 2*u*t*cy + t*t*y2
}

// distToQuad approximates the distance from (px, py) to the curve by
// sampling it.
func distToQuad(px, py, x1, y1, cx, cy, x2, y2 float64) float64 {
	const samples = 24
	best := math.Inf(1)
	prevX, prevY := x1, y1
	for i := 1; i <= samples; i++ {
		x, y := quadPoint(x1, y1, cx, cy, x2, y2, float64(i)/samples)
		best = math.Min(best, distToSegment(px, py, prevX, prevY, x, y))
		prevX, prevY = x, y
	}
	return best
}

func distToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
