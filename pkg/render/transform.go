package render

// Transform maps world coordinates onto the screen:
// screen = world*K + (X, Y).
type Transform struct {
	X, Y float64
	K    float64
}

// Identity is the transform with no pan and zoom 1
func Identity() Transform {
	return Transform{K: 1}
}

func (t Transform) scale() float64 {
	if t.K <= 0 {
		return 1
	}
	return t.K
}

// Apply converts a world point to screen coordinates
func (t Transform) Apply(x, y float64) (float64, float64) {
	k := t.scale()
	return x*k + t.X, y*k + t.Y
}

// Invert converts a screen point to world coordinates
func (t Transform) Invert(sx, sy float64) (float64, float64) {
	k := t.scale()
	return (sx - t.X) / k, (sy - t.Y) / k
}

// View is what a frame is drawn through: the transform and the output size
// in pixels.
type View struct {
	Transform Transform
	Width     int
	Height    int
}

// WorldBounds returns the world rectangle visible in v, widened by margin
// screen pixels on every side.
func (v View) WorldBounds(margin float64) (minX, minY, maxX, maxY float64) {
	minX, minY = v.Transform.Invert(-margin, -margin)
	maxX, maxY = v.Transform.Invert(float64(v.Width)+margin, float64(v.Height)+margin)
	return minX, minY, maxX, maxY
}
