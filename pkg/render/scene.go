package render

import (
	"fmt"
	"html"
	"io"
	"math"

	svg "github.com/ajstarks/svgo/float"
)

// ElementKind classifies scene elements
type ElementKind string

const (
	ElementNode      ElementKind = "node"
	ElementRing      ElementKind = "ring"
	ElementLabel     ElementKind = "label"
	ElementEdge      ElementKind = "edge"
	ElementEdgeLabel ElementKind = "edge-label"
)

// Element is one addressable drawable. Geometry is in screen coordinates.
type Element struct {
	ID   string
	Kind ElementKind
	// Ref is the node id, or the edge index for edge elements
	Ref string

	// X, Y, R: circle centre and radius, or text anchor for labels
	X, Y, R float64
	// Curve is x1 y1 cx cy x2 y2 of an edge
	Curve [6]float64
	// Arrow is the arrowhead triangle of a directed edge, if any
	Arrow    [6]float64
	HasArrow bool
	Text     string

	Style   Style
	Hovered bool
}

// NodeElementID is the scene id of a node's circle
func NodeElementID(nodeID string) string { return "node:" + nodeID }

// EdgeElementID is the scene id of the edge at index i
func EdgeElementID(i int) string { return fmt.Sprintf("edge:%d", i) }

// Scene is the retained element list of a SceneRenderer, in draw order
type Scene struct {
	Width, Height int

	elements []*Element
	index    map[string]*Element
	tol      float64
}

// Element returns the element with the given id
func (s *Scene) Element(id string) (*Element, bool) {
	el, ok := s.index[id]
	return el, ok
}

// Elements returns elements in draw order
func (s *Scene) Elements() []*Element {
	return s.elements
}

// Len returns the element count
func (s *Scene) Len() int {
	return len(s.elements)
}

// HitTest returns the topmost node under (x, y), else the topmost edge
// within the hit tolerance. Labels and rings are not hit targets.
func (s *Scene) HitTest(x, y float64) (*Element, bool) {
	for i := len(s.elements) - 1; i >= 0; i-- {
		el := s.elements[i]
		if el.Kind == ElementNode && math.Hypot(x-el.X, y-el.Y) <= el.R {
			return el, true
		}
	}
	var best *Element
	bestDist := s.tol
	for i := len(s.elements) - 1; i >= 0; i-- {
		el := s.elements[i]
		if el.Kind != ElementEdge {
			continue
		}
		c := el.Curve
		if d := distToQuad(x, y, c[0], c[1], c[2], c[3], c[4], c[5]); d <= bestDist {
			best, bestDist = el, d
		}
	}
	return best, best != nil
}

// WriteSVG serialises the scene. Every element carries its id.
func (s *Scene) WriteSVG(w io.Writer) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(float64(s.Width), float64(s.Height))
	canvas.Rect(0, 0, float64(s.Width), float64(s.Height), "fill:"+cssRGBA(bgDark))

	for _, el := range s.elements {
		id := idAttr(el.ID)
		style := el.Style
		if el.Hovered {
			style.StrokeWidth += 2
			if style.Stroke.A == 0 {
				style.Stroke = selectedRing
			}
		}
		switch el.Kind {
		case ElementEdge:
			c := el.Curve
			d := fmt.Sprintf("M %.2f %.2f Q %.2f %.2f %.2f %.2f", c[0], c[1], c[2], c[3], c[4], c[5])
			canvas.Path(d, id, style.css())
			if el.HasArrow {
				a := el.Arrow
				canvas.Polygon([]float64{a[0], a[2], a[4]}, []float64{a[1], a[3], a[5]},
					idAttr(el.ID+":arrow"), fmt.Sprintf("fill:%s;opacity:%.2f", cssRGBA(style.Stroke), style.Opacity))
			}
		case ElementNode, ElementRing:
			canvas.Circle(el.X, el.Y, el.R, id, style.css())
		case ElementLabel, ElementEdgeLabel:
			canvas.Text(el.X, el.Y, el.Text, id, style.css()+";text-anchor:middle")
		}
	}

	canvas.End()
	return ew.err
}

func idAttr(id string) string {
	return `id="` + html.EscapeString(id) + `"`
}

// errWriter keeps the first write error; svgo does not return them
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
