package render

import (
	"math"
	"strconv"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

const (
	arrowLength = 8.0
	arrowWidth  = 4.0
)

// frame computes the elements of g seen through view, in draw order: edges,
// edge labels, rings, nodes, node labels. With cull set, nodes and edges
// wholly outside the view are skipped; the skipped node count is returned.
// Callers hold the host read lock.
func (c Config) frame(g *graph.Graph, view View, cull bool, emit func(Element)) (culled int) {
	t := view.Transform
	k := t.scale()
	lo := -c.CullMargin
	hiX, hiY := float64(view.Width)+c.CullMargin, float64(view.Height)+c.CullMargin
	outside := func(minX, minY, maxX, maxY float64) bool {
		return cull && (maxX < lo || maxY < lo || minX > hiX || minY > hiY)
	}

	showEdgeLabels := c.EdgeLabelsVisible(k)
	var labels []Element
	for i, e := range g.Edges {
		if e.From == nil || e.To == nil || e.From.Hidden || e.To.Hidden {
			continue
		}
		sx, sy := t.Apply(e.From.X, e.From.Y)
		tx, ty := t.Apply(e.To.X, e.To.Y)
		cx, cy := CurveControlPoint(sx, sy, tx, ty, EdgeOffset(e))
		if outside(min3(sx, cx, tx), min3(sy, cy, ty), max3(sx, cx, tx), max3(sy, cy, ty)) {
			continue
		}
		el := Element{
			ID:    EdgeElementID(i),
			Kind:  ElementEdge,
			Ref:   strconv.Itoa(i),
			Curve: [6]float64{sx, sy, cx, cy, tx, ty},
			Style: c.edgeStyle(e),
		}
		if c.Arrows && e.Source != e.Target {
			el.Arrow, el.HasArrow = arrowHead(cx, cy, tx, ty, e.To.Radius()*k+2)
		}
		emit(el)
		if showEdgeLabels && e.Relationship != "" {
			lx, ly := quadPoint(sx, sy, cx, cy, tx, ty, 0.5)
			labels = append(labels, Element{
				ID:    el.ID + ":label",
				Kind:  ElementEdgeLabel,
				Ref:   el.Ref,
				X:     lx,
				Y:     ly - 3,
				Text:  e.Relationship,
				Style: c.edgeLabelStyle(e),
			})
		}
	}
	for _, l := range labels {
		emit(l)
	}
	labels = labels[:0]

	labelOpacity := c.NodeLabelOpacity(k)
	for _, n := range g.Nodes {
		if n.Hidden {
			continue
		}
		x, y := t.Apply(n.X, n.Y)
		r := n.Radius() * k
		if outside(x-r, y-r, x+r, y+r) {
			culled++
			continue
		}
		if c.hasRing(n) {
			emit(Element{
				ID: "ring:" + n.ID, Kind: ElementRing, Ref: n.ID,
				X: x, Y: y, R: r + ringGap*math.Min(k, 1),
				Style: c.ringStyle(n),
			})
		}
		emit(Element{
			ID: NodeElementID(n.ID), Kind: ElementNode, Ref: n.ID,
			X: x, Y: y, R: r,
			Style: c.nodeStyle(n),
		})
		if op := labelOpacity * c.nodeOpacity(n); op > 0 {
			labels = append(labels, Element{
				ID: "label:" + n.ID, Kind: ElementLabel, Ref: n.ID,
				X: x, Y: y + r + c.FontSize + 2,
				Text:  n.Label,
				Style: c.labelStyle(op),
			})
		}
	}
	for _, l := range labels {
		emit(l)
	}
	return culled
}

// arrowHead returns a triangle whose tip sits gap short of (tx, ty) along
// the curve's final tangent.
func arrowHead(cx, cy, tx, ty, gap float64) ([6]float64, bool) {
	dx, dy := tx-cx, ty-cy
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		return [6]float64{}, false
	}
	dx, dy = dx/d, dy/d
	ax, ay := tx-dx*gap, ty-dy*gap
	px, py := -dy, dx
	return [6]float64{
		ax, ay,
		ax - dx*arrowLength + px*arrowWidth, ay - dy*arrowLength + py*arrowWidth,
		ax - dx*arrowLength - px*arrowWidth, ay - dy*arrowLength - py*arrowWidth,
	}, true
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
