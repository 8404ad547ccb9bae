package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Style is the paint of one element. A zero-alpha colour means none.
type Style struct {
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
	Opacity     float64
	FontSize    float64
	Dash        []float64
}

func (s Style) css() string {
	var b strings.Builder
	if s.Fill.A == 0 {
		b.WriteString("fill:none;")
	} else {
		fmt.Fprintf(&b, "fill:%s;", cssRGBA(s.Fill))
		if s.Fill.A != 0xff {
			fmt.Fprintf(&b, "fill-opacity:%.2f;", float64(s.Fill.A)/255)
		}
	}
	if s.Stroke.A != 0 && s.StrokeWidth > 0 {
		fmt.Fprintf(&b, "stroke:%s;stroke-width:%.2f;", cssRGBA(s.Stroke), s.StrokeWidth)
		if s.Stroke.A != 0xff {
			fmt.Fprintf(&b, "stroke-opacity:%.2f;", float64(s.Stroke.A)/255)
		}
		if len(s.Dash) > 0 {
			parts := make([]string, len(s.Dash))
			for i, d := range s.Dash {
				parts[i] = fmt.Sprintf("%.1f", d)
			}
			fmt.Fprintf(&b, "stroke-dasharray:%s;", strings.Join(parts, ","))
		}
	}
	if s.Opacity < 1 {
		fmt.Fprintf(&b, "opacity:%.2f;", s.Opacity)
	}
	if s.FontSize > 0 {
		fmt.Fprintf(&b, "font-size:%.1fpx;font-family:system-ui,sans-serif;", s.FontSize)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// nodeOpacity is DimOpacity for dimmed nodes that are not on the path
func (c Config) nodeOpacity(n *graph.Node) float64 {
	if n.Dimmed && !n.Highlighted {
		return c.DimOpacity
	}
	return 1
}

func (c Config) nodeStyle(n *graph.Node) Style {
	s := Style{
		Fill:        TypeColor(n.Type),
		Stroke:      nodeStroke,
		StrokeWidth: 1.5,
		Opacity:     c.nodeOpacity(n),
	}
	switch {
	case n.Highlighted:
		s.Stroke, s.StrokeWidth = edgePath, 3
	case n.Selected:
		s.Stroke, s.StrokeWidth = selectedRing, 3
	}
	return s
}

func (c Config) ringStyle(n *graph.Node) Style {
	return Style{
		Stroke:      withAlpha(importantRing, 0.6),
		StrokeWidth: 1,
		Opacity:     c.nodeOpacity(n),
		Dash:        []float64{2, 2},
	}
}

func (c Config) edgeStyle(e *graph.Edge) Style {
	s := Style{
		Stroke:      withAlpha(edgeNormal, 0.7),
		StrokeWidth: 1 + 2*e.Strength/100,
		Opacity:     e.Opacity,
	}
	if e.Highlighted {
		s.Stroke = edgePath
		s.StrokeWidth = 3
		s.Opacity = 1
	}
	return s
}

func (c Config) labelStyle(opacity float64) Style {
	return Style{Fill: textPrimary, Opacity: opacity, FontSize: c.FontSize}
}

func (c Config) edgeLabelStyle(e *graph.Edge) Style {
	return Style{Fill: edgeLabel, Opacity: e.Opacity, FontSize: c.FontSize * 0.85}
}

// hasRing reports whether n is drawn with the decorative ring
func (c Config) hasRing(n *graph.Node) bool {
	return n.Importance > c.RingThreshold
}

// ringGap is the distance from a node's edge to its ring
const ringGap = 4.0
