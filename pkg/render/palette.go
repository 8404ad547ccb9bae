package render

import (
	"fmt"
	"image/color"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Palette (dark theme)
var (
	bgDark = color.RGBA{0x1e, 0x1e, 0x2e, 0xff}

	typeCharacter = color.RGBA{0x8b, 0xe9, 0xfd, 0xff} // cyan
	typeLocation  = color.RGBA{0x50, 0xfa, 0x7b, 0xff} // green
	typeEvent     = color.RGBA{0xff, 0xb8, 0x6c, 0xff} // orange
	typeFaction   = color.RGBA{0xff, 0x55, 0x55, 0xff} // red
	typeArtifact  = color.RGBA{0xf1, 0xfa, 0x8c, 0xff} // yellow
	typeConcept   = color.RGBA{0xbd, 0x93, 0xf9, 0xff} // purple

	edgeNormal    = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	edgePath      = color.RGBA{0xff, 0xd7, 0x00, 0xff}
	edgeLabel     = color.RGBA{0xa0, 0xa0, 0xb0, 0xff}
	nodeStroke    = color.RGBA{0x28, 0x2a, 0x36, 0xff}
	selectedRing  = color.RGBA{0xf8, 0xf8, 0xf2, 0xff}
	importantRing = color.RGBA{0xf8, 0xf8, 0xf2, 0xff}
	textPrimary   = color.RGBA{0xf8, 0xf8, 0xf2, 0xff}
)

// TypeColor returns the fill for an entity type
func TypeColor(t graph.EntityType) color.RGBA {
	switch t {
	case graph.TypeCharacter:
		return typeCharacter
	case graph.TypeLocation:
		return typeLocation
	case graph.TypeEvent:
		return typeEvent
	case graph.TypeFaction:
		return typeFaction
	case graph.TypeArtifact:
		return typeArtifact
	case graph.TypeConcept:
		return typeConcept
	default:
		return edgeLabel
	}
}

func cssRGBA(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// withAlpha scales the alpha channel of c by opacity
func withAlpha(c color.RGBA, opacity float64) color.RGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return color.RGBA{c.R, c.G, c.B, uint8(float64(c.A) * opacity)}
}
