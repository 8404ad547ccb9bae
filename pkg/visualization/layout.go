// Package visualization implements the layout families of the relationship
// graph and the animated transitions between them.
package visualization

import (
	"errors"
	"fmt"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

// ErrUnknownLayout is returned for a layout name outside Kinds
var ErrUnknownLayout = errors.New("unknown layout")

// Kinds lists every layout kind in keyboard shortcut order (f h c r g k)
func Kinds() []Kind {
	return []Kind{KindForce, KindHierarchical, KindCircular, KindRadial, KindGrid, KindClustered}
}

// ParseKind validates a layout name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownLayout, s)
}

// IsFixed reports whether kind produces pinned positions
func (k Kind) IsFixed() bool {
	return k != KindForce && k != KindClustered
}

// New constructs the layout of the given kind. The configuration is
// validated here so that Apply never sees bad parameters.
func New(kind Kind, cfg Config, opts ...Option) (Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", kind, err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger).With(logging.Component("layout"), logging.Layout(string(kind)))

	switch kind {
	case KindForce:
		return &ForceLayout{cfg: cfg, logger: logger, pool: o.pool}, nil
	case KindHierarchical:
		return &HierarchicalLayout{cfg: cfg, logger: logger}, nil
	case KindCircular:
		return &CircularLayout{cfg: cfg}, nil
	case KindRadial:
		return &RadialLayout{cfg: cfg, logger: logger}, nil
	case KindGrid:
		return &GridLayout{cfg: cfg}, nil
	case KindClustered:
		return &ClusteredLayout{cfg: cfg, logger: logger, pool: o.pool}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownLayout, kind)
	}
}

// applyFixed pins every node at its computed position
func applyFixed(l FixedLayout, g *graph.Graph, width, height float64) error {
	positions, err := l.Positions(g, width, height)
	if err != nil {
		return err
	}
	PinAt(g, positions)
	return nil
}

// PinAt pins every node with an entry in positions and marks it as placed
// by a fixed layout.
func PinAt(g *graph.Graph, positions map[string]Position) {
	for _, n := range g.Nodes {
		p, ok := positions[n.ID]
		if !ok {
			continue
		}
		n.Pin(p.X, p.Y)
		n.Pinned = true
		n.VX, n.VY = 0, 0
	}
}

// releaseFixedPins frees nodes pinned by a fixed layout. Pins set by the
// user through dragging are kept.
func releaseFixedPins(g *graph.Graph) {
	for _, n := range g.Nodes {
		if n.Pinned {
			n.Unpin()
		}
	}
}
