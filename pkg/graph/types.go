// Package graph holds the node/edge model shared by layouts, the simulation
// host, the renderer and the interaction controller.
package graph

import "math"

// EntityType is the worldbuilding category of a node
type EntityType string

const (
	TypeCharacter EntityType = "character"
	TypeLocation  EntityType = "location"
	TypeEvent     EntityType = "event"
	TypeFaction   EntityType = "faction"
	TypeArtifact  EntityType = "artifact"
	TypeConcept   EntityType = "concept"
)

// EntityTypes lists the vocabulary in display order
var EntityTypes = []EntityType{
	TypeCharacter, TypeLocation, TypeEvent, TypeFaction, TypeArtifact, TypeConcept,
}

// Valid reports whether t belongs to the fixed vocabulary
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// BaseRadius is the radius of a node with zero importance
const BaseRadius = 5.0

// Node is one entity in a relationship graph. Layouts and the simulation
// write X/Y/VX/VY in place; FX/FY pin the node when non-nil.
type Node struct {
	ID         string
	Label      string
	Type       EntityType
	Importance float64
	URL        string

	X, Y   float64
	VX, VY float64
	FX, FY *float64

	// Pinned marks positions produced by a fixed layout
	Pinned   bool
	Selected bool
	Hidden   bool

	// Highlighted marks path membership; Dimmed de-emphasises the node
	Highlighted bool
	Dimmed      bool
}

// Radius grows monotonically with importance
func (n *Node) Radius() float64 {
	return BaseRadius + n.Importance/10
}

// Pin fixes the node at (x, y)
func (n *Node) Pin(x, y float64) {
	fx, fy := x, y
	n.FX, n.FY = &fx, &fy
	n.X, n.Y = x, y
}

// Unpin releases a pin and the fixed-layout marker
func (n *Node) Unpin() {
	n.FX, n.FY = nil, nil
	n.Pinned = false
}

// IsFixed reports whether the node currently has a pin
func (n *Node) IsFixed() bool {
	return n.FX != nil && n.FY != nil
}

// HasFinitePosition reports whether X and Y are usable coordinates
func (n *Node) HasFinitePosition() bool {
	return isFinite(n.X) && isFinite(n.Y)
}

// Edge connects two nodes. From/To are resolved by Build and share identity
// with the graph's node records.
type Edge struct {
	Source       string
	Target       string
	From, To     *Node
	Relationship string
	Strength     float64
	Curvature    float64

	// ParallelIndex counts earlier edges joining the same unordered pair
	ParallelIndex int

	Highlighted bool
	Opacity     float64
}

// Other returns the endpoint opposite to id, or nil if id is not an endpoint
func (e *Edge) Other(id string) *Node {
	switch id {
	case e.Source:
		return e.To
	case e.Target:
		return e.From
	}
	return nil
}

// Graph is the node set plus edge set of one visualization session
type Graph struct {
	ID    string
	Nodes []*Node
	Edges []*Edge

	index     map[string]*Node
	adjacency map[string][]*Edge
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Incident returns the edges touching id in insertion order
func (g *Graph) Incident(id string) []*Edge {
	return g.adjacency[id]
}

// Neighbors returns the distinct ids adjacent to id, ignoring direction
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.adjacency[id] {
		other := e.Target
		if other == id {
			other = e.Source
		}
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}

// Connected reports whether an edge joins a and b in either direction
func (g *Graph) Connected(a, b string) bool {
	for _, e := range g.adjacency[a] {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return true
		}
	}
	return false
}

// Len returns the node count
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Bounds returns the bounding box of all node positions
func (g *Graph) Bounds() (minX, minY, maxX, maxY float64) {
	if len(g.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range g.Nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X)
		maxY = math.Max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}

// ResetTransient clears selection, visibility and emphasis state
func (g *Graph) ResetTransient() {
	for _, n := range g.Nodes {
		n.Selected = false
		n.Hidden = false
		n.Highlighted = false
		n.Dimmed = false
	}
	for _, e := range g.Edges {
		e.Highlighted = false
		e.Opacity = 1
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
