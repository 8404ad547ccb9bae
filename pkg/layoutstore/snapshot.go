// Package layoutstore persists node positions and pins per graph so a
// session can restore a hand-arranged layout.
package layoutstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

var (
	// ErrNotFound is returned by Load when no snapshot exists for a graph
	ErrNotFound = errors.New("layout snapshot not found")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("layout store closed")
)

// NodePosition is the saved state of one node. FX/FY are present only for
// pinned nodes.
type NodePosition struct {
	ID string   `json:"id" validate:"required"`
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	FX *float64 `json:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty"`
}

// Snapshot is the persisted layout of one graph
type Snapshot struct {
	GraphID string         `json:"graphId" validate:"required,max=200"`
	Layout  string         `json:"layout,omitempty"`
	SavedAt time.Time      `json:"savedAt"`
	Nodes   []NodePosition `json:"nodes" validate:"dive"`
}

// Store saves and loads snapshots keyed by graph id
type Store interface {
	Backend() string
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context, graphID string) (*Snapshot, error)
	Close() error
}

// Capture records the current position and pin of every node in g. Callers
// hold the simulation host lock.
func Capture(graphID, layout string, g *graph.Graph) *Snapshot {
	s := &Snapshot{
		GraphID: graphID,
		Layout:  layout,
		SavedAt: time.Now().UTC(),
		Nodes:   make([]NodePosition, 0, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		if !n.HasFinitePosition() {
			continue
		}
		pos := NodePosition{ID: n.ID, X: n.X, Y: n.Y}
		if n.IsFixed() {
			fx, fy := *n.FX, *n.FY
			pos.FX, pos.FY = &fx, &fy
		}
		s.Nodes = append(s.Nodes, pos)
	}
	return s
}

// Restore applies s to g and returns how many nodes were matched by id.
// Saved pins are reapplied and nodes saved without one are unpinned; nodes
// absent from the snapshot keep their position.
func Restore(s *Snapshot, g *graph.Graph) int {
	if s == nil || g == nil {
		return 0
	}
	applied := 0
	for _, pos := range s.Nodes {
		n, ok := g.Node(pos.ID)
		if !ok {
			continue
		}
		n.X, n.Y = pos.X, pos.Y
		n.VX, n.VY = 0, 0
		if pos.FX != nil && pos.FY != nil {
			n.Pin(*pos.FX, *pos.FY)
		} else {
			n.Unpin()
		}
		applied++
	}
	return applied
}

// Validate checks the snapshot before it is written
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot cannot be nil")
	}
	if err := validation.Struct(s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return nil
}
