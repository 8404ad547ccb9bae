package loader

import (
	"context"
	"sync"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Source fetches the raw node and edge lists of one graph
type Source interface {
	Fetch(ctx context.Context) (*graph.Payload, error)
	Name() string
}

// StaticSource serves an in-memory payload. Set replaces it, so a
// StaticSource can stand in for a backend whose data changes.
type StaticSource struct {
	mu      sync.RWMutex
	name    string
	payload *graph.Payload
	err     error
}

// NewStaticSource wraps p
func NewStaticSource(name string, p *graph.Payload) *StaticSource {
	if name == "" {
		name = "static"
	}
	return &StaticSource{name: name, payload: p}
}

func (s *StaticSource) Name() string { return s.name }

// Set replaces the payload and clears any injected error
func (s *StaticSource) Set(p *graph.Payload) {
	s.mu.Lock()
	s.payload, s.err = p, nil
	s.mu.Unlock()
}

// Fail makes subsequent fetches return err
func (s *StaticSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *StaticSource) Fetch(ctx context.Context) (*graph.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.payload == nil {
		return nil, &FetchError{Source: s.name, Err: ErrInvalidPayload}
	}
	out := &graph.Payload{
		Nodes: append([]graph.NodeData(nil), s.payload.Nodes...),
		Edges: append([]graph.EdgeData(nil), s.payload.Edges...),
	}
	return out, nil
}
