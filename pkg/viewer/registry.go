package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simhost"
)

var (
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when MaxSessions are open
	ErrTooManySessions = errors.New("too many open sessions")
)

// SourceFactory returns the data source for a graph id
type SourceFactory func(ctx context.Context, graphID string) (loader.Source, error)

// LoaderSources builds sources from a loader configuration
func LoaderSources(cfg loader.Config, logger logging.Logger) SourceFactory {
	return func(ctx context.Context, graphID string) (loader.Source, error) {
		return loader.NewSource(ctx, cfg, graphID, logger)
	}
}

// Registry owns the open sessions of a process
type Registry struct {
	cfg     Config
	store   layoutstore.Store
	sources SourceFactory
	opts    []Option
	logger  logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. Every session shares store and
// receives opts.
func NewRegistry(cfg Config, store layoutstore.Store, sources SourceFactory, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sources == nil {
		return nil, errors.New("viewer: source factory is required")
	}
	o := buildOptions(opts)
	return &Registry{
		cfg:      cfg,
		store:    store,
		sources:  sources,
		opts:     opts,
		logger:   o.logger.With(logging.Component("registry")),
		sessions: make(map[string]*Session),
	}, nil
}

// Create opens a session for graphID. The graph is not loaded yet.
func (r *Registry) Create(ctx context.Context, graphID string, opts ...Option) (*Session, error) {
	r.mu.RLock()
	full := r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions
	r.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	src, err := r.sources(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("graph source: %w", err)
	}
	id := uuid.NewString()
	all := append(append([]Option(nil), r.opts...), opts...)
	s, err := NewSession(id, graphID, src, r.store, r.cfg, all...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns an open session
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns the open sessions, oldest first
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].created.Equal(out[j].created) {
			return out[i].id < out[j].id
		}
		return out[i].created.Before(out[j].created)
	})
	return out
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Usage returns the open session count and the configured maximum
func (r *Registry) Usage() (open, max int) {
	return r.Len(), r.cfg.MaxSessions
}

// HostModes counts open sessions by where their simulation runs
func (r *Registry) HostModes() (worker, inProcess int) {
	for _, s := range r.List() {
		if s.Host().Mode() == simhost.ModeWorker {
			worker++
		} else {
			inProcess++
		}
	}
	return worker, inProcess
}

// Close destroys one session
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return s.Destroy()
}

// CloseAll destroys every session and returns the first error
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var first error
	for _, s := range sessions {
		if err := s.Destroy(); err != nil && first == nil {
			first = err
		}
	}
	if len(sessions) > 0 {
		r.logger.Info("sessions closed", logging.Count(len(sessions)))
	}
	return first
}
