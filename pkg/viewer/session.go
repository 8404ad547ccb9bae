// Package viewer ties a graph source, a simulation host, a renderer and an
// interaction controller into sessions, one per displayed graph.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/render"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

var (
	// ErrNotReady is returned by graph operations before a successful load
	ErrNotReady = errors.New("graph not loaded")
	// ErrDestroyed is returned after Destroy
	ErrDestroyed = errors.New("session destroyed")
	// ErrNoStore is returned by layout persistence without a store
	ErrNoStore = errors.New("no layout store configured")
)

// State is the load state of a session
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// settlePoll is how often WaitSettled checks a restarted simulation
const settlePoll = 10 * time.Millisecond

// Status is what a viewport shows about its session. In the error state
// Message is the text of the error panel and Retryable enables its retry
// action; no partial graph is shown.
type Status struct {
	State     State  `json:"state"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`

	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Issues   int    `json:"issues"`
	Layout   string `json:"layout,omitempty"`
	HostMode string `json:"hostMode"`
	Settled  bool   `json:"settled"`
}

// layoutRun tracks one Start on the host
type layoutRun struct {
	once   sync.Once
	done   chan struct{}
	reason simulation.EndReason
}

func newLayoutRun() *layoutRun {
	return &layoutRun{done: make(chan struct{})}
}

func (r *layoutRun) finish(reason simulation.EndReason) {
	r.once.Do(func() {
		r.reason = reason
		close(r.done)
	})
}

// Session displays one graph
type Session struct {
	id      string
	graphID string
	created time.Time
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	opts    options

	loader     *loader.Loader
	host       simhost.Host
	store      layoutstore.Store
	notices    *interaction.Notices
	controller *interaction.Controller

	mu        sync.Mutex
	g         *graph.Graph
	status    Status
	issues    []graph.Issue
	layout    visualization.Kind
	run       *layoutRun
	lastEnd   simulation.EndReason
	destroyed bool

	renderMu  sync.Mutex
	renderers map[render.Mode]render.Renderer

	destroyOnce sync.Once
}

// NewSession builds a session for graphID reading from src. store may be
// nil, in which case layout persistence is unavailable. The graph is not
// fetched until Load.
func NewSession(id, graphID string, src loader.Source, store layoutstore.Store, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	logger := o.logger.With(logging.Component("viewer"), logging.SessionID(id))

	host, err := simhost.New(cfg.Host, logger, o.metrics)
	if err != nil {
		return nil, fmt.Errorf("simulation host: %w", err)
	}

	s := &Session{
		id:        id,
		graphID:   graphID,
		created:   time.Now(),
		cfg:       cfg,
		logger:    logger,
		metrics:   o.metrics,
		opts:      o,
		loader:    loader.New(src, cfg.Loader, logger, o.metrics),
		host:      host,
		store:     store,
		notices:   interaction.NewNotices(cfg.NoticeTTL),
		g:         graph.New(graphID, nil, nil),
		layout:    visualization.Kind(cfg.DefaultLayout),
		run:       newLayoutRun(),
		renderers: make(map[render.Mode]render.Renderer),
	}
	s.run.finish(simulation.EndStopped)
	s.status = Status{State: StateIdle, HostMode: string(host.Mode())}

	notifier := interaction.NotifierFunc(func(msg string) {
		s.notices.Notify(msg)
		if o.onNotice != nil {
			o.onNotice(msg)
		}
	})
	s.controller, err = interaction.New(cfg.Interaction, host, s.g, cfg.Width, cfg.Height, notifier, interaction.Callbacks{
		OnNavigate: o.onNavigate,
		OnDetails:  o.onDetails,
		OnSwitchLayout: func(kind visualization.Kind) error {
			return s.SwitchLayout(context.Background(), kind)
		},
		OnSave: func() error {
			return s.SaveLayout(context.Background())
		},
		OnRedraw: s.redraw,
	}, logger)
	if err != nil {
		host.Close()
		return nil, err
	}

	s.metrics.SessionOpened()
	logger.Info("session created",
		logging.String("graph", graphID),
		logging.HostMode(string(host.Mode())),
		logging.Source(src.Name()))
	return s, nil
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// GraphID returns the id of the displayed graph
func (s *Session) GraphID() string { return s.graphID }

// Created returns when the session was built
func (s *Session) Created() time.Time { return s.created }

// Controller returns the interaction controller
func (s *Session) Controller() *interaction.Controller { return s.controller }

// Host returns the simulation host
func (s *Session) Host() simhost.Host { return s.host }

// Notices returns the transient messages currently on screen
func (s *Session) Notices() []string { return s.notices.Active() }

// Issues returns the integrity problems found by the last load
func (s *Session) Issues() []graph.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]graph.Issue(nil), s.issues...)
}

// Status reports the load state
func (s *Session) Status() Status {
	s.mu.Lock()
	st := s.status
	run := s.run
	s.mu.Unlock()
	select {
	case <-run.done:
		// a drag restarts the simulation without a new run
		st.Settled = st.State == StateReady && !s.host.Running()
	default:
	}
	return st
}

// Graph returns the displayed graph. Read node positions through
// Host().Read.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g
}

func (s *Session) redraw() {
	if s.opts.onRedraw != nil {
		s.opts.onRedraw()
	}
}

func (s *Session) ready() (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.status.State != StateReady {
		return nil, ErrNotReady
	}
	return s.g, nil
}

// Load fetches the graph and starts the default layout. A failed fetch
// puts the session in the error state with an empty graph; the error is
// also returned.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.status = Status{State: StateLoading, HostMode: string(s.host.Mode())}
	s.mu.Unlock()
	s.redraw()

	res, err := s.loader.Load(ctx, s.graphID)
	if err != nil {
		s.host.Stop()
		empty := graph.New(s.graphID, nil, nil)
		s.controller.SetGraph(empty)
		s.mu.Lock()
		s.g = empty
		s.issues = nil
		s.status = Status{
			State:     StateError,
			Message:   loadErrorMessage(err),
			Retryable: !loader.IsInvalid(err) || loader.IsRetryable(err),
			HostMode:  string(s.host.Mode()),
		}
		s.mu.Unlock()
		s.logger.Error("graph load failed", logging.Error(err))
		s.redraw()
		return err
	}

	s.host.Stop()
	restored := 0
	if s.cfg.RestoreOnLoad && s.store != nil {
		snap, lerr := s.store.Load(ctx, s.graphID)
		switch {
		case lerr == nil:
			restored = layoutstore.Restore(snap, res.Graph)
		case !errors.Is(lerr, layoutstore.ErrNotFound):
			s.logger.Warn("saved layout unavailable", logging.Error(lerr))
		}
	}

	s.controller.SetGraph(res.Graph)
	s.mu.Lock()
	s.g = res.Graph
	s.issues = res.Issues
	kind := s.layout
	s.status = Status{
		State:    StateReady,
		Nodes:    len(res.Graph.Nodes),
		Edges:    len(res.Graph.Edges),
		Issues:   len(res.Issues),
		Layout:   string(kind),
		HostMode: string(s.host.Mode()),
	}
	s.mu.Unlock()

	if restored > 0 {
		s.logger.Info("saved layout restored", logging.Count(restored))
	}
	return s.startLayout(ctx, res.Graph, kind)
}

func loadErrorMessage(err error) string {
	var fe *loader.FetchError
	switch {
	case errors.As(err, &fe) && fe.StatusCode != 0:
		return fmt.Sprintf("Could not load the graph (HTTP %d).", fe.StatusCode)
	case loader.IsInvalid(err):
		return "The graph data could not be read."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Loading the graph timed out."
	}
	return "Could not load the graph."
}

// Retry reloads after a failed load
func (s *Session) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

// startLayout applies kind through the host and tracks the run
func (s *Session) startLayout(ctx context.Context, g *graph.Graph, kind visualization.Kind) error {
	run := newLayoutRun()
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()

	req := simhost.LayoutRequest{
		Kind:   kind,
		Config: s.cfg.Layout,
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
	}
	err := s.host.Start(ctx, g, req, simhost.Hooks{
		OnTick: s.redraw,
		OnEnd: func(reason simulation.EndReason) {
			s.mu.Lock()
			s.lastEnd = reason
			s.mu.Unlock()
			run.finish(reason)
			s.logger.Debug("layout settled", logging.Layout(string(kind)), logging.String("reason", string(reason)))
			s.redraw()
		},
	})
	if err != nil {
		run.finish(simulation.EndStopped)
		return fmt.Errorf("start %s layout: %w", kind, err)
	}
	return nil
}

// WaitSettled blocks until the current layout run ends and no drag has
// restarted the simulation since, or until ctx is done. It returns why the
// simulation last stopped.
func (s *Session) WaitSettled(ctx context.Context) (simulation.EndReason, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	select {
	case <-run.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for s.host.Running() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == run && s.lastEnd != "" {
		return s.lastEnd, nil
	}
	return run.reason, nil
}

// SwitchLayout applies another layout. Switching to a fixed layout first
// animates every node from its current position to its target.
func (s *Session) SwitchLayout(ctx context.Context, kind visualization.Kind) error {
	if _, err := visualization.ParseKind(string(kind)); err != nil {
		return err
	}
	g, err := s.ready()
	if err != nil {
		return err
	}

	if kind.IsFixed() && s.cfg.TransitionDuration > 0 && g.Len() > 0 {
		if err := s.animateTo(ctx, g, kind); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.layout = kind
	s.status.Layout = string(kind)
	s.mu.Unlock()
	s.logger.Info("layout switched", logging.Layout(string(kind)))
	return s.startLayout(ctx, g, kind)
}

func (s *Session) animateTo(ctx context.Context, g *graph.Graph, kind visualization.Kind) error {
	layout, err := visualization.New(kind, s.cfg.Layout, visualization.WithLogger(s.logger))
	if err != nil {
		return err
	}
	fixed, ok := layout.(visualization.FixedLayout)
	if !ok {
		return nil
	}

	s.host.Stop()
	var tr *visualization.Transition
	s.host.Read(func() {
		var targets map[string]visualization.Position
		targets, err = fixed.Positions(g, s.cfg.Width, s.cfg.Height)
		if err == nil {
			tr = visualization.NewTransition(g.Nodes, targets, s.cfg.TransitionDuration, s.cfg.FrameInterval)
		}
	})
	if err != nil {
		return err
	}
	if err := tr.Run(ctx, s.host.Read, func(int) { s.redraw() }); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Render writes the current frame. format is "svg", "png" or "" to let the
// node count choose.
func (s *Session) Render(w io.Writer, format string) (render.Mode, error) {
	mode, forced, err := render.ParseFormat(format)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	g := s.g
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed {
		return "", ErrDestroyed
	}
	if !forced {
		mode = s.cfg.Render.Select(g.Len())
	}

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	r, ok := s.renderers[mode]
	if !ok {
		r, err = render.NewMode(s.cfg.Render, mode,
			render.WithLogger(s.logger),
			render.WithMetrics(s.metrics))
		if err != nil {
			return "", err
		}
		s.renderers[mode] = r
	}

	var view render.View
	s.controller.Viewport(func(v *interaction.Viewport) { view = v.View() })
	s.host.Read(func() { r.Prepare(g, view) })
	return mode, r.Write(w)
}

// FindPath highlights the shortest path between two nodes. When there is
// none a "No path found" notice is shown and ok is false.
func (s *Session) FindPath(ctx context.Context, sourceID, targetID string) ([]string, bool, error) {
	if _, err := s.ready(); err != nil {
		return nil, false, err
	}
	path, ok := s.controller.FindPath(ctx, sourceID, targetID)
	return path, ok, nil
}

// Centrality returns the degree of every node
func (s *Session) Centrality(ctx context.Context) (map[string]int, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	return s.host.Centrality(ctx)
}

// Communities groups node ids by entity type
func (s *Session) Communities(ctx context.Context) (map[string][]string, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	return s.host.Communities(ctx)
}

// SaveLayout persists the current positions and pins
func (s *Session) SaveLayout(ctx context.Context) error {
	g, err := s.ready()
	if err != nil {
		return err
	}
	if s.store == nil {
		return ErrNoStore
	}
	s.mu.Lock()
	kind := s.layout
	s.mu.Unlock()

	var snap *layoutstore.Snapshot
	s.host.Read(func() { snap = layoutstore.Capture(s.graphID, string(kind), g) })
	if err := s.store.Save(ctx, snap); err != nil {
		return err
	}
	s.logger.Info("layout saved", logging.Count(len(snap.Nodes)))
	return nil
}

// RestoreLayout applies the saved snapshot and returns how many nodes it
// moved. The running simulation continues from the restored positions.
func (s *Session) RestoreLayout(ctx context.Context) (int, error) {
	if _, err := s.ready(); err != nil {
		return 0, err
	}
	if s.store == nil {
		return 0, ErrNoStore
	}
	snap, err := s.store.Load(ctx, s.graphID)
	if err != nil {
		return 0, err
	}
	n, err := s.host.Restore(func(g *graph.Graph) int {
		return layoutstore.Restore(snap, g)
	})
	s.redraw()
	if err != nil {
		return n, fmt.Errorf("restore layout: %w", err)
	}
	return n, nil
}

// Destroy stops the simulation and the worker before returning. It is
// safe to call more than once.
func (s *Session) Destroy() error {
	var err error
	s.destroyOnce.Do(func() {
		s.mu.Lock()
		s.destroyed = true
		s.mu.Unlock()

		err = s.host.Close()
		if closer, ok := s.loader.Source().(interface{ Close(context.Context) error }); ok {
			if cerr := closer.Close(context.Background()); cerr != nil && err == nil {
				err = cerr
			}
		}
		s.metrics.SessionClosed()
		s.logger.Info("session destroyed")
	})
	return err
}
