package main

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"github.com/dd0wney/saga-graph/pkg/api"
	"github.com/dd0wney/saga-graph/pkg/health"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		memoryLimit uint64
		watch       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and GraphQL API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context(), memoryLimit, watch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	cmd.Flags().Uint64Var(&memoryLimit, "memory-limit", 512<<20, "heap size in bytes above which health reports degraded, 0 to disable")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload open sessions when the graph file changes (file source only)")
	return cmd
}

func (a *app) serve(ctx context.Context, memoryLimit uint64, watch bool) error {
	logger := a.logger.With(logging.Component("serve"))

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sources := &trackedSources{next: viewer.LoaderSources(a.cfg.Viewer.Loader, a.logger)}
	reg, err := viewer.NewRegistry(a.cfg.Viewer, store, sources.Source,
		viewer.WithLogger(a.logger),
		viewer.WithMetrics(a.metrics))
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.CloseAll(); err != nil {
			logger.Warn("closing sessions", logging.Error(err))
		}
	}()

	checker := health.NewChecker(health.DefaultTimeout)
	checker.RegisterReadiness("layout_store", health.StoreCheck(store))
	checker.Register("simulation_hosts", health.HostsCheck(
		simhost.Mode(a.cfg.Viewer.Host.Mode) == simhost.ModeWorker, reg.HostModes))
	checker.Register("memory", health.MemoryCheck(memoryLimit))
	if a.cfg.Viewer.Loader.Kind == loader.KindHTTP {
		checker.RegisterReadiness("graph_source", health.BreakerCheck(sources.BreakerState))
	}

	srv, err := api.New(a.cfg.Server, reg,
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics),
		api.WithHealth(checker))
	if err != nil {
		return err
	}

	if watch && a.cfg.Viewer.Loader.Kind == loader.KindFile {
		fs := loader.NewFileSource(a.cfg.Viewer.Loader.Path, a.logger)
		go func() {
			err := fs.Watch(ctx, func() { reloadAll(ctx, reg, logger) })
			if err != nil {
				logger.Warn("graph file watch stopped", logging.Error(err))
			}
		}()
	}

	logger.Info("starting",
		logging.String("version", version),
		logging.String("source", a.cfg.Viewer.Loader.Kind),
		logging.String("layout_store", a.cfg.LayoutStore.Backend))
	return srv.ListenAndServe(ctx)
}

// reloadAll reloads every open session, e.g. after the graph file changed
func reloadAll(ctx context.Context, reg *viewer.Registry, logger logging.Logger) {
	for _, s := range reg.List() {
		if err := s.Retry(ctx); err != nil && !errors.Is(err, viewer.ErrDestroyed) {
			logger.Warn("reload failed", logging.SessionID(s.ID()), logging.Error(err))
		}
	}
}

// trackedSources remembers the http source of each graph so the health
// check can report circuit breaker state
type trackedSources struct {
	next viewer.SourceFactory

	mu   sync.Mutex
	http map[string]*loader.HTTPSource
}

func (t *trackedSources) Source(ctx context.Context, graphID string) (loader.Source, error) {
	src, err := t.next(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if hs, ok := src.(*loader.HTTPSource); ok {
		t.mu.Lock()
		if t.http == nil {
			t.http = make(map[string]*loader.HTTPSource)
		}
		t.http[graphID] = hs
		t.mu.Unlock()
	}
	return src, nil
}

// BreakerState is the worst breaker state across tracked sources
func (t *trackedSources) BreakerState() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	worst := gobreaker.StateClosed
	for _, hs := range t.http {
		if s := hs.BreakerState(); s > worst {
			worst = s
		}
	}
	return worst.String()
}
