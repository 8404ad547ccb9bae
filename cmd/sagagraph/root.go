package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/saga-graph/pkg/config"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/viewer"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// app carries the state shared by every command
type app struct {
	cfgPath  string
	file     string
	url      string
	logLevel string
	layout   string
	settle   time.Duration

	cfg     config.Config
	logger  logging.Logger
	metrics *metrics.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "sagagraph",
		Short:         "Lay out, render and query saga relationship graphs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	cmd.SetVersionTemplate("sagagraph {{ .Version }}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	pf.StringVarP(&a.file, "file", "f", "", "read the graph from a JSON file instead of the configured source")
	pf.StringVar(&a.url, "url", "", "fetch the graph from this URL ({id} is replaced by the graph id)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&a.layout, "layout", "l", "", "layout: force, hierarchical, circular, radial, grid or clustered")
	pf.DurationVar(&a.settle, "settle-timeout", 30*time.Second, "how long to wait for the layout to settle")

	cmd.AddCommand(
		newRenderCmd(a),
		newPathCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
	)
	return cmd
}

// init loads the configuration and applies flag overrides
func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	switch {
	case a.file != "":
		cfg.Viewer.Loader.Kind = loader.KindFile
		cfg.Viewer.Loader.Path = a.file
	case a.url != "":
		cfg.Viewer.Loader.Kind = loader.KindHTTP
		cfg.Viewer.Loader.URL = a.url
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.layout != "" {
		kind, err := visualization.ParseKind(a.layout)
		if err != nil {
			return err
		}
		cfg.Viewer.DefaultLayout = string(kind)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.metrics = metrics.NewRegistry()
	return nil
}

// openStore opens the configured layout store
func (a *app) openStore(ctx context.Context) (layoutstore.Store, error) {
	return layoutstore.Open(ctx, a.cfg.LayoutStore, a.logger, a.metrics)
}

// oneShot is a single loaded session used by the batch commands
type oneShot struct {
	session *viewer.Session
	reg     *viewer.Registry
	store   layoutstore.Store
}

func (o *oneShot) Close() error {
	return errors.Join(o.reg.CloseAll(), o.store.Close())
}

// open loads graphID and waits for its layout to settle
func (a *app) open(ctx context.Context, graphID string) (*oneShot, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := viewer.NewRegistry(a.cfg.Viewer, store,
		viewer.LoaderSources(a.cfg.Viewer.Loader, a.logger),
		viewer.WithLogger(a.logger),
		viewer.WithMetrics(a.metrics))
	if err != nil {
		store.Close()
		return nil, err
	}
	o := &oneShot{reg: reg, store: store}

	s, err := reg.Create(ctx, graphID)
	if err != nil {
		o.Close()
		return nil, err
	}
	o.session = s

	if err := s.Load(ctx); err != nil {
		status := s.Status()
		o.Close()
		return nil, fmt.Errorf("%s: %w", status.Message, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.settle)
	defer cancel()
	reason, err := s.WaitSettled(waitCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		warn.Fprintf(os.Stderr, "layout did not settle within %s, using current positions\n", a.settle)
	case err != nil:
		o.Close()
		return nil, err
	default:
		a.logger.Debug("layout settled", logging.String("reason", string(reason)))
	}
	return o, nil
}
