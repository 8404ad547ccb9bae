// Command sagagraph-tui explores a saga relationship graph in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/saga-graph/pkg/config"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/viewer"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.yaml, .yml or .toml)")
	file := flag.String("file", "", "read the graph from a JSON file")
	url := flag.String("url", "", "fetch the graph from this URL ({id} is replaced by the graph id)")
	graphID := flag.String("graph", "", "graph id")
	layout := flag.String("layout", "", "initial layout")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	if err := run(*cfgPath, *file, *url, *graphID, *layout, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "sagagraph-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, file, url, graphID, layout, logPath string) error {
	if graphID == "" {
		return errors.New("-graph is required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	switch {
	case file != "":
		cfg.Viewer.Loader.Kind = loader.KindFile
		cfg.Viewer.Loader.Path = file
	case url != "":
		cfg.Viewer.Loader.Kind = loader.KindHTTP
		cfg.Viewer.Loader.URL = url
	}
	if layout != "" {
		kind, err := visualization.ParseKind(layout)
		if err != nil {
			return err
		}
		cfg.Viewer.DefaultLayout = string(kind)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// the terminal belongs to the UI, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	// zap always writes to stderr
	cfg.Log.Format = config.FormatJSON
	logger, err := cfg.Log.NewLogger(logOut)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metrics.NewRegistry()
	store, err := layoutstore.Open(ctx, cfg.LayoutStore, logger, reg)
	if err != nil {
		return err
	}
	defer store.Close()

	ev := newEvents()
	opts := append([]viewer.Option{viewer.WithLogger(logger), viewer.WithMetrics(reg)}, ev.options()...)
	sessions, err := viewer.NewRegistry(cfg.Viewer, store, viewer.LoaderSources(cfg.Viewer.Loader, logger), opts...)
	if err != nil {
		return err
	}
	defer sessions.CloseAll()

	s, err := sessions.Create(ctx, graphID)
	if err != nil {
		return err
	}
	logger.Info("explorer started", logging.SessionID(s.ID()), logging.String("graph", graphID))

	_, err = tea.NewProgram(newModel(ctx, s, ev), tea.WithAltScreen()).Run()
	return err
}
