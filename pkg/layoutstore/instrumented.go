package layoutstore

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

// instrumented bounds each call by a timeout, counts it and logs failures
type instrumented struct {
	Store
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Registry
}

// Instrument wraps s. A zero timeout leaves the caller's deadline alone.
func Instrument(s Store, timeout time.Duration, logger logging.Logger, reg *metrics.Registry) Store {
	return &instrumented{
		Store:   s,
		timeout: timeout,
		logger:  logging.OrNop(logger).With(logging.Component("layoutstore"), logging.String("backend", s.Backend())),
		metrics: metrics.OrDefault(reg),
	}
}

func (i *instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, i.timeout)
}

func (i *instrumented) Save(ctx context.Context, s *Snapshot) error {
	ctx, cancel := i.bound(ctx)
	defer cancel()
	err := i.Store.Save(ctx, s)
	i.metrics.RecordLayoutStore(i.Backend(), "save", err)
	if err != nil {
		i.logger.Error("layout save failed", logging.Error(err))
		return err
	}
	i.logger.Debug("layout saved",
		logging.String("graph", s.GraphID),
		logging.Count(len(s.Nodes)))
	return nil
}

func (i *instrumented) Load(ctx context.Context, graphID string) (*Snapshot, error) {
	ctx, cancel := i.bound(ctx)
	defer cancel()
	snap, err := i.Store.Load(ctx, graphID)
	if errors.Is(err, ErrNotFound) {
		i.metrics.RecordLayoutStore(i.Backend(), "load", nil)
		return nil, err
	}
	i.metrics.RecordLayoutStore(i.Backend(), "load", err)
	if err != nil {
		i.logger.Error("layout load failed", logging.String("graph", graphID), logging.Error(err))
	}
	return snap, err
}
