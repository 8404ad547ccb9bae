// Package loader fetches graph data from a backend, validates it and builds
// the in-memory graph. Transient fetch failures are retried with exponential
// backoff; integrity problems in individual items are reported and skipped.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

// IssueInvalidField marks an item dropped because a field failed validation
const IssueInvalidField graph.IssueKind = "invalid_field"

// Result is one successfully built graph
type Result struct {
	Graph    *graph.Graph
	Issues   []graph.Issue
	Attempts int
}

// Loader fetches from one Source
type Loader struct {
	src     Source
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wraps src with the retry policy of cfg
func New(src Source, cfg Config, logger logging.Logger, reg *metrics.Registry) *Loader {
	return &Loader{
		src:     src,
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("loader"), logging.Source(src.Name())),
		metrics: metrics.OrDefault(reg),
		sleep:   sleepContext,
	}
}

// NewSource constructs the source cfg.Kind names. A static source starts
// empty; callers fill it with Set.
func NewSource(ctx context.Context, cfg Config, graphID string, logger logging.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindHTTP:
		return NewHTTPSource(cfg.URL, graphID, cfg, logger), nil
	case KindFile:
		return NewFileSource(cfg.Path, logger), nil
	case KindNeo4j:
		return NewNeo4jSource(ctx, cfg.Neo4j, graphID, logger)
	default:
		return NewStaticSource(graphID, &graph.Payload{}), nil
	}
}

// Source returns the wrapped source
func (l *Loader) Source() Source { return l.src }

// Load fetches, validates and builds graph graphID. Retryable fetch errors
// are retried up to MaxRetries times; the last error is returned.
func (l *Loader) Load(ctx context.Context, graphID string) (*Result, error) {
	timer := logging.StartTimer(l.logger, "graph load", logging.String("graph", graphID))
	start := time.Now()

	var (
		payload *graph.Payload
		err     error
		attempt int
	)
	for attempt = 0; ; attempt++ {
		payload, err = l.src.Fetch(ctx)
		if err == nil || !IsRetryable(err) || attempt >= l.cfg.MaxRetries {
			break
		}
		delay := l.backoff(attempt)
		l.logger.Warn("graph fetch failed, retrying",
			logging.Error(err),
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", delay))
		l.metrics.RecordLoadRetry(l.src.Name())
		if serr := l.sleep(ctx, delay); serr != nil {
			err = serr
			break
		}
	}
	if err != nil {
		l.metrics.RecordLoad(l.src.Name(), 0, time.Since(start), err)
		timer.EndError(err)
		return nil, err
	}

	g, issues, err := l.build(graphID, payload)
	l.metrics.RecordLoad(l.src.Name(), g.Len(), time.Since(start), err)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End()
	return &Result{Graph: g, Issues: issues, Attempts: attempt + 1}, nil
}

func (l *Loader) build(graphID string, payload *graph.Payload) (*graph.Graph, []graph.Issue, error) {
	if payload == nil {
		return &graph.Graph{}, nil, fmt.Errorf("%w: empty response", ErrInvalidPayload)
	}
	filtered, fieldErrs := validation.FilterPayload(payload)
	var issues []graph.Issue
	for _, ferr := range fieldErrs {
		issues = append(issues, graph.Issue{Kind: IssueInvalidField, Edge: -1, Message: ferr.Error()})
		l.logger.Warn("graph data integrity issue",
			logging.String("kind", string(IssueInvalidField)),
			logging.String("detail", ferr.Error()))
	}
	if err := validation.ValidatePayload(filtered); err != nil {
		return &graph.Graph{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	g, buildIssues := graph.Build(graphID, filtered, l.logger)
	issues = append(issues, buildIssues...)
	for _, issue := range issues {
		l.metrics.RecordIntegrityIssue(string(issue.Kind))
	}
	l.logger.Info("graph built",
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)),
		logging.Int("issues", len(issues)))
	return g, issues, nil
}

func (l *Loader) backoff(attempt int) time.Duration {
	d := l.cfg.Backoff
	for i := 0; i < attempt && d < l.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if l.cfg.MaxBackoff > 0 && d > l.cfg.MaxBackoff {
		d = l.cfg.MaxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsInvalid reports whether err means the data itself was unusable
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
