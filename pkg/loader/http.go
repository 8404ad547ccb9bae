package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

const tracerName = "github.com/dd0wney/saga-graph/pkg/loader"

// HTTPSource GETs a graph payload as JSON. Requests pass through a circuit
// breaker; only retryable failures count against it.
type HTTPSource struct {
	url     string
	client  *http.Client
	maxBody int64
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  logging.Logger
}

// NewHTTPSource builds a source for url. "{id}" in url is replaced by graphID.
func NewHTTPSource(url, graphID string, cfg Config, logger logging.Logger) *HTTPSource {
	logger = logging.OrNop(logger).With(logging.Component("loader.http"))
	url = strings.ReplaceAll(url, "{id}", graphID)
	s := &HTTPSource{
		url:     url,
		client:  &http.Client{Timeout: cfg.Timeout},
		maxBody: cfg.MaxBodyBytes,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultConfig().MaxBodyBytes
	}
	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = DefaultConfig().Breaker.FailureThreshold
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-fetch:" + url,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("graph fetch circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
	})
	return s
}

func (s *HTTPSource) Name() string { return "http" }

// URL returns the resolved endpoint
func (s *HTTPSource) URL() string { return s.url }

// BreakerState reports the circuit breaker state
func (s *HTTPSource) BreakerState() gobreaker.State { return s.breaker.State() }

func (s *HTTPSource) Fetch(ctx context.Context) (*graph.Payload, error) {
	ctx, span := s.tracer.Start(ctx, "loader.HTTPSource.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", s.url)),
	)
	defer span.End()

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &FetchError{Source: s.Name(), Retryable: true, Err: err}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph fetch failed")
		return nil, err
	}
	p := out.(*graph.Payload)
	span.SetAttributes(
		attribute.Int("graph.nodes", len(p.Nodes)),
		attribute.Int("graph.edges", len(p.Edges)),
	)
	return p, nil
}

func (s *HTTPSource) fetch(ctx context.Context) (*graph.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Retryable: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			Source:     s.Name(),
			StatusCode: resp.StatusCode,
			Retryable:  retryableStatus(resp.StatusCode),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Retryable: true, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, s.maxBody)
	}
	p, err := graph.DecodePayload(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
