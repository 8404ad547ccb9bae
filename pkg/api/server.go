// Package api serves viewer sessions over HTTP: session lifecycle, layout
// switching and persistence, path finding, analytics, rendered frames,
// health, Prometheus metrics and GraphQL.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dd0wney/saga-graph/pkg/api/middleware"
	"github.com/dd0wney/saga-graph/pkg/graphql"
	"github.com/dd0wney/saga-graph/pkg/health"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	tlsconf "github.com/dd0wney/saga-graph/pkg/tls"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

// Sessions is the session registry the API serves
type Sessions interface {
	Create(ctx context.Context, graphID string, opts ...viewer.Option) (*viewer.Session, error)
	Get(id string) (*viewer.Session, bool)
	List() []*viewer.Session
	Close(id string) error
	Usage() (open, max int)
}

// Server is the HTTP API
type Server struct {
	cfg      Config
	sessions Sessions
	health   *health.Checker
	metrics  *metrics.Registry
	logger   logging.Logger
	limiter  *middleware.RateLimiter
	graphql  http.Handler
	handler  http.Handler
	tls      *tls.Config
	started  time.Time
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics sets the metrics registry served on /metrics
func WithMetrics(r *metrics.Registry) Option { return func(s *Server) { s.metrics = r } }

// WithHealth sets the health checker; New registers its own checks on it
func WithHealth(h *health.Checker) Option { return func(s *Server) { s.health = h } }

// New builds the server and its router
func New(cfg Config, sessions Sessions, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sessions == nil {
		return nil, errors.New("api: sessions are required")
	}
	s := &Server{cfg: cfg, sessions: sessions, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).With(logging.Component("api"))
	s.metrics = metrics.OrDefault(s.metrics)
	if s.health == nil {
		s.health = health.NewChecker(0)
	}
	s.health.Register("sessions", health.SessionsCheck(sessions.Usage))
	s.health.RegisterLiveness("process", health.Static("process"))

	if cfg.SessionRate > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.rateLimit(), s.logger)
	}
	if cfg.GraphQL {
		lookup, ok := sessions.(graphql.Sessions)
		if !ok {
			return nil, errors.New("api: sessions do not support graphql lookups")
		}
		schema, err := graphql.NewSchema(lookup)
		if err != nil {
			return nil, fmt.Errorf("graphql schema: %w", err)
		}
		s.graphql = graphql.NewHandler(schema, cfg.GraphQLMaxDepth, s.logger)
	}
	tlsCfg, err := tlsconf.Load(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}
	s.tls = tlsCfg
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.handler }

// Health returns the health checker
func (s *Server) Health() *health.Checker { return s.health }

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully within ShutdownTimeout. With TLS enabled l is wrapped in a TLS
// listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		TLSConfig:         s.tls,
	}
	scheme := "http"
	if s.tls != nil {
		l = tls.NewListener(l, s.tls)
		scheme = "https"
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening",
			logging.String("addr", l.Addr().String()),
			logging.String("scheme", scheme))
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		s.stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("api shutting down", logging.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.stop()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, l)
}

func (s *Server) stop() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
