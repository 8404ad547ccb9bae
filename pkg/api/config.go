package api

import (
	"time"

	"github.com/dd0wney/saga-graph/pkg/api/middleware"
	tlsconf "github.com/dd0wney/saga-graph/pkg/tls"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Config configures the HTTP API
type Config struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" toml:"max_body_bytes"`

	// AllowedOrigins lists browser origins allowed by CORS; empty disables CORS
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	HSTS           bool     `yaml:"hsts" toml:"hsts"`

	TLS tlsconf.Config `yaml:"tls" toml:"tls"`

	GraphQL         bool `yaml:"graphql" toml:"graphql"`
	GraphQLMaxDepth int  `yaml:"graphql_max_depth" toml:"graphql_max_depth"`

	// SessionRate and SessionBurst limit session creation per client;
	// a zero rate disables limiting
	SessionRate  float64 `yaml:"session_rate" toml:"session_rate"`
	SessionBurst int     `yaml:"session_burst" toml:"session_burst"`
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	rl := middleware.DefaultRateLimitConfig()
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		GraphQL:         true,
		GraphQLMaxDepth: 6,
		SessionRate:     rl.RequestsPerSecond,
		SessionBurst:    rl.BurstSize,
		TLS:             tlsconf.DefaultConfig(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("api.Config").
		Required("Addr", c.Addr).
		NonNegativeDuration("ReadTimeout", c.ReadTimeout).
		NonNegativeDuration("WriteTimeout", c.WriteTimeout).
		NonNegativeDuration("IdleTimeout", c.IdleTimeout).
		NonNegativeDuration("ShutdownTimeout", c.ShutdownTimeout).
		Positive("MaxBodyBytes", int(c.MaxBodyBytes)).
		When(c.GraphQL, func(v *validation.ConfigValidator) {
			v.Positive("GraphQLMaxDepth", c.GraphQLMaxDepth)
		}).
		NonNegativeFloat("SessionRate", c.SessionRate).
		When(c.SessionRate > 0, func(v *validation.ConfigValidator) {
			v.Positive("SessionBurst", c.SessionBurst)
		}).
		Nested("TLS", c.TLS).
		Validate()
}

func (c Config) rateLimit() middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = c.SessionRate
	rl.BurstSize = c.SessionBurst
	return rl
}
