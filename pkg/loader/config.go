package loader

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Source kinds accepted by Config.Kind
const (
	KindHTTP   = "http"
	KindFile   = "file"
	KindNeo4j  = "neo4j"
	KindStatic = "static"
)

// Config selects a graph source and the retry policy around it
type Config struct {
	Kind string `yaml:"kind" toml:"kind"`
	// URL is the graph endpoint for the http source. The graph id is
	// substituted for "{id}" when present.
	URL  string `yaml:"url" toml:"url"`
	Path string `yaml:"path" toml:"path"`

	Timeout      time.Duration `yaml:"timeout" toml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" toml:"max_body_bytes"`

	MaxRetries int           `yaml:"max_retries" toml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff" toml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff" toml:"max_backoff"`

	Breaker BreakerConfig `yaml:"breaker" toml:"breaker"`
	Neo4j   Neo4jConfig   `yaml:"neo4j" toml:"neo4j"`
}

// BreakerConfig tunes the circuit breaker in front of the http source
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" toml:"max_requests"`
	Interval         time.Duration `yaml:"interval" toml:"interval"`
	Timeout          time.Duration `yaml:"timeout" toml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold" toml:"failure_threshold"`
}

// Neo4jConfig locates a graph stored in Neo4j
type Neo4jConfig struct {
	URI      string `yaml:"uri" toml:"uri"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Database string `yaml:"database" toml:"database"`
	// Label restricts node matching; empty matches every node
	Label string `yaml:"label" toml:"label"`
}

// DefaultConfig retries three times starting at 500ms
func DefaultConfig() Config {
	return Config{
		Kind:         KindHTTP,
		Timeout:      10 * time.Second,
		MaxBodyBytes: 32 << 20,
		MaxRetries:   3,
		Backoff:      500 * time.Millisecond,
		MaxBackoff:   5 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Validate checks the loader configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("Loader").
		OneOf("Kind", c.Kind, []string{KindHTTP, KindFile, KindNeo4j, KindStatic}).
		When(c.Kind == KindHTTP, func(v *validation.ConfigValidator) {
			v.Required("URL", c.URL).
				MinDuration("Timeout", c.Timeout, time.Millisecond).
				Positive("MaxBodyBytes", int(c.MaxBodyBytes))
		}).
		When(c.Kind == KindFile, func(v *validation.ConfigValidator) {
			v.Required("Path", c.Path)
		}).
		When(c.Kind == KindNeo4j, func(v *validation.ConfigValidator) {
			v.Required("Neo4j.URI", c.Neo4j.URI).
				Custom("Neo4j.Label", func() error { return checkLabel(c.Neo4j.Label) })
		}).
		NonNegative("MaxRetries", c.MaxRetries).
		NonNegativeDuration("Backoff", c.Backoff).
		NonNegativeDuration("MaxBackoff", c.MaxBackoff).
		Validate()
}

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkLabel(label string) error {
	if label != "" && !labelPattern.MatchString(label) {
		return fmt.Errorf("label %q must be a plain identifier", label)
	}
	return nil
}
