package layoutstore

import (
	"context"
	"time"

	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config selects the snapshot backend
type Config struct {
	Backend string `yaml:"backend" toml:"backend"`
	Dir     string `yaml:"dir" toml:"dir"`

	DatabaseURL string `yaml:"database_url" toml:"database_url"`
	MaxConns    int32  `yaml:"max_conns" toml:"max_conns"`

	S3 S3Config `yaml:"s3" toml:"s3"`

	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// S3Config locates the snapshot bucket
type S3Config struct {
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// DefaultConfig keeps snapshots in memory
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Dir:     "layouts",
		Timeout: 5 * time.Second,
		S3:      S3Config{Prefix: "layouts"},
	}
}

// Validate checks the store configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("LayoutStore").
		OneOf("Backend", c.Backend, []string{BackendMemory, BackendFile, BackendPostgres, BackendS3}).
		When(c.Backend == BackendFile, func(v *validation.ConfigValidator) {
			v.Required("Dir", c.Dir)
		}).
		When(c.Backend == BackendPostgres, func(v *validation.ConfigValidator) {
			v.Required("DatabaseURL", c.DatabaseURL)
		}).
		When(c.Backend == BackendS3, func(v *validation.ConfigValidator) {
			v.Required("S3.Bucket", c.S3.Bucket)
		}).
		NonNegativeDuration("Timeout", c.Timeout).
		Validate()
}

// Open constructs the configured backend wrapped with logging and metrics
func Open(ctx context.Context, cfg Config, logger logging.Logger, reg *metrics.Registry) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendFile:
		store, err = NewFileStore(cfg.Dir)
	case BackendPostgres:
		store, err = NewPGStore(ctx, cfg.DatabaseURL, cfg.MaxConns)
	case BackendS3:
		store, err = NewS3Store(ctx, cfg.S3)
	default:
		store = NewMemoryStore()
	}
	if err != nil {
		return nil, err
	}
	return Instrument(store, cfg.Timeout, logger, reg), nil
}
