// Package config loads the process configuration from YAML or TOML files,
// applies environment overrides and validates every component section.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/saga-graph/pkg/api"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/validation"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

// Log formats
const (
	FormatJSON = "json"
	FormatZap  = "zap"
)

// Config is the whole process configuration
type Config struct {
	Log         LogConfig          `yaml:"log" toml:"log"`
	Server      api.Config         `yaml:"server" toml:"server"`
	Viewer      viewer.Config      `yaml:"viewer" toml:"viewer"`
	LayoutStore layoutstore.Config `yaml:"layout_store" toml:"layout_store"`
}

// LogConfig selects the logger implementation
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultSourceURL is the saga plugin's graph endpoint on a local install
const DefaultSourceURL = "http://localhost/wp-json/saga/v1/graph/{id}"

// Default returns the configuration used when no file is given
func Default() Config {
	v := viewer.DefaultConfig()
	v.Loader.URL = DefaultSourceURL
	return Config{
		Log:         LogConfig{Level: "info", Format: FormatJSON},
		Server:      api.DefaultConfig(),
		Viewer:      v,
		LayoutStore: layoutstore.DefaultConfig(),
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml/.yml or .toml. An empty path returns the defaults. Environment
// overrides are applied before validation.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(&cfg, data, filepath.Ext(path)); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode parses data in the format named by ext into cfg
func Decode(cfg *Config, data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown toml keys: %v", undecoded)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// ApplyEnv overrides settings from LOG_LEVEL, LOG_FORMAT, SAGAGRAPH_ADDR,
// SAGAGRAPH_SOURCE_URL and SAGAGRAPH_DATABASE_URL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v, ok := lookup("SAGAGRAPH_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("SAGAGRAPH_SOURCE_URL"); ok && v != "" {
		c.Viewer.Loader.Kind = loader.KindHTTP
		c.Viewer.Loader.URL = v
	}
	if v, ok := lookup("SAGAGRAPH_DATABASE_URL"); ok && v != "" {
		c.LayoutStore.Backend = layoutstore.BackendPostgres
		c.LayoutStore.DatabaseURL = v
	}
}

// Validate checks every section
func (c Config) Validate() error {
	return validation.NewConfigValidator("Config").
		OneOf("Log.Level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"}).
		OneOf("Log.Format", c.Log.Format, []string{FormatJSON, FormatZap}).
		Nested("Server", c.Server).
		Nested("Viewer", c.Viewer).
		Nested("Viewer.Loader", c.Viewer.Loader).
		Nested("LayoutStore", c.LayoutStore).
		Validate()
}

// NewLogger builds the configured logger. JSON logs go to w.
func (c LogConfig) NewLogger(w io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(c.Level)
	switch c.Format {
	case FormatZap:
		return logging.NewZapLogger(level)
	case FormatJSON, "":
		return logging.NewJSONLogger(w, level), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Format)
}
