package viewer

import (
	"errors"
	"time"

	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/render"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/validation"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// Config holds everything one session needs
type Config struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`

	DefaultLayout string `yaml:"default_layout" toml:"default_layout"`
	// TransitionDuration animates switches to fixed layouts; 0 jumps
	TransitionDuration time.Duration `yaml:"transition_duration" toml:"transition_duration"`
	FrameInterval      time.Duration `yaml:"frame_interval" toml:"frame_interval"`
	// RestoreOnLoad applies a saved layout snapshot after every load
	RestoreOnLoad bool          `yaml:"restore_on_load" toml:"restore_on_load"`
	NoticeTTL     time.Duration `yaml:"notice_ttl" toml:"notice_ttl"`
	MaxSessions   int           `yaml:"max_sessions" toml:"max_sessions"`

	Host        simhost.Config       `yaml:"host" toml:"host"`
	Layout      visualization.Config `yaml:"layout" toml:"layout"`
	Render      render.Config        `yaml:"render" toml:"render"`
	Interaction interaction.Config   `yaml:"interaction" toml:"interaction"`
	Loader      loader.Config        `yaml:"loader" toml:"loader"`
}

// DefaultConfig returns an 800×600 force-directed session
func DefaultConfig() Config {
	return Config{
		Width:              800,
		Height:             600,
		DefaultLayout:      string(visualization.KindForce),
		TransitionDuration: 750 * time.Millisecond,
		FrameInterval:      16 * time.Millisecond,
		RestoreOnLoad:      true,
		NoticeTTL:          3 * time.Second,
		MaxSessions:        64,
		Host:               simhost.DefaultConfig(),
		Layout:             visualization.DefaultConfig(),
		Render:             render.DefaultConfig(),
		Interaction:        interaction.DefaultConfig(),
		Loader:             loader.DefaultConfig(),
	}
}

// ErrSharedWorker rejects a session limit other than one against an
// external worker, which serves a single peer.
var ErrSharedWorker = errors.New("an external worker serves one session: max_sessions must be 1")

// Validate checks the session configuration and every component config
// except the loader, whose source is chosen by the registry.
func (c Config) Validate() error {
	kinds := make([]string, 0, len(visualization.Kinds()))
	for _, k := range visualization.Kinds() {
		kinds = append(kinds, string(k))
	}
	return validation.NewConfigValidator("Viewer").
		PositiveFloat("Width", c.Width).
		PositiveFloat("Height", c.Height).
		OneOf("DefaultLayout", c.DefaultLayout, kinds).
		NonNegativeDuration("TransitionDuration", c.TransitionDuration).
		NonNegativeDuration("FrameInterval", c.FrameInterval).
		NonNegativeDuration("NoticeTTL", c.NoticeTTL).
		NonNegative("MaxSessions", c.MaxSessions).
		When(c.Host.Mode == string(simhost.ModeWorker) && !c.Host.SpawnWorker, func(cv *validation.ConfigValidator) {
			cv.Custom("MaxSessions", func() error {
				if c.MaxSessions != 1 {
					return ErrSharedWorker
				}
				return nil
			})
		}).
		Nested("Host", c.Host).
		Nested("Layout", c.Layout).
		Nested("Render", c.Render).
		Nested("Interaction", c.Interaction).
		Validate()
}
