package interaction

import (
	"time"

	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Config tunes the interaction controller
type Config struct {
	MultiSelect     bool `yaml:"multi_select" toml:"multi_select"`
	NavigateOnClick bool `yaml:"navigate_on_click" toml:"navigate_on_click"`

	// DragThreshold is the pointer travel in pixels before a press on a
	// node becomes a drag, or a press on the background a pan.
	DragThreshold float64 `yaml:"drag_threshold" toml:"drag_threshold"`

	MinZoom  float64 `yaml:"min_zoom" toml:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom" toml:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step" toml:"zoom_step"`

	FocusZoom     float64       `yaml:"focus_zoom" toml:"focus_zoom"`
	FocusDuration time.Duration `yaml:"focus_duration" toml:"focus_duration"`
	FrameInterval time.Duration `yaml:"frame_interval" toml:"frame_interval"`

	DimOpacity float64 `yaml:"dim_opacity" toml:"dim_opacity"`
}

// DefaultConfig returns the controller defaults
func DefaultConfig() Config {
	return Config{
		MultiSelect:     true,
		NavigateOnClick: true,
		DragThreshold:   3,
		MinZoom:         0.1,
		MaxZoom:         8,
		ZoomStep:        1.2,
		FocusZoom:       2,
		FocusDuration:   500 * time.Millisecond,
		FrameInterval:   16 * time.Millisecond,
		DimOpacity:      0.15,
	}
}

// Validate checks the controller configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("Interaction").
		NonNegativeFloat("DragThreshold", c.DragThreshold).
		PositiveFloat("MinZoom", c.MinZoom).
		RangeFloat("MaxZoom", c.MaxZoom, c.MinZoom, 1e6).
		RangeFloat("ZoomStep", c.ZoomStep, 1.0001, 10).
		RangeFloat("FocusZoom", c.FocusZoom, c.MinZoom, c.MaxZoom).
		NonNegativeDuration("FocusDuration", c.FocusDuration).
		MinDuration("FrameInterval", c.FrameInterval, time.Millisecond).
		RangeFloat("DimOpacity", c.DimOpacity, 0, 1).
		Validate()
}
