package render

import (
	"fmt"

	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Config controls renderer selection, level of detail and emphasis
type Config struct {
	// SceneThreshold is the largest node count drawn as an addressable
	// scene; larger graphs use the immediate-mode canvas.
	SceneThreshold int `yaml:"scene_threshold" toml:"scene_threshold"`

	// EdgeLabelZoom hides relationship labels below this zoom
	EdgeLabelZoom float64 `yaml:"edge_label_zoom" toml:"edge_label_zoom"`
	// NodeLabelZoom starts fading node labels; they are gone at
	// NodeLabelZoom - LabelFadeRange.
	NodeLabelZoom  float64 `yaml:"node_label_zoom" toml:"node_label_zoom"`
	LabelFadeRange float64 `yaml:"label_fade_range" toml:"label_fade_range"`

	// RingThreshold is the importance above which a node gets a ring
	RingThreshold float64 `yaml:"ring_threshold" toml:"ring_threshold"`
	DimOpacity    float64 `yaml:"dim_opacity" toml:"dim_opacity"`

	// HitTolerance is the screen distance in pixels within which an edge
	// curve counts as hit.
	HitTolerance float64 `yaml:"hit_tolerance" toml:"hit_tolerance"`
	// CullMargin widens the visible rectangle, in pixels, before culling
	CullMargin float64 `yaml:"cull_margin" toml:"cull_margin"`
	FontSize   float64 `yaml:"font_size" toml:"font_size"`
	Arrows     bool    `yaml:"arrows" toml:"arrows"`
}

// DefaultConfig returns the renderer defaults
func DefaultConfig() Config {
	return Config{
		SceneThreshold: 500,
		EdgeLabelZoom:  1.5,
		NodeLabelZoom:  0.6,
		LabelFadeRange: 0.2,
		RingThreshold:  70,
		DimOpacity:     0.15,
		HitTolerance:   4,
		CullMargin:     20,
		FontSize:       11,
		Arrows:         true,
	}
}

// Validate checks the renderer configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("Render").
		NonNegative("SceneThreshold", c.SceneThreshold).
		PositiveFloat("EdgeLabelZoom", c.EdgeLabelZoom).
		PositiveFloat("NodeLabelZoom", c.NodeLabelZoom).
		NonNegativeFloat("LabelFadeRange", c.LabelFadeRange).
		RangeFloat("RingThreshold", c.RingThreshold, 0, 100).
		RangeFloat("DimOpacity", c.DimOpacity, 0, 1).
		NonNegativeFloat("HitTolerance", c.HitTolerance).
		NonNegativeFloat("CullMargin", c.CullMargin).
		PositiveFloat("FontSize", c.FontSize).
		Custom("LabelFadeRange", func() error {
			if c.LabelFadeRange > c.NodeLabelZoom {
				return fmt.Errorf("must not exceed NodeLabelZoom (%.2f)", c.NodeLabelZoom)
			}
			return nil
		}).
		Validate()
}

// EdgeLabelsVisible reports whether relationship labels are drawn at zoom
func (c Config) EdgeLabelsVisible(zoom float64) bool {
	return zoom >= c.EdgeLabelZoom
}

// NodeLabelOpacity is 1 at or above NodeLabelZoom, 0 at or below the end of
// the fade range, and linear in between.
func (c Config) NodeLabelOpacity(zoom float64) float64 {
	if zoom >= c.NodeLabelZoom {
		return 1
	}
	lo := c.NodeLabelZoom - c.LabelFadeRange
	if zoom <= lo || c.LabelFadeRange == 0 {
		return 0
	}
	return (zoom - lo) / c.LabelFadeRange
}
