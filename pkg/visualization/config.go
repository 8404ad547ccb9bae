package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/simulation"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Sort keys shared by circular and grid layouts
const (
	SortImportance = "importance"
	SortType       = "type"
	SortName       = "name"
	SortNone       = "none"
)

var sortKeys = []string{SortImportance, SortType, SortName, SortNone}

// Orientation of the hierarchical layout
const (
	OrientationVertical   = "vertical"
	OrientationHorizontal = "horizontal"
)

// ForceConfig configures the force-directed layout
type ForceConfig struct {
	LinkDistance      float64 `yaml:"link_distance" toml:"link_distance"`
	ChargeStrength    float64 `yaml:"charge_strength" toml:"charge_strength"`
	ChargeDistanceMin float64 `yaml:"charge_distance_min" toml:"charge_distance_min"`
	ChargeDistanceMax float64 `yaml:"charge_distance_max" toml:"charge_distance_max"` // 0 = unbounded
	CenterStrength    float64 `yaml:"center_strength" toml:"center_strength"`
	CollidePadding    float64 `yaml:"collide_padding" toml:"collide_padding"`
	CollideStrength   float64 `yaml:"collide_strength" toml:"collide_strength"`
}

// HierarchicalConfig configures the tree layout
type HierarchicalConfig struct {
	Root              string  `yaml:"root" toml:"root"`
	LevelSeparation   float64 `yaml:"level_separation" toml:"level_separation"`
	SiblingSeparation float64 `yaml:"sibling_separation" toml:"sibling_separation"`
	SubtreeSeparation float64 `yaml:"subtree_separation" toml:"subtree_separation"`
	Orientation       string  `yaml:"orientation" toml:"orientation"`
}

// CircularConfig configures the circular layout
type CircularConfig struct {
	SortBy     string  `yaml:"sort_by" toml:"sort_by"`
	StartAngle float64 `yaml:"start_angle" toml:"start_angle"`
	Radius     float64 `yaml:"radius" toml:"radius"` // 0 = fit viewport
}

// RadialConfig configures the radial layout
type RadialConfig struct {
	Root     string  `yaml:"root" toml:"root"`
	RingStep float64 `yaml:"ring_step" toml:"ring_step"`
}

// GridConfig configures the grid layout
type GridConfig struct {
	SortBy  string `yaml:"sort_by" toml:"sort_by"`
	Columns int    `yaml:"columns" toml:"columns"` // 0 = ceil(sqrt(n))
}

// ClusteredConfig configures the clustered layout
type ClusteredConfig struct {
	GroupBy         string  `yaml:"group_by" toml:"group_by"`
	ClusterStrength float64 `yaml:"cluster_strength" toml:"cluster_strength"`
	ClusterRadius   float64 `yaml:"cluster_radius" toml:"cluster_radius"` // 0 = min(w,h)/3
	SeedSpread      float64 `yaml:"seed_spread" toml:"seed_spread"`
}

// Config holds the parameters of every layout kind
type Config struct {
	Padding      float64            `yaml:"padding" toml:"padding"`
	Simulation   simulation.Config  `yaml:"simulation" toml:"simulation"`
	Force        ForceConfig        `yaml:"force" toml:"force"`
	Hierarchical HierarchicalConfig `yaml:"hierarchical" toml:"hierarchical"`
	Circular     CircularConfig     `yaml:"circular" toml:"circular"`
	Radial       RadialConfig       `yaml:"radial" toml:"radial"`
	Grid         GridConfig         `yaml:"grid" toml:"grid"`
	Clustered    ClusteredConfig    `yaml:"clustered" toml:"clustered"`
}

// DefaultConfig returns the documented layout defaults
func DefaultConfig() Config {
	return Config{
		Padding:    50,
		Simulation: simulation.DefaultConfig(),
		Force: ForceConfig{
			LinkDistance:      100,
			ChargeStrength:    -300,
			ChargeDistanceMin: 1,
			CenterStrength:    0.05,
			CollidePadding:    4,
			CollideStrength:   0.7,
		},
		Hierarchical: HierarchicalConfig{
			LevelSeparation:   120,
			SiblingSeparation: 1,
			SubtreeSeparation: 2,
			Orientation:       OrientationVertical,
		},
		Circular: CircularConfig{
			SortBy:     SortImportance,
			StartAngle: -math.Pi / 2,
		},
		Radial: RadialConfig{
			RingStep: 100,
		},
		Grid: GridConfig{
			SortBy: SortType,
		},
		Clustered: ClusteredConfig{
			GroupBy:         "type",
			ClusterStrength: 0.2,
			SeedSpread:      30,
		},
	}
}

// Validate checks every layout section
func (c Config) Validate() error {
	return validation.NewConfigValidator("Layout").
		NonNegativeFloat("Padding", c.Padding).
		Nested("Simulation", c.Simulation).
		PositiveFloat("Force.LinkDistance", c.Force.LinkDistance).
		Finite("Force.ChargeStrength", c.Force.ChargeStrength).
		PositiveFloat("Force.ChargeDistanceMin", c.Force.ChargeDistanceMin).
		NonNegativeFloat("Force.ChargeDistanceMax", c.Force.ChargeDistanceMax).
		RangeFloat("Force.CenterStrength", c.Force.CenterStrength, 0, 1).
		NonNegativeFloat("Force.CollidePadding", c.Force.CollidePadding).
		RangeFloat("Force.CollideStrength", c.Force.CollideStrength, 0, 1).
		PositiveFloat("Hierarchical.LevelSeparation", c.Hierarchical.LevelSeparation).
		PositiveFloat("Hierarchical.SiblingSeparation", c.Hierarchical.SiblingSeparation).
		PositiveFloat("Hierarchical.SubtreeSeparation", c.Hierarchical.SubtreeSeparation).
		OneOf("Hierarchical.Orientation", c.Hierarchical.Orientation, []string{OrientationVertical, OrientationHorizontal}).
		OneOf("Circular.SortBy", c.Circular.SortBy, sortKeys).
		Finite("Circular.StartAngle", c.Circular.StartAngle).
		NonNegativeFloat("Circular.Radius", c.Circular.Radius).
		PositiveFloat("Radial.RingStep", c.Radial.RingStep).
		OneOf("Grid.SortBy", c.Grid.SortBy, sortKeys).
		NonNegative("Grid.Columns", c.Grid.Columns).
		OneOf("Clustered.GroupBy", c.Clustered.GroupBy, []string{"type", "community", "component"}).
		RangeFloat("Clustered.ClusterStrength", c.Clustered.ClusterStrength, 0, 1).
		NonNegativeFloat("Clustered.ClusterRadius", c.Clustered.ClusterRadius).
		NonNegativeFloat("Clustered.SeedSpread", c.Clustered.SeedSpread).
		Validate()
}
