package simulation

import (
	"math"
	"runtime"
	"time"

	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Config controls the integrator. Forces are configured separately.
type Config struct {
	Alpha         float64       `yaml:"alpha" toml:"alpha"`
	AlphaMin      float64       `yaml:"alpha_min" toml:"alpha_min"`
	AlphaDecay    float64       `yaml:"alpha_decay" toml:"alpha_decay"`
	AlphaTarget   float64       `yaml:"alpha_target" toml:"alpha_target"`
	VelocityDecay float64       `yaml:"velocity_decay" toml:"velocity_decay"`
	MaxTicks      int           `yaml:"max_ticks" toml:"max_ticks"`
	FrameInterval time.Duration `yaml:"frame_interval" toml:"frame_interval"`

	// ParallelThreshold is the node count from which the many-body force is
	// spread across Workers goroutines.
	ParallelThreshold int   `yaml:"parallel_threshold" toml:"parallel_threshold"`
	Workers           int   `yaml:"workers" toml:"workers"`
	Seed              int64 `yaml:"seed" toml:"seed"`
}

// DefaultAlphaMin is the alpha below which a run is considered settled
const DefaultAlphaMin = 0.001

// DefaultConfig returns d3-force compatible defaults: alpha decays from 1
// to AlphaMin in about 300 ticks.
func DefaultConfig() Config {
	return Config{
		Alpha:             1,
		AlphaMin:          DefaultAlphaMin,
		AlphaDecay:        1 - math.Pow(DefaultAlphaMin, 1.0/300),
		AlphaTarget:       0,
		VelocityDecay:     0.4,
		MaxTicks:          3000,
		FrameInterval:     16 * time.Millisecond,
		ParallelThreshold: 800,
		Workers:           runtime.GOMAXPROCS(0),
		Seed:              1,
	}
}

// Validate checks the integrator parameters
func (c Config) Validate() error {
	return validation.NewConfigValidator("Simulation").
		RangeFloat("Alpha", c.Alpha, 0, 1).
		RangeFloat("AlphaMin", c.AlphaMin, 0, 1).
		RangeFloat("AlphaDecay", c.AlphaDecay, 0, 1).
		RangeFloat("AlphaTarget", c.AlphaTarget, 0, 1).
		RangeFloat("VelocityDecay", c.VelocityDecay, 0, 1).
		Positive("MaxTicks", c.MaxTicks).
		NonNegativeDuration("FrameInterval", c.FrameInterval).
		NonNegative("ParallelThreshold", c.ParallelThreshold).
		NonNegative("Workers", c.Workers).
		Validate()
}
