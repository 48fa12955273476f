// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/boids/inspector"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// ErrUnknownField is returned when a named parameter does not exist.
	ErrUnknownField = errors.New("unknown config field")
	// ErrOutOfRange is returned for values that cannot be clamped into range.
	ErrOutOfRange = errors.New("config value out of range")
	// ErrInvalidConfig is returned when a loaded config fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Agent      AgentConfig      `yaml:"agent"`
	Targets    TargetsConfig    `yaml:"targets"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Derived values computed after loading
	Derived Derived `yaml:"-"`
}

// SimulationConfig holds the live-tunable steering parameters.
// Every scalar here is reachable by name through Store.
type SimulationConfig struct {
	MaxForce                   float64 `yaml:"max_force" inspect:"min:0,max:10,help:steering force cap as a fraction of max_speed"`
	MaxSpeed                   float64 `yaml:"max_speed" inspect:"min:0,max:5000"`
	VisionRadiusFactor         float64 `yaml:"vision_radius_factor" inspect:"min:0,max:20,help:perception radius as a multiple of max_speed"`
	SeparationStrength         float64 `yaml:"separation_strength" inspect:"min:0,max:1000"`
	CohesionStrength           float64 `yaml:"cohesion_strength" inspect:"min:0,max:1000"`
	AlignmentStrength          float64 `yaml:"alignment_strength" inspect:"min:0,max:1000"`
	SeekStrength               float64 `yaml:"seek_strength" inspect:"min:0,max:1000"`
	FleeStrength               float64 `yaml:"flee_strength" inspect:"min:0,max:1000"`
	ObstacleDetectionRadiusRel float64 `yaml:"obstacle_detection_radius_rel" inspect:"min:0,max:1"`
	ObstacleDetectionDensity   int     `yaml:"obstacle_detection_density" inspect:"min:1,max:64,help:avoidance rays per side"`
	ObstacleAvoidanceStrength  float64 `yaml:"obstacle_avoidance_strength" inspect:"min:0,max:1000"`
	ResetAccumulator           bool    `yaml:"reset_accumulator" inspect:"help:zero the steering accumulator every tick"`
}

// WorldConfig holds simulation world dimensions.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Wrap   bool    `yaml:"wrap"` // Toroidal wrap of agent positions
}

// PhysicsConfig holds the fixed step and broad-phase parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// AgentConfig holds agent creation parameters.
type AgentConfig struct {
	BodyRadius   float64  `yaml:"body_radius"`
	InitialSpeed float64  `yaml:"initial_speed"` // Speed along the spawn heading
	Capabilities []string `yaml:"capabilities"`
}

// TargetsConfig controls timed target spawning.
type TargetsConfig struct {
	SpawnInterval float64 `yaml:"spawn_interval"` // Seconds between random seek targets (0 = off)
	MaxActive     int     `yaml:"max_active"`
}

// ScenarioConfig describes the initial world population.
type ScenarioConfig struct {
	Columns      int              `yaml:"columns"`
	Rows         int              `yaml:"rows"`
	Spacing      float64          `yaml:"spacing"`
	OriginX      float64          `yaml:"origin_x"`
	OriginY      float64          `yaml:"origin_y"`
	SpecialFirst bool             `yaml:"special_first"`
	Obstacles    []ObstacleConfig `yaml:"obstacles"`
	Targets      []TargetConfig   `yaml:"targets"`
}

// ObstacleConfig describes one static obstacle.
type ObstacleConfig struct {
	Shape  string  `yaml:"shape"` // "circle" or "rectangle"
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Angle  float64 `yaml:"angle"`
	Radius float64 `yaml:"radius"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Color  string  `yaml:"color,omitempty"` // "#rrggbb", empty = default grey
}

// TargetConfig describes one initial target.
type TargetConfig struct {
	Kind string  `yaml:"kind"` // "seek" or "flee"
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	SnapshotEvery       int     `yaml:"snapshot_every"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse merges YAML data over the embedded defaults, validates and derives.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Keys present in data override defaults; a listed sequence replaces the default one.
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Sanitize()
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks structural settings that cannot be clamped meaningfully.
func (c *Config) Validate() error {
	switch {
	case !(c.World.Width > 0) || !(c.World.Height > 0):
		return fmt.Errorf("%w: world size must be positive, got %vx%v", ErrInvalidConfig, c.World.Width, c.World.Height)
	case !(c.Physics.DT > 0):
		return fmt.Errorf("%w: physics.dt must be positive, got %v", ErrInvalidConfig, c.Physics.DT)
	case !(c.Physics.GridCellSize > 0):
		return fmt.Errorf("%w: physics.grid_cell_size must be positive, got %v", ErrInvalidConfig, c.Physics.GridCellSize)
	case c.Agent.BodyRadius < 0:
		return fmt.Errorf("%w: agent.body_radius must be non-negative", ErrInvalidConfig)
	}

	for name, v := range c.simulationValues() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: simulation.%s is not finite", ErrOutOfRange, name)
		}
	}

	for i, o := range c.Scenario.Obstacles {
		switch o.Shape {
		case "circle":
			if !(o.Radius > 0) {
				return fmt.Errorf("%w: obstacle %d: circle radius must be positive", ErrInvalidConfig, i)
			}
		case "rectangle":
			if !(o.Width > 0) || !(o.Height > 0) {
				return fmt.Errorf("%w: obstacle %d: rectangle size must be positive", ErrInvalidConfig, i)
			}
		default:
			return fmt.Errorf("%w: obstacle %d: unknown shape %q", ErrInvalidConfig, i, o.Shape)
		}
	}
	for i, t := range c.Scenario.Targets {
		if t.Kind != "seek" && t.Kind != "flee" {
			return fmt.Errorf("%w: target %d: unknown kind %q", ErrInvalidConfig, i, t.Kind)
		}
	}
	return nil
}

// Sanitize clamps every simulation scalar into its declared range.
func (c *Config) Sanitize() {
	for _, f := range inspector.ExtractFields(&c.Simulation) {
		inspector.Set(&c.Simulation, f, f.Clamp(inspector.Get(&c.Simulation, f)))
	}
}

func (c *Config) simulationValues() map[string]float64 {
	out := make(map[string]float64)
	for _, f := range inspector.ExtractFields(&c.Simulation) {
		out[f.Name] = inspector.Get(&c.Simulation, f)
	}
	return out
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived = ComputeDerived(c.Simulation)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
