package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/integrators"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/realtime"
	"github.com/san-kum/pneustab/internal/road"
	"github.com/san-kum/pneustab/internal/sim"
)

const (
	DefaultDt         = 0.001
	DefaultDuration   = 10.0
	DefaultIntegrator = "radau5"
	DefaultPolicy     = control.NameClosed
	DefaultScenario   = "highway"
	DefaultDataDir    = "runs"
	DefaultListenAddr = ":9464"
)

// Config is the full description of a run as stored in YAML.
type Config struct {
	Integrator string                `yaml:"integrator"`
	Policy     string                `yaml:"policy"`
	Dt         float64               `yaml:"dt"`
	Duration   float64               `yaml:"duration"`
	Seed       int64                 `yaml:"seed"`
	Scenario   string                `yaml:"scenario,omitempty"`
	Road       road.Spec             `yaml:"road"`
	Vehicle    physics.Params        `yaml:"vehicle"`
	Initial    physics.BodyState     `yaml:"initial"`
	Solver     SolverConfig          `yaml:"solver"`
	Realtime   RealtimeConfig        `yaml:"realtime"`
	Leveling   control.LevelingGains `yaml:"leveling"`
	AntiRoll   control.AntiRollGains `yaml:"anti_roll"`
	DataDir    string                `yaml:"data_dir"`
	Telemetry  TelemetryConfig       `yaml:"telemetry"`
}

// SolverConfig tunes the implicit integrators.
type SolverConfig struct {
	RelTol          float64 `yaml:"rel_tol"`
	AbsTol          float64 `yaml:"abs_tol"`
	MaxNewton       int     `yaml:"max_newton"`
	MaxSubdivisions int     `yaml:"max_subdivisions"`
}

// RealtimeConfig caps catch-up work of the live driver.
type RealtimeConfig struct {
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame"`
	MaxFrameTime     float64 `yaml:"max_frame_time"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: DefaultIntegrator,
		Policy:     DefaultPolicy,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Scenario:   DefaultScenario,
		Vehicle:    physics.DefaultParams(),
		Solver: SolverConfig{
			RelTol:          integrators.DefaultRelTol,
			AbsTol:          integrators.DefaultAbsTol,
			MaxNewton:       integrators.DefaultMaxNewton,
			MaxSubdivisions: integrators.DefaultMaxSubdivisions,
		},
		Realtime: RealtimeConfig{
			MaxStepsPerFrame: realtime.DefaultMaxStepsPerFrame,
			MaxFrameTime:     realtime.DefaultMaxFrameTime,
		},
		Leveling:  control.DefaultLevelingGains(),
		AntiRoll:  control.DefaultAntiRollGains(),
		DataDir:   DefaultDataDir,
		Telemetry: TelemetryConfig{Addr: DefaultListenAddr},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be handed out safely.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(err)
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// Validate checks every parameter before a session is built.
func (c *Config) Validate() error {
	if err := dynamo.RequirePositive("dt", c.Dt); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("duration", c.Duration); err != nil {
		return err
	}
	if _, err := physics.NewStabilizer(c.Vehicle, nil); err != nil {
		return err
	}
	spec, err := c.RoadSpec()
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("road.velocity", spec.Velocity); err != nil {
		return err
	}
	if err := c.Timing().Validate(); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("solver.rel_tol", c.Solver.RelTol); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("solver.abs_tol", c.Solver.AbsTol); err != nil {
		return err
	}
	if c.Solver.MaxNewton < 1 {
		return dynamo.NewConfigError("solver.max_newton", float64(c.Solver.MaxNewton), "must be at least 1")
	}
	if c.Solver.MaxSubdivisions < 0 {
		return dynamo.NewConfigError("solver.max_subdivisions", float64(c.Solver.MaxSubdivisions), "must not be negative")
	}
	return nil
}

// RoadSpec resolves the road: a named scenario, when set, supplies the
// profile and the explicit road section only overrides velocity and seed.
func (c *Config) RoadSpec() (road.Spec, error) {
	if c.Scenario == "" {
		spec := c.Road
		if spec.Duration == 0 {
			spec.Duration = c.Duration
		}
		return spec, nil
	}
	spec, err := road.Scenario(c.Scenario)
	if err != nil {
		return road.Spec{}, err
	}
	if c.Road.Velocity > 0 {
		spec.Velocity = c.Road.Velocity
	}
	if c.Seed != 0 {
		spec.Seed = c.Seed
	}
	if spec.Duration < c.Duration {
		spec.Duration = c.Duration
	}
	return spec, nil
}

func (c *Config) Timing() realtime.AccumulatorConfig {
	return realtime.AccumulatorConfig{
		Dt:               c.Dt,
		MaxStepsPerFrame: c.Realtime.MaxStepsPerFrame,
		MaxFrameTime:     c.Realtime.MaxFrameTime,
	}
}

// SessionConfig builds the live session description.
func (c *Config) SessionConfig() (sim.Config, error) {
	spec, err := c.RoadSpec()
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		Params:  c.Vehicle,
		Road:    spec,
		Timing:  c.Timing(),
		Initial: c.Initial,
	}, nil
}

// RunConfig builds the offline run description.
func (c *Config) RunConfig() dynamo.Config {
	rc := dynamo.DefaultConfig()
	rc.Dt = c.Dt
	rc.Duration = c.Duration
	rc.Seed = c.Seed
	rc.Tolerance = c.Solver.RelTol
	return rc
}

// Override keys recognized by ApplyOverrides.
const (
	KeyIntegrator = "integrator"
	KeyPolicy     = "policy"
	KeyScenario   = "scenario"
	KeyDt         = "dt"
	KeyDuration   = "duration"
	KeySeed       = "seed"
	KeyVelocity   = "velocity"
	KeyDataDir    = "data_dir"
	KeyTelemetry  = "telemetry.addr"
)

// ApplyOverrides copies every key set in v (flag, environment or file) onto
// the config.
func ApplyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet(KeyIntegrator) {
		cfg.Integrator = v.GetString(KeyIntegrator)
	}
	if v.IsSet(KeyPolicy) {
		cfg.Policy = v.GetString(KeyPolicy)
	}
	if v.IsSet(KeyScenario) {
		cfg.Scenario = v.GetString(KeyScenario)
	}
	if v.IsSet(KeyDt) {
		cfg.Dt = v.GetFloat64(KeyDt)
	}
	if v.IsSet(KeyDuration) {
		cfg.Duration = v.GetFloat64(KeyDuration)
	}
	if v.IsSet(KeySeed) {
		cfg.Seed = v.GetInt64(KeySeed)
	}
	if v.IsSet(KeyVelocity) {
		cfg.Road.Velocity = v.GetFloat64(KeyVelocity)
	}
	if v.IsSet(KeyDataDir) {
		cfg.DataDir = v.GetString(KeyDataDir)
	}
	if v.IsSet(KeyTelemetry) {
		cfg.Telemetry.Addr = v.GetString(KeyTelemetry)
		cfg.Telemetry.Enabled = cfg.Telemetry.Addr != ""
	}
}
