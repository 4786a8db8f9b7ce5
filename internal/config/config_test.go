package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/road"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "radau5" {
		t.Errorf("expected integrator radau5, got %s", cfg.Integrator)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("steel")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Vehicle.Suspension.Mode != physics.ModeSpring {
		t.Errorf("expected spring mode, got %s", cfg.Vehicle.Suspension.Mode)
	}

	cfg.Duration = 99
	if GetPreset("steel").Duration == 99 {
		t.Error("presets must be handed out as copies")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			if err := GetPreset(name).Validate(); err != nil {
				t.Errorf("preset %s: %v", name, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"zero mass", func(c *Config) { c.Vehicle.Body.Mass = 0 }},
		{"zero pitch inertia", func(c *Config) { c.Vehicle.Body.PitchInertia = 0 }},
		{"rod wider than bore", func(c *Config) { c.Vehicle.Pneumatics.Cylinders[2].Rod = 0.1 }},
		{"zero discharge coefficient", func(c *Config) { c.Vehicle.Pneumatics.TankValve.Cd = 0 }},
		{"unknown scenario", func(c *Config) { c.Scenario = "moon" }},
		{"bad iso class", func(c *Config) { c.Scenario = ""; c.Road = road.Spec{Kind: road.KindISO8608, Class: "Z"} }},
		{"zero frame cap", func(c *Config) { c.Realtime.MaxStepsPerFrame = 0 }},
		{"zero newton", func(c *Config) { c.Solver.MaxNewton = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestRoadSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenario = "highway"
	cfg.Road.Velocity = 20
	cfg.Seed = 42
	cfg.Duration = 100

	spec, err := cfg.RoadSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Kind != road.KindISO8608 || spec.Velocity != 20 || spec.Seed != 42 {
		t.Errorf("unexpected spec %+v", spec)
	}
	if spec.Duration < cfg.Duration {
		t.Errorf("road shorter than the run: %v < %v", spec.Duration, cfg.Duration)
	}

	cfg.Scenario = ""
	cfg.Road = road.Spec{Kind: road.KindSine, Velocity: 5, Amplitude: 0.01, Wavelength: 2}
	spec, err = cfg.RoadSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Duration != cfg.Duration {
		t.Errorf("explicit road should inherit the run duration, got %v", spec.Duration)
	}

	sc, err := cfg.SessionConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Timing.Dt != cfg.Dt || sc.Road.Kind != road.KindSine {
		t.Errorf("unexpected session config %+v", sc)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("offroad")
	cfg.Initial = physics.BodyState{Roll: 0.02}
	cfg.Vehicle.Body.Mass = 1750
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Scenario != "offroad" || loaded.Initial.Roll != 0.02 || loaded.Vehicle.Body.Mass != 1750 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if !loaded.Vehicle.Pneumatics.Receiver.VariableVolume {
		t.Error("round trip lost receiver mode")
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("policy: leveling\nvehicle:\n  body:\n    mass: 1600\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy != "leveling" || cfg.Vehicle.Body.Mass != 1600 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Vehicle.Body.RollInertia != physics.DefaultRollInertia || cfg.Integrator != DefaultIntegrator {
		t.Error("unset fields should keep their defaults")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set(KeyIntegrator, "bdf1")
	v.Set(KeyDuration, 3.5)
	v.Set(KeySeed, 7)
	v.Set(KeyTelemetry, ":9000")

	cfg := DefaultConfig()
	ApplyOverrides(cfg, v)

	if cfg.Integrator != "bdf1" || cfg.Duration != 3.5 || cfg.Seed != 7 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Addr != ":9000" {
		t.Errorf("telemetry override not applied: %+v", cfg.Telemetry)
	}
	if cfg.Policy != DefaultPolicy {
		t.Errorf("unset key changed policy to %q", cfg.Policy)
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.SetParam("leveling.kp", 12); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetParam("receiver_volume", 0.03); err != nil {
		t.Fatal(err)
	}
	if cfg.Leveling.Kp != 12 || cfg.Vehicle.Pneumatics.Receiver.Volume != 0.03 {
		t.Errorf("parameters not applied: %+v", cfg.Leveling)
	}

	if err := cfg.SetParam("warp_factor", 9); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if len(ParamNames()) == 0 {
		t.Error("expected parameter names")
	}
}
