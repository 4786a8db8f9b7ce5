package config

import (
	"sort"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/physics"
)

// Presets are named starting points for common test drives.
var Presets = map[string]func() *Config{
	"passive": func() *Config {
		c := DefaultConfig()
		c.Scenario = "pothole"
		c.Duration = 5
		return c
	},
	"comfort": func() *Config {
		c := DefaultConfig()
		c.Scenario = "highway"
		c.Policy = control.NameLeveling
		c.Duration = 30
		return c
	},
	"sport": func() *Config {
		c := DefaultConfig()
		c.Scenario = "twist"
		c.Policy = control.NameAntiRoll
		c.Duration = 15
		return c
	},
	"offroad": func() *Config {
		c := DefaultConfig()
		c.Scenario = "offroad"
		c.Policy = control.NameLeveling
		c.Duration = 30
		c.Vehicle.Pneumatics.Receiver.VariableVolume = true
		return c
	},
	"city": func() *Config {
		c := DefaultConfig()
		c.Scenario = "city"
		c.Policy = control.NameAntiRoll
		c.Duration = 20
		return c
	},
	"steel": func() *Config {
		c := DefaultConfig()
		c.Scenario = "speed_bump"
		c.Integrator = "rk45"
		c.Duration = 6
		c.Vehicle.Suspension.Mode = physics.ModeSpring
		c.Vehicle.Suspension.SpringStiffness = 40000
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
