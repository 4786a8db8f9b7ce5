package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// tunables are the scalar parameters addressable by name from sweeps,
// grid searches and batch files.
var tunables = map[string]func(*Config, float64){
	"mass":              func(c *Config, v float64) { c.Vehicle.Body.Mass = v },
	"roll_inertia":      func(c *Config, v float64) { c.Vehicle.Body.RollInertia = v },
	"pitch_inertia":     func(c *Config, v float64) { c.Vehicle.Body.PitchInertia = v },
	"velocity":          func(c *Config, v float64) { c.Road.Velocity = v },
	"receiver_volume":   func(c *Config, v float64) { c.Vehicle.Pneumatics.Receiver.Volume = v },
	"receiver_pressure": func(c *Config, v float64) { c.Vehicle.Pneumatics.Receiver.Pressure = v },
	"hose_volume":       func(c *Config, v float64) { c.Vehicle.Pneumatics.HoseVolume = v },
	"tank_valve_area":   func(c *Config, v float64) { c.Vehicle.Pneumatics.TankValve.Area = v },
	"atm_valve_area":    func(c *Config, v float64) { c.Vehicle.Pneumatics.AtmosphereValve.Area = v },
	"heat_tau":          func(c *Config, v float64) { c.Vehicle.Pneumatics.Gas.HeatTransferTau = v },
	"damper_rate":       func(c *Config, v float64) { c.Vehicle.Suspension.DamperRate = v },
	"spring_stiffness":  func(c *Config, v float64) { c.Vehicle.Suspension.SpringStiffness = v },
	"leveling.kp":       func(c *Config, v float64) { c.Leveling.Kp = v },
	"leveling.ki":       func(c *Config, v float64) { c.Leveling.Ki = v },
	"leveling.kd":       func(c *Config, v float64) { c.Leveling.Kd = v },
	"leveling.target":   func(c *Config, v float64) { c.Leveling.Target = v },
	"anti_roll.angle":   func(c *Config, v float64) { c.AntiRoll.Angle = v },
	"anti_roll.rate":    func(c *Config, v float64) { c.AntiRoll.Rate = v },
	"initial.heave":     func(c *Config, v float64) { c.Initial.Heave = v },
	"initial.roll":      func(c *Config, v float64) { c.Initial.Roll = v },
	"initial.pitch":     func(c *Config, v float64) { c.Initial.Pitch = v },
}

// SetParam sets a named scalar parameter. The value is checked by Validate,
// not here.
func (c *Config) SetParam(name string, value float64) error {
	set, ok := tunables[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrConfiguration, name)
	}
	set(c, value)
	return nil
}

// ParamNames lists every name accepted by SetParam.
func ParamNames() []string {
	names := make([]string, 0, len(tunables))
	for n := range tunables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
