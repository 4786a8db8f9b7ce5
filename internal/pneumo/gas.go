package pneumo

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

const (
	DefaultGasConstant        = 287.05
	DefaultGamma              = 1.4
	DefaultPolytropicExponent = 1.4
	DefaultAmbientPressure    = 101325.0
	DefaultAmbientTemperature = 293.15
)

// Gas holds the working-gas properties and the fixed atmospheric boundary.
type Gas struct {
	R     float64 `yaml:"r"`
	Gamma float64 `yaml:"gamma"`
	// PolytropicExponent governs the volume thermodynamics; 1 is isothermal,
	// Gamma is adiabatic.
	PolytropicExponent float64 `yaml:"polytropic_exponent"`
	AmbientPressure    float64 `yaml:"ambient_pressure"`
	AmbientTemperature float64 `yaml:"ambient_temperature"`
	// HeatTransferTau relaxes volume temperatures toward ambient with this
	// time constant in seconds. Zero disables heat exchange.
	HeatTransferTau float64 `yaml:"heat_transfer_tau"`
}

func DefaultGas() Gas {
	return Gas{
		R:                  DefaultGasConstant,
		Gamma:              DefaultGamma,
		PolytropicExponent: DefaultPolytropicExponent,
		AmbientPressure:    DefaultAmbientPressure,
		AmbientTemperature: DefaultAmbientTemperature,
	}
}

func (g Gas) Validate() error {
	if err := dynamo.RequirePositive("gas.r", g.R); err != nil {
		return err
	}
	if !(g.Gamma > 1) {
		return dynamo.NewConfigError("gas.gamma", g.Gamma, "must be greater than 1")
	}
	if g.PolytropicExponent < 1 || g.PolytropicExponent > g.Gamma {
		return dynamo.NewConfigError("gas.polytropic_exponent", g.PolytropicExponent, "must be within [1, gamma]")
	}
	if err := dynamo.RequirePositive("gas.ambient_pressure", g.AmbientPressure); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("gas.ambient_temperature", g.AmbientTemperature); err != nil {
		return err
	}
	if g.HeatTransferTau < 0 {
		return dynamo.NewConfigError("gas.heat_transfer_tau", g.HeatTransferTau, "must not be negative")
	}
	return nil
}

// Pressure applies the ideal-gas relation p = m R T / V.
func (g Gas) Pressure(mass, temperature, volume float64) float64 {
	return mass * g.R * temperature / volume
}

// Mass is the inverse of Pressure for a given volume.
func (g Gas) Mass(pressure, temperature, volume float64) float64 {
	return pressure * volume / (g.R * temperature)
}

// TemperatureRate is the polytropic temperature derivative of a control
// volume with net inflow mdot (positive entering) and volume rate vdot,
// plus optional relaxation toward ambient.
func (g Gas) TemperatureRate(mass, temperature, volume, mdot, vdot float64) float64 {
	rate := (g.PolytropicExponent - 1) * temperature * (mdot/mass - vdot/volume)
	if g.HeatTransferTau > 0 {
		rate += (g.AmbientTemperature - temperature) / g.HeatTransferTau
	}
	return rate
}

// checkVolume returns the pressure of a volume, or a *dynamo.GasStateError
// when its state is not physical.
func (g Gas) checkVolume(name string, mass, temperature, volume float64) (float64, error) {
	p := g.Pressure(mass, temperature, volume)
	if !(mass > 0) || !(temperature > 0) || !(volume > 0) || !(p > 0) ||
		math.IsInf(p, 0) || math.IsInf(temperature, 0) {
		return p, &dynamo.GasStateError{Volume: name, Mass: mass, Pressure: p, Temperature: temperature}
	}
	return p, nil
}
