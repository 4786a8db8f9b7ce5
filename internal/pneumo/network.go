package pneumo

import (
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Layout of the gas sub-state: [m, T] per line followed by the receiver.
const (
	Dim                 = 2*NumLines + 2
	ReceiverMass        = 2 * NumLines
	ReceiverTemperature = 2*NumLines + 1
)

// LineMass returns the sub-state index of line i's gas mass.
func LineMass(i int) int { return 2 * i }

// LineTemperature returns the sub-state index of line i's gas temperature.
func LineTemperature(i int) int { return 2*i + 1 }

// Params configures the gas network for one session.
type Params struct {
	Gas             Gas                `yaml:"gas"`
	Cylinders       [NumLines]Cylinder `yaml:"cylinders"`
	HoseVolume      float64            `yaml:"hose_volume"`
	AtmosphereValve Orifice            `yaml:"atmosphere_valve"`
	TankValve       Orifice            `yaml:"tank_valve"`
	Receiver        ReceiverParams     `yaml:"receiver"`
	LinePressure    [NumLines]float64  `yaml:"line_pressure"`
	LineTemp        float64            `yaml:"line_temperature"`
}

// DefaultParams describes a passenger-car sized installation precharged to
// 10 bar absolute with a 16 bar receiver.
func DefaultParams() Params {
	cyl := Cylinder{Bore: 0.08, Rod: 0.05, Stroke: 0.2, DeadVolume: 5e-5}
	return Params{
		Gas:             DefaultGas(),
		Cylinders:       [NumLines]Cylinder{cyl, cyl, cyl, cyl},
		HoseVolume:      2e-4,
		AtmosphereValve: Orifice{Cd: 0.8, Area: 2e-5},
		TankValve:       Orifice{Cd: 0.8, Area: 3e-5},
		Receiver: ReceiverParams{
			Volume:      0.02,
			Pressure:    1.6e6,
			Temperature: DefaultAmbientTemperature,
			MinVolume:   0.005,
			MaxVolume:   0.04,
		},
		LinePressure: [NumLines]float64{1e6, 1e6, 1e6, 1e6},
		LineTemp:     DefaultAmbientTemperature,
	}
}

func (p Params) Validate() error {
	if err := p.Gas.Validate(); err != nil {
		return err
	}
	for i, c := range p.Cylinders {
		if err := c.Validate(fmt.Sprintf("cylinders[%s]", dynamo.Corner(i))); err != nil {
			return err
		}
	}
	if p.HoseVolume < 0 {
		return dynamo.NewConfigError("hose_volume", p.HoseVolume, "must not be negative")
	}
	if err := p.AtmosphereValve.Validate("atmosphere_valve"); err != nil {
		return err
	}
	if err := p.TankValve.Validate("tank_valve"); err != nil {
		return err
	}
	if err := p.Receiver.Validate(); err != nil {
		return err
	}
	for i, lp := range p.LinePressure {
		if err := dynamo.RequirePositive("line_pressure["+Topology[i].Name+"]", lp); err != nil {
			return err
		}
	}
	return dynamo.RequirePositive("line_temperature", p.LineTemp)
}

// valveFlows holds the signed mass flows of one evaluation; positive enters the line.
type valveFlows struct {
	atmosphere [NumLines]float64
	tank       [NumLines]float64
}

func (f valveFlows) line(i int) float64 { return f.atmosphere[i] + f.tank[i] }

func (f valveFlows) receiver() float64 {
	net := 0.0
	for _, q := range f.tank {
		net -= q
	}
	return net
}

// Network owns the committed line and receiver states. Derive is pure; only
// Commit, SetReceiverVolume and Reset change the network.
type Network struct {
	params         Params
	receiverVolume float64

	lines    [NumLines]LineState
	receiver ReceiverState

	last           valveFlows
	haveLast       bool
	cumulativeFlow float64
	exhausted      float64
}

func NewNetwork(params Params) (*Network, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := &Network{params: params}
	n.Reset()
	return n, nil
}

func (n *Network) Params() Params { return n.params }

// Reset restores session defaults. Line states are filled in by the next Commit.
func (n *Network) Reset() {
	n.receiverVolume = n.params.Receiver.Volume
	for i := range n.lines {
		n.lines[i] = LineState{
			Pressure:    n.params.LinePressure[i],
			Temperature: n.params.LineTemp,
		}
	}
	r := n.params.Receiver
	n.receiver = ReceiverState{
		Pressure:       r.Pressure,
		Temperature:    r.Temperature,
		Volume:         r.Volume,
		Mass:           n.params.Gas.Mass(r.Pressure, r.Temperature, r.Volume),
		VariableVolume: r.VariableVolume,
	}
	n.last = valveFlows{}
	n.haveLast = false
	n.cumulativeFlow = 0
	n.exhausted = 0
}

// Chambers maps piston positions and rates (indexed by corner) onto the
// enclosed volume of each line.
func (n *Network) Chambers(pos, vel [NumLines]float64) [NumLines]Chamber {
	var ch [NumLines]Chamber
	for i, line := range Topology {
		hc, rc := n.params.Cylinders[line.Head], n.params.Cylinders[line.Rod]
		vh, _ := hc.Volumes(pos[line.Head])
		_, vr := rc.Volumes(pos[line.Rod])
		rh, _ := hc.VolumeRates(pos[line.Head], vel[line.Head])
		_, rr := rc.VolumeRates(pos[line.Rod], vel[line.Rod])
		ch[i] = Chamber{Volume: vh + vr + n.params.HoseVolume, Rate: rh + rr}
	}
	return ch
}

// InitialState returns the gas sub-state at configured line pressures for
// the given chambers.
func (n *Network) InitialState(ch [NumLines]Chamber) []float64 {
	g := n.params.Gas
	x := make([]float64, Dim)
	for i := range ch {
		x[LineMass(i)] = g.Mass(n.params.LinePressure[i], n.params.LineTemp, ch[i].Volume)
		x[LineTemperature(i)] = n.params.LineTemp
	}
	x[ReceiverMass] = g.Mass(n.receiver.Pressure, n.receiver.Temperature, n.receiverVolume)
	x[ReceiverTemperature] = n.receiver.Temperature
	return x
}

// LinePressures evaluates the four line pressures of a gas sub-state.
func (n *Network) LinePressures(x []float64, ch [NumLines]Chamber) ([NumLines]float64, error) {
	var p [NumLines]float64
	if len(x) < Dim {
		return p, dynamo.ErrDimensionMismatch
	}
	for i := range ch {
		pi, err := n.params.Gas.checkVolume(Topology[i].Name, x[LineMass(i)], x[LineTemperature(i)], ch[i].Volume)
		if err != nil {
			return p, err
		}
		p[i] = pi
	}
	return p, nil
}

func (n *Network) receiverPressure(x []float64) (float64, error) {
	return n.params.Gas.checkVolume("receiver", x[ReceiverMass], x[ReceiverTemperature], n.receiverVolume)
}

// flows computes every valve flow from the same sub-state before anything
// is aggregated, so the receiver sees all four lines at once.
func (n *Network) flows(x []float64, ch [NumLines]Chamber, valves ValveCommand) (valveFlows, [NumLines]float64, error) {
	var f valveFlows
	p, err := n.LinePressures(x, ch)
	if err != nil {
		return f, p, err
	}
	pr, err := n.receiverPressure(x)
	if err != nil {
		return f, p, err
	}
	g := n.params.Gas
	tr := x[ReceiverTemperature]
	for i := range ch {
		ti := x[LineTemperature(i)]
		f.atmosphere[i] = n.params.AtmosphereValve.MassFlow(g, valves[i].Atmosphere, p[i], ti, g.AmbientPressure, g.AmbientTemperature)
		f.tank[i] = n.params.TankValve.MassFlow(g, valves[i].Tank, p[i], ti, pr, tr)
	}
	return f, p, nil
}

// Derive returns the time derivative of the gas sub-state. It does not
// modify the network.
func (n *Network) Derive(x []float64, ch [NumLines]Chamber, valves ValveCommand) ([]float64, error) {
	f, _, err := n.flows(x, ch, valves)
	if err != nil {
		return nil, err
	}
	g := n.params.Gas
	dx := make([]float64, Dim)
	for i := range ch {
		m, t := x[LineMass(i)], x[LineTemperature(i)]
		mdot := f.line(i)
		dx[LineMass(i)] = mdot
		dx[LineTemperature(i)] = g.TemperatureRate(m, t, ch[i].Volume, mdot, ch[i].Rate)
	}
	rdot := f.receiver()
	dx[ReceiverMass] = rdot
	dx[ReceiverTemperature] = g.TemperatureRate(x[ReceiverMass], x[ReceiverTemperature], n.receiverVolume, rdot, 0)
	return dx, nil
}

// Validate checks that every volume of a gas sub-state is physical.
func (n *Network) Validate(x []float64, ch [NumLines]Chamber) error {
	if _, err := n.LinePressures(x, ch); err != nil {
		return err
	}
	_, err := n.receiverPressure(x)
	return err
}

// Commit records a committed gas sub-state as the network state. Flow
// totals are accumulated with the trapezoid rule across the tick.
func (n *Network) Commit(x []float64, ch [NumLines]Chamber, valves ValveCommand, dt float64) error {
	f, p, err := n.flows(x, ch, valves)
	if err != nil {
		return err
	}
	pr, _ := n.receiverPressure(x)
	prev := f
	if n.haveLast {
		prev = n.last
	}
	for i := range ch {
		n.lines[i] = LineState{
			Pressure:    p[i],
			Temperature: x[LineTemperature(i)],
			Volume:      ch[i].Volume,
			Mass:        x[LineMass(i)],
			NetFlow:     f.line(i),
		}
		moved := math.Abs(f.atmosphere[i]) + math.Abs(f.tank[i])
		movedPrev := math.Abs(prev.atmosphere[i]) + math.Abs(prev.tank[i])
		n.cumulativeFlow += 0.5 * (moved + movedPrev) * dt
		n.exhausted += 0.5 * (math.Max(0, -f.atmosphere[i]) + math.Max(0, -prev.atmosphere[i])) * dt
	}
	n.receiver.Pressure = pr
	n.receiver.Temperature = x[ReceiverTemperature]
	n.receiver.Volume = n.receiverVolume
	n.receiver.Mass = x[ReceiverMass]
	n.receiver.NetFlow = f.receiver()
	n.last = f
	n.haveLast = true
	return nil
}

// SetReceiverVolume resizes the receiver in variable-volume mode. The gas is
// recompressed polytropically, so x's receiver temperature is updated in
// place; its mass is unchanged.
func (n *Network) SetReceiverVolume(x []float64, volume float64) error {
	r := n.params.Receiver
	if !r.VariableVolume {
		return dynamo.NewConfigError("receiver.volume", volume, "receiver is not in variable-volume mode")
	}
	if volume < r.MinVolume || volume > r.MaxVolume {
		return dynamo.NewConfigError("receiver.volume", volume,
			fmt.Sprintf("must lie within [%g, %g]", r.MinVolume, r.MaxVolume))
	}
	if len(x) < Dim {
		return dynamo.ErrDimensionMismatch
	}
	ratio := n.receiverVolume / volume
	t := x[ReceiverTemperature] * math.Pow(ratio, n.params.Gas.PolytropicExponent-1)
	p, err := n.params.Gas.checkVolume("receiver", x[ReceiverMass], t, volume)
	if err != nil {
		return err
	}
	x[ReceiverTemperature] = t
	n.receiverVolume = volume
	n.receiver.Volume = volume
	n.receiver.Temperature = t
	n.receiver.Pressure = p
	return nil
}

// ReceiverVolume is the current receiver volume.
func (n *Network) ReceiverVolume() float64 { return n.receiverVolume }

// Energy is the pneumatic energy sum of (p - p_atm) V over lines and receiver.
func (n *Network) Energy(x []float64, ch [NumLines]Chamber) float64 {
	g := n.params.Gas
	e := 0.0
	for i := range ch {
		e += (g.Pressure(x[LineMass(i)], x[LineTemperature(i)], ch[i].Volume) - g.AmbientPressure) * ch[i].Volume
	}
	e += (g.Pressure(x[ReceiverMass], x[ReceiverTemperature], n.receiverVolume) - g.AmbientPressure) * n.receiverVolume
	return e
}

func (n *Network) Lines() [NumLines]LineState { return n.lines }

func (n *Network) Receiver() ReceiverState { return n.receiver }

// CumulativeFlow is the total mass moved through all valves since Reset, kg.
func (n *Network) CumulativeFlow() float64 { return n.cumulativeFlow }

// ExhaustedMass is the mass vented to atmosphere since Reset, kg.
func (n *Network) ExhaustedMass() float64 { return n.exhausted }
