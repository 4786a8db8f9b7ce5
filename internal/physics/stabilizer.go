package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/road"
)

const (
	// ModePneumatic carries the body on the gas network.
	ModePneumatic = "pneumatic"
	// ModeSpring replaces the gas network with the auxiliary springs alone.
	ModeSpring = "spring"
)

// Excitor supplies road displacement and its rate at the four wheels.
type Excitor interface {
	WheelExcitation(t float64) road.Excitation
	WheelVelocity(t float64) road.Excitation
}

// Suspension describes the lever linkage and the auxiliary compliance in
// parallel with each cylinder.
type Suspension struct {
	Mode string `yaml:"mode"`
	// LeverRatio is piston travel per unit of corner travel.
	LeverRatio       [dynamo.NumCorners]float64 `yaml:"lever_ratio"`
	SpringStiffness  float64                    `yaml:"spring_stiffness"`
	SpringFreeLength float64                    `yaml:"spring_free_length"`
	DamperRate       float64                    `yaml:"damper_rate"`
	EndStopStiffness float64                    `yaml:"end_stop_stiffness"`
	AngleLimit       float64                    `yaml:"angle_limit"`
}

func DefaultSuspension() Suspension {
	return Suspension{
		Mode:             ModePneumatic,
		LeverRatio:       [dynamo.NumCorners]float64{2, 2, 2, 2},
		SpringStiffness:  5000,
		DamperRate:       1500,
		EndStopStiffness: 2e6,
		AngleLimit:       DefaultAngleLimit,
	}
}

func (s Suspension) Validate() error {
	switch s.Mode {
	case ModePneumatic:
	case ModeSpring:
		if err := dynamo.RequirePositive("suspension.spring_stiffness", s.SpringStiffness); err != nil {
			return err
		}
	default:
		return dynamo.NewConfigError("suspension.mode", 0, fmt.Sprintf("unknown mode %q", s.Mode))
	}
	for i, l := range s.LeverRatio {
		if err := dynamo.RequirePositive(fmt.Sprintf("suspension.lever_ratio[%s]", dynamo.Corner(i)), l); err != nil {
			return err
		}
	}
	if s.SpringStiffness < 0 {
		return dynamo.NewConfigError("suspension.spring_stiffness", s.SpringStiffness, "must not be negative")
	}
	if s.DamperRate < 0 {
		return dynamo.NewConfigError("suspension.damper_rate", s.DamperRate, "must not be negative")
	}
	if s.EndStopStiffness < 0 {
		return dynamo.NewConfigError("suspension.end_stop_stiffness", s.EndStopStiffness, "must not be negative")
	}
	if !(s.AngleLimit > 0) || s.AngleLimit >= math.Pi/2 {
		return dynamo.NewConfigError("suspension.angle_limit", s.AngleLimit, "must lie within (0, pi/2)")
	}
	return nil
}

// Params is the full mechanical and pneumatic description of one vehicle.
// Zero line pressures are replaced by the statically balanced precharge.
type Params struct {
	Body       BodyParams    `yaml:"body"`
	Suspension Suspension    `yaml:"suspension"`
	Pneumatics pneumo.Params `yaml:"pneumatics"`
}

func DefaultParams() Params {
	p := Params{
		Body:       DefaultBodyParams(),
		Suspension: DefaultSuspension(),
		Pneumatics: pneumo.DefaultParams(),
	}
	p.Pneumatics.LinePressure = [pneumo.NumLines]float64{}
	return p
}

// EnergyBreakdown splits the stored energy of a state.
type EnergyBreakdown struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Pneumatic float64 `json:"pneumatic"`
	Total     float64 `json:"total"`
}

// Stabilizer is the coupled body and gas network right-hand side. Derive
// reads the network parameters but never its committed state; Commit is
// the only call that writes to the network.
type Stabilizer struct {
	Body       BodyParams
	Suspension Suspension
	Network    *pneumo.Network
	Road       Excitor

	neutral [dynamo.NumCorners]float64
}

// NewStabilizer validates params and builds the system. rd may be nil for a
// flat road. In spring mode the gas network is not built.
func NewStabilizer(p Params, rd Excitor) (*Stabilizer, error) {
	if err := p.Body.Validate(); err != nil {
		return nil, err
	}
	if err := p.Suspension.Validate(); err != nil {
		return nil, err
	}
	s := &Stabilizer{Body: p.Body, Suspension: p.Suspension, Road: rd}
	if p.Suspension.Mode != ModePneumatic {
		return s, nil
	}

	pp := p.Pneumatics
	if pp.LinePressure == ([pneumo.NumLines]float64{}) {
		lp, err := StaticLinePressures(p.Body, p.Suspension, pp)
		if err != nil {
			return nil, err
		}
		pp.LinePressure = lp
	}
	net, err := pneumo.NewNetwork(pp)
	if err != nil {
		return nil, err
	}
	s.Network = net
	for c, cyl := range pp.Cylinders {
		s.neutral[c] = cyl.NeutralPosition()
	}
	return s, nil
}

// StaticLinePressures returns the precharge that holds the body level at
// zero displacement with all pistons at their neutral position. Axle loads
// come from the heave and pitch balance of the attachment geometry.
func StaticLinePressures(body BodyParams, susp Suspension, pp pneumo.Params) ([pneumo.NumLines]float64, error) {
	var out [pneumo.NumLines]float64
	att := body.Attachments
	front := (att[dynamo.FrontLeft].Longitudinal + att[dynamo.FrontRight].Longitudinal) / 2
	rear := (att[dynamo.RearLeft].Longitudinal + att[dynamo.RearRight].Longitudinal) / 2

	a := mat.NewDense(2, 2, []float64{
		2, 2,
		2 * front, 2 * rear,
	})
	b := mat.NewVecDense(2, []float64{body.Mass * body.Gravity, 0})
	var load mat.VecDense
	if err := load.SolveVec(a, b); err != nil {
		return out, dynamo.NewConfigError("body.attachments", front-rear, "axle loads are indeterminate")
	}

	preload := susp.SpringStiffness * susp.SpringFreeLength
	pAtm := pp.Gas.AmbientPressure
	for i, line := range pneumo.Topology {
		axle := 0
		if !line.Head.IsFront() {
			axle = 1
		}
		area := 0.0
		for _, c := range []dynamo.Corner{line.Head, line.Rod} {
			cyl := pp.Cylinders[c]
			area += susp.LeverRatio[c] * (cyl.HeadArea() - cyl.RodArea()) / 2
		}
		p := pAtm + (load.AtVec(axle)-preload)/area
		if !(p > 0) {
			return out, dynamo.NewConfigError("pneumatics.line_pressure["+line.Name+"]", p, "static balance needs a non-physical pressure")
		}
		out[i] = p
	}
	return out, nil
}

func (s *Stabilizer) StateDim() int {
	if s.Network == nil {
		return BodyDim
	}
	return BodyDim + pneumo.Dim
}

func (s *Stabilizer) ControlDim() int { return pneumo.ControlDim }

// Labels names each entry of the state vector.
func (s *Stabilizer) Labels() []string {
	labels := []string{"heave", "roll", "pitch", "heave_rate", "roll_rate", "pitch_rate"}
	if s.Network == nil {
		return labels
	}
	for _, l := range pneumo.Topology {
		labels = append(labels, "mass_"+l.Name, "temp_"+l.Name)
	}
	return append(labels, "mass_receiver", "temp_receiver")
}

// StaticLinePressure is the configured precharge of each line.
func (s *Stabilizer) StaticLinePressure() [pneumo.NumLines]float64 {
	if s.Network == nil {
		return [pneumo.NumLines]float64{}
	}
	return s.Network.Params().LinePressure
}

func (s *Stabilizer) excitation(t float64) (road.Excitation, road.Excitation) {
	if s.Road == nil {
		return road.Excitation{}, road.Excitation{}
	}
	return s.Road.WheelExcitation(t), s.Road.WheelVelocity(t)
}

// corners is the kinematic state of the four assemblies at one instant.
type corners struct {
	travel     [dynamo.NumCorners]float64
	travelRate [dynamo.NumCorners]float64
	piston     [dynamo.NumCorners]float64
	pistonRate [dynamo.NumCorners]float64
}

func (s *Stabilizer) kinematics(b BodyState, exc, excVel road.Excitation) corners {
	var k corners
	for c, a := range s.Body.Attachments {
		k.travel[c] = CornerDisplacement(b, a) - exc[c]
		k.travelRate[c] = CornerVelocity(b, a) - excVel[c]
		lever := s.Suspension.LeverRatio[c]
		k.piston[c] = s.neutral[c] + lever*k.travel[c]
		k.pistonRate[c] = lever * k.travelRate[c]
	}
	return k
}

func (s *Stabilizer) chambers(k corners) [pneumo.NumLines]pneumo.Chamber {
	return s.Network.Chambers(k.piston, k.pistonRate)
}

func (s *Stabilizer) checkDim(x dynamo.State) error {
	if len(x) != s.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system needs %d", dynamo.ErrDimensionMismatch, len(x), s.StateDim())
	}
	return nil
}

// Derive evaluates the coupled right-hand side at (x, u, t).
func (s *Stabilizer) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	if err := s.checkDim(x); err != nil {
		return nil, err
	}
	if err := s.Body.singular(); err != nil {
		return nil, err
	}

	b := BodyFromState(x)
	exc, excVel := s.excitation(t)
	k := s.kinematics(b, exc, excVel)
	susp := s.Suspension

	var force [dynamo.NumCorners]float64
	for c := range force {
		force[c] = ComputeSpringForce(k.travel[c], susp.SpringFreeLength, susp.SpringStiffness) -
			susp.DamperRate*k.travelRate[c]
	}

	dx := make(dynamo.State, s.StateDim())
	if s.Network != nil {
		gas := []float64(x[BodyDim:])
		ch := s.chambers(k)
		p, err := s.Network.LinePressures(gas, ch)
		if err != nil {
			return nil, err
		}
		pp := s.Network.Params()
		for _, c := range dynamo.Corners {
			cyl := pp.Cylinders[c]
			ah, ar := cyl.HeadArea(), cyl.RodArea()
			f := ComputeCylinderForce(p[pneumo.HeadLine(c)], p[pneumo.RodLine(c)], ah, ar)
			f -= pp.Gas.AmbientPressure * (ah - ar)
			f -= susp.EndStopStiffness * cyl.Overtravel(k.piston[c])
			force[c] += susp.LeverRatio[c] * f
		}
		dgas, err := s.Network.Derive(gas, ch, pneumo.ValvesFromControl(u))
		if err != nil {
			return nil, err
		}
		copy(dx[BodyDim:], dgas)
	}

	g := ProjectCornerForces(force, s.Body.Attachments)
	dx[0] = b.HeaveRate
	dx[1] = b.RollRate
	dx[2] = b.PitchRate
	dx[3] = g.Heave/s.Body.Mass - s.Body.Gravity
	dx[4] = g.Roll / s.Body.RollInertia
	dx[5] = g.Pitch / s.Body.PitchInertia
	return dx, nil
}

// InitialState places the body at b with the gas at its precharge for the
// level, unexcited posture.
func (s *Stabilizer) InitialState(b BodyState) dynamo.State {
	x := make(dynamo.State, s.StateDim())
	b.put(x)
	if s.Network != nil {
		k := s.kinematics(BodyState{}, road.Excitation{}, road.Excitation{})
		copy(x[BodyDim:], s.Network.InitialState(s.chambers(k)))
	}
	return x
}

// Commit records a committed state in the gas network.
func (s *Stabilizer) Commit(x dynamo.State, u dynamo.Control, t, dt float64) error {
	if s.Network == nil {
		return nil
	}
	if err := s.checkDim(x); err != nil {
		return err
	}
	exc, excVel := s.excitation(t)
	k := s.kinematics(BodyFromState(x), exc, excVel)
	return s.Network.Commit(x[BodyDim:], s.chambers(k), pneumo.ValvesFromControl(u), dt)
}

// Validate rejects non-finite states and non-physical gas.
func (s *Stabilizer) Validate(x dynamo.State) error {
	if err := s.checkDim(x); err != nil {
		return err
	}
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	if s.Network == nil {
		return nil
	}
	k := s.kinematics(BodyFromState(x), road.Excitation{}, road.Excitation{})
	return s.Network.Validate(x[BodyDim:], s.chambers(k))
}

// Energy is the stored energy with the wheels on a level road.
func (s *Stabilizer) Energy(x dynamo.State) float64 {
	return s.energies(x, road.Excitation{}).Total
}

// Energies splits the stored energy at time t.
func (s *Stabilizer) Energies(x dynamo.State, t float64) EnergyBreakdown {
	exc, _ := s.excitation(t)
	return s.energies(x, exc)
}

func (s *Stabilizer) energies(x dynamo.State, exc road.Excitation) EnergyBreakdown {
	var e EnergyBreakdown
	if len(x) != s.StateDim() {
		return e
	}
	b := BodyFromState(x)
	body := s.Body
	e.Kinetic = 0.5 * (body.Mass*b.HeaveRate*b.HeaveRate +
		body.RollInertia*b.RollRate*b.RollRate +
		body.PitchInertia*b.PitchRate*b.PitchRate)

	susp := s.Suspension
	k := s.kinematics(b, exc, road.Excitation{})
	e.Potential = body.Mass * body.Gravity * b.Heave
	for c := range k.travel {
		stretch := k.travel[c] - susp.SpringFreeLength
		e.Potential += 0.5 * susp.SpringStiffness * stretch * stretch
	}
	if s.Network != nil {
		for c, cyl := range s.Network.Params().Cylinders {
			over := cyl.Overtravel(k.piston[c])
			e.Potential += 0.5 * susp.EndStopStiffness * over * over
		}
		e.Pneumatic = s.Network.Energy(x[BodyDim:], s.chambers(k))
	}
	e.Total = e.Kinetic + e.Potential + e.Pneumatic
	return e
}

// PistonPositions returns the piston position of each cylinder at time t.
func (s *Stabilizer) PistonPositions(x dynamo.State, t float64) [dynamo.NumCorners]float64 {
	exc, excVel := s.excitation(t)
	return s.kinematics(BodyFromState(x), exc, excVel).piston
}

// CheckLimits reports every bound the state exceeds. The state stays usable.
func (s *Stabilizer) CheckLimits(x dynamo.State, t float64) []*dynamo.DivergenceWarning {
	if len(x) < BodyDim {
		return nil
	}
	var out []*dynamo.DivergenceWarning
	b := BodyFromState(x)
	limit := s.Suspension.AngleLimit
	if math.Abs(b.Roll) > limit {
		out = append(out, &dynamo.DivergenceWarning{Time: t, Quantity: "roll", Value: b.Roll, Limit: limit})
	}
	if math.Abs(b.Pitch) > limit {
		out = append(out, &dynamo.DivergenceWarning{Time: t, Quantity: "pitch", Value: b.Pitch, Limit: limit})
	}
	if s.Network == nil {
		return out
	}
	pos := s.PistonPositions(x, t)
	for c, cyl := range s.Network.Params().Cylinders {
		if over := cyl.Overtravel(pos[c]); over != 0 {
			out = append(out, &dynamo.DivergenceWarning{
				Time:     t,
				Quantity: "piston " + dynamo.Corner(c).String(),
				Value:    pos[c],
				Limit:    cyl.Stroke,
			})
		}
	}
	return out
}
