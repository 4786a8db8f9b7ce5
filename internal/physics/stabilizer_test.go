package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/road"
)

func newDefault(t *testing.T) *Stabilizer {
	t.Helper()
	s, err := NewStabilizer(DefaultParams(), nil)
	require.NoError(t, err)
	return s
}

func TestProjectCornerForces_IsTransposeOfDisplacement(t *testing.T) {
	t.Parallel()

	att := DefaultBodyParams().Attachments
	b := BodyState{Heave: 0.013, Roll: -0.021, Pitch: 0.007}
	f := [dynamo.NumCorners]float64{1200, -300, 850, 40}

	work := 0.0
	for c := range f {
		work += f[c] * CornerDisplacement(b, att[c])
	}
	g := ProjectCornerForces(f, att)
	assert.InDelta(t, work, g.Heave*b.Heave+g.Roll*b.Roll+g.Pitch*b.Pitch, 1e-9)
}

func TestCornerDisplacement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    BodyState
		a    Attachment
		want float64
	}{
		{"heave only", BodyState{Heave: 0.02}, Attachment{Lateral: 0.8, Longitudinal: 1.2}, 0.02},
		{"roll left", BodyState{Roll: 0.01}, Attachment{Lateral: 0.8}, 0.008},
		{"roll right", BodyState{Roll: 0.01}, Attachment{Lateral: -0.8}, -0.008},
		{"pitch rear", BodyState{Pitch: 0.01}, Attachment{Longitudinal: -1.5}, -0.015},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CornerDisplacement(tt.b, tt.a), 1e-15)
		})
	}
}

func TestForceLaws(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1400, ComputeCylinderForce(2e5, 1e5, 0.01, 0.006), 1e-9)
	assert.Positive(t, ComputeCylinderForce(3e5, 3e5, 0.01, 0.006))
	assert.InDelta(t, -500, ComputeSpringForce(0.15, 0.1, 10000), 1e-9)
	assert.Zero(t, ComputeSpringForce(0.1, 0.1, 10000))
}

func TestStabilizer_StaticEquilibrium(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	require.Equal(t, BodyDim+pneumo.Dim, s.StateDim())

	x := s.InitialState(BodyState{})
	dx, err := s.Derive(x, nil, 0)
	require.NoError(t, err)
	for i, v := range dx {
		assert.InDelta(t, 0, v, 1e-9, "index %d", i)
	}

	p := s.StaticLinePressure()
	assert.Equal(t, p[0], p[1])
	assert.Equal(t, p[2], p[3])
	assert.Greater(t, p[0], p[2], "centre of mass is closer to the front axle")
}

func TestStabilizer_RestoringForces(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	tests := []struct {
		name  string
		b     BodyState
		index int
	}{
		{"heave", BodyState{Heave: 0.01}, 3},
		{"roll", BodyState{Roll: 0.01}, 4},
		{"pitch", BodyState{Pitch: 0.005}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, err := s.Derive(s.InitialState(tt.b), nil, 0)
			require.NoError(t, err)
			assert.Negative(t, dx[tt.index])
		})
	}
}

func TestStabilizer_DeriveIsPure(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	x := s.InitialState(BodyState{Roll: 0.01, HeaveRate: 0.1})
	before := x.Clone()
	lines := s.Network.Lines()

	open := pneumo.ValveCommand{{Tank: 1}, {Atmosphere: 1}, {}, {}}.Control()
	a, err := s.Derive(x, open, 0.1)
	require.NoError(t, err)
	b, err := s.Derive(x, open, 0.1)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, before, x)
	assert.Equal(t, lines, s.Network.Lines())
}

func TestStabilizer_SingularInertia(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	x := s.InitialState(BodyState{Pitch: 0.002})
	s.Body.PitchInertia = 0

	_, err := s.Derive(x, nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrSingularSystem)
}

func TestStabilizer_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	mutate := []func(*Params){
		func(p *Params) { p.Body.Mass = 0 },
		func(p *Params) { p.Body.RollInertia = -1 },
		func(p *Params) { p.Body.PitchInertia = 0 },
		func(p *Params) { p.Suspension.Mode = "hydraulic" },
		func(p *Params) { p.Suspension.LeverRatio[1] = 0 },
		func(p *Params) { p.Pneumatics.Cylinders[0].Bore = 0 },
		func(p *Params) { p.Pneumatics.Receiver.Volume = -0.01 },
	}
	for i, m := range mutate {
		p := DefaultParams()
		m(&p)
		_, err := NewStabilizer(p, nil)
		var cfgErr *dynamo.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), "case %d: %v", i, err)
	}
}

func TestStabilizer_GasStateErrorAbortsDerive(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	x := s.InitialState(BodyState{})
	x[BodyDim+pneumo.LineMass(2)] = -1e-4

	_, err := s.Derive(x, nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrGasState)
	assert.ErrorIs(t, s.Validate(x), dynamo.ErrGasState)

	x[BodyDim+pneumo.LineMass(2)] = math.NaN()
	assert.ErrorIs(t, s.Validate(x), dynamo.ErrInvalidState)

	_, err = s.Derive(x[:BodyDim], nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestStabilizer_CommitWritesNetwork(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	x := s.InitialState(BodyState{Roll: 0.01})
	require.NoError(t, s.Commit(x, nil, 0, 1e-3))

	lines := s.Network.Lines()
	assert.Greater(t, lines[0].Volume, lines[1].Volume, "left side lifted")
	assert.Less(t, lines[0].Pressure, lines[1].Pressure)
	assert.Equal(t, x[BodyDim+pneumo.LineMass(0)], lines[0].Mass)
}

func TestStabilizer_CheckLimits(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	assert.Empty(t, s.CheckLimits(s.InitialState(BodyState{Roll: 0.01}), 0))

	warnings := s.CheckLimits(s.InitialState(BodyState{Roll: 0.2, Pitch: -0.2}), 1.5)
	require.GreaterOrEqual(t, len(warnings), 2)
	assert.Equal(t, "roll", warnings[0].Quantity)
	assert.Equal(t, "pitch", warnings[1].Quantity)
	assert.ErrorIs(t, warnings[0], dynamo.ErrDivergence)
	assert.Equal(t, 1.5, warnings[0].Time)
}

func TestStabilizer_SpringMode(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Suspension.Mode = ModeSpring
	p.Suspension.SpringStiffness = 40000
	s, err := NewStabilizer(p, nil)
	require.NoError(t, err)
	assert.Nil(t, s.Network)
	assert.Equal(t, BodyDim, s.StateDim())

	x := s.InitialState(BodyState{Heave: 0.01})
	dx, err := s.Derive(x, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, -4*40000*0.01/p.Body.Mass-p.Body.Gravity, dx[3], 1e-12)
	assert.NoError(t, s.Commit(x, nil, 0, 1e-3))

	e := s.Energies(x, 0)
	assert.Zero(t, e.Kinetic)
	assert.Zero(t, e.Pneumatic)
	assert.InDelta(t, p.Body.Mass*p.Body.Gravity*0.01+2*40000*0.01*0.01, e.Potential, 1e-9)
}

type stepRoad struct{ height float64 }

func (r stepRoad) WheelExcitation(float64) road.Excitation {
	return road.Excitation{r.height, r.height, r.height, r.height}
}

func (stepRoad) WheelVelocity(float64) road.Excitation { return road.Excitation{} }

func TestStabilizer_RoadLiftsPistons(t *testing.T) {
	t.Parallel()

	flat := newDefault(t)
	bumped, err := NewStabilizer(DefaultParams(), stepRoad{height: 0.02})
	require.NoError(t, err)

	x := flat.InitialState(BodyState{})
	pf := flat.PistonPositions(x, 0)
	pb := bumped.PistonPositions(x, 0)
	for c := range pf {
		assert.InDelta(t, pf[c]-2*0.02, pb[c], 1e-12)
	}

	dx, err := bumped.Derive(x, nil, 0)
	require.NoError(t, err)
	assert.Positive(t, dx[3], "compressed gas pushes the body up")
}
