package integrators

import (
	"testing"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int   { return 2 }
func (b *benchDynamics) ControlDim() int { return 0 }
func (b *benchDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}

func benchOscillator(b *testing.B, integrator dynamo.Integrator) {
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, nil, 0, 0.01).State
	}
}

func BenchmarkRK4(b *testing.B)    { benchOscillator(b, NewRK4()) }
func BenchmarkRK45(b *testing.B)   { benchOscillator(b, NewRK45()) }
func BenchmarkBDF1(b *testing.B)   { benchOscillator(b, NewBDF1()) }
func BenchmarkRadau5(b *testing.B) { benchOscillator(b, NewRadau5()) }

func BenchmarkRadau5Stabilizer(b *testing.B) {
	s, err := physics.NewStabilizer(physics.DefaultParams(), nil)
	if err != nil {
		b.Fatal(err)
	}
	integrator := NewRadau5()
	x0 := s.InitialState(physics.BodyState{Heave: 0.01, Roll: 0.005})
	x := x0

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := integrator.Step(s, x, nil, 0, 0.001)
		if !res.Success {
			b.Fatal(res.Message)
		}
		x = res.State
		if i%1000 == 999 {
			x = x0
		}
	}
}
