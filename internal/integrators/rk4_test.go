package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pneustab/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		res := integ.Step(dyn, x, u, float64(i)*dt, dt)
		if !res.Success {
			t.Fatalf("step %d failed: %s", i, res.Message)
		}
		x = res.State
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4ReportsDerivativeError(t *testing.T) {
	errBoom := errors.New("boom")
	sys := &failingSystem{limit: 0.005, err: errBoom}
	x := dynamo.State{0}

	res := NewRK4().Step(sys, x, nil, 0, 0.01)
	if res.Success || res.Method != dynamo.MethodFailed {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !errors.Is(res.Err, errBoom) {
		t.Errorf("expected wrapped derivative error, got %v", res.Err)
	}
	if x[0] != 0 {
		t.Errorf("input state modified: %v", x)
	}
}
