package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/integrators"
	"github.com/san-kum/pneustab/internal/physics"
)

type testDynamics struct {
	commits int
}

func (t *testDynamics) Derive(x dynamo.State, u dynamo.Control, time float64) (dynamo.State, error) {
	return dynamo.State{-x[0]}, nil
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 0 }

func (t *testDynamics) Commit(x dynamo.State, u dynamo.Control, time, dt float64) error {
	t.commits++
	return nil
}

type testIntegrator struct{}

func (t *testIntegrator) Name() string { return "euler" }

func (t *testIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, time, dt float64) dynamo.StepResult {
	dx, err := dyn.Derive(x, u, time)
	if err != nil {
		return dynamo.Failed(time, 1, err)
	}
	return dynamo.StepResult{State: dynamo.State{x[0] + dt*dx[0]}, Time: time + dt, Success: true, NFev: 1, Method: "euler"}
}

// flakyIntegrator fails every step longer than maxDt.
type flakyIntegrator struct {
	testIntegrator
	maxDt float64
	calls int
}

func (f *flakyIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, time, dt float64) dynamo.StepResult {
	f.calls++
	if dt > f.maxDt {
		return dynamo.Failed(time, 0, dynamo.ErrNewtonDiverged)
	}
	return f.testIntegrator.Step(dyn, x, u, time, dt)
}

func TestSimulatorRun(t *testing.T) {
	dyn := &testDynamics{}
	sim := New(dyn, &testIntegrator{}, nil)

	cfg := dynamo.Config{
		Dt:       0.1,
		Duration: 1.0,
	}

	x0 := dynamo.State{1.0}
	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}

	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}

	if dyn.commits != 10 {
		t.Errorf("expected 10 commits, got %d", dyn.commits)
	}

	finalState := result.States[len(result.States)-1][0]
	expected := 1.0 * math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
	if x0[0] != 1.0 {
		t.Error("initial state was modified")
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	tests := []struct {
		name string
		cfg  dynamo.Config
		x0   dynamo.State
	}{
		{"zero dt", dynamo.Config{Dt: 0, Duration: 1.0}, dynamo.State{1}},
		{"negative dt", dynamo.Config{Dt: -0.1, Duration: 1.0}, dynamo.State{1}},
		{"zero duration", dynamo.Config{Dt: 0.1, Duration: 0}, dynamo.State{1}},
		{"negative duration", dynamo.Config{Dt: 0.1, Duration: -1.0}, dynamo.State{1}},
		{"wrong dimension", dynamo.Config{Dt: 0.1, Duration: 1.0}, dynamo.State{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.x0, tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x dynamo.State, u dynamo.Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	metric := &testMetric{}
	sim.AddMetric(metric)

	cfg := dynamo.Config{Dt: 0.1, Duration: 1.0}
	x0 := dynamo.State{1.0}

	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}

	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestSimulatorRetriesWithHalfSteps(t *testing.T) {
	integ := &flakyIntegrator{maxDt: 0.06}
	sim := New(&testDynamics{}, integ, nil)

	result, err := sim.Run(context.Background(), dynamo.State{1}, dynamo.Config{Dt: 0.1, Duration: 0.3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 3 {
		t.Errorf("expected 3 steps, got %d", result.StepsTaken)
	}
	if integ.calls != 9 {
		t.Errorf("expected one failed and two half steps per tick, got %d calls", integ.calls)
	}
	if got, want := result.States[3][0], math.Pow(0.95, 6); math.Abs(got-want) > 1e-12 {
		t.Errorf("final state %.12f, want %.12f", got, want)
	}
}

func TestSimulatorStopsWhenRetryFails(t *testing.T) {
	sim := New(&testDynamics{}, &flakyIntegrator{maxDt: 0.01}, nil)

	result, err := sim.Run(context.Background(), dynamo.State{1}, dynamo.Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, dynamo.ErrNewtonDiverged) {
		t.Fatalf("expected ErrNewtonDiverged, got %v", err)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) || simErr.Step != 0 {
		t.Errorf("expected SimulationError at step 0, got %v", err)
	}
	if len(result.States) != 1 || result.StepsTaken != 0 {
		t.Errorf("expected only the initial state, got %d states", len(result.States))
	}
}

func TestSimulatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(&testDynamics{}, &testIntegrator{}, nil)
	result, err := sim.Run(ctx, dynamo.State{1}, dynamo.Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", result.StepsTaken)
	}
}

func TestSimulatorRunWithCallback(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	var times []float64
	err := sim.RunWithCallback(context.Background(), dynamo.State{1}, dynamo.Config{Dt: 0.1, Duration: 1},
		func(x dynamo.State, u dynamo.Control, t float64) bool {
			times = append(times, t)
			return len(times) < 4
		})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(times) != 4 {
		t.Errorf("expected callback to stop after 4 calls, got %d", len(times))
	}
}

func TestSimulatorStabilizer(t *testing.T) {
	sys, err := physics.NewStabilizer(physics.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("NewStabilizer: %v", err)
	}
	sim := New(sys, integrators.NewRadau5(), control.NewAntiRoll(control.DefaultAntiRollGains()))

	x0 := sys.InitialState(physics.BodyState{Roll: 0.02})
	result, err := sim.Run(context.Background(), x0, dynamo.Config{Dt: 0.001, Duration: 0.05, ValidateState: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Columns) != sys.StateDim() {
		t.Errorf("expected %d columns, got %d", sys.StateDim(), len(result.Columns))
	}
	if result.StepsTaken != 50 {
		t.Errorf("expected 50 steps, got %d", result.StepsTaken)
	}
	if len(result.Controls[0]) != sys.ControlDim() {
		t.Errorf("expected %d valve commands, got %d", sys.ControlDim(), len(result.Controls[0]))
	}
	if sys.Network.CumulativeFlow() <= 0 {
		t.Error("anti-roll should have moved gas through the valves")
	}
}

func TestEnsemble(t *testing.T) {
	build := func(seed int64) (*Simulator, dynamo.State, error) {
		return New(&testDynamics{}, &testIntegrator{}, nil), dynamo.State{float64(seed)}, nil
	}
	e := NewEnsemble(build, 5, 10)
	e.Workers = 3

	results, err := e.Run(context.Background(), dynamo.Config{Dt: 0.1, Duration: 0.5})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if got := r.States[0][0]; got != float64(10+i) {
			t.Errorf("run %d started from %v, want seed %d", i, got, 10+i)
		}
	}

	boom := errors.New("boom")
	e = NewEnsemble(func(int64) (*Simulator, dynamo.State, error) { return nil, nil, boom }, 2, 0)
	if _, err := e.Run(context.Background(), dynamo.Config{Dt: 0.1, Duration: 0.5}); !errors.Is(err, boom) {
		t.Errorf("expected builder error, got %v", err)
	}
}
