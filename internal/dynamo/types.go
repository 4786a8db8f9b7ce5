package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control carries the valve commands held constant across one physics tick.
type Control []float64

func (u Control) Clone() Control {
	c := make(Control, len(u))
	copy(c, u)
	return c
}

// System is a first-order ODE dX/dt = f(X, u, t). Derive must not mutate
// anything outside its return value; it is called for solver trial points.
type System interface {
	Derive(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Validator is implemented by systems whose state carries physical
// constraints beyond finiteness. Integrators call it on the final state
// before reporting success.
type Validator interface {
	Validate(x State) error
}

type Integrator interface {
	Name() string
	Step(sys System, x State, u Control, t0, dt float64) StepResult
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// MethodFailed is reported as StepResult.Method when a step did not commit.
const MethodFailed = "FAILED"

// StepResult reports the outcome of advancing a state by exactly one dt.
// On failure State is nil; the caller's input state is never modified.
type StepResult struct {
	State   State
	Time    float64
	Success bool
	NFev    int
	Message string
	Method  string
	Err     error
}

// Failed builds the result for a step that did not commit.
func Failed(t0 float64, nfev int, err error) StepResult {
	msg := "integration failed"
	if err != nil {
		msg = err.Error()
	}
	return StepResult{
		Time:    t0,
		Success: false,
		NFev:    nfev,
		Message: msg,
		Method:  MethodFailed,
		Err:     err,
	}
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.001,
		Duration:      10.0,
		Tolerance:     1e-6,
		MaxDt:         0.01,
		MinDt:         1e-8,
		ValidateState: true,
	}
}

type Result struct {
	Columns     []string
	States      []State
	Controls    []Control
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Errors      []error
}
