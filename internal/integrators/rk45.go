package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the explicit Dormand-Prince pair. Step covers dt with as many
// accepted substeps as the error estimate requires. It is kept for
// non-stiff comparison runs; the gas network usually wants an implicit method.
type RK45 struct {
	Tol      float64
	MinStep  float64
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-6,
		MinStep:  1e-9,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t0, dt float64) dynamo.StepResult {
	fail := func(nfev int, err error) dynamo.StepResult {
		return dynamo.Failed(t0, nfev, &dynamo.IntegrationFailure{Method: r.Name(), Time: t0, Dt: dt, Err: err})
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fail(0, fmt.Errorf("%w: dt = %g", dynamo.ErrStepTooSmall, dt))
	}
	if len(x) != sys.StateDim() {
		return fail(0, dynamo.ErrDimensionMismatch)
	}

	nfev := 0
	cur := x
	t := t0
	end := t0 + dt
	h := dt
	for t < end {
		if end-t < h {
			h = end - t
		}
		xNew, errRatio, n, err := r.attempt(sys, cur, u, t, h, r.Tol)
		nfev += n
		if err != nil {
			return fail(nfev, err)
		}
		if errRatio <= 1 {
			cur = xNew
			t += h
			if end-t <= 1e-12*dt {
				break
			}
		}
		h = r.nextStep(h, errRatio)
		if h < r.MinStep {
			return fail(nfev, fmt.Errorf("%w: h = %g", dynamo.ErrStepTooSmall, h))
		}
	}
	if err := accept(sys, cur); err != nil {
		return fail(nfev, err)
	}
	return dynamo.StepResult{
		State:   cur,
		Time:    end,
		Success: true,
		NFev:    nfev,
		Message: "converged",
		Method:  r.Name(),
	}
}

// StepAdaptive takes one Dormand-Prince step of size dt and returns the
// step size the error estimate suggests for the next attempt.
func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	xNew, errRatio, _, err := r.attempt(sys, x, u, t, dt, tol)
	if err != nil {
		return nil, 0, err
	}
	return xNew, r.nextStep(dt, errRatio), nil
}

func (r *RK45) nextStep(dt, errRatio float64) float64 {
	if errRatio > 1 {
		return dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	}
	if errRatio > 0 {
		return dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	}
	return dt * r.maxScale
}

func (r *RK45) attempt(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, int, error) {
	n := len(x)
	nfev := 0
	eval := func(y dynamo.State, ty float64) (dynamo.State, error) {
		nfev++
		return sys.Derive(y, u, ty)
	}

	k1, err := eval(x, t)
	if err != nil {
		return nil, 0, nfev, err
	}

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2, err := eval(x2, t+a2*dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3, err := eval(x3, t+a3*dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4, err := eval(x4, t+a4*dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5, err := eval(x5, t+a5*dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6, err := eval(x6, t+dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7, err := eval(xNew, t+dt)
	if err != nil {
		return nil, 0, nfev, err
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	if math.IsNaN(errMax) {
		return nil, 0, nfev, dynamo.ErrInvalidState
	}
	return xNew, errMax / tol, nfev, nil
}
