package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// RK4 is the classic fixed-step fourth-order Runge-Kutta method.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.StepResult {
	nfev := 0
	fail := func(err error) dynamo.StepResult {
		return dynamo.Failed(t, nfev, &dynamo.IntegrationFailure{Method: r.Name(), Time: t, Dt: dt, Err: err})
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fail(fmt.Errorf("%w: dt = %g", dynamo.ErrStepTooSmall, dt))
	}
	n := len(x)
	if n != sys.StateDim() {
		return fail(dynamo.ErrDimensionMismatch)
	}
	r.ensureScratch(n)

	stage := func(dst dynamo.State, y dynamo.State, ty float64) error {
		nfev++
		k, err := sys.Derive(y, u, ty)
		if err != nil {
			return err
		}
		copy(dst, k)
		return nil
	}

	if err := stage(r.k1, x, t); err != nil {
		return fail(err)
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := stage(r.k2, r.scratch, t+dt*0.5); err != nil {
		return fail(err)
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := stage(r.k3, r.scratch, t+dt*0.5); err != nil {
		return fail(err)
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := stage(r.k4, r.scratch, t+dt); err != nil {
		return fail(err)
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	if err := accept(sys, result); err != nil {
		return fail(err)
	}

	return dynamo.StepResult{
		State:   result,
		Time:    t + dt,
		Success: true,
		NFev:    nfev,
		Message: "ok",
		Method:  r.Name(),
	}
}
