package integrators

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Tableau is a stiffly accurate collocation scheme: the last stage is the
// step end point, so the new state is x + Z_s.
type Tableau struct {
	Name string
	A    [][]float64
	C    []float64
}

func (tb Tableau) Stages() int { return len(tb.C) }

var sqrt6 = math.Sqrt(6)

// Radau IIA, 3 stages, order 5.
var Radau5Tableau = Tableau{
	Name: "radau5",
	C:    []float64{(4 - sqrt6) / 10, (4 + sqrt6) / 10, 1},
	A: [][]float64{
		{(88 - 7*sqrt6) / 360, (296 - 169*sqrt6) / 1800, (-2 + 3*sqrt6) / 225},
		{(296 + 169*sqrt6) / 1800, (88 + 7*sqrt6) / 360, (-2 - 3*sqrt6) / 225},
		{(16 - sqrt6) / 36, (16 + sqrt6) / 36, 1.0 / 9},
	},
}

// Radau IIA, 2 stages, order 3.
var Radau3Tableau = Tableau{
	Name: "radau3",
	C:    []float64{1.0 / 3, 1},
	A: [][]float64{
		{5.0 / 12, -1.0 / 12},
		{3.0 / 4, 1.0 / 4},
	},
}

// Backward Euler, the one-step BDF.
var BDF1Tableau = Tableau{
	Name: "bdf1",
	C:    []float64{1},
	A:    [][]float64{{1}},
}

const (
	DefaultRelTol          = 1e-6
	DefaultAbsTol          = 1e-8
	DefaultMaxNewton       = 10
	DefaultMaxSubdivisions = 4

	// maxCondition rejects Newton matrices too ill-conditioned to solve.
	maxCondition = 1e14
)

// Implicit advances a state with a collocation tableau, solving the stage
// equations by simplified Newton iteration with a finite-difference
// Jacobian and a dense LU factorization. When Newton fails on the full dt
// the interval is split in halves, up to MaxSubdivisions levels deep.
type Implicit struct {
	Tableau         Tableau
	RelTol          float64
	AbsTol          float64
	MaxNewton       int
	MaxSubdivisions int
}

func NewImplicit(tb Tableau) *Implicit {
	return &Implicit{
		Tableau:         tb,
		RelTol:          DefaultRelTol,
		AbsTol:          DefaultAbsTol,
		MaxNewton:       DefaultMaxNewton,
		MaxSubdivisions: DefaultMaxSubdivisions,
	}
}

func NewRadau5() *Implicit { return NewImplicit(Radau5Tableau) }
func NewRadau3() *Implicit { return NewImplicit(Radau3Tableau) }
func NewBDF1() *Implicit   { return NewImplicit(BDF1Tableau) }

func (m *Implicit) Name() string { return m.Tableau.Name }

func (m *Implicit) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t0, dt float64) dynamo.StepResult {
	fail := func(nfev int, err error) dynamo.StepResult {
		return dynamo.Failed(t0, nfev, &dynamo.IntegrationFailure{Method: m.Name(), Time: t0, Dt: dt, Err: err})
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fail(0, fmt.Errorf("%w: dt = %g", dynamo.ErrStepTooSmall, dt))
	}
	if len(x) != sys.StateDim() {
		return fail(0, fmt.Errorf("%w: state has %d entries, system needs %d", dynamo.ErrDimensionMismatch, len(x), sys.StateDim()))
	}

	// The derivative at the committed state does not depend on dt, so a
	// failure here is not retried with a smaller step.
	f0, err := sys.Derive(x, u, t0)
	if err != nil {
		return fail(1, err)
	}

	nfev := 1
	xNew, err := m.advance(sys, x, u, t0, dt, f0, 0, &nfev)
	if err != nil {
		return fail(nfev, err)
	}
	if err := accept(sys, xNew); err != nil {
		return fail(nfev, err)
	}
	return dynamo.StepResult{
		State:   xNew,
		Time:    t0 + dt,
		Success: true,
		NFev:    nfev,
		Message: "converged",
		Method:  m.Name(),
	}
}

// accept checks a candidate end state before it is reported as committed.
func accept(sys dynamo.System, x dynamo.State) error {
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	if v, ok := sys.(dynamo.Validator); ok {
		return v.Validate(x)
	}
	return nil
}

func (m *Implicit) advance(sys dynamo.System, x dynamo.State, u dynamo.Control, t, h float64, f0 dynamo.State, depth int, nfev *int) (dynamo.State, error) {
	xNew, err := m.solve(sys, x, u, t, h, f0, nfev)
	if err == nil {
		return xNew, nil
	}
	if depth >= m.MaxSubdivisions || errors.Is(err, dynamo.ErrDimensionMismatch) {
		return nil, err
	}

	half := h / 2
	mid, err := m.advance(sys, x, u, t, half, f0, depth+1, nfev)
	if err != nil {
		return nil, err
	}
	fmid, err := sys.Derive(mid, u, t+half)
	*nfev++
	if err != nil {
		return nil, err
	}
	return m.advance(sys, mid, u, t+half, half, fmid, depth+1, nfev)
}

// solve runs the Newton iteration for one interval of length h.
func (m *Implicit) solve(sys dynamo.System, x dynamo.State, u dynamo.Control, t, h float64, f0 dynamo.State, nfev *int) (dynamo.State, error) {
	tb := m.Tableau
	s := tb.Stages()
	n := len(x)

	jac, err := jacobian(sys, x, u, t, f0, nfev)
	if err != nil {
		return nil, err
	}

	size := s * n
	newton := mat.NewDense(size, size, nil)
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			ha := h * tb.A[i][j]
			for r := 0; r < n; r++ {
				for c := 0; c < n; c++ {
					v := -ha * jac.At(r, c)
					if i == j && r == c {
						v += 1
					}
					newton.Set(i*n+r, j*n+c, v)
				}
			}
		}
	}
	var lu mat.LU
	lu.Factorize(newton)
	if cond := lu.Cond(); cond > maxCondition || math.IsNaN(cond) {
		return nil, fmt.Errorf("%w: newton matrix condition %.3g", dynamo.ErrSingularSystem, cond)
	}

	scale := make([]float64, n)
	for k := range scale {
		scale[k] = m.AbsTol + m.RelTol*math.Abs(x[k])
	}

	z := make([]float64, size)
	for i := 0; i < s; i++ {
		for k := 0; k < n; k++ {
			z[i*n+k] = tb.C[i] * h * f0[k]
		}
	}

	stage := make(dynamo.State, n)
	fs := make([]dynamo.State, s)
	rhs := mat.NewVecDense(size, nil)
	var dz mat.VecDense
	ratio := make([]float64, size)
	prev := math.Inf(1)

	for iter := 0; iter < m.MaxNewton; iter++ {
		for j := 0; j < s; j++ {
			for k := 0; k < n; k++ {
				stage[k] = x[k] + z[j*n+k]
			}
			f, err := sys.Derive(stage, u, t+tb.C[j]*h)
			*nfev++
			if err != nil {
				return nil, err
			}
			fs[j] = f
		}

		for i := 0; i < s; i++ {
			for k := 0; k < n; k++ {
				g := -z[i*n+k]
				for j := 0; j < s; j++ {
					g += h * tb.A[i][j] * fs[j][k]
				}
				rhs.SetVec(i*n+k, g)
			}
		}
		if err := lu.SolveVecTo(&dz, false, rhs); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrSingularSystem, err)
		}

		for i := range z {
			d := dz.AtVec(i)
			z[i] += d
			ratio[i] = d / scale[i%n]
		}
		norm := floats.Norm(ratio, 2) / math.Sqrt(float64(size))
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("%w: non-finite update at iteration %d", dynamo.ErrNewtonDiverged, iter+1)
		}
		if norm <= 1 {
			out := x.Clone()
			last := (s - 1) * n
			for k := range out {
				out[k] += z[last+k]
			}
			return out, nil
		}
		if norm >= prev {
			return nil, fmt.Errorf("%w: update norm grew to %.3g at iteration %d", dynamo.ErrNewtonDiverged, norm, iter+1)
		}
		prev = norm
	}
	return nil, fmt.Errorf("%w after %d iterations", dynamo.ErrNewtonDiverged, m.MaxNewton)
}

// jacobian approximates df/dx at (t, x) by forward differences.
func jacobian(sys dynamo.System, x dynamo.State, u dynamo.Control, t float64, f0 dynamo.State, nfev *int) (*mat.Dense, error) {
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	xp := x.Clone()
	for c := 0; c < n; c++ {
		delta := math.Sqrt(epsilon * math.Max(1e-5, math.Abs(x[c])))
		xp[c] = x[c] + delta
		f, err := sys.Derive(xp, u, t)
		*nfev++
		if err != nil {
			return nil, err
		}
		for r := 0; r < n; r++ {
			jac.Set(r, c, (f[r]-f0[r])/delta)
		}
		xp[c] = x[c]
	}
	return jac, nil
}

const epsilon = 2.220446049250313e-16
