package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
)

// Labeled is implemented by systems that name their state entries.
type Labeled interface {
	Labels() []string
}

// Simulator runs a system offline with the same tick contract as Session:
// one policy evaluation, one step of exactly dt, one commit.
type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

// New builds a simulator. A nil controller keeps all valves closed.
func New(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller) *Simulator {
	if controller == nil {
		controller = control.NewClosed()
	}
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 for cfg.Duration. On a failed tick the partial
// result is returned together with a *dynamo.SimulationError. Divergence
// warnings are collected in Result.Errors and do not stop the run.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}
	if l, ok := s.dyn.(Labeled); ok {
		result.Columns = l.Labels()
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	if r, ok := s.controller.(interface{ Reset() }); ok {
		r.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x)
	committer, _ := s.dyn.(Committer)
	limiter, _ := s.dyn.(Limiter)

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		u := s.controller.Compute(x, t)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		res, _ := advance(s.integrator, s.dyn, x, u, t, dt)
		if !res.Success {
			runErr = &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: stepError(res)}
			result.Errors = append(result.Errors, runErr)
			break
		}
		if cfg.ValidateState && !res.State.IsValid() {
			runErr = &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, runErr)
			break
		}
		if committer != nil {
			if err := committer.Commit(res.State, u, t+dt, dt); err != nil {
				runErr = &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
				result.Errors = append(result.Errors, runErr)
				break
			}
		}

		x = res.State
		t += dt
		result.StepsTaken++

		if limiter != nil {
			for _, w := range limiter.CheckLimits(x, t) {
				result.Errors = append(result.Errors, w)
			}
		}

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	finalEnergy := s.computeEnergy(x)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg dynamo.Config) error {
	if err := dynamo.RequirePositive("dt", cfg.Dt); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("duration", cfg.Duration); err != nil {
		return err
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: initial state has %d entries, system needs %d", dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	return nil
}

func (s *Simulator) computeEnergy(x dynamo.State) float64 {
	if ec, ok := s.dyn.(dynamo.Hamiltonian); ok {
		return ec.Energy(x)
	}
	return 0
}

// RunWithCallback steps until cfg.Duration or until callback returns false.
// The callback sees each committed state before the next tick.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamo.State, cfg dynamo.Config, callback func(dynamo.State, dynamo.Control, float64) bool) error {
	if err := s.validateConfig(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	committer, _ := s.dyn.(Committer)

	for step := 0; t < cfg.Duration-dt/2; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)

		if !callback(x, u, t) {
			return nil
		}

		res, _ := advance(s.integrator, s.dyn, x, u, t, dt)
		if !res.Success {
			return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: stepError(res)}
		}
		if committer != nil {
			if err := committer.Commit(res.State, u, t+dt, dt); err != nil {
				return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: err}
			}
		}
		x = res.State
		t += dt
	}

	return nil
}
