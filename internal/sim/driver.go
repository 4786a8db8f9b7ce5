package sim

import (
	"context"
	"errors"
	"time"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Committer is implemented by systems that keep derived state outside the
// state vector. Commit is called once per committed tick with the end state.
type Committer interface {
	Commit(x dynamo.State, u dynamo.Control, t, dt float64) error
}

// Limiter reports bounds a committed state exceeds without invalidating it.
type Limiter interface {
	CheckLimits(x dynamo.State, t float64) []*dynamo.DivergenceWarning
}

// advance steps x by dt. A failed step is retried once as two half steps;
// retried reports whether that happened.
func advance(integ dynamo.Integrator, sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (res dynamo.StepResult, retried bool) {
	res = integ.Step(sys, x, u, t, dt)
	if res.Success {
		return res, false
	}
	nfev := res.NFev
	half := dt / 2
	first := integ.Step(sys, x, u, t, half)
	nfev += first.NFev
	if !first.Success {
		first.NFev = nfev
		return first, true
	}
	second := integ.Step(sys, first.State, u, t+half, half)
	second.NFev += nfev
	if second.Success {
		second.Time = t + dt
	}
	return second, true
}

func stepError(res dynamo.StepResult) error {
	if res.Err != nil {
		return res.Err
	}
	return errors.New(res.Message)
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.acc.Update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n := s.acc.Update()
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			if err := s.tick(); err != nil {
				s.halt(err)
				s.status.CompareAndSwap(int32(StatusRunning), int32(StatusHalted))
				return
			}
		}
	}
}

// tick runs one committed physics step: queued commands, policy, integrator,
// commit, limit checks, then publish.
func (s *Session) tick() error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.applyPending()

	u := s.policy.Compute(s.x, s.t)
	start := s.clock()
	res, retried := advance(s.integ, s.sys, s.x, u, s.t, s.dt)
	if retried {
		s.retries++
		ev := s.log.Warn().Float64("t", s.t).Str("integrator", s.integ.Name())
		if res.Success {
			ev.Msg("tick recovered with two half steps")
		} else {
			ev.Str("reason", res.Message).Msg("half-step retry failed")
		}
	}
	if !res.Success {
		return &dynamo.SimulationError{Step: s.step, Time: s.t, State: s.x.Clone(), Wrapped: stepError(res)}
	}

	t := s.t + s.dt
	if err := s.sys.Commit(res.State, u, t, s.dt); err != nil {
		return &dynamo.SimulationError{Step: s.step, Time: s.t, State: s.x.Clone(), Wrapped: err}
	}
	s.x, s.u, s.t = res.State, u, t
	s.step++
	s.method = res.Method
	s.checkLimits()

	s.perf.RecordStep(s.clock().Sub(start), s.dt)
	s.publish(s.snapshotLocked())
	return nil
}

func (s *Session) checkLimits() {
	warnings := s.sys.CheckLimits(s.x, s.t)
	if len(warnings) == 0 {
		s.overLimit = false
		return
	}
	s.warnings += len(warnings)
	s.lastWarning = warnings[len(warnings)-1].Error()
	if !s.overLimit {
		for _, w := range warnings {
			s.log.Warn().Err(w).Str("quantity", w.Quantity).Msg("state exceeds bounds")
		}
	}
	s.overLimit = true
}

func (s *Session) enqueue(name string, apply func(*Session) error) error {
	if s.Status() == StatusClosed {
		return dynamo.ErrSessionClosed
	}
	s.cmdMu.Lock()
	s.pending = append(s.pending, command{name: name, apply: apply})
	s.cmdMu.Unlock()
	return nil
}

func (s *Session) applyPending() {
	s.cmdMu.Lock()
	cmds := s.pending
	s.pending = nil
	s.cmdMu.Unlock()

	for _, c := range cmds {
		if err := c.apply(s); err != nil {
			s.log.Warn().Err(err).Str("command", c.name).Float64("t", s.t).Msg("command rejected")
			continue
		}
		s.log.Debug().Str("command", c.name).Float64("t", s.t).Msg("command applied")
	}
}
