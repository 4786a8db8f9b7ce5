package sim

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/realtime"
)

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the driver's logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock replaces the wall clock used for pacing and performance figures.
func WithClock(c realtime.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIntegrator selects the stepper. The default is Radau IIA order 5.
func WithIntegrator(i dynamo.Integrator) Option {
	return func(s *Session) {
		if i != nil {
			s.integ = i
		}
	}
}

// WithPolicy sets the initial valve policy. The default keeps all valves closed.
func WithPolicy(p control.Policy) Option {
	return func(s *Session) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithPollInterval sets how often the driver wakes to check the clock.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.poll = d
		}
	}
}
