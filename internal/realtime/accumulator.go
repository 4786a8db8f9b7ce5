package realtime

import (
	"math"
	"time"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Clock returns the current wall-clock time.
type Clock func() time.Time

const (
	DefaultMaxStepsPerFrame = 50
	DefaultMaxFrameTime     = 0.25
)

// AccumulatorConfig bounds the catch-up work done per checkpoint. Times are
// in seconds.
type AccumulatorConfig struct {
	Dt               float64 `yaml:"dt"`
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame"`
	MaxFrameTime     float64 `yaml:"max_frame_time"`
}

func DefaultAccumulatorConfig() AccumulatorConfig {
	return AccumulatorConfig{
		Dt:               0.001,
		MaxStepsPerFrame: DefaultMaxStepsPerFrame,
		MaxFrameTime:     DefaultMaxFrameTime,
	}
}

func (c AccumulatorConfig) Validate() error {
	if err := dynamo.RequirePositive("timing.dt", c.Dt); err != nil {
		return err
	}
	if c.MaxStepsPerFrame < 1 {
		return dynamo.NewConfigError("timing.max_steps_per_frame", float64(c.MaxStepsPerFrame), "must be at least 1")
	}
	return dynamo.RequirePositive("timing.max_frame_time", c.MaxFrameTime)
}

// TimingAccumulator converts wall-clock progress into a whole number of
// fixed physics steps. Time that cannot be caught up within the caps is
// discarded rather than carried forward.
type TimingAccumulator struct {
	cfg     AccumulatorConfig
	now     Clock
	last    time.Time
	started bool

	accumulated float64
	discarded   float64
}

// NewTimingAccumulator uses time.Now when clock is nil.
func NewTimingAccumulator(cfg AccumulatorConfig, clock Clock) (*TimingAccumulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &TimingAccumulator{cfg: cfg, now: clock}, nil
}

func (a *TimingAccumulator) Config() AccumulatorConfig { return a.cfg }

// Update reads the clock and returns the number of steps due since the
// previous call. The first call only records the reference time.
func (a *TimingAccumulator) Update() int {
	now := a.now()
	if !a.started {
		a.started = true
		a.last = now
		return 0
	}
	elapsed := now.Sub(a.last).Seconds()
	a.last = now
	return a.Advance(elapsed)
}

// Advance adds elapsed seconds of real time and returns the steps due,
// never more than MaxStepsPerFrame.
func (a *TimingAccumulator) Advance(elapsed float64) int {
	if !(elapsed > 0) || math.IsInf(elapsed, 0) {
		return 0
	}
	if elapsed > a.cfg.MaxFrameTime {
		a.discarded += elapsed - a.cfg.MaxFrameTime
		elapsed = a.cfg.MaxFrameTime
	}
	a.accumulated += elapsed

	dt := a.cfg.Dt
	steps := int(math.Floor(a.accumulated/dt + 1e-9))
	if steps > a.cfg.MaxStepsPerFrame {
		steps = a.cfg.MaxStepsPerFrame
	}
	a.accumulated -= float64(steps) * dt
	if a.accumulated < 0 {
		a.accumulated = 0
	}
	if a.accumulated >= dt {
		backlog := a.accumulated - math.Mod(a.accumulated, dt)
		a.discarded += backlog
		a.accumulated -= backlog
	}
	return steps
}

// Alpha is the fraction of a step accumulated but not yet simulated, for
// blending the last two committed states.
func (a *TimingAccumulator) Alpha() float64 {
	return a.accumulated / a.cfg.Dt
}

// Discarded is the total real time in seconds dropped by the caps.
func (a *TimingAccumulator) Discarded() float64 { return a.discarded }

// Reset forgets accumulated time; the next Update re-anchors to the clock.
func (a *TimingAccumulator) Reset() {
	a.started = false
	a.accumulated = 0
	a.discarded = 0
}
