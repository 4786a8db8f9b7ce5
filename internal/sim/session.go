package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/integrators"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/realtime"
	"github.com/san-kum/pneustab/internal/road"
)

// Status is the lifecycle state of a Session.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusHalted
	StatusClosed
)

var statusNames = [...]string{"idle", "running", "paused", "halted", "closed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Config holds everything a session is built from. Reset returns to it.
type Config struct {
	Params  physics.Params             `yaml:"vehicle"`
	Road    road.Spec                  `yaml:"road"`
	Timing  realtime.AccumulatorConfig `yaml:"timing"`
	Initial physics.BodyState          `yaml:"initial"`
}

func DefaultConfig() Config {
	flat, _ := road.Scenario("flat")
	return Config{
		Params: physics.DefaultParams(),
		Road:   flat,
		Timing: realtime.DefaultAccumulatorConfig(),
	}
}

type command struct {
	name  string
	apply func(*Session) error
}

// Session is one running stabilizer simulation. All methods are safe for
// concurrent use.
type Session struct {
	cfg   Config
	dt    float64
	log   zerolog.Logger
	clock realtime.Clock
	integ dynamo.Integrator
	poll  time.Duration

	// mu serializes lifecycle calls.
	mu     sync.Mutex
	status atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}

	// stepMu guards the physics state; a tick holds it from start to commit.
	stepMu      sync.Mutex
	sys         *physics.Stabilizer
	baseRoad    *road.Input
	roadSpec    road.Spec
	roadStart   float64
	policy      control.Policy
	x           dynamo.State
	u           dynamo.Control
	t           float64
	step        int
	method      string
	retries     int
	warnings    int
	lastWarning string
	overLimit   bool

	cmdMu   sync.Mutex
	pending []command

	acc   *realtime.TimingAccumulator
	perf  *realtime.PerformanceMetrics
	queue *realtime.LatestOnly[Snapshot]

	lastMu    sync.RWMutex
	committed Snapshot
	haltErr   error
}

// NewSession validates cfg, primes the road and publishes the initial
// snapshot. The driver is not started.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		dt:     cfg.Timing.Dt,
		log:    zerolog.Nop(),
		clock:  time.Now,
		integ:  integrators.NewRadau5(),
		poll:   time.Millisecond,
		policy: control.NewClosed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Params.Body.Validate(); err != nil {
		return nil, err
	}
	in, err := buildRoad(cfg.Road, cfg.Params.Body.Wheelbase())
	if err != nil {
		return nil, err
	}
	s.baseRoad = in

	acc, err := realtime.NewTimingAccumulator(cfg.Timing, s.clock)
	if err != nil {
		return nil, err
	}
	s.acc = acc
	s.perf = realtime.NewPerformanceMetrics(s.dt, s.clock)
	s.queue = realtime.NewLatestOnly[Snapshot]()

	if err := s.restore(); err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("integrator", s.integ.Name()).
		Str("policy", s.policy.Name()).
		Float64("dt", s.dt).
		Str("road", string(cfg.Road.Kind)).
		Msg("session created")
	return s, nil
}

// restore rebuilds the physics state from the session config.
func (s *Session) restore() error {
	sys, err := physics.NewStabilizer(s.cfg.Params, s.baseRoad)
	if err != nil {
		return err
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.sys = sys
	s.roadSpec = s.cfg.Road
	s.roadStart = 0
	s.policy.Reset()
	s.x = sys.InitialState(s.cfg.Initial)
	s.u = pneumo.ValveCommand{}.Control()
	// A zero-length commit fills in the line states for the first snapshot.
	if err := sys.Commit(s.x, s.u, 0, 0); err != nil {
		return err
	}
	s.t = 0
	s.step = 0
	s.method = ""
	s.retries = 0
	s.warnings = 0
	s.lastWarning = ""
	s.overLimit = false
	s.publish(s.snapshotLocked())
	return nil
}

func (s *Session) Config() Config { return s.cfg }

func (s *Session) Status() Status { return Status(s.status.Load()) }

// Start launches the physics driver. Wall time spent paused is not caught up.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.Status() {
	case StatusRunning:
		return nil
	case StatusClosed:
		return dynamo.ErrSessionClosed
	case StatusHalted:
		return s.Err()
	}
	s.acc.Reset()
	s.perf.Resume()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status.Store(int32(StatusRunning))
	go s.run(ctx, s.done)
	s.log.Info().Str("integrator", s.integ.Name()).Float64("dt", s.dt).Msg("session started")
	return nil
}

// Pause stops the driver after the tick in progress and waits for it.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == StatusClosed {
		return dynamo.ErrSessionClosed
	}
	s.stopLocked()
	s.perf.Suspend()
	if s.status.CompareAndSwap(int32(StatusRunning), int32(StatusPaused)) {
		s.log.Info().Float64("t", s.LastCommitted().Time).Msg("session paused")
	}
	return nil
}

func (s *Session) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Reset restores the configured defaults, drops queued commands and clears
// a halt. A running session keeps running from the initial state.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.Status()
	if status == StatusClosed {
		return dynamo.ErrSessionClosed
	}
	s.stopLocked()

	s.cmdMu.Lock()
	dropped := len(s.pending)
	s.pending = nil
	s.cmdMu.Unlock()

	if err := s.restore(); err != nil {
		return err
	}
	s.lastMu.Lock()
	s.haltErr = nil
	s.lastMu.Unlock()
	s.perf.Reset()
	s.acc.Reset()
	s.status.Store(int32(StatusIdle))
	s.log.Info().Int("dropped_commands", dropped).Msg("session reset")

	if status == StatusRunning {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		s.status.Store(int32(StatusRunning))
		go s.run(ctx, s.done)
	}
	return nil
}

// Close stops the driver for good. The last snapshot stays readable.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == StatusClosed {
		return nil
	}
	s.stopLocked()
	s.perf.Suspend()
	s.status.Store(int32(StatusClosed))
	s.log.Info().Msg("session closed")
	return nil
}

// Tick advances n ticks on the caller's goroutine. The driver must not be
// running.
func (s *Session) Tick(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.Status() {
	case StatusRunning:
		return dynamo.ErrSessionRunning
	case StatusClosed:
		return dynamo.ErrSessionClosed
	case StatusHalted:
		return s.Err()
	}
	for i := 0; i < n; i++ {
		if err := s.tick(); err != nil {
			s.halt(err)
			s.status.Store(int32(StatusHalted))
			return s.Err()
		}
	}
	return nil
}

// LatestSnapshot returns the newest snapshot not yet taken by any consumer.
// It never blocks; ok is false when nothing new was committed.
func (s *Session) LatestSnapshot() (Snapshot, bool) {
	return s.queue.Get()
}

// LastCommitted returns the snapshot of the most recent committed tick,
// whether or not a consumer has taken it.
func (s *Session) LastCommitted() Snapshot {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.committed
}

// Err returns the failure that halted the session, wrapping ErrSessionHalted.
func (s *Session) Err() error {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.haltErr
}

func (s *Session) Performance() realtime.PerformanceSummary { return s.perf.Summary() }

// DroppedSnapshots counts snapshots overwritten before a consumer took them.
func (s *Session) DroppedSnapshots() uint64 { return s.queue.Dropped() }

func (s *Session) publish(snap Snapshot) {
	s.lastMu.Lock()
	s.committed = snap
	s.lastMu.Unlock()
	s.queue.Put(snap)
}

func (s *Session) halt(err error) {
	s.perf.Suspend()
	s.lastMu.Lock()
	s.haltErr = fmt.Errorf("%w: %w", dynamo.ErrSessionHalted, err)
	s.lastMu.Unlock()
	s.log.Error().Err(err).Float64("t", s.LastCommitted().Time).Msg("session halted")
}
