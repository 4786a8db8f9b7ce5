package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/road"
)

type failingIntegrator struct{}

func (failingIntegrator) Name() string { return "broken" }

func (failingIntegrator) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t0, dt float64) dynamo.StepResult {
	return dynamo.Failed(t0, 0, &dynamo.IntegrationFailure{Method: "broken", Time: t0, Dt: dt, Err: dynamo.ErrSingularSystem})
}

func newSession(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel))}, opts...)
	s, err := NewSession(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_InitialSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = physics.BodyState{Roll: 0.01}
	s := newSession(t, cfg)

	assert.Equal(t, StatusIdle, s.Status())
	snap, ok := s.LatestSnapshot()
	require.True(t, ok)
	assert.Equal(t, 0, snap.Step)
	assert.Equal(t, 0.01, snap.Body.Roll)
	assert.Equal(t, snap, s.LastCommitted())
	for i, line := range snap.Lines {
		assert.Positive(t, line.Volume, "line %d volume", i)
		assert.Positive(t, line.Mass, "line %d mass", i)
		assert.InEpsilon(t, line.Mass, cfg.Params.Pneumatics.Gas.Mass(line.Pressure, line.Temperature, line.Volume), 1e-9)
	}

	_, ok = s.LatestSnapshot()
	assert.False(t, ok, "nothing new was committed")
}

func TestSession_TickPublishesLatestOnly(t *testing.T) {
	s := newSession(t, DefaultConfig())
	_, _ = s.LatestSnapshot()

	require.NoError(t, s.Tick(10))

	snap, ok := s.LatestSnapshot()
	require.True(t, ok)
	assert.Equal(t, 10, snap.Step)
	assert.InDelta(t, 0.01, snap.Time, 1e-12)
	assert.Equal(t, "radau5", snap.Method)
	assert.Equal(t, uint64(9), s.DroppedSnapshots())
	assert.Equal(t, 10, s.Performance().Steps)
}

func TestSession_SettersApplyAtTickBoundary(t *testing.T) {
	s := newSession(t, DefaultConfig())

	require.NoError(t, s.SetValves(pneumo.ValveCommand{{Tank: 0.5}}))
	assert.False(t, s.LastCommitted().Valves.AnyOpen(), "queued command must not act before the next tick")

	require.NoError(t, s.Tick(1))
	snap := s.LastCommitted()
	assert.Equal(t, 0.5, snap.Valves[0].Tank)
	assert.Positive(t, snap.Lines[0].NetFlow, "gas flows from the receiver into A1")

	require.NoError(t, s.SetValvePolicy(control.NewClosed()))
	require.NoError(t, s.Tick(1))
	assert.False(t, s.LastCommitted().Valves.AnyOpen())
}

func TestSession_SetterValidation(t *testing.T) {
	s := newSession(t, DefaultConfig())

	assert.ErrorIs(t, s.SetRoad(road.Spec{Kind: road.KindSine, Amplitude: 0.01, Frequency: 1}), dynamo.ErrConfiguration)
	assert.ErrorIs(t, s.SetReceiverVolume(-1), dynamo.ErrConfiguration)
	assert.ErrorIs(t, s.SetValvePolicy(nil), dynamo.ErrConfiguration)

	body := physics.DefaultBodyParams()
	body.PitchInertia = 0
	assert.ErrorIs(t, s.SetGeometry(body), dynamo.ErrConfiguration)
}

func TestSession_ReceiverVolume(t *testing.T) {
	cfg := DefaultConfig()
	s := newSession(t, cfg)

	// fixed-volume receiver: the command is rejected at the boundary and the tick still commits
	require.NoError(t, s.SetReceiverVolume(0.01))
	require.NoError(t, s.Tick(1))
	assert.Equal(t, cfg.Params.Pneumatics.Receiver.Volume, s.LastCommitted().Receiver.Volume)

	cfg.Params.Pneumatics.Receiver.VariableVolume = true
	s = newSession(t, cfg)
	before := s.LastCommitted().Receiver
	require.NoError(t, s.SetReceiverVolume(0.01))
	require.NoError(t, s.Tick(1))

	after := s.LastCommitted().Receiver
	assert.Equal(t, 0.01, after.Volume)
	assert.Greater(t, after.Pressure, before.Pressure)
	assert.Greater(t, after.Temperature, before.Temperature)
}

func TestSession_SetRoadAndGeometry(t *testing.T) {
	s := newSession(t, DefaultConfig())
	require.NoError(t, s.Tick(5))

	spec, err := road.Scenario("speed_bump")
	require.NoError(t, err)
	spec.Position = 0.01
	require.NoError(t, s.SetRoad(spec))

	body := physics.DefaultBodyParams()
	body.Mass = 1800
	require.NoError(t, s.SetGeometry(body))

	require.NoError(t, s.Tick(20))
	snap := s.LastCommitted()
	assert.Positive(t, snap.Excitation[dynamo.FrontLeft], "bump under the front wheels")
	assert.Zero(t, snap.Excitation[dynamo.RearLeft])
}

func TestSession_ResetRestoresInitialState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = physics.BodyState{Heave: 0.01, Roll: 0.005}
	s := newSession(t, cfg)
	initial := s.LastCommitted()

	require.NoError(t, s.SetValves(pneumo.ValveCommand{{Atmosphere: 1}}))
	require.NoError(t, s.Tick(20))
	require.NotEqual(t, initial.Step, s.LastCommitted().Step)

	require.NoError(t, s.SetValves(pneumo.ValveCommand{{Tank: 1}}))
	require.NoError(t, s.Reset())

	if diff := cmp.Diff(initial, s.LastCommitted()); diff != "" {
		t.Errorf("snapshot after reset differs (-initial +reset):\n%s", diff)
	}
	assert.Equal(t, StatusIdle, s.Status())
	assert.Zero(t, s.Performance().Steps)
	for i, line := range s.LastCommitted().Lines {
		assert.Positive(t, line.Volume, "line %d volume", i)
		assert.Positive(t, line.Mass, "line %d mass", i)
	}

	// the queued command was dropped by the reset; the manual policy was closed
	require.NoError(t, s.Tick(1))
	assert.False(t, s.LastCommitted().Valves.AnyOpen())
}

func TestSession_HaltsAfterFailedRetry(t *testing.T) {
	s := newSession(t, DefaultConfig(), WithIntegrator(failingIntegrator{}))
	before := s.LastCommitted()

	err := s.Tick(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, dynamo.ErrSessionHalted)
	assert.ErrorIs(t, err, dynamo.ErrSingularSystem)
	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 0, simErr.Step)

	assert.Equal(t, StatusHalted, s.Status())
	assert.Equal(t, before, s.LastCommitted(), "halted session keeps the last committed snapshot")
	assert.ErrorIs(t, s.Start(), dynamo.ErrSessionHalted)
	assert.ErrorIs(t, s.Tick(1), dynamo.ErrSessionHalted)

	require.NoError(t, s.Reset())
	assert.Equal(t, StatusIdle, s.Status())
	assert.NoError(t, s.Err())
}

func TestSession_DegenerateGeometryHalts(t *testing.T) {
	s := newSession(t, DefaultConfig())
	require.NoError(t, s.Tick(2))
	before := s.LastCommitted()

	// bypass validation to reach the solver with a singular body
	s.stepMu.Lock()
	s.sys.Body.PitchInertia = 0
	s.stepMu.Unlock()

	err := s.Tick(1)
	assert.ErrorIs(t, err, dynamo.ErrSingularSystem)
	assert.Equal(t, before, s.LastCommitted())
	assert.Equal(t, StatusHalted, s.Status())
}

func TestSession_StartPauseClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = physics.BodyState{Roll: 0.005}
	s := newSession(t, cfg)

	require.NoError(t, s.Start())
	assert.Equal(t, StatusRunning, s.Status())
	assert.ErrorIs(t, s.Tick(1), dynamo.ErrSessionRunning)

	require.Eventually(t, func() bool { return s.LastCommitted().Step >= 20 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Pause())
	assert.Equal(t, StatusPaused, s.Status())
	paused := s.LastCommitted().Step
	before := s.Performance()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused, s.LastCommitted().Step, "no ticks while paused")

	perf := s.Performance()
	assert.Equal(t, paused, perf.Steps)
	assert.Positive(t, perf.MaxStep)
	assert.Equal(t, before.WallTime, perf.WallTime, "wall clock stops while paused")
	assert.Equal(t, before.RealtimeFactor, perf.RealtimeFactor)

	require.NoError(t, s.Close())
	assert.Equal(t, StatusClosed, s.Status())
	assert.ErrorIs(t, s.Start(), dynamo.ErrSessionClosed)
	assert.ErrorIs(t, s.SetValves(pneumo.ValveCommand{}), dynamo.ErrSessionClosed)
	assert.NoError(t, s.Close())
	assert.Equal(t, paused, s.LastCommitted().Step)
}

func TestSession_ConsumerSeesMonotonicTime(t *testing.T) {
	s := newSession(t, DefaultConfig())
	require.NoError(t, s.Start())

	var (
		wg   sync.WaitGroup
		seen []Snapshot
	)
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if snap, ok := s.LatestSnapshot(); ok {
				seen = append(seen, snap)
			}
			time.Sleep(3 * time.Millisecond)
		}
	}()

	require.Eventually(t, func() bool { return s.LastCommitted().Step >= 50 }, 5*time.Second, 5*time.Millisecond)
	close(stop)
	wg.Wait()
	require.NoError(t, s.Pause())

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Step, seen[i-1].Step)
		assert.Greater(t, seen[i].Time, seen[i-1].Time)
	}
}

func TestSession_ResetWhileRunning(t *testing.T) {
	s := newSession(t, DefaultConfig())
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.LastCommitted().Step >= 10 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Reset())
	assert.Equal(t, StatusRunning, s.Status())
	require.NoError(t, s.Pause())
	assert.Less(t, s.LastCommitted().Time, 5.0)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "unknown", Status(42).String())
}
