package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/road"
	"github.com/san-kum/pneustab/internal/sim"
)

// Experiment is one offline run assembled from a config.
type Experiment struct {
	cfg       *config.Config
	reg       *Registry
	sys       *physics.Stabilizer
	simulator *sim.Simulator
	x0        dynamo.State
}

func New(cfg *config.Config, reg *Registry) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Experiment{cfg: cfg, reg: reg}
}

// Setup validates the config and builds the road, the stabilizer, the
// integrator, the policy and the default metrics.
func (e *Experiment) Setup() error {
	sys, simulator, x0, err := e.build(e.cfg.Seed)
	if err != nil {
		return err
	}
	e.sys, e.simulator, e.x0 = sys, simulator, x0
	return nil
}

func (e *Experiment) build(seed int64) (*physics.Stabilizer, *sim.Simulator, dynamo.State, error) {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	integ, err := e.reg.Integrator(cfg.Integrator, cfg.Solver)
	if err != nil {
		return nil, nil, nil, err
	}
	policy, err := e.reg.Policy(cfg.Policy, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	spec, err := cfg.RoadSpec()
	if err != nil {
		return nil, nil, nil, err
	}
	if seed != 0 {
		spec.Seed = seed
	}
	in, err := road.NewInput(cfg.Vehicle.Body.Wheelbase())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := in.Configure(spec); err != nil {
		return nil, nil, nil, err
	}
	if err := in.Prime(); err != nil {
		return nil, nil, nil, err
	}

	sys, err := physics.NewStabilizer(cfg.Vehicle, in)
	if err != nil {
		return nil, nil, nil, err
	}
	simulator := sim.New(sys, integ, policy)
	for _, m := range e.reg.DefaultMetrics(sys) {
		simulator.AddMetric(m)
	}
	return sys, simulator, sys.InitialState(cfg.Initial), nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.x0.Clone(), e.cfg.RunConfig())
}

// Ensemble runs numRuns realizations with consecutive road seeds.
func (e *Experiment) Ensemble(ctx context.Context, numRuns int, workers int) ([]*dynamo.Result, error) {
	build := func(seed int64) (*sim.Simulator, dynamo.State, error) {
		_, s, x0, err := e.build(seed)
		return s, x0, err
	}
	ens := sim.NewEnsemble(build, numRuns, e.cfg.Seed)
	if workers > 0 {
		ens.Workers = workers
	}
	return ens.Run(ctx, e.cfg.RunConfig())
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

// System returns the stabilizer built by Setup.
func (e *Experiment) System() *physics.Stabilizer {
	return e.sys
}

// NewSession builds a live session from cfg with the named integrator and
// policy.
func NewSession(cfg *config.Config, reg *Registry, opts ...sim.Option) (*sim.Session, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := reg.Integrator(cfg.Integrator, cfg.Solver)
	if err != nil {
		return nil, err
	}
	policy, err := reg.Policy(cfg.Policy, cfg)
	if err != nil {
		return nil, err
	}
	sc, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}
	all := append([]sim.Option{sim.WithIntegrator(integ), sim.WithPolicy(policy)}, opts...)
	return sim.NewSession(sc, all...)
}
