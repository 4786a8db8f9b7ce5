package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/experiment"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/storage"
)

// Batch defines a scripted set of runs.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Preset      string      `yaml:"preset"`
	Steps       []BatchStep `yaml:"steps"`
}

// BatchStep overrides the batch base config for one run. Zero values keep
// the base setting.
type BatchStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Scenario   string             `yaml:"scenario"`
	Integrator string             `yaml:"integrator"`
	Policy     string             `yaml:"policy"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Seed       int64              `yaml:"seed"`
	Initial    *physics.BodyState `yaml:"initial"`
	Params     map[string]float64 `yaml:"params"`
	Save       bool               `yaml:"save"`
}

// LoadBatch loads a batch from a YAML file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	if len(batch.Steps) == 0 {
		return nil, fmt.Errorf("%w: batch %q has no steps", dynamo.ErrConfiguration, batch.Name)
	}
	return &batch, nil
}

// Config resolves the full run config of one step.
func (b *Batch) Config(step BatchStep) (*config.Config, error) {
	preset := step.Preset
	if preset == "" {
		preset = b.Preset
	}
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrConfiguration, preset)
		}
	}
	if step.Scenario != "" {
		cfg.Scenario = step.Scenario
	}
	if step.Integrator != "" {
		cfg.Integrator = step.Integrator
	}
	if step.Policy != "" {
		cfg.Policy = step.Policy
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	if step.Seed != 0 {
		cfg.Seed = step.Seed
	}
	if step.Initial != nil {
		cfg.Initial = *step.Initial
	}
	for k, v := range step.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Options tune RunBatch. A nil Store disables saving.
type Options struct {
	Registry *experiment.Registry
	Store    *storage.Store
	Workers  int
	Log      zerolog.Logger
}

// Outcome is the result of one batch step.
type Outcome struct {
	Step   string
	Result *dynamo.Result
	RunID  string
	Err    error
}

// RunBatch executes all steps, in parallel up to opts.Workers. A failing
// step does not stop the others; its error is reported in its Outcome.
func RunBatch(ctx context.Context, batch *Batch, opts Options) []Outcome {
	if opts.Registry == nil {
		opts.Registry = experiment.NewRegistry()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Outcome, len(batch.Steps))
	dynamo.ParallelFor(len(batch.Steps), 1, workers, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = runStep(ctx, batch, i, opts)
		}
	})
	return out
}

func runStep(ctx context.Context, batch *Batch, i int, opts Options) Outcome {
	step := batch.Steps[i]
	name := step.Name
	if name == "" {
		name = fmt.Sprintf("step-%d", i+1)
	}
	o := Outcome{Step: name}
	log := opts.Log.With().Str("batch", batch.Name).Str("step", name).Logger()

	cfg, err := batch.Config(step)
	if err != nil {
		o.Err = fmt.Errorf("%s: %w", name, err)
		return o
	}
	exp := experiment.New(cfg, opts.Registry)
	if err := exp.Setup(); err != nil {
		o.Err = fmt.Errorf("%s setup: %w", name, err)
		return o
	}

	start := time.Now()
	o.Result, err = exp.Run(ctx)
	if err != nil {
		o.Err = fmt.Errorf("%s run: %w", name, err)
	}
	log.Info().Dur("elapsed", time.Since(start)).Err(err).Msg("batch step finished")

	if step.Save && opts.Store != nil && o.Result != nil {
		info := storage.RunInfo{
			Scenario:   cfg.Scenario,
			Preset:     step.Preset,
			Integrator: cfg.Integrator,
			Policy:     cfg.Policy,
			Dt:         cfg.Dt,
			Duration:   cfg.Duration,
			Seed:       cfg.Seed,
		}
		id, serr := opts.Store.Save(info, o.Result, err)
		if serr != nil {
			log.Error().Err(serr).Msg("save failed")
		}
		o.RunID = id
	}
	return o
}

// ParameterSweep runs one config across a range of a named parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the metrics of one sweep point.
type SweepResult struct {
	ParamValue  float64
	Metrics     map[string]float64
	EnergyDrift float64
	Warnings    int
	Err         error
}

// RunSweep executes a parameter sweep. Points whose config is invalid or
// whose run fails are reported with Err set.
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry, log zerolog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, dynamo.NewConfigError("sweep.steps", float64(sweep.NumSteps), "must be at least 2")
	}
	if err := sweep.Base.Clone().SetParam(sweep.ParamName, sweep.ParamMin); err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		paramVal := sweep.ParamMin + float64(i)*paramStep
		cfg := sweep.Base.Clone()
		_ = cfg.SetParam(sweep.ParamName, paramVal)

		sr := SweepResult{ParamValue: paramVal}
		exp := experiment.New(cfg, reg)
		if err := exp.Setup(); err != nil {
			sr.Err = err
		} else {
			res, err := exp.Run(ctx)
			sr.Err = err
			if res != nil {
				sr.Metrics = res.Metrics
				sr.EnergyDrift = res.EnergyDrift
				sr.Warnings = countWarnings(res)
			}
		}
		results = append(results, sr)

		log.Info().Int("point", i+1).Int("of", sweep.NumSteps).
			Str("param", sweep.ParamName).Float64("value", paramVal).Err(sr.Err).Msg("sweep")
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial body state of a base config.
type MonteCarloConfig struct {
	Base *config.Config
	// Perturbation is the half-width of the uniform perturbation applied
	// to heave (m), roll and pitch (rad).
	Perturbation physics.BodyState
	NumTrials    int
	Seed         int64
	Workers      int
}

// MonteCarloResult holds the outcome of one trial.
type MonteCarloResult struct {
	TrialID   int
	Initial   physics.BodyState
	Final     physics.BodyState
	PeakAngle float64
	// Stable is true when the run completed without divergence warnings.
	Stable bool
	Err    error
}

// RunMonteCarlo executes the trials concurrently. Trial inputs are drawn
// up front so results do not depend on scheduling.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, reg *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, dynamo.NewConfigError("monte_carlo.trials", float64(cfg.NumTrials), "must be at least 1")
	}
	if reg == nil {
		reg = experiment.NewRegistry()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	results := make([]MonteCarloResult, cfg.NumTrials)
	for i := range results {
		p := cfg.Perturbation
		b := cfg.Base.Initial
		b.Heave += (rng.Float64()*2 - 1) * p.Heave
		b.Roll += (rng.Float64()*2 - 1) * p.Roll
		b.Pitch += (rng.Float64()*2 - 1) * p.Pitch
		results[i] = MonteCarloResult{TrialID: i, Initial: b}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	dynamo.ParallelFor(len(results), 1, workers, func(start, end int) {
		for i := start; i < end; i++ {
			runTrial(ctx, cfg.Base, reg, &results[i])
		}
	})
	return results, ctx.Err()
}

func runTrial(ctx context.Context, base *config.Config, reg *experiment.Registry, r *MonteCarloResult) {
	cfg := base.Clone()
	cfg.Initial = r.Initial
	exp := experiment.New(cfg, reg)
	if err := exp.Setup(); err != nil {
		r.Err = err
		return
	}
	res, err := exp.Run(ctx)
	r.Err = err
	if res == nil {
		return
	}
	if n := len(res.States); n > 0 {
		r.Final = physics.BodyFromState(res.States[n-1])
	}
	r.PeakAngle = res.Metrics["peak_angle"]
	r.Stable = err == nil && countWarnings(res) == 0
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

func countWarnings(res *dynamo.Result) int {
	n := 0
	for _, err := range res.Errors {
		if _, ok := err.(*dynamo.DivergenceWarning); ok {
			n++
		}
	}
	return n
}
