package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Builder creates an independent simulator and initial state for one
// realization. The seed selects, for example, the random road track.
type Builder func(seed int64) (*Simulator, dynamo.State, error)

// Ensemble runs numRuns realizations of a scenario concurrently.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart int64
	Workers   int
}

func NewEnsemble(build Builder, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart, Workers: runtime.NumCPU()}
}

// Run returns one result per seed, in seed order. The first error aborts
// the whole ensemble.
func (e *Ensemble) Run(ctx context.Context, cfg dynamo.Config) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)
	errs := make([]error, e.numRuns)

	dynamo.ParallelFor(e.numRuns, 1, e.Workers, func(start, end int) {
		for idx := start; idx < end; idx++ {
			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			sim, x0, err := e.build(cfgCopy.Seed)
			if err != nil {
				errs[idx] = err
				continue
			}
			results[idx], errs[idx] = sim.Run(ctx, x0, cfgCopy)
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
