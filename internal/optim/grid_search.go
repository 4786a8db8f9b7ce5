// Package optim tunes config parameters against a run metric.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/experiment"
)

// GridSearch evaluates every combination of the candidate values and keeps
// the one with the smallest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs base with each combination. Combinations whose run fails
// are skipped; if none succeeds the last error is returned.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	reg *experiment.Registry,
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%w: %d parameters but %d ranges", dynamo.ErrConfiguration, len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if err := base.Clone().SetParam(name, 0); err != nil {
			return nil, 0, err
		}
	}

	s := &search{
		ctx:    ctx,
		base:   base,
		reg:    reg,
		metric: metricName,
		best:   math.Inf(1),
	}
	g.searchRecursive(s, 0, make(map[string]float64))

	if s.bestParams == nil {
		if s.lastErr == nil {
			s.lastErr = fmt.Errorf("no successful run reported metric %q", metricName)
		}
		return nil, 0, s.lastErr
	}
	return s.bestParams, s.best, nil
}

type search struct {
	ctx        context.Context
	base       *config.Config
	reg        *experiment.Registry
	metric     string
	best       float64
	bestParams map[string]float64
	lastErr    error
}

func (g *GridSearch) searchRecursive(s *search, depth int, current map[string]float64) {
	if s.ctx.Err() != nil {
		s.lastErr = s.ctx.Err()
		return
	}
	if depth == len(g.paramNames) {
		val, err := s.evaluate(current)
		if err != nil {
			s.lastErr = err
			return
		}
		if val < s.best {
			s.best = val
			s.bestParams = make(map[string]float64)
			for k, v := range current {
				s.bestParams[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(s, depth+1, newParams)
	}
}

func (s *search) evaluate(params map[string]float64) (float64, error) {
	cfg := s.base.Clone()
	for k, v := range params {
		if err := cfg.SetParam(k, v); err != nil {
			return 0, err
		}
	}
	exp := experiment.New(cfg, s.reg)
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	result, err := exp.Run(s.ctx)
	if err != nil {
		return 0, err
	}
	val, ok := result.Metrics[s.metric]
	if !ok {
		return 0, fmt.Errorf("metric %q not recorded", s.metric)
	}
	return val, nil
}
