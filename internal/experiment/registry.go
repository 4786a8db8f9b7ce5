package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/integrators"
	"github.com/san-kum/pneustab/internal/metrics"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/road"
)

// Registry maps the names used in config files and flags to constructors.
type Registry struct {
	integrators map[string]func(config.SolverConfig) dynamo.Integrator
	policies    map[string]func(*config.Config) control.Policy
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(config.SolverConfig) dynamo.Integrator),
		policies:    make(map[string]func(*config.Config) control.Policy),
	}

	implicit := func(tb integrators.Tableau) func(config.SolverConfig) dynamo.Integrator {
		return func(s config.SolverConfig) dynamo.Integrator {
			m := integrators.NewImplicit(tb)
			m.RelTol = s.RelTol
			m.AbsTol = s.AbsTol
			m.MaxNewton = s.MaxNewton
			m.MaxSubdivisions = s.MaxSubdivisions
			return m
		}
	}
	r.integrators[integrators.Radau5Tableau.Name] = implicit(integrators.Radau5Tableau)
	r.integrators[integrators.Radau3Tableau.Name] = implicit(integrators.Radau3Tableau)
	r.integrators[integrators.BDF1Tableau.Name] = implicit(integrators.BDF1Tableau)
	r.integrators["rk45"] = func(s config.SolverConfig) dynamo.Integrator {
		m := integrators.NewRK45()
		m.Tol = s.RelTol
		return m
	}
	r.integrators["rk4"] = func(config.SolverConfig) dynamo.Integrator { return integrators.NewRK4() }

	r.policies[control.NameClosed] = func(*config.Config) control.Policy { return control.NewClosed() }
	r.policies[control.NameManual] = func(*config.Config) control.Policy { return control.NewManual() }
	r.policies[control.NameLeveling] = func(c *config.Config) control.Policy { return control.NewLeveling(c.Leveling) }
	r.policies[control.NameAntiRoll] = func(c *config.Config) control.Policy { return control.NewAntiRoll(c.AntiRoll) }

	return r
}

// Integrator builds a named integrator tuned by the solver settings.
func (r *Registry) Integrator(name string, s config.SolverConfig) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrConfiguration, name)
	}
	return fn(s), nil
}

// Policy builds a named valve policy with the gains from cfg.
func (r *Registry) Policy(name string, cfg *config.Config) (control.Policy, error) {
	fn, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown valve policy %q", dynamo.ErrConfiguration, name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListPolicies() []string    { return sortedKeys(r.policies) }
func (r *Registry) ListScenarios() []string   { return road.ScenarioNames() }

// DefaultMetrics is the diagnostic set recorded for every batch run.
func (r *Registry) DefaultMetrics(sys *physics.Stabilizer) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergy(sys),
		metrics.NewEnergyDrift(sys),
		metrics.NewStability(sys.Suspension.AngleLimit),
		metrics.NewPeakAngle(),
		metrics.NewRMSHeave(),
		metrics.NewControlEffort(),
		metrics.NewDutyCycle(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
