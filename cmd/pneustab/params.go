package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/pneustab/internal/config"
)

func parseParam(kv string) (string, float64, error) {
	name, raw, ok := strings.Cut(kv, "=")
	if !ok {
		return "", 0, fmt.Errorf("parameter %q: want name=value", kv)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("parameter %q: %w", kv, err)
	}
	return strings.TrimSpace(name), value, nil
}

// parseRange reads "min:max" or a comma separated list.
func parseRange(s string, steps int) ([]float64, error) {
	if lo, hi, ok := strings.Cut(s, ":"); ok {
		a, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, err
		}
		if steps < 2 {
			return []float64{a, b}, nil
		}
		out := make([]float64, steps)
		for i := range out {
			out[i] = a + (b-a)*float64(i)/float64(steps-1)
		}
		return out, nil
	}

	var out []float64
	for _, part := range strings.Split(s, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-12s %s on %s, %s\n", name, p.Integrator, p.Scenario, p.Policy)
			}
			return nil
		},
	}
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "list tunable parameters, integrators, policies and scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("parameters:")
			for _, name := range config.ParamNames() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Printf("\nintegrators: %s\n", strings.Join(reg.ListIntegrators(), ", "))
			fmt.Printf("policies:    %s\n", strings.Join(reg.ListPolicies(), ", "))
			fmt.Printf("scenarios:   %s\n", strings.Join(reg.ListScenarios(), ", "))
			return nil
		},
	}
}
