package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pneustab/internal/automation"
	"github.com/san-kum/pneustab/internal/optim"
	"github.com/san-kum/pneustab/internal/physics"
)

func newBatchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [file.yaml]",
		Short: "run a scripted batch of simulations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := automation.LoadBatch(args[0])
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}

			log.Info().Str("batch", batch.Name).Int("steps", len(batch.Steps)).Msg("running batch")
			outcomes := automation.RunBatch(cmd.Context(), batch, automation.Options{
				Registry: reg,
				Store:    st,
				Workers:  workers,
				Log:      log,
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tSTEPS\tPEAK\tEFFORT\tRUN ID\tERROR")
			failed := 0
			for _, o := range outcomes {
				var steps int
				var peak, effort float64
				if o.Result != nil {
					steps = o.Result.StepsTaken
					peak = o.Result.Metrics["peak_angle"]
					effort = o.Result.Metrics["control_effort"]
				}
				msg := ""
				if o.Err != nil {
					msg = o.Err.Error()
					failed++
				}
				fmt.Fprintf(w, "%s\t%d\t%.4g\t%.4g\t%s\t%s\n", o.Step, steps, peak, effort, o.RunID, msg)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d steps failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses all CPUs)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		param  string
		lo, hi float64
		steps  int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and report the metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
				Base:      cfg,
				ParamName: param,
				ParamMin:  lo,
				ParamMax:  hi,
				NumSteps:  steps,
			}, reg, log)
			if err != nil {
				return err
			}

			var names []string
			for _, r := range results {
				if r.Err == nil {
					for n := range r.Metrics {
						names = append(names, n)
					}
					break
				}
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprint(w, param)
			for _, n := range names {
				fmt.Fprintf(w, "\t%s", n)
			}
			fmt.Fprintln(w, "\tWARNINGS")
			for _, r := range results {
				fmt.Fprintf(w, "%.4g", r.ParamValue)
				if r.Err != nil {
					fmt.Fprintf(w, "\terror: %v\n", r.Err)
					continue
				}
				for _, n := range names {
					fmt.Fprintf(w, "\t%.4g", r.Metrics[n])
				}
				fmt.Fprintf(w, "\t%d\n", r.Warnings)
			}
			return w.Flush()
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&param, "param", "receiver_volume", "parameter to sweep (see 'params')")
	cmd.Flags().Float64Var(&lo, "min", 0.01, "first value")
	cmd.Flags().Float64Var(&hi, "max", 0.05, "last value")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	var (
		trials  int
		workers int
		mcSeed  int64
		heave   float64
		roll    float64
		pitch   float64
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run trials from randomly perturbed initial states",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Base:         cfg,
				Perturbation: physics.BodyState{Heave: heave, Roll: roll, Pitch: pitch},
				NumTrials:    trials,
				Seed:         mcSeed,
				Workers:      workers,
			}, reg)
			if err != nil {
				return err
			}

			stable, unstable := automation.MonteCarloStats(results)
			worst := 0.0
			for _, r := range results {
				if r.Err != nil {
					log.Warn().Int("trial", r.TrialID).Err(r.Err).Msg("trial failed")
				}
				worst = math.Max(worst, r.PeakAngle)
			}
			fmt.Printf("trials: %d  stable: %d  unstable: %d\n", len(results), stable, unstable)
			fmt.Printf("worst peak angle: %.4f rad (%.2f°)\n", worst, deg(worst))
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses all CPUs)")
	cmd.Flags().Int64Var(&mcSeed, "mc-seed", 1, "seed of the perturbation draws")
	cmd.Flags().Float64Var(&heave, "heave", 0.01, "heave perturbation half-width (m)")
	cmd.Flags().Float64Var(&roll, "roll", 0.01, "roll perturbation half-width (rad)")
	cmd.Flags().Float64Var(&pitch, "pitch", 0.005, "pitch perturbation half-width (rad)")
	return cmd
}

func newTuneCmd() *cobra.Command {
	var (
		names  []string
		ranges []string
		steps  int
		metric string
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search parameters to minimize a metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(names) != len(ranges) {
				return fmt.Errorf("%d --param but %d --range", len(names), len(ranges))
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			grid := make([][]float64, len(ranges))
			for i, r := range ranges {
				if grid[i], err = parseRange(r, steps); err != nil {
					return fmt.Errorf("range %q: %w", r, err)
				}
			}

			best, value, err := optim.NewGridSearch(names, grid).Search(cmd.Context(), cfg, reg, metric)
			if err != nil {
				return err
			}
			fmt.Printf("best %s: %.6g\n", metric, value)
			for _, n := range names {
				fmt.Printf("  %s = %.6g\n", n, best[n])
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringArrayVar(&names, "param", nil, "parameter to tune (repeatable)")
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "values as min:max or a,b,c (one per --param)")
	cmd.Flags().IntVar(&steps, "steps", 3, "grid points per min:max range")
	cmd.Flags().StringVar(&metric, "metric", "peak_angle", "metric to minimize")
	return cmd
}
