package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/experiment"
	"github.com/san-kum/pneustab/internal/storage"
)

func openStore() (*storage.Store, error) {
	st := storage.New(v.GetString(config.KeyDataDir))
	return st, st.Init()
}

func runInfo(cfg *config.Config) storage.RunInfo {
	return storage.RunInfo{
		Scenario:   cfg.Scenario,
		Preset:     preset,
		Integrator: cfg.Integrator,
		Policy:     cfg.Policy,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Seed:       cfg.Seed,
	}
}

func newRunCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run an offline simulation and store the trajectory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			exp := experiment.New(cfg, reg)
			if err := exp.Setup(); err != nil {
				return err
			}

			log.Info().
				Str("scenario", cfg.Scenario).
				Str("integrator", cfg.Integrator).
				Str("policy", cfg.Policy).
				Float64("dt", cfg.Dt).
				Float64("duration", cfg.Duration).
				Msg("running simulation")
			start := time.Now()

			result, runErr := exp.Run(cmd.Context())
			elapsed := time.Since(start)
			if result == nil {
				return runErr
			}

			if save {
				st, err := openStore()
				if err != nil {
					return err
				}
				runID, err := st.Save(runInfo(cfg), result, runErr)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}

			fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
			fmt.Printf("steps: %d\n", result.StepsTaken)
			fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
			if len(result.Errors) > 0 {
				fmt.Printf("warnings: %d\n", len(result.Errors))
			}
			printMetrics(result.Metrics)
			return runErr
		},
	}
	addRunFlags(cmd)
	cmd.Flags().BoolVar(&save, "save", true, "store the run in the data directory")
	return cmd
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-16s %.6g\n", name, m[name])
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tPOLICY\tSTATUS")
			for _, run := range runs {
				status := "ok"
				if run.Error != "" {
					status = "halted"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%s\n",
					run.ID,
					run.Scenario,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.Dt,
					run.Integrator,
					run.Policy,
					status,
				)
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

// loadResult reads a stored run back into a result.
func loadResult(runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, errors.New("no data")
	}
	return meta, storage.ResultFromStates(*meta, states, times), nil
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			return storage.WriteCSV(os.Stdout, res)
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return storage.ExportJSON(os.Stdout, *meta, res)
			}
			if err := storage.ExportJSONFile(out, *meta, res); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}
