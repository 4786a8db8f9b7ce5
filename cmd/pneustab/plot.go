package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pneustab/internal/analysis"
	"github.com/san-kum/pneustab/internal/export"
)

func newPlotCmd() *cobra.Command {
	var (
		columns []string
		png     string
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run columns in the terminal or to an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = export.DefaultColumns
			}

			if png != "" {
				if err := export.SaveTimeSeries(res, meta.ID, png, columns...); err != nil {
					return err
				}
				fmt.Printf("saved %s\n", png)
				return nil
			}

			fmt.Printf("run: %s  scenario: %s  policy: %s\n\n", meta.ID, meta.Scenario, meta.Policy)
			for _, col := range columns {
				xy, err := export.Series(res, col)
				if err != nil {
					return err
				}
				data := make([]float64, len(xy))
				for i := range xy {
					data[i] = xy[i].Y
				}
				fmt.Println(asciigraph.Plot(downsample(data, 80),
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(col),
				))
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to plot (default heave,roll,pitch)")
	cmd.Flags().StringVar(&png, "png", "", "write a PNG/SVG/PDF instead of printing")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	var xCol, yCol, out string
	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = meta.ID + "_phase.png"
			}
			if err := export.SavePhase(res, meta.ID, out, xCol, yCol); err != nil {
				return err
			}
			fmt.Printf("saved %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&xCol, "x", "roll", "x-axis column")
	cmd.Flags().StringVar(&yCol, "y", "roll_rate", "y-axis column")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output image")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		column string
		band   float64
	)
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and response analysis of one column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			xy, err := export.Series(res, column)
			if err != nil {
				return err
			}
			times := make([]float64, len(xy))
			data := make([]float64, len(xy))
			for i := range xy {
				times[i], data[i] = xy[i].X, xy[i].Y
			}

			fmt.Printf("analysis: %s (%s)\n\n", meta.ID, column)
			r := analysis.Describe(times, data, band)
			fmt.Printf("mean %.4g  std %.4g  rms %.4g  peak %.4g\n", r.Mean, r.Std, r.RMS, r.Peak)
			if math.IsNaN(r.SettlingTime) {
				fmt.Printf("does not settle within ±%g\n", band)
			} else {
				fmt.Printf("settles within ±%g at %.3f s\n", band, r.SettlingTime)
			}

			spec := analysis.PowerSpectrum(data, meta.Dt)
			if len(spec.Power) < 2 {
				return nil
			}
			fmt.Println()
			fmt.Println(asciigraph.Plot(downsample(spec.Power[:len(spec.Power)/4+1], 80),
				asciigraph.Height(12),
				asciigraph.Width(80),
				asciigraph.Caption("power spectrum ("+column+")"),
			))
			fmt.Println()

			freq := spec.DominantFrequency()
			fmt.Printf("dominant frequency: %.3f hz\n", freq)
			if freq > 0 {
				fmt.Printf("period: %.3f s\n", 1.0/freq)
			}
			bands := [][2]float64{{0, 1}, {1, 4}, {4, 8}, {8, 20}}
			parts := make([]string, len(bands))
			for i, b := range bands {
				parts[i] = fmt.Sprintf("%g-%g hz: %.3g", b[0], b[1], spec.BandPower(b[0], b[1]))
			}
			fmt.Printf("band power: %s\n", strings.Join(parts, "  "))
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "roll", "column to analyze")
	cmd.Flags().Float64Var(&band, "band", 0.001, "settling band")
	return cmd
}

// downsample keeps at most n evenly spaced samples.
func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = data[i*len(data)/n]
	}
	return out
}
