package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/experiment"
	"github.com/san-kum/pneustab/internal/sim"
	"github.com/san-kum/pneustab/internal/telemetry"
	"github.com/san-kum/pneustab/internal/viz"
)

const telemetryInterval = 250 * time.Millisecond

func newLiveCmd() *cobra.Command {
	var (
		theme    string
		paused   bool
		headless time.Duration
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run a real-time session with the terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sess, err := experiment.NewSession(cfg, reg, sim.WithLogger(log))
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if cfg.Telemetry.Enabled {
				collector, err := telemetry.NewCollector(prometheus.NewRegistry())
				if err != nil {
					return err
				}
				go collector.Watch(ctx, sess, telemetryInterval)
				go func() {
					if err := telemetry.Serve(ctx, cfg.Telemetry.Addr, collector.Handler(), log); err != nil {
						log.Error().Err(err).Msg("telemetry server stopped")
					}
				}()
			}

			if headless > 0 {
				return runHeadless(ctx, sess, headless)
			}

			if !paused {
				if err := sess.Start(); err != nil {
					return err
				}
			}
			model := viz.NewModel(sess, viz.Options{
				Theme:  theme,
				Policy: cfg.Policy,
				Body:   cfg.Vehicle.Body,
				NewPolicy: func(name string) (control.Policy, error) {
					return reg.Policy(name, cfg)
				},
				Policies: reg.ListPolicies(),
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return err
			}
			return sess.Err()
		},
	}
	addRunFlags(cmd)
	cmd.Flags().String("telemetry", "", "serve prometheus metrics on this address")
	cmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "dashboard theme")
	cmd.Flags().BoolVar(&paused, "paused", false, "open the dashboard paused")
	cmd.Flags().DurationVar(&headless, "headless", 0, "run without the dashboard for this long")
	return cmd
}

// runHeadless drives the session for d of wall time and prints the last
// committed state.
func runHeadless(ctx context.Context, sess *sim.Session, d time.Duration) error {
	if err := sess.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	if err := sess.Pause(); err != nil {
		log.Debug().Err(err).Msg("pause")
	}

	snap := sess.LastCommitted()
	perf := sess.Performance()
	fmt.Printf("t=%.3fs step=%d heave=%+.2fmm roll=%+.4f° pitch=%+.4f°\n",
		snap.Time, snap.Step, snap.Body.Heave*1000, deg(snap.Body.Roll), deg(snap.Body.Pitch))
	fmt.Printf("warnings=%d retries=%d dropped=%d\n", snap.Diag.Warnings, snap.Diag.Retries, sess.DroppedSnapshots())
	fmt.Println(perf)
	return sess.Err()
}

func deg(rad float64) float64 { return rad * 180 / 3.141592653589793 }
