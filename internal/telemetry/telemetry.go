// Package telemetry exports live session diagnostics as Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/realtime"
	"github.com/san-kum/pneustab/internal/sim"
)

// Source is the read-only view of a session the collector samples.
type Source interface {
	Status() sim.Status
	LastCommitted() sim.Snapshot
	Performance() realtime.PerformanceSummary
	DroppedSnapshots() uint64
}

// Collector bundles the session gauges and serves them over HTTP.
type Collector struct {
	gatherer prometheus.Gatherer

	SimTime          prometheus.Gauge
	Steps            prometheus.Gauge
	RealtimeFactor   prometheus.Gauge
	AvgStepSeconds   prometheus.Gauge
	MaxStepSeconds   prometheus.Gauge
	DroppedSnapshots prometheus.Gauge
	Retries          prometheus.Gauge
	Warnings         prometheus.Gauge
	Running          prometheus.Gauge
	CumulativeFlow   prometheus.Gauge
	ExhaustedMass    prometheus.Gauge

	Body          *prometheus.GaugeVec
	Energy        *prometheus.GaugeVec
	LinePressure  *prometheus.GaugeVec
	LineTemp      *prometheus.GaugeVec
	ValveOpening  *prometheus.GaugeVec
	ReceiverState *prometheus.GaugeVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.SimTime, "pneustab_sim_time_seconds", "Simulation time of the last committed tick."},
		{&c.Steps, "pneustab_steps", "Committed physics steps."},
		{&c.RealtimeFactor, "pneustab_realtime_factor", "Simulation seconds per wall second."},
		{&c.AvgStepSeconds, "pneustab_step_duration_avg_seconds", "Mean wall time of one physics step."},
		{&c.MaxStepSeconds, "pneustab_step_duration_max_seconds", "Longest wall time of one physics step."},
		{&c.DroppedSnapshots, "pneustab_dropped_snapshots", "Snapshots overwritten before a consumer took them."},
		{&c.Retries, "pneustab_step_retries", "Ticks that needed the half-step retry."},
		{&c.Warnings, "pneustab_divergence_warnings", "Divergence warnings raised by the driver."},
		{&c.Running, "pneustab_running", "1 while the driver is running."},
		{&c.CumulativeFlow, "pneustab_cumulative_flow_kg", "Total gas mass moved through the valves."},
		{&c.ExhaustedMass, "pneustab_exhausted_mass_kg", "Gas mass vented to atmosphere."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	vecs := []struct {
		dst   **prometheus.GaugeVec
		name  string
		help  string
		label string
	}{
		{&c.Body, "pneustab_body", "Body coordinates and rates (m, rad, m/s, rad/s).", "coordinate"},
		{&c.Energy, "pneustab_energy_joules", "Stored energy by component.", "component"},
		{&c.LinePressure, "pneustab_line_pressure_pascals", "Absolute line pressure.", "line"},
		{&c.LineTemp, "pneustab_line_temperature_kelvin", "Line gas temperature.", "line"},
		{&c.ValveOpening, "pneustab_valve_opening", "Valve opening fraction.", "valve"},
		{&c.ReceiverState, "pneustab_receiver", "Receiver pressure (Pa), temperature (K) and volume (m3).", "quantity"},
	}
	for _, v := range vecs {
		vec, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: v.name, Help: v.help}, []string{v.label}), v.name)
		if err != nil {
			return nil, err
		}
		*v.dst = vec
	}
	return c, nil
}

// Observe copies one snapshot and the performance summary into the gauges.
func (c *Collector) Observe(snap sim.Snapshot, perf realtime.PerformanceSummary, dropped uint64, running bool) {
	if c == nil {
		return
	}
	c.SimTime.Set(snap.Time)
	c.Steps.Set(float64(snap.Step))
	c.RealtimeFactor.Set(perf.RealtimeFactor)
	c.AvgStepSeconds.Set(perf.AvgStep.Seconds())
	c.MaxStepSeconds.Set(perf.MaxStep.Seconds())
	c.DroppedSnapshots.Set(float64(dropped))
	c.Retries.Set(float64(snap.Diag.Retries))
	c.Warnings.Set(float64(snap.Diag.Warnings))
	c.CumulativeFlow.Set(snap.Diag.CumulativeFlow)
	c.ExhaustedMass.Set(snap.Diag.ExhaustedMass)
	if running {
		c.Running.Set(1)
	} else {
		c.Running.Set(0)
	}

	b := snap.Body
	c.Body.WithLabelValues("heave").Set(b.Heave)
	c.Body.WithLabelValues("roll").Set(b.Roll)
	c.Body.WithLabelValues("pitch").Set(b.Pitch)
	c.Body.WithLabelValues("heave_rate").Set(b.HeaveRate)
	c.Body.WithLabelValues("roll_rate").Set(b.RollRate)
	c.Body.WithLabelValues("pitch_rate").Set(b.PitchRate)

	e := snap.Diag.Energy
	c.Energy.WithLabelValues("kinetic").Set(e.Kinetic)
	c.Energy.WithLabelValues("potential").Set(e.Potential)
	c.Energy.WithLabelValues("pneumatic").Set(e.Pneumatic)
	c.Energy.WithLabelValues("total").Set(e.Total)

	for i, line := range pneumo.Topology {
		c.LinePressure.WithLabelValues(line.Name).Set(snap.Lines[i].Pressure)
		c.LineTemp.WithLabelValues(line.Name).Set(snap.Lines[i].Temperature)
		c.ValveOpening.WithLabelValues(line.Name + "_atmosphere").Set(snap.Valves[i].Atmosphere)
		c.ValveOpening.WithLabelValues(line.Name + "_tank").Set(snap.Valves[i].Tank)
	}
	c.ReceiverState.WithLabelValues("pressure").Set(snap.Receiver.Pressure)
	c.ReceiverState.WithLabelValues("temperature").Set(snap.Receiver.Temperature)
	c.ReceiverState.WithLabelValues("volume").Set(snap.Receiver.Volume)
}

// Sample reads src once. It uses LastCommitted so that it never competes
// with the dashboard for the latest-only queue.
func (c *Collector) Sample(src Source) {
	c.Observe(src.LastCommitted(), src.Performance(), src.DroppedSnapshots(), src.Status() == sim.StatusRunning)
}

// Watch samples src every interval until ctx is done.
func (c *Collector) Watch(ctx context.Context, src Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.Sample(src)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve listens on addr with /metrics until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("telemetry listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
