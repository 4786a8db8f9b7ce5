package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/experiment"
)

var (
	v   = viper.New()
	log = zerolog.Nop()
	reg = experiment.NewRegistry()

	configFile string
	preset     string
	dataDir    string
	logLevel   string
	logFile    string
	params     []string

	logOut *os.File
)

// flagKeys maps command flags onto config override keys.
var flagKeys = map[string]string{
	"integrator": config.KeyIntegrator,
	"policy":     config.KeyPolicy,
	"scenario":   config.KeyScenario,
	"dt":         config.KeyDt,
	"duration":   config.KeyDuration,
	"seed":       config.KeySeed,
	"velocity":   config.KeyVelocity,
	"data":       config.KeyDataDir,
	"telemetry":  config.KeyTelemetry,
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "pneustab",
		Short:         "pneumatic vehicle stabilizer simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for name, key := range flagKeys {
				if f := cmd.Flags().Lookup(name); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}
			return setupLogger(cmd.Name() == "live")
		},
	}

	v.SetEnvPrefix("PNEUSTAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a named preset")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newBatchCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newTuneCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newPhaseCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
		newParamsCmd(),
	)

	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintln(os.Stderr, "log file:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setupLogger builds the console logger. The live dashboard owns the
// terminal, so it only logs when a log file is given.
func setupLogger(quiet bool) error {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		return fmt.Errorf("log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	if err := closeLog(); err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	noColor := false
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logOut = f
		out, noColor = f, true
	case quiet:
		log = zerolog.Nop()
		return nil
	}

	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}).With().Timestamp().Logger()
	return nil
}

// closeLog closes the --log-file handle, if any, and silences the logger.
func closeLog() error {
	if logOut == nil {
		return nil
	}
	log = zerolog.Nop()
	err := logOut.Close()
	logOut = nil
	return err
}

// loadConfig resolves defaults, then the preset or config file, then
// flag and environment overrides, then --set parameters.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		if preset != "" {
			log.Warn().Str("preset", preset).Str("config", configFile).Msg("config file replaces preset")
		}
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	config.ApplyOverrides(cfg, v)

	for _, kv := range params {
		name, value, err := parseParam(kv)
		if err != nil {
			return nil, err
		}
		if err := cfg.SetParam(name, value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// addRunFlags registers the flags that override config keys.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("integrator", config.DefaultIntegrator, "integrator")
	f.String("policy", config.DefaultPolicy, "valve policy")
	f.String("scenario", config.DefaultScenario, "road scenario")
	f.Float64("dt", config.DefaultDt, "timestep (s)")
	f.Float64("duration", config.DefaultDuration, "simulated duration (s)")
	f.Int64("seed", 0, "road seed (0 keeps the scenario seed)")
	f.Float64("velocity", 0, "vehicle speed (m/s)")
	f.StringArrayVar(&params, "set", nil, "set a parameter, name=value (see 'params')")
}
