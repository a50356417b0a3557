package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/workforce-sim/sim/metrics"
	"github.com/inference-sim/workforce-sim/sim/montecarlo"
	"github.com/inference-sim/workforce-sim/sim/scenario"
	"github.com/inference-sim/workforce-sim/sim/store"
)

var (
	// Scenario selection and overrides
	configPath   string // YAML or TOML scenario file; empty means the built-in default
	seed         int64  // Master seed
	replications int    // Number of replications
	horizon      int64  // Ticks per replication
	logLevel     string // Log verbosity level

	// Execution and outputs
	workers       int    // Concurrent replications
	progressEvery int    // Log progress every N replications
	dbPath        string // SQLite result store
	dbTicks       bool   // Also store per-tick series
	metricsOut    string // Prometheus text exposition file
	seriesOut     string // CSV of the mean per-tick series
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "workforce-sim",
	Short: "Monte Carlo simulator for a modeling team maintaining a backlog of models",
}

// runCmd executes the Monte Carlo experiment using the scenario and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Monte Carlo experiment",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("Unable to load scenario: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		if err := runExperiment(ctx, sc, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Experiment failed: %v", err)
		}
		logrus.Infof("Experiment complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// validateCmd loads a scenario and reports whether it is valid
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scenario %q is valid: %d deliverables, team of %d, %d replications of %d ticks\n",
			sc.Name, len(sc.BacklogNames()), sc.Staffing.TargetHeadcount, sc.Replications, sc.Horizon)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenario reads --config (or the default scenario) and applies the
// scenario flags the user set explicitly.
func loadScenario(cmd *cobra.Command) (scenario.Scenario, error) {
	sc := scenario.Default()
	if configPath != "" {
		loaded, err := scenario.Load(configPath)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.Seed = seed
	}
	if flags.Changed("replications") {
		sc.Replications = replications
	}
	if flags.Changed("horizon") {
		sc.Horizon = horizon
	}

	if err := sc.Validate(); err != nil {
		return scenario.Scenario{}, err
	}
	return sc, nil
}

// runExperiment runs sc, prints the summary to out and feeds the configured sinks.
func runExperiment(ctx context.Context, sc scenario.Scenario, out io.Writer) error {
	opts := montecarlo.Options{
		Workers:       workers,
		ProgressEvery: progressEvery,
	}

	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logrus.Warnf("closing result store: %v", err)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		header, err := db.CreateExperiment(ctx, sc)
		if err != nil {
			return err
		}
		logrus.Infof("Recording experiment %s to %s", header.ID, dbPath)
		opts.Sinks = append(opts.Sinks, store.NewSink(ctx, db, header.ID, dbTicks))
	}
	if metricsOut != "" {
		opts.Sinks = append(opts.Sinks, metrics.NewSink(metricsOut, sc.Horizon, sc.Staffing.TargetHeadcount))
	}

	exp, err := montecarlo.Run(ctx, sc, opts)
	if exp != nil {
		exp.Print(out)
	}
	if err != nil {
		return err
	}
	if seriesOut != "" {
		if err := exp.SaveSeries(seriesOut); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, replayCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Scenario file (.yaml, .yml or .toml); defaults to the built-in modeling team")
		c.Flags().Int64Var(&seed, "seed", 42, "Master seed; overrides the scenario")
		c.Flags().IntVar(&replications, "replications", 1000, "Number of replications; overrides the scenario")
		c.Flags().Int64Var(&horizon, "horizon", 1000, "Ticks (weeks) per replication; overrides the scenario")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	}

	// Execution and outputs
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent replications (0 = GOMAXPROCS)")
	runCmd.Flags().IntVar(&progressEvery, "progress-every", 0, "Log progress every N replications (0 = off)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to store replication results in")
	runCmd.Flags().BoolVar(&dbTicks, "db-ticks", false, "Also store the per-tick series of every replication")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "File to write Prometheus metrics to")
	runCmd.Flags().StringVar(&seriesOut, "series-out", "", "CSV file for the mean per-tick available/headcount series")

	// Replay
	replayCmd.Flags().IntVar(&replayIndex, "replication", 0, "Replication index to replay")
	replayCmd.Flags().StringVar(&traceLevel, "trace", "phases", "Trace level (none, staffing, phases)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}
