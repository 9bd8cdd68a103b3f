package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/optionsim/optionsim/sim"
	"github.com/optionsim/optionsim/sim/broker"
	"github.com/optionsim/optionsim/sim/datasource"
	"github.com/optionsim/optionsim/sim/strategy"
	"github.com/optionsim/optionsim/sim/trace"
)

var (
	configPath  string // Path to the backtest YAML file
	logLevel    string // Log verbosity level
	workers     int    // Scenarios run concurrently; 0 keeps the config value
	metricsPath string // File receiving Prometheus text metrics after the run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "optionsim",
	Short: "Event-driven backtester for option strategies",
}

// runCmd executes every scenario of the configured parameter grid
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := LoadBacktestConfig(configPath)
		if err != nil {
			return err
		}
		if workers > 0 {
			cfg.Engine.Workers = workers
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		results, recorders, err := runBacktest(ctx, cfg, reg)
		if err != nil {
			return err
		}
		printResults(cmd.OutOrStdout(), results, recorders)

		if metricsPath != "" {
			if err := writeMetrics(metricsPath, reg); err != nil {
				return err
			}
		}
		logrus.Info("Backtest complete.")
		return nil
	},
}

// runBacktest wires the configured data source, broker and strategy into an
// engine run. Each scenario gets its own source, broker and recorder.
func runBacktest(ctx context.Context, cfg *BacktestConfig, reg prometheus.Registerer) ([]sim.ScenarioResult, []*trace.Recorder, error) {
	factory, err := strategy.Lookup(cfg.Strategy.Name)
	if err != nil {
		return nil, nil, err
	}
	grid, err := cfg.ParamGrid()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.DataOptions()
	if err != nil {
		return nil, nil, err
	}
	brokerCfg := cfg.BrokerSettings()

	newVenue := func(q *sim.EventQueue) (sim.Venue, error) {
		src, err := datasource.Open(cfg.Data.Locator, opts)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Data.Locator, err)
		}
		return broker.New(q, src, brokerCfg), nil
	}

	var recorders []*trace.Recorder
	logJournal := sim.NewLogJournal()
	bt := sim.NewBacktest(factory, newVenue, grid,
		sim.WithWorkers(cfg.Engine.Workers),
		sim.WithMetrics(sim.NewMetrics(reg)),
		sim.WithJournalFactory(func(sc sim.Scenario) sim.Journal {
			return sim.MultiJournal{logJournal, recorders[sc.Index]}
		}),
	)
	recorders = make([]*trace.Recorder, len(bt.Scenarios))
	for i := range recorders {
		recorders[i] = trace.NewRecorder(trace.TraceLevel(cfg.Engine.Trace))
	}
	return bt.Run(ctx), recorders, nil
}

// printResults writes one line per scenario to w.
func printResults(w io.Writer, results []sim.ScenarioResult, recorders []*trace.Recorder) {
	fmt.Fprintln(w, "=== Backtest Results ===")
	for i, res := range results {
		var summary *trace.Summary
		if i < len(recorders) {
			summary = trace.Summarize(recorders[i])
		} else {
			summary = trace.Summarize(nil)
		}
		fmt.Fprintf(w, "#%d %s %s events=%d orders=%d fills=%d rejections=%d elapsed=%s",
			res.Scenario.Index, res.Scenario.Params, res.State, res.DispatchedTotal(),
			summary.Orders, summary.Fills, summary.Rejections, res.Elapsed)
		if res.Err != nil {
			fmt.Fprintf(w, " error=%q", res.Err.Error())
		}
		fmt.Fprintln(w)
	}
}

// writeMetrics dumps every gathered metric family in Prometheus text format.
func writeMetrics(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
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
	runCmd.Flags().StringVar(&configPath, "config", "backtest.yaml", "Path to the backtest YAML file")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Scenarios run concurrently (overrides engine.workers when > 0)")
	runCmd.Flags().StringVar(&metricsPath, "metrics-out", "", "Write Prometheus text metrics to this file after the run")

	rootCmd.AddCommand(runCmd)
}
