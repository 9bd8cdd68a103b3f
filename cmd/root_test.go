package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionsim/optionsim/sim"
)

const quotesCSV = `symbol,underlying,quote_date,bid,ask
SPX-C,SPX,2016-01-04,9.90,10.10
SPX-C,SPX,2016-01-05,10.90,11.10
SPX-C,SPX,2016-01-06,11.90,12.10
SPX-C,SPX,2016-01-07,12.90,13.10
`

// writeBacktest writes a quotes CSV and a config pointing at it, returning the
// config path.
func writeBacktest(t *testing.T, strategyYAML string) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "quotes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(quotesCSV), 0o600))
	cfg := fmt.Sprintf("data:\n  locator: csv://%s\n%s\nbroker:\n  initial_cash: 5000\n", csvPath, strategyYAML)
	cfgPath := filepath.Join(dir, "backtest.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func TestRunBacktest_Interval_EndToEnd(t *testing.T) {
	// GIVEN an interval strategy swept over every=[1, 2] with cash for four
	// contracts at these marks
	cfg, err := LoadBacktestConfig(writeBacktest(t, `strategy:
  name: interval
  params:
    symbol: SPX-C
    every: [1, 2]`))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	// WHEN the backtest runs
	results, recorders, err := runBacktest(context.Background(), cfg, reg)
	require.NoError(t, err)

	// THEN both scenarios stop and each saw all four data events
	require.Len(t, results, 2)
	require.Len(t, recorders, 2)
	for _, res := range results {
		assert.Equal(t, sim.StateStopped, res.State, "err: %v", res.Err)
		assert.Equal(t, 4, res.Dispatched[sim.KindData])
	}

	// AND every=1 buys on all four days (4600 of 5000 spent) while every=2
	// buys twice; each order journals an open and a fill
	assert.Len(t, recorders[0].Events(), 8)
	assert.Len(t, recorders[1].Events(), 4)
	assert.Equal(t, 2.0, counterTotal(t, reg, "optionsim_scenarios_total"))
	series, err := testutil.GatherAndCount(reg, "optionsim_advances_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

// counterTotal sums every series of the named counter family.
func counterTotal(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRunBacktest_UnknownStrategy(t *testing.T) {
	cfg, err := LoadBacktestConfig(writeBacktest(t, "strategy:\n  name: nope"))
	require.NoError(t, err)
	_, _, err = runBacktest(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestRunBacktest_BadLocator_FailsScenarios(t *testing.T) {
	// GIVEN a locator that cannot be opened
	cfg, err := parseBacktestConfig([]byte("data: {locator: quotes.parquet}\nstrategy:\n  name: buy-and-hold\n  params: {symbol: SPX-C}\n"))
	require.NoError(t, err)

	// WHEN run
	results, _, err := runBacktest(context.Background(), cfg, nil)

	// THEN the run itself succeeds but the scenario fails at venue construction
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sim.StateFailed, results[0].State)
	assert.ErrorContains(t, results[0].Err, "build venue")
}

func TestRunCmd_PrintsResultsAndWritesMetrics(t *testing.T) {
	// GIVEN a buy-and-hold config and a metrics output path
	cfgPath := writeBacktest(t, "strategy:\n  name: buy-and-hold\n  params: {symbol: SPX-C, quantity: [1, 2]}")
	metricsOut := filepath.Join(t.TempDir(), "metrics.prom")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--metrics-out", metricsOut, "--workers", "2"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		metricsPath, workers = "", 0
	})

	// WHEN the run command executes
	require.NoError(t, rootCmd.Execute())

	// THEN one result line per scenario is printed
	text := out.String()
	assert.Contains(t, text, "=== Backtest Results ===")
	assert.Contains(t, text, "#0 {symbol:SPX-C, quantity:1} stopped")
	assert.Contains(t, text, "#1 {symbol:SPX-C, quantity:2} stopped")
	assert.Contains(t, text, "fills=1")

	// AND the metrics file holds the engine collectors
	data, err := os.ReadFile(metricsOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), `optionsim_scenarios_total{state="stopped"} 2`)
	assert.Contains(t, string(data), "optionsim_events_dispatched_total")
}

func TestRunCmd_InvalidLogLevel(t *testing.T) {
	rootCmd.SetArgs([]string{"run", "--log", "loud"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		logLevel = "error"
	})
	assert.Error(t, rootCmd.Execute())
}
