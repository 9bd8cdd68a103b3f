// Package testutil provides shared test infrastructure for the backtest
// packages: the golden backtest dataset and quote fixtures.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_backtests.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one single-scenario backtest with its expected outcome.
type GoldenTestCase struct {
	Name        string        `json:"name"`
	Strategy    string        `json:"strategy"`
	Params      []GoldenParam `json:"params"`
	InitialCash string        `json:"initial_cash"`
	Commission  string        `json:"commission_per_contract"`
	Quotes      []GoldenQuote `json:"quotes"`
	Expected    GoldenOutcome `json:"expected"`
}

// GoldenParam is one strategy parameter; params keep file order.
type GoldenParam struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// GoldenQuote is one quote row. Rows sharing a date form one snapshot.
type GoldenQuote struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

// GoldenOutcome holds the expected journal and account state.
type GoldenOutcome struct {
	Orders     int      `json:"orders"`
	Fills      int      `json:"fills"`
	Rejections int      `json:"rejections"`
	FinalCash  string   `json:"final_cash"`
	Lines      []string `json:"lines"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_backtests.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}
