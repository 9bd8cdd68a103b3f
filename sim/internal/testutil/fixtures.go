package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optionsim/optionsim/sim"
)

// Day returns midnight UTC on the given day of January 2016.
func Day(d int) time.Time {
	return time.Date(2016, time.January, d, 0, 0, 0, 0, time.UTC)
}

// Snapshots groups golden quote rows into chronological snapshots. Rows must
// already be sorted by date.
func Snapshots(t *testing.T, rows []GoldenQuote) []sim.Snapshot {
	t.Helper()
	var out []sim.Snapshot
	for _, r := range rows {
		ts, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			t.Fatalf("golden quote date %q: %v", r.Date, err)
		}
		q := sim.Quote{
			Symbol:     r.Symbol,
			Underlying: "SPX",
			Time:       ts,
			Bid:        decimal.RequireFromString(r.Bid),
			Ask:        decimal.RequireFromString(r.Ask),
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(ts) {
			out[n-1].Quotes = append(out[n-1].Quotes, q)
			continue
		}
		out = append(out, sim.Snapshot{Time: ts, Quotes: []sim.Quote{q}})
	}
	return out
}

// Params converts golden params to a scenario grid with one candidate each.
func Params(params []GoldenParam) *sim.ParamGrid {
	grid := sim.NewParamGrid()
	for _, p := range params {
		grid.Add(p.Name, sim.ValuesOf(p.Value))
	}
	return grid
}
