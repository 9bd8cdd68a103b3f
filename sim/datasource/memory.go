package datasource

import (
	"context"
	"sort"

	"github.com/optionsim/optionsim/sim"
)

// Memory replays snapshots held in memory.
type Memory struct {
	snapshots []sim.Snapshot
	pos       int
}

// NewMemory returns a source yielding snapshots in the given order.
func NewMemory(snapshots []sim.Snapshot) *Memory {
	return &Memory{snapshots: snapshots}
}

// Next implements sim.DataSource.
func (m *Memory) Next(ctx context.Context) (sim.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return sim.Snapshot{}, false, err
	}
	if m.pos >= len(m.snapshots) {
		return sim.Snapshot{}, false, nil
	}
	s := m.snapshots[m.pos]
	m.pos++
	return s, true, nil
}

// Remaining returns the number of snapshots not yet yielded.
func (m *Memory) Remaining() int {
	return len(m.snapshots) - m.pos
}

// Close implements sim.DataSource.
func (m *Memory) Close() error { return nil }

// groupRows sorts rows chronologically and folds rows with equal quote dates
// into one snapshot. Rows on the same date keep their relative order.
func groupRows(rows []quoteRow) []sim.Snapshot {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].QuoteDate.Before(rows[j].QuoteDate)
	})
	var out []sim.Snapshot
	for _, r := range rows {
		n := len(out)
		if n == 0 || !out[n-1].Time.Equal(r.QuoteDate) {
			out = append(out, sim.Snapshot{Time: r.QuoteDate})
			n++
		}
		out[n-1].Quotes = append(out[n-1].Quotes, r.quote())
	}
	return out
}
