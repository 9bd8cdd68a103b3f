// Package trace records the journal lines a scenario emits so they can be
// inspected or summarized after the run.
package trace

import (
	"time"

	"github.com/optionsim/optionsim/sim"
)

// EventRecord captures one journaled event.
type EventRecord struct {
	Kind   sim.EventKind
	Time   time.Time
	Ticket int64
	Line   string // rendered journal line, e.g. "ORDER #1 FILLED ON ..."
}

func recordOf(e sim.Event) EventRecord {
	return EventRecord{
		Kind:   e.Kind(),
		Time:   e.Time(),
		Ticket: e.Ticket(),
		Line:   e.String(),
	}
}
