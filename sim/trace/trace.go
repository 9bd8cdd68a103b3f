package trace

import (
	"sync"

	"github.com/optionsim/optionsim/sim"
)

// TraceLevel controls what a Recorder keeps.
type TraceLevel string

const (
	// TraceLevelNone disables recording.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents keeps every journaled order event.
	TraceLevelEvents TraceLevel = "events"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Recorder is a sim.Journal that keeps journaled events in arrival order.
// It is safe for concurrent use.
type Recorder struct {
	Level TraceLevel

	mu     sync.Mutex
	events []EventRecord
}

var _ sim.Journal = (*Recorder)(nil)

// NewRecorder creates a Recorder ready for recording at level.
func NewRecorder(level TraceLevel) *Recorder {
	return &Recorder{Level: level, events: make([]EventRecord, 0)}
}

// Record implements sim.Journal.
func (r *Recorder) Record(e sim.Event) {
	if r.Level != TraceLevelEvents {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, recordOf(e))
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventRecord, len(r.events))
	copy(out, r.events)
	return out
}

// Lines returns the recorded journal lines.
func (r *Recorder) Lines() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Line
	}
	return out
}
