package sim

import "github.com/sirupsen/logrus"

// Journal receives order lifecycle events as they are constructed.
// Implementations shared between scenarios must be safe for concurrent use.
type Journal interface {
	Record(Event)
}

// JournalFunc adapts a function to the Journal interface.
type JournalFunc func(Event)

// Record calls f(e).
func (f JournalFunc) Record(e Event) { f(e) }

// NopJournal discards every event.
type NopJournal struct{}

// Record implements Journal.
func (NopJournal) Record(Event) {}

// LogJournal writes each event's log line through logrus at info level.
type LogJournal struct {
	Logger logrus.FieldLogger
}

// NewLogJournal returns a LogJournal writing to the standard logrus logger.
func NewLogJournal() *LogJournal {
	return &LogJournal{Logger: logrus.StandardLogger()}
}

// Record implements Journal.
func (j *LogJournal) Record(e Event) {
	j.Logger.Info(e.String())
}

// MultiJournal fans each event out to every journal in order.
type MultiJournal []Journal

// Record implements Journal.
func (m MultiJournal) Record(e Event) {
	for _, j := range m {
		record(j, e)
	}
}

func record(j Journal, e Event) {
	if j != nil {
		j.Record(e)
	}
}
