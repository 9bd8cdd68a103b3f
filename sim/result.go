package sim

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedEvent is the panic value (wrapped) raised when the drive loop
// pops an event whose kind it cannot dispatch.
var ErrUnsupportedEvent = errors.New("unsupported event kind")

// ErrScenarioPanicked wraps any other panic recovered at the scenario boundary.
var ErrScenarioPanicked = errors.New("scenario panicked")

// ScenarioState is the terminal state of one scenario run.
type ScenarioState int

const (
	stateRunning ScenarioState = iota
	// StateStopped means the venue reported the data source exhausted.
	StateStopped
	// StateAborted means the drive loop hit a contract violation and panicked.
	StateAborted
	// StateFailed means a collaborator returned an error or could not be built.
	StateFailed
)

func (s ScenarioState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ScenarioState(%d)", int(s))
	}
}

// ScenarioResult is the outcome of one scenario, attributable to its params.
type ScenarioResult struct {
	Scenario Scenario
	State    ScenarioState
	Err      error
	// Journal is the journal the scenario's queue recorded to.
	Journal Journal
	// Dispatched counts events handed to the strategy or venue, by kind.
	Dispatched map[EventKind]int
	// Advances counts Advance calls made on an empty queue.
	Advances int
	Elapsed  time.Duration
}

// DispatchedTotal returns the number of dispatched events of every kind.
func (r ScenarioResult) DispatchedTotal() int {
	n := 0
	for _, c := range r.Dispatched {
		n += c
	}
	return n
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		if errors.Is(err, ErrUnsupportedEvent) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrScenarioPanicked, err)
	}
	return fmt.Errorf("%w: %v", ErrScenarioPanicked, r)
}
