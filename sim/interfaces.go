package sim

import "context"

// DataSource yields chronological market data snapshots.
// Next returns ok=false once the data is exhausted; that is not an error.
type DataSource interface {
	Next(ctx context.Context) (snapshot Snapshot, ok bool, err error)
	Close() error
}

// Venue simulates order execution and drives the data clock.
//
// Advance pulls the next snapshot from the venue's data source and pushes a
// data event, or clears the continue flag when the source is exhausted.
// ProcessOrder evaluates an order event and pushes exactly one fill or
// rejected event.
type Venue interface {
	Continue() bool
	SetContinue(bool)
	Advance(ctx context.Context) error
	ProcessOrder(ctx context.Context, e Event) error
}

// Strategy reacts to events dispatched by the drive loop. Any handler may
// push order events onto the queue it was constructed with.
type Strategy interface {
	OnData(e Event)
	OnFill(e Event)
	OnRejected(e Event)
}

// StrategyFactory builds a strategy bound to one scenario's venue and queue.
type StrategyFactory func(venue Venue, queue *EventQueue, params ParamSet) (Strategy, error)

// VenueFactory builds a fresh venue for one scenario, bound to its queue.
type VenueFactory func(queue *EventQueue) (Venue, error)
