// sim/backtest.go
package sim

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Backtest runs every scenario of a parameter grid through its own drive loop.
type Backtest struct {
	// ID identifies this run in logs.
	ID        uuid.UUID
	Scenarios []Scenario

	newVenue       VenueFactory
	journalFactory func(Scenario) Journal
	workers        int
	metrics        *Metrics
}

// Option configures a Backtest.
type Option func(*Backtest)

// WithJournal makes every scenario record its order lifecycle to j.
// j must be safe for concurrent use when combined with WithWorkers.
func WithJournal(j Journal) Option {
	return func(b *Backtest) {
		b.journalFactory = func(Scenario) Journal { return j }
	}
}

// WithJournalFactory builds a dedicated journal for each scenario.
func WithJournalFactory(f func(Scenario) Journal) Option {
	return func(b *Backtest) {
		b.journalFactory = f
	}
}

// WithWorkers runs up to n scenarios concurrently. Values below 2 run
// scenarios one after another.
func WithWorkers(n int) Option {
	return func(b *Backtest) {
		b.workers = n
	}
}

// WithMetrics records drive loop counters to m.
func WithMetrics(m *Metrics) Option {
	return func(b *Backtest) {
		b.metrics = m
	}
}

// NewBacktest expands grid into scenarios for factory. Each scenario gets a
// venue from newVenue. By default order events are journaled through logrus.
func NewBacktest(factory StrategyFactory, newVenue VenueFactory, grid *ParamGrid, opts ...Option) *Backtest {
	if factory == nil {
		panic("NewBacktest: factory must not be nil")
	}
	if newVenue == nil {
		panic("NewBacktest: newVenue must not be nil")
	}
	b := &Backtest{
		ID:        uuid.New(),
		Scenarios: GenerateScenarios(factory, grid),
		newVenue:  newVenue,
		workers:   1,
	}
	logJournal := NewLogJournal()
	b.journalFactory = func(Scenario) Journal { return logJournal }
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes all scenarios and returns their results in generator order.
// A scenario's failure never stops the others. Scenarios that have not started
// when ctx is done are reported as failed with ctx.Err().
func (b *Backtest) Run(ctx context.Context) []ScenarioResult {
	start := time.Now()
	logrus.Infof("Starting backtest %s with %d scenarios", b.ID, len(b.Scenarios))

	results := make([]ScenarioResult, len(b.Scenarios))
	if b.workers < 2 {
		for i, sc := range b.Scenarios {
			results[i] = b.runOrSkip(ctx, sc)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < min(b.workers, len(b.Scenarios)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = b.runOrSkip(ctx, b.Scenarios[i])
				}
			}()
		}
		for i := range b.Scenarios {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	logrus.Infof("The simulation ran for %.2f seconds.", time.Since(start).Seconds())
	return results
}

func (b *Backtest) runOrSkip(ctx context.Context, sc Scenario) ScenarioResult {
	if err := ctx.Err(); err != nil {
		res := ScenarioResult{Scenario: sc, State: StateFailed, Err: err}
		b.metrics.observeScenario(res.State, 0)
		return res
	}
	return b.RunScenario(ctx, sc)
}

// RunScenario drives one scenario to a terminal state with a fresh queue,
// venue and strategy. Panics inside the loop are recovered here and end only
// this scenario, as StateAborted. A venue implementing io.Closer is closed on
// every terminal path.
func (b *Backtest) RunScenario(ctx context.Context, sc Scenario) (res ScenarioResult) {
	log := logrus.WithFields(logrus.Fields{
		"run":      b.ID.String(),
		"scenario": sc.Index,
		"params":   sc.Params.String(),
	})
	start := time.Now()
	res = ScenarioResult{Scenario: sc, Dispatched: make(map[EventKind]int)}
	var venue Venue

	defer func() {
		if r := recover(); r != nil {
			res.State = StateAborted
			res.Err = panicError(r)
		}
		if c, ok := venue.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.WithError(err).Warn("Closing venue")
			}
		}
		res.Elapsed = time.Since(start)
		b.metrics.observeScenario(res.State, res.Elapsed)
		if res.Err != nil {
			log.WithError(res.Err).Errorf("Scenario %s", res.State)
			return
		}
		log.Infof("Scenario %s after %d events", res.State, res.DispatchedTotal())
	}()

	res.Journal = b.journalFactory(sc)
	queue := NewEventQueue(res.Journal)
	venue, err := b.newVenue(queue)
	if err != nil {
		venue = nil
		res.State, res.Err = StateFailed, fmt.Errorf("build venue: %w", err)
		return res
	}
	strategy, err := sc.Factory(venue, queue, sc.Params)
	if err != nil {
		res.State, res.Err = StateFailed, fmt.Errorf("build strategy: %w", err)
		return res
	}

	venue.SetContinue(true)
	for venue.Continue() {
		e, ok := queue.TryPop()
		if !ok {
			res.Advances++
			b.metrics.observeAdvance()
			if err := venue.Advance(ctx); err != nil {
				res.State, res.Err = StateFailed, fmt.Errorf("advance: %w", err)
				return res
			}
			continue
		}
		log.Debugf("Dispatching %s", e)
		if err := dispatch(ctx, e, strategy, venue); err != nil {
			res.State, res.Err = StateFailed, fmt.Errorf("dispatch %s event: %w", e.Kind(), err)
			return res
		}
		res.Dispatched[e.Kind()]++
		b.metrics.observeDispatch(e.Kind())
	}
	res.State = StateStopped
	return res
}

// dispatch routes e to its handler. An unknown kind is a programming error
// and panics.
func dispatch(ctx context.Context, e Event, strategy Strategy, venue Venue) error {
	switch e.Kind() {
	case KindData:
		strategy.OnData(e)
	case KindOrder:
		return venue.ProcessOrder(ctx, e)
	case KindFill:
		strategy.OnFill(e)
	case KindRejected:
		strategy.OnRejected(e)
	default:
		panic(fmt.Errorf("%w: %s", ErrUnsupportedEvent, e.Kind()))
	}
	return nil
}
