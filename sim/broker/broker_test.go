package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionsim/optionsim/sim"
	"github.com/optionsim/optionsim/sim/datasource"
)

func day(d int) time.Time {
	return time.Date(2016, time.January, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(d int, symbol, bid, ask string) sim.Snapshot {
	return sim.Snapshot{Time: day(d), Quotes: []sim.Quote{{
		Symbol: symbol, Underlying: "SPX", Time: day(d),
		Bid: decimal.RequireFromString(bid), Ask: decimal.RequireFromString(ask),
	}}}
}

func testConfig() Config {
	return Config{
		InitialCash:           decimal.NewFromInt(10000),
		CommissionPerContract: decimal.RequireFromString("0.65"),
		MarginRate:            decimal.RequireFromString("0.2"),
	}
}

// closeTracker wraps a memory source to observe Close calls.
type closeTracker struct {
	*datasource.Memory
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

// newTestBroker returns a broker that has already advanced onto the first
// snapshot, with the data event drained from the queue.
func newTestBroker(t *testing.T, snaps ...sim.Snapshot) (*Broker, *sim.EventQueue) {
	t.Helper()
	q := sim.NewEventQueue(nil)
	b := New(q, datasource.NewMemory(snaps), testConfig())
	b.SetContinue(true)
	require.NoError(t, b.Advance(context.Background()))
	_, ok := q.TryPop()
	require.True(t, ok)
	return b, q
}

func submit(t *testing.T, b *Broker, q *sim.EventQueue, order *sim.Order) sim.Event {
	t.Helper()
	q.SubmitOrder(day(4), order)
	e, ok := q.TryPop()
	require.True(t, ok)
	require.NoError(t, b.ProcessOrder(context.Background(), e))
	require.Equal(t, 1, q.Len(), "exactly one outcome event")
	out, _ := q.TryPop()
	return out
}

func TestBroker_Advance_PushesDataThenStops(t *testing.T) {
	// GIVEN a broker over two snapshots
	q := sim.NewEventQueue(nil)
	src := &closeTracker{Memory: datasource.NewMemory([]sim.Snapshot{
		snapshot(4, "A", "1", "2"), snapshot(5, "A", "1", "2"),
	})}
	b := New(q, src, testConfig())
	b.SetContinue(true)
	ctx := context.Background()

	// WHEN advanced three times
	require.NoError(t, b.Advance(ctx))
	require.NoError(t, b.Advance(ctx))
	assert.True(t, b.Continue())
	require.NoError(t, b.Advance(ctx))

	// THEN two data events were pushed, the flag is cleared and the source
	// closed exactly once
	assert.Equal(t, 2, q.Len())
	e, _ := q.TryPop()
	assert.Equal(t, sim.KindData, e.Kind())
	assert.Equal(t, day(4), e.Time())
	assert.False(t, b.Continue())
	require.NoError(t, b.Advance(ctx))
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, day(5), b.LastSnapshot().Time)
}

type failingSource struct{}

func (failingSource) Next(context.Context) (sim.Snapshot, bool, error) {
	return sim.Snapshot{}, false, errors.New("io failure")
}
func (failingSource) Close() error { return nil }

func TestBroker_Advance_SourceError(t *testing.T) {
	b := New(sim.NewEventQueue(nil), failingSource{}, testConfig())
	err := b.Advance(context.Background())
	assert.ErrorContains(t, err, "io failure")
}

func TestBroker_BuyToOpen_FillsAtMark(t *testing.T) {
	// GIVEN a quote of 12.10/12.50
	b, q := newTestBroker(t, snapshot(4, "SPX-C", "12.10", "12.50"))

	// WHEN buying 2 contracts
	order := &sim.Order{Symbol: "SPX-C", Action: sim.BuyToOpen, Quantity: 2}
	out := submit(t, b, q, order)

	// THEN the order fills at the mark with premium plus commission debited
	require.Equal(t, sim.KindFill, out.Kind())
	fill := out.Fill()
	assert.True(t, fill.Mark.Equal(decimal.RequireFromString("12.3")))
	assert.True(t, fill.Cost.Equal(decimal.RequireFromString("2461.30")))
	assert.True(t, fill.Commission.Equal(decimal.RequireFromString("1.30")))
	assert.True(t, fill.Margin.IsZero())
	assert.True(t, b.Cash().Equal(decimal.RequireFromString("7538.70")))
	assert.Equal(t, int64(2), b.Position("SPX-C"))
	assert.Equal(t, sim.StatusFilled, order.Status)
}

func TestBroker_SellToOpenThenBuyToClose(t *testing.T) {
	b, q := newTestBroker(t, snapshot(4, "SPX-P", "4.90", "5.10"))

	out := submit(t, b, q, &sim.Order{Symbol: "SPX-P", Action: sim.SellToOpen, Quantity: 1})
	require.Equal(t, sim.KindFill, out.Kind())
	assert.True(t, out.Fill().Margin.Equal(decimal.NewFromInt(100)))
	assert.True(t, b.Cash().Equal(decimal.RequireFromString("10499.35")))
	assert.Equal(t, int64(-1), b.Position("SPX-P"))

	out = submit(t, b, q, &sim.Order{Symbol: "SPX-P", Action: sim.BuyToClose, Quantity: 1})
	require.Equal(t, sim.KindFill, out.Kind())
	assert.Empty(t, b.Positions())
	assert.True(t, b.Cash().Equal(decimal.RequireFromString("9998.70")))
}

func TestBroker_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		order *sim.Order
	}{
		{"zero quantity", &sim.Order{Symbol: "SPX-C", Action: sim.BuyToOpen, Quantity: 0}},
		{"no quote", &sim.Order{Symbol: "RUT-C", Action: sim.BuyToOpen, Quantity: 1}},
		{"insufficient funds", &sim.Order{Symbol: "SPX-C", Action: sim.BuyToOpen, Quantity: 10}},
		{"close without position", &sim.Order{Symbol: "SPX-C", Action: sim.SellToClose, Quantity: 1}},
		{"unknown action", &sim.Order{Symbol: "SPX-C", Action: "XYZ", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a fresh broker quoting SPX-C at 12.30
			b, q := newTestBroker(t, snapshot(4, "SPX-C", "12.10", "12.50"))

			// WHEN the order is processed
			out := submit(t, b, q, tc.order)

			// THEN it is rejected and the account is untouched
			assert.Equal(t, sim.KindRejected, out.Kind())
			assert.Equal(t, sim.StatusRejected, tc.order.Status)
			assert.True(t, b.Cash().Equal(decimal.NewFromInt(10000)))
			assert.Empty(t, b.Positions())
		})
	}
}

func TestBroker_Execute_ReasonErrors(t *testing.T) {
	b, _ := newTestBroker(t, snapshot(4, "SPX-C", "12.10", "12.50"))
	assert.ErrorIs(t, b.execute(&sim.Order{Symbol: "SPX-C", Action: sim.BuyToOpen}), ErrInvalidQuantity)
	assert.ErrorIs(t, b.execute(&sim.Order{Symbol: "X", Action: sim.BuyToOpen, Quantity: 1}), ErrNoQuote)
	assert.ErrorIs(t, b.execute(&sim.Order{Symbol: "SPX-C", Action: sim.BuyToOpen, Quantity: 9}), ErrInsufficientFunds)
	assert.ErrorIs(t, b.execute(&sim.Order{Symbol: "SPX-C", Action: sim.BuyToClose, Quantity: 1}), ErrNoPosition)
}

func TestBroker_ProcessOrder_NonOrderEvent(t *testing.T) {
	b, _ := newTestBroker(t, snapshot(4, "SPX-C", "1", "2"))
	err := b.ProcessOrder(context.Background(), sim.NewDataEvent(day(4), sim.Snapshot{}))
	assert.Error(t, err)
}

type panickingStrategy struct{}

func (panickingStrategy) OnData(sim.Event)     { panic("strategy bug") }
func (panickingStrategy) OnFill(sim.Event)     {}
func (panickingStrategy) OnRejected(sim.Event) {}

type idleStrategy struct{}

func (idleStrategy) OnData(sim.Event)     {}
func (idleStrategy) OnFill(sim.Event)     {}
func (idleStrategy) OnRejected(sim.Event) {}

// flakySource yields one snapshot and then fails.
type flakySource struct {
	*closeTracker
	calls int
}

func (f *flakySource) Next(ctx context.Context) (sim.Snapshot, bool, error) {
	f.calls++
	if f.calls > 1 {
		return sim.Snapshot{}, false, errors.New("connection reset")
	}
	return f.closeTracker.Next(ctx)
}

func TestBacktest_ClosesSourceOnEveryTerminalState(t *testing.T) {
	snaps := []sim.Snapshot{snapshot(4, "A", "1", "2"), snapshot(5, "A", "1", "2")}
	cases := []struct {
		name      string
		newSource func() (sim.DataSource, *closeTracker)
		factory   sim.StrategyFactory
		wantState sim.ScenarioState
	}{
		{
			name: "strategy factory error",
			newSource: func() (sim.DataSource, *closeTracker) {
				c := &closeTracker{Memory: datasource.NewMemory(snaps)}
				return c, c
			},
			factory: func(sim.Venue, *sim.EventQueue, sim.ParamSet) (sim.Strategy, error) {
				return nil, errors.New("bad params")
			},
			wantState: sim.StateFailed,
		},
		{
			name: "advance error",
			newSource: func() (sim.DataSource, *closeTracker) {
				f := &flakySource{closeTracker: &closeTracker{Memory: datasource.NewMemory(snaps)}}
				return f, f.closeTracker
			},
			factory: func(sim.Venue, *sim.EventQueue, sim.ParamSet) (sim.Strategy, error) {
				return idleStrategy{}, nil
			},
			wantState: sim.StateFailed,
		},
		{
			name: "strategy panic",
			newSource: func() (sim.DataSource, *closeTracker) {
				c := &closeTracker{Memory: datasource.NewMemory(snaps)}
				return c, c
			},
			factory: func(sim.Venue, *sim.EventQueue, sim.ParamSet) (sim.Strategy, error) {
				return panickingStrategy{}, nil
			},
			wantState: sim.StateAborted,
		},
		{
			name: "exhausted",
			newSource: func() (sim.DataSource, *closeTracker) {
				c := &closeTracker{Memory: datasource.NewMemory(snaps)}
				return c, c
			},
			factory: func(sim.Venue, *sim.EventQueue, sim.ParamSet) (sim.Strategy, error) {
				return idleStrategy{}, nil
			},
			wantState: sim.StateStopped,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a three-scenario grid whose venues each own a tracked source
			var trackers []*closeTracker
			newVenue := func(q *sim.EventQueue) (sim.Venue, error) {
				src, tracker := tc.newSource()
				trackers = append(trackers, tracker)
				return New(q, src, testConfig()), nil
			}
			grid := sim.NewParamGrid().Add("n", sim.ValuesOf(1, 2, 3))
			bt := sim.NewBacktest(tc.factory, newVenue, grid, sim.WithJournal(sim.NopJournal{}))

			// WHEN the backtest runs
			results := bt.Run(context.Background())

			// THEN every scenario reaches the expected state and its source is
			// closed exactly once
			require.Len(t, results, 3)
			require.Len(t, trackers, 3)
			for i, res := range results {
				assert.Equal(t, tc.wantState, res.State, "scenario %d", i)
				assert.Equal(t, 1, trackers[i].closed, "scenario %d", i)
			}
		})
	}
}

func TestBroker_Close_Idempotent(t *testing.T) {
	src := &closeTracker{Memory: datasource.NewMemory(nil)}
	b := New(sim.NewEventQueue(nil), src, testConfig())
	require.NoError(t, b.Close())
	require.NoError(t, b.Advance(context.Background()))
	require.NoError(t, b.Close())
	assert.Equal(t, 1, src.closed)
}

func TestNew_NilArguments_Panic(t *testing.T) {
	assert.Panics(t, func() { New(nil, datasource.NewMemory(nil), Config{}) })
	assert.Panics(t, func() { New(sim.NewEventQueue(nil), nil, Config{}) })
}
