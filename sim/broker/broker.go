// Package broker implements a paper execution venue that replays a data
// source and prices orders at the latest quote mark.
package broker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/optionsim/optionsim/sim"
)

var (
	ErrInvalidQuantity   = errors.New("order quantity must be positive")
	ErrNoQuote           = errors.New("no quote for symbol")
	ErrNoPosition        = errors.New("no position to close")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Config holds account and pricing settings.
type Config struct {
	InitialCash           decimal.Decimal
	CommissionPerContract decimal.Decimal
	// MarginRate is the share of premium held as margin on short opens.
	MarginRate decimal.Decimal
	// Multiplier is the contract size; zero means 100.
	Multiplier int64
}

// Broker is a sim.Venue bound to one scenario's queue and data source.
type Broker struct {
	queue     *sim.EventQueue
	source    sim.DataSource
	cfg       Config
	cont      bool
	closed    bool
	last      sim.Snapshot
	cash      decimal.Decimal
	positions map[string]int64
}

var (
	_ sim.Venue = (*Broker)(nil)
	_ io.Closer = (*Broker)(nil)
)

// New creates a broker that pulls snapshots from source and pushes events onto
// queue. The broker closes source once it is exhausted or when Close is called,
// whichever comes first.
func New(queue *sim.EventQueue, source sim.DataSource, cfg Config) *Broker {
	if queue == nil {
		panic("broker.New: queue must not be nil")
	}
	if source == nil {
		panic("broker.New: source must not be nil")
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 100
	}
	return &Broker{
		queue:     queue,
		source:    source,
		cfg:       cfg,
		cash:      cfg.InitialCash,
		positions: make(map[string]int64),
	}
}

// Continue implements sim.Venue.
func (b *Broker) Continue() bool { return b.cont }

// SetContinue implements sim.Venue.
func (b *Broker) SetContinue(c bool) { b.cont = c }

// Advance implements sim.Venue.
func (b *Broker) Advance(ctx context.Context) error {
	snap, ok, err := b.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("next snapshot: %w", err)
	}
	if !ok {
		b.cont = false
		return b.close()
	}
	b.last = snap
	b.queue.PublishData(snap)
	return nil
}

// Close releases the data source. It is safe to call more than once.
func (b *Broker) Close() error { return b.close() }

func (b *Broker) close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.source.Close(); err != nil {
		return fmt.Errorf("close data source: %w", err)
	}
	return nil
}

// ProcessOrder implements sim.Venue. It pushes exactly one fill or rejected
// event; a rejection is not an error.
func (b *Broker) ProcessOrder(ctx context.Context, e sim.Event) error {
	order := e.Order()
	if order == nil {
		return fmt.Errorf("%s event carries no order", e.Kind())
	}
	if err := b.execute(order); err != nil {
		logrus.Debugf("Rejecting order #%d: %v", order.Ticket, err)
		b.queue.Reject(e.Time(), order)
		return nil
	}
	b.queue.Fill(e.Time(), order)
	return nil
}

// execute prices order against the last snapshot and applies it to the
// account, or returns why it cannot be executed.
func (b *Broker) execute(order *sim.Order) error {
	if order.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	quote, ok := b.last.Lookup(order.Symbol)
	if !ok {
		return fmt.Errorf("%w %s", ErrNoQuote, order.Symbol)
	}
	held := b.positions[order.Symbol]
	switch order.Action {
	case sim.BuyToClose:
		if -held < order.Quantity {
			return fmt.Errorf("%w: short %d, buying %d", ErrNoPosition, -held, order.Quantity)
		}
	case sim.SellToClose:
		if held < order.Quantity {
			return fmt.Errorf("%w: long %d, selling %d", ErrNoPosition, held, order.Quantity)
		}
	case sim.BuyToOpen, sim.SellToOpen:
	default:
		return fmt.Errorf("unknown action %q", order.Action)
	}

	mark := quote.Mark()
	qty := decimal.NewFromInt(order.Quantity)
	premium := mark.Mul(qty).Mul(decimal.NewFromInt(b.cfg.Multiplier))
	commission := b.cfg.CommissionPerContract.Mul(qty)
	margin := decimal.Zero
	if order.Action == sim.SellToOpen {
		margin = premium.Mul(b.cfg.MarginRate)
	}

	var cost decimal.Decimal
	if order.Action.IsBuy() {
		cost = premium.Add(commission)
		if b.cash.LessThan(cost) {
			return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), b.cash.StringFixed(2))
		}
		b.cash = b.cash.Sub(cost)
		b.positions[order.Symbol] = held + order.Quantity
	} else {
		cost = premium.Sub(commission)
		if b.cash.Add(cost).LessThan(margin) {
			return fmt.Errorf("%w: margin %s, have %s", ErrInsufficientFunds, margin.StringFixed(2), b.cash.StringFixed(2))
		}
		b.cash = b.cash.Add(cost)
		b.positions[order.Symbol] = held - order.Quantity
	}
	if b.positions[order.Symbol] == 0 {
		delete(b.positions, order.Symbol)
	}

	order.Mark = mark
	order.TotalCost = cost
	order.Margin = margin
	order.Commissions = commission
	return nil
}

// Cash returns the account's cash balance.
func (b *Broker) Cash() decimal.Decimal { return b.cash }

// Position returns the signed contract count held in symbol.
func (b *Broker) Position(symbol string) int64 { return b.positions[symbol] }

// Positions returns a copy of all open positions.
func (b *Broker) Positions() map[string]int64 {
	out := make(map[string]int64, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

// LastSnapshot returns the most recent snapshot pushed by Advance.
func (b *Broker) LastSnapshot() sim.Snapshot { return b.last }
