package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind tags an Event with the payload it carries.
type EventKind int

const (
	kindInvalid EventKind = iota
	// KindData carries a market data snapshot.
	KindData
	// KindOrder carries an order request submitted by a strategy.
	KindOrder
	// KindFill carries a snapshot of an executed order.
	KindFill
	// KindRejected carries an order the venue refused to execute.
	KindRejected
)

func (k EventKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindOrder:
		return "order"
	case KindFill:
		return "fill"
	case KindRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// dateLayout is the timestamp format used in event log lines.
const dateLayout = "2006-01-02 15:04:05"

// FillDetail is a copy of an order's execution values taken when the fill
// event is built. It never reads the live order again.
type FillDetail struct {
	Mark       decimal.Decimal
	Ticket     int64
	Symbol     string
	Action     Action
	Quantity   int64
	Cost       decimal.Decimal
	Margin     decimal.Decimal
	Commission decimal.Decimal
}

// String renders the captured values the way Order.String renders a live order.
func (d FillDetail) String() string {
	return fmt.Sprintf("%s %d %s @ %s", d.Action, d.Quantity, d.Symbol, d.Mark.StringFixed(2))
}

// Event is an immutable, kind-tagged record driving the drive loop.
// Only the payload matching Kind is populated.
type Event struct {
	kind   EventKind
	time   time.Time
	quotes Snapshot
	order  *Order
	fill   FillDetail
}

// NewDataEvent wraps a market data snapshot taken at ts.
func NewDataEvent(ts time.Time, quotes Snapshot) Event {
	return Event{kind: KindData, time: ts, quotes: quotes}
}

// NewOrderEvent wraps an order request and records it in journal.
func NewOrderEvent(ts time.Time, order *Order, journal Journal) Event {
	mustOrder(order, "NewOrderEvent")
	e := Event{kind: KindOrder, time: ts, order: order}
	record(journal, e)
	return e
}

// NewFillEvent snapshots the order's execution values and records the fill
// in journal.
func NewFillEvent(ts time.Time, order *Order, journal Journal) Event {
	mustOrder(order, "NewFillEvent")
	e := Event{
		kind:  KindFill,
		time:  ts,
		order: order,
		fill: FillDetail{
			Mark:       order.Mark,
			Ticket:     order.Ticket,
			Symbol:     order.Symbol,
			Action:     order.Action,
			Quantity:   order.Quantity,
			Cost:       order.TotalCost,
			Margin:     order.Margin,
			Commission: order.Commissions,
		},
	}
	record(journal, e)
	return e
}

// NewRejectedEvent wraps an order the venue refused and records it in journal.
func NewRejectedEvent(ts time.Time, order *Order, journal Journal) Event {
	mustOrder(order, "NewRejectedEvent")
	e := Event{kind: KindRejected, time: ts, order: order}
	record(journal, e)
	return e
}

func mustOrder(order *Order, caller string) {
	if order == nil {
		panic(caller + ": order must not be nil")
	}
}

// Kind returns the event's tag.
func (e Event) Kind() EventKind { return e.kind }

// Time returns the simulation time the event refers to.
func (e Event) Time() time.Time { return e.time }

// Quotes returns the snapshot of a data event.
func (e Event) Quotes() Snapshot { return e.quotes }

// Order returns the order referenced by order, fill and rejected events.
func (e Event) Order() *Order { return e.order }

// Fill returns the execution values captured by a fill event.
func (e Event) Fill() FillDetail { return e.fill }

// Ticket returns the ticket of the referenced order, or 0 for data events.
func (e Event) Ticket() int64 {
	switch e.kind {
	case KindFill:
		return e.fill.Ticket
	case KindOrder, KindRejected:
		return e.order.Ticket
	default:
		return 0
	}
}

// String renders the event as its journal line.
func (e Event) String() string {
	date := e.time.Format(dateLayout)
	switch e.kind {
	case KindData:
		return fmt.Sprintf("DATA ON %s: %d quotes", date, len(e.quotes.Quotes))
	case KindOrder:
		return fmt.Sprintf("ORDER #%d OPENED ON %s: %s", e.order.Ticket, date, e.order)
	case KindFill:
		return fmt.Sprintf("ORDER #%d FILLED ON %s: %s", e.fill.Ticket, date, e.fill)
	case KindRejected:
		return fmt.Sprintf("ORDER #%d REJECTED ON %s: %s", e.order.Ticket, date, e.order)
	default:
		return fmt.Sprintf("EVENT %s ON %s", e.kind, date)
	}
}
