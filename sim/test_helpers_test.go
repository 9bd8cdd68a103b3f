package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// testDay returns midnight UTC of day n in January 2016.
func testDay(n int) time.Time {
	return time.Date(2016, time.January, n, 0, 0, 0, 0, time.UTC)
}

// testSnapshots builds n single-quote snapshots for symbol on consecutive days.
func testSnapshots(symbol string, n int) []Snapshot {
	out := make([]Snapshot, n)
	for i := range out {
		ts := testDay(i + 1)
		out[i] = Snapshot{Time: ts, Quotes: []Quote{{
			Symbol: symbol,
			Time:   ts,
			Bid:    decimal.NewFromInt(int64(10 + i)),
			Ask:    decimal.NewFromInt(int64(12 + i)),
		}}}
	}
	return out
}

// scriptedVenue pushes a fixed list of snapshots, then stops. It fills every
// order at the latest mark unless rejectAll is set, and appends every call it
// receives to trail.
type scriptedVenue struct {
	queue      *EventQueue
	ticks      []Snapshot
	last       Snapshot
	cont       bool
	rejectAll  bool
	advanceErr error
	trail      *[]string
}

func newScriptedVenue(q *EventQueue, ticks []Snapshot, trail *[]string) *scriptedVenue {
	return &scriptedVenue{queue: q, ticks: ticks, trail: trail}
}

func (v *scriptedVenue) note(format string, args ...any) {
	if v.trail != nil {
		*v.trail = append(*v.trail, fmt.Sprintf(format, args...))
	}
}

func (v *scriptedVenue) Continue() bool     { return v.cont }
func (v *scriptedVenue) SetContinue(c bool) { v.cont = c }

func (v *scriptedVenue) Advance(ctx context.Context) error {
	v.note("advance")
	if v.advanceErr != nil {
		return v.advanceErr
	}
	if len(v.ticks) == 0 {
		v.cont = false
		return nil
	}
	v.last, v.ticks = v.ticks[0], v.ticks[1:]
	v.queue.PublishData(v.last)
	return nil
}

func (v *scriptedVenue) ProcessOrder(ctx context.Context, e Event) error {
	order := e.Order()
	v.note("order#%d", order.Ticket)
	if v.rejectAll {
		v.queue.Reject(e.Time(), order)
		return nil
	}
	if q, ok := v.last.Lookup(order.Symbol); ok {
		order.Mark = q.Mark()
	}
	order.TotalCost = order.Mark.Mul(decimal.NewFromInt(order.Quantity))
	v.queue.Fill(e.Time(), order)
	return nil
}

// recordingStrategy submits ordersPerData orders on every data event and
// appends each handler call to trail.
type recordingStrategy struct {
	queue         *EventQueue
	symbol        string
	ordersPerData int
	trail         *[]string
	fills         []FillDetail
	rejected      []int64
}

func (s *recordingStrategy) OnData(e Event) {
	*s.trail = append(*s.trail, "data@"+e.Time().Format("2006-01-02"))
	for i := 0; i < s.ordersPerData; i++ {
		s.queue.SubmitOrder(e.Time(), &Order{Symbol: s.symbol, Action: BuyToOpen, Quantity: 1})
	}
}

func (s *recordingStrategy) OnFill(e Event) {
	*s.trail = append(*s.trail, fmt.Sprintf("fill#%d", e.Ticket()))
	s.fills = append(s.fills, e.Fill())
}

func (s *recordingStrategy) OnRejected(e Event) {
	*s.trail = append(*s.trail, fmt.Sprintf("rejected#%d", e.Ticket()))
	s.rejected = append(s.rejected, e.Ticket())
}
