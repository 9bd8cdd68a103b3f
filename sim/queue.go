// Implements the EventQueue, the FIFO buffer shared by the strategy, the venue
// and the drive loop of a single scenario.

package sim

import (
	"fmt"
	"strings"
	"time"
)

// EventQueue is an unbounded FIFO of events owned by one scenario run.
// It does not reorder by timestamp or kind. It is not safe for concurrent use;
// every producer and the consumer run on the scenario's goroutine.
type EventQueue struct {
	events     []Event
	head       int
	journal    Journal
	lastTicket int64
}

// NewEventQueue creates an empty queue whose order helpers record to journal.
// A nil journal discards records.
func NewEventQueue(journal Journal) *EventQueue {
	return &EventQueue{journal: journal}
}

// Push appends an event to the tail of the queue.
func (q *EventQueue) Push(e Event) {
	q.events = append(q.events, e)
}

// TryPop removes and returns the head event. It never blocks; ok is false
// when the queue is empty.
func (q *EventQueue) TryPop() (e Event, ok bool) {
	if q.head == len(q.events) {
		return Event{}, false
	}
	e = q.events[q.head]
	q.events[q.head] = Event{}
	q.head++
	if q.head == len(q.events) {
		// drained: reuse the backing array
		q.events = q.events[:0]
		q.head = 0
	}
	return e, true
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.events) - q.head
}

// Journal returns the journal order helpers record to.
func (q *EventQueue) Journal() Journal {
	return q.journal
}

// NextTicket returns the next order ticket for this run, starting at 1.
func (q *EventQueue) NextTicket() int64 {
	q.lastTicket++
	return q.lastTicket
}

// PublishData pushes a data event for snapshot.
func (q *EventQueue) PublishData(snapshot Snapshot) {
	q.Push(NewDataEvent(snapshot.Time, snapshot))
}

// SubmitOrder assigns a ticket to order when it has none, then builds,
// records and pushes its order event.
func (q *EventQueue) SubmitOrder(ts time.Time, order *Order) {
	mustOrder(order, "SubmitOrder")
	if order.Ticket == 0 {
		order.Ticket = q.NextTicket()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}
	q.Push(NewOrderEvent(ts, order, q.journal))
}

// Fill marks order filled, then builds, records and pushes its fill event.
func (q *EventQueue) Fill(ts time.Time, order *Order) {
	mustOrder(order, "Fill")
	order.Status = StatusFilled
	q.Push(NewFillEvent(ts, order, q.journal))
}

// Reject marks order rejected, then builds, records and pushes its rejected
// event.
func (q *EventQueue) Reject(ts time.Time, order *Order) {
	mustOrder(order, "Reject")
	order.Status = StatusRejected
	q.Push(NewRejectedEvent(ts, order, q.journal))
}

func (q *EventQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, e := range q.events[q.head:] {
		sb.WriteString(fmt.Sprint(e.Kind()))
		if i < q.Len()-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
