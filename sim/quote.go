package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Quote is one instrument's bid/ask at a point in time.
type Quote struct {
	Symbol     string
	Underlying string
	Time       time.Time
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

// Mark returns the bid/ask midpoint.
func (q Quote) Mark() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(two)
}

// Snapshot holds the quotes for all subscribed instruments at one time.
type Snapshot struct {
	Time   time.Time
	Quotes []Quote
}

// Lookup returns the quote for symbol, if present.
func (s Snapshot) Lookup(symbol string) (Quote, bool) {
	for _, q := range s.Quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return Quote{}, false
}

// Len returns the number of quotes in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Quotes)
}
