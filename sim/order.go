package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action is the side and intent of an option order.
type Action string

const (
	BuyToOpen   Action = "BTO"
	SellToOpen  Action = "STO"
	BuyToClose  Action = "BTC"
	SellToClose Action = "STC"
)

// IsBuy reports whether the action debits premium.
func (a Action) IsBuy() bool {
	return a == BuyToOpen || a == BuyToClose
}

// IsOpening reports whether the action opens a new position.
func (a Action) IsOpening() bool {
	return a == BuyToOpen || a == SellToOpen
}

// OrderStatus tracks an order through the venue.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusFilled   OrderStatus = "filled"
	StatusRejected OrderStatus = "rejected"
)

// Order is a request created by a strategy and priced by the venue.
// The venue mutates Mark, TotalCost, Margin, Commissions and Status while
// processing it; fill events keep their own copy of those values.
type Order struct {
	Ticket      int64
	Symbol      string
	Action      Action
	Quantity    int64
	Mark        decimal.Decimal
	TotalCost   decimal.Decimal
	Margin      decimal.Decimal
	Commissions decimal.Decimal
	Status      OrderStatus
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %d %s @ %s", o.Action, o.Quantity, o.Symbol, o.Mark.StringFixed(2))
}
