package strategy

import "github.com/optionsim/optionsim/sim"

// BuyAndHold opens one position on the first snapshot quoting its symbol and
// holds it until the data runs out.
type BuyAndHold struct {
	common
	bought bool
}

// NewBuyAndHold is the sim.StrategyFactory for "buy-and-hold".
// Params: symbol (required), quantity (default 1).
func NewBuyAndHold(_ sim.Venue, queue *sim.EventQueue, params sim.ParamSet) (sim.Strategy, error) {
	c, err := newCommon(queue, params)
	if err != nil {
		return nil, err
	}
	return &BuyAndHold{common: c}, nil
}

// OnData implements sim.Strategy.
func (s *BuyAndHold) OnData(e sim.Event) {
	if s.bought {
		return
	}
	s.bought = s.buy(e)
}
