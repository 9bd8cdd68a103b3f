package strategy

import (
	"fmt"

	"github.com/optionsim/optionsim/sim"
)

// Interval buys its symbol on every n-th data event.
type Interval struct {
	common
	every int64
	seen  int64
}

// NewInterval is the sim.StrategyFactory for "interval".
// Params: symbol (required), quantity (default 1), every (default 1).
func NewInterval(_ sim.Venue, queue *sim.EventQueue, params sim.ParamSet) (sim.Strategy, error) {
	c, err := newCommon(queue, params)
	if err != nil {
		return nil, err
	}
	every, err := params.GetInt("every", 1)
	if err != nil {
		return nil, err
	}
	if every <= 0 {
		return nil, fmt.Errorf("parameter \"every\" must be positive, got %d", every)
	}
	return &Interval{common: c, every: every}, nil
}

// OnData implements sim.Strategy.
func (s *Interval) OnData(e sim.Event) {
	s.seen++
	if s.seen%s.every == 0 {
		s.buy(e)
	}
}
