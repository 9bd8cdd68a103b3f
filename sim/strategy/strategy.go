// Package strategy holds the reference strategies and the name registry the
// command line uses to pick one.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/optionsim/optionsim/sim"
)

// ErrUnknownStrategy is returned by Lookup for unregistered names.
var ErrUnknownStrategy = errors.New("unknown strategy")

var registry = map[string]sim.StrategyFactory{
	"buy-and-hold": NewBuyAndHold,
	"interval":     NewInterval,
}

// Lookup returns the factory registered under name.
func Lookup(name string) (sim.StrategyFactory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (valid: %v)", ErrUnknownStrategy, name, Names())
	}
	return f, nil
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// common holds the parameters and counters every reference strategy shares.
type common struct {
	queue    *sim.EventQueue
	symbol   string
	quantity int64

	Fills      int
	Rejections int
}

func newCommon(queue *sim.EventQueue, params sim.ParamSet) (common, error) {
	symbol, err := params.GetString("symbol", "")
	if err != nil {
		return common{}, err
	}
	if symbol == "" {
		return common{}, errors.New("parameter \"symbol\" is required")
	}
	quantity, err := params.GetInt("quantity", 1)
	if err != nil {
		return common{}, err
	}
	if quantity <= 0 {
		return common{}, fmt.Errorf("parameter \"quantity\" must be positive, got %d", quantity)
	}
	return common{queue: queue, symbol: symbol, quantity: quantity}, nil
}

// buy submits a buy-to-open order when the snapshot in e quotes the symbol.
func (c *common) buy(e sim.Event) bool {
	if _, ok := e.Quotes().Lookup(c.symbol); !ok {
		return false
	}
	c.queue.SubmitOrder(e.Time(), &sim.Order{
		Symbol:   c.symbol,
		Action:   sim.BuyToOpen,
		Quantity: c.quantity,
	})
	return true
}

func (c *common) OnFill(sim.Event)     { c.Fills++ }
func (c *common) OnRejected(sim.Event) { c.Rejections++ }
