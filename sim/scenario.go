package sim

import "github.com/sirupsen/logrus"

// Scenario is one strategy factory paired with a single assignment of every
// parameter. Index is the scenario's position in generator order.
type Scenario struct {
	Index   int
	Factory StrategyFactory
	Params  ParamSet
}

// GenerateScenarios expands grid into the cartesian product of its
// candidates. Names keep the grid's insertion order and the last name varies
// fastest, so scenario numbering is reproducible. An empty grid yields one
// scenario with no parameters; a name with no candidates yields none.
func GenerateScenarios(factory StrategyFactory, grid *ParamGrid) []Scenario {
	names := grid.Names()
	cands := make([][]any, len(names))
	for i, name := range names {
		cands[i] = grid.CandidatesFor(name)
		if len(cands[i]) == 0 {
			logrus.Warnf("parameter %q has no candidate values; no scenarios generated", name)
			return nil
		}
	}

	total, ok := grid.size()
	if !ok {
		logrus.Warnf("parameter grid of %d names expands past the int range; no scenarios generated", len(names))
		return nil
	}
	scenarios := make([]Scenario, 0, total)
	// odometer over candidate indices, rightmost digit fastest
	idx := make([]int, len(names))
	for n := 0; n < total; n++ {
		params := make([]Param, len(names))
		for i, name := range names {
			params[i] = Param{Name: name, Value: cands[i][idx[i]]}
		}
		scenarios = append(scenarios, Scenario{
			Index:   n,
			Factory: factory,
			Params:  ParamSet{params: params},
		})
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(cands[i]) {
				break
			}
			idx[i] = 0
		}
	}
	return scenarios
}
