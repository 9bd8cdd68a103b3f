package trace

import "github.com/optionsim/optionsim/sim"

// Summary aggregates statistics from a Recorder.
type Summary struct {
	Orders     int
	Fills      int
	Rejections int
	// FillRatio is Fills / Orders, or 0 without orders.
	FillRatio float64
	// Tickets counts distinct order tickets seen.
	Tickets int
}

// Summarize computes aggregate statistics from a Recorder.
// Safe for nil or empty recorders (returns zero-value fields).
func Summarize(r *Recorder) *Summary {
	summary := &Summary{}
	if r == nil {
		return summary
	}

	tickets := make(map[int64]struct{})
	for _, e := range r.Events() {
		switch e.Kind {
		case sim.KindOrder:
			summary.Orders++
		case sim.KindFill:
			summary.Fills++
		case sim.KindRejected:
			summary.Rejections++
		default:
			continue
		}
		tickets[e.Ticket] = struct{}{}
	}
	if summary.Orders > 0 {
		summary.FillRatio = float64(summary.Fills) / float64(summary.Orders)
	}
	summary.Tickets = len(tickets)

	return summary
}
