package sim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes drive loop counters through Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsDispatched *prometheus.CounterVec
	Advances         prometheus.Counter
	Scenarios        *prometheus.CounterVec
	ScenarioDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionsim_events_dispatched_total",
				Help: "Events dispatched by the drive loop, by kind",
			},
			[]string{"kind"},
		),
		Advances: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "optionsim_advances_total",
				Help: "Venue advance calls made on an empty queue",
			},
		),
		Scenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionsim_scenarios_total",
				Help: "Completed scenarios, by terminal state",
			},
			[]string{"state"},
		),
		ScenarioDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "optionsim_scenario_duration_seconds",
				Help:    "Wall time of one scenario run",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.EventsDispatched, m.Advances, m.Scenarios, m.ScenarioDuration)
	}
	return m
}

func (m *Metrics) observeDispatch(kind EventKind) {
	if m == nil {
		return
	}
	m.EventsDispatched.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeAdvance() {
	if m == nil {
		return
	}
	m.Advances.Inc()
}

func (m *Metrics) observeScenario(state ScenarioState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Scenarios.WithLabelValues(state.String()).Inc()
	m.ScenarioDuration.Observe(elapsed.Seconds())
}
