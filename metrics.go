package tagsim

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per actor counters for a model run.
//
type Metrics struct {
	steps   *prometheus.CounterVec
	events  *prometheus.CounterVec
	running *prometheus.GaugeVec
}

// NewMetrics creates the model metrics and registers them with reg. If reg is
// nil, the metrics are not registered and can only be read back with the
// prometheus testutil package.
//
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagsim",
			Name:      "process_steps_total",
			Help:      "Number of Process calls per actor.",
		}, []string{"model", "actor"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagsim",
			Name:      "events_emitted_total",
			Help:      "Number of items put on output channels per actor.",
		}, []string{"model", "actor"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tagsim",
			Name:      "actors_running",
			Help:      "Number of actors whose goroutine has not exited yet.",
		}, []string{"model"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.steps, m.events, m.running} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Steps returns the step counter for the given model and actor.
//
func (m *Metrics) Steps(model, actor string) prometheus.Counter {
	return m.steps.WithLabelValues(model, actor)
}

// Events returns the emitted items counter for the given model and actor.
//
func (m *Metrics) Events(model, actor string) prometheus.Counter {
	return m.events.WithLabelValues(model, actor)
}

// Running returns the running actors gauge for the given model.
//
func (m *Metrics) Running(model string) prometheus.Gauge {
	return m.running.WithLabelValues(model)
}
