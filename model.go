// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// A Model is a composition of actors wired together by channels. It owns no
// behavior beyond starting its actors and waiting for them.
//
type Model struct {
	name    string
	actors  []Actor
	log     *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	runners []*Runner
	cancel  context.CancelFunc
	g       *errgroup.Group
}

// An Option configures a Model.
//
type Option func(*Model)

// WithLogger sets the model logger. The default is slog.Default().
//
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithMetrics attaches per actor metrics to the model.
//
func WithMetrics(mt *Metrics) Option {
	return func(m *Model) { m.metrics = mt }
}

// NewModel returns an empty model.
//
func NewModel(name string, opts ...Option) *Model {
	m := &Model{name: name}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.log = m.log.With(slog.String("model", name))
	return m
}

// Name returns the model name.
//
func (m *Model) Name() string { return m.name }

// Add appends actors to the model. Actors added after Start are ignored.
//
func (m *Model) Add(actors ...Actor) {
	m.actors = append(m.actors, actors...)
}

// Actors returns the model's actors in the order they were added.
//
func (m *Model) Actors() []Actor { return m.actors }

// Start starts every actor, each on its own goroutine.
//
// Cancelling ctx, or calling Terminate, stops every actor without completing
// its normal termination protocol. If an actor fails, the others are
// cancelled.
//
func (m *Model) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.g != nil {
		return errors.Errorf("model %q already started", m.name)
	}
	if len(m.actors) == 0 {
		return errors.Errorf("model %q has no actors", m.name)
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.g, ctx = errgroup.WithContext(ctx)

	var running prometheus.Gauge
	if m.metrics != nil {
		running = m.metrics.Running(m.name)
	}
	for _, a := range m.actors {
		r := NewRunner(a)
		if m.metrics != nil {
			steps := m.metrics.Steps(m.name, a.Name())
			r.steps = steps.Inc
			if o, ok := a.(outputter); ok {
				for _, e := range o.Outputs() {
					e.counter = m.metrics.Events(m.name, a.Name())
				}
			}
		}
		m.runners = append(m.runners, r)
	}
	for _, r := range m.runners {
		log := m.log.With(slog.String("actor", r.a.Name()))
		if running != nil {
			running.Inc()
		}
		r.Start(ctx)
		log.Debug("actor started")
		m.g.Go(func() error {
			err := r.Join()
			if running != nil {
				running.Dec()
			}
			switch {
			case err == nil:
				log.Debug("actor stopped")
			case errors.Is(err, context.Canceled):
				log.Debug("actor cancelled")
				return nil
			default:
				log.Error("actor failed", slog.Any("err", err))
				return errors.Wrapf(err, "actor %q", r.a.Name())
			}
			return nil
		})
	}
	return nil
}

// Wait blocks until every actor has exited and returns the first actor error.
//
func (m *Model) Wait() error {
	m.mu.Lock()
	g, cancel := m.g, m.cancel
	m.mu.Unlock()
	if g == nil {
		return errors.Errorf("model %q not started", m.name)
	}
	err := g.Wait()
	cancel()
	return err
}

// Terminate broadcasts a stop request to every actor. Use Wait to join them.
//
func (m *Model) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runners {
		r.Terminate()
	}
}

// Running returns the number of actors that have not completed their normal
// termination yet.
//
func (m *Model) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.runners {
		if !r.Stopped() {
			n++
		}
	}
	return n
}

// Run starts the model and waits for all its actors to terminate.
//
func (m *Model) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	m.log.Info("model started", slog.Int("actors", len(m.actors)))
	err := m.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return err
	}
	m.log.Info("model done")
	return nil
}
