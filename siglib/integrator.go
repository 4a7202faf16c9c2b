// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package siglib

import (
	"context"
	"math"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// IntegratorConfig configures an Integrator.
//
type IntegratorConfig struct {
	// Initial value of the integral.
	Init float64
	// Quantization step. Must be > 0.
	Delta float64
	// Internal transitions are forced on every multiple of MaxStep on the
	// tag axis, so that the output is refreshed at least that often even
	// when the derivative is 0. MaxStep <= 0 disables the bound.
	MaxStep float64
	// AlgebraicLoop must be set when the integrator output is fed back to
	// its input through zero-delay blocks. See Integrator.
	AlgebraicLoop bool
}

// qss is the state of a first order quantized state system.
//
// It has two transition functions: internal fires when the simulated time
// reaches nextT, external when a new derivative value arrives.
//
type qss struct {
	delta   float64
	maxStep float64

	x     float64 // continuous state
	qx    float64 // quantized state, a multiple of delta
	xdot  float64 // derivative
	dx    float64 // signed distance from x to the next level crossing
	lastT float64
	nextT float64
	// the scheduled transition is a max-step fallback, not a level crossing.
	discrete bool
}

func newQSS(init, delta, maxStep float64) *qss {
	return &qss{delta: delta, maxStep: maxStep, x: init, discrete: true}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// internal advances the time to nextT and returns the new output.
//
func (q *qss) internal() tagsim.Event {
	elapsed := q.nextT - q.lastT
	q.lastT = q.nextT
	if q.discrete {
		q.x += q.xdot * elapsed
		q.qx = quantize(q.x, q.delta)
	} else {
		s := sign(q.xdot)
		q.qx += s * q.delta
		q.x = q.qx - s*q.delta/2
	}
	q.schedule()
	return tagsim.NewEvent(q.lastT, q.qx)
}

// external integrates the old derivative up to t then adopts xdot.
//
func (q *qss) external(t, xdot float64) {
	q.x += q.xdot * (t - q.lastT)
	q.lastT = t
	q.xdot = xdot
	q.schedule()
}

// schedule computes dx and the time of the next internal transition.
//
func (q *qss) schedule() {
	q.dx = q.qx + sign(q.xdot)*q.delta/2 - q.x
	dt := math.Inf(1)
	if q.xdot != 0 {
		dt = math.Abs(q.dx / q.xdot)
	}
	q.nextT, q.discrete = q.lastT+dt, false
	if g := q.grid(); q.nextT > g {
		q.nextT, q.discrete = g, true
	}
	if dt > 0 && q.nextT <= q.lastT {
		// dt vanished in the addition; force progress.
		q.nextT = math.Nextafter(q.lastT, math.Inf(1))
	}
}

// grid returns the first multiple of maxStep after lastT.
//
func (q *qss) grid() float64 {
	if !(q.maxStep > 0) {
		return math.Inf(1)
	}
	g := (math.Floor(q.lastT/q.maxStep) + 1) * q.maxStep
	if g <= q.lastT {
		g += q.maxStep
	}
	return g
}

// tagEps is the relative tolerance under which two tags are the same time.
// Scheduled times accumulate rounding errors of a few ulps.
const tagEps = 100 * 2.220446049250313e-16

func near(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= tagEps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// sameTime reports whether t is the time of the last transition. Used to
// detect a zero-delay feedback input.
//
func (q *qss) sameTime(t float64) bool { return near(t, q.lastT) }

// due reports whether the internal transition scheduled at nextT must fire
// before an input at t is handled.
//
func (q *qss) due(t float64) bool { return t >= q.nextT || near(t, q.nextT) }

type integrator struct {
	tagsim.Base
	in   *tagsim.Channel
	q    *qss
	loop bool
	init *tagsim.Event // initial output, emitted on the first step
}

// Integrator creates a quantized state (QSS1) integrator.
//
// Instead of stepping time at a fixed rate, the integrator emits a new output
// each time its state crosses a quantization level (a multiple of Delta), so
// that the step size follows the activity of the signal.
//
// The initial quantized value is computed at construction and emitted at tag
// 0 before any input is read. On each input derivative event (t, xdot), the
// integrator first fires every internal transition scheduled at or before t
// (within a few ulps), each emitting (time, level), then integrates up to t
// with the previous derivative and adopts the new one.
//
// When the output is fed back to the input through zero-delay blocks, set
// AlgebraicLoop: an input arriving at the time of the last transition then
// triggers exactly one internal transition right after the external one,
// instead of looping forever on zero elapsed time.
//
// A sentinel with a final tag T fires the internal transitions scheduled up
// to T before being forwarded.
//
//	Inputs: in (CT or DE), derivative
//	Outputs: out (CT or DE), quantized integral
//
func Integrator(name string, in, out *tagsim.Channel, cfg IntegratorConfig) (tagsim.Actor, error) {
	if !(cfg.Delta > 0) {
		return nil, errors.Errorf("%s: quantization step must be > 0, got %g", name, cfg.Delta)
	}
	if err := in.Expect(tagsim.CT, tagsim.DE); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if err := out.Expect(tagsim.CT, tagsim.DE); err != nil {
		return nil, errors.Wrap(err, name)
	}
	q := newQSS(cfg.Init, cfg.Delta, cfg.MaxStep)
	ev := q.internal()
	return &integrator{
		Base: tagsim.NewBase(name, out),
		in:   in,
		q:    q,
		loop: cfg.AlgebraicLoop,
		init: &ev,
	}, nil
}

func (n *integrator) Process(ctx context.Context) (tagsim.Step, error) {
	if n.init != nil {
		ev := *n.init
		n.init = nil
		if err := n.Emit(tagsim.Data(ev)); err != nil {
			return tagsim.Done, err
		}
	}
	it, err := n.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	switch {
	case it.IsEnd():
		if end, ok := it.EndTag(); ok {
			for n.q.due(end) {
				if err = n.Emit(tagsim.Data(n.q.internal())); err != nil {
					return tagsim.Done, err
				}
			}
		}
		return tagsim.Done, n.Emit(it)
	case it.IsInvalid():
		return tagsim.Continue, n.Emit(it)
	}

	t, xdot := it.Event().Tag(), it.Event().Value()
	if n.loop && n.q.sameTime(t) {
		n.q.external(t, xdot)
		return tagsim.Continue, n.Emit(tagsim.Data(n.q.internal()))
	}
	for n.q.due(t) {
		if err = n.Emit(tagsim.Data(n.q.internal())); err != nil {
			return tagsim.Done, err
		}
	}
	// t may precede the transition it answers by a few ulps.
	n.q.external(math.Max(t, n.q.lastT), xdot)
	return tagsim.Continue, nil
}
