// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"github.com/prometheus/client_golang/prometheus"
)

// An Emitter is an output port. It counts the items put through it when a
// Model attaches metrics to it.
//
type Emitter struct {
	ch      *Channel
	counter prometheus.Counter
}

// Emit puts it on the underlying channel.
//
func (e *Emitter) Emit(it Item) error {
	if err := e.ch.Put(it); err != nil {
		return err
	}
	if e.counter != nil {
		e.counter.Inc()
	}
	return nil
}

// Channel returns the underlying channel.
//
func (e *Emitter) Channel() *Channel { return e.ch }

// Base provides the name and output ports of an actor. Concrete actors embed
// it and implement Process.
//
//	type gain struct {
//		tagsim.Base
//		in *tagsim.Channel
//		k  float64
//	}
//
type Base struct {
	name string
	outs []*Emitter
}

// NewBase returns a Base with one output port per channel in outs.
//
func NewBase(name string, outs ...*Channel) Base {
	b := Base{name: name, outs: make([]*Emitter, len(outs))}
	for i, c := range outs {
		b.outs[i] = &Emitter{ch: c}
	}
	return b
}

// Name returns the actor name.
//
func (b *Base) Name() string { return b.name }

// Outputs returns the actor's output ports.
//
func (b *Base) Outputs() []*Emitter { return b.outs }

// Emit puts it on every output port.
//
func (b *Base) Emit(it Item) error {
	for _, o := range b.outs {
		if err := o.Emit(it); err != nil {
			return err
		}
	}
	return nil
}

// EmitEvent is a shortcut for Emit(Data(NewEvent(tag, value))).
//
func (b *Base) EmitEvent(tag, value float64) error {
	return b.Emit(Data(Event{tag, value}))
}

// EmitTo puts it on output port i only.
//
func (b *Base) EmitTo(i int, it Item) error {
	return b.outs[i].Emit(it)
}

// outputter is implemented by actors embedding Base.
//
type outputter interface {
	Outputs() []*Emitter
}
