// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
)

// A MapFn computes the output of a single input, single output actor for one
// input event. If ok is false, nothing is written for this event. Returning
// Invalid(ev.Tag()) reports an input that cannot be processed.
//
type MapFn func(ev Event) (out Item, ok bool)

type siso struct {
	Base
	in *Channel
	fn MapFn
}

// NewSISO returns an actor that reads one event from in, applies fn and writes
// zero or one item to outs. Invalid markers are forwarded unchanged and the
// sentinel is forwarded before the actor stops.
//
func NewSISO(name string, in *Channel, fn MapFn, outs ...*Channel) Actor {
	return &siso{Base: NewBase(name, outs...), in: in, fn: fn}
}

// NewMap returns a SISO actor applying f to every value. Tags are unchanged.
//
func NewMap(name string, in *Channel, f func(float64) float64, outs ...*Channel) Actor {
	return NewSISO(name, in, func(ev Event) (Item, bool) {
		return Data(Event{ev.tag, f(ev.value)}), true
	}, outs...)
}

func (s *siso) Process(ctx context.Context) (Step, error) {
	it, err := s.in.Get(ctx)
	if err != nil {
		return Done, err
	}
	switch {
	case it.IsEnd():
		return Done, s.Emit(it)
	case it.IsInvalid():
		return Continue, s.Emit(it)
	}
	if out, ok := s.fn(it.Event()); ok {
		return Continue, s.Emit(out)
	}
	return Continue, nil
}
