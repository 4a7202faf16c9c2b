package siglib

import (
	"context"
	"math"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

type eventFilter struct {
	tagsim.Base
	in    *tagsim.Channel
	delta float64

	started bool
	level   float64 // current level index
	t, v    float64 // last raw sample
}

// EventFilter creates a block converting a continuous-time signal into a
// discrete-event stream of quantization levels.
//
// The first input event produces the initial level. After that, an event is
// emitted only when the level changes, tagged with the time at which the raw
// signal crosses the boundary next to the previous level, linearly
// interpolated between the previous and current samples.
//
//	Inputs: in (CT)
//	Outputs: out (DE)
//
func EventFilter(name string, in, out *tagsim.Channel, delta float64) (tagsim.Actor, error) {
	if !(delta > 0) {
		return nil, errors.Errorf("%s: quantization step must be > 0, got %g", name, delta)
	}
	if err := in.Expect(tagsim.CT); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if err := out.Expect(tagsim.DE); err != nil {
		return nil, errors.Wrap(err, name)
	}
	return &eventFilter{Base: tagsim.NewBase(name, out), in: in, delta: delta}, nil
}

func (f *eventFilter) Process(ctx context.Context) (tagsim.Step, error) {
	it, err := f.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	switch {
	case it.IsEnd():
		return tagsim.Done, f.Emit(it)
	case it.IsInvalid():
		return tagsim.Continue, f.Emit(it)
	}

	t, v := it.Event().Tag(), it.Event().Value()
	level := math.Round(v / f.delta)
	if !f.started {
		f.started = true
		f.level, f.t, f.v = level, t, v
		return tagsim.Continue, f.EmitEvent(t, level*f.delta)
	}
	t0, v0, prev := f.t, f.v, f.level
	f.t, f.v = t, v
	if level == prev {
		return tagsim.Continue, nil
	}
	f.level = level

	tc := t
	if v != v0 {
		b := (prev + math.Copysign(0.5, level-prev)) * f.delta
		tc = t0 + (b-v0)/(v-v0)*(t-t0)
		tc = math.Max(t0, math.Min(t, tc))
	}
	return tagsim.Continue, f.EmitEvent(tc, level*f.delta)
}
