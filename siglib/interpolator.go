package siglib

import (
	"context"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// InterpMode selects the values of the synthetic events inserted by an
// Interpolator.
//
type InterpMode int

// Interpolation modes.
//
const (
	InterpZero   InterpMode = iota // synthetic values are 0 (zero stuffing).
	InterpStep                     // synthetic values hold the previous real value.
	InterpLinear                   // synthetic values lie on the line between real values.
)

var interpModes = map[string]InterpMode{
	"zero":   InterpZero,
	"step":   InterpStep,
	"linear": InterpLinear,
}

// ParseInterpMode returns the mode named s: "zero", "step" or "linear".
//
func ParseInterpMode(s string) (InterpMode, error) {
	m, ok := interpModes[s]
	if !ok {
		return 0, errors.Errorf("unknown interpolation mode %q", s)
	}
	return m, nil
}

type interpolator struct {
	tagsim.Base
	in     *tagsim.Channel
	factor int
	mode   InterpMode
	dt     bool

	started bool
	prevTag float64 // CT: tag of the previous real event; DT: last output tag
	prevVal float64
}

// Interpolator creates an up-sampler inserting factor-1 synthetic events
// between consecutive real events.
//
// In the CT domain, synthetic tags are evenly spaced between the tags of the
// real events. In the DT domain, all output tags stay integers: synthetic
// events are tagged lastOutput+1 ... lastOutput+factor-1, and the real event
// is re-tagged lastOutput+factor.
//
func Interpolator(name string, in, out *tagsim.Channel, factor int, mode InterpMode) (tagsim.Actor, error) {
	if factor < 1 {
		return nil, errors.Errorf("%s: interpolation factor must be >= 1, got %d", name, factor)
	}
	if mode < InterpZero || mode > InterpLinear {
		return nil, errors.Errorf("%s: invalid interpolation mode %d", name, mode)
	}
	if err := sameDomain(name, in, out, tagsim.CT, tagsim.DT); err != nil {
		return nil, err
	}
	return &interpolator{
		Base:   tagsim.NewBase(name, out),
		in:     in,
		factor: factor,
		mode:   mode,
		dt:     in.Domain() == tagsim.DT,
	}, nil
}

func (p *interpolator) Process(ctx context.Context) (tagsim.Step, error) {
	it, err := p.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	switch {
	case it.IsEnd():
		return tagsim.Done, p.Emit(it)
	case it.IsInvalid():
		return tagsim.Continue, p.Emit(it)
	}

	t, v := it.Event().Tag(), it.Event().Value()
	if !p.started {
		p.started = true
		p.prevTag, p.prevVal = t, v
		return tagsim.Continue, p.EmitEvent(t, v)
	}

	n := float64(p.factor)
	span := t - p.prevTag
	if p.dt {
		span = n
	}
	for k := 1; k < p.factor; k++ {
		f := float64(k) / n
		var sv float64
		switch p.mode {
		case InterpStep:
			sv = p.prevVal
		case InterpLinear:
			sv = p.prevVal + f*(v-p.prevVal)
		}
		st := p.prevTag + f*span
		if p.dt {
			st = p.prevTag + float64(k)
		}
		if err = p.EmitEvent(st, sv); err != nil {
			return tagsim.Done, err
		}
	}
	if p.dt {
		t = p.prevTag + n
	}
	p.prevTag, p.prevVal = t, v
	return tagsim.Continue, p.EmitEvent(t, v)
}
