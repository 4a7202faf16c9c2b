package siglib

import (
	"context"
	"math"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// relative tolerance on tag arithmetic.
const tagTol = 1e-9

type sampler struct {
	tagsim.Base
	in     *tagsim.Channel
	period float64 // output period
	first  *tagsim.Event
	last   float64 // tag of the last event passed through
	state  int
}

const (
	samplerInit = iota
	samplerHold // first event held until the input rate is known
	samplerRun
	samplerInvalid
)

// Sampler creates a down-sampler to freq events per tag unit.
//
// The input rate is inferred from the spacing of the first two input events.
// If freq does not divide it exactly, the sampler emits a single invalid input
// marker and discards the rest of its input. Otherwise the first event and
// every event exactly one output period after the previously passed event are
// forwarded.
//
func Sampler(name string, in, out *tagsim.Channel, freq float64) (tagsim.Actor, error) {
	if !(freq > 0) {
		return nil, errors.Errorf("%s: sampling frequency must be > 0, got %g", name, freq)
	}
	if err := sameDomain(name, in, out, tagsim.CT, tagsim.DT); err != nil {
		return nil, err
	}
	return &sampler{Base: tagsim.NewBase(name, out), in: in, period: 1 / freq}, nil
}

func (s *sampler) Process(ctx context.Context) (tagsim.Step, error) {
	it, err := s.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	if it.IsEnd() {
		if s.state == samplerHold {
			if err = s.Emit(tagsim.Data(*s.first)); err != nil {
				return tagsim.Done, err
			}
		}
		return tagsim.Done, s.Emit(it)
	}
	if s.state == samplerInvalid {
		return tagsim.Continue, nil
	}
	if it.IsInvalid() {
		return tagsim.Continue, s.Emit(it)
	}

	ev := it.Event()
	switch s.state {
	case samplerInit:
		s.first = &ev
		s.state = samplerHold
		return tagsim.Continue, nil
	case samplerHold:
		ratio := s.period / (ev.Tag() - s.first.Tag()) // input rate / freq
		if math.IsInf(ratio, 0) || ratio < 1-tagTol || math.Abs(ratio-math.Round(ratio)) > tagTol*ratio {
			s.state = samplerInvalid
			return tagsim.Continue, s.Emit(tagsim.Invalid(s.first.Tag()))
		}
		s.state = samplerRun
		s.last = s.first.Tag()
		if err = s.Emit(tagsim.Data(*s.first)); err != nil {
			return tagsim.Done, err
		}
	}
	if d := ev.Tag() - s.last; math.Abs(d-s.period) <= tagTol*math.Max(1, s.period) {
		s.last = ev.Tag()
		return tagsim.Continue, s.Emit(it)
	}
	return tagsim.Continue, nil
}
