// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package siglib provides a library of reusable blocks for tagsim.
//
// Copyright 2018 Denis Bernard <db047h@gmail.com>
//
// This package is licensed under the MIT license. See license text in the LICENSE file.
//
package siglib

import (
	"context"
	"math"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// Sampling describes the tags at which a source emits events: every
// Start + k*Period strictly before Stop. The end of stream sentinel carries
// Stop as its final tag.
//
type Sampling struct {
	Start  float64
	Stop   float64
	Period float64
}

func (s Sampling) check(name string) error {
	switch {
	case !(s.Period > 0):
		return errors.Errorf("%s: sampling period must be > 0, got %g", name, s.Period)
	case s.Stop < s.Start:
		return errors.Errorf("%s: stop time %g before start time %g", name, s.Stop, s.Start)
	}
	return nil
}

// each calls f for every sample tag.
//
func (s Sampling) each(f func(t float64) error) error {
	for k := 0; ; k++ {
		t := s.Start + float64(k)*s.Period
		if t >= s.Stop {
			return nil
		}
		if err := f(t); err != nil {
			return err
		}
	}
}

// Function creates a source sampling f.
//
//	Outputs: outs
//	Function: out(t) = f(t)
//
func Function(name string, s Sampling, f func(t float64) float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	if err := s.check(name); err != nil {
		return nil, err
	}
	return tagsim.NewSource(name, func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
		err := s.each(func(t float64) error {
			return emit(tagsim.NewEvent(t, f(t)))
		})
		return s.Stop, err
	}, outs...), nil
}

// Const creates a constant source.
//
//	Function: out(t) = v
//
func Const(name string, s Sampling, v float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	return Function(name, s, func(float64) float64 { return v }, outs...)
}

// Ramp creates a ramp source.
//
//	Function: out(t) = offset + slope*(t-start)
//
func Ramp(name string, s Sampling, slope, offset float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	return Function(name, s, func(t float64) float64 { return offset + slope*(t-s.Start) }, outs...)
}

// Sine creates a sine wave source.
//
//	Function: out(t) = amplitude * sin(2*pi*freq*t + phase)
//
func Sine(name string, s Sampling, amplitude, freq, phase float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	return Function(name, s, func(t float64) float64 {
		return amplitude * math.Sin(2*math.Pi*freq*t+phase)
	}, outs...)
}

// StepSignal creates a step source.
//
//	Function: out(t) = low if t < at, high otherwise
//
func StepSignal(name string, s Sampling, at, low, high float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	return Function(name, s, func(t float64) float64 {
		if t < at {
			return low
		}
		return high
	}, outs...)
}

// Sequence creates a source replaying the given events, then a sentinel
// carrying end as its final tag. Tags must not decrease.
//
func Sequence(name string, tags, values []float64, end float64, outs ...*tagsim.Channel) (tagsim.Actor, error) {
	if len(tags) != len(values) {
		return nil, errors.Errorf("%s: %d tags for %d values", name, len(tags), len(values))
	}
	for i := 1; i < len(tags); i++ {
		if tags[i] < tags[i-1] {
			return nil, errors.Errorf("%s: tag #%d (%g) before tag #%d (%g)", name, i, tags[i], i-1, tags[i-1])
		}
	}
	return tagsim.NewSource(name, func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
		for i := range tags {
			if err := emit(tagsim.NewEvent(tags[i], values[i])); err != nil {
				return 0, err
			}
		}
		return end, nil
	}, outs...), nil
}
