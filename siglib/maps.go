// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package siglib

import (
	"math"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// sameDomain checks that out has the domain of in and that this domain is one
// of ds (any domain if ds is empty).
//
func sameDomain(name string, in, out *tagsim.Channel, ds ...tagsim.Domain) error {
	if len(ds) > 0 {
		if err := in.Expect(ds...); err != nil {
			return errors.Wrap(err, name)
		}
	}
	if err := out.Expect(in.Domain()); err != nil {
		return errors.Wrap(err, name)
	}
	return nil
}

// Gain creates a gain block.
//
//	Inputs: in
//	Outputs: out
//	Function: out = k * in
//
func Gain(name string, in, out *tagsim.Channel, k float64) (tagsim.Actor, error) {
	if err := sameDomain(name, in, out); err != nil {
		return nil, err
	}
	return tagsim.NewMap(name, in, func(v float64) float64 { return k * v }, out), nil
}

// Offset creates an offset block.
//
//	Function: out = in + c
//
func Offset(name string, in, out *tagsim.Channel, c float64) (tagsim.Actor, error) {
	if err := sameDomain(name, in, out); err != nil {
		return nil, err
	}
	return tagsim.NewMap(name, in, func(v float64) float64 { return v + c }, out), nil
}

// quantize returns the quantization level of v.
func quantize(v, delta float64) float64 {
	return delta * math.Round(v/delta)
}

// Quantizer creates a quantizer. Tags are unchanged.
//
//	Function: out = delta * round(in/delta)
//
func Quantizer(name string, in, out *tagsim.Channel, delta float64) (tagsim.Actor, error) {
	if !(delta > 0) {
		return nil, errors.Errorf("%s: quantization step must be > 0, got %g", name, delta)
	}
	if err := sameDomain(name, in, out, tagsim.CT, tagsim.DT, tagsim.DE); err != nil {
		return nil, err
	}
	return tagsim.NewMap(name, in, func(v float64) float64 { return quantize(v, delta) }, out), nil
}

// Decimator creates a decimator keeping every nth event by position (the
// first one, then n, 2n, ...), regardless of tag spacing.
//
func Decimator(name string, in, out *tagsim.Channel, n int) (tagsim.Actor, error) {
	if n < 1 {
		return nil, errors.Errorf("%s: decimation factor must be >= 1, got %d", name, n)
	}
	if err := sameDomain(name, in, out); err != nil {
		return nil, err
	}
	pos := 0
	return tagsim.NewSISO(name, in, func(ev tagsim.Event) (tagsim.Item, bool) {
		keep := pos%n == 0
		pos++
		return tagsim.Data(ev), keep
	}, out), nil
}
