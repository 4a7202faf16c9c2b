// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
)

// A GenFn generates the whole bounded output of a source by calling emit for
// every event. It returns the final tag that the end of stream sentinel will
// carry.
//
// Implementations must stop and return emit's error if it returns one.
//
type GenFn func(ctx context.Context, emit func(Event) error) (end float64, err error)

type source struct {
	Base
	gen GenFn
}

// NewSource returns a zero-input actor that emits every event generated by gen
// on outs, then the sentinel, in a single Process call.
//
//	ramp := tagsim.NewSource("ramp", func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
//		for i := 0; i < 10; i++ {
//			if err := emit(tagsim.NewEvent(float64(i), float64(i))); err != nil {
//				return 0, err
//			}
//		}
//		return 10, nil
//	}, out)
//
func NewSource(name string, gen GenFn, outs ...*Channel) Actor {
	return &source{Base: NewBase(name, outs...), gen: gen}
}

func (s *source) Process(ctx context.Context) (Step, error) {
	end, err := s.gen(ctx, func(ev Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.Emit(Data(ev))
	})
	if err != nil {
		return Done, err
	}
	return Done, s.Emit(EndAt(end))
}
