// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"

	"github.com/pkg/errors"
)

type passThrough struct {
	Base
	ins   []*Channel
	ended []bool
	left  int
}

// NewPassThrough returns an actor forwarding ins[i] to outs[i] in lock-step:
// each step reads one item from every input that has not ended yet, in order,
// then writes each of them to the matching output. It stops once every input
// has ended.
//
// Input and output i must share the same domain.
//
func NewPassThrough(name string, ins, outs []*Channel) (Actor, error) {
	if len(ins) == 0 || len(ins) != len(outs) {
		return nil, errors.Errorf("pass-through %q: %d inputs for %d outputs", name, len(ins), len(outs))
	}
	for i, in := range ins {
		if err := in.Expect(outs[i].Domain()); err != nil {
			return nil, errors.Wrapf(err, "pass-through %q", name)
		}
	}
	return &passThrough{
		Base:  NewBase(name, outs...),
		ins:   ins,
		ended: make([]bool, len(ins)),
		left:  len(ins),
	}, nil
}

func (p *passThrough) Process(ctx context.Context) (Step, error) {
	items := make([]Item, len(p.ins))
	for i, in := range p.ins {
		if p.ended[i] {
			continue
		}
		it, err := in.Get(ctx)
		if err != nil {
			return Done, err
		}
		items[i] = it
	}
	for i, it := range items {
		if p.ended[i] {
			continue
		}
		if err := p.EmitTo(i, it); err != nil {
			return Done, err
		}
		if it.IsEnd() {
			p.ended[i] = true
			p.left--
		}
	}
	if p.left == 0 {
		return Done, nil
	}
	return Continue, nil
}
