// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"

	"github.com/pkg/errors"
)

// MergeOption configures a Merge.
//
type MergeOption func(*merge)

// DrainAll makes the merge keep running after some of its inputs have ended,
// until every input has delivered its sentinel. By default, the merge stops as
// soon as any input ends and the data still pending on the other inputs is
// lost.
//
func DrainAll() MergeOption {
	return func(m *merge) { m.drain = true }
}

type merge struct {
	Base
	ins   []*Channel
	done  []bool // input delivered its sentinel (DrainAll only)
	ends  []Item // sentinels seen so far
	drain bool
	heads []Item
}

// NewMerge returns an actor combining two or more input streams into a single
// output stream in a total, deterministic order.
//
// Each step peeks the head of every input. The inputs whose head has the
// smallest tag are consumed and forwarded in the order in which they are
// listed in ins. Ties between simultaneous events are therefore always broken
// the same way, regardless of producer scheduling. The other inputs keep their
// head for the next step.
//
// All channels must share the same domain.
//
func NewMerge(name string, out *Channel, ins []*Channel, opts ...MergeOption) (Actor, error) {
	if len(ins) < 2 {
		return nil, errors.Errorf("merge %q: need at least 2 inputs, got %d", name, len(ins))
	}
	if err := expectAll(ins, out.Domain()); err != nil {
		return nil, errors.Wrapf(err, "merge %q", name)
	}
	m := &merge{
		Base:  NewBase(name, out),
		ins:   ins,
		done:  make([]bool, len(ins)),
		heads: make([]Item, len(ins)),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *merge) Process(ctx context.Context) (Step, error) {
	var (
		active, ended int
		oldest        float64
		found         bool
	)
	for i, in := range m.ins {
		if m.done[i] {
			continue
		}
		it, err := in.Peek(ctx)
		if err != nil {
			return Done, err
		}
		m.heads[i] = it
		active++
		if it.IsEnd() {
			ended++
			continue
		}
		if t := it.Tag(); !found || t < oldest {
			oldest, found = t, true
		}
	}

	if ended > 0 {
		if ended == active || !m.drain {
			// end of run. Pending data on the other inputs is discarded.
			for i := range m.ins {
				if !m.done[i] && m.heads[i].IsEnd() {
					m.ends = append(m.ends, m.heads[i])
				}
			}
			return Done, m.Emit(endOf(m.ends...))
		}
		for i, in := range m.ins {
			if !m.done[i] && m.heads[i].IsEnd() {
				if _, err := in.Get(ctx); err != nil {
					return Done, err
				}
				m.done[i] = true
				m.ends = append(m.ends, m.heads[i])
			}
		}
		return Continue, nil
	}

	for i, in := range m.ins {
		if m.done[i] || m.heads[i].Tag() != oldest {
			continue
		}
		it, err := in.Get(ctx)
		if err != nil {
			return Done, err
		}
		if err = m.Emit(it); err != nil {
			return Done, err
		}
	}
	return Continue, nil
}
