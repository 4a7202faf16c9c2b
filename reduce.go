// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// DefaultBufferCapacity is the default maximum number of events a Summer or
// Subtractor keeps for tags that are not complete yet.
//
const DefaultBufferCapacity = 1 << 16

// A ReduceOption configures a Summer or Subtractor.
//
type ReduceOption func(*reducer)

// KeepIncomplete makes the reducer combine the contributions available at a
// tag even when some inputs have no event at that tag. Missing contributions
// count as 0. By default, incomplete tags are discarded.
//
func KeepIncomplete() ReduceOption {
	return func(r *reducer) { r.keep = true }
}

// BufferCapacity sets the maximum number of buffered events. Process fails
// with ErrBufferOverflow when an input runs too far ahead of the others. A
// capacity of 0 means no limit.
//
func BufferCapacity(n int) ReduceOption {
	return func(r *reducer) { r.capacity = n }
}

// group holds the contributions of every input at a given tag.
//
type group struct {
	tag  float64
	vals []float64
	have []bool
	n    int
}

type reducer struct {
	Base
	ins      []*Channel
	ended    []bool
	ends     []Item
	op       func(vals []float64) float64
	keep     bool
	capacity int

	reads   []Item
	pending []*group // sorted by tag
	size    int      // buffered event count
}

// NewSummer returns an actor that emits, for every distinct tag, the sum of the
// values of its inputs at that tag.
//
// Each step does one blocking read from every input that has not ended yet.
// When all reads share the same tag, their sum is emitted directly. Otherwise
// the reads are buffered and only the oldest buffered tag is settled: it is
// combined if every input contributed to it (or KeepIncomplete is set) and
// discarded otherwise. Later tags stay buffered for the next steps. When all
// inputs have ended, the buffer is drained oldest tag first under the same
// rule and the sentinel is forwarded.
//
func NewSummer(name string, out *Channel, ins []*Channel, opts ...ReduceOption) (Actor, error) {
	if len(ins) < 2 {
		return nil, errors.Errorf("summer %q: need at least 2 inputs, got %d", name, len(ins))
	}
	return newReducer(name, out, ins, sum, opts)
}

// NewSubtractor returns an actor that emits a - b for every distinct tag,
// using the same alignment rules as NewSummer.
//
func NewSubtractor(name string, out, a, b *Channel, opts ...ReduceOption) (Actor, error) {
	return newReducer(name, out, []*Channel{a, b}, sub, opts)
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func sub(vals []float64) float64 { return vals[0] - vals[1] }

func newReducer(name string, out *Channel, ins []*Channel, op func([]float64) float64, opts []ReduceOption) (Actor, error) {
	if err := expectAll(ins, out.Domain()); err != nil {
		return nil, errors.Wrapf(err, "reducer %q", name)
	}
	r := &reducer{
		Base:     NewBase(name, out),
		ins:      ins,
		ended:    make([]bool, len(ins)),
		op:       op,
		capacity: DefaultBufferCapacity,
		reads:    make([]Item, len(ins)),
	}
	for _, o := range opts {
		o(r)
	}
	if r.capacity < 0 {
		return nil, errors.Errorf("reducer %q: negative buffer capacity", name)
	}
	return r, nil
}

func (r *reducer) Process(ctx context.Context) (Step, error) {
	var (
		n       int // data reads this step
		first   float64
		aligned = true
	)
	for i, in := range r.ins {
		if r.ended[i] {
			r.reads[i] = End()
			continue
		}
		it, err := in.Get(ctx)
		if err != nil {
			return Done, err
		}
		r.reads[i] = it
		switch {
		case it.IsEnd():
			r.ended[i] = true
			r.ends = append(r.ends, it)
			aligned = false
		case it.IsInvalid():
			if err = r.Emit(it); err != nil {
				return Done, err
			}
			r.reads[i] = End()
			aligned = false
		default:
			if n == 0 {
				first = it.Tag()
			} else if it.Tag() != first {
				aligned = false
			}
			n++
		}
	}

	if r.allEnded() {
		for len(r.pending) > 0 {
			if err := r.settle(); err != nil {
				return Done, err
			}
		}
		return Done, r.Emit(endOf(r.ends...))
	}

	// aligned reads bypass the buffer only when nothing older is pending.
	if aligned && n == len(r.ins) && len(r.pending) == 0 {
		vals := make([]float64, len(r.ins))
		for i, it := range r.reads {
			vals[i] = it.Event().Value()
		}
		return Continue, r.EmitEvent(first, r.op(vals))
	}

	for i, it := range r.reads {
		if it.IsData() {
			if err := r.buffer(i, it.Event()); err != nil {
				return Done, err
			}
		}
	}
	if len(r.pending) > 0 {
		return Continue, r.settle()
	}
	return Continue, nil
}

func (r *reducer) allEnded() bool {
	for _, e := range r.ended {
		if !e {
			return false
		}
	}
	return true
}

// buffer adds the contribution of input i.
//
func (r *reducer) buffer(i int, ev Event) error {
	if r.capacity > 0 && r.size >= r.capacity {
		return errors.Wrapf(ErrBufferOverflow, "reducer %q: %d events pending", r.name, r.size)
	}
	k := sort.Search(len(r.pending), func(j int) bool { return r.pending[j].tag >= ev.tag })
	if k == len(r.pending) || r.pending[k].tag != ev.tag {
		g := &group{
			tag:  ev.tag,
			vals: make([]float64, len(r.ins)),
			have: make([]bool, len(r.ins)),
		}
		r.pending = append(r.pending, nil)
		copy(r.pending[k+1:], r.pending[k:])
		r.pending[k] = g
	}
	g := r.pending[k]
	if g.have[i] {
		// same tag twice on one input: the later event replaces the earlier.
		g.vals[i] = ev.value
		return nil
	}
	g.vals[i], g.have[i] = ev.value, true
	g.n++
	r.size++
	return nil
}

// settle removes the oldest pending group and emits its combination if it is
// complete or if incomplete groups are kept.
//
func (r *reducer) settle() error {
	g := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	r.size -= g.n
	if g.n == len(r.ins) || r.keep {
		return r.EmitEvent(g.tag, r.op(g.vals))
	}
	return nil
}
