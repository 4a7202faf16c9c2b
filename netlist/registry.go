// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package netlist

import (
	"sort"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/sigio"
	"github.com/db47h/tagsim/siglib"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// A Block is the build context of one block of a model definition. It gives
// constructors access to the block ports and parameters.
//
type Block struct {
	*Ports
	Name   string
	params *yaml.Node
	env    *env
}

// Params decodes the block parameters into v, a pointer to a struct.
//
func (b *Block) Params(v interface{}) error {
	return decodeParams(b.Name, b.params, v)
}

// Probe registers a collector whose content is reported once the model is
// done.
//
func (b *Block) Probe(c *siglib.Collector) {
	b.env.probes = append(b.env.probes, c)
}

// Store returns the run store and current run id, if any.
//
func (b *Block) Store() (*sigio.Store, string, bool) {
	return b.env.store, b.env.run, b.env.store != nil
}

// NewBlockFn creates the actor of a block.
//
type NewBlockFn func(b *Block) (tagsim.Actor, error)

// BlockType describes a type of block.
//
type BlockType struct {
	Name  string
	Ports string // ports summary, for documentation
	New   NewBlockFn
}

// Registry maps block type names to block types.
//
type Registry struct {
	types map[string]*BlockType
}

// NewRegistry returns a new registry populated with the given types.
//
func NewRegistry(types ...BlockType) (*Registry, error) {
	r := &Registry{types: make(map[string]*BlockType, len(types))}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a block type to the registry.
//
func (r *Registry) Register(t BlockType) error {
	if t.Name == "" || t.New == nil {
		return errors.New("block type without name or constructor")
	}
	if _, ok := r.types[t.Name]; ok {
		return errors.Errorf("block type %q already registered", t.Name)
	}
	r.types[t.Name] = &t
	return nil
}

// Lookup returns the block type with the given name.
//
func (r *Registry) Lookup(name string) (*BlockType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns all registered block types sorted by name.
//
func (r *Registry) Types() []BlockType {
	ts := make([]BlockType, 0, len(r.types))
	for _, t := range r.types {
		ts = append(ts, *t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
	return ts
}

// Builtin returns a registry populated with all the blocks of packages
// tagsim, siglib and sigio.
//
func Builtin() *Registry {
	r, err := NewRegistry(builtins...)
	if err != nil {
		panic(err)
	}
	return r
}

type reduceParams struct {
	Keep     bool `yaml:"keep"`
	Capacity *int `yaml:"capacity"`
}

func (p *reduceParams) options() []tagsim.ReduceOption {
	var opts []tagsim.ReduceOption
	if p.Keep {
		opts = append(opts, tagsim.KeepIncomplete())
	}
	if p.Capacity != nil {
		opts = append(opts, tagsim.BufferCapacity(*p.Capacity))
	}
	return opts
}

type samplingParams struct {
	Start  float64 `yaml:"start"`
	Stop   float64 `yaml:"stop"`
	Period float64 `yaml:"period"`
}

func (p samplingParams) sampling() siglib.Sampling {
	return siglib.Sampling{Start: p.Start, Stop: p.Stop, Period: p.Period}
}

// siso builds a block with one input "in" and one output "out".
//
func siso(b *Block, params interface{}, f func(in, out *tagsim.Channel) (tagsim.Actor, error)) (tagsim.Actor, error) {
	if err := b.Params(params); err != nil {
		return nil, err
	}
	in, err := b.In("in")
	if err != nil {
		return nil, err
	}
	out, err := b.Out("out")
	if err != nil {
		return nil, err
	}
	return f(in, out)
}

// source builds a block with one output bus "out".
//
func source(b *Block, params interface{}, f func(outs []*tagsim.Channel) (tagsim.Actor, error)) (tagsim.Actor, error) {
	if err := b.Params(params); err != nil {
		return nil, err
	}
	outs, err := b.Outs("out")
	if err != nil {
		return nil, err
	}
	return f(outs)
}

var builtins = []BlockType{
	{"merge", "in[0..n] -> out; drain", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			Drain bool `yaml:"drain"`
		}
		if err := b.Params(&p); err != nil {
			return nil, err
		}
		ins, err := b.Ins("in")
		if err != nil {
			return nil, err
		}
		out, err := b.Out("out")
		if err != nil {
			return nil, err
		}
		var opts []tagsim.MergeOption
		if p.Drain {
			opts = append(opts, tagsim.DrainAll())
		}
		return tagsim.NewMerge(b.Name, out, ins, opts...)
	}},
	{"summer", "in[0..n] -> out; keep, capacity", func(b *Block) (tagsim.Actor, error) {
		var p reduceParams
		if err := b.Params(&p); err != nil {
			return nil, err
		}
		ins, err := b.Ins("in")
		if err != nil {
			return nil, err
		}
		out, err := b.Out("out")
		if err != nil {
			return nil, err
		}
		return tagsim.NewSummer(b.Name, out, ins, p.options()...)
	}},
	{"subtractor", "a, b -> out (a-b); keep, capacity", func(b *Block) (tagsim.Actor, error) {
		var p reduceParams
		if err := b.Params(&p); err != nil {
			return nil, err
		}
		x, err := b.In("a")
		if err != nil {
			return nil, err
		}
		y, err := b.In("b")
		if err != nil {
			return nil, err
		}
		out, err := b.Out("out")
		if err != nil {
			return nil, err
		}
		return tagsim.NewSubtractor(b.Name, out, x, y, p.options()...)
	}},
	{"passthrough", "in[0..n] -> out[0..n]", func(b *Block) (tagsim.Actor, error) {
		ins, err := b.Ins("in")
		if err != nil {
			return nil, err
		}
		outs, err := b.Outs("out")
		if err != nil {
			return nil, err
		}
		return tagsim.NewPassThrough(b.Name, ins, outs)
	}},
	{"integrator", "in -> out; init, delta, maxstep, loop", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			Init    float64 `yaml:"init"`
			Delta   float64 `yaml:"delta"`
			MaxStep float64 `yaml:"maxstep"`
			Loop    bool    `yaml:"loop"`
		}
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Integrator(b.Name, in, out, siglib.IntegratorConfig{
				Init:          p.Init,
				Delta:         p.Delta,
				MaxStep:       p.MaxStep,
				AlgebraicLoop: p.Loop,
			})
		})
	}},
	{"gain", "in -> out; k", func(b *Block) (tagsim.Actor, error) {
		var p struct{ K float64 }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Gain(b.Name, in, out, p.K)
		})
	}},
	{"offset", "in -> out; c", func(b *Block) (tagsim.Actor, error) {
		var p struct{ C float64 }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Offset(b.Name, in, out, p.C)
		})
	}},
	{"quantizer", "in -> out; delta", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Delta float64 }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Quantizer(b.Name, in, out, p.Delta)
		})
	}},
	{"eventfilter", "in (CT) -> out (DE); delta", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Delta float64 }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.EventFilter(b.Name, in, out, p.Delta)
		})
	}},
	{"decimator", "in -> out; n", func(b *Block) (tagsim.Actor, error) {
		var p struct{ N int }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Decimator(b.Name, in, out, p.N)
		})
	}},
	{"sampler", "in -> out; freq", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Freq float64 }
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Sampler(b.Name, in, out, p.Freq)
		})
	}},
	{"interpolator", "in -> out; factor, mode (zero, step, linear)", func(b *Block) (tagsim.Actor, error) {
		p := struct {
			Factor int
			Mode   string
		}{Mode: "linear"}
		return siso(b, &p, func(in, out *tagsim.Channel) (tagsim.Actor, error) {
			mode, err := siglib.ParseInterpMode(p.Mode)
			if err != nil {
				return nil, errors.Wrap(err, b.Name)
			}
			return siglib.Interpolator(b.Name, in, out, p.Factor, mode)
		})
	}},
	{"const", "-> out[0..n]; start, stop, period, value", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			samplingParams `yaml:",inline"`
			Value          float64 `yaml:"value"`
		}
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Const(b.Name, p.sampling(), p.Value, outs...)
		})
	}},
	{"ramp", "-> out[0..n]; start, stop, period, slope, offset", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			samplingParams `yaml:",inline"`
			Slope          float64 `yaml:"slope"`
			Offset         float64 `yaml:"offset"`
		}
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Ramp(b.Name, p.sampling(), p.Slope, p.Offset, outs...)
		})
	}},
	{"sine", "-> out[0..n]; start, stop, period, amplitude, freq, phase", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			samplingParams `yaml:",inline"`
			Amplitude      float64 `yaml:"amplitude"`
			Freq           float64 `yaml:"freq"`
			Phase          float64 `yaml:"phase"`
		}
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Sine(b.Name, p.sampling(), p.Amplitude, p.Freq, p.Phase, outs...)
		})
	}},
	{"step", "-> out[0..n]; start, stop, period, at, low, high", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			samplingParams `yaml:",inline"`
			At             float64 `yaml:"at"`
			Low            float64 `yaml:"low"`
			High           float64 `yaml:"high"`
		}
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			return siglib.StepSignal(b.Name, p.sampling(), p.At, p.Low, p.High, outs...)
		})
	}},
	{"sequence", "-> out[0..n]; tags, values, end", func(b *Block) (tagsim.Actor, error) {
		var p struct {
			Tags   []float64 `yaml:"tags"`
			Values []float64 `yaml:"values"`
			End    float64   `yaml:"end"`
		}
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			return siglib.Sequence(b.Name, p.Tags, p.Values, p.End, outs...)
		})
	}},
	{"probe", "in", func(b *Block) (tagsim.Actor, error) {
		in, err := b.In("in")
		if err != nil {
			return nil, err
		}
		c := siglib.NewCollector(b.Name, in)
		b.Probe(c)
		return c, nil
	}},
	{"jsonreader", "-> out[0..n]; path", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Path string }
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			if p.Path == "" {
				return nil, errors.Errorf("%s: missing path", b.Name)
			}
			return sigio.NewJSONReader(b.Name, p.Path, outs...), nil
		})
	}},
	{"jsonwriter", "in; path", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Path string }
		if err := b.Params(&p); err != nil {
			return nil, err
		}
		if p.Path == "" {
			return nil, errors.Errorf("%s: missing path", b.Name)
		}
		in, err := b.In("in")
		if err != nil {
			return nil, err
		}
		return sigio.NewJSONWriter(b.Name, in, p.Path), nil
	}},
	{"record", "in; signal (defaults to the block name)", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Signal string }
		if err := b.Params(&p); err != nil {
			return nil, err
		}
		s, run, ok := b.Store()
		if !ok {
			return nil, errors.Errorf("%s: no run store", b.Name)
		}
		if p.Signal == "" {
			p.Signal = b.Name
		}
		in, err := b.In("in")
		if err != nil {
			return nil, err
		}
		return s.Writer(b.Name, in, run, p.Signal), nil
	}},
	{"replay", "-> out[0..n]; run, signal", func(b *Block) (tagsim.Actor, error) {
		var p struct{ Run, Signal string }
		return source(b, &p, func(outs []*tagsim.Channel) (tagsim.Actor, error) {
			s, _, ok := b.Store()
			if !ok {
				return nil, errors.Errorf("%s: no run store", b.Name)
			}
			if p.Run == "" || p.Signal == "" {
				return nil, errors.Errorf("%s: missing run or signal", b.Name)
			}
			return s.Replay(b.Name, p.Run, p.Signal, outs...), nil
		})
	}},
}
