// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package netlist builds tagsim models from YAML definitions.
//
// A model definition declares named channels with their domain, and blocks
// wired to them:
//
//	name: decay
//	channels: {xdot: CT, x: CT}
//	blocks:
//	  - {type: sequence, name: src, wires: "out=xdot", params: {tags: [0], values: [-1], end: 0.3}}
//	  - {type: integrator, name: x, wires: "in=xdot, out=x", params: {init: 1, delta: 0.1}}
//	  - {type: probe, name: xp, wires: "in=x"}
//
// Wiring strings are comma separated port=channel assignments. Ports of a bus
// are indexed from 0: "in[0]=a, in[1]=b". Every channel must have exactly one
// producer and one consumer.
//
package netlist

import (
	"io"
	"os"
	"sort"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/sigio"
	"github.com/db47h/tagsim/siglib"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelDef is a model definition.
//
type ModelDef struct {
	Name     string            `yaml:"name"`
	Channels map[string]string `yaml:"channels"`
	Blocks   []BlockDef        `yaml:"blocks"`
}

// BlockDef is a block definition.
//
type BlockDef struct {
	Type   string    `yaml:"type"`
	Name   string    `yaml:"name"`
	Wires  string    `yaml:"wires"`
	Params yaml.Node `yaml:"params"`
}

// ParseModel decodes a YAML model definition.
//
func ParseModel(r io.Reader) (*ModelDef, error) {
	var d ModelDef
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(err, "parse model")
	}
	return &d, nil
}

// LoadModel reads a YAML model definition file.
//
func LoadModel(path string) (*ModelDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := ParseModel(f)
	return d, errors.Wrap(err, path)
}

type env struct {
	store     *sigio.Store
	run       string
	modelOpts []tagsim.Option
	probes    []*siglib.Collector
}

// An Option configures Build.
//
type Option func(*env)

// WithStore makes a run store available to the "record" and "replay" blocks.
// Recorded signals are attached to run.
//
func WithStore(s *sigio.Store, run string) Option {
	return func(e *env) { e.store, e.run = s, run }
}

// WithModelOptions sets the options of the built model.
//
func WithModelOptions(opts ...tagsim.Option) Option {
	return func(e *env) { e.modelOpts = append(e.modelOpts, opts...) }
}

// Result is a model built from a definition.
//
type Result struct {
	Model    *tagsim.Model
	Channels map[string]*tagsim.Channel
	// Probes in definition order.
	Probes []*siglib.Collector
}

// Build creates the model described by def, using the block types of r.
//
func (r *Registry) Build(def *ModelDef, opts ...Option) (*Result, error) {
	e := new(env)
	for _, o := range opts {
		o(e)
	}
	if def.Name == "" {
		return nil, errors.New("model without name")
	}

	names := make([]string, 0, len(def.Channels))
	for n := range def.Channels {
		names = append(names, n)
	}
	sort.Strings(names)
	chans := make(map[string]*tagsim.Channel, len(names))
	for _, n := range names {
		d, err := tagsim.ParseDomain(def.Channels[n])
		if err != nil {
			return nil, errors.Wrapf(err, "channel %q", n)
		}
		chans[n] = tagsim.NewChannel(n, d)
	}

	var (
		actors  []tagsim.Actor
		writers = make(map[string][]string)
		readers = make(map[string][]string)
		blocks  = make(map[string]bool)
	)
	for i := range def.Blocks {
		bd := &def.Blocks[i]
		if bd.Name == "" {
			return nil, errors.Errorf("block #%d: missing name", i)
		}
		if blocks[bd.Name] {
			return nil, errors.Errorf("block %q: duplicate name", bd.Name)
		}
		blocks[bd.Name] = true
		bt, ok := r.Lookup(bd.Type)
		if !ok {
			return nil, errors.Errorf("block %q: unknown type %q", bd.Name, bd.Type)
		}
		ws, err := ParseWires(bd.Wires)
		if err != nil {
			return nil, errors.Wrapf(err, "block %q", bd.Name)
		}
		b := &Block{
			Ports:  newPorts(bd.Name, ws, chans),
			Name:   bd.Name,
			params: &bd.Params,
			env:    e,
		}
		a, err := bt.New(b)
		if err != nil {
			return nil, err
		}
		if err = b.check(); err != nil {
			return nil, err
		}
		for _, c := range b.ins {
			readers[c.Name()] = append(readers[c.Name()], bd.Name)
		}
		for _, c := range b.outs {
			writers[c.Name()] = append(writers[c.Name()], bd.Name)
		}
		actors = append(actors, a)
	}

	for _, n := range names {
		if err := checkEnds(n, "producer", writers[n]); err != nil {
			return nil, err
		}
		if err := checkEnds(n, "consumer", readers[n]); err != nil {
			return nil, err
		}
	}

	m := tagsim.NewModel(def.Name, e.modelOpts...)
	m.Add(actors...)
	return &Result{Model: m, Channels: chans, Probes: e.probes}, nil
}

func checkEnds(ch, what string, blocks []string) error {
	switch len(blocks) {
	case 0:
		return errors.Wrapf(ErrWiring, "channel %q: no %s", ch, what)
	case 1:
		return nil
	}
	return errors.Wrapf(ErrWiring, "channel %q: several %ss: %v", ch, what, blocks)
}
