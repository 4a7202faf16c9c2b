// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package siglib

import (
	"context"
	"sync"

	"github.com/db47h/tagsim"
)

type output struct {
	name string
	in   *tagsim.Channel
	fn   func(tagsim.Item)
}

// Output creates an output or probe. The fn function is called with every
// item read from in, the final sentinel included.
//
//	Inputs: in
//	Function: fn(in)
//
func Output(name string, in *tagsim.Channel, fn func(tagsim.Item)) tagsim.Actor {
	return &output{name: name, in: in, fn: fn}
}

func (o *output) Name() string { return o.name }

func (o *output) Process(ctx context.Context) (tagsim.Step, error) {
	it, err := o.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	o.fn(it)
	if it.IsEnd() {
		return tagsim.Done, nil
	}
	return tagsim.Continue, nil
}

// A Collector is a sink that records every item read from its input.
//
type Collector struct {
	tagsim.Actor
	mu    sync.Mutex
	items []tagsim.Item
}

// NewCollector returns a new Collector reading from in.
//
func NewCollector(name string, in *tagsim.Channel) *Collector {
	c := new(Collector)
	c.Actor = Output(name, in, func(it tagsim.Item) {
		c.mu.Lock()
		c.items = append(c.items, it)
		c.mu.Unlock()
	})
	return c
}

// Items returns a copy of the items collected so far.
//
func (c *Collector) Items() []tagsim.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tagsim.Item(nil), c.items...)
}

// Events returns the data events collected so far.
//
func (c *Collector) Events() []tagsim.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var evs []tagsim.Event
	for _, it := range c.items {
		if it.IsData() {
			evs = append(evs, it.Event())
		}
	}
	return evs
}
