// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sigio provides actors persisting signals to files and databases and
// replaying them.
//
// Files hold a JSON array of [tag, value] pairs:
//
//	[[0, 1], [0.5, 0.9], [1, 0.81]]
//
package sigio

import (
	"context"
	"os"
	"path/filepath"

	"github.com/db47h/tagsim"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ReadJSON reads a signal file.
//
func ReadJSON(path string) ([]tagsim.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var pairs [][2]float64
	if err = json.NewDecoder(f).Decode(&pairs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	evs := make([]tagsim.Event, len(pairs))
	for i, p := range pairs {
		if i > 0 && p[0] < pairs[i-1][0] {
			return nil, errors.Errorf("%s: tag #%d (%g) before tag #%d (%g)", path, i, p[0], i-1, pairs[i-1][0])
		}
		evs[i] = tagsim.NewEvent(p[0], p[1])
	}
	return evs, nil
}

// WriteJSON writes evs to a signal file. The file is replaced atomically.
//
func WriteJSON(path string, evs []tagsim.Event) error {
	pairs := make([][2]float64, len(evs))
	for i, ev := range evs {
		pairs[i] = [2]float64{ev.Tag(), ev.Value()}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// NewJSONReader returns a source replaying the signal file at path. The file
// is read when the actor runs. The sentinel carries the tag of the last event.
//
//	Outputs: out
//
func NewJSONReader(name, path string, out ...*tagsim.Channel) tagsim.Actor {
	return tagsim.NewSource(name, func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
		evs, err := ReadJSON(path)
		if err != nil {
			return 0, errors.Wrap(err, name)
		}
		return replay(evs, emit)
	}, out...)
}

func replay(evs []tagsim.Event, emit func(tagsim.Event) error) (float64, error) {
	end := 0.0
	for _, ev := range evs {
		if err := emit(ev); err != nil {
			return 0, err
		}
		end = ev.Tag()
	}
	return end, nil
}

// A batch accumulates the data events read from a channel until its sentinel,
// then calls flush once. Invalid markers are dropped.
//
type batch struct {
	name  string
	in    *tagsim.Channel
	evs   []tagsim.Event
	flush func([]tagsim.Event) error
}

func (b *batch) Name() string { return b.name }

func (b *batch) Process(ctx context.Context) (tagsim.Step, error) {
	it, err := b.in.Get(ctx)
	if err != nil {
		return tagsim.Done, err
	}
	switch {
	case it.IsEnd():
		return tagsim.Done, errors.Wrap(b.flush(b.evs), b.name)
	case it.IsData():
		b.evs = append(b.evs, it.Event())
	}
	return tagsim.Continue, nil
}

// NewJSONWriter returns a sink writing every event read from in to the signal
// file at path, in one batch once the sentinel is read.
//
//	Inputs: in
//
func NewJSONWriter(name string, in *tagsim.Channel, path string) tagsim.Actor {
	return &batch{name: name, in: in, flush: func(evs []tagsim.Event) error {
		return WriteJSON(path, evs)
	}}
}
