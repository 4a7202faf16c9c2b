// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
	"sync"
	"sync/atomic"
)

// Step is the result of one Process call.
//
type Step int

// Process results.
//
const (
	Continue Step = iota // call Process again.
	Done                 // the actor is stopped.
)

// An Actor is an independently scheduled unit with zero or more input channels
// and zero or more output channels.
//
// Process runs one step of the actor. Sources do their whole bounded
// generation in a single call and return Done. Stream transforms do one
// blocking read (or one synchronized multi-read) per call and return Done once
// they have forwarded the end of stream sentinel.
//
// Process must return promptly with ctx.Err() when ctx is cancelled. Any other
// error terminates the actor.
//
type Actor interface {
	Name() string
	Process(ctx context.Context) (Step, error)
}

// A Runner runs an Actor on its own goroutine.
//
type Runner struct {
	a       Actor
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	err     error
	steps   func() // step hook, may be nil
}

// NewRunner returns a Runner for a. The actor does not run until Start is
// called.
//
func NewRunner(a Actor) *Runner {
	return &Runner{a: a, done: make(chan struct{})}
}

// Actor returns the actor run by r.
//
func (r *Runner) Actor() Actor { return r.a }

// Start begins independent execution of the actor. Calling Start more than
// once has no effect.
//
func (r *Runner) Start(ctx context.Context) {
	r.once.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		go r.run(ctx)
	})
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)
	defer r.cancel()
	for !r.stopped.Load() {
		if err := ctx.Err(); err != nil {
			r.err = err
			return
		}
		s, err := r.a.Process(ctx)
		if r.steps != nil {
			r.steps()
		}
		if err != nil {
			r.err = err
			return
		}
		if s == Done {
			r.stopped.Store(true)
		}
	}
}

// Terminate requests an early stop. The actor exits its run loop at the next
// step boundary, or as soon as a blocking channel operation notices the
// cancellation. No sentinel is forwarded downstream.
//
func (r *Runner) Terminate() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Join waits for the actor's goroutine to exit and returns the error that
// stopped it, if any. Join must not be called before Start.
//
func (r *Runner) Join() error {
	<-r.done
	return r.err
}

// Stopped returns true once the actor has completed its normal termination.
//
func (r *Runner) Stopped() bool { return r.stopped.Load() }
