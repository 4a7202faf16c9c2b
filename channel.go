// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// A Domain is the semantic type of a channel's contents.
//
type Domain string

// Supported domains.
//
const (
	CT  Domain = "CT"  // continuous time, tags are simulated time.
	DT  Domain = "DT"  // discrete time, tags are integer sample indices.
	DE  Domain = "DE"  // discrete event, tags are simulated time.
	BIN Domain = "BIN" // boolean, values are 0 or 1.
)

// ParseDomain returns the Domain named s.
//
func ParseDomain(s string) (Domain, error) {
	switch d := Domain(s); d {
	case CT, DT, DE, BIN:
		return d, nil
	}
	return "", errors.Wrapf(ErrDomain, "unknown domain %q", s)
}

// Errors returned by channels and actor constructors.
//
var (
	ErrClosed         = errors.New("put after end of stream")
	ErrDomain         = errors.New("domain mismatch")
	ErrBufferOverflow = errors.New("buffer overflow")
)

// A Channel is an unbounded FIFO queue of Items with a declared domain.
//
// A channel has exactly one producer and one consumer. Put never blocks. Get
// and Peek block until an item is available. At most one sentinel can be put
// on a channel and it is always the last item read from it.
//
type Channel struct {
	name   string
	domain Domain

	mu     sync.Mutex
	q      []Item
	head   int
	closed bool
	ready  chan struct{} // 1-buffered wake up signal for the consumer
}

// NewChannel returns a new channel in domain d. The name is only used in error
// and log messages.
//
func NewChannel(name string, d Domain) *Channel {
	return &Channel{
		name:   name,
		domain: d,
		ready:  make(chan struct{}, 1),
	}
}

// Name returns the channel name.
//
func (c *Channel) Name() string { return c.name }

// Domain returns the channel domain.
//
func (c *Channel) Domain() Domain { return c.domain }

// Expect checks that the channel's domain is one of ds. Actor constructors
// call it to assert their input and output domains at wiring time.
//
func (c *Channel) Expect(ds ...Domain) error {
	for _, d := range ds {
		if c.domain == d {
			return nil
		}
	}
	return errors.Wrapf(ErrDomain, "channel %q: got %s, want one of %v", c.name, c.domain, ds)
}

// Put appends it to the queue. It returns ErrClosed if a sentinel has already
// been put on the channel.
//
func (c *Channel) Put(it Item) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.Wrapf(ErrClosed, "channel %q", c.name)
	}
	c.q = append(c.q, it)
	c.closed = it.IsEnd()
	c.mu.Unlock()
	select {
	case c.ready <- struct{}{}:
	default:
	}
	return nil
}

// Get removes and returns the item at the head of the queue, waiting for one
// to be available. It returns ctx.Err() if ctx is done first.
//
func (c *Channel) Get(ctx context.Context) (Item, error) {
	return c.wait(ctx, true)
}

// Peek returns the item at the head of the queue without removing it, waiting
// for one to be available.
//
func (c *Channel) Peek(ctx context.Context) (Item, error) {
	return c.wait(ctx, false)
}

// Len returns the number of items waiting in the queue.
//
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.q) - c.head
}

func (c *Channel) wait(ctx context.Context, remove bool) (Item, error) {
	for {
		if it, ok := c.head0(remove); ok {
			return it, nil
		}
		select {
		case <-c.ready:
		case <-ctx.Done():
			return Item{}, ctx.Err()
		}
	}
}

func (c *Channel) head0(remove bool) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head == len(c.q) {
		return Item{}, false
	}
	it := c.q[c.head]
	if remove {
		c.q[c.head] = Item{}
		c.head++
		// reclaim space once the consumed prefix dominates.
		if c.head > 64 && c.head*2 > len(c.q) {
			n := copy(c.q, c.q[c.head:])
			c.q = c.q[:n]
			c.head = 0
		}
	}
	return it, true
}

// expectAll runs Expect on every channel.
//
func expectAll(cs []*Channel, ds ...Domain) error {
	for _, c := range cs {
		if err := c.Expect(ds...); err != nil {
			return err
		}
	}
	return nil
}
