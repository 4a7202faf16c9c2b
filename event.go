// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tagsim

import (
	"math"
	"strconv"
)

// An Event is an immutable (tag, value) pair. Tags are simulated time in the
// CT and DE domains and sample indices in the DT domain.
//
// Events are comparable: two events are equal iff their tags and values are
// equal.
//
type Event struct {
	tag   float64
	value float64
}

// NewEvent returns a new event.
//
func NewEvent(tag, value float64) Event {
	return Event{tag, value}
}

// Tag returns the event's tag.
//
func (e Event) Tag() float64 { return e.tag }

// Value returns the event's value.
//
func (e Event) Value() float64 { return e.value }

func (e Event) String() string {
	return "(" + fmtFloat(e.tag) + ", " + fmtFloat(e.value) + ")"
}

type kind uint8

const (
	kindData kind = iota
	kindInvalid
	kindEnd
)

// An Item is what travels on a Channel: either a data Event, an invalid input
// marker or the end of stream sentinel.
//
// The zero Item is a data event (0, 0).
//
type Item struct {
	ev    Event
	kind  kind
	timed bool // for kindEnd: ev.tag holds the final tag
}

// Data wraps an event into a data item.
//
func Data(ev Event) Item { return Item{ev: ev, kind: kindData} }

// Invalid returns an invalid input marker at the given tag. Actors emit it
// instead of data when their input cannot be processed, and continue.
//
func Invalid(tag float64) Item {
	return Item{ev: Event{tag: tag}, kind: kindInvalid}
}

// End returns an end of stream sentinel without a final tag.
//
func End() Item { return Item{kind: kindEnd} }

// EndAt returns an end of stream sentinel carrying the final tag t, usually
// the end of simulation time.
//
func EndAt(t float64) Item {
	return Item{ev: Event{tag: t}, kind: kindEnd, timed: true}
}

// IsData returns true if it wraps a data event.
//
func (it Item) IsData() bool { return it.kind == kindData }

// IsInvalid returns true if it is an invalid input marker.
//
func (it Item) IsInvalid() bool { return it.kind == kindInvalid }

// IsEnd returns true if it is the end of stream sentinel.
//
func (it Item) IsEnd() bool { return it.kind == kindEnd }

// Event returns the wrapped event. For invalid markers, the value is always 0.
// The result is meaningless for sentinels, use EndTag instead.
//
func (it Item) Event() Event { return it.ev }

// Tag returns the tag of a data item or invalid marker. Sentinels without a
// final tag return +Inf so that they sort after everything else.
//
func (it Item) Tag() float64 {
	if it.kind == kindEnd && !it.timed {
		return math.Inf(1)
	}
	return it.ev.tag
}

// EndTag returns the final tag carried by a sentinel. ok is false if it is not
// a sentinel or if the sentinel has no final tag.
//
func (it Item) EndTag() (t float64, ok bool) {
	if it.kind != kindEnd || !it.timed {
		return 0, false
	}
	return it.ev.tag, true
}

func (it Item) String() string {
	switch it.kind {
	case kindInvalid:
		return "INVALID@" + fmtFloat(it.ev.tag)
	case kindEnd:
		if it.timed {
			return "END@" + fmtFloat(it.ev.tag)
		}
		return "END"
	}
	return it.ev.String()
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// endOf returns a sentinel carrying the largest final tag found in items, or an
// untimed sentinel if none has one.
//
func endOf(items ...Item) Item {
	var (
		t  float64
		ok bool
	)
	for _, it := range items {
		if et, timed := it.EndTag(); timed && (!ok || et > t) {
			t, ok = et, true
		}
	}
	if !ok {
		return End()
	}
	return EndAt(t)
}
