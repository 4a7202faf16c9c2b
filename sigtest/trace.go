// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sigtest provides utility functions for testing actors and models.
package sigtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/db47h/tagsim"
	"github.com/stretchr/testify/require"
)

// Timeout bounds every blocking helper in this package. A model that does not
// terminate within Timeout fails the test instead of hanging it.
var Timeout = 10 * time.Second

// Feed puts one data event per (tags[i], values[i]) pair on ch, followed by a
// sentinel. If end is given, the sentinel carries end[0] as its final tag.
func Feed(t testing.TB, ch *tagsim.Channel, tags, values []float64, end ...float64) {
	t.Helper()
	require.Equal(t, len(tags), len(values), "tags and values length mismatch")
	for i := range tags {
		require.NoError(t, ch.Put(tagsim.Data(tagsim.NewEvent(tags[i], values[i]))))
	}
	if len(end) > 0 {
		require.NoError(t, ch.Put(tagsim.EndAt(end[0])))
	} else {
		require.NoError(t, ch.Put(tagsim.End()))
	}
}

// Seq returns n tags starting at start and spaced by step.
func Seq(start, step float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = start + float64(i)*step
	}
	return s
}

// Fill returns n copies of v.
func Fill(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Collect reads ch until its sentinel and returns every item read, the
// sentinel included.
func Collect(t testing.TB, ch *tagsim.Channel) []tagsim.Item {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	var items []tagsim.Item
	for {
		it, err := ch.Get(ctx)
		require.NoError(t, err, "reading channel %q", ch.Name())
		items = append(items, it)
		if it.IsEnd() {
			return items
		}
	}
}

// Run runs every actor in a fresh model and fails the test if the model does
// not terminate cleanly within Timeout.
func Run(t testing.TB, actors ...tagsim.Actor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	m := tagsim.NewModel(t.Name())
	m.Add(actors...)
	require.NoError(t, m.Run(ctx))
}

// Split returns the tags and values of the data items in items. Invalid
// markers and sentinels are skipped.
func Split(items []tagsim.Item) (tags, values []float64) {
	for _, it := range items {
		if it.IsData() {
			tags = append(tags, it.Event().Tag())
			values = append(values, it.Event().Value())
		}
	}
	return tags, values
}

// RequireTrace checks that items holds exactly the data events described by
// tags and values, within tol, followed by a single sentinel. Invalid markers
// fail the check.
func RequireTrace(t testing.TB, items []tagsim.Item, tags, values []float64, tol float64) {
	t.Helper()
	require.NotEmpty(t, items, "empty trace")
	require.True(t, items[len(items)-1].IsEnd(), "trace does not end with a sentinel: %s", Format(items))
	for i, it := range items[:len(items)-1] {
		require.True(t, it.IsData(), "item #%d is not a data event: %s", i, Format(items))
	}
	gotTags, gotValues := Split(items)
	require.Len(t, gotTags, len(tags), "event count: %s", Format(items))
	for i := range tags {
		require.InDelta(t, tags[i], gotTags[i], tol, "tag of event #%d: %s", i, Format(items))
		require.InDelta(t, values[i], gotValues[i], tol, "value of event #%d: %s", i, Format(items))
	}
}

// Format returns a compact representation of items for failure messages.
// Long traces are elided in the middle.
func Format(items []tagsim.Item) string {
	const max = 24
	var b strings.Builder
	b.WriteByte('[')
	for i, it := range items {
		if len(items) > max && i == max/2 {
			fmt.Fprintf(&b, " ...%d more...", len(items)-max)
		}
		if len(items) > max && i >= max/2 && i < len(items)-max/2 {
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(it.String())
	}
	b.WriteByte(']')
	return b.String()
}
