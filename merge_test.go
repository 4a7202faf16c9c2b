package tagsim_test

import (
	"context"
	"testing"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/sigtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns a source emitting (tags[i], value) events.
func sequence(name string, out *tagsim.Channel, tags []float64, value float64, end float64) tagsim.Actor {
	return tagsim.NewSource(name, func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
		for _, t := range tags {
			if err := emit(tagsim.NewEvent(t, value)); err != nil {
				return 0, err
			}
		}
		return end, nil
	}, out)
}

func TestMergeDeterminism(t *testing.T) {
	var first []tagsim.Item
	for run := 0; run < 20; run++ {
		a, b := tagsim.NewChannel("a", tagsim.DT), tagsim.NewChannel("b", tagsim.DT)
		out := tagsim.NewChannel("out", tagsim.DT)
		m, err := tagsim.NewMerge("merge", out, []*tagsim.Channel{a, b})
		require.NoError(t, err)
		sigtest.Run(t,
			sequence("a", a, sigtest.Seq(0, 1, 100), 1, 100),
			sequence("b", b, sigtest.Seq(0, 1, 100), 2, 100),
			m)
		items := sigtest.Collect(t, out)
		require.Len(t, items, 201)
		for i := 0; i < 200; i++ {
			ev := items[i].Event()
			assert.Equal(t, float64(i/2), ev.Tag())
			assert.Equal(t, float64(1+i%2), ev.Value(), "event #%d", i)
		}
		assert.True(t, items[200].IsEnd())
		if first == nil {
			first = items
		} else {
			require.Equal(t, first, items, "run %d differs", run)
		}
	}
}

func TestMergeInterleaving(t *testing.T) {
	setup := func(opts ...tagsim.MergeOption) *tagsim.Channel {
		a, b := tagsim.NewChannel("a", tagsim.CT), tagsim.NewChannel("b", tagsim.CT)
		out := tagsim.NewChannel("out", tagsim.CT)
		sigtest.Feed(t, a, []float64{0, 2, 4}, sigtest.Fill(1, 3), 4)
		bt := sigtest.Seq(0, 0.5, 11)
		sigtest.Feed(t, b, bt, sigtest.Fill(2, len(bt)), 5)
		m, err := tagsim.NewMerge("merge", out, []*tagsim.Channel{a, b}, opts...)
		require.NoError(t, err)
		sigtest.Run(t, m)
		return out
	}

	t.Run("default", func(t *testing.T) {
		// input b still holds 4.5 and 5 when a ends: they are lost.
		items := sigtest.Collect(t, setup())
		sigtest.RequireTrace(t, items,
			[]float64{0, 0, 0.5, 1, 1.5, 2, 2, 2.5, 3, 3.5, 4, 4},
			[]float64{1, 2, 2, 2, 2, 1, 2, 2, 2, 2, 1, 2}, 0)
		et, ok := items[len(items)-1].EndTag()
		assert.True(t, ok)
		assert.Equal(t, 4.0, et)
	})
	t.Run("drain", func(t *testing.T) {
		items := sigtest.Collect(t, setup(tagsim.DrainAll()))
		sigtest.RequireTrace(t, items,
			[]float64{0, 0, 0.5, 1, 1.5, 2, 2, 2.5, 3, 3.5, 4, 4, 4.5, 5},
			[]float64{1, 2, 2, 2, 2, 1, 2, 2, 2, 2, 1, 2, 2, 2}, 0)
		et, _ := items[len(items)-1].EndTag()
		assert.Equal(t, 5.0, et)
	})
}

func TestMergeThreeInputsTieOrder(t *testing.T) {
	ins := []*tagsim.Channel{
		tagsim.NewChannel("a", tagsim.DE),
		tagsim.NewChannel("b", tagsim.DE),
		tagsim.NewChannel("c", tagsim.DE),
	}
	out := tagsim.NewChannel("out", tagsim.DE)
	sigtest.Feed(t, ins[0], []float64{1, 3}, []float64{10, 11})
	sigtest.Feed(t, ins[1], []float64{1, 2}, []float64{20, 21})
	sigtest.Feed(t, ins[2], []float64{0, 1, 3}, []float64{30, 31, 32})
	m, err := tagsim.NewMerge("merge", out, ins, tagsim.DrainAll())
	require.NoError(t, err)
	sigtest.Run(t, m)
	sigtest.RequireTrace(t, sigtest.Collect(t, out),
		[]float64{0, 1, 1, 1, 2, 3, 3},
		[]float64{30, 10, 20, 31, 21, 11, 32}, 0)
}

func TestMergeConstruction(t *testing.T) {
	out := tagsim.NewChannel("out", tagsim.CT)
	_, err := tagsim.NewMerge("m", out, []*tagsim.Channel{tagsim.NewChannel("a", tagsim.CT)})
	assert.Error(t, err)
	_, err = tagsim.NewMerge("m", out, []*tagsim.Channel{
		tagsim.NewChannel("a", tagsim.CT),
		tagsim.NewChannel("b", tagsim.DT),
	})
	assert.ErrorIs(t, err, tagsim.ErrDomain)
}

func TestMergeIdempotence(t *testing.T) {
	run := func() []tagsim.Item {
		a, b := tagsim.NewChannel("a", tagsim.CT), tagsim.NewChannel("b", tagsim.CT)
		out := tagsim.NewChannel("out", tagsim.CT)
		sigtest.Feed(t, a, []float64{0, 0.3, 0.3, 0.9}, []float64{1, 2, 3, 4}, 1)
		sigtest.Feed(t, b, []float64{0.1, 0.3, 0.5}, []float64{5, 6, 7}, 1)
		m, err := tagsim.NewMerge("m", out, []*tagsim.Channel{a, b}, tagsim.DrainAll())
		require.NoError(t, err)
		sigtest.Run(t, m)
		return sigtest.Collect(t, out)
	}
	want := run()
	sigtest.RequireTrace(t, want,
		[]float64{0, 0.1, 0.3, 0.3, 0.3, 0.5, 0.9},
		[]float64{1, 5, 2, 6, 3, 7, 4}, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, run())
	}
}
