package siglib

import (
	"context"
	"math"
	"testing"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/sigtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decayInputs returns the derivative of x' = -x as seen by an integrator
// configured like cfg, with the same values as its quantized output: -1,
// -0.9, ..., 0. Each input is tagged with the time of the level crossing it
// answers, as computed by an independent instance of the solver.
//
func decayInputs(cfg IntegratorConfig) (tags, values []float64) {
	ref := newQSS(cfg.Init, cfg.Delta, cfg.MaxStep)
	ref.internal()
	t := 0.0
	for k := 10; k >= 0; k-- {
		v := -float64(k) / 10
		if k < 10 {
			t = ref.nextT
			ref.internal()
		}
		ref.external(t, v)
		tags = append(tags, t)
		values = append(values, v)
	}
	return tags, values
}

// decayTrace returns the expected output of the integrator fed with
// decayInputs: levels 1, 0.9, ..., 0 at their analytical crossing times,
// then the max step refresh at t=10.
//
func decayTrace() (tags, values []float64) {
	t := 0.0
	tags, values = []float64{0}, []float64{1}
	for k := 9; k >= 0; k-- {
		if k == 9 {
			t = 0.05
		} else {
			t += 0.1 / (float64(k+1) / 10)
		}
		tags = append(tags, t)
		values = append(values, float64(k)/10)
	}
	return append(tags, 10), append(values, 0.1)
}

var decayConfig = IntegratorConfig{Init: 1, Delta: 0.1, MaxStep: 10}

func runIntegrator(t *testing.T, cfg IntegratorConfig, tags, values []float64, end float64) []tagsim.Item {
	t.Helper()
	in := tagsim.NewChannel("xdot", tagsim.CT)
	out := tagsim.NewChannel("x", tagsim.CT)
	sigtest.Feed(t, in, tags, values, end)
	a, err := Integrator("x", in, out, cfg)
	require.NoError(t, err)
	sigtest.Run(t, a)
	return sigtest.Collect(t, out)
}

func TestIntegrator_decay(t *testing.T) {
	tags, values := decayInputs(decayConfig)
	require.InDelta(t, 2.879, tags[len(tags)-1], 1e-3)

	items := runIntegrator(t, decayConfig, tags, values, 10)
	wantTags, wantValues := decayTrace()
	sigtest.RequireTrace(t, items, wantTags, wantValues, 1e-4)
	end, ok := items[len(items)-1].EndTag()
	assert.True(t, ok)
	assert.Equal(t, 10.0, end)
}

func TestIntegrator_decayCrossingTags(t *testing.T) {
	// inputs tagged with the analytical crossing times, which differ from
	// the scheduled ones by a few ulps.
	wantTags, wantValues := decayTrace()
	tags := append([]float64(nil), wantTags[:11]...)
	values := make([]float64, len(tags))
	for i := range values {
		values[i] = -wantValues[i]
	}
	items := runIntegrator(t, decayConfig, tags, values, 10)
	sigtest.RequireTrace(t, items, wantTags, wantValues, 1e-4)
}

func TestIntegrator_idempotence(t *testing.T) {
	tags, values := decayInputs(decayConfig)
	first := runIntegrator(t, decayConfig, tags, values, 10)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, runIntegrator(t, decayConfig, tags, values, 10))
	}
}

func TestIntegrator_maxStep(t *testing.T) {
	// a constant derivative of 0 only refreshes the output on the max step
	// grid, with the initial value re-quantized.
	cfg := IntegratorConfig{Init: 0.26, Delta: 0.1, MaxStep: 2}
	items := runIntegrator(t, cfg, []float64{0}, []float64{0}, 7)
	sigtest.RequireTrace(t, items,
		[]float64{0, 2, 4, 6},
		[]float64{0.3, 0.3, 0.3, 0.3}, 1e-12)

	// no max step: nothing but the initial value.
	cfg.MaxStep = 0
	items = runIntegrator(t, cfg, []float64{0}, []float64{0}, 7)
	sigtest.RequireTrace(t, items, []float64{0}, []float64{0.3}, 1e-12)
}

func TestIntegrator_ramp(t *testing.T) {
	// xdot = 1 from t=0: crossings of 0.05, 0.15, ...
	cfg := IntegratorConfig{Delta: 0.1}
	items := runIntegrator(t, cfg, []float64{0}, []float64{1}, 0.3)
	sigtest.RequireTrace(t, items,
		[]float64{0, 0.05, 0.15, 0.25},
		[]float64{0, 0.1, 0.2, 0.3}, 1e-9)
}

func TestIntegrator_algebraicLoop(t *testing.T) {
	cfg := decayConfig
	cfg.AlgebraicLoop = true
	in := tagsim.NewChannel("xdot", tagsim.CT)
	out := tagsim.NewChannel("x", tagsim.CT)
	a, err := Integrator("x", in, out, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), sigtest.Timeout)
	defer cancel()
	r := tagsim.NewRunner(a)
	r.Start(ctx)

	// close the loop by hand: xdot = -x at the time of each output.
	var items []tagsim.Item
	for i := 0; i < 6; i++ {
		it, err := out.Get(ctx)
		require.NoError(t, err)
		items = append(items, it)
		if i < 5 {
			require.NoError(t, in.Put(tagsim.Data(tagsim.NewEvent(it.Tag(), -it.Event().Value()))))
		}
	}
	require.NoError(t, in.Put(tagsim.End()))
	items = append(items, sigtest.Collect(t, out)...)
	require.NoError(t, r.Join())

	wantTags, wantValues := decayTrace()
	sigtest.RequireTrace(t, items, wantTags[:6], wantValues[:6], 1e-4)
}

func TestIntegrator_invalid(t *testing.T) {
	in := tagsim.NewChannel("xdot", tagsim.CT)
	out := tagsim.NewChannel("x", tagsim.CT)
	require.NoError(t, in.Put(tagsim.Invalid(0.5)))
	require.NoError(t, in.Put(tagsim.End()))
	a, err := Integrator("x", in, out, IntegratorConfig{Init: 1, Delta: 1})
	require.NoError(t, err)
	sigtest.Run(t, a)
	items := sigtest.Collect(t, out)
	require.Len(t, items, 3)
	assert.Equal(t, tagsim.Data(tagsim.NewEvent(0, 1)), items[0])
	assert.True(t, items[1].IsInvalid())
	assert.True(t, items[2].IsEnd())
}

func TestIntegrator_construction(t *testing.T) {
	ct := tagsim.NewChannel("ct", tagsim.CT)
	dt := tagsim.NewChannel("dt", tagsim.DT)
	_, err := Integrator("x", ct, ct, IntegratorConfig{Delta: 0})
	assert.Error(t, err)
	_, err = Integrator("x", dt, ct, IntegratorConfig{Delta: 1})
	assert.ErrorIs(t, err, tagsim.ErrDomain)
	_, err = Integrator("x", ct, dt, IntegratorConfig{Delta: 1})
	assert.ErrorIs(t, err, tagsim.ErrDomain)
}

func TestQSS_grid(t *testing.T) {
	q := newQSS(0, 1, 10)
	for _, tc := range []struct{ t, g float64 }{
		{0, 10}, {2.5, 10}, {10, 20}, {13, 20}, {-3, 0},
	} {
		q.lastT = tc.t
		assert.Equal(t, tc.g, q.grid(), "t=%g", tc.t)
	}
	q.maxStep = 0
	assert.True(t, math.IsInf(q.grid(), 1))
}

func TestQSS_due(t *testing.T) {
	q := newQSS(0, 1, 0)
	q.nextT = 2.878968253968258
	for _, tc := range []struct {
		t   float64
		due bool
	}{
		{2.878968253968254, true},
		{2.878968253968258, true},
		{3, true},
		{2.8789, false},
	} {
		assert.Equal(t, tc.due, q.due(tc.t), "t=%v", tc.t)
	}
	q.nextT = math.Inf(1)
	assert.False(t, q.due(1e300))
}
