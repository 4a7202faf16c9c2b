package netlist_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/netlist"
	"github.com/db47h/tagsim/sigio"
	"github.com/db47h/tagsim/sigtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWires(t *testing.T) {
	data := []struct {
		in    string
		wires []netlist.Wire
		err   string
	}{
		{"", nil, ""},
		{"  ", nil, ""},
		{"in=a", []netlist.Wire{{"in", -1, "a"}}, ""},
		{"in[0]=a, in[1]=b,out=s_1", []netlist.Wire{{"in", 0, "a"}, {"in", 1, "b"}, {"out", -1, "s_1"}}, ""},
		{" a = b ", []netlist.Wire{{"a", -1, "b"}}, ""},
		{"in=", nil, "pos 4: expected channel name, got end of input"},
		{"in", nil, "pos 3: expected '=', got end of input"},
		{"in=a,", nil, "pos 6: expected port name, got end of input"},
		{"in=a out=b", nil, `pos 6: expected comma or end of input, got identifier "out"`},
		{"in[x]=a", nil, `pos 4: expected port index, got identifier "x"`},
		{"in[0=a", nil, "pos 5: missing close bracket, got '='"},
		{"in=a, in=b", nil, "port in wired twice"},
		{"in=a, in[0]=b, in[0]=c", nil, "port in[0] wired twice"},
		{"in=a.b", nil, `pos 5: expected comma or end of input, got character "."`},
		{"1=a", nil, `pos 1: expected port name, got integer "1"`},
	}
	for _, d := range data {
		t.Run(d.in, func(t *testing.T) {
			ws, err := netlist.ParseWires(d.in)
			if d.err != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, netlist.ErrWiring)
				assert.Contains(t, err.Error(), d.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, d.wires, ws)
		})
	}
}

func TestWirePortName(t *testing.T) {
	assert.Equal(t, "out", netlist.Wire{Port: "out", Index: -1}.PortName())
	assert.Equal(t, "in[12]", netlist.Wire{Port: "in", Index: 12}.PortName())
}

func parse(t *testing.T, src string) *netlist.ModelDef {
	t.Helper()
	def, err := netlist.ParseModel(strings.NewReader(src))
	require.NoError(t, err)
	return def
}

func run(t *testing.T, src string, opts ...netlist.Option) *netlist.Result {
	t.Helper()
	res, err := netlist.Builtin().Build(parse(t, src), opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), sigtest.Timeout)
	defer cancel()
	require.NoError(t, res.Model.Run(ctx))
	return res
}

func TestBuild_pipeline(t *testing.T) {
	res := run(t, `
name: pipeline
channels: {a: DT, b: DT, s: DT, d: DT, q: DT, m: DT}
blocks:
  - {type: const, name: one, wires: "out=a", params: {start: 0, stop: 5, period: 1, value: 1}}
  - {type: ramp, name: r, wires: "out=b", params: {start: 0, stop: 5, period: 1, slope: 1}}
  - {type: summer, name: sum, wires: "in[0]=a, in[1]=b, out=s"}
  - {type: gain, name: g, wires: "in=s, out=d", params: {k: 2}}
  - {type: decimator, name: dec, wires: "in=d, out=q", params: {n: 2}}
  - {type: offset, name: o, wires: "in=q, out=m", params: {c: -1}}
  - {type: probe, name: y, wires: "in=m"}
`)
	require.Len(t, res.Probes, 1)
	assert.Equal(t, "y", res.Probes[0].Name())
	sigtest.RequireTrace(t, res.Probes[0].Items(), []float64{0, 2, 4}, []float64{1, 5, 9}, 0)
	assert.Len(t, res.Channels, 6)
	assert.Equal(t, tagsim.DT, res.Channels["q"].Domain())
}

func TestBuild_integrator(t *testing.T) {
	res := run(t, `
name: decay
channels: {xdot: CT, x: CT}
blocks:
  - {type: sequence, name: src, wires: "out=xdot", params: {tags: [0], values: [-1], end: 0.3}}
  - {type: integrator, name: x, wires: "in=xdot, out=x", params: {init: 1, delta: 0.1}}
  - {type: probe, name: xp, wires: "in=x"}
`)
	sigtest.RequireTrace(t, res.Probes[0].Items(),
		[]float64{0, 0.05, 0.15, 0.25},
		[]float64{1, 0.9, 0.8, 0.7}, 1e-9)
}

func TestBuild_mergeAndFan(t *testing.T) {
	res := run(t, `
name: fan
channels: {a: DE, b: DE, m: DE, p: DE, s: DE, t: DE}
blocks:
  - {type: sequence, name: sa, wires: "out=a", params: {tags: [0, 2], values: [1, 1], end: 3}}
  - {type: sequence, name: sb, wires: "out[0]=b, out[1]=s", params: {tags: [1, 2], values: [2, 2], end: 3}}
  - {type: merge, name: mg, wires: "in[0]=a, in[1]=b, out=m", params: {drain: true}}
  - {type: passthrough, name: pt, wires: "in[0]=m, in[1]=s, out[0]=p, out[1]=t"}
  - {type: probe, name: merged, wires: "in=p"}
  - {type: probe, name: second, wires: "in=t"}
`)
	require.Len(t, res.Probes, 2)
	sigtest.RequireTrace(t, res.Probes[0].Items(), []float64{0, 1, 2, 2}, []float64{1, 2, 1, 2}, 0)
	sigtest.RequireTrace(t, res.Probes[1].Items(), []float64{1, 2}, []float64{2, 2}, 0)
}

func TestBuild_json(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.json"), filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte(`[[0, 1], [1, 2], [2, 3]]`), 0o644))
	run(t, `
name: json
channels: {a: CT, b: CT}
blocks:
  - {type: jsonreader, name: r, wires: "out=a", params: {path: `+in+`}}
  - {type: gain, name: g, wires: "in=a, out=b", params: {k: 10}}
  - {type: jsonwriter, name: w, wires: "in=b", params: {path: `+out+`}}
`)
	evs, err := sigio.ReadJSON(out)
	require.NoError(t, err)
	assert.Equal(t, []tagsim.Event{tagsim.NewEvent(0, 10), tagsim.NewEvent(1, 20), tagsim.NewEvent(2, 30)}, evs)
}

func TestBuild_store(t *testing.T) {
	s, err := sigio.OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	id, err := s.NewRun("rec")
	require.NoError(t, err)

	run(t, `
name: rec
channels: {a: DE}
blocks:
  - {type: sequence, name: src, wires: "out=a", params: {tags: [0, 1], values: [5, 6], end: 2}}
  - {type: record, name: a, wires: "in=a"}
`, netlist.WithStore(s, id))
	evs, err := s.Samples(id, "a")
	require.NoError(t, err)
	assert.Equal(t, []tagsim.Event{tagsim.NewEvent(0, 5), tagsim.NewEvent(1, 6)}, evs)

	res := run(t, `
name: replay
channels: {a: DE}
blocks:
  - {type: replay, name: src, wires: "out=a", params: {run: `+id+`, signal: a}}
  - {type: probe, name: p, wires: "in=a"}
`, netlist.WithStore(s, ""))
	sigtest.RequireTrace(t, res.Probes[0].Items(), []float64{0, 1}, []float64{5, 6}, 0)

	// no store
	_, err = netlist.Builtin().Build(parse(t, `
name: rec
channels: {a: DE}
blocks:
  - {type: sequence, name: src, wires: "out=a", params: {tags: [0], values: [5], end: 2}}
  - {type: record, name: a, wires: "in=a"}
`))
	assert.Error(t, err)
}

func TestBuild_errors(t *testing.T) {
	const head = "name: m\nchannels: {a: CT, b: CT, c: DT}\nblocks:\n"
	src := `  - {type: const, name: s, wires: "out=a", params: {start: 0, stop: 1, period: 1}}
`
	data := []struct {
		name   string
		blocks string
		err    string
		wiring bool
	}{
		{"unknown type", src + `  - {type: nope, name: g, wires: "in=a, out=b"}`, `unknown type "nope"`, false},
		{"unknown port", src + `  - {type: gain, name: g, wires: "in=a, out=b, x=c"}`, "unknown port(s) x", true},
		{"missing port", src + `  - {type: gain, name: g, wires: "in=a"}`, "port out not connected", true},
		{"unknown channel", src + `  - {type: gain, name: g, wires: "in=a, out=zz"}`, `unknown channel "zz"`, true},
		{"no consumer", src + `  - {type: gain, name: g, wires: "in=a, out=b"}`, `channel "b": no consumer`, true},
		{"two producers", src + `  - {type: const, name: s2, wires: "out=a", params: {start: 0, stop: 1, period: 1}}`, `channel "a": several producers`, true},
		{"syntax", src + `  - {type: gain, name: g, wires: "in=a out=b"}`, "expected comma", true},
		{"unknown param", src + `  - {type: gain, name: g, wires: "in=a, out=b", params: {gain: 2}}`, `unknown parameter "gain"`, false},
		{"bad param", src + `  - {type: gain, name: g, wires: "in=a, out=b", params: {k: [1]}}`, "parameters", false},
		{"params not a map", src + `  - {type: gain, name: g, wires: "in=a, out=b", params: 3}`, "parameters must be a mapping", false},
		{"domain", src + `  - {type: gain, name: g, wires: "in=a, out=c"}`, "domain", false},
		{"duplicate", src + `  - {type: gain, name: s, wires: "in=a, out=b"}`, "duplicate name", false},
		{"no name", src + `  - {type: gain, wires: "in=a, out=b"}`, "missing name", false},
		{"block error", src + `  - {type: interpolator, name: i, wires: "in=a, out=b", params: {factor: 2, mode: cubic}}`, "cubic", false},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, err := netlist.Builtin().Build(parse(t, head+d.blocks+"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), d.err)
			if d.wiring {
				assert.ErrorIs(t, err, netlist.ErrWiring)
			}
		})
	}

	_, err := netlist.Builtin().Build(parse(t, "name: m\nchannels: {a: XX}\n"))
	assert.ErrorIs(t, err, tagsim.ErrDomain)
	_, err = netlist.Builtin().Build(parse(t, "channels: {a: CT}\n"))
	assert.Error(t, err)
	_, err = netlist.ParseModel(strings.NewReader("name: m\nwires: {}\n"))
	assert.Error(t, err)
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: m\nchannels: {a: CT}\n"), 0o644))
	def, err := netlist.LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "m", def.Name)
	assert.Equal(t, map[string]string{"a": "CT"}, def.Channels)

	_, err = netlist.LoadModel(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := netlist.Builtin()
	ts := r.Types()
	require.NotEmpty(t, ts)
	for i := 1; i < len(ts); i++ {
		assert.Less(t, ts[i-1].Name, ts[i].Name)
	}
	for _, n := range []string{"merge", "summer", "subtractor", "passthrough", "integrator", "sampler", "probe", "record"} {
		_, ok := r.Lookup(n)
		assert.True(t, ok, n)
	}

	bt, _ := r.Lookup("gain")
	assert.Error(t, r.Register(*bt))
	assert.Error(t, r.Register(netlist.BlockType{Name: "x"}))

	custom, err := netlist.NewRegistry(netlist.BlockType{
		Name: "double",
		New: func(b *netlist.Block) (tagsim.Actor, error) {
			in, err := b.In("in")
			if err != nil {
				return nil, err
			}
			out, err := b.Out("out")
			if err != nil {
				return nil, err
			}
			return tagsim.NewMap(b.Name, in, func(v float64) float64 { return 2 * v }, out), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, custom.Register(*bt))
	assert.Len(t, custom.Types(), 2)
}
