// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package netlist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/db47h/tagsim"
	"github.com/pkg/errors"
)

// ErrWiring is returned, wrapped, for any wiring error: syntax errors in
// wiring strings, unknown or missing ports, unknown channels, or channels
// without exactly one producer and one consumer.
//
var ErrWiring = errors.New("invalid wiring")

// A Wire connects a block port to a channel.
//
type Wire struct {
	Port    string
	Index   int // index in a port bus, -1 for a plain port
	Channel string
}

// PortName returns the full port name: "in" or "in[2]".
//
func (w Wire) PortName() string {
	if w.Index < 0 {
		return w.Port
	}
	return busPortName(w.Port, w.Index)
}

func busPortName(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

// ParseWires parses a wiring string: a comma separated list of port=channel
// assignments where ports of a bus are indexed:
//
//	ParseWires("in[0]=a, in[1]=b, out=sum")
//
// A port wired twice is an error.
//
func ParseWires(s string) ([]Wire, error) {
	var ws []Wire
	seen := make(map[string]bool)
	l := newLexer(s)

	t := l.lex()
	if t.typ == tokEOF {
		return nil, nil
	}
	for {
		if t.typ != tokIdent {
			return nil, parseError(s, t, "expected port name")
		}
		w := Wire{Port: t.val, Index: -1}
		t = l.lex()
		if t.typ == tokBracketOpen {
			if t = l.lex(); t.typ != tokInt {
				return nil, parseError(s, t, "expected port index")
			}
			w.Index = t.n
			if t = l.lex(); t.typ != tokBracketClose {
				return nil, parseError(s, t, "missing close bracket")
			}
			t = l.lex()
		}
		if t.typ != tokEqual {
			return nil, parseError(s, t, "expected '='")
		}
		if t = l.lex(); t.typ != tokIdent {
			return nil, parseError(s, t, "expected channel name")
		}
		w.Channel = t.val
		if seen[w.PortName()] {
			return nil, errors.Wrapf(ErrWiring, "in %q at pos %d: port %s wired twice", s, t.pos+1, w.PortName())
		}
		seen[w.PortName()] = true
		ws = append(ws, w)

		switch t = l.lex(); t.typ {
		case tokEOF:
			return ws, nil
		case tokComma:
			t = l.lex()
		default:
			return nil, parseError(s, t, "expected comma or end of input")
		}
	}
}

func parseError(in string, t token, msg string) error {
	return errors.Wrapf(ErrWiring, "in %q at pos %d: %s, got %s", in, t.pos+1, msg, t)
}

// Ports resolves the ports of a block to channels. Block constructors
// request every port they know of; wires left unused name unknown ports.
//
type Ports struct {
	block string
	wires map[string]Wire
	chans map[string]*tagsim.Channel
	used  map[string]bool
	ins   []*tagsim.Channel
	outs  []*tagsim.Channel
}

func newPorts(block string, ws []Wire, chans map[string]*tagsim.Channel) *Ports {
	p := &Ports{
		block: block,
		wires: make(map[string]Wire, len(ws)),
		chans: chans,
		used:  make(map[string]bool, len(ws)),
	}
	for _, w := range ws {
		p.wires[w.PortName()] = w
	}
	return p
}

func (p *Ports) lookup(port string) (*tagsim.Channel, bool, error) {
	w, ok := p.wires[port]
	if !ok {
		return nil, false, nil
	}
	p.used[port] = true
	c := p.chans[w.Channel]
	if c == nil {
		return nil, true, errors.Wrapf(ErrWiring, "%s: port %s: unknown channel %q", p.block, port, w.Channel)
	}
	return c, true, nil
}

func (p *Ports) one(name string) (*tagsim.Channel, error) {
	c, ok, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrWiring, "%s: port %s not connected", p.block, name)
	}
	return c, nil
}

// bus returns the channels wired to name, then to name[0], name[1] ...
//
func (p *Ports) bus(name string) ([]*tagsim.Channel, error) {
	var cs []*tagsim.Channel
	c, ok, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if ok {
		cs = append(cs, c)
	}
	for i := 0; ; i++ {
		if c, ok, err = p.lookup(busPortName(name, i)); err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		cs = append(cs, c)
	}
	if len(cs) == 0 {
		return nil, errors.Wrapf(ErrWiring, "%s: port %s not connected", p.block, name)
	}
	return cs, nil
}

// In returns the channel wired to the input port name.
//
func (p *Ports) In(name string) (*tagsim.Channel, error) {
	c, err := p.one(name)
	if err == nil {
		p.ins = append(p.ins, c)
	}
	return c, err
}

// Out returns the channel wired to the output port name.
//
func (p *Ports) Out(name string) (*tagsim.Channel, error) {
	c, err := p.one(name)
	if err == nil {
		p.outs = append(p.outs, c)
	}
	return c, err
}

// Ins returns the channels wired to the input bus name: "name" if wired, then
// "name[0]", "name[1]" ... up to the first missing index.
//
func (p *Ports) Ins(name string) ([]*tagsim.Channel, error) {
	cs, err := p.bus(name)
	p.ins = append(p.ins, cs...)
	return cs, err
}

// Outs returns the channels wired to the output bus name. See Ins.
//
func (p *Ports) Outs(name string) ([]*tagsim.Channel, error) {
	cs, err := p.bus(name)
	p.outs = append(p.outs, cs...)
	return cs, err
}

// check returns an error listing the wires that no port request used.
//
func (p *Ports) check() error {
	var unknown []string
	for n := range p.wires {
		if !p.used[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Wrapf(ErrWiring, "%s: unknown port(s) %s", p.block, strings.Join(unknown, ", "))
}
