// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/loopback"
	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

type testWidget struct {
	display  selection.Display
	window   *events.Window
	format   uint8
	payload  map[x.Atom][]byte
	received []*selection.Data
	clears   []*events.Event
}

func (w *testWidget) Display() selection.Display { return w.display }
func (w *testWidget) Window() *events.Window     { return w.window }

func (w *testWidget) SelectionGet(data *selection.Data, info uint32, t x.Timestamp) {
	if v, ok := w.payload[data.Target]; ok {
		format := w.format
		if format == 0 {
			format = 8
		}
		data.Set(data.Target, format, v)
	}
}

func (w *testWidget) SelectionReceived(data *selection.Data, t x.Timestamp) {
	w.received = append(w.received, data.Copy())
}

func (w *testWidget) SelectionClear(ev *events.Event) {
	w.clears = append(w.clears, ev.Copy())
}

type fixture struct {
	t      *testing.T
	server *loopback.Server
	loop   *mainloop.Loop
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:      t,
		server: loopback.NewServer(),
		loop:   mainloop.NewManual(epoch),
	}
}

type peer struct {
	f      *fixture
	client *loopback.Client
	ctx    *selection.Context
}

func (f *fixture) newPeer(name string) *peer {
	p := &peer{
		f:      f,
		client: f.server.NewClient(name),
		ctx:    selection.NewContext(f.loop),
	}
	p.client.Events().SetHandler(func(ev *events.Event, data interface{}) {
		p.ctx.HandleEvent(p.client, ev)
	}, nil, nil)
	return p
}

func (p *peer) newWidget() *testWidget {
	w := &testWidget{
		display: p.client,
		window:  p.client.CreateWindow(),
		payload: make(map[x.Atom][]byte),
	}
	p.ctx.Register(w)
	return w
}

func (p *peer) atom(name string) x.Atom {
	atom, err := p.client.InternAtom(name)
	require.NoError(p.f.t, err)
	return atom
}

// rawClient is a requestor without a selection context, driving the
// protocol by hand.
type rawClient struct {
	client *loopback.Client
	window *events.Window
	events []*events.Event
}

func (f *fixture) newRawClient(name string) *rawClient {
	r := &rawClient{client: f.server.NewClient(name)}
	r.window = r.client.CreateWindow()
	r.client.Events().SetHandler(func(ev *events.Event, data interface{}) {
		r.events = append(r.events, ev.Copy())
	}, nil, nil)
	return r
}

func (r *rawClient) notifies() []*events.Event {
	var result []*events.Event
	for _, ev := range r.events {
		if ev.Kind == events.KindSelectionNotify {
			result = append(result, ev)
		}
	}
	return result
}

func atomBytes(atoms ...x.Atom) []byte {
	buf := make([]byte, 4*len(atoms))
	for i, atom := range atoms {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(atom))
	}
	return buf
}

func bytesAtoms(data []byte) []x.Atom {
	var atoms []x.Atom
	for i := 0; i+4 <= len(data); i += 4 {
		atoms = append(atoms, x.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return atoms
}

func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*7 + i/251)
	}
	return buf
}

func writeLengths(writes []loopback.PropertyWrite, win x.Window, prop x.Atom) []int {
	var lengths []int
	for _, w := range writes {
		if w.Window == win && w.Property == prop {
			lengths = append(lengths, w.Length)
		}
	}
	return lengths
}
