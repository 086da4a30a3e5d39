// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loopback

import (
	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
)

type rawEvent struct {
	kind      events.Kind
	window    x.Window
	sendEvent bool
	time      x.Timestamp

	selection x.Atom
	target    x.Atom
	property  x.Atom
	requestor x.Window
	state     events.PropertyState
	button    uint8
}

// Client is one connection to a Server. It implements
// selection.Display and feeds its events.Display from the server.
type Client struct {
	server  *Server
	name    string
	display *events.Display
	inbox   []rawEvent

	windows        map[x.Window]*events.Window
	owned          map[x.Atom]x.Window
	maxRequestSize int
}

var _ selection.Display = (*Client)(nil)

func (s *Server) NewClient(name string) *Client {
	c := &Client{
		server:         s,
		name:           name,
		display:        events.NewDisplay(events.DefaultClickConfig()),
		windows:        make(map[x.Window]*events.Window),
		owned:          make(map[x.Atom]x.Window),
		maxRequestSize: DefaultMaxRequestSize,
	}
	c.display.SetSource(c)
	s.clients = append(s.clients, c)
	return c
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Events() *events.Display {
	return c.display
}

func (c *Client) Server() *Server {
	return c.server
}

// SetMaxRequestSize changes the property payload limit. Zero removes it.
func (c *Client) SetMaxRequestSize(n int) {
	c.maxRequestSize = n
}

// CreateWindow creates a window owned by the client. The client keeps
// the returned handle alive until DestroyWindow.
func (c *Client) CreateWindow() *events.Window {
	id := c.server.createWindow(c)
	win := events.NewWindow(id)
	c.windows[id] = win
	return win
}

func (c *Client) DestroyWindow(win *events.Window) error {
	if err := c.server.destroyWindow(win.XID); err != nil {
		return err
	}
	for sel, owner := range c.owned {
		if owner == win.XID {
			delete(c.owned, sel)
		}
	}
	return nil
}

func (c *Client) handle(id x.Window) *events.Window {
	if win, ok := c.windows[id]; ok {
		return win.Ref()
	}
	return events.NewForeignWindow(id)
}

func (c *Client) deliver(ev rawEvent) {
	c.inbox = append(c.inbox, ev)
}

// QueueEvents translates the events the server sent since the last call.
func (c *Client) QueueEvents(d *events.Display) {
	inbox := c.inbox
	c.inbox = nil
	for _, raw := range inbox {
		c.translate(d, raw)
	}
}

func (c *Client) translate(d *events.Display, raw rawEvent) {
	if raw.kind == events.KindSelectionClear {
		// only the window we last claimed with loses the selection, a
		// clear caused by our own release or re-claim is dropped
		if owner, ok := c.owned[raw.selection]; !ok || owner != raw.window {
			logger.Debugf("%s: drop self-inflicted clear", c.name)
			return
		}
		delete(c.owned, raw.selection)
	}

	win := c.handle(raw.window)
	ev := d.BeginEvent(raw.kind, win)
	win.Unref()
	ev.SendEvent = raw.sendEvent
	ev.Time = raw.time

	switch raw.kind {
	case events.KindSelectionClear, events.KindSelectionRequest, events.KindSelectionNotify:
		p := ev.Selection()
		p.Selection = raw.selection
		p.Target = raw.target
		p.Property = raw.property
		p.Requestor = raw.requestor
	case events.KindPropertyNotify:
		p := ev.Property()
		p.Atom = raw.property
		p.State = raw.state
	case events.KindButtonPress:
		ev.Button().Button = raw.button
	case events.KindDestroy:
		if w, ok := c.windows[raw.window]; ok {
			delete(c.windows, raw.window)
			w.Unref()
		}
	}
	d.CompleteEvent(ev)
}

// Close destroys the client's windows and disconnects it.
func (c *Client) Close() {
	for id := range c.windows {
		_ = c.server.destroyWindow(id)
	}
	c.QueueEvents(c.display)
	c.server.removeClient(c)
	c.display.Close()
}

func (c *Client) InternAtom(name string) (x.Atom, error) {
	return c.server.internAtom(name)
}

func (c *Client) AtomName(atom x.Atom) (string, error) {
	return c.server.atomName(atom)
}

func (c *Client) SetSelectionOwner(owner x.Window, sel x.Atom, t x.Timestamp) bool {
	if !c.server.setSelectionOwner(c, owner, sel, t) {
		return false
	}
	c.owned[sel] = owner
	return true
}

func (c *Client) GetSelectionOwner(sel x.Atom) (x.Window, error) {
	return c.server.getSelectionOwner(sel)
}

func (c *Client) ConvertSelection(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	return c.server.convertSelection(requestor, sel, target, prop, t)
}

func (c *Client) GetProperty(win x.Window, prop x.Atom, del bool) (*selection.Property, error) {
	return c.server.getProperty(win, prop, del)
}

func (c *Client) ChangeProperty(win x.Window, prop, typ x.Atom, format uint8, mode selection.PropMode, data []byte) error {
	return c.server.changeProperty(c, win, prop, typ, format, mode, data)
}

func (c *Client) DeleteProperty(win x.Window, prop x.Atom) error {
	return c.server.deleteProperty(win, prop)
}

func (c *Client) SelectPropertyEvents(win x.Window, enable bool) error {
	return c.server.selectPropertyEvents(c, win, enable)
}

func (c *Client) MaxRequestSize() int {
	return c.maxRequestSize
}

func (c *Client) SendSelectionNotify(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	return c.server.sendSelectionNotify(requestor, sel, target, prop, t)
}
