// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package loopback is an in-process display server speaking the subset
// of the X selection protocol the selection engine needs. Every client
// gets its own event queue, so several contexts can talk to each other
// without a real X server.
package loopback

import (
	"errors"
	"fmt"
	"sort"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
)

var logger = log.NewLogger("dde-selection/loopback")

var (
	ErrBadWindow = errors.New("BadWindow")
	ErrBadAtom   = errors.New("BadAtom")
	ErrBadMatch  = errors.New("BadMatch")
	ErrBadLength = errors.New("BadLength")
)

const DefaultMaxRequestSize = 65432

var predefinedAtoms = map[string]x.Atom{
	"PRIMARY":   1,
	"SECONDARY": 2,
	"ATOM":      x.AtomAtom,
	"INTEGER":   x.AtomInteger,
	"STRING":    x.AtomString,
}

const firstDynamicAtom = 100

type window struct {
	id        x.Window
	owner     *Client
	props     map[x.Atom]*selection.Property
	listeners map[*Client]struct{}
}

type selectionOwner struct {
	window x.Window
	client *Client
	time   x.Timestamp
}

// PropertyWrite records one ChangeProperty request.
type PropertyWrite struct {
	Window   x.Window
	Property x.Atom
	Type     x.Atom
	Format   uint8
	Length   int
}

type Server struct {
	atoms    map[string]x.Atom
	names    map[x.Atom]string
	nextAtom x.Atom
	nextID   x.Window

	windows map[x.Window]*window
	owners  map[x.Atom]*selectionOwner
	clients []*Client
	now     x.Timestamp

	writes []PropertyWrite
}

func NewServer() *Server {
	s := &Server{
		atoms:    make(map[string]x.Atom),
		names:    make(map[x.Atom]string),
		nextAtom: firstDynamicAtom,
		nextID:   0x200000,
		windows:  make(map[x.Window]*window),
		owners:   make(map[x.Atom]*selectionOwner),
		now:      1000,
	}
	for name, atom := range predefinedAtoms {
		s.atoms[name] = atom
		s.names[atom] = name
	}
	return s
}

// Now returns the server time.
func (s *Server) Now() x.Timestamp {
	return s.now
}

func (s *Server) tick() x.Timestamp {
	s.now++
	return s.now
}

// SetTime moves the server clock, which may wrap around.
func (s *Server) SetTime(t x.Timestamp) {
	s.now = t
}

func (s *Server) internAtom(name string) (x.Atom, error) {
	if name == "" {
		return x.None, ErrBadAtom
	}
	if atom, ok := s.atoms[name]; ok {
		return atom, nil
	}
	atom := s.nextAtom
	s.nextAtom++
	s.atoms[name] = atom
	s.names[atom] = name
	return atom, nil
}

func (s *Server) atomName(atom x.Atom) (string, error) {
	name, ok := s.names[atom]
	if !ok {
		return "", ErrBadAtom
	}
	return name, nil
}

func (s *Server) getWindow(id x.Window) (*window, error) {
	win, ok := s.windows[id]
	if !ok {
		return nil, fmt.Errorf("window 0x%x: %w", uint32(id), ErrBadWindow)
	}
	return win, nil
}

func (s *Server) createWindow(c *Client) x.Window {
	s.nextID++
	id := s.nextID
	s.windows[id] = &window{
		id:        id,
		owner:     c,
		props:     make(map[x.Atom]*selection.Property),
		listeners: make(map[*Client]struct{}),
	}
	return id
}

func (s *Server) destroyWindow(id x.Window) error {
	win, err := s.getWindow(id)
	if err != nil {
		return err
	}
	delete(s.windows, id)
	for atom, o := range s.owners {
		if o.window == id {
			delete(s.owners, atom)
		}
	}
	win.owner.deliver(rawEvent{
		kind:   events.KindDestroy,
		window: id,
		time:   s.tick(),
	})
	return nil
}

func (s *Server) setSelectionOwner(c *Client, owner x.Window, sel x.Atom, t x.Timestamp) bool {
	if _, ok := s.names[sel]; !ok {
		return false
	}
	if owner != x.None {
		if _, err := s.getWindow(owner); err != nil {
			return false
		}
	}
	if t == x.TimeCurrentTime {
		t = s.tick()
	}
	old := s.owners[sel]
	if old != nil && timeBefore(t, old.time) {
		logger.Debugf("claim at %d older than %d", t, old.time)
		return false
	}

	if old != nil && old.client != nil && (owner == x.None || old.client != c) {
		old.client.deliver(rawEvent{
			kind:      events.KindSelectionClear,
			window:    old.window,
			time:      t,
			selection: sel,
		})
	}

	if owner == x.None {
		s.owners[sel] = &selectionOwner{time: t}
	} else {
		s.owners[sel] = &selectionOwner{window: owner, client: c, time: t}
	}
	return true
}

func timeBefore(a, b x.Timestamp) bool {
	return int32(uint32(a)-uint32(b)) < 0
}

func (s *Server) getSelectionOwner(sel x.Atom) (x.Window, error) {
	if _, ok := s.names[sel]; !ok {
		return x.None, ErrBadAtom
	}
	if o := s.owners[sel]; o != nil {
		return o.window, nil
	}
	return x.None, nil
}

func (s *Server) convertSelection(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	req, err := s.getWindow(requestor)
	if err != nil {
		return err
	}
	o := s.owners[sel]
	if o == nil || o.window == x.None {
		req.owner.deliver(rawEvent{
			kind:      events.KindSelectionNotify,
			window:    requestor,
			time:      t,
			selection: sel,
			target:    target,
			property:  x.None,
			requestor: requestor,
		})
		return nil
	}
	o.client.deliver(rawEvent{
		kind:      events.KindSelectionRequest,
		window:    o.window,
		time:      t,
		selection: sel,
		target:    target,
		property:  prop,
		requestor: requestor,
	})
	return nil
}

func (s *Server) sendSelectionNotify(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	win, err := s.getWindow(requestor)
	if err != nil {
		return err
	}
	win.owner.deliver(rawEvent{
		kind:      events.KindSelectionNotify,
		window:    requestor,
		sendEvent: true,
		time:      t,
		selection: sel,
		target:    target,
		property:  prop,
		requestor: requestor,
	})
	return nil
}

func (s *Server) propertyNotify(win *window, prop x.Atom, state events.PropertyState) {
	t := s.tick()
	for _, c := range s.clients {
		if _, ok := win.listeners[c]; !ok {
			continue
		}
		c.deliver(rawEvent{
			kind:     events.KindPropertyNotify,
			window:   win.id,
			time:     t,
			property: prop,
			state:    state,
		})
	}
}

func (s *Server) changeProperty(c *Client, id x.Window, prop, typ x.Atom, format uint8,
	mode selection.PropMode, data []byte) error {
	win, err := s.getWindow(id)
	if err != nil {
		return err
	}
	if _, ok := s.names[prop]; !ok {
		return ErrBadAtom
	}
	if format != 8 && format != 16 && format != 32 {
		return ErrBadMatch
	}
	if len(data)%int(format/8) != 0 {
		return ErrBadLength
	}
	if max := c.MaxRequestSize(); max > 0 && len(data) > max {
		return fmt.Errorf("%d bytes: %w", len(data), ErrBadLength)
	}

	old := win.props[prop]
	value := &selection.Property{Type: typ, Format: format}
	switch {
	case mode == selection.PropModeReplace || old == nil:
		value.Data = append([]byte(nil), data...)
	case old.Type != typ || old.Format != format:
		return ErrBadMatch
	case mode == selection.PropModeAppend:
		value.Data = append(append([]byte(nil), old.Data...), data...)
	default:
		value.Data = append(append([]byte(nil), data...), old.Data...)
	}
	win.props[prop] = value
	s.writes = append(s.writes, PropertyWrite{
		Window:   id,
		Property: prop,
		Type:     typ,
		Format:   format,
		Length:   len(data),
	})
	s.propertyNotify(win, prop, events.PropertyNewValue)
	return nil
}

func (s *Server) getProperty(id x.Window, prop x.Atom, del bool) (*selection.Property, error) {
	win, err := s.getWindow(id)
	if err != nil {
		return nil, err
	}
	value, ok := win.props[prop]
	if !ok {
		return &selection.Property{Type: x.None}, nil
	}
	reply := &selection.Property{
		Type:   value.Type,
		Format: value.Format,
		Data:   append([]byte(nil), value.Data...),
	}
	if del {
		delete(win.props, prop)
		s.propertyNotify(win, prop, events.PropertyDelete)
	}
	return reply, nil
}

func (s *Server) deleteProperty(id x.Window, prop x.Atom) error {
	win, err := s.getWindow(id)
	if err != nil {
		return err
	}
	if _, ok := win.props[prop]; ok {
		delete(win.props, prop)
		s.propertyNotify(win, prop, events.PropertyDelete)
	}
	return nil
}

func (s *Server) selectPropertyEvents(c *Client, id x.Window, enable bool) error {
	win, err := s.getWindow(id)
	if err != nil {
		return err
	}
	if enable {
		win.listeners[c] = struct{}{}
	} else {
		delete(win.listeners, c)
	}
	return nil
}

// Listeners returns the sorted names of the clients selecting property
// events on id.
func (s *Server) Listeners(id x.Window) []string {
	win, ok := s.windows[id]
	if !ok {
		return nil
	}
	var names []string
	for c := range win.listeners {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// PropertyWrites returns every ChangeProperty request seen so far.
func (s *Server) PropertyWrites() []PropertyWrite {
	return append([]PropertyWrite(nil), s.writes...)
}

func (s *Server) ResetPropertyWrites() {
	s.writes = nil
}

// Property returns a copy of a property as stored on the server.
func (s *Server) Property(id x.Window, prop x.Atom) (*selection.Property, bool) {
	win, ok := s.windows[id]
	if !ok {
		return nil, false
	}
	value, ok := win.props[prop]
	if !ok {
		return nil, false
	}
	return &selection.Property{
		Type:   value.Type,
		Format: value.Format,
		Data:   append([]byte(nil), value.Data...),
	}, true
}

// InjectButtonPress delivers a button press on id to its creator.
func (s *Server) InjectButtonPress(id x.Window, button uint8, t x.Timestamp) error {
	win, err := s.getWindow(id)
	if err != nil {
		return err
	}
	win.owner.deliver(rawEvent{
		kind:   events.KindButtonPress,
		window: id,
		time:   t,
		button: button,
	})
	return nil
}

// Flush dispatches queued events on every client until none is left.
// It returns the number of events dispatched.
func (s *Server) Flush() int {
	total := 0
	for {
		n := 0
		for _, c := range append([]*Client(nil), s.clients...) {
			n += c.display.DispatchAll()
		}
		if n == 0 {
			return total
		}
		total += n
	}
}

func (s *Server) removeClient(c *Client) {
	for i, item := range s.clients {
		if item == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	for _, win := range s.windows {
		delete(win.listeners, c)
	}
}
