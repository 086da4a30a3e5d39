// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package x11 implements selection.Display over an X server connection.
package x11

import (
	"errors"
	"fmt"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
)

var logger = log.NewLogger("dde-selection/x11")

// DefaultMaxRequestSize is the property payload limit used when the
// server does not announce a usable maximum request length.
const DefaultMaxRequestSize = 65432

// room left for the ChangeProperty header, in 4-byte units
const requestHeaderUnits = 100

const eventChanSize = 50

var errClaimLost = errors.New("selection owner did not change")

type Display struct {
	conn   *x.Conn
	root   x.Window
	events *events.Display

	eventChan chan x.GenericEvent
	inbox     []x.GenericEvent

	windows        map[x.Window]*events.Window
	owned          map[x.Atom]x.Window
	watched        map[x.Window]struct{}
	maxRequestSize int
	serverMax      int
}

var _ selection.Display = (*Display)(nil)

// Open connects to the X server named by $DISPLAY.
func Open(clickCfg events.ClickConfig) (*Display, error) {
	conn, err := x.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X: %w", err)
	}
	return NewDisplay(conn, clickCfg), nil
}

func NewDisplay(conn *x.Conn, clickCfg events.ClickConfig) *Display {
	serverMax := maxRequestSizeFor(conn.GetSetup())
	d := &Display{
		conn:           conn,
		root:           conn.GetDefaultScreen().Root,
		events:         events.NewDisplay(clickCfg),
		windows:        make(map[x.Window]*events.Window),
		owned:          make(map[x.Atom]x.Window),
		watched:        make(map[x.Window]struct{}),
		maxRequestSize: serverMax,
		serverMax:      serverMax,
	}
	d.eventChan = conn.MakeAndAddEventChan(eventChanSize)
	d.events.SetSource(d)
	return d
}

func (d *Display) Conn() *x.Conn {
	return d.conn
}

func (d *Display) Events() *events.Display {
	return d.events
}

// maxRequestSizeFor turns the server's maximum request length into a
// payload limit in bytes.
func maxRequestSizeFor(setup *x.Setup) int {
	if setup == nil {
		return DefaultMaxRequestSize
	}
	units := int(setup.MaximumRequestLength) - requestHeaderUnits
	if units <= 0 {
		return DefaultMaxRequestSize
	}
	return units * 4
}

// SetMaxRequestSize overrides the payload limit. Values above the server
// limit are clamped, zero or less restores the server limit.
func (d *Display) SetMaxRequestSize(n int) {
	if n <= 0 || n > d.serverMax {
		n = d.serverMax
	}
	d.maxRequestSize = n
}

func (d *Display) MaxRequestSize() int {
	return d.maxRequestSize
}

// CreateWindow creates an unmapped input-only window that receives
// property and structure events.
func (d *Display) CreateWindow() (*events.Window, error) {
	xid, err := d.conn.AllocID()
	if err != nil {
		return nil, err
	}
	wid := x.Window(xid)
	err = x.CreateWindowChecked(d.conn, 0, wid, d.root, 0, 0, 1, 1, 0,
		x.WindowClassInputOnly, x.CopyFromParent, 0, nil).Check(d.conn)
	if err != nil {
		return nil, err
	}
	err = x.ChangeWindowAttributesChecked(d.conn, wid, x.CWEventMask,
		[]uint32{x.EventMaskPropertyChange | x.EventMaskStructureNotify}).Check(d.conn)
	if err != nil {
		return nil, err
	}
	win := events.NewWindow(wid)
	d.windows[wid] = win
	return win, nil
}

func (d *Display) DestroyWindow(win *events.Window) error {
	for sel, owner := range d.owned {
		if owner == win.XID {
			delete(d.owned, sel)
		}
	}
	return x.DestroyWindowChecked(d.conn, win.XID).Check(d.conn)
}

func (d *Display) InternAtom(name string) (x.Atom, error) {
	return d.conn.GetAtom(name)
}

func (d *Display) AtomName(atom x.Atom) (string, error) {
	return d.conn.GetAtomName(atom)
}

// SetSelectionOwner claims selection and reads the owner back, since
// SetSelectionOwner has no reply.
func (d *Display) SetSelectionOwner(owner x.Window, sel x.Atom, t x.Timestamp) bool {
	err := x.SetSelectionOwnerChecked(d.conn, owner, sel, t).Check(d.conn)
	if err != nil {
		logger.Warning(err)
		return false
	}
	current, err := d.GetSelectionOwner(sel)
	if err != nil {
		logger.Warning(err)
		return false
	}
	if current != owner {
		logger.Debug(errClaimLost, current)
		return false
	}
	d.owned[sel] = owner
	return true
}

func (d *Display) GetSelectionOwner(sel x.Atom) (x.Window, error) {
	reply, err := x.GetSelectionOwner(d.conn, sel).Reply(d.conn)
	if err != nil {
		return x.None, err
	}
	return reply.Owner, nil
}

func (d *Display) ConvertSelection(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	return x.ConvertSelectionChecked(d.conn, requestor, sel, target, prop, t).Check(d.conn)
}

// GetProperty reads the whole property: first its size, then its value.
func (d *Display) GetProperty(win x.Window, prop x.Atom, del bool) (*selection.Property, error) {
	reply, err := x.GetProperty(d.conn, false, win, prop,
		x.GetPropertyTypeAny, 0, 0).Reply(d.conn)
	if err != nil {
		return nil, err
	}
	if reply.Type == x.None {
		return &selection.Property{Type: x.None}, nil
	}

	reply, err = x.GetProperty(d.conn, del, win, prop,
		x.GetPropertyTypeAny, 0,
		(reply.BytesAfter+uint32(x.Pad(int(reply.BytesAfter))))/4,
	).Reply(d.conn)
	if err != nil {
		return nil, err
	}
	return &selection.Property{
		Type:   reply.Type,
		Format: reply.Format,
		Data:   reply.Value,
	}, nil
}

func propMode(mode selection.PropMode) uint8 {
	switch mode {
	case selection.PropModeAppend:
		return x.PropModeAppend
	case selection.PropModePrepend:
		return x.PropModePrepend
	}
	return x.PropModeReplace
}

func (d *Display) ChangeProperty(win x.Window, prop, typ x.Atom, format uint8, mode selection.PropMode, data []byte) error {
	return x.ChangePropertyChecked(d.conn, propMode(mode), win, prop, typ, format, data).Check(d.conn)
}

func (d *Display) DeleteProperty(win x.Window, prop x.Atom) error {
	return x.DeletePropertyChecked(d.conn, win, prop).Check(d.conn)
}

// SelectPropertyEvents listens to property changes on a foreign window.
// Windows created by this display always listen.
func (d *Display) SelectPropertyEvents(win x.Window, enable bool) error {
	if _, ok := d.windows[win]; ok {
		return nil
	}
	mask := uint32(x.EventMaskNoEvent)
	if enable {
		mask = x.EventMaskPropertyChange
		d.watched[win] = struct{}{}
	} else {
		delete(d.watched, win)
	}
	return x.ChangeWindowAttributesChecked(d.conn, win, x.CWEventMask, []uint32{mask}).Check(d.conn)
}

func (d *Display) SendSelectionNotify(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) error {
	data := encodeSelectionNotify(requestor, sel, target, prop, t)
	return x.SendEventChecked(d.conn, false, requestor, x.EventMaskNoEvent, data).Check(d.conn)
}

func encodeSelectionNotify(requestor x.Window, sel, target, prop x.Atom, t x.Timestamp) []byte {
	w := x.NewWriter()
	x.WriteSelectionNotifyEvent(w, &x.SelectionNotifyEvent{
		Time:      t,
		Requestor: requestor,
		Selection: sel,
		Target:    target,
		Property:  prop,
	})
	return w.Bytes()
}

func (d *Display) Close() {
	for _, win := range d.windows {
		if err := x.DestroyWindowChecked(d.conn, win.XID).Check(d.conn); err != nil {
			logger.Debug(err)
		}
		win.Unref()
	}
	d.windows = nil
	d.events.Close()
	d.conn.Close()
}
