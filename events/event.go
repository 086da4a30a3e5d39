// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"fmt"

	x "github.com/linuxdeepin/go-x11-client"
)

type Kind int

const (
	KindNothing Kind = iota - 1
	KindDelete
	KindDestroy
	KindExpose
	KindMotionNotify
	KindButtonPress
	KindDoubleButtonPress
	KindTripleButtonPress
	KindButtonRelease
	KindKeyPress
	KindKeyRelease
	KindEnterNotify
	KindLeaveNotify
	KindFocusChange
	KindConfigure
	KindMap
	KindUnmap
	KindPropertyNotify
	KindSelectionClear
	KindSelectionRequest
	KindSelectionNotify
	KindProximityIn
	KindProximityOut
	KindDragEnter
	KindDragLeave
	KindDragMotion
	KindDragStatus
	KindDropStart
	KindDropFinished
	KindClientEvent
	KindVisibilityNotify
	KindNoExpose
	KindScroll
	KindWindowState
	KindSetting
)

var kindNames = map[Kind]string{
	KindNothing:           "Nothing",
	KindDelete:            "Delete",
	KindDestroy:           "Destroy",
	KindExpose:            "Expose",
	KindMotionNotify:      "MotionNotify",
	KindButtonPress:       "ButtonPress",
	KindDoubleButtonPress: "2ButtonPress",
	KindTripleButtonPress: "3ButtonPress",
	KindButtonRelease:     "ButtonRelease",
	KindKeyPress:          "KeyPress",
	KindKeyRelease:        "KeyRelease",
	KindEnterNotify:       "EnterNotify",
	KindLeaveNotify:       "LeaveNotify",
	KindFocusChange:       "FocusChange",
	KindConfigure:         "Configure",
	KindMap:               "Map",
	KindUnmap:             "Unmap",
	KindPropertyNotify:    "PropertyNotify",
	KindSelectionClear:    "SelectionClear",
	KindSelectionRequest:  "SelectionRequest",
	KindSelectionNotify:   "SelectionNotify",
	KindProximityIn:       "ProximityIn",
	KindProximityOut:      "ProximityOut",
	KindDragEnter:         "DragEnter",
	KindDragLeave:         "DragLeave",
	KindDragMotion:        "DragMotion",
	KindDragStatus:        "DragStatus",
	KindDropStart:         "DropStart",
	KindDropFinished:      "DropFinished",
	KindClientEvent:       "ClientEvent",
	KindVisibilityNotify:  "VisibilityNotify",
	KindNoExpose:          "NoExpose",
	KindScroll:            "Scroll",
	KindWindowState:       "WindowState",
	KindSetting:           "Setting",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Payload is the variant part of an event. Implementations release the
// resources they own in release and take new references in clone.
type Payload interface {
	clone() Payload
	release()
}

type Key struct {
	State   uint16
	Keycode x.Keycode
	Keyval  uint32
	Group   uint8
	// String is the composed text of the key press.
	String string
}

func (p *Key) clone() Payload { c := *p; return &c }
func (p *Key) release()       { p.String = "" }

type Button struct {
	X, Y         float64
	XRoot, YRoot float64
	// Axes holds extra input device axis values, nil for core pointers.
	Axes   []float64
	State  uint16
	Button uint8
	Device string
}

func (p *Button) clone() Payload {
	c := *p
	if p.Axes != nil {
		c.Axes = append([]float64(nil), p.Axes...)
	}
	return &c
}
func (p *Button) release() { p.Axes = nil }

type Motion struct {
	X, Y         float64
	XRoot, YRoot float64
	Axes         []float64
	State        uint16
	IsHint       bool
	Device       string
}

func (p *Motion) clone() Payload {
	c := *p
	if p.Axes != nil {
		c.Axes = append([]float64(nil), p.Axes...)
	}
	return &c
}
func (p *Motion) release() { p.Axes = nil }

type ScrollDirection uint8

const (
	ScrollUp ScrollDirection = iota
	ScrollDown
	ScrollLeft
	ScrollRight
)

type Scroll struct {
	X, Y         float64
	XRoot, YRoot float64
	State        uint16
	Direction    ScrollDirection
}

func (p *Scroll) clone() Payload { c := *p; return &c }
func (p *Scroll) release()       {}

type Expose struct {
	Area   Rectangle
	Region *Region
	// Count is the number of expose events still following this one.
	Count int
}

func (p *Expose) clone() Payload {
	c := *p
	c.Region = p.Region.Copy()
	return &c
}
func (p *Expose) release() { p.Region = nil }

type Crossing struct {
	Subwindow    *Window
	X, Y         float64
	XRoot, YRoot float64
	Mode         uint8
	Detail       uint8
	Focus        bool
	State        uint16
}

func (p *Crossing) clone() Payload {
	c := *p
	c.Subwindow = p.Subwindow.Ref()
	return &c
}

func (p *Crossing) release() {
	p.Subwindow.Unref()
	p.Subwindow = nil
}

type Focus struct {
	In bool
}

func (p *Focus) clone() Payload { c := *p; return &c }
func (p *Focus) release()       {}

type Configure struct {
	X, Y          int16
	Width, Height uint16
}

func (p *Configure) clone() Payload { c := *p; return &c }
func (p *Configure) release()       {}

type PropertyState uint8

const (
	PropertyNewValue PropertyState = iota
	PropertyDelete
)

type Property struct {
	Atom  x.Atom
	State PropertyState
}

func (p *Property) clone() Payload { c := *p; return &c }
func (p *Property) release()       {}

// Selection is the payload of SelectionClear, SelectionRequest and
// SelectionNotify events.
type Selection struct {
	Selection x.Atom
	Target    x.Atom
	Property  x.Atom
	Requestor x.Window
}

func (p *Selection) clone() Payload { c := *p; return &c }
func (p *Selection) release()       {}

type Proximity struct {
	Device string
}

func (p *Proximity) clone() Payload { c := *p; return &c }
func (p *Proximity) release()       {}

type DND struct {
	Context      *DragContext
	XRoot, YRoot int16
}

func (p *DND) clone() Payload {
	c := *p
	c.Context = p.Context.Ref()
	return &c
}

func (p *DND) release() {
	p.Context.Unref()
	p.Context = nil
}

type Client struct {
	MessageType x.Atom
	Format      uint8
	Data        [20]byte
}

func (p *Client) clone() Payload { c := *p; return &c }
func (p *Client) release()       {}

type VisibilityState uint8

const (
	VisibilityUnobscured VisibilityState = iota
	VisibilityPartial
	VisibilityFullyObscured
)

type Visibility struct {
	State VisibilityState
}

func (p *Visibility) clone() Payload { c := *p; return &c }
func (p *Visibility) release()       {}

type WindowState struct {
	Changed  uint32
	NewState uint32
}

func (p *WindowState) clone() Payload { c := *p; return &c }
func (p *WindowState) release()       {}

type SettingAction uint8

const (
	SettingNew SettingAction = iota
	SettingChanged
	SettingDeleted
)

type Setting struct {
	Action SettingAction
	Name   string
}

func (p *Setting) clone() Payload { c := *p; return &c }
func (p *Setting) release()       {}

// Event is one input or window event. The record owns one reference on
// Window and on every window or drag context held by its payload.
type Event struct {
	Kind      Kind
	Window    *Window
	SendEvent bool
	Time      x.Timestamp
	Payload   Payload

	// Pending is set while the platform layer is still filling the record.
	Pending bool

	freed bool
}

func newPayload(kind Kind) Payload {
	switch kind {
	case KindKeyPress, KindKeyRelease:
		return &Key{}
	case KindButtonPress, KindDoubleButtonPress, KindTripleButtonPress, KindButtonRelease:
		return &Button{}
	case KindMotionNotify:
		return &Motion{}
	case KindScroll:
		return &Scroll{}
	case KindExpose:
		return &Expose{}
	case KindEnterNotify, KindLeaveNotify:
		return &Crossing{}
	case KindFocusChange:
		return &Focus{}
	case KindConfigure:
		return &Configure{}
	case KindPropertyNotify:
		return &Property{}
	case KindSelectionClear, KindSelectionRequest, KindSelectionNotify:
		return &Selection{}
	case KindProximityIn, KindProximityOut:
		return &Proximity{}
	case KindDragEnter, KindDragLeave, KindDragMotion, KindDragStatus, KindDropStart, KindDropFinished:
		return &DND{}
	case KindClientEvent:
		return &Client{}
	case KindVisibilityNotify:
		return &Visibility{}
	case KindWindowState:
		return &WindowState{}
	case KindSetting:
		return &Setting{}
	}
	return nil
}

// New returns an event of the given kind with an empty payload. The event
// takes its own reference on window.
func New(kind Kind, window *Window) *Event {
	return &Event{
		Kind:    kind,
		Window:  window.Ref(),
		Payload: newPayload(kind),
	}
}

// Copy returns a deep copy taking one new reference per owned field.
func (ev *Event) Copy() *Event {
	c := &Event{
		Kind:      ev.Kind,
		Window:    ev.Window.Ref(),
		SendEvent: ev.SendEvent,
		Time:      ev.Time,
		Pending:   ev.Pending,
	}
	if ev.Payload != nil {
		c.Payload = ev.Payload.clone()
	}
	return c
}

// Free releases the references owned by the event.
func (ev *Event) Free() {
	if ev == nil {
		return
	}
	if ev.freed {
		logger.Warningf("double free of %v event", ev.Kind)
		return
	}
	ev.freed = true
	ev.Window.Unref()
	ev.Window = nil
	if ev.Payload != nil {
		ev.Payload.release()
	}
}

func (ev *Event) Button() *Button {
	p, _ := ev.Payload.(*Button)
	return p
}

func (ev *Event) Key() *Key {
	p, _ := ev.Payload.(*Key)
	return p
}

func (ev *Event) Motion() *Motion {
	p, _ := ev.Payload.(*Motion)
	return p
}

func (ev *Event) Expose() *Expose {
	p, _ := ev.Payload.(*Expose)
	return p
}

func (ev *Event) Crossing() *Crossing {
	p, _ := ev.Payload.(*Crossing)
	return p
}

func (ev *Event) Property() *Property {
	p, _ := ev.Payload.(*Property)
	return p
}

func (ev *Event) Selection() *Selection {
	p, _ := ev.Payload.(*Selection)
	return p
}

func (ev *Event) DND() *DND {
	p, _ := ev.Payload.(*DND)
	return p
}

func (ev *Event) Setting() *Setting {
	p, _ := ev.Payload.(*Setting)
	return p
}

func (ev *Event) String() string {
	switch p := ev.Payload.(type) {
	case *Button:
		return fmt.Sprintf("%v{window: %v, time: %d, button: %d}", ev.Kind, ev.Window, ev.Time, p.Button)
	case *Selection:
		return fmt.Sprintf("%v{window: %v, time: %d, selection: %d, target: %d, property: %d, requestor: %d}",
			ev.Kind, ev.Window, ev.Time, p.Selection, p.Target, p.Property, p.Requestor)
	case *Property:
		return fmt.Sprintf("%v{window: %v, time: %d, atom: %d, state: %d}", ev.Kind, ev.Window, ev.Time, p.Atom, p.State)
	}
	return fmt.Sprintf("%v{window: %v, time: %d}", ev.Kind, ev.Window, ev.Time)
}
