// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
	x "github.com/linuxdeepin/go-x11-client"
)

type PropMode uint8

const (
	PropModeReplace PropMode = iota
	PropModePrepend
	PropModeAppend
)

// Property is the content of a window property.
type Property struct {
	Type   x.Atom
	Format uint8
	Data   []byte
}

// Items returns the number of format sized items in the property.
func (p *Property) Items() int {
	if p == nil || p.Format < 8 {
		return 0
	}
	return len(p.Data) / int(p.Format/8)
}

// Display is the platform connection the selection engine drives.
type Display interface {
	InternAtom(name string) (x.Atom, error)
	AtomName(atom x.Atom) (string, error)

	// SetSelectionOwner claims selection for owner, or releases it when
	// owner is x.None. It reports whether the claim took effect.
	SetSelectionOwner(owner x.Window, selection x.Atom, t x.Timestamp) bool
	GetSelectionOwner(selection x.Atom) (x.Window, error)
	// ConvertSelection asks the owner to store target into property on
	// requestor. Completion arrives later as a SelectionNotify event.
	ConvertSelection(requestor x.Window, selection, target, property x.Atom, t x.Timestamp) error

	// GetProperty returns a property with Type x.None when it does not exist.
	GetProperty(win x.Window, property x.Atom, delete bool) (*Property, error)
	ChangeProperty(win x.Window, property, typ x.Atom, format uint8, mode PropMode, data []byte) error
	DeleteProperty(win x.Window, property x.Atom) error
	SelectPropertyEvents(win x.Window, enable bool) error

	// MaxRequestSize is the largest property payload in bytes written in
	// one request. Zero or less means unbounded.
	MaxRequestSize() int
	SendSelectionNotify(requestor x.Window, selection, target, property x.Atom, t x.Timestamp) error
}

// Widget is what the selection engine needs from a toolkit widget.
type Widget interface {
	Display() Display
	Window() *events.Window

	// SelectionGet fills data for data.Target. info is the tag attached
	// when the target was registered. Leaving data.Length negative reports
	// that the target cannot be provided.
	SelectionGet(data *Data, info uint32, t x.Timestamp)
	// SelectionReceived reports the outcome of Convert, exactly once.
	SelectionReceived(data *Data, t x.Timestamp)
	// SelectionClear tells the widget it lost a selection.
	SelectionClear(ev *events.Event)
}
