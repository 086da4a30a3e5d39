// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package x11

import (
	"encoding/binary"
	"testing"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisplay() *Display {
	d := &Display{
		events:  events.NewDisplay(events.DefaultClickConfig()),
		windows: make(map[x.Window]*events.Window),
		owned:   make(map[x.Atom]x.Window),
		watched: make(map[x.Window]struct{}),

		maxRequestSize: DefaultMaxRequestSize,
		serverMax:      DefaultMaxRequestSize,
	}
	d.events.SetSource(d)
	return d
}

func selectionClearEvent(t x.Timestamp, owner x.Window, sel x.Atom) x.GenericEvent {
	buf := make([]byte, 32)
	buf[0] = byte(x.SelectionClearEventCode)
	binary.LittleEndian.PutUint32(buf[4:], uint32(t))
	binary.LittleEndian.PutUint32(buf[8:], uint32(owner))
	binary.LittleEndian.PutUint32(buf[12:], uint32(sel))
	return x.GenericEvent(buf)
}

func propertyNotifyEvent(win x.Window, atom x.Atom, t x.Timestamp, state uint8) x.GenericEvent {
	buf := make([]byte, 32)
	buf[0] = byte(x.PropertyNotifyEventCode)
	binary.LittleEndian.PutUint32(buf[4:], uint32(win))
	binary.LittleEndian.PutUint32(buf[8:], uint32(atom))
	binary.LittleEndian.PutUint32(buf[12:], uint32(t))
	buf[16] = state
	return x.GenericEvent(buf)
}

func TestTranslate_SelectionClearFilter(t *testing.T) {
	d := newTestDisplay()
	win := events.NewWindow(0x400001)
	d.windows[win.XID] = win
	d.owned[1] = win.XID

	// cleared by our own release: we claimed with None since
	d.owned[2] = x.None
	d.inbox = []x.GenericEvent{
		selectionClearEvent(100, win.XID, 2),
		selectionClearEvent(101, win.XID, 1),
	}

	ev := d.events.GetEvent()
	require.NotNil(t, ev)
	defer ev.Free()
	assert.Equal(t, events.KindSelectionClear, ev.Kind)
	assert.Equal(t, x.Atom(1), ev.Selection().Selection)
	assert.Equal(t, x.Timestamp(101), ev.Time)
	assert.Same(t, win, ev.Window)
	assert.False(t, ev.Pending)
	assert.Nil(t, d.events.GetEvent())

	_, ok := d.owned[1]
	assert.False(t, ok)
}

func TestTranslate_PropertyNotify(t *testing.T) {
	d := newTestDisplay()
	d.inbox = []x.GenericEvent{
		propertyNotifyEvent(0x500002, 77, 5, uint8(x.PropertyNewValue)),
		propertyNotifyEvent(0x500002, 77, 6, uint8(x.PropertyDelete)),
	}
	assert.True(t, d.events.EventsPending())

	ev := d.events.GetEvent()
	require.NotNil(t, ev)
	assert.True(t, ev.Window.Foreign)
	assert.Equal(t, x.Atom(77), ev.Property().Atom)
	assert.Equal(t, events.PropertyNewValue, ev.Property().State)
	ev.Free()

	ev = d.events.GetEvent()
	require.NotNil(t, ev)
	assert.Equal(t, events.PropertyDelete, ev.Property().State)
	ev.Free()
}

func TestPropMode(t *testing.T) {
	assert.Equal(t, uint8(x.PropModeReplace), propMode(selection.PropModeReplace))
	assert.Equal(t, uint8(x.PropModeAppend), propMode(selection.PropModeAppend))
	assert.Equal(t, uint8(x.PropModePrepend), propMode(selection.PropModePrepend))
}
