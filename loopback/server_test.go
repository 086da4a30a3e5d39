// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loopback

import (
	"errors"
	"testing"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(c *Client) *[]*events.Event {
	var got []*events.Event
	c.Events().SetHandler(func(ev *events.Event, data interface{}) {
		got = append(got, ev.Copy())
	}, nil, nil)
	return &got
}

func TestAtoms(t *testing.T) {
	s := NewServer()
	c := s.NewClient("a")

	atom, err := c.InternAtom("STRING")
	require.NoError(t, err)
	assert.Equal(t, x.Atom(x.AtomString), atom)

	clip, err := c.InternAtom("CLIPBOARD")
	require.NoError(t, err)
	again, err := s.NewClient("b").InternAtom("CLIPBOARD")
	require.NoError(t, err)
	assert.Equal(t, clip, again)

	name, err := c.AtomName(clip)
	require.NoError(t, err)
	assert.Equal(t, "CLIPBOARD", name)

	_, err = c.AtomName(9999)
	assert.Equal(t, ErrBadAtom, err)
	_, err = c.InternAtom("")
	assert.Equal(t, ErrBadAtom, err)
}

func TestSelectionOwner(t *testing.T) {
	s := NewServer()
	a := s.NewClient("a")
	b := s.NewClient("b")
	aEvents := collect(a)
	winA := a.CreateWindow()
	winB := b.CreateWindow()

	assert.True(t, a.SetSelectionOwner(winA.XID, 1, 2000))
	owner, err := b.GetSelectionOwner(1)
	require.NoError(t, err)
	assert.Equal(t, winA.XID, owner)

	// older than the current claim
	assert.False(t, b.SetSelectionOwner(winB.XID, 1, 1500))

	assert.True(t, b.SetSelectionOwner(winB.XID, 1, 2500))
	s.Flush()
	require.Len(t, *aEvents, 1)
	ev := (*aEvents)[0]
	assert.Equal(t, events.KindSelectionClear, ev.Kind)
	assert.Equal(t, winA.XID, ev.Window.XID)
	assert.Equal(t, x.Timestamp(2500), ev.Time)

	// a re-claim by the same client does not clear it
	*aEvents = nil
	winA2 := a.CreateWindow()
	assert.True(t, a.SetSelectionOwner(winA.XID, 2, x.TimeCurrentTime))
	assert.True(t, a.SetSelectionOwner(winA2.XID, 2, x.TimeCurrentTime))
	s.Flush()
	assert.Empty(t, *aEvents)
}

func TestTimestampWrap(t *testing.T) {
	assert.True(t, timeBefore(10, 20))
	assert.False(t, timeBefore(20, 10))
	assert.True(t, timeBefore(0xfffffff0, 5))
	assert.False(t, timeBefore(5, 0xfffffff0))
}

func TestProperties(t *testing.T) {
	s := NewServer()
	c := s.NewClient("a")
	got := collect(c)
	win := c.CreateWindow()
	prop, _ := c.InternAtom("DATA")

	p, err := c.GetProperty(win.XID, prop, false)
	require.NoError(t, err)
	assert.Equal(t, x.Atom(x.None), p.Type)

	require.NoError(t, c.SelectPropertyEvents(win.XID, true))
	require.NoError(t, c.ChangeProperty(win.XID, prop, x.AtomString, 8, selection.PropModeReplace, []byte("bc")))
	require.NoError(t, c.ChangeProperty(win.XID, prop, x.AtomString, 8, selection.PropModeAppend, []byte("d")))
	require.NoError(t, c.ChangeProperty(win.XID, prop, x.AtomString, 8, selection.PropModePrepend, []byte("a")))
	err = c.ChangeProperty(win.XID, prop, x.AtomInteger, 8, selection.PropModeAppend, []byte("e"))
	assert.Equal(t, ErrBadMatch, err)

	value, ok := s.Property(win.XID, prop)
	require.True(t, ok)
	assert.Equal(t, "abcd", string(value.Data))

	p, err = c.GetProperty(win.XID, prop, true)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(p.Data))
	_, ok = s.Property(win.XID, prop)
	assert.False(t, ok)

	s.Flush()
	var states []events.PropertyState
	for _, ev := range *got {
		states = append(states, ev.Property().State)
	}
	assert.Equal(t, []events.PropertyState{
		events.PropertyNewValue, events.PropertyNewValue, events.PropertyNewValue,
		events.PropertyDelete,
	}, states)
	assert.Len(t, s.PropertyWrites(), 3)
}

func TestPropertyLimits(t *testing.T) {
	s := NewServer()
	c := s.NewClient("a")
	win := c.CreateWindow()
	prop, _ := c.InternAtom("DATA")

	err := c.ChangeProperty(win.XID, prop, x.AtomString, 7, selection.PropModeReplace, nil)
	assert.Equal(t, ErrBadMatch, err)
	err = c.ChangeProperty(win.XID, prop, x.AtomAtom, 32, selection.PropModeReplace, []byte{1, 2})
	assert.Equal(t, ErrBadLength, err)

	c.SetMaxRequestSize(4)
	err = c.ChangeProperty(win.XID, prop, x.AtomString, 8, selection.PropModeReplace, []byte("12345"))
	assert.True(t, errors.Is(err, ErrBadLength))

	err = c.ChangeProperty(0x1, prop, x.AtomString, 8, selection.PropModeReplace, nil)
	assert.True(t, errors.Is(err, ErrBadWindow))
}

func TestConvertUnowned(t *testing.T) {
	s := NewServer()
	c := s.NewClient("a")
	got := collect(c)
	win := c.CreateWindow()
	target, _ := c.InternAtom("UTF8_STRING")

	require.NoError(t, c.ConvertSelection(win.XID, 1, target, target, 42))
	assert.Equal(t, 1, s.Flush())
	require.Len(t, *got, 1)
	sel := (*got)[0].Selection()
	assert.Equal(t, events.KindSelectionNotify, (*got)[0].Kind)
	assert.Equal(t, x.Atom(x.None), sel.Property)
	assert.Equal(t, target, sel.Target)
}

func TestDestroyWindow(t *testing.T) {
	s := NewServer()
	c := s.NewClient("a")
	got := collect(c)
	win := c.CreateWindow()
	require.True(t, c.SetSelectionOwner(win.XID, 1, x.TimeCurrentTime))

	require.NoError(t, c.DestroyWindow(win))
	owner, err := c.GetSelectionOwner(1)
	require.NoError(t, err)
	assert.Equal(t, x.Window(x.None), owner)

	s.Flush()
	require.Len(t, *got, 1)
	assert.Equal(t, events.KindDestroy, (*got)[0].Kind)
}
