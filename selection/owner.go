// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
	x "github.com/linuxdeepin/go-x11-client"
)

type ownerRecord struct {
	selection x.Atom
	widget    Widget
	time      x.Timestamp
	display   Display
}

func (c *Context) findOwner(d Display, selection x.Atom) (int, *ownerRecord) {
	for i, rec := range c.owners {
		if rec.display == d && rec.selection == selection {
			return i, rec
		}
	}
	return -1, nil
}

func (c *Context) removeOwnerAt(i int) {
	copy(c.owners[i:], c.owners[i+1:])
	c.owners[len(c.owners)-1] = nil
	c.owners = c.owners[:len(c.owners)-1]
}

// Owner returns the local widget owning selection on d, or nil.
func (c *Context) Owner(d Display, selection x.Atom) Widget {
	if _, rec := c.findOwner(d, selection); rec != nil {
		return rec.widget
	}
	return nil
}

// OwnerTime returns the timestamp the local owner claimed selection with.
func (c *Context) OwnerTime(d Display, selection x.Atom) (x.Timestamp, bool) {
	if _, rec := c.findOwner(d, selection); rec != nil {
		return rec.time, true
	}
	return 0, false
}

// OwnerSet claims selection for w on the display of w. A nil w releases
// selection on every display where a widget of c owns it, and reports
// whether anything was released.
func (c *Context) OwnerSet(w Widget, selection x.Atom, t x.Timestamp) bool {
	if w != nil {
		return c.OwnerSetForDisplay(w.Display(), w, selection, t)
	}
	var displays []Display
	for _, rec := range c.owners {
		if rec.selection == selection {
			displays = append(displays, rec.display)
		}
	}
	released := false
	for _, d := range displays {
		if c.OwnerSetForDisplay(d, nil, selection, t) {
			released = true
		}
	}
	return released
}

// OwnerSetForDisplay claims selection on d for w, or releases it when w
// is nil. A previous local owner other than w gets a SelectionClear.
func (c *Context) OwnerSetForDisplay(d Display, w Widget, selection x.Atom, t x.Timestamp) bool {
	if d == nil || selection == x.None {
		return false
	}
	xid := x.Window(x.None)
	if w != nil {
		if w.Display() != d || w.Window() == nil {
			logger.Warning("owner widget is not realized on this display")
			return false
		}
		c.Register(w)
		xid = w.Window().XID
	}

	if !d.SetSelectionOwner(xid, selection, t) {
		logger.Debugf("claim of %s refused", atomName(d, selection))
		return false
	}

	var oldOwner Widget
	i, rec := c.findOwner(d, selection)
	if rec != nil {
		oldOwner = rec.widget
	}

	if w == nil {
		if rec != nil {
			c.removeOwnerAt(i)
		}
	} else if rec == nil {
		c.owners = append(c.owners, &ownerRecord{
			selection: selection,
			widget:    w,
			time:      t,
			display:   d,
		})
	} else {
		rec.widget = w
		rec.time = t
	}

	if oldOwner != nil && oldOwner != w {
		ev := events.New(events.KindSelectionClear, oldOwner.Window())
		ev.Selection().Selection = selection
		ev.Time = t
		c.SelectionClear(oldOwner, ev)
		ev.Free()
	}
	return true
}

// SelectionClear handles the loss of a selection by w.
func (c *Context) SelectionClear(w Widget, ev *events.Event) bool {
	sel := ev.Selection()
	if sel == nil {
		return false
	}
	i, rec := c.findOwner(w.Display(), sel.Selection)
	if rec != nil && rec.widget == w {
		c.removeOwnerAt(i)
	}
	w.SelectionClear(ev)
	return true
}
