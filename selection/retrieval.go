// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/mainloop"
	x "github.com/linuxdeepin/go-x11-client"
)

// retrieval is a conversion requested by a local widget and not yet
// answered. offset is -1 until the owner starts an INCR transfer, then
// the number of bytes received so far.
type retrieval struct {
	widget     Widget
	display    Display
	selection  x.Atom
	target     x.Atom
	buffer     []byte
	offset     int
	notifyTime x.Timestamp
	timer      mainloop.Timer
}

func (c *Context) findRetrieval(w Widget) *retrieval {
	for _, r := range c.retrievals {
		if r.widget == w {
			return r
		}
	}
	return nil
}

func (c *Context) hasRetrieval(r *retrieval) bool {
	for _, item := range c.retrievals {
		if item == r {
			return true
		}
	}
	return false
}

func (c *Context) removeRetrieval(r *retrieval) {
	for i, item := range c.retrievals {
		if item == r {
			copy(c.retrievals[i:], c.retrievals[i+1:])
			c.retrievals[len(c.retrievals)-1] = nil
			c.retrievals = c.retrievals[:len(c.retrievals)-1]
			break
		}
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (c *Context) touchRetrieval(r *retrieval) {
	if r.timer != nil {
		r.timer.Reset(c.idleTimeout)
	}
}

func (c *Context) retrievalTimeout(r *retrieval) {
	if !c.hasRetrieval(r) {
		return
	}
	logger.Debugf("retrieval of %s for %v timed out",
		atomName(r.display, r.target), r.widget.Window())
	r.timer = nil
	c.removeRetrieval(r)
	c.reportFailure(r, x.TimeCurrentTime)
}

func (c *Context) reportFailure(r *retrieval, t x.Timestamp) {
	c.report(r, x.None, 0, nil, -1, t)
}

func (c *Context) report(r *retrieval, typ x.Atom, format uint8, data []byte, length int, t x.Timestamp) {
	sd := newData(r.display, r.selection, r.target)
	sd.Type = typ
	sd.Format = format
	if length >= 0 {
		sd.Data = withNul(data[:length])
		sd.Length = length
	}
	r.widget.SelectionReceived(sd, t)
}

// Convert requests the content of selection as target for w. It returns
// false when w already has a conversion in flight. The result arrives
// through w.SelectionReceived; when the owner lives in this context it
// arrives before Convert returns.
func (c *Context) Convert(w Widget, selection, target x.Atom, t x.Timestamp) bool {
	if c.closed || w.Window() == nil {
		return false
	}
	c.Register(w)
	if c.findRetrieval(w) != nil {
		return false
	}

	d := w.Display()
	r := &retrieval{
		widget:    w,
		display:   d,
		selection: selection,
		target:    target,
		offset:    -1,
	}

	ownerXID, err := d.GetSelectionOwner(selection)
	if err != nil {
		logger.Warning(err)
	} else if owner := c.lookupWidget(d, ownerXID); owner != nil {
		data := newData(d, selection, target)
		c.invokeHandler(owner, data, t)
		c.report(r, data.Type, data.Format, data.Data, data.Length, t)
		return true
	}

	atoms := c.atomsFor(d)
	c.retrievals = append(c.retrievals, r)
	err = d.ConvertSelection(w.Window().XID, selection, target, atoms.property, t)
	if err != nil {
		logger.Warning("convert selection:", err)
		c.removeRetrieval(r)
		return false
	}
	r.timer = c.sched.AfterFunc(c.idleTimeout, func() {
		c.retrievalTimeout(r)
	})
	return true
}

// SelectionNotify handles the owner's answer to a Convert of w.
func (c *Context) SelectionNotify(w Widget, ev *events.Event) bool {
	sel := ev.Selection()
	if sel == nil {
		return false
	}
	r := c.findRetrieval(w)
	if r == nil || r.selection != sel.Selection {
		return false
	}
	// an INCR transfer is already running
	if r.offset >= 0 {
		return false
	}

	d := r.display
	win := w.Window().XID
	var prop *Property
	if sel.Property != x.None {
		var err error
		prop, err = d.GetProperty(win, sel.Property, false)
		if err != nil {
			logger.Warning(err)
			prop = nil
		}
	}

	if prop == nil || prop.Type == x.None {
		c.removeRetrieval(r)
		c.reportFailure(r, ev.Time)
		return true
	}

	if prop.Type == c.atomsFor(d).incr {
		r.notifyTime = ev.Time
		r.offset = 0
		c.touchRetrieval(r)
		if err := d.SelectPropertyEvents(win, true); err != nil {
			logger.Warning(err)
		}
		c.deleteProperty(d, win, sel.Property)
		return true
	}

	c.removeRetrieval(r)
	c.deleteProperty(d, win, sel.Property)
	c.report(r, prop.Type, prop.Format, prop.Data, len(prop.Data), ev.Time)
	return true
}

// PropertyNotify receives one chunk of an INCR transfer to w.
func (c *Context) PropertyNotify(w Widget, ev *events.Event) bool {
	p := ev.Property()
	if p == nil || p.State != events.PropertyNewValue {
		return false
	}
	d := w.Display()
	if p.Atom != c.atomsFor(d).property {
		return false
	}
	r := c.findRetrieval(w)
	if r == nil || r.offset < 0 {
		return false
	}

	c.touchRetrieval(r)
	win := w.Window().XID
	prop, err := d.GetProperty(win, p.Atom, false)
	if err != nil {
		logger.Warning(err)
	}
	c.deleteProperty(d, win, p.Atom)

	if prop == nil || prop.Type == x.None {
		c.removeRetrieval(r)
		c.reportFailure(r, r.notifyTime)
		return true
	}
	if len(prop.Data) == 0 {
		c.removeRetrieval(r)
		c.report(r, prop.Type, prop.Format, r.buffer, r.offset, r.notifyTime)
		return true
	}

	r.buffer = append(r.buffer, prop.Data...)
	r.offset += len(prop.Data)
	logger.Debugf("received %d bytes of %s, %d so far",
		len(prop.Data), atomName(d, r.target), r.offset)
	return true
}

func (c *Context) deleteProperty(d Display, win x.Window, prop x.Atom) {
	if err := d.DeleteProperty(win, prop); err != nil {
		logger.Warning(err)
	}
}
