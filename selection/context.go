// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"time"

	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
)

var logger = log.NewLogger("dde-selection/selection")

// IdleAbortTime is the number of seconds a pending transfer may go
// without progress before it is abandoned.
const IdleAbortTime = 300

const DefaultIdleTimeout = IdleAbortTime * time.Second

type Option func(c *Context)

func WithIdleTimeout(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithSelectionProperty sets the property name used on requestor
// windows to receive conversions.
func WithSelectionProperty(name string) Option {
	return func(c *Context) {
		if name != "" {
			c.propName = name
		}
	}
}

type windowKey struct {
	display Display
	xid     x.Window
}

type targetKey struct {
	widget    Widget
	selection x.Atom
}

// Context holds the selection state of one process: the ownership
// table, pending retrievals and pending INCR sends. All methods must be
// called from the goroutine running the scheduler.
type Context struct {
	sched       mainloop.Scheduler
	idleTimeout time.Duration
	propName    string

	atoms      map[Display]*atomTable
	widgets    map[windowKey]Widget
	targets    map[targetKey]*TargetList
	owners     []*ownerRecord
	retrievals []*retrieval
	incrs      []*incrInfo
	closed     bool
}

func NewContext(sched mainloop.Scheduler, opts ...Option) *Context {
	c := &Context{
		sched:       sched,
		idleTimeout: DefaultIdleTimeout,
		propName:    defaultSelectionProperty,
		atoms:       make(map[Display]*atomTable),
		widgets:     make(map[windowKey]Widget),
		targets:     make(map[targetKey]*TargetList),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) IdleTimeout() time.Duration {
	return c.idleTimeout
}

// Register makes w reachable by window for event routing and for the
// same process fast path. Operations taking a widget register it
// implicitly.
func (c *Context) Register(w Widget) {
	win := w.Window()
	if win == nil {
		return
	}
	c.widgets[windowKey{w.Display(), win.XID}] = w
}

func (c *Context) lookupWidget(d Display, xid x.Window) Widget {
	if xid == x.None {
		return nil
	}
	return c.widgets[windowKey{d, xid}]
}

// Targets returns the target list of w for selection, creating it.
func (c *Context) Targets(w Widget, selection x.Atom) *TargetList {
	key := targetKey{w, selection}
	l, ok := c.targets[key]
	if !ok {
		l = NewTargetList()
		c.targets[key] = l
	}
	return l
}

func (c *Context) lookupTargets(w Widget, selection x.Atom) *TargetList {
	return c.targets[targetKey{w, selection}]
}

func (c *Context) AddTarget(w Widget, selection, target x.Atom, info uint32) {
	c.Register(w)
	c.Targets(w, selection).Add(target, 0, info)
}

func (c *Context) AddTargets(w Widget, selection x.Atom, entries []TargetEntry) {
	c.Register(w)
	c.Targets(w, selection).AddTable(entries)
}

// ClearTargets forgets every target w registered for selection.
func (c *Context) ClearTargets(w Widget, selection x.Atom) {
	key := targetKey{w, selection}
	if l, ok := c.targets[key]; ok {
		l.Unref()
		delete(c.targets, key)
	}
}

func (c *Context) PendingRetrievals() int {
	return len(c.retrievals)
}

func (c *Context) PendingIncrs() int {
	return len(c.incrs)
}

// RemoveAll drops everything the context holds for a widget that is
// going away: its retrievals, its selections and its target lists.
func (c *Context) RemoveAll(w Widget) {
	for _, r := range append([]*retrieval(nil), c.retrievals...) {
		if r.widget == w {
			c.removeRetrieval(r)
		}
	}

	owners := c.owners[:0]
	for _, rec := range c.owners {
		if rec.widget == w {
			rec.display.SetSelectionOwner(x.None, rec.selection, x.TimeCurrentTime)
			continue
		}
		owners = append(owners, rec)
	}
	for i := len(owners); i < len(c.owners); i++ {
		c.owners[i] = nil
	}
	c.owners = owners

	for key, l := range c.targets {
		if key.widget == w {
			l.Unref()
			delete(c.targets, key)
		}
	}

	if win := w.Window(); win != nil {
		key := windowKey{w.Display(), win.XID}
		if c.widgets[key] == w {
			delete(c.widgets, key)
		}
	}
}

// Close cancels every pending transfer. Pending retrievals are reported
// as failed.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for len(c.retrievals) > 0 {
		r := c.retrievals[0]
		c.removeRetrieval(r)
		c.reportFailure(r, x.TimeCurrentTime)
	}
	for len(c.incrs) > 0 {
		c.removeIncr(c.incrs[0])
	}
	for key, l := range c.targets {
		l.Unref()
		delete(c.targets, key)
	}
	c.owners = nil
}
