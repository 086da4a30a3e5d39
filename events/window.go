// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"fmt"
	"sync/atomic"

	x "github.com/linuxdeepin/go-x11-client"
)

// Window is a reference counted handle on a platform window. Every event
// record holding a *Window owns exactly one reference on it.
type Window struct {
	XID     x.Window
	Foreign bool

	refs int32
}

// NewWindow returns a handle with one reference held by the caller.
func NewWindow(xid x.Window) *Window {
	return &Window{XID: xid, refs: 1}
}

// NewForeignWindow wraps a window created by another client.
func NewForeignWindow(xid x.Window) *Window {
	return &Window{XID: xid, Foreign: true, refs: 1}
}

func (w *Window) Ref() *Window {
	if w == nil {
		return nil
	}
	atomic.AddInt32(&w.refs, 1)
	return w
}

func (w *Window) Unref() {
	if w == nil {
		return
	}
	if atomic.AddInt32(&w.refs, -1) < 0 {
		panic(fmt.Sprintf("window %d: unref of dead window", w.XID))
	}
}

func (w *Window) RefCount() int {
	if w == nil {
		return 0
	}
	return int(atomic.LoadInt32(&w.refs))
}

func (w *Window) String() string {
	if w == nil {
		return "<nil>"
	}
	return fmt.Sprintf("0x%x", uint32(w.XID))
}

// DragContext is the reference counted state of a drag operation carried by
// drag-and-drop events.
type DragContext struct {
	Source  *Window
	Dest    *Window
	Targets []x.Atom
	Action  uint32

	refs int32
}

func NewDragContext(source, dest *Window, targets []x.Atom) *DragContext {
	return &DragContext{
		Source:  source.Ref(),
		Dest:    dest.Ref(),
		Targets: append([]x.Atom(nil), targets...),
		refs:    1,
	}
}

func (c *DragContext) Ref() *DragContext {
	if c == nil {
		return nil
	}
	atomic.AddInt32(&c.refs, 1)
	return c
}

func (c *DragContext) Unref() {
	if c == nil {
		return
	}
	n := atomic.AddInt32(&c.refs, -1)
	if n < 0 {
		panic("unref of dead drag context")
	}
	if n == 0 {
		c.Source.Unref()
		c.Dest.Unref()
		c.Source = nil
		c.Dest = nil
	}
}

func (c *DragContext) RefCount() int {
	if c == nil {
		return 0
	}
	return int(atomic.LoadInt32(&c.refs))
}

type Rectangle struct {
	X, Y          int16
	Width, Height uint16
}

// Region is the damaged area carried by expose events.
type Region struct {
	Rects []Rectangle
}

func (r *Region) Copy() *Region {
	if r == nil {
		return nil
	}
	return &Region{Rects: append([]Rectangle(nil), r.Rects...)}
}

func (r *Region) Extents() Rectangle {
	if r == nil || len(r.Rects) == 0 {
		return Rectangle{}
	}
	x1, y1 := int32(r.Rects[0].X), int32(r.Rects[0].Y)
	x2, y2 := x1+int32(r.Rects[0].Width), y1+int32(r.Rects[0].Height)
	for _, rect := range r.Rects[1:] {
		if int32(rect.X) < x1 {
			x1 = int32(rect.X)
		}
		if int32(rect.Y) < y1 {
			y1 = int32(rect.Y)
		}
		if v := int32(rect.X) + int32(rect.Width); v > x2 {
			x2 = v
		}
		if v := int32(rect.Y) + int32(rect.Height); v > y2 {
			y2 = v
		}
	}
	return Rectangle{X: int16(x1), Y: int16(y1), Width: uint16(x2 - x1), Height: uint16(y2 - y1)}
}
