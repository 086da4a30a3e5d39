// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
)

// HandleEvent routes a selection related event from d to the widget or
// transfer it belongs to. It reports whether the event was consumed.
func (c *Context) HandleEvent(d Display, ev *events.Event) bool {
	if c.closed || ev == nil || ev.Window == nil {
		return false
	}

	switch ev.Kind {
	case events.KindPropertyNotify:
		p := ev.Property()
		if p == nil {
			return false
		}
		if p.State == events.PropertyDelete {
			return c.IncrEvent(d, ev)
		}
		if w := c.lookupWidget(d, ev.Window.XID); w != nil {
			return c.PropertyNotify(w, ev)
		}

	case events.KindSelectionClear:
		if w := c.lookupWidget(d, ev.Window.XID); w != nil {
			return c.SelectionClear(w, ev)
		}

	case events.KindSelectionRequest:
		if w := c.lookupWidget(d, ev.Window.XID); w != nil {
			return c.SelectionRequest(w, ev)
		}

	case events.KindSelectionNotify:
		if w := c.lookupWidget(d, ev.Window.XID); w != nil {
			return c.SelectionNotify(w, ev)
		}

	case events.KindDestroy:
		if w := c.lookupWidget(d, ev.Window.XID); w != nil {
			c.RemoveAll(w)
		}
	}
	return false
}
