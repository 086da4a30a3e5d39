// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package x11

import (
	"context"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/mainloop"
	x "github.com/linuxdeepin/go-x11-client"
)

// Run forwards X events to the loop until ctx is done or the
// connection closes. Events are translated and dispatched on the loop.
func (d *Display) Run(ctx context.Context, sched mainloop.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.eventChan:
			if !ok {
				logger.Debug("event channel closed")
				return
			}
			sched.Post(func() {
				d.inbox = append(d.inbox, ev)
				d.events.DispatchAll()
			})
		}
	}
}

// QueueEvents translates the X events received so far into records.
func (d *Display) QueueEvents(q *events.Display) {
	inbox := d.inbox
	d.inbox = nil
	for _, ge := range inbox {
		d.translate(q, ge)
	}
}

func (d *Display) handle(xid x.Window) *events.Window {
	if win, ok := d.windows[xid]; ok {
		return win.Ref()
	}
	return events.NewForeignWindow(xid)
}

func (d *Display) begin(q *events.Display, kind events.Kind, xid x.Window) *events.Event {
	win := d.handle(xid)
	ev := q.BeginEvent(kind, win)
	win.Unref()
	return ev
}

func (d *Display) translate(q *events.Display, ge x.GenericEvent) {
	code := ge.GetEventCode()
	switch code {
	case x.ButtonPressEventCode:
		event, err := x.NewButtonPressEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindButtonPress, event.Event)
		ev.Time = event.Time
		fillButton(ev.Button(), uint8(event.Detail), event.State,
			event.EventX, event.EventY, event.RootX, event.RootY)
		q.CompleteEvent(ev)

	case x.ButtonReleaseEventCode:
		event, err := x.NewButtonReleaseEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindButtonRelease, event.Event)
		ev.Time = event.Time
		fillButton(ev.Button(), uint8(event.Detail), event.State,
			event.EventX, event.EventY, event.RootX, event.RootY)
		q.CompleteEvent(ev)

	case x.KeyPressEventCode:
		event, err := x.NewKeyPressEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindKeyPress, event.Event)
		ev.Time = event.Time
		k := ev.Key()
		k.Keycode = event.Detail
		k.State = event.State
		q.CompleteEvent(ev)

	case x.KeyReleaseEventCode:
		event, err := x.NewKeyReleaseEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindKeyRelease, event.Event)
		ev.Time = event.Time
		k := ev.Key()
		k.Keycode = event.Detail
		k.State = event.State
		q.CompleteEvent(ev)

	case x.PropertyNotifyEventCode:
		event, err := x.NewPropertyNotifyEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindPropertyNotify, event.Window)
		ev.Time = event.Time
		p := ev.Property()
		p.Atom = event.Atom
		if event.State == x.PropertyDelete {
			p.State = events.PropertyDelete
		} else {
			p.State = events.PropertyNewValue
		}
		q.CompleteEvent(ev)

	case x.SelectionClearEventCode:
		event, err := x.NewSelectionClearEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		// a clear for a window we no longer claim with comes from our
		// own release or re-claim
		if owner, ok := d.owned[event.Selection]; !ok || owner != event.Owner {
			logger.Debugf("drop self-inflicted SelectionClear for 0x%x", uint32(event.Owner))
			return
		}
		delete(d.owned, event.Selection)
		ev := d.begin(q, events.KindSelectionClear, event.Owner)
		ev.Time = event.Time
		ev.Selection().Selection = event.Selection
		q.CompleteEvent(ev)

	case x.SelectionRequestEventCode:
		event, err := x.NewSelectionRequestEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindSelectionRequest, event.Owner)
		ev.Time = event.Time
		s := ev.Selection()
		s.Selection = event.Selection
		s.Target = event.Target
		s.Property = event.Property
		s.Requestor = event.Requestor
		q.CompleteEvent(ev)

	case x.SelectionNotifyEventCode:
		event, err := x.NewSelectionNotifyEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindSelectionNotify, event.Requestor)
		ev.Time = event.Time
		s := ev.Selection()
		s.Selection = event.Selection
		s.Target = event.Target
		s.Property = event.Property
		s.Requestor = event.Requestor
		q.CompleteEvent(ev)

	case x.DestroyNotifyEventCode:
		event, err := x.NewDestroyNotifyEvent(ge)
		if err != nil {
			logger.Warning(err)
			return
		}
		ev := d.begin(q, events.KindDestroy, event.Window)
		q.CompleteEvent(ev)
		delete(d.watched, event.Window)
		if win, ok := d.windows[event.Window]; ok {
			delete(d.windows, event.Window)
			win.Unref()
		}

	default:
		logger.Debug("ignore event", code)
	}
}

func fillButton(b *events.Button, button uint8, state uint16, ex, ey, rx, ry int16) {
	b.Button = button
	b.State = state
	b.X, b.Y = float64(ex), float64(ey)
	b.XRoot, b.YRoot = float64(rx), float64(ry)
}
