// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("dde-selection/events")

// EventFunc receives every event dispatched from a Display.
type EventFunc func(ev *Event, data interface{})

// DestroyNotify is called on the user data of a handler being replaced.
type DestroyNotify func(data interface{})

// Source fills a display queue from the platform. QueueEvents must not block.
type Source interface {
	QueueEvents(d *Display)
}

type sink struct {
	fn     EventFunc
	data   interface{}
	notify DestroyNotify
}

// Display is the event state of one platform connection: queue, click
// history and dispatch sink. It is used from the main loop only.
type Display struct {
	queue  Queue
	synth  *Synthesizer
	sink   sink
	source Source
	closed bool
}

func NewDisplay(cfg ClickConfig) *Display {
	return &Display{
		synth: NewSynthesizer(cfg),
	}
}

func (d *Display) SetSource(src Source) {
	d.source = src
}

func (d *Display) SetClickConfig(cfg ClickConfig) {
	d.synth.SetConfig(cfg)
}

func (d *Display) ClickConfig() ClickConfig {
	return d.synth.Config()
}

// Queue exposes the underlying queue for platform code and tests.
func (d *Display) Queue() *Queue {
	return &d.queue
}

// SetHandler installs the dispatch sink. The destroy notifier of the
// previous sink is run on its data first.
func (d *Display) SetHandler(fn EventFunc, data interface{}, notify DestroyNotify) {
	old := d.sink
	if old.notify != nil {
		old.notify(old.data)
	}
	d.sink = sink{fn: fn, data: data, notify: notify}
}

// BeginEvent appends a pending record that the platform layer fills in and
// then hands to CompleteEvent.
func (d *Display) BeginEvent(kind Kind, window *Window) *Event {
	ev := New(kind, window)
	ev.Pending = true
	d.queue.Append(ev)
	return ev
}

// CompleteEvent clears the pending flag. Button presses go through the click
// synthesizer here so that synthesized clicks land behind the press.
func (d *Display) CompleteEvent(ev *Event) {
	ev.Pending = false
	if ev.Kind == KindButtonPress {
		if synth := d.synth.Generate(&d.queue, ev); synth != nil {
			logger.Debugf("synthesized %v", synth)
		}
	}
}

// QueueAppend appends a fully built record; ownership passes to the queue.
func (d *Display) QueueAppend(ev *Event) {
	d.queue.Append(ev)
	if !ev.Pending && ev.Kind == KindButtonPress {
		d.synth.Generate(&d.queue, ev)
	}
}

// PutEvent appends a copy of a synthetic event; the caller keeps ev.
func (d *Display) PutEvent(ev *Event) {
	c := ev.Copy()
	c.Pending = false
	d.queue.Append(c)
}

func (d *Display) pull() {
	if d.source != nil && !d.closed {
		d.source.QueueEvents(d)
	}
}

// GetEvent returns the next deliverable event, pulling from the platform
// source when nothing is queued. The caller frees it.
func (d *Display) GetEvent() *Event {
	if ev := d.queue.Unqueue(); ev != nil {
		return ev
	}
	d.pull()
	return d.queue.Unqueue()
}

// PeekEvent returns a copy of the next deliverable event.
func (d *Display) PeekEvent() *Event {
	if ev := d.queue.Peek(); ev != nil {
		return ev
	}
	d.pull()
	return d.queue.Peek()
}

func (d *Display) EventsPending() bool {
	if d.queue.FindFirstDeliverable() != nil {
		return true
	}
	d.pull()
	return d.queue.FindFirstDeliverable() != nil
}

// Dispatch hands ev to the installed sink.
func (d *Display) Dispatch(ev *Event) bool {
	if d.sink.fn == nil {
		return false
	}
	d.sink.fn(ev, d.sink.data)
	return true
}

// DispatchAll dispatches and frees every deliverable event and returns how
// many were delivered.
func (d *Display) DispatchAll() int {
	n := 0
	for {
		ev := d.GetEvent()
		if ev == nil {
			return n
		}
		d.Dispatch(ev)
		ev.Free()
		n++
	}
}

func (d *Display) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.queue.Clear()
	d.SetHandler(nil, nil, nil)
}
