// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mainloop is a single threaded cooperative loop. Posted callbacks and
// timers run one at a time on the goroutine calling Run (or RunPending /
// Advance), never concurrently.
package mainloop

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

type Timer interface {
	// Stop cancels the timer, reporting whether it was still armed.
	Stop() bool
	// Reset re-arms the timer d from now, reporting whether it was armed.
	Reset(d time.Duration) bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Post(fn func())
}

type Loop struct {
	mu     sync.Mutex
	manual bool
	clock  time.Time
	timers timerHeap
	posted []func()
	seq    uint64
	wake   chan struct{}
}

// New returns a loop driven by the wall clock.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// NewManual returns a loop whose clock only moves through Advance.
func NewManual(start time.Time) *Loop {
	return &Loop{manual: true, clock: start, wake: make(chan struct{}, 1)}
}

func (l *Loop) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowLocked()
}

func (l *Loop) nowLocked() time.Time {
	if l.manual {
		return l.clock
	}
	return time.Now()
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post queues fn to run on the loop. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.notify()
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{loop: l, fn: fn, index: -1}
	l.mu.Lock()
	l.scheduleLocked(t, d)
	l.mu.Unlock()
	l.notify()
	return t
}

func (l *Loop) scheduleLocked(t *timer, d time.Duration) {
	l.seq++
	t.when = l.nowLocked().Add(d)
	t.seq = l.seq
	heap.Push(&l.timers, t)
}

// Pending reports the number of armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timers.Len()
}

func (l *Loop) takePosted() []func() {
	l.mu.Lock()
	fns := l.posted
	l.posted = nil
	l.mu.Unlock()
	return fns
}

// popDue removes the earliest timer due at or before now.
func (l *Loop) popDue(now time.Time) *timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timers.Len() == 0 || l.timers[0].when.After(now) {
		return nil
	}
	return heap.Pop(&l.timers).(*timer)
}

// RunPending runs every posted callback and every timer due now, returning
// how many callbacks ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		fns := l.takePosted()
		for _, fn := range fns {
			fn()
		}
		n += len(fns)

		t := l.popDue(l.Now())
		if t == nil && len(fns) == 0 {
			return n
		}
		if t != nil {
			t.fn()
			n++
		}
	}
}

// Advance moves a manual clock forward by d, firing timers in deadline order
// with the clock set to each deadline.
func (l *Loop) Advance(d time.Duration) {
	if !l.manual {
		panic("mainloop: Advance on a wall clock loop")
	}
	l.mu.Lock()
	target := l.clock.Add(d)
	l.mu.Unlock()

	for {
		l.RunPending()
		l.mu.Lock()
		if l.timers.Len() == 0 || l.timers[0].when.After(target) {
			l.clock = target
			l.mu.Unlock()
			break
		}
		if l.timers[0].when.After(l.clock) {
			l.clock = l.timers[0].when
		}
		l.mu.Unlock()
	}
	l.RunPending()
}

// Run dispatches callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		var tm *time.Timer
		var wait <-chan time.Time
		l.mu.Lock()
		if l.timers.Len() > 0 && !l.manual {
			tm = time.NewTimer(time.Until(l.timers[0].when))
			wait = tm.C
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			if tm != nil {
				tm.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-wait:
		}
		if tm != nil {
			tm.Stop()
		}
	}
}

type timer struct {
	loop  *Loop
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

func (t *timer) Stop() bool {
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&l.timers, t.index)
	return true
}

func (t *timer) Reset(d time.Duration) bool {
	l := t.loop
	l.mu.Lock()
	armed := t.index >= 0
	if armed {
		heap.Remove(&l.timers, t.index)
	}
	l.scheduleLocked(t, d)
	l.mu.Unlock()
	l.notify()
	return armed
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(v interface{}) {
	t := v.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
