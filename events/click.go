// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"time"

	x "github.com/linuxdeepin/go-x11-client"
)

const (
	DefaultDoubleClickTime     = 250 * time.Millisecond
	DefaultDoubleClickDistance = 5
)

// ClickConfig controls double and triple click synthesis. The distances are
// kept for consumers reading them from XSETTINGS; synthesis only looks at
// time, window and button.
type ClickConfig struct {
	DoubleClickTime     time.Duration
	TripleClickTime     time.Duration
	DoubleClickDistance int
	TripleClickDistance int
}

func DefaultClickConfig() ClickConfig {
	return ClickConfig{
		DoubleClickTime:     DefaultDoubleClickTime,
		TripleClickTime:     2 * DefaultDoubleClickTime,
		DoubleClickDistance: DefaultDoubleClickDistance,
		TripleClickDistance: 2 * DefaultDoubleClickDistance,
	}
}

type clickSlot struct {
	time x.Timestamp
	// window is only compared, never dereferenced.
	window *Window
	button int
}

func (s *clickSlot) reset() {
	s.time = 0
	s.window = nil
	s.button = -1
}

func (s *clickSlot) matches(ev *Event, b *Button, limit time.Duration) bool {
	if s.window == nil || s.window != ev.Window || s.button != int(b.Button) {
		return false
	}
	// timestamps are server milliseconds and wrap around
	elapsed := uint32(ev.Time) - uint32(s.time)
	return elapsed < uint32(limit/time.Millisecond)
}

// Synthesizer tracks the last two button presses to generate double and
// triple click events.
type Synthesizer struct {
	cfg   ClickConfig
	slots [2]clickSlot
}

func NewSynthesizer(cfg ClickConfig) *Synthesizer {
	s := &Synthesizer{cfg: cfg}
	s.slots[0].reset()
	s.slots[1].reset()
	return s
}

func (s *Synthesizer) SetConfig(cfg ClickConfig) {
	s.cfg = cfg
}

func (s *Synthesizer) Config() ClickConfig {
	return s.cfg
}

// Generate inspects a button press that has just been queued and appends a
// synthesized double or triple click to q when the press completes one.
// It returns the synthesized event or nil.
func (s *Synthesizer) Generate(q *Queue, press *Event) *Event {
	b := press.Button()
	if press.Kind != KindButtonPress || b == nil {
		return nil
	}

	switch {
	case s.slots[1].matches(press, b, s.cfg.TripleClickTime):
		ev := press.Copy()
		ev.Kind = KindTripleButtonPress
		ev.Pending = false
		q.Append(ev)

		// no quadruple click, start over
		s.slots[0].reset()
		s.slots[1].reset()
		return ev

	case s.slots[0].matches(press, b, s.cfg.DoubleClickTime):
		ev := press.Copy()
		ev.Kind = KindDoubleButtonPress
		ev.Pending = false
		q.Append(ev)

		s.slots[1] = s.slots[0]
		s.slots[0] = clickSlot{time: press.Time, window: press.Window, button: int(b.Button)}
		return ev

	default:
		s.slots[1].reset()
		s.slots[0] = clickSlot{time: press.Time, window: press.Window, button: int(b.Button)}
		return nil
	}
}
