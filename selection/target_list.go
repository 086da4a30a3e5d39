// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"sync/atomic"

	x "github.com/linuxdeepin/go-x11-client"
)

// Target flags, carried for drag and drop users of a list.
const (
	TargetSameApp uint32 = 1 << iota
	TargetSameWidget
	TargetOtherApp
	TargetOtherWidget
)

// Info tags attached by AddTextTargets.
const (
	InfoUTF8String uint32 = iota + 1
	InfoString
	InfoText
)

type TargetEntry struct {
	Target x.Atom
	Flags  uint32
	Info   uint32
}

// TargetList is an ordered, reference counted set of targets a widget
// can convert its selection to.
type TargetList struct {
	entries []TargetEntry
	refs    int32
}

func NewTargetList(entries ...TargetEntry) *TargetList {
	l := &TargetList{refs: 1}
	l.AddTable(entries)
	return l
}

func (l *TargetList) Ref() *TargetList {
	atomic.AddInt32(&l.refs, 1)
	return l
}

// Unref drops a reference. The entries are released with the last one.
func (l *TargetList) Unref() {
	if n := atomic.AddInt32(&l.refs, -1); n == 0 {
		l.entries = nil
	} else if n < 0 {
		panic("selection: TargetList.Unref on released list")
	}
}

func (l *TargetList) Add(target x.Atom, flags, info uint32) {
	l.entries = append(l.entries, TargetEntry{Target: target, Flags: flags, Info: info})
}

func (l *TargetList) AddTable(entries []TargetEntry) {
	l.entries = append(l.entries, entries...)
}

// AddTextTargets appends the text formats served by Data.SetText.
func (l *TargetList) AddTextTargets(d Display, info uint32) {
	for _, name := range []string{"UTF8_STRING", "TEXT", "COMPOUND_TEXT"} {
		atom, err := d.InternAtom(name)
		if err != nil {
			logger.Warning(err)
			continue
		}
		l.Add(atom, 0, info)
	}
	l.Add(x.AtomString, 0, info)
}

// Remove deletes the first entry for target.
func (l *TargetList) Remove(target x.Atom) {
	for i, e := range l.entries {
		if e.Target == target {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *TargetList) Find(target x.Atom) (uint32, bool) {
	for _, e := range l.entries {
		if e.Target == target {
			return e.Info, true
		}
	}
	return 0, false
}

func (l *TargetList) Entries() []TargetEntry {
	entries := make([]TargetEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *TargetList) Len() int {
	return len(l.entries)
}
