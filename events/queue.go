// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"container/list"
)

// Queue is the ordered list of events waiting for delivery. Records flagged
// Pending stay in place and are skipped by consumers.
type Queue struct {
	l list.List
}

func (q *Queue) Len() int {
	return q.l.Len()
}

// Append pushes ev to the tail and returns its node.
func (q *Queue) Append(ev *Event) *list.Element {
	return q.l.PushBack(ev)
}

// FindFirstDeliverable returns the first node that is not pending, or nil.
// The scan is repeated on every call since the platform layer may clear
// Pending on any node at any time.
func (q *Queue) FindFirstDeliverable() *list.Element {
	for e := q.l.Front(); e != nil; e = e.Next() {
		if !e.Value.(*Event).Pending {
			return e
		}
	}
	return nil
}

// RemoveLink unlinks node, which must belong to q.
func (q *Queue) RemoveLink(node *list.Element) *Event {
	return q.l.Remove(node).(*Event)
}

// Unqueue removes and returns the first deliverable event, nil if there is
// none.
func (q *Queue) Unqueue() *Event {
	node := q.FindFirstDeliverable()
	if node == nil {
		return nil
	}
	return q.RemoveLink(node)
}

// Peek returns a copy of the first deliverable event and leaves it queued.
// The caller frees the copy.
func (q *Queue) Peek() *Event {
	node := q.FindFirstDeliverable()
	if node == nil {
		return nil
	}
	return node.Value.(*Event).Copy()
}

// Clear frees every queued record, pending or not.
func (q *Queue) Clear() {
	for e := q.l.Front(); e != nil; {
		next := e.Next()
		q.l.Remove(e).(*Event).Free()
		e = next
	}
}
