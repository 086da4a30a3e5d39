// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	x "github.com/linuxdeepin/go-x11-client"
)

// invokeHandler asks the owner for data.Target, falling back to the
// targets every owner supports.
func (c *Context) invokeHandler(w Widget, data *Data, t x.Timestamp) {
	if l := c.lookupTargets(w, data.Selection); l != nil {
		if info, ok := l.Find(data.Target); ok {
			w.SelectionGet(data, info, t)
			return
		}
	}
	c.defaultHandler(w, data)
}

func (c *Context) defaultHandler(w Widget, data *Data) {
	d := w.Display()
	atoms := c.atomsFor(d)

	switch data.Target {
	case atoms.timestamp:
		_, rec := c.findOwner(d, data.Selection)
		if rec == nil || rec.widget != w {
			data.Length = -1
			return
		}
		data.Set(x.AtomInteger, 32, encodeCard32(uint32(rec.time)))

	case atoms.targets:
		list := []x.Atom{atoms.timestamp, atoms.targets, atoms.multiple}
		if l := c.lookupTargets(w, data.Selection); l != nil {
			for _, e := range l.entries {
				list = append(list, e.Target)
			}
		}
		data.Set(x.AtomAtom, 32, encodeAtoms(list))

	default:
		data.Length = -1
	}
}
