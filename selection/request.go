// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
	x "github.com/linuxdeepin/go-x11-client"
)

// SelectionRequest answers a conversion request sent to w, the owner of
// the selection. Large replies are moved to the INCR engine.
func (c *Context) SelectionRequest(w Widget, ev *events.Event) bool {
	sel := ev.Selection()
	if sel == nil {
		return false
	}
	d := w.Display()
	if _, rec := c.findOwner(d, sel.Selection); rec == nil || rec.widget != w {
		return false
	}
	atoms := c.atomsFor(d)

	requestor := sel.Requestor
	property := sel.Property
	// obsolete requestors leave the property unset
	if property == x.None {
		property = sel.Target
	}

	logger.Debugf("selection request for %s, target %s, property %s from 0x%x",
		atomName(d, sel.Selection), atomName(d, sel.Target), atomName(d, property), uint32(requestor))

	var convs []*conversion
	if sel.Target == atoms.multiple {
		prop, err := d.GetProperty(requestor, property, false)
		if err != nil || prop.Type == x.None || prop.Format != 32 {
			if err != nil {
				logger.Warning(err)
			}
			c.sendNotify(d, requestor, sel.Selection, sel.Target, x.None, ev.Time)
			return true
		}
		if prop.Type != atoms.atomPair && prop.Type != x.AtomAtom {
			logger.Debugf("MULTIPLE request with property type %s", atomName(d, prop.Type))
		}
		pairs := decodeAtoms(prop.Data)
		for i := 0; i+1 < len(pairs); i += 2 {
			convs = append(convs, &conversion{
				target:   pairs[i],
				property: pairs[i+1],
			})
		}
	} else {
		convs = []*conversion{{
			target:   sel.Target,
			property: property,
		}}
	}

	info := &incrInfo{
		display:     d,
		requestor:   requestor,
		selection:   sel.Selection,
		conversions: convs,
	}

	for _, conv := range convs {
		data := newData(d, sel.Selection, conv.target)
		c.invokeHandler(w, data, ev.Time)

		if data.Length < 0 {
			conv.property = x.None
			continue
		}
		if data.Format < 8 || data.Format%8 != 0 {
			logger.Warningf("handler for %s returned format %d", atomName(d, conv.target), data.Format)
			conv.property = x.None
			continue
		}

		itemSize := int(data.Format / 8)
		if needsIncr(d, data.Length) {
			logger.Debugf("starting INCR, %d bytes", data.Length)
			conv.offset = 0
			conv.data = data
			info.numIncrs++
			c.changeProperty(d, requestor, conv.property, atoms.incr, 32,
				encodeCard32(uint32(data.Length/itemSize)))
		} else {
			conv.offset = offsetDone
			c.changeProperty(d, requestor, conv.property, data.Type, data.Format, data.Bytes())
		}
	}

	if info.numIncrs > 0 {
		if err := d.SelectPropertyEvents(requestor, true); err != nil {
			logger.Warning(err)
		}
		c.incrs = append(c.incrs, info)
		info.timer = c.sched.AfterFunc(c.idleTimeout, func() {
			c.incrTimeout(info)
		})
	}

	if sel.Target == atoms.multiple {
		pairs := make([]x.Atom, 0, 2*len(convs))
		for _, conv := range convs {
			pairs = append(pairs, conv.target, conv.property)
		}
		c.changeProperty(d, requestor, property, atoms.atomPair, 32, encodeAtoms(pairs))
	}

	if len(convs) == 1 && convs[0].property == x.None {
		c.sendNotify(d, requestor, sel.Selection, sel.Target, x.None, ev.Time)
	} else {
		c.sendNotify(d, requestor, sel.Selection, sel.Target, property, ev.Time)
	}
	return true
}

func (c *Context) changeProperty(d Display, win x.Window, prop, typ x.Atom, format uint8, data []byte) {
	err := d.ChangeProperty(win, prop, typ, format, PropModeReplace, data)
	if err != nil {
		logger.Warning(err)
	}
}

func (c *Context) sendNotify(d Display, requestor x.Window, selection, target, property x.Atom, t x.Timestamp) {
	err := d.SendSelectionNotify(requestor, selection, target, property, t)
	if err != nil {
		logger.Warning(err)
	}
}
