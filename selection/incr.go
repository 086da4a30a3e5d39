// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/mainloop"
	x "github.com/linuxdeepin/go-x11-client"
)

const (
	// the conversion is complete, or was written in one request
	offsetDone = -1
	// every byte was sent, the empty terminator is still due
	offsetTerminate = -2
)

type conversion struct {
	target   x.Atom
	property x.Atom
	data     *Data
	offset   int
}

// incrInfo tracks the INCR transfers answering one request.
type incrInfo struct {
	display     Display
	requestor   x.Window
	selection   x.Atom
	conversions []*conversion
	numIncrs    int
	timer       mainloop.Timer
}

func (c *Context) hasIncr(info *incrInfo) bool {
	for _, item := range c.incrs {
		if item == info {
			return true
		}
	}
	return false
}

func (c *Context) removeIncr(info *incrInfo) {
	for i, item := range c.incrs {
		if item == info {
			copy(c.incrs[i:], c.incrs[i+1:])
			c.incrs[len(c.incrs)-1] = nil
			c.incrs = c.incrs[:len(c.incrs)-1]
			break
		}
	}
	if info.timer != nil {
		info.timer.Stop()
		info.timer = nil
	}
}

func (c *Context) incrTimeout(info *incrInfo) {
	if !c.hasIncr(info) {
		return
	}
	logger.Debugf("INCR transfer to 0x%x abandoned, %d pending",
		uint32(info.requestor), info.numIncrs)
	info.timer = nil
	c.removeIncr(info)
	if err := info.display.SelectPropertyEvents(info.requestor, false); err != nil {
		logger.Debug(err)
	}
}

func needsIncr(d Display, length int) bool {
	max := d.MaxRequestSize()
	return max > 0 && length > max
}

// chunkSize is the request size limit rounded down to whole items.
func chunkSize(d Display, format uint8) int {
	itemSize := int(format / 8)
	if itemSize == 0 {
		itemSize = 1
	}
	max := d.MaxRequestSize()
	max -= max % itemSize
	if max < itemSize {
		max = itemSize
	}
	return max
}

// IncrEvent sends the next chunk when a requestor deletes the property
// of a running INCR transfer. d is the display the event came from.
func (c *Context) IncrEvent(d Display, ev *events.Event) bool {
	p := ev.Property()
	if p == nil || p.State != events.PropertyDelete || ev.Window == nil {
		return false
	}

	var info *incrInfo
	for _, item := range c.incrs {
		if item.display == d && item.requestor == ev.Window.XID {
			info = item
			break
		}
	}
	if info == nil {
		return false
	}

	for _, conv := range info.conversions {
		if conv.property != p.Atom || conv.offset == offsetDone {
			continue
		}
		c.touchIncr(info)

		var chunk []byte
		if conv.offset != offsetTerminate {
			data := conv.data.Bytes()
			remaining := len(data) - conv.offset
			max := chunkSize(d, conv.data.Format)
			if remaining > max {
				chunk = data[conv.offset : conv.offset+max]
				conv.offset += max
			} else {
				chunk = data[conv.offset:]
				conv.offset = offsetTerminate
			}
		}

		logger.Debugf("INCR: put %d bytes (offset = %d) into window 0x%x, property %s",
			len(chunk), conv.offset, uint32(info.requestor), atomName(d, p.Atom))
		err := d.ChangeProperty(info.requestor, conv.property, conv.data.Type,
			conv.data.Format, PropModeReplace, chunk)
		if err != nil {
			logger.Warning(err)
		}

		if len(chunk) == 0 {
			info.numIncrs--
			conv.offset = offsetDone
			conv.data = nil
		}
		break
	}

	if info.numIncrs == 0 {
		c.removeIncr(info)
		if err := d.SelectPropertyEvents(info.requestor, false); err != nil {
			logger.Debug(err)
		}
	}
	return true
}

func (c *Context) touchIncr(info *incrInfo) {
	if info.timer != nil {
		info.timer.Reset(c.idleTimeout)
	}
}
