// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package xsettings reads the XSETTINGS manager's settings, the source
// of the desktop's double click timing.
package xsettings

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	x "github.com/linuxdeepin/go-x11-client"
)

type SettingType uint8

const (
	TypeInteger SettingType = iota
	TypeString
	TypeColor
)

const (
	byteOrderLSB = 0
	byteOrderMSB = 1
)

var ErrBadByteOrder = errors.New("xsettings: bad byte order")

// Color is red, green, blue and alpha. Settings without alpha use 65535.
type Color [4]uint16

type Setting struct {
	Name   string
	Type   SettingType
	Serial uint32

	Int   int32
	Str   string
	Color Color
}

func (s *Setting) sameValue(o *Setting) bool {
	if s.Type != o.Type {
		return false
	}
	switch s.Type {
	case TypeInteger:
		return s.Int == o.Int
	case TypeString:
		return s.Str == o.Str
	}
	return s.Color == o.Color
}

type Settings struct {
	Serial uint32
	Items  []Setting
}

func (s *Settings) Get(name string) (*Setting, bool) {
	for i := range s.Items {
		if s.Items[i].Name == name {
			return &s.Items[i], true
		}
	}
	return nil, false
}

// Set adds item or replaces the value of the setting with its name. The
// serial of a changed setting is bumped.
func (s *Settings) Set(item Setting) {
	if old, ok := s.Get(item.Name); ok {
		if old.sameValue(&item) {
			return
		}
		serial := old.Serial + 1
		*old = item
		old.Serial = serial
	} else {
		if item.Serial == 0 {
			item.Serial = 1
		}
		s.Items = append(s.Items, item)
	}
	s.Serial++
}

type decoder struct {
	r     *bytes.Reader
	order binary.ByteOrder
	err   error
}

func (d *decoder) read(v interface{}) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, d.order, v)
}

func (d *decoder) skip(n int) {
	if d.err != nil || n == 0 {
		return
	}
	buf := make([]byte, n)
	d.read(buf)
}

func (d *decoder) string(n int) string {
	buf := make([]byte, n)
	d.read(buf)
	d.skip(x.Pad(n))
	return string(buf)
}

// Unmarshal decodes the _XSETTINGS_SETTINGS property. Empty data is an
// empty set of settings.
func Unmarshal(data []byte) (*Settings, error) {
	s := &Settings{}
	if len(data) == 0 {
		return s, nil
	}

	d := &decoder{r: bytes.NewReader(data)}
	switch data[0] {
	case byteOrderLSB:
		d.order = binary.LittleEndian
	case byteOrderMSB:
		d.order = binary.BigEndian
	default:
		return nil, ErrBadByteOrder
	}
	d.skip(4)

	var n uint32
	d.read(&s.Serial)
	d.read(&n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		var item Setting
		var typ uint8
		var nameLen uint16
		d.read(&typ)
		d.skip(1)
		d.read(&nameLen)
		item.Type = SettingType(typ)
		item.Name = d.string(int(nameLen))
		d.read(&item.Serial)

		switch item.Type {
		case TypeInteger:
			d.read(&item.Int)
		case TypeString:
			var length uint32
			d.read(&length)
			if d.err == nil && int(length) > d.r.Len() {
				return nil, fmt.Errorf("xsettings: %s: string of %d bytes overruns data", item.Name, length)
			}
			item.Str = d.string(int(length))
		case TypeColor:
			d.read(&item.Color)
		default:
			return nil, fmt.Errorf("xsettings: %s: unknown type %d", item.Name, typ)
		}
		s.Items = append(s.Items, item)
	}
	if d.err != nil {
		return nil, fmt.Errorf("xsettings: truncated data: %w", d.err)
	}
	return s, nil
}

type encoder struct {
	buf bytes.Buffer
}

// bytes.Buffer writes do not fail
func (e *encoder) write(v interface{}) {
	_ = binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *encoder) pad(n int) {
	e.buf.Write(make([]byte, x.Pad(n)))
}

// Marshal encodes s in LSB first byte order.
func Marshal(s *Settings) []byte {
	var e encoder
	e.write([4]uint8{byteOrderLSB})
	e.write(s.Serial)
	e.write(uint32(len(s.Items)))
	for i := range s.Items {
		item := &s.Items[i]
		e.write(uint8(item.Type))
		e.write(uint8(0))
		e.write(uint16(len(item.Name)))
		e.buf.WriteString(item.Name)
		e.pad(len(item.Name))
		e.write(item.Serial)

		switch item.Type {
		case TypeInteger:
			e.write(item.Int)
		case TypeString:
			e.write(uint32(len(item.Str)))
			e.buf.WriteString(item.Str)
			e.pad(len(item.Str))
		case TypeColor:
			e.write(item.Color)
		}
	}
	return e.buf.Bytes()
}

var errOwnerRefused = errors.New("xsettings: selection owner refused")
