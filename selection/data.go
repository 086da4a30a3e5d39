// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"unicode/utf8"

	"github.com/axgle/mahonia"
	x "github.com/linuxdeepin/go-x11-client"
)

const latin1 = "ISO-8859-1"

// Data is the payload of one conversion. Length is -1 when the
// conversion failed or has not been filled in.
type Data struct {
	Selection x.Atom
	Target    x.Atom
	Type      x.Atom
	Format    uint8
	Data      []byte
	Length    int

	Display Display
}

func newData(d Display, selection, target x.Atom) *Data {
	return &Data{
		Selection: selection,
		Target:    target,
		Length:    -1,
		Display:   d,
	}
}

// withNul copies data and keeps a zero byte past the end so text
// consumers can read it as a C string.
func withNul(data []byte) []byte {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	return buf[:len(data)]
}

// Set stores a copy of data. A nil slice with typ x.None marks failure.
func (sd *Data) Set(typ x.Atom, format uint8, data []byte) {
	sd.Type = typ
	sd.Format = format
	if data == nil && typ == x.None {
		sd.Data = nil
		sd.Length = -1
		return
	}
	sd.Data = withNul(data)
	sd.Length = len(data)
}

func (sd *Data) Failed() bool {
	return sd.Length < 0
}

// Bytes returns the valid part of Data.
func (sd *Data) Bytes() []byte {
	if sd.Length < 0 {
		return nil
	}
	return sd.Data[:sd.Length]
}

func (sd *Data) atom(name string) x.Atom {
	if sd.Display == nil {
		return x.None
	}
	atom, err := sd.Display.InternAtom(name)
	if err != nil {
		logger.Warning(err)
		return x.None
	}
	return atom
}

// SetText stores text converted for the requested target. It returns
// false when the target is not a text target.
func (sd *Data) SetText(text string) bool {
	if sd.Target == x.None || !utf8.ValidString(text) {
		return false
	}
	switch sd.Target {
	case x.AtomString:
		enc := mahonia.NewEncoder(latin1)
		if enc == nil {
			return false
		}
		sd.Set(x.AtomString, 8, []byte(enc.ConvertString(text)))
		return true
	case sd.atom("UTF8_STRING"), sd.atom("TEXT"), sd.atom("COMPOUND_TEXT"):
		sd.Set(sd.atom("UTF8_STRING"), 8, []byte(text))
		return true
	}
	return false
}

// Text decodes the payload as text.
func (sd *Data) Text() (string, bool) {
	if sd.Length < 0 || sd.Format != 8 {
		return "", false
	}
	raw := sd.Bytes()
	switch sd.Type {
	case x.AtomString:
		dec := mahonia.NewDecoder(latin1)
		if dec == nil {
			return "", false
		}
		return dec.ConvertString(string(raw)), true
	case sd.atom("UTF8_STRING"), sd.atom("TEXT"):
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}
	return "", false
}

// Targets decodes a TARGETS reply.
func (sd *Data) Targets() ([]x.Atom, bool) {
	if sd.Length < 0 || sd.Type != x.AtomAtom || sd.Format != 32 {
		return nil, false
	}
	return decodeAtoms(sd.Bytes()), true
}

func (sd *Data) Copy() *Data {
	cp := *sd
	if sd.Data != nil {
		cp.Data = withNul(sd.Bytes())
	}
	return &cp
}
