// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection

import (
	"encoding/binary"

	x "github.com/linuxdeepin/go-x11-client"
)

const defaultSelectionProperty = "DDE_SELECTION"

type atomTable struct {
	targets    x.Atom
	multiple   x.Atom
	timestamp  x.Atom
	incr       x.Atom
	atomPair   x.Atom
	utf8String x.Atom
	text       x.Atom
	property   x.Atom
}

func newAtomTable(d Display, propName string) *atomTable {
	intern := func(name string) x.Atom {
		atom, err := d.InternAtom(name)
		if err != nil {
			logger.Warningf("intern atom %s: %v", name, err)
		}
		return atom
	}
	return &atomTable{
		targets:    intern("TARGETS"),
		multiple:   intern("MULTIPLE"),
		timestamp:  intern("TIMESTAMP"),
		incr:       intern("INCR"),
		atomPair:   intern("ATOM_PAIR"),
		utf8String: intern("UTF8_STRING"),
		text:       intern("TEXT"),
		property:   intern(propName),
	}
}

func (c *Context) atomsFor(d Display) *atomTable {
	t, ok := c.atoms[d]
	if !ok {
		t = newAtomTable(d, c.propName)
		c.atoms[d] = t
	}
	return t
}

func atomName(d Display, atom x.Atom) string {
	if atom == x.None {
		return "None"
	}
	name, err := d.AtomName(atom)
	if err != nil {
		return "?"
	}
	return name
}

func encodeCard32(values ...uint32) []byte {
	w := x.NewWriter()
	for _, v := range values {
		w.Write4b(v)
	}
	return w.Bytes()
}

func encodeAtoms(atoms []x.Atom) []byte {
	w := x.NewWriter()
	for _, atom := range atoms {
		w.Write4b(uint32(atom))
	}
	return w.Bytes()
}

func decodeAtoms(data []byte) []x.Atom {
	atoms := make([]x.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		atoms = append(atoms, x.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return atoms
}
