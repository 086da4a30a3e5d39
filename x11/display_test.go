// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package x11

import (
	"encoding/binary"
	"testing"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSelectionNotify(t *testing.T) {
	data := encodeSelectionNotify(0x400001, 1, 31, 0x120, 0xdeadbeef)
	require.Len(t, data, 32)

	assert.Equal(t, uint8(x.SelectionNotifyEventCode), data[0])
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(0x400001), binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint32(31), binary.LittleEndian.Uint32(data[16:]))
	assert.Equal(t, uint32(0x120), binary.LittleEndian.Uint32(data[20:]))

	ev, err := x.NewSelectionNotifyEvent(data)
	require.NoError(t, err)
	assert.Equal(t, x.Window(0x400001), ev.Requestor)
	assert.Equal(t, x.Atom(1), ev.Selection)
	assert.Equal(t, x.Atom(31), ev.Target)
	assert.Equal(t, x.Atom(0x120), ev.Property)
	assert.Equal(t, x.Timestamp(0xdeadbeef), ev.Time)
}

func TestEncodeSelectionNotifyRefused(t *testing.T) {
	data := encodeSelectionNotify(0x400001, 1, 31, x.None, 7)
	assert.Equal(t, uint32(x.None), binary.LittleEndian.Uint32(data[20:]))
}

func TestMaxRequestSizeFor(t *testing.T) {
	assert.Equal(t, DefaultMaxRequestSize, maxRequestSizeFor(nil))
	assert.Equal(t, DefaultMaxRequestSize, maxRequestSizeFor(&x.Setup{}))
	assert.Equal(t, DefaultMaxRequestSize, maxRequestSizeFor(&x.Setup{MaximumRequestLength: 100}))
	assert.Equal(t, (4096-100)*4, maxRequestSizeFor(&x.Setup{MaximumRequestLength: 4096}))
	assert.Equal(t, (65535-100)*4, maxRequestSizeFor(&x.Setup{MaximumRequestLength: 65535}))
}

func TestSetMaxRequestSize(t *testing.T) {
	d := newTestDisplay()
	d.serverMax = 16000
	d.maxRequestSize = 16000

	d.SetMaxRequestSize(1000)
	assert.Equal(t, 1000, d.MaxRequestSize())

	d.SetMaxRequestSize(20000)
	assert.Equal(t, 16000, d.MaxRequestSize())

	d.SetMaxRequestSize(1000)
	d.SetMaxRequestSize(0)
	assert.Equal(t, 16000, d.MaxRequestSize())
}
