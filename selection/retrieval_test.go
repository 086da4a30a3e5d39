// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection_test

import (
	"testing"
	"time"

	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(p *peer, w *testWidget, sel, target x.Atom, data []byte) {
	w.payload[target] = data
	p.ctx.AddTarget(w, sel, target, 0)
}

func TestConvert_SameProcessFastPath(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	utf8 := p.atom("UTF8_STRING")

	owner := p.newWidget()
	requestor := p.newWidget()
	serve(p, owner, clipboard, utf8, []byte("hello"))
	require.True(t, p.ctx.OwnerSet(owner, clipboard, x.TimeCurrentTime))

	require.True(t, p.ctx.Convert(requestor, clipboard, utf8, x.TimeCurrentTime))
	assert.Equal(t, 0, p.ctx.PendingRetrievals())
	require.Len(t, requestor.received, 1)
	text, ok := requestor.received[0].Text()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Empty(t, f.server.PropertyWrites())
}

func TestConvert_Exclusive(t *testing.T) {
	f := newFixture(t)
	owner := f.newPeer("owner")
	req := f.newPeer("requestor")
	clipboard := owner.atom("CLIPBOARD")
	utf8 := owner.atom("UTF8_STRING")

	w := owner.newWidget()
	serve(owner, w, clipboard, utf8, []byte("x"))
	require.True(t, owner.ctx.OwnerSet(w, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	assert.True(t, req.ctx.Convert(r, clipboard, utf8, x.TimeCurrentTime))
	assert.False(t, req.ctx.Convert(r, clipboard, utf8, x.TimeCurrentTime))
	assert.Equal(t, 1, req.ctx.PendingRetrievals())

	f.server.Flush()
	require.Len(t, r.received, 1)
	assert.Equal(t, 0, req.ctx.PendingRetrievals())
	assert.True(t, req.ctx.Convert(r, clipboard, utf8, x.TimeCurrentTime))
}

func TestConvert_Unowned(t *testing.T) {
	f := newFixture(t)
	req := f.newPeer("requestor")
	r := req.newWidget()

	require.True(t, req.ctx.Convert(r, req.atom("CLIPBOARD"), req.atom("UTF8_STRING"), x.TimeCurrentTime))
	f.server.Flush()
	require.Len(t, r.received, 1)
	assert.True(t, r.received[0].Failed())
	assert.Equal(t, -1, r.received[0].Length)
}

func TestConvert_DirectTransfer(t *testing.T) {
	f := newFixture(t)
	owner := f.newPeer("owner")
	req := f.newPeer("requestor")
	clipboard := owner.atom("CLIPBOARD")
	target := owner.atom("application/octet-stream")
	prop := owner.atom("DDE_SELECTION")
	payload := pattern(800)

	w := owner.newWidget()
	serve(owner, w, clipboard, target, payload)
	owner.client.SetMaxRequestSize(800)
	require.True(t, owner.ctx.OwnerSet(w, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, target, x.TimeCurrentTime))
	f.server.Flush()

	require.Len(t, r.received, 1)
	assert.Equal(t, payload, r.received[0].Bytes())
	assert.Equal(t, target, r.received[0].Type)
	assert.Equal(t, []int{800}, writeLengths(f.server.PropertyWrites(), r.window.XID, prop))
	assert.Equal(t, 0, owner.ctx.PendingIncrs())
	_, exists := f.server.Property(r.window.XID, prop)
	assert.False(t, exists)
}

func TestConvert_IncrRoundTrip(t *testing.T) {
	f := newFixture(t)
	owner := f.newPeer("owner")
	req := f.newPeer("requestor")
	clipboard := owner.atom("CLIPBOARD")
	target := owner.atom("image/png")
	prop := owner.atom("DDE_SELECTION")
	payload := pattern(4500)

	w := owner.newWidget()
	serve(owner, w, clipboard, target, payload)
	owner.client.SetMaxRequestSize(1000)
	require.True(t, owner.ctx.OwnerSet(w, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, target, x.TimeCurrentTime))
	f.server.Flush()

	require.Len(t, r.received, 1)
	got := r.received[0]
	assert.Equal(t, target, got.Type)
	assert.Equal(t, uint8(8), got.Format)
	assert.Equal(t, len(payload), got.Length)
	assert.Equal(t, payload, got.Bytes())

	// marker, chunks, then the empty terminator
	assert.Equal(t, []int{4, 1000, 1000, 1000, 1000, 500, 0},
		writeLengths(f.server.PropertyWrites(), r.window.XID, prop))
	assert.Equal(t, 0, owner.ctx.PendingIncrs())
	assert.Equal(t, 0, req.ctx.PendingRetrievals())
	assert.Equal(t, []string{"requestor"}, f.server.Listeners(r.window.XID))
}

func TestConvert_IncrChunksWholeItems(t *testing.T) {
	f := newFixture(t)
	owner := f.newPeer("owner")
	req := f.newPeer("requestor")
	clipboard := owner.atom("CLIPBOARD")
	target := owner.atom("x-special/items")
	prop := owner.atom("DDE_SELECTION")
	payload := pattern(4000)

	w := owner.newWidget()
	w.format = 32
	serve(owner, w, clipboard, target, payload)
	owner.client.SetMaxRequestSize(1001)
	require.True(t, owner.ctx.OwnerSet(w, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, target, x.TimeCurrentTime))
	f.server.Flush()

	require.Len(t, r.received, 1)
	assert.Equal(t, uint8(32), r.received[0].Format)
	assert.Equal(t, payload, r.received[0].Bytes())
	assert.Equal(t, []int{4, 1000, 1000, 1000, 1000, 0},
		writeLengths(f.server.PropertyWrites(), r.window.XID, prop))
}

func TestConvert_IdleAbandon(t *testing.T) {
	f := newFixture(t)
	req := f.newPeer("requestor")
	clipboard := req.atom("CLIPBOARD")

	// an owner that never answers
	silent := f.newRawClient("silent")
	require.True(t, silent.client.SetSelectionOwner(silent.window.XID, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, req.atom("UTF8_STRING"), x.TimeCurrentTime))
	f.server.Flush()

	f.loop.Advance(selection.DefaultIdleTimeout - time.Second)
	assert.Empty(t, r.received)
	assert.Equal(t, 1, req.ctx.PendingRetrievals())

	f.loop.Advance(time.Second)
	require.Len(t, r.received, 1)
	assert.True(t, r.received[0].Failed())
	assert.Equal(t, 0, req.ctx.PendingRetrievals())

	f.loop.Advance(2 * selection.DefaultIdleTimeout)
	assert.Len(t, r.received, 1)
}

func TestConvert_IdleTimeoutOption(t *testing.T) {
	f := newFixture(t)
	client := f.server.NewClient("requestor")
	ctx := selection.NewContext(f.loop, selection.WithIdleTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, ctx.IdleTimeout())

	clipboard, _ := client.InternAtom("CLIPBOARD")
	silent := f.newRawClient("silent")
	require.True(t, silent.client.SetSelectionOwner(silent.window.XID, clipboard, x.TimeCurrentTime))

	w := &testWidget{display: client, window: client.CreateWindow()}
	require.True(t, ctx.Convert(w, clipboard, x.AtomString, x.TimeCurrentTime))
	f.loop.Advance(5 * time.Second)
	require.Len(t, w.received, 1)
	assert.True(t, w.received[0].Failed())
}

func TestContext_CloseFailsPending(t *testing.T) {
	f := newFixture(t)
	req := f.newPeer("requestor")
	clipboard := req.atom("CLIPBOARD")
	silent := f.newRawClient("silent")
	require.True(t, silent.client.SetSelectionOwner(silent.window.XID, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, x.AtomString, x.TimeCurrentTime))
	req.ctx.Close()
	require.Len(t, r.received, 1)
	assert.True(t, r.received[0].Failed())
	assert.Equal(t, 0, f.loop.Pending())

	assert.False(t, req.ctx.Convert(r, clipboard, x.AtomString, x.TimeCurrentTime))
}

func TestContext_RemoveAllDropsRetrieval(t *testing.T) {
	f := newFixture(t)
	req := f.newPeer("requestor")
	clipboard := req.atom("CLIPBOARD")
	silent := f.newRawClient("silent")
	require.True(t, silent.client.SetSelectionOwner(silent.window.XID, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, x.AtomString, x.TimeCurrentTime))
	req.ctx.RemoveAll(r)
	assert.Equal(t, 0, req.ctx.PendingRetrievals())
	f.loop.Advance(selection.DefaultIdleTimeout)
	assert.Empty(t, r.received)
}
