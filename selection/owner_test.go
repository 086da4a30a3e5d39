// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection_test

import (
	"testing"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerSet_ClearsPreviousLocalOwner(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	a := p.newWidget()
	b := p.newWidget()

	require.True(t, p.ctx.OwnerSet(a, clipboard, 2000))
	require.True(t, p.ctx.OwnerSet(b, clipboard, 2001))
	f.server.Flush()

	require.Len(t, a.clears, 1)
	assert.Equal(t, events.KindSelectionClear, a.clears[0].Kind)
	assert.Equal(t, clipboard, a.clears[0].Selection().Selection)
	assert.Empty(t, b.clears)
	assert.Equal(t, selection.Widget(b), p.ctx.Owner(p.client, clipboard))

	// claiming again with the same widget is not a loss
	require.True(t, p.ctx.OwnerSet(b, clipboard, 2002))
	f.server.Flush()
	assert.Empty(t, b.clears)
	assert.Len(t, a.clears, 1)
}

func TestOwnerSet_Release(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	a := p.newWidget()

	require.True(t, p.ctx.OwnerSet(a, clipboard, 2000))
	require.True(t, p.ctx.OwnerSetForDisplay(p.client, nil, clipboard, 2001))
	f.server.Flush()

	assert.Nil(t, p.ctx.Owner(p.client, clipboard))
	assert.Len(t, a.clears, 1)
	owner, err := p.client.GetSelectionOwner(clipboard)
	require.NoError(t, err)
	assert.Equal(t, x.Window(x.None), owner)
}

func TestOwnerSet_ReleaseWithoutWidget(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	primary := p.atom("PRIMARY")
	a := p.newWidget()

	// nothing owned yet
	assert.False(t, p.ctx.OwnerSet(nil, clipboard, 1999))

	require.True(t, p.ctx.OwnerSet(a, clipboard, 2000))
	require.True(t, p.ctx.OwnerSet(a, primary, 2000))
	require.True(t, p.ctx.OwnerSet(nil, clipboard, 2001))
	f.server.Flush()

	assert.Nil(t, p.ctx.Owner(p.client, clipboard))
	assert.Equal(t, selection.Widget(a), p.ctx.Owner(p.client, primary))
	require.Len(t, a.clears, 1)
	assert.Equal(t, clipboard, a.clears[0].Selection().Selection)

	owner, err := p.client.GetSelectionOwner(clipboard)
	require.NoError(t, err)
	assert.Equal(t, x.Window(x.None), owner)
	owner, err = p.client.GetSelectionOwner(primary)
	require.NoError(t, err)
	assert.Equal(t, a.window.XID, owner)

	assert.False(t, p.ctx.OwnerSet(nil, clipboard, 2002))
}

func TestOwnerSet_StaleTimestamp(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	a := p.newWidget()
	b := p.newWidget()

	require.True(t, p.ctx.OwnerSet(a, clipboard, 3000))
	assert.False(t, p.ctx.OwnerSet(b, clipboard, 2000))
	assert.Equal(t, selection.Widget(a), p.ctx.Owner(p.client, clipboard))
	assert.Empty(t, a.clears)
}

func TestOwnerSet_LostToOtherClient(t *testing.T) {
	f := newFixture(t)
	p1 := f.newPeer("first")
	p2 := f.newPeer("second")
	clipboard := p1.atom("CLIPBOARD")
	a := p1.newWidget()
	c := p2.newWidget()

	require.True(t, p1.ctx.OwnerSet(a, clipboard, x.TimeCurrentTime))
	require.True(t, p2.ctx.OwnerSet(c, clipboard, x.TimeCurrentTime))
	f.server.Flush()

	require.Len(t, a.clears, 1)
	assert.Equal(t, a.window.XID, a.clears[0].Window.XID)
	assert.Nil(t, p1.ctx.Owner(p1.client, clipboard))
	assert.Equal(t, selection.Widget(c), p2.ctx.Owner(p2.client, clipboard))
	assert.Empty(t, c.clears)
}

func TestContext_RemoveAllReleases(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	primary := p.atom("PRIMARY")
	a := p.newWidget()

	require.True(t, p.ctx.OwnerSet(a, clipboard, x.TimeCurrentTime))
	require.True(t, p.ctx.OwnerSet(a, primary, x.TimeCurrentTime))
	p.ctx.AddTarget(a, clipboard, x.AtomString, 1)

	p.ctx.RemoveAll(a)
	f.server.Flush()
	assert.Nil(t, p.ctx.Owner(p.client, clipboard))
	assert.Nil(t, p.ctx.Owner(p.client, primary))
	assert.Empty(t, a.clears)
	owner, err := p.client.GetSelectionOwner(clipboard)
	require.NoError(t, err)
	assert.Equal(t, x.Window(x.None), owner)
}

func TestHandleEvent_DestroyRemovesWidget(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	a := p.newWidget()
	require.True(t, p.ctx.OwnerSet(a, clipboard, x.TimeCurrentTime))

	require.NoError(t, p.client.DestroyWindow(a.window))
	f.server.Flush()
	assert.Nil(t, p.ctx.Owner(p.client, clipboard))
}

func TestDefaultHandler_Targets(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	utf8 := p.atom("UTF8_STRING")
	png := p.atom("image/png")
	owner := p.newWidget()
	requestor := p.newWidget()

	p.ctx.AddTarget(owner, clipboard, utf8, 1)
	p.ctx.AddTargets(owner, clipboard, []selection.TargetEntry{
		{Target: png, Info: 2},
		{Target: utf8, Info: 3},
	})
	require.True(t, p.ctx.OwnerSet(owner, clipboard, x.TimeCurrentTime))
	require.True(t, p.ctx.Convert(requestor, clipboard, p.atom("TARGETS"), x.TimeCurrentTime))

	require.Len(t, requestor.received, 1)
	targets, ok := requestor.received[0].Targets()
	require.True(t, ok)
	assert.Equal(t, []x.Atom{
		p.atom("TIMESTAMP"), p.atom("TARGETS"), p.atom("MULTIPLE"),
		utf8, png, utf8,
	}, targets)
}

func TestDefaultHandler_TargetsAcrossClients(t *testing.T) {
	f := newFixture(t)
	owner := f.newPeer("owner")
	req := f.newPeer("requestor")
	clipboard := owner.atom("CLIPBOARD")
	w := owner.newWidget()
	owner.ctx.AddTarget(w, clipboard, x.AtomString, 1)
	require.True(t, owner.ctx.OwnerSet(w, clipboard, x.TimeCurrentTime))

	r := req.newWidget()
	require.True(t, req.ctx.Convert(r, clipboard, req.atom("TARGETS"), x.TimeCurrentTime))
	f.server.Flush()

	require.Len(t, r.received, 1)
	targets, ok := r.received[0].Targets()
	require.True(t, ok)
	assert.Equal(t, []x.Atom{
		req.atom("TIMESTAMP"), req.atom("TARGETS"), req.atom("MULTIPLE"), x.AtomString,
	}, targets)
}

func TestDefaultHandler_Timestamp(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	owner := p.newWidget()
	requestor := p.newWidget()

	require.True(t, p.ctx.OwnerSet(owner, clipboard, 4242))
	require.True(t, p.ctx.Convert(requestor, clipboard, p.atom("TIMESTAMP"), x.TimeCurrentTime))

	require.Len(t, requestor.received, 1)
	got := requestor.received[0]
	assert.Equal(t, x.Atom(x.AtomInteger), got.Type)
	assert.Equal(t, uint8(32), got.Format)
	assert.Equal(t, atomBytes(4242), got.Bytes())
	ts, ok := p.ctx.OwnerTime(p.client, clipboard)
	assert.True(t, ok)
	assert.Equal(t, x.Timestamp(4242), ts)
}

func TestDefaultHandler_Unknown(t *testing.T) {
	f := newFixture(t)
	p := f.newPeer("app")
	clipboard := p.atom("CLIPBOARD")
	owner := p.newWidget()
	requestor := p.newWidget()

	require.True(t, p.ctx.OwnerSet(owner, clipboard, x.TimeCurrentTime))
	require.True(t, p.ctx.Convert(requestor, clipboard, p.atom("text/uri-list"), x.TimeCurrentTime))
	require.Len(t, requestor.received, 1)
	assert.True(t, requestor.received[0].Failed())
}
