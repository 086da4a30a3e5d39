// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/loopback"
	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/dde-selection/selection"
	x "github.com/linuxdeepin/go-x11-client"
	"golang.org/x/xerrors"
)

// checkWidget serves one payload and records what it receives.
type checkWidget struct {
	display  selection.Display
	window   *events.Window
	payload  []byte
	received *selection.Data
}

func (w *checkWidget) Display() selection.Display { return w.display }
func (w *checkWidget) Window() *events.Window     { return w.window }

func (w *checkWidget) SelectionGet(data *selection.Data, info uint32, t x.Timestamp) {
	data.Set(data.Target, 8, w.payload)
}

func (w *checkWidget) SelectionReceived(data *selection.Data, t x.Timestamp) {
	w.received = data.Copy()
}

func (w *checkWidget) SelectionClear(ev *events.Event) {}

type checkPeer struct {
	client *loopback.Client
	ctx    *selection.Context
	widget *checkWidget
}

func newCheckPeer(server *loopback.Server, loop *mainloop.Loop, name string, maxRequestSize int) *checkPeer {
	p := &checkPeer{
		client: server.NewClient(name),
		ctx:    selection.NewContext(loop),
	}
	p.client.SetMaxRequestSize(maxRequestSize)
	p.client.Events().SetHandler(func(ev *events.Event, data interface{}) {
		p.ctx.HandleEvent(p.client, ev)
	}, nil, nil)
	p.widget = &checkWidget{display: p.client, window: p.client.CreateWindow()}
	p.ctx.Register(p.widget)
	return p
}

// selfCheck runs an incremental transfer between two clients of an
// in-process server.
func selfCheck(size, maxRequestSize int) error {
	server := loopback.NewServer()
	loop := mainloop.NewManual(time.Now())
	owner := newCheckPeer(server, loop, "owner", maxRequestSize)
	requestor := newCheckPeer(server, loop, "requestor", maxRequestSize)
	defer owner.client.Close()
	defer requestor.client.Close()

	owner.widget.payload = make([]byte, size)
	for i := range owner.widget.payload {
		owner.widget.payload[i] = byte(i % 251)
	}

	clipboard, err := owner.client.InternAtom("CLIPBOARD")
	if err != nil {
		return err
	}
	target, err := owner.client.InternAtom("application/octet-stream")
	if err != nil {
		return err
	}
	owner.ctx.AddTarget(owner.widget, clipboard, target, 0)
	if !owner.ctx.OwnerSet(owner.widget, clipboard, x.TimeCurrentTime) {
		return xerrors.New("selfcheck: claiming CLIPBOARD refused")
	}
	if !requestor.ctx.Convert(requestor.widget, clipboard, target, x.TimeCurrentTime) {
		return xerrors.New("selfcheck: convert refused")
	}

	for server.Flush() > 0 || loop.RunPending() > 0 {
	}

	got := requestor.widget.received
	switch {
	case got == nil:
		return xerrors.New("selfcheck: no reply")
	case got.Failed():
		return xerrors.New("selfcheck: conversion failed")
	case !bytes.Equal(got.Bytes(), owner.widget.payload):
		return xerrors.Errorf("selfcheck: received %d bytes, want %d", got.Length, size)
	}
	logger.Infof("selfcheck: %d bytes transferred in chunks of %d", size, maxRequestSize)
	return nil
}
