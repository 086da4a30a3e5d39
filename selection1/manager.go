// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection1

import (
	"errors"
	"sync"
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/strv"
	x "github.com/linuxdeepin/go-x11-client"
)

var (
	ErrUnknownSelection = errors.New("selection is not served")
	ErrOwnerRefused     = errors.New("selection owner change refused")
	ErrConvertFailed    = errors.New("selection conversion failed")
	ErrNotText          = errors.New("selection content is not text")
	ErrTimeout          = errors.New("timed out waiting for the main loop")
)

const infoData uint32 = 100

//go:generate dbusutil-gen em -type Manager

// Manager publishes and reads selections on behalf of DBus callers. Its
// exported methods run on DBus goroutines and hand the work to the main
// loop; everything else runs on the loop.
type Manager struct {
	service *dbusutil.Service
	ctx     *selection.Context
	display selection.Display
	sched   mainloop.Scheduler
	timeout time.Duration

	allowedMu sync.Mutex
	allowed   strv.Strv

	owner     *ownerWidget
	requestor *requestorWidget

	signals *struct {
		SelectionLost struct {
			selection string
		}
	}
}

// NewManager serves selections with ownerWin and reads them with
// requestorWin. Both windows must belong to display.
func NewManager(service *dbusutil.Service, ctx *selection.Context, display selection.Display,
	sched mainloop.Scheduler, ownerWin, requestorWin *events.Window, selections []string) *Manager {
	m := &Manager{
		service: service,
		ctx:     ctx,
		display: display,
		sched:   sched,
		timeout: ctx.IdleTimeout(),
		allowed: strv.Strv(selections).FilterEmpty(),
	}
	m.owner = &ownerWidget{
		m:       m,
		window:  ownerWin,
		content: make(map[x.Atom]*content),
	}
	m.requestor = &requestorWidget{m: m, window: requestorWin}
	return m
}

// SetSelections replaces the list of selection names callers may use.
func (m *Manager) SetSelections(selections []string) {
	m.allowedMu.Lock()
	m.allowed = strv.Strv(selections).FilterEmpty()
	m.allowedMu.Unlock()
}

func (m *Manager) isAllowed(name string) bool {
	m.allowedMu.Lock()
	defer m.allowedMu.Unlock()
	return m.allowed.Contains(name)
}

// selectionAtom runs on the loop.
func (m *Manager) selectionAtom(name string) (x.Atom, error) {
	if !m.isAllowed(name) {
		return x.None, ErrUnknownSelection
	}
	return m.display.InternAtom(name)
}

// runOnLoop runs fn on the main loop and waits for its result.
func (m *Manager) runOnLoop(fn func() error) error {
	done := make(chan error, 1)
	m.sched.Post(func() {
		done <- fn()
	})
	select {
	case err := <-done:
		return err
	case <-time.After(m.timeout):
		return ErrTimeout
	}
}

func (m *Manager) emitSelectionLost(name string) {
	if m.service == nil {
		return
	}
	err := m.service.Emit(m, "SelectionLost", name)
	if err != nil {
		logger.Warning("emit signal SelectionLost failed:", err)
	}
}

func (m *Manager) setText(name, text string) error {
	sel, err := m.selectionAtom(name)
	if err != nil {
		return err
	}
	w := m.owner
	m.ctx.ClearTargets(w, sel)
	m.ctx.Register(w)
	m.ctx.Targets(w, sel).AddTextTargets(m.display, selection.InfoText)
	return w.own(sel, &content{text: text, isText: true})
}

func (m *Manager) setData(name, targetName string, data []byte) error {
	sel, err := m.selectionAtom(name)
	if err != nil {
		return err
	}
	target, err := m.display.InternAtom(targetName)
	if err != nil {
		return err
	}
	w := m.owner
	m.ctx.ClearTargets(w, sel)
	m.ctx.AddTarget(w, sel, target, infoData)
	return w.own(sel, &content{
		target: target,
		data:   append([]byte(nil), data...),
	})
}

func (m *Manager) release(name string) error {
	sel, err := m.selectionAtom(name)
	if err != nil {
		return err
	}
	w := m.owner
	if m.ctx.Owner(m.display, sel) != selection.Widget(w) {
		return nil
	}
	delete(w.content, sel)
	m.ctx.ClearTargets(w, sel)
	if !m.ctx.OwnerSetForDisplay(m.display, nil, sel, x.TimeCurrentTime) {
		return ErrOwnerRefused
	}
	return nil
}

// content is what the owner widget serves for one selection.
type content struct {
	isText bool
	text   string
	target x.Atom
	data   []byte
}

type ownerWidget struct {
	m       *Manager
	window  *events.Window
	content map[x.Atom]*content
}

func (w *ownerWidget) Display() selection.Display { return w.m.display }
func (w *ownerWidget) Window() *events.Window     { return w.window }

func (w *ownerWidget) own(sel x.Atom, c *content) error {
	w.content[sel] = c
	if !w.m.ctx.OwnerSet(w, sel, x.TimeCurrentTime) {
		delete(w.content, sel)
		w.m.ctx.ClearTargets(w, sel)
		return ErrOwnerRefused
	}
	return nil
}

func (w *ownerWidget) SelectionGet(data *selection.Data, info uint32, t x.Timestamp) {
	c := w.content[data.Selection]
	if c == nil {
		return
	}
	switch {
	case info == selection.InfoText && c.isText:
		data.SetText(c.text)
	case info == infoData && data.Target == c.target:
		data.Set(c.target, 8, c.data)
	}
}

func (w *ownerWidget) SelectionReceived(data *selection.Data, t x.Timestamp) {}

func (w *ownerWidget) SelectionClear(ev *events.Event) {
	sel := ev.Selection().Selection
	if _, ok := w.content[sel]; !ok {
		return
	}
	delete(w.content, sel)
	w.m.ctx.ClearTargets(w, sel)
	name, err := w.m.display.AtomName(sel)
	if err != nil {
		logger.Warning(err)
		return
	}
	logger.Debug("lost selection", name)
	w.m.emitSelectionLost(name)
}

type reply struct {
	data     *selection.Data
	typeName string
	targets  []string
	err      error
}

type getRequest struct {
	selection string
	target    string
	result    chan reply
}

// requestorWidget converts one selection at a time; later requests wait
// in a queue.
type requestorWidget struct {
	m       *Manager
	window  *events.Window
	queue   []*getRequest
	current *getRequest
}

func (w *requestorWidget) Display() selection.Display { return w.m.display }
func (w *requestorWidget) Window() *events.Window     { return w.window }

func (w *requestorWidget) SelectionGet(data *selection.Data, info uint32, t x.Timestamp) {}
func (w *requestorWidget) SelectionClear(ev *events.Event)                               {}

func (w *requestorWidget) push(req *getRequest) {
	w.queue = append(w.queue, req)
	w.next()
}

func (w *requestorWidget) next() {
	for w.current == nil && len(w.queue) > 0 {
		req := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]

		sel, err := w.m.selectionAtom(req.selection)
		if err != nil {
			req.result <- reply{err: err}
			continue
		}
		target, err := w.m.display.InternAtom(req.target)
		if err != nil {
			req.result <- reply{err: err}
			continue
		}
		w.current = req
		if !w.m.ctx.Convert(w, sel, target, x.TimeCurrentTime) {
			if w.current == req {
				w.current = nil
			}
			req.result <- reply{err: ErrConvertFailed}
		}
	}
}

func (w *requestorWidget) SelectionReceived(data *selection.Data, t x.Timestamp) {
	req := w.current
	if req == nil {
		return
	}
	w.current = nil

	r := reply{data: data.Copy()}
	if data.Failed() {
		r.err = ErrConvertFailed
	} else {
		r.typeName, _ = w.m.display.AtomName(data.Type)
		if targets, ok := data.Targets(); ok {
			for _, atom := range targets {
				name, err := w.m.display.AtomName(atom)
				if err != nil {
					continue
				}
				r.targets = append(r.targets, name)
			}
		}
	}
	req.result <- r
	w.next()
}

// convert asks the loop for target of the named selection and waits for
// the outcome.
func (m *Manager) convert(name, target string) reply {
	req := &getRequest{
		selection: name,
		target:    target,
		result:    make(chan reply, 1),
	}
	m.sched.Post(func() {
		m.requestor.push(req)
	})
	select {
	case r := <-req.result:
		return r
	case <-time.After(m.timeout):
		return reply{err: ErrTimeout}
	}
}

func (m *Manager) getText(name string) (string, error) {
	r := m.convert(name, "UTF8_STRING")
	if r.err == ErrConvertFailed {
		r = m.convert(name, "STRING")
	}
	if r.err != nil {
		return "", r.err
	}
	text, ok := r.data.Text()
	if !ok {
		return "", ErrNotText
	}
	return text, nil
}

func (m *Manager) getTargets(name string) ([]string, error) {
	r := m.convert(name, "TARGETS")
	if r.err != nil {
		return nil, r.err
	}
	return r.targets, nil
}

func (m *Manager) getData(name, target string) ([]byte, string, error) {
	r := m.convert(name, target)
	if r.err != nil {
		return nil, "", r.err
	}
	return r.data.Bytes(), r.typeName, nil
}

// destroy gives up every selection the manager owns. It runs on the loop.
func (m *Manager) destroy() {
	m.owner.content = make(map[x.Atom]*content)
	m.ctx.RemoveAll(m.owner)
	m.ctx.RemoveAll(m.requestor)
	for _, req := range m.requestor.queue {
		req.result <- reply{err: ErrConvertFailed}
	}
	m.requestor.queue = nil
	if req := m.requestor.current; req != nil {
		m.requestor.current = nil
		req.result <- reply{err: ErrConvertFailed}
	}
}
