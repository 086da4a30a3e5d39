// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xsettings

import (
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
)

var logger = log.NewLogger("dde-selection/xsettings")

const (
	settingPropScreen   = "_XSETTINGS_S0"
	settingPropSettings = "_XSETTINGS_SETTINGS"
	xsDataFormat        = 8

	NameDoubleClickTime     = "Net/DoubleClickTime"
	NameDoubleClickDistance = "Net/DoubleClickDistance"
)

// ClickConfig overrides the double click fields of base with the values
// found in s. Triple click limits follow at twice the double click ones.
func ClickConfig(s *Settings, base events.ClickConfig) events.ClickConfig {
	cfg := base
	if item, ok := s.Get(NameDoubleClickTime); ok && item.Type == TypeInteger && item.Int > 0 {
		cfg.DoubleClickTime = time.Duration(item.Int) * time.Millisecond
		cfg.TripleClickTime = 2 * cfg.DoubleClickTime
	}
	if item, ok := s.Get(NameDoubleClickDistance); ok && item.Type == TypeInteger && item.Int >= 0 {
		cfg.DoubleClickDistance = int(item.Int)
		cfg.TripleClickDistance = 2 * cfg.DoubleClickDistance
	}
	return cfg
}

// Watcher follows the settings of the XSETTINGS manager, applies the
// click timing to an event display and queues Setting events for every
// change.
type Watcher struct {
	display selection.Display
	events  *events.Display
	window  *events.Window
	base    events.ClickConfig

	screenAtom   x.Atom
	settingsAtom x.Atom
	owner        x.Window
	current      *Settings
}

// NewWatcher returns a watcher reporting Setting events against win.
func NewWatcher(d selection.Display, ed *events.Display, win *events.Window, base events.ClickConfig) (*Watcher, error) {
	screenAtom, err := d.InternAtom(settingPropScreen)
	if err != nil {
		return nil, err
	}
	settingsAtom, err := d.InternAtom(settingPropSettings)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		display:      d,
		events:       ed,
		window:       win,
		base:         base,
		screenAtom:   screenAtom,
		settingsAtom: settingsAtom,
		current:      &Settings{},
	}, nil
}

// SetBase replaces the click config the manager's values are applied
// over. Values published by the manager keep precedence.
func (w *Watcher) SetBase(base events.ClickConfig) {
	w.base = base
	w.events.SetClickConfig(ClickConfig(w.current, base))
}

func (w *Watcher) Settings() *Settings {
	return w.current
}

// Refresh reads the settings again.
func (w *Watcher) Refresh() error {
	owner, err := w.display.GetSelectionOwner(w.screenAtom)
	if err != nil {
		return err
	}
	if owner != w.owner {
		if w.owner != x.None {
			if err := w.display.SelectPropertyEvents(w.owner, false); err != nil {
				logger.Debug(err)
			}
		}
		if owner != x.None {
			if err := w.display.SelectPropertyEvents(owner, true); err != nil {
				logger.Warning(err)
			}
		}
		w.owner = owner
	}

	next := &Settings{}
	if owner != x.None {
		prop, err := w.display.GetProperty(owner, w.settingsAtom, false)
		if err != nil {
			return err
		}
		if prop.Type != x.None {
			next, err = Unmarshal(prop.Data)
			if err != nil {
				return err
			}
		}
	}

	w.notifyChanges(w.current, next)
	w.current = next
	w.events.SetClickConfig(ClickConfig(next, w.base))
	return nil
}

func (w *Watcher) notifyChanges(old, next *Settings) {
	for i := range next.Items {
		item := &next.Items[i]
		prev, ok := old.Get(item.Name)
		switch {
		case !ok:
			w.queue(events.SettingNew, item.Name)
		case !prev.sameValue(item):
			w.queue(events.SettingChanged, item.Name)
		}
	}
	for i := range old.Items {
		if _, ok := next.Get(old.Items[i].Name); !ok {
			w.queue(events.SettingDeleted, old.Items[i].Name)
		}
	}
}

func (w *Watcher) queue(action events.SettingAction, name string) {
	logger.Debugf("setting %s: %d", name, action)
	ev := events.New(events.KindSetting, w.window)
	s := ev.Setting()
	s.Action = action
	s.Name = name
	w.events.QueueAppend(ev)
}

// HandleEvent refreshes when the manager changes its settings or goes
// away. It reports whether ev was about XSETTINGS.
func (w *Watcher) HandleEvent(ev *events.Event) bool {
	if ev.Window == nil || w.owner == x.None || ev.Window.XID != w.owner {
		return false
	}
	switch ev.Kind {
	case events.KindPropertyNotify:
		if p := ev.Property(); p == nil || p.Atom != w.settingsAtom {
			return false
		}
	case events.KindDestroy:
	default:
		return false
	}
	if err := w.Refresh(); err != nil {
		logger.Warning(err)
	}
	return true
}

// Publish makes win the XSETTINGS manager and stores s on it.
func Publish(d selection.Display, win x.Window, s *Settings) error {
	screenAtom, err := d.InternAtom(settingPropScreen)
	if err != nil {
		return err
	}
	settingsAtom, err := d.InternAtom(settingPropSettings)
	if err != nil {
		return err
	}
	err = d.ChangeProperty(win, settingsAtom, settingsAtom, xsDataFormat,
		selection.PropModeReplace, Marshal(s))
	if err != nil {
		return err
	}
	owner, err := d.GetSelectionOwner(screenAtom)
	if err != nil {
		return err
	}
	if owner != win && !d.SetSelectionOwner(win, screenAtom, x.TimeCurrentTime) {
		return errOwnerRefused
	}
	return nil
}
