// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package selection1 exports the selection engine on the session bus as
// org.deepin.dde.Selection1.
package selection1

import (
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/loader"
	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("dde-selection/selection1")

const startTimeout = 5 * time.Second

// Host is the running selection core the service is attached to.
type Host interface {
	Context() *selection.Context
	Display() selection.Display
	Scheduler() mainloop.Scheduler
	// CreateWindow is called on the loop.
	CreateWindow() (*events.Window, error)
	Selections() []string
}

type Module struct {
	*loader.ModuleBase
	host    Host
	manager *Manager
}

func NewModule(host Host) *Module {
	m := &Module{host: host}
	m.ModuleBase = loader.NewModuleBase("selection1", m, logger)
	return m
}

func (*Module) GetDependencies() []string {
	return []string{"selection"}
}

// Manager is nil until the module is started.
func (mo *Module) Manager() *Manager {
	return mo.manager
}

func (mo *Module) Start() error {
	logger.Debug("selection1 module start")
	h := mo.host
	result := make(chan error, 1)
	h.Scheduler().Post(func() {
		ownerWin, err := h.CreateWindow()
		if err != nil {
			result <- err
			return
		}
		requestorWin, err := h.CreateWindow()
		if err != nil {
			result <- err
			return
		}
		mo.manager = NewManager(loader.GetService(), h.Context(), h.Display(), h.Scheduler(),
			ownerWin, requestorWin, h.Selections())
		result <- nil
	})
	select {
	case err := <-result:
		if err != nil {
			return err
		}
	case <-time.After(startTimeout):
		return ErrTimeout
	}

	service := loader.GetService()
	if service == nil {
		return nil
	}
	err := service.Export(dbusPath, mo.manager)
	if err != nil {
		return err
	}
	return service.RequestName(dbusServiceName)
}

func (mo *Module) Stop() error {
	if mo.manager == nil {
		return nil
	}
	m := mo.manager
	if service := loader.GetService(); service != nil {
		if err := service.ReleaseName(dbusServiceName); err != nil {
			logger.Warning(err)
		}
		if err := service.StopExport(m); err != nil {
			logger.Warning(err)
		}
	}
	err := m.runOnLoop(func() error {
		m.destroy()
		return nil
	})
	mo.manager = nil
	return err
}
