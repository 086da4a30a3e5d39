// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package loader

import (
	"fmt"
	"sync"

	"github.com/linuxdeepin/go-lib/log"
)

type Module interface {
	Name() string
	IsEnable() bool
	Enable(bool) error
	GetDependencies() []string
	SetLogLevel(log.Priority)
	LogLevel() log.Priority
	ModuleImpl
}

type Modules map[string]Module

type ModuleImpl interface {
	// Start runs on the caller's goroutine and must return once the
	// module is usable.
	Start() error
	Stop() error
}

type ModuleBase struct {
	impl    ModuleImpl
	name    string
	log     *log.Logger
	mu      sync.Mutex
	enabled bool
}

func NewModuleBase(name string, impl ModuleImpl, logger *log.Logger) *ModuleBase {
	return &ModuleBase{
		name: name,
		impl: impl,
		log:  logger,
	}
}

func (d *ModuleBase) Enable(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled == enable {
		if enable {
			return fmt.Errorf("%s is already started", d.name)
		}
		return fmt.Errorf("%s is not started", d.name)
	}
	if d.impl != nil {
		fn := d.impl.Stop
		if enable {
			fn = d.impl.Start
		}
		if err := fn(); err != nil {
			return err
		}
	}
	d.enabled = enable
	return nil
}

func (d *ModuleBase) IsEnable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *ModuleBase) Name() string {
	return d.name
}

func (d *ModuleBase) SetLogLevel(pri log.Priority) {
	d.log.SetLogLevel(pri)
}

func (d *ModuleBase) LogLevel() log.Priority {
	return d.log.GetLogLevel()
}
