// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package loader starts the daemon's modules in dependency order.
package loader

import (
	"fmt"
	"sync"
	"time"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
)

type EnableFlag int

const (
	EnableFlagNone EnableFlag = 1 << iota
	EnableFlagIgnoreMissingModule
	EnableFlagForceStart
)

func (flags EnableFlag) HasFlag(flag EnableFlag) bool {
	return flags&flag != 0
}

const (
	ErrorNoDependencies int = iota
	ErrorCircleDependencies
	ErrorMissingModule
	ErrorInternalError
	ErrorConflict
)

type EnableError struct {
	ModuleName string
	Code       int
	detail     string
}

func (e *EnableError) Error() string {
	switch e.Code {
	case ErrorNoDependencies:
		return fmt.Sprintf("%s's dependencies is not meet, %s is need", e.ModuleName, e.detail)
	case ErrorCircleDependencies:
		return "dependency circle"
	case ErrorMissingModule:
		return fmt.Sprintf("%s is missing", e.ModuleName)
	case ErrorInternalError:
		return fmt.Sprintf("%s started failed: %s", e.ModuleName, e.detail)
	case ErrorConflict:
		return fmt.Sprintf("tring to enable disabled module(%s)", e.ModuleName)
	}
	panic("EnableError: Unknown Error, Should not be reached")
}

type Loader struct {
	modules Modules
	started []string
	log     *log.Logger
	lock    sync.Mutex
	service *dbusutil.Service
}

func (l *Loader) SetLogLevel(pri log.Priority) {
	l.log.SetLogLevel(pri)

	l.lock.Lock()
	defer l.lock.Unlock()

	for _, module := range l.modules {
		module.SetLogLevel(pri)
	}
}

func (l *Loader) AddModule(m Module) {
	l.lock.Lock()
	defer l.lock.Unlock()
	name := m.Name()
	_, exist := l.modules[name]
	if exist {
		l.log.Debug("Register", name, "is already registered")
		return
	}
	l.log.Debug("Register module:", name)
	l.modules[name] = m
}

func (l *Loader) List() []Module {
	l.lock.Lock()
	defer l.lock.Unlock()
	modules := make([]Module, 0, len(l.modules))
	for _, m := range l.modules {
		modules = append(modules, m)
	}
	return modules
}

func (l *Loader) GetModule(name string) Module {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.modules[name]
}

// resolve orders names and their dependencies so that every module comes
// after what it depends on.
func (l *Loader) resolve(names []string, disabled map[string]struct{}, flag EnableFlag) ([]string, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &EnableError{Code: ErrorCircleDependencies}
		case done:
			return nil
		}
		module, ok := l.modules[name]
		if !ok {
			if flag.HasFlag(EnableFlagIgnoreMissingModule) {
				l.log.Info("no such a module named", name)
				state[name] = done
				return nil
			}
			return &EnableError{ModuleName: name, Code: ErrorMissingModule}
		}
		if _, ok := disabled[name]; ok && !flag.HasFlag(EnableFlagForceStart) {
			return &EnableError{ModuleName: name, Code: ErrorConflict}
		}
		state[name] = visiting
		for _, dep := range module.GetDependencies() {
			if _, ok := l.modules[dep]; !ok {
				return &EnableError{ModuleName: name, Code: ErrorNoDependencies, detail: dep}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (l *Loader) EnableModules(enablingModules []string, disableModules []string, flag EnableFlag) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	startTime := time.Now()
	disabled := make(map[string]struct{}, len(disableModules))
	for _, name := range disableModules {
		if _, ok := l.modules[name]; !ok {
			l.log.Warningf("disabled module(%s) is no existed", name)
			continue
		}
		disabled[name] = struct{}{}
	}

	order, err := l.resolve(enablingModules, disabled, flag)
	if err != nil {
		return err
	}
	l.log.Infof("resolve order done, cost %s", time.Since(startTime))

	for _, name := range order {
		module := l.modules[name]
		if module.IsEnable() {
			continue
		}
		l.log.Info("enable module", name)
		moduleStart := time.Now()
		err := module.Enable(true)
		if err != nil {
			l.log.Errorf("enable module %s failed: %s, cost %s", name, err, time.Since(moduleStart))
			return &EnableError{ModuleName: name, Code: ErrorInternalError, detail: err.Error()}
		}
		l.started = append(l.started, name)
		l.log.Infof("enable module %s done cost %s", name, time.Since(moduleStart))
	}

	l.log.Infof("enable modules done, cost add up to %s", time.Since(startTime))
	return nil
}

// StopAll stops the started modules in reverse start order.
func (l *Loader) StopAll() {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i := len(l.started) - 1; i >= 0; i-- {
		name := l.started[i]
		if err := l.modules[name].Enable(false); err != nil {
			l.log.Warningf("stop module %s failed: %v", name, err)
		}
	}
	l.started = nil
}
