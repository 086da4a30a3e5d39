// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package selection1

import (
	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

const (
	dbusServiceName = "org.deepin.dde.Selection1"
	dbusPath        = "/org/deepin/dde/Selection1"
	dbusInterface   = dbusServiceName
)

func (*Manager) GetInterfaceName() string {
	return dbusInterface
}

func (m *Manager) SetText(selection, text string) *dbus.Error {
	logger.Debugf("dbus call SetText %s, %d bytes", selection, len(text))
	err := m.runOnLoop(func() error {
		return m.setText(selection, text)
	})
	if err != nil {
		logger.Warning(err)
		return dbusutil.ToError(err)
	}
	return nil
}

func (m *Manager) SetData(selection, target string, data []byte) *dbus.Error {
	logger.Debugf("dbus call SetData %s %s, %d bytes", selection, target, len(data))
	err := m.runOnLoop(func() error {
		return m.setData(selection, target, data)
	})
	if err != nil {
		logger.Warning(err)
		return dbusutil.ToError(err)
	}
	return nil
}

func (m *Manager) Release(selection string) *dbus.Error {
	logger.Debug("dbus call Release", selection)
	err := m.runOnLoop(func() error {
		return m.release(selection)
	})
	if err != nil {
		logger.Warning(err)
		return dbusutil.ToError(err)
	}
	return nil
}

func (m *Manager) GetText(selection string) (string, *dbus.Error) {
	text, err := m.getText(selection)
	if err != nil {
		logger.Debug(err)
		return "", dbusutil.ToError(err)
	}
	return text, nil
}

func (m *Manager) GetTargets(selection string) ([]string, *dbus.Error) {
	targets, err := m.getTargets(selection)
	if err != nil {
		logger.Debug(err)
		return nil, dbusutil.ToError(err)
	}
	return targets, nil
}

func (m *Manager) GetData(selection, target string) ([]byte, string, *dbus.Error) {
	data, typeName, err := m.getData(selection, target)
	if err != nil {
		logger.Debug(err)
		return nil, "", dbusutil.ToError(err)
	}
	return data, typeName, nil
}

func (m *Manager) GetExportedMethods() dbusutil.ExportedMethods {
	return dbusutil.ExportedMethods{
		{
			Name:   "SetText",
			Fn:     m.SetText,
			InArgs: []string{"selection", "text"},
		},
		{
			Name:   "SetData",
			Fn:     m.SetData,
			InArgs: []string{"selection", "target", "data"},
		},
		{
			Name:   "Release",
			Fn:     m.Release,
			InArgs: []string{"selection"},
		},
		{
			Name:    "GetText",
			Fn:      m.GetText,
			InArgs:  []string{"selection"},
			OutArgs: []string{"text"},
		},
		{
			Name:    "GetTargets",
			Fn:      m.GetTargets,
			InArgs:  []string{"selection"},
			OutArgs: []string{"targets"},
		},
		{
			Name:    "GetData",
			Fn:      m.GetData,
			InArgs:  []string{"selection", "target"},
			OutArgs: []string{"data", "type"},
		},
	}
}
