// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dconfig reads and watches values of the desktop configuration
// service.
package dconfig

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	DConfigManager "github.com/linuxdeepin/go-dbus-factory/org.desktopspec.ConfigManager"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("dde-selection/dconfig")

const (
	DefaultAppID = "org.deepin.dde.daemon"
	SelectionID  = "org.deepin.dde.selection"
)

type DConfig struct {
	systemConn *dbus.Conn
	dbusPath   dbus.ObjectPath
	manager    DConfigManager.Manager
	sigLoop    *dbusutil.SignalLoop

	configChangedCbMap      map[string]func(interface{})
	configChangedCbMapMutex sync.Mutex
	configChangedOnce       sync.Once
}

func NewDConfig(appid, name, subPath string) (*DConfig, error) {
	var dConfig DConfig
	var err error
	dConfig.systemConn, err = dbus.SystemBus()
	if err != nil {
		return nil, err
	}

	dConfigManager := DConfigManager.NewConfigManager(dConfig.systemConn)
	dConfig.dbusPath, err = dConfigManager.AcquireManager(0, appid, name, subPath)
	if err != nil {
		return nil, err
	}
	dConfig.manager, err = DConfigManager.NewManager(dConfig.systemConn, dConfig.dbusPath)
	if err != nil {
		return nil, err
	}

	return &dConfig, nil
}

// NewSelectionConfig opens the configuration of the selection daemon.
func NewSelectionConfig() (*DConfig, error) {
	return NewDConfig(DefaultAppID, SelectionID, "")
}

func (dConfig *DConfig) GetValue(key string) (interface{}, error) {
	if dConfig.manager == nil {
		return nil, fmt.Errorf("dconfig not initialized")
	}
	v, err := dConfig.manager.Value(0, key)
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (dConfig *DConfig) GetValueString(key string) (string, error) {
	value, err := dConfig.GetValue(key)
	if err != nil {
		return "", err
	}
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("dconfig %s: %T is not a string", key, value)
	}
	return v, nil
}

func (dConfig *DConfig) GetValueStrv(key string) ([]string, error) {
	value, err := dConfig.GetValue(key)
	if err != nil {
		return nil, err
	}
	return ToStrv(value)
}

// GetValueInt64 accepts the numeric types DBus may carry the value in.
func (dConfig *DConfig) GetValueInt64(key string) (int64, error) {
	value, err := dConfig.GetValue(key)
	if err != nil {
		return 0, err
	}
	return ToInt64(value)
}

func ToInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	}
	return 0, fmt.Errorf("dconfig: %T is not a number", value)
}

func ToStrv(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if variant, ok := item.(dbus.Variant); ok {
				item = variant.Value()
			}
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("dconfig: %T is not a string", item)
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, fmt.Errorf("dconfig: %T is not a string list", value)
}

func (dConfig *DConfig) SetValue(key string, value interface{}) error {
	if dConfig.manager == nil {
		return fmt.Errorf("dconfig not initialized")
	}
	return dConfig.manager.SetValue(0, key, dbus.MakeVariant(value))
}

// ConnectConfigChanged calls cb with the new value of key whenever it
// changes. cb runs on its own goroutine.
func (dConfig *DConfig) ConnectConfigChanged(key string, cb func(interface{})) {
	dConfig.configChangedCbMapMutex.Lock()
	if dConfig.configChangedCbMap == nil {
		dConfig.configChangedCbMap = make(map[string]func(interface{}))
	}
	dConfig.configChangedCbMap[key] = cb
	dConfig.configChangedCbMapMutex.Unlock()

	dConfig.configChangedOnce.Do(func() {
		dConfig.sigLoop = dbusutil.NewSignalLoop(dConfig.systemConn, 10)
		dConfig.sigLoop.Start()
		dConfig.manager.InitSignalExt(dConfig.sigLoop, true)

		_, err := dConfig.manager.ConnectValueChanged(func(key string) {
			dConfig.configChangedCbMapMutex.Lock()
			cb := dConfig.configChangedCbMap[key]
			dConfig.configChangedCbMapMutex.Unlock()
			if cb == nil {
				return
			}
			value, err := dConfig.GetValue(key)
			if err != nil {
				return
			}
			go cb(value)
		})
		if err != nil {
			logger.Warning(err)
		}
	})
}

func (dConfig *DConfig) Close() {
	if dConfig.sigLoop != nil {
		dConfig.manager.RemoveAllHandlers()
		dConfig.sigLoop.Stop()
	}
}
