// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"github.com/linuxdeepin/dde-selection/common/dconfig"
	"github.com/linuxdeepin/go-lib/strv"
)

// dconfig keys of org.deepin.dde.selection
const (
	KeyDoubleClickTime     = "doubleClickTime"
	KeyTripleClickTime     = "tripleClickTime"
	KeyDoubleClickDistance = "doubleClickDistance"
	KeyTripleClickDistance = "tripleClickDistance"
	KeyIdleTimeout         = "idleTimeout"
	KeySelections          = "selections"
	KeyLogLevel            = "logLevel"
)

// ValueSource is satisfied by *dconfig.DConfig.
type ValueSource interface {
	GetValue(key string) (interface{}, error)
}

// ApplyDConfig overlays the values src provides. Missing keys and values of
// the wrong type are skipped; the result is validated before it replaces c.
func (c *Config) ApplyDConfig(src ValueSource) error {
	next := *c
	next.Selections = append([]string(nil), c.Selections...)

	ints := []struct {
		key string
		dst *int
	}{
		{KeyDoubleClickTime, &next.DoubleClickTime},
		{KeyTripleClickTime, &next.TripleClickTime},
		{KeyDoubleClickDistance, &next.DoubleClickDistance},
		{KeyTripleClickDistance, &next.TripleClickDistance},
		{KeyIdleTimeout, &next.IdleTimeout},
	}
	for _, item := range ints {
		value, err := src.GetValue(item.key)
		if err != nil {
			logger.Debug("dconfig", item.key, err)
			continue
		}
		v, err := dconfig.ToInt64(value)
		if err != nil {
			logger.Warning(err)
			continue
		}
		*item.dst = int(v)
	}

	if value, err := src.GetValue(KeySelections); err == nil {
		list, err := dconfig.ToStrv(value)
		if err != nil {
			logger.Warning(err)
		} else if !strv.Strv(list).Equal(next.Selections) {
			next.Selections = list
		}
	}
	if value, err := src.GetValue(KeyLogLevel); err == nil {
		if level, ok := value.(string); ok {
			next.LogLevel = level
		}
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
