// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxdeepin/go-lib/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 250, cfg.DoubleClickTime)
	assert.Equal(t, 500, cfg.TripleClickTime)
	assert.Equal(t, 5, cfg.DoubleClickDistance)
	assert.Equal(t, 10, cfg.TripleClickDistance)
	assert.Equal(t, 300, cfg.IdleTimeout)
	assert.Equal(t, 0, cfg.MaxRequestSize)
	assert.Equal(t, []string{"PRIMARY", "CLIPBOARD"}, cfg.Selections)
	assert.NoError(t, cfg.Validate())
}

func TestPath(t *testing.T) {
	assert.Equal(t, fileName, filepath.Base(Path()))
	assert.Equal(t, "deepin", filepath.Base(filepath.Dir(Path())))
}

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), fileName)
	writeFile(t, path, `
doubleClickTime: 400
idleTimeout: 5
selections: [CLIPBOARD, ""]
logLevel: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.DoubleClickTime)
	assert.Equal(t, 500, cfg.TripleClickTime)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeoutDuration())
	assert.Equal(t, []string{"CLIPBOARD"}, cfg.Selections)
	assert.Equal(t, log.LevelDebug, cfg.Level())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "doubleClickTime: [")
	_, err := Load(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "negative.yaml")
	writeFile(t, path, "idleTimeout: -1")
	_, err = Load(path)
	assert.True(t, errors.Is(err, errNegative))

	path = filepath.Join(dir, "empty.yaml")
	writeFile(t, path, "selections: []")
	_, err = Load(path)
	assert.True(t, errors.Is(err, errNoSelections))

	path = filepath.Join(dir, "level.yaml")
	writeFile(t, path, "logLevel: loud")
	_, err = Load(path)
	assert.True(t, errors.Is(err, errBadLogLevel))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", fileName)
	cfg := Default()
	cfg.Selections = []string{"SECONDARY"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestClickConfig(t *testing.T) {
	cfg := Default()
	click := cfg.ClickConfig()
	assert.Equal(t, 250*time.Millisecond, click.DoubleClickTime)
	assert.Equal(t, 500*time.Millisecond, click.TripleClickTime)

	cfg = &Config{DoubleClickTime: 300, DoubleClickDistance: 4}
	click = cfg.ClickConfig()
	assert.Equal(t, 300*time.Millisecond, click.DoubleClickTime)
	assert.Equal(t, 600*time.Millisecond, click.TripleClickTime)
	assert.Equal(t, 4, click.DoubleClickDistance)
	assert.Equal(t, 8, click.TripleClickDistance)
}

type mapSource map[string]interface{}

func (m mapSource) GetValue(key string) (interface{}, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return v, nil
}

func TestApplyDConfig(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyDConfig(mapSource{
		KeyDoubleClickTime: int64(320),
		KeyIdleTimeout:     float64(60),
		KeySelections:      []interface{}{"PRIMARY"},
		KeyLogLevel:        "warning",
		KeyTripleClickTime: "not a number",
	})
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.DoubleClickTime)
	assert.Equal(t, 500, cfg.TripleClickTime)
	assert.Equal(t, 60, cfg.IdleTimeout)
	assert.Equal(t, []string{"PRIMARY"}, cfg.Selections)
	assert.Equal(t, log.LevelWarning, cfg.Level())

	before := *cfg
	err = cfg.ApplyDConfig(mapSource{KeyIdleTimeout: int32(-5)})
	assert.True(t, errors.Is(err, errNegative))
	assert.Equal(t, before.IdleTimeout, cfg.IdleTimeout)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), fileName)
	changes := make(chan *Config, 4)
	w, err := Watch(path, func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Stop()

	writeFile(t, path, "doubleClickTime: 123\n")
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			// creation may be seen before the content is written
			if cfg.DoubleClickTime == 123 {
				return
			}
		case <-timeout:
			t.Fatal("no reload")
		}
	}
}
