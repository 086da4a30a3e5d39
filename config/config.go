// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the daemon settings from the user's YAML file and
// the desktop configuration service.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/strv"
	"github.com/linuxdeepin/go-lib/utils"
	"github.com/linuxdeepin/go-lib/xdg/basedir"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

var logger = log.NewLogger("dde-selection/config")

const fileName = "dde-selection.yaml"

// Config values are plain numbers: times in milliseconds, the idle
// timeout in seconds and sizes in bytes.
type Config struct {
	DoubleClickTime     int      `yaml:"doubleClickTime"`
	TripleClickTime     int      `yaml:"tripleClickTime"`
	DoubleClickDistance int      `yaml:"doubleClickDistance"`
	TripleClickDistance int      `yaml:"tripleClickDistance"`
	IdleTimeout         int      `yaml:"idleTimeout"`
	// MaxRequestSize of zero uses the limit announced by the X server.
	MaxRequestSize      int      `yaml:"maxRequestSize"`
	SelectionProperty   string   `yaml:"selectionProperty"`
	Selections          []string `yaml:"selections"`
	LogLevel            string   `yaml:"logLevel"`
}

func Default() *Config {
	click := events.DefaultClickConfig()
	return &Config{
		DoubleClickTime:     int(click.DoubleClickTime / time.Millisecond),
		TripleClickTime:     int(click.TripleClickTime / time.Millisecond),
		DoubleClickDistance: click.DoubleClickDistance,
		TripleClickDistance: click.TripleClickDistance,
		IdleTimeout:         300,
		MaxRequestSize:      0,
		SelectionProperty:   "DDE_SELECTION",
		Selections:          []string{"PRIMARY", "CLIPBOARD"},
		LogLevel:            "info",
	}
}

// Path is $XDG_CONFIG_HOME/deepin/dde-selection.yaml.
func Path() string {
	return filepath.Join(basedir.GetUserConfigDir(), "deepin", fileName)
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if !utils.IsFileExist(path) {
		logger.Debug("no config file at", path)
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, xerrors.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return xerrors.Errorf("save config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

var (
	errNegative      = xerrors.New("value must not be negative")
	errNoSelections  = xerrors.New("no selection to serve")
	errBadLogLevel   = xerrors.New("unknown log level")
	errEmptyProperty = xerrors.New("empty selection property")
)

var logLevels = strv.Strv{"debug", "info", "warning", "error", "disable"}

func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"doubleClickTime":     c.DoubleClickTime,
		"tripleClickTime":     c.TripleClickTime,
		"doubleClickDistance": c.DoubleClickDistance,
		"tripleClickDistance": c.TripleClickDistance,
		"idleTimeout":         c.IdleTimeout,
		"maxRequestSize":      c.MaxRequestSize,
	} {
		if v < 0 {
			return xerrors.Errorf("%s: %w", name, errNegative)
		}
	}
	c.Selections = strv.Strv(c.Selections).FilterEmpty()
	if len(c.Selections) == 0 {
		return errNoSelections
	}
	if c.SelectionProperty == "" {
		return errEmptyProperty
	}
	if c.LogLevel != "" && !logLevels.Contains(c.LogLevel) {
		return xerrors.Errorf("%q: %w", c.LogLevel, errBadLogLevel)
	}
	return nil
}

// ClickConfig returns the click synthesis settings. Zero values fall
// back to the defaults.
func (c *Config) ClickConfig() events.ClickConfig {
	cfg := events.DefaultClickConfig()
	if c.DoubleClickTime > 0 {
		cfg.DoubleClickTime = time.Duration(c.DoubleClickTime) * time.Millisecond
		cfg.TripleClickTime = 2 * cfg.DoubleClickTime
	}
	if c.TripleClickTime > 0 {
		cfg.TripleClickTime = time.Duration(c.TripleClickTime) * time.Millisecond
	}
	if c.DoubleClickDistance > 0 {
		cfg.DoubleClickDistance = c.DoubleClickDistance
		cfg.TripleClickDistance = 2 * c.DoubleClickDistance
	}
	if c.TripleClickDistance > 0 {
		cfg.TripleClickDistance = c.TripleClickDistance
	}
	return cfg
}

func (c *Config) IdleTimeoutDuration() time.Duration {
	if c.IdleTimeout <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.IdleTimeout) * time.Second
}

func (c *Config) Level() log.Priority {
	switch c.LogLevel {
	case "debug":
		return log.LevelDebug
	case "warning":
		return log.LevelWarning
	case "error":
		return log.LevelError
	case "disable":
		return log.LevelDisable
	}
	return log.LevelInfo
}
