// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"sync"

	"github.com/linuxdeepin/dde-selection/common/dconfig"
	"github.com/linuxdeepin/dde-selection/config"
	"github.com/linuxdeepin/dde-selection/events"
	"github.com/linuxdeepin/dde-selection/loader"
	"github.com/linuxdeepin/dde-selection/mainloop"
	"github.com/linuxdeepin/dde-selection/selection"
	"github.com/linuxdeepin/dde-selection/selection1"
	"github.com/linuxdeepin/dde-selection/x11"
	"github.com/linuxdeepin/dde-selection/xsettings"
	"golang.org/x/xerrors"
)

// core owns the X connection, the main loop and the selection context.
// Every other module runs on top of it.
type core struct {
	*loader.ModuleBase
	configPath string
	// fixedLevel is set when the log level came from the command line.
	fixedLevel bool

	mu  sync.Mutex
	cfg *config.Config

	loop      *mainloop.Loop
	display   *x11.Display
	ctx       *selection.Context
	settings  *xsettings.Watcher
	dconf     *dconfig.DConfig
	fileWatch *config.Watcher
	cancel    context.CancelFunc
	service   *selection1.Module
}

func newCore(configPath string) *core {
	c := &core{configPath: configPath}
	c.ModuleBase = loader.NewModuleBase("selection", c, logger)
	return c
}

func (*core) GetDependencies() []string {
	return nil
}

func (c *core) currentConfig() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *core) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dconf != nil {
		if err := cfg.ApplyDConfig(c.dconf); err != nil {
			logger.Warning("ignore dconfig values:", err)
		}
	}
	return cfg, nil
}

func (c *core) Start() error {
	dconf, err := dconfig.NewSelectionConfig()
	if err != nil {
		logger.Warning("failed to new dconfig:", err)
	} else {
		c.dconf = dconf
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.applyLogLevel(cfg)

	display, err := x11.Open(cfg.ClickConfig())
	if err != nil {
		return xerrors.Errorf("open display: %w", err)
	}
	display.SetMaxRequestSize(cfg.MaxRequestSize)
	c.display = display
	c.loop = mainloop.New()
	c.ctx = selection.NewContext(c.loop,
		selection.WithIdleTimeout(cfg.IdleTimeoutDuration()),
		selection.WithSelectionProperty(cfg.SelectionProperty))

	settingsWin, err := display.CreateWindow()
	if err != nil {
		display.Close()
		return xerrors.Errorf("create settings window: %w", err)
	}
	c.settings, err = xsettings.NewWatcher(display, display.Events(), settingsWin, cfg.ClickConfig())
	if err != nil {
		display.Close()
		return err
	}
	if err := c.settings.Refresh(); err != nil {
		logger.Warning("read xsettings failed:", err)
	}
	display.Events().SetHandler(c.handleEvent, nil, nil)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		err := c.loop.Run(runCtx)
		logger.Debug("main loop quit:", err)
	}()
	go display.Run(runCtx, c.loop)

	c.fileWatch, err = config.Watch(c.configPath, c.onConfigChanged)
	if err != nil {
		logger.Warning(err)
	}
	if c.dconf != nil {
		for _, key := range []string{
			config.KeyDoubleClickTime, config.KeyTripleClickTime,
			config.KeyDoubleClickDistance, config.KeyTripleClickDistance,
			config.KeySelections, config.KeyLogLevel,
		} {
			c.dconf.ConnectConfigChanged(key, func(interface{}) {
				cfg, err := c.loadConfig()
				if err != nil {
					logger.Warning(err)
					return
				}
				c.onConfigChanged(cfg)
			})
		}
	}
	return nil
}

func (c *core) applyLogLevel(cfg *config.Config) {
	if c.fixedLevel {
		return
	}
	loader.SetLogLevel(cfg.Level())
}

// handleEvent runs on the loop for every event of the display.
func (c *core) handleEvent(ev *events.Event, data interface{}) {
	if ev.Kind == events.KindSetting {
		logger.Debugf("xsettings %s: %d", ev.Setting().Name, ev.Setting().Action)
		return
	}
	if c.settings.HandleEvent(ev) {
		return
	}
	c.ctx.HandleEvent(c.display, ev)
}

// onConfigChanged applies what can change at runtime. The idle timeout
// and the selection property are read once at start.
func (c *core) onConfigChanged(cfg *config.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.applyLogLevel(cfg)
	if c.service != nil {
		if m := c.service.Manager(); m != nil {
			m.SetSelections(cfg.Selections)
		}
	}
	c.loop.Post(func() {
		c.display.SetMaxRequestSize(cfg.MaxRequestSize)
		c.settings.SetBase(cfg.ClickConfig())
	})
}

func (c *core) Stop() error {
	if c.fileWatch != nil {
		c.fileWatch.Stop()
	}
	if c.dconf != nil {
		c.dconf.Close()
	}
	done := make(chan struct{})
	c.loop.Post(func() {
		c.ctx.Close()
		close(done)
	})
	<-done
	c.cancel()
	c.display.Close()
	return nil
}

// selection1.Host

func (c *core) Context() *selection.Context {
	return c.ctx
}

func (c *core) Display() selection.Display {
	return c.display
}

func (c *core) Scheduler() mainloop.Scheduler {
	return c.loop
}

func (c *core) CreateWindow() (*events.Window, error) {
	return c.display.CreateWindow()
}

func (c *core) Selections() []string {
	return c.currentConfig().Selections
}
