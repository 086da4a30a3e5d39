// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/xerrors"
)

// Watcher reloads the config file when it is written or replaced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	end      chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

// Watch calls onChange with every successfully reloaded config. Parse
// errors are logged and the previous config stays in effect.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, xerrors.Errorf("watch config: %w", err)
	}
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		logger.Debugf("Mkdir '%s' failed: %v", dir, err)
	}
	// the file itself may not exist yet, so watch its directory
	err = fsw.Add(dir)
	if err != nil {
		fsw.Close()
		return nil, xerrors.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fsw,
		path:     filepath.Clean(path),
		onChange: onChange,
		end:      make(chan struct{}),
	}
	w.done.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.done.Done()
	for {
		select {
		case <-w.end:
			logger.Debug("[Fsnotify] quit watch")
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warning("Receive file watcher error:", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("[Fsnotify] changed file:", ev.Name)
			cfg, err := Load(w.path)
			if err != nil {
				logger.Warning("reload config failed:", err)
				continue
			}
			if w.onChange != nil {
				w.onChange(cfg)
			}
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.end)
		w.watcher.Close()
		w.done.Wait()
	})
}
