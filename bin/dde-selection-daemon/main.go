// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/linuxdeepin/dde-selection/config"
	"github.com/linuxdeepin/dde-selection/loader"
	"github.com/linuxdeepin/dde-selection/selection1"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
)

const dbusServiceName = "org.deepin.dde.Selection1"

var logger = log.NewLogger("dde-selection/daemon")

var _options struct {
	verbose    bool
	logLevel   string
	configPath string
	selfCheck  bool
}

func toLogLevel(name string) (log.Priority, error) {
	name = strings.ToLower(name)
	logLevel := log.LevelInfo
	var err error
	switch name {
	case "":
		logLevel = log.LevelInfo
	case "error":
		logLevel = log.LevelError
	case "warn":
		logLevel = log.LevelWarning
	case "info":
		logLevel = log.LevelInfo
	case "debug":
		logLevel = log.LevelDebug
	case "no":
		logLevel = log.LevelDisable
	default:
		err = fmt.Errorf("%s is not support", name)
	}

	return logLevel, err
}

func init() {
	// -v | -verbose
	const verboseUsage = "Show much more message, shorthand for --loglevel debug."
	flag.BoolVar(&_options.verbose, "v", false, verboseUsage)
	flag.BoolVar(&_options.verbose, "verbose", false, verboseUsage)

	// -l | -loglevel
	const logLevelUsage = "Set log level, possible value is error/warn/info/debug/no, info is default"
	flag.StringVar(&_options.logLevel, "l", "", logLevelUsage)
	flag.StringVar(&_options.logLevel, "loglevel", "", logLevelUsage)

	// -c | -config
	const configUsage = "Read settings from this file instead of the user config dir."
	flag.StringVar(&_options.configPath, "c", "", configUsage)
	flag.StringVar(&_options.configPath, "config", "", configUsage)

	flag.BoolVar(&_options.selfCheck, "selfcheck", false,
		"Run an in-process selection transfer and exit.")
}

func main() {
	logger.SetLogLevel(log.LevelInfo)
	flag.Parse()

	if _options.verbose {
		_options.logLevel = "debug"
	}
	logLevel, err := toLogLevel(_options.logLevel)
	if err != nil {
		logger.Warning("failed to parse loglevel:", err)
		os.Exit(1)
	}

	if _options.selfCheck {
		logger.SetLogLevel(logLevel)
		if err := selfCheck(1<<20, 65432); err != nil {
			logger.Warning(err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if os.Getenv("WAYLAND_DISPLAY") != "" && os.Getenv("DISPLAY") == "" {
		logger.Warning("no X display, nothing to do")
		os.Exit(0)
	}

	configPath := _options.configPath
	if configPath == "" {
		configPath = config.Path()
	}

	service, err := dbusutil.NewSessionService()
	if err != nil {
		logger.Fatal("failed to new session service:", err)
	}
	hasOwner, err := service.NameHasOwner(dbusServiceName)
	if err != nil {
		logger.Fatal("failed to call NameHasOwner:", err)
	}
	if hasOwner {
		logger.Warningf("name %q already has the owner", dbusServiceName)
		os.Exit(1)
	}
	loader.SetService(service)

	c := newCore(configPath)
	c.fixedLevel = _options.logLevel != ""
	c.service = selection1.NewModule(c)
	loader.Register(c)
	loader.Register(c.service)

	if err := loader.StartAll(); err != nil {
		logger.Warning(err)
		loader.StopAll()
		os.Exit(1)
	}

	if _options.logLevel != "" {
		logger.Info("App log level:", _options.logLevel)
		loader.SetLogLevel(logLevel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal", sig)
		service.Quit()
	}()

	service.Wait()
	loader.StopAll()
}
