// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package logger handles logging for nfcollector.
//
// This is a thin wrapper around zerolog. Each event gets a "caller"
// field and a "module" field (the package of this module emitting the
// event), which makes it easy to filter logs by component.
package logger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"nfcollector/common/reporter/stack"
)

// Logger is a logger instance. It is compatible with the interface
// from zerolog by design.
type Logger struct {
	zerolog.Logger
}

// New creates a new logger on top of the global zerolog logger. When
// a log file is configured, events go to this file instead.
func New(config Configuration) (Logger, error) {
	l := log.Logger
	if config.File.Path != "" {
		l = zerolog.New(&lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSize,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAge,
			Compress:   config.File.Compress,
		}).With().Timestamp().Logger()
	}
	return Logger{l.Hook(contextHook{})}, nil
}

type contextHook struct{}

// Run adds "caller" and "module" to an event.
func (contextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	callers := stack.Callers()
	first := true
	for _, call := range callers {
		name := call.FunctionName()
		if strings.HasPrefix(name, "github.com/rs/zerolog") ||
			strings.HasPrefix(name, loggerPackage) {
			continue
		}
		if first {
			e.Str("caller", call.SourceFile(true))
			first = false
		}
		if !strings.HasPrefix(name, stack.ModuleName+"/") {
			continue
		}
		e.Str("module", strings.SplitN(name, ".", 2)[0])
		return
	}
}

var loggerPackage = stack.ModuleName + "/common/reporter/logger."
