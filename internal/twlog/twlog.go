// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package twlog is the process-wide structured logger. It wraps
// go.uber.org/zap behind a package-level, mutex-guarded instance, the
// idiomatic equivalent of spec.md §7's "global mutex serializing writes
// to the diagnostic stream" — grounded on
// KurtSkinny-telegram-userbot's internal/infra/logger package.
package twlog

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	output = zapcore.Lock(zapcore.AddSync(os.Stderr))
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func rebuildLocked() {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), output, level)
	if logger != nil {
		_ = logger.Sync()
	}
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init sets the minimum log level ("debug", "info", "warn", "error";
// defaults to "info" for anything else) and rebuilds the logger core.
func Init(levelName string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(levelName) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	rebuildLocked()
}

// SetOutput redirects diagnostics to w instead of stderr, the
// structured-logging analogue of the teacher's --log flag
// (server/config.go's config.Log handling).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if w == nil {
		output = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		output = zapcore.Lock(zapcore.AddSync(w))
	}
	rebuildLocked()
}

// L returns the current logger, building the default one on first use.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		rebuildLocked()
	}
	return logger
}

// Field is a thin alias so callers outside this package don't need to
// import zap directly for the common case.
func Field(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// Sync flushes any buffered log entries; call it before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
