// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the structured, leveled logging used across the
// backend and translation layers. Severities below the configured level
// are cheap no-ops; output optionally rotates through lumberjack when a
// file path is configured.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity mirrors the teacher's off/error/warning/info/debug/trace
// ladder, collapsed onto slog's smaller level set (trace maps to a level
// below slog.LevelDebug).
type Severity int

const (
	SeverityOff Severity = iota
	SeverityError
	SeverityWarning
	SeverityInfo
	SeverityDebug
	SeverityTrace
)

const levelTrace = slog.Level(-8)

func (s Severity) slogLevel() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityTrace:
		return levelTrace
	default:
		return slog.LevelError + 100 // effectively disables logging
	}
}

var (
	mu      sync.Mutex
	current atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: SeverityInfo.slogLevel()})))
}

// Config selects the logging format, destination, and severity threshold.
type Config struct {
	Format    string // "json" or "text"
	Severity  Severity
	FilePath  string // empty means stderr
	MaxSizeMB int
	MaxBackups int
}

// Init (re)configures the package-level default logger. Name is attached
// to every record as the "fs" field, matching the teacher's per-mount
// logger tagging.
func Init(cfg Config, name string) {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: cfg.Severity.slogLevel()}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler).With("fs", name)
	current.Store(l)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func log() *slog.Logger { return current.Load() }

func Infof(format string, args ...any)  { log().Info(sprintf(format, args...)) }
func Warnf(format string, args ...any)  { log().Warn(sprintf(format, args...)) }
func Errorf(format string, args ...any) { log().Error(sprintf(format, args...)) }
func Debugf(format string, args ...any) { log().Debug(sprintf(format, args...)) }
func Tracef(format string, args ...any) { log().Log(context.Background(), levelTrace, sprintf(format, args...)) }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
