// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging routes leveled log lines to the console and to log files.
package logging

import (
	"sync"
	"time"
)

// Level indicates a logging level. A larger level value means a log is more
// important.
type Level int

const (
	// LevelDebug is fine-grained tracing, shown at verbosity 2.
	LevelDebug Level = iota
	// LevelMessage is milestone narration, shown at verbosity 1 and above.
	LevelMessage
	// LevelWarning is a non-fatal anomaly.
	LevelWarning
	// LevelInfo is a machine-collectible measurement.
	LevelInfo
	// LevelSuccess is the final status line of a passing probe.
	LevelSuccess
	// LevelError is the final status line of a failing probe.
	LevelError
)

// Tag returns the three-letter tag printed after the session name, or an empty
// string for the final status levels, which carry their own suffix.
func (l Level) Tag() string {
	switch l {
	case LevelDebug:
		return "DBG"
	case LevelMessage:
		return "MSG"
	case LevelWarning:
		return "WRN"
	case LevelInfo:
		return "INF"
	default:
		return ""
	}
}

// LevelForVerbosity returns the minimum level shown on the console for a
// verbosity setting of 0, 1 or 2.
func LevelForVerbosity(verbosity int) Level {
	switch {
	case verbosity >= 2:
		return LevelDebug
	case verbosity == 1:
		return LevelMessage
	default:
		return LevelWarning
	}
}

// Logger consumes log lines.
type Logger interface {
	// Log gets called for a log entry.
	Log(level Level, ts time.Time, msg string)
}

// MultiLogger is a Logger that copies logs to multiple underlying loggers.
// A logger can be added and removed from MultiLogger at any time.
type MultiLogger struct {
	mu      sync.Mutex
	loggers []Logger
}

// NewMultiLogger creates a new MultiLogger with a specified initial set of
// underlying loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log copies a log to the current underlying loggers.
func (ml *MultiLogger) Log(level Level, ts time.Time, msg string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, logger := range ml.loggers {
		logger.Log(level, ts, msg)
	}
}

// AddLogger adds a logger to the set of underlying loggers.
func (ml *MultiLogger) AddLogger(logger Logger) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loggers = append(ml.loggers, logger)
}

// RemoveLogger removes a logger from the set of underlying loggers.
func (ml *MultiLogger) RemoveLogger(logger Logger) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	j := 0
	for _, l := range ml.loggers {
		if l == logger {
			continue
		}
		ml.loggers[j] = l
		j++
	}
	ml.loggers = ml.loggers[:j]
}
