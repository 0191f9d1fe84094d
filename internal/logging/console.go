// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// levelColors maps levels to the bright ANSI color used on the console.
var levelColors = map[Level]termenv.ANSIColor{
	LevelDebug:   termenv.ANSIBrightBlue,
	LevelMessage: termenv.ANSIBrightBlue,
	LevelWarning: termenv.ANSIBrightYellow,
	LevelInfo:    termenv.ANSIBrightCyan,
	LevelSuccess: termenv.ANSIBrightGreen,
	LevelError:   termenv.ANSIBrightRed,
}

// ConsoleLogger is a Logger writing lines at or above a level to a terminal,
// optionally colored by level.
type ConsoleLogger struct {
	level Level

	mu    sync.Mutex
	out   *termenv.Output
	color bool
}

// NewConsoleLogger creates a ConsoleLogger writing to w. Colors are emitted
// as plain ANSI sequences when color is true, whether or not w is a terminal.
func NewConsoleLogger(w io.Writer, level Level, color bool) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		out:   termenv.NewOutput(w, termenv.WithProfile(termenv.ANSI)),
		color: color,
	}
}

// Log prints msg if level is high enough.
func (l *ConsoleLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := levelColors[level]; ok && l.color {
		msg = l.out.String(msg).Foreground(c).String()
	}
	fmt.Fprintln(l.out, msg)
}
