// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/boardlab/hwtest/errors"
)

// LineLogger is a Logger writing one uncolored line per log at or above a
// minimum level. It is safe for concurrent use.
type LineLogger struct {
	min Level

	mu  sync.Mutex
	w   *bufio.Writer
	c   io.Closer // nil if the underlying writer is not owned
	err error     // first write error
}

var _ Logger = (*LineLogger)(nil)

// NewLineLogger returns a LineLogger writing to w, which the caller keeps
// owning.
func NewLineLogger(min Level, w io.Writer) *LineLogger {
	return &LineLogger{min: min, w: bufio.NewWriter(w)}
}

// OpenFileLogger opens path for appending, creating it if needed, and returns
// a LineLogger writing to it. The file is closed by Close.
func OpenFileLogger(min Level, path string) (*LineLogger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", path)
	}
	l := NewLineLogger(min, f)
	l.c = f
	return l, nil
}

// Log writes msg followed by a newline. Lines are flushed immediately so
// that a killed probe leaves a complete log behind.
func (l *LineLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	l.w.WriteString(msg)
	l.w.WriteByte('\n')
	l.err = l.w.Flush()
}

// Close closes the underlying file for loggers from OpenFileLogger. It
// returns the first write error, if any.
func (l *LineLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.err
	if l.c != nil {
		if cerr := l.c.Close(); err == nil {
			err = cerr
		}
		l.c = nil
	}
	return err
}
