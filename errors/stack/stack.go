// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack captures and formats call stacks for error values.
// Probes should use the errors package instead of this one.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	maxDepth = 8      // frames kept per trace
	ellipsis = "\t..." // marks a truncated trace
)

// Stack is a snapshot of program counters.
type Stack []uintptr

// New captures the current stack. With skip=0 the caller of New is the
// innermost frame.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	pc = pc[:runtime.Callers(skip+2, pc)]
	return Stack(pc)
}

// Frames returns the "function (file:line)" location of each recorded frame,
// innermost first, limited to maxDepth entries.
func (s Stack) Frames() []string {
	var locs []string
	cf := runtime.CallersFrames(s)
	for {
		f, more := cf.Next()
		locs = append(locs, fmt.Sprintf("%s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		if !more || len(locs) >= maxDepth {
			return locs
		}
	}
}

// String formats s with one "\tat" line per frame.
func (s Stack) String() string {
	frames := s.Frames()
	lines := make([]string, 0, len(frames)+1)
	for _, f := range frames {
		lines = append(lines, "\tat "+f)
	}
	if len(s) > maxDepth {
		lines = append(lines, ellipsis)
	}
	return strings.Join(lines, "\n")
}
