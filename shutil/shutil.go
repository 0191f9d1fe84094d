// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil quotes command lines for display in probe logs.
package shutil

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// \w is [0-9A-Za-z_]. A leading equals sign is unsafe in zsh.
	leadingSafeChars  = `-\w@%+:,./`
	trailingSafeChars = leadingSafeChars + "="
)

// safeRE matches an argument that can be pasted into a shell verbatim.
var safeRE = regexp.MustCompile(fmt.Sprintf("^[%s][%s]*$", leadingSafeChars, trailingSafeChars))

// Escape quotes s for a shell command line unless it is already safe.
func Escape(s string) string {
	if safeRE.MatchString(s) {
		return s
	}
	return "'" + strings.Replace(s, "'", `'"'"'`, -1) + "'"
}

// Command returns name and args as a single pasteable command line, as
// printed in debug logs before a probe runs an external tool.
func Command(name string, args ...string) string {
	escaped := make([]string, 0, len(args)+1)
	escaped = append(escaped, Escape(name))
	for _, arg := range args {
		escaped = append(escaped, Escape(arg))
	}
	return strings.Join(escaped, " ")
}
