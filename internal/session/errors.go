// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/boardlab/hwtest/errors/stack"
	"github.com/boardlab/hwtest/internal/command"
)

// Code is a symbolic error code, e.g. "DEV_NOT_FOUND".
type Code string

// Codes known to every session.
const (
	CodeNonRoot        Code = "NON_ROOT"
	CodeDevNotFound    Code = "DEV_NOT_FOUND"
	CodeReNotMatch     Code = "RE_NOT_MATCH"
	CodeMissingVersion Code = "MISSING_VERSION"
	CodeOSError        Code = "OS_ERROR"
)

// unknownMessage is rendered for codes missing from a session's table.
const unknownMessage = "Unknown error"

// valueVerb marks the place where an error value is interpolated.
const valueVerb = "%s"

var baseTemplates = map[Code]string{
	CodeNonRoot:        "Non root",
	CodeDevNotFound:    "Device '%s' not found",
	CodeReNotMatch:     "Regular expression not match in string '%s'",
	CodeMissingVersion: "Missing version file",
	CodeOSError:        "OS Error '%s'",
}

// ErrorTable maps codes to message templates. It is immutable once built.
type ErrorTable struct {
	templates map[Code]string
}

// NewErrorTable returns the base table combined with a probe's own codes.
// Entries in overlay replace base entries with the same code.
func NewErrorTable(overlay map[Code]string) *ErrorTable {
	m := make(map[Code]string, len(baseTemplates)+len(overlay))
	for c, t := range baseTemplates {
		m[c] = t
	}
	for c, t := range overlay {
		m[c] = t
	}
	return &ErrorTable{templates: m}
}

// Lookup returns the template for code.
func (t *ErrorTable) Lookup(code Code) (string, bool) {
	tmpl, ok := t.templates[code]
	return tmpl, ok
}

// Render returns the human message for code. value replaces the "%s" verb
// when the template has one and is ignored otherwise.
func (t *ErrorTable) Render(code Code, value string) string {
	tmpl, ok := t.Lookup(code)
	if !ok {
		return unknownMessage
	}
	if !strings.Contains(tmpl, valueVerb) {
		return tmpl
	}
	return strings.Replace(tmpl, valueVerb, value, 1)
}

// Codes returns every code in the table, sorted.
func (t *ErrorTable) Codes() []Code {
	codes := make([]Code, 0, len(t.templates))
	for c := range t.templates {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Error is a structured probe failure. Probes return it, possibly wrapped,
// and the session renders and reports it.
type Error struct {
	Code  Code
	Value string
	stk   stack.Stack
}

// NewError returns an Error for code. value, if given, is formatted with
// fmt.Sprint and interpolated into the code's message.
func NewError(code Code, value ...interface{}) *Error {
	return &Error{Code: code, Value: fmt.Sprint(value...), stk: stack.New(1)}
}

func (e *Error) Error() string {
	if e.Value == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Value)
}

// Format supports "%+v", which appends where the error was raised.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%v", e.Error(), e.stk)
		return
	}
	io.WriteString(s, e.Error())
}

// Status returns the exit status of a session terminated with code.
func Status(code Code) int {
	switch code {
	case CodeNonRoot, CodeMissingVersion:
		return command.StatusPrecondition
	default:
		return command.StatusTestFailed
	}
}
