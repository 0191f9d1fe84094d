// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command contains code shared by the hwtest subcommands: exit
// statuses, flag types and signal handling.
package command

import (
	"fmt"
	"io"

	"github.com/boardlab/hwtest/errors"
)

// Exit statuses shared by probes and the scheduler. They are part of the
// contract with orchestrators and must stay stable.
const (
	// StatusPass means every check passed.
	StatusPass = 0
	// StatusPrecondition means the run could not start: not root, or the
	// version artifact is missing.
	StatusPrecondition = 1
	// StatusTestFailed means a probe failed, or the scheduler saw a failure.
	StatusTestFailed = 2
	// StatusUsage means the command line was invalid.
	StatusUsage = 64
)

// StatusError implements the error interface and contains an additional status code.
type StatusError struct {
	msg    string
	status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %v)", e.msg, e.status)
}

// Status returns e's status code.
func (e *StatusError) Status() int {
	return e.status
}

// NewStatusErrorf creates a StatusError with the passed status code and formatted string.
func NewStatusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{fmt.Sprintf(format, args...), status}
}

// WriteError writes a newline-terminated fatal error to w and returns the status code to use when exiting.
// If no *StatusError is found in err's chain, StatusTestFailed is returned.
func WriteError(w io.Writer, err error) int {
	msg := err.Error()
	status := StatusTestFailed

	var se *StatusError
	if errors.As(err, &se) {
		msg = se.msg
		status = se.status
	}

	if len(msg) > 0 && msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	io.WriteString(w, msg)

	return status
}
