// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errors constructs errors that remember where they were created.
//
// Use this package instead of the standard errors package or fmt.Errorf in
// probes and the harness itself:
//
//	errors.New("interface has no carrier")
//	errors.Errorf("gpio %d is not exported", n)
//	errors.Wrap(err, "failed to read printk level")
//	errors.Wrapf(err, "failed to open %s", path)
//
// Formatting an error with "%+v" prints the whole chain with the location of
// every link, which is what a session writes to its debug stream before
// reporting a failure.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/boardlab/hwtest/errors/stack"
)

// impl is the error implementation used by this package.
type impl struct {
	msg   string      // prepended to cause
	stk   stack.Stack // where the error was created
	cause error       // wrapped error, may be nil
}

func (e *impl) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
}

// Unwrap returns the wrapped error so that Is and As see through e.
func (e *impl) Unwrap() error {
	return e.cause
}

// Format supports "%+v", which prints the error chain with stack traces.
func (e *impl) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, formatChain(e))
	} else {
		io.WriteString(s, e.Error())
	}
}

func formatChain(err error) string {
	var chain []string
	for err != nil {
		e, ok := err.(*impl)
		if !ok {
			if f, ok := err.(fmt.Formatter); ok {
				chain = append(chain, fmt.Sprintf("%+v", f))
			} else {
				chain = append(chain, fmt.Sprintf("%s\n\tat ???", err.Error()))
			}
			break
		}
		chain = append(chain, fmt.Sprintf("%s\n%v", e.msg, e.stk))
		err = e.cause
	}
	return strings.Join(chain, "\n")
}

// New creates an error with msg, recording the caller's location.
func New(msg string) error {
	return &impl{msg, stack.New(1), nil}
}

// Errorf is like New with fmt.Sprintf formatting.
func Errorf(format string, args ...interface{}) error {
	return &impl{fmt.Sprintf(format, args...), stack.New(1), nil}
}

// Wrap creates an error with msg wrapping cause. If cause is nil, this is the
// same as New.
func Wrap(cause error, msg string) error {
	return &impl{msg, stack.New(1), cause}
}

// Wrapf is like Wrap with fmt.Sprintf formatting.
func Wrapf(cause error, format string, args ...interface{}) error {
	return &impl{fmt.Sprintf(format, args...), stack.New(1), cause}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Unwrap returns the error wrapped by err, or nil.
func Unwrap(err error) error { return stderrors.Unwrap(err) }
