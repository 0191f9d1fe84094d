// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session

import (
	"context"

	"github.com/boardlab/hwtest/internal/logging"
)

// Body is the hardware check of a probe. It returns nil on success, or an
// error, typically an *Error, describing the failure.
type Body func(ctx context.Context, s *Session) error

// Run initializes s, runs body and terminates s according to the outcome. It
// returns the exit status for the process.
//
// The context passed to body carries a logging sink writing to the session's
// debug stream, so helpers can call logging.ContextLogf.
func Run(ctx context.Context, s *Session, body Body) int {
	if err := s.Initialize(ctx); err != nil {
		return s.Fail(err)
	}
	ctx = logging.NewContext(ctx, func(msg string) {
		s.emit(logging.LevelDebug, msg)
	})
	if err := body(ctx, s); err != nil {
		return s.Fail(err)
	}
	return s.Success()
}
