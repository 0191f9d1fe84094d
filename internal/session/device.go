// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/boardlab/hwtest/errors"
)

// devicePollInterval is how often WaitForDevice checks for the path.
const devicePollInterval = 100 * time.Millisecond

// WaitForDevice blocks until path exists. It fails with DEV_NOT_FOUND once
// timeout has elapsed on the session clock.
func (s *Session) WaitForDevice(ctx context.Context, path string, timeout time.Duration) error {
	start := s.clk.Now()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if s.clk.Since(start) > timeout {
			return NewError(CodeDevNotFound, path)
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "stopped waiting for %s", path)
		case <-s.clk.After(devicePollInterval):
		}
	}
}

// MatchPattern returns the first capture group of the first match of pattern
// in text. It fails with RE_NOT_MATCH carrying text if pattern does not match.
func (s *Session) MatchPattern(text, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", errors.Wrapf(err, "bad pattern %q", pattern)
	}
	if re.NumSubexp() == 0 {
		return "", errors.Errorf("pattern %q has no capture group", pattern)
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", NewError(CodeReNotMatch, text)
	}
	return m[1], nil
}
