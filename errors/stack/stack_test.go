// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stack

import (
	"regexp"
	"strings"
	"testing"
)

func capture(depth int) Stack {
	if depth == 0 {
		return New(0)
	}
	return capture(depth - 1)
}

func TestInnermostFrame(t *testing.T) {
	frames := New(0).Frames()
	if len(frames) == 0 {
		t.Fatal("New(0) recorded no frames")
	}
	re := regexp.MustCompile(`^github\.com/boardlab/hwtest/errors/stack\.TestInnermostFrame \(stack_test\.go:\d+\)$`)
	if !re.MatchString(frames[0]) {
		t.Errorf("Innermost frame %q; should match %q", frames[0], re)
	}
}

func TestTruncated(t *testing.T) {
	s := capture(maxDepth * 2)
	if n := len(s.Frames()); n != maxDepth {
		t.Errorf("Frames() returned %d entries; want %d", n, maxDepth)
	}
	str := s.String()
	if !strings.HasSuffix(str, "\n"+ellipsis) {
		t.Errorf("String() = %q; want trailing ellipsis", str)
	}
	if !strings.HasPrefix(str, "\tat github.com/boardlab/hwtest/errors/stack.capture") {
		t.Errorf("String() = %q; want innermost frame in capture", str)
	}
}
