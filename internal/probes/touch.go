// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"strings"

	"github.com/boardlab/hwtest/internal/session"
)

const codeNoTouch session.Code = "NO_TOUCH"

var touchProbe = &Probe{
	Name:        "touch",
	Description: "look for the touch controller in the kernel log",
	Errors: map[session.Code]string{
		codeNoTouch: "AR1100 HID-MOUSE not detected",
	},
	Params: []Param{
		{Key: "pattern", Default: "AR1100", Usage: "kernel log text announcing the controller"},
	},
	run: runTouch,
}

func runTouch(ctx context.Context, s *session.Session, p Params, h *host) error {
	pattern := p["pattern"]
	s.Messagef("Check touch %s HID-MOUSE", pattern)
	log, err := h.ringBuffer()
	if err != nil {
		return err
	}
	if !strings.Contains(log, pattern) {
		return session.NewError(codeNoTouch)
	}
	return nil
}
