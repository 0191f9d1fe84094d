// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"strings"

	"github.com/boardlab/hwtest/internal/session"
)

const (
	codeNTPClientError       session.Code = "NTP_CLIENT_ERROR"
	codeStoreToHwclockFailed session.Code = "STORE_TO_HWCLOCK_FAILED"
)

var datetimeProbe = &Probe{
	Name:        "datetime",
	Description: "sync the clock over NTP and store it in the RTC",
	Errors: map[session.Code]string{
		codeNoIPAddr:             "No IP address",
		codeNTPClientError:       "NTP client error",
		codeStoreToHwclockFailed: "Store to hardware clock failed",
	},
	Params: []Param{
		{Key: "peer", Default: "pool.ntp.org", Usage: "NTP server"},
		{Key: "interface", Default: "eth0", Usage: "interface to configure via DHCP"},
	},
	run: runDatetime,
}

func runDatetime(ctx context.Context, s *session.Session, p Params, h *host) error {
	iface := p["interface"]
	peer := p["peer"]

	s.Messagef("Read hardware clock")
	if out, err := h.command(ctx, "hwclock"); err != nil {
		s.Warningf("Read from hardware clock failed")
	} else {
		s.Debugf("Hardware clock: %s", strings.TrimSpace(string(out)))
	}

	s.Messagef("Set IP address via dhcp")
	if _, err := h.net.AcquireLease(ctx, iface); err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeNoIPAddr)
	}

	s.Messagef("NTP client from %s", peer)
	if _, err := h.command(ctx, "ntpd", "-n", "-q", "-p", peer); err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeNTPClientError)
	}

	s.Messagef("Write hardware clock")
	if _, err := h.command(ctx, "hwclock", "-w"); err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeStoreToHwclockFailed)
	}
	return nil
}
