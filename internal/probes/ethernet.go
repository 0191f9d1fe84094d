// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"fmt"

	"github.com/boardlab/hwtest/internal/session"
)

const (
	codeIfNotFound session.Code = "IF_NOT_FOUND"
	codeNoIPAddr   session.Code = "NO_IP_ADDR"
	codePingFailed session.Code = "PING_FAILED"

	pingCount = 3

	ipPattern  = `inet ([0-9]+\.[0-9]+\.[0-9]+\.[0-9]+)`
	macPattern = `link/ether ([0-9A-Fa-f]{2}(?::[0-9A-Fa-f]{2}){5})`
)

var ethernetProbe = &Probe{
	Name:        "ethernet",
	Description: "get a DHCP lease and ping a target",
	Errors: map[session.Code]string{
		codeIfNotFound: "Interface '%s' not found",
		codeNoIPAddr:   "No IP address",
		codePingFailed: "Ping failed",
	},
	Params: []Param{
		{Key: "target", Default: "192.168.1.1", Usage: "IP address to ping"},
		{Key: "interface", Default: "eth0", Usage: "network interface to test"},
	},
	run: runEthernet,
}

func runEthernet(ctx context.Context, s *session.Session, p Params, h *host) error {
	iface := p["interface"]
	target := p["target"]

	s.Messagef("Check interface '%s'", iface)
	if err := h.net.CheckLink(ctx, iface); err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeIfNotFound, iface)
	}

	s.Messagef("Set IP address via dhcp")
	if _, err := h.net.AcquireLease(ctx, iface); err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeNoIPAddr)
	}

	out, err := h.command(ctx, "ip", "address", "show", iface)
	if err != nil {
		return session.NewError(codeIfNotFound, iface)
	}

	s.Messagef("Get IP address '%s'", iface)
	ip, err := s.MatchPattern(string(out), ipPattern)
	if err != nil {
		return err
	}
	s.Messagef("IP address '%s': %s", iface, ip)

	s.Messagef("Get MAC address '%s'", iface)
	mac, err := s.MatchPattern(string(out), macPattern)
	if err != nil {
		return err
	}
	s.Info("MAC_address_"+iface, mac)

	if speed, err := h.net.LinkSpeed(iface); err != nil {
		s.Warningf("Link speed of '%s' unavailable: %v", iface, err)
	} else {
		s.Info("link_speed_"+iface, speed)
	}

	s.Messagef("Ping %s", target)
	st, err := h.net.Ping(ctx, target, pingCount)
	if err != nil {
		s.Debugf("%v", err)
		return session.NewError(codePingFailed)
	}
	s.Debugf("Ping %s: %d/%d received, avg %v", target, st.Received, st.Sent, st.AvgRTT)
	if st.Received == 0 {
		return session.NewError(codePingFailed)
	}
	s.Info("packet_loss", fmt.Sprintf("%.1f", st.Loss))
	return nil
}
