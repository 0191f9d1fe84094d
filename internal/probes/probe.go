// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package probes contains the hardware checks run by hwtest.
//
// Each Probe declares its own error codes and options and runs as the body
// of a session.Session. Probes reach the board only through a host value,
// so that tests can substitute files, commands and sockets.
package probes

import (
	"context"
	"sort"

	"github.com/boardlab/hwtest/internal/session"
)

// Param describes a probe option.
type Param struct {
	// Key is the flag and configuration key, e.g. "target".
	Key string
	// Default is used when neither the command line nor the configuration
	// document sets the option.
	Default string
	// Usage is the flag help text.
	Usage string
}

// Params holds option values keyed by Param.Key.
type Params map[string]string

// Probe is a hardware check.
type Probe struct {
	// Name is the subcommand name and the session name.
	Name string
	// Description is a one-line summary.
	Description string
	// Errors are the probe's codes on top of the base table.
	Errors map[session.Code]string
	// Params lists the options the probe accepts.
	Params []Param

	run func(ctx context.Context, s *session.Session, p Params, h *host) error
}

// ErrorTable returns the probe's complete error table.
func (p *Probe) ErrorTable() *session.ErrorTable {
	return session.NewErrorTable(p.Errors)
}

// Defaults returns every option set to its default.
func (p *Probe) Defaults() Params {
	ps := make(Params, len(p.Params))
	for _, pr := range p.Params {
		ps[pr.Key] = pr.Default
	}
	return ps
}

// Body returns the session body checking the real board with params.
// Options missing from params take their defaults.
func (p *Probe) Body(params Params) session.Body {
	return p.body(params, defaultHost())
}

func (p *Probe) body(params Params, h *host) session.Body {
	ps := p.Defaults()
	for k, v := range params {
		ps[k] = v
	}
	return func(ctx context.Context, s *session.Session) error {
		return p.run(ctx, s, ps, h)
	}
}

// All returns every probe in canonical order.
func All() []*Probe {
	return []*Probe{
		datetimeProbe,
		ethernetProbe,
		fanProbe,
		sdProbe,
		touchProbe,
		usbProbe,
		canProbe,
	}
}

// Lookup returns the probe called name.
func Lookup(name string) (*Probe, bool) {
	for _, p := range All() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Codes returns the probe's own error codes, sorted.
func (p *Probe) Codes() []session.Code {
	var cs []session.Code
	for c := range p.Errors {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	return cs
}
