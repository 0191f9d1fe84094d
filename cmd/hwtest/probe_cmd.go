// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/probes"
	"github.com/boardlab/hwtest/internal/session"
)

// probeCmd implements subcommands.Command to run a single probe.
type probeCmd struct {
	app    *app
	probe  *probes.Probe
	common commonFlags
	values map[string]*string // probe options by key
}

var _ = subcommands.Command(&probeCmd{})

func newProbeCmd(a *app, p *probes.Probe) *probeCmd {
	return &probeCmd{app: a, probe: p, values: make(map[string]*string)}
}

func (c *probeCmd) Name() string     { return c.probe.Name }
func (c *probeCmd) Synopsis() string { return c.probe.Description }
func (c *probeCmd) Usage() string {
	var codes []string
	for _, code := range c.probe.Codes() {
		codes = append(codes, string(code))
	}
	return fmt.Sprintf(`Usage: %s [flag]...

Description:
    Checks the board: %s.
    Prints one "-OK" or "-ERR <code> (<message>)" line at the end and exits
    with 0 on success, 1 if not run as root or the version file is missing,
    and 2 on failure.

Error codes:
    %s

Flag:
`, c.probe.Name, c.probe.Description, strings.Join(codes, ", "))
}

func (c *probeCmd) SetFlags(f *flag.FlagSet) {
	cfg := c.app.cfg
	c.common.register(f, cfg)
	for _, pr := range c.probe.Params {
		v := new(string)
		c.values[pr.Key] = v
		f.StringVar(v, pr.Key, cfg.Get(c.probe.Name, pr.Key, pr.Default), pr.Usage)
	}
}

// params returns the probe options after flag parsing.
func (c *probeCmd) params() probes.Params {
	ps := make(probes.Params, len(c.values))
	for k, v := range c.values {
		ps[k] = *v
	}
	return ps
}

func (c *probeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fmt.Fprintf(c.app.stderr, "Unexpected arguments %q\n\n%s", f.Args(), c.Usage())
		return c.app.exit(command.StatusUsage)
	}

	g := c.app.global
	s := session.New(session.Options{
		Name:        c.probe.Name,
		Verbosity:   c.common.verbosity,
		Color:       c.common.color,
		Quiet:       c.common.quiet,
		SaveLog:     c.common.saveLog,
		SaveInfo:    c.common.saveInfo,
		LogPath:     g.logPath,
		InfoPath:    g.infoPath,
		VersionPath: g.versionPath,
		Errors:      c.probe.ErrorTable(),
		Stdout:      c.app.stdout,
	})
	c.app.installSignalHandler(c.app.stderr, func(os.Signal) {
		if err := s.Finalize(); err != nil {
			fmt.Fprintf(c.app.stderr, "Failed to restore kernel log level: %v\n", err)
		}
	})
	return c.app.exit(session.Run(ctx, s, c.probe.Body(c.params())))
}
