// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/probes"
)

// listCmd implements subcommands.Command to support listing probes.
type listCmd struct {
	app     *app
	details bool // print options and error codes too
}

var _ = subcommands.Command(&listCmd{})

func newListCmd(a *app) *listCmd {
	return &listCmd{app: a}
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list probes" }
func (*listCmd) Usage() string {
	return `Usage: list [flag]...

Description:
    Lists the probes in the order "run all" executes them.

Flag:
`
}

func (lc *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&lc.details, "l", false, "also print options with their effective defaults and error codes")
}

func (lc *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fmt.Fprint(lc.app.stderr, lc.Usage())
		return lc.app.exit(command.StatusUsage)
	}
	if err := lc.printProbes(lc.app.stdout); err != nil {
		return lc.app.exit(command.WriteError(lc.app.stderr, err))
	}
	return lc.app.exit(command.StatusPass)
}

// printProbes writes one line per probe to w, followed by its details if
// requested.
func (lc *listCmd) printProbes(w io.Writer) error {
	for _, p := range probes.All() {
		if _, err := fmt.Fprintf(w, "%-10s %s\n", p.Name, p.Description); err != nil {
			return err
		}
		if !lc.details {
			continue
		}
		for _, pr := range p.Params {
			fmt.Fprintf(w, "    -%s=%s\n", pr.Key, lc.app.cfg.Get(p.Name, pr.Key, pr.Default))
		}
		table := p.ErrorTable()
		for _, c := range p.Codes() {
			tmpl, _ := table.Lookup(c)
			fmt.Fprintf(w, "    %s: %s\n", c, tmpl)
		}
	}
	return nil
}
