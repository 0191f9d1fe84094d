// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/probes"
	"github.com/boardlab/hwtest/internal/scheduler"
)

// runCmd implements subcommands.Command to run probes through the scheduler.
type runCmd struct {
	app         *app
	count       int
	nostop      bool
	abort       scheduler.AbortScope
	timeout     int // seconds; 0 for none
	metricsPath string
	common      commonFlags

	// newRunner is replaced in tests.
	newRunner func(timeout time.Duration) scheduler.Runner
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd(a *app) *runCmd {
	return &runCmd{
		app: a,
		newRunner: func(timeout time.Duration) scheduler.Runner {
			return &scheduler.ExecRunner{Stdout: a.stdout, Stderr: a.stderr, Timeout: timeout}
		},
	}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run probes repeatedly" }
func (*runCmd) Usage() string {
	return `Usage: run [flag]... [probe|all]...

Description:
    Runs the probes in the given order, as separate processes, for -c
    iterations. "all" runs every probe in canonical order; no probe at all
    means "all". A report with the failures so far is printed after each
    iteration. The info file is removed first.

    Without -nostop the first failure aborts: the whole run with
    -abort=run, the rest of the iteration with -abort=iteration.

    Exits with 0 if every probe passed, 1 if not run as root, 2 if a probe
    failed and 64 for an invalid command line. Probe flags given here are
    passed on to every probe.

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.count, "c", 1, "number of iterations")
	f.BoolVar(&r.nostop, "nostop", false, "continue after a failure")
	abort := command.NewEnumFlag(map[string]int{
		"run":       int(scheduler.AbortRun),
		"iteration": int(scheduler.AbortIteration),
	}, func(v int) { r.abort = scheduler.AbortScope(v) }, "run")
	f.Var(abort, "abort", fmt.Sprintf("what a failure aborts without -nostop (%s; default %q)", abort.QuotedValues(), abort.Default()))
	f.IntVar(&r.timeout, "timeout", 0, "per-probe timeout in seconds; 0 for none")
	f.StringVar(&r.metricsPath, "metrics", "", "Prometheus text file updated after each iteration")
	r.common.register(f, r.app.cfg)
}

// registry returns the probe registry. Each probe runs as "<self> <global
// flags> <probe> <forwarded probe flags>".
func (r *runCmd) registry(f *flag.FlagSet) (*scheduler.Registry, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	forwarded := r.common.forwarded(f)
	var descs []scheduler.Descriptor
	for _, p := range probes.All() {
		args := append([]string(nil), r.app.global.forward...)
		args = append(args, p.Name)
		args = append(args, forwarded...)
		descs = append(descs, scheduler.Descriptor{Name: p.Name, Path: exe, Args: args})
	}
	return scheduler.NewRegistry(descs...)
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if r.count < 1 {
		fmt.Fprintf(r.app.stderr, "Invalid iteration count %d\n\n%s", r.count, r.Usage())
		return r.app.exit(command.StatusUsage)
	}

	reg, err := r.registry(f)
	if err != nil {
		return r.app.exit(command.WriteError(r.app.stderr, err))
	}
	sched, err := scheduler.New(scheduler.Config{
		Tests:       f.Args(),
		Count:       r.count,
		Continue:    r.nostop,
		Abort:       r.abort,
		InfoPath:    r.app.global.infoPath,
		MetricsPath: r.metricsPath,
		Stdout:      r.app.stdout,
		IsRoot:      r.app.isRoot,
	}, reg, r.newRunner(time.Duration(r.timeout)*time.Second))
	if err != nil {
		return r.app.exit(command.WriteError(r.app.stderr, err))
	}

	var st *term.State
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if st, err = term.GetState(fd); err != nil {
			fmt.Fprintf(r.app.stderr, "Failed to get terminal state: %v\n", err)
		}
	}
	r.app.installSignalHandler(r.app.stderr, func(os.Signal) {
		if st != nil {
			term.Restore(fd, st)
		}
	})

	if err := sched.Run(ctx); err != nil {
		fmt.Fprint(r.app.stderr, "run: error: ")
		return r.app.exit(command.WriteError(r.app.stderr, err))
	}
	return r.app.exit(command.StatusPass)
}
