// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the hwtest executable, used to run board probes
// one at a time or through the scheduler.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/probes"
)

// doMain parses args, runs the selected subcommand and returns the exit
// status. It's a separate function so that deferred functions run before
// os.Exit.
func doMain(args []string, stdout, stderr io.Writer) int {
	name := filepath.Base(os.Args[0])
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	a := &app{stdout: stdout, stderr: stderr, installSignalHandler: command.InstallSignalHandler}
	a.global.register(fs)
	if err := fs.Parse(args); err != nil {
		return command.StatusUsage
	}
	a.global.collect(fs)

	cfg, err := a.global.loadConfig()
	if err != nil {
		return command.WriteError(stderr, command.NewStatusErrorf(command.StatusUsage, "%s: %v", name, err))
	}
	a.cfg = cfg

	cdr := subcommands.NewCommander(fs, name)
	cdr.Output = stdout
	cdr.Error = stderr
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.FlagsCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")
	cdr.Register(newListCmd(a), "")
	cdr.Register(newRunCmd(a), "")
	for _, p := range probes.All() {
		cdr.Register(newProbeCmd(a, p), "probes")
	}

	st := cdr.Execute(context.Background())
	if a.executed {
		return a.status
	}
	if st == subcommands.ExitSuccess {
		return command.StatusPass
	}
	// subcommands reports bad command lines as ExitUsageError, which would
	// read as a test failure.
	return command.StatusUsage
}

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}
