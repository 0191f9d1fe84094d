// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// InstallSignalHandler arranges for SIGINT and SIGTERM to run callback, stop
// the process's children with SIGTERM and exit with StatusTestFailed.
// Messages go to out, typically stderr.
//
// A probe killed this way reports no final line; its callback restores the
// kernel console level. A probe stopped by the scheduler's handler does the
// same through its own handler.
func InstallSignalHandler(out io.Writer, callback func(sig os.Signal)) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	go func() {
		sig := <-ch
		signal.Stop(ch)
		fmt.Fprintf(out, "\n%s: Caught %v signal; exiting\n", filepath.Base(os.Args[0]), sig)
		callback(sig)
		for _, p := range children(out, int32(os.Getpid())) {
			if err := p.Terminate(); err != nil {
				fmt.Fprintf(out, "Failed to stop process %d: %v\n", p.Pid, err)
			}
		}
		os.Exit(StatusTestFailed)
	}()
}

// children returns the direct children of pid.
func children(out io.Writer, pid int32) []*process.Process {
	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "Failed to list processes: %v\n", err)
		return nil
	}
	var cs []*process.Process
	for _, p := range procs {
		if ppid, err := p.Ppid(); err == nil && ppid == pid {
			cs = append(cs, p)
		}
	}
	return cs
}
