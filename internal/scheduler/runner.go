// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/shutil"
)

// killDelay is how long a timed-out probe gets to handle SIGTERM before it
// is killed.
const killDelay = 5 * time.Second

// ExecRunner runs probes as child processes sharing the scheduler's
// standard streams.
type ExecRunner struct {
	Stdout io.Writer // default os.Stdout
	Stderr io.Writer // default os.Stderr
	// Timeout bounds each probe run. Zero means no bound.
	Timeout time.Duration
}

var _ Runner = (*ExecRunner)(nil)

// Run implements Runner. A probe exceeding the timeout receives SIGTERM so
// that it can restore system state, and is reported as failed.
func (r *ExecRunner) Run(ctx context.Context, d Descriptor) (int, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.Path, d.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killDelay

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		fmt.Fprintf(cmd.Stdout, "Probe %s timed out after %v\n", d.Name, r.Timeout)
		return command.StatusTestFailed, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Killed by a signal.
		return command.StatusTestFailed, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to run %s", shutil.Command(d.Path, d.Args...))
	}
	return command.StatusPass, nil
}
