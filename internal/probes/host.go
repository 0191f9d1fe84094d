// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"os/exec"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/kernel"
	"github.com/boardlab/hwtest/internal/logging"
	"github.com/boardlab/hwtest/shutil"
)

// commandFunc runs an external program and returns its combined output.
type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// host is everything a probe touches on the board.
type host struct {
	command    commandFunc
	net        network
	ringBuffer func() (string, error)
	dialCAN    func(iface string) (canConn, error)
	clock      clock.Clock

	gpioRoot    string // sysfs GPIO class directory
	diskByLabel string // directory of by-label device links
	mountsPath  string // mount table

	mediaTimeout time.Duration // how long to wait for a labeled device
}

func defaultHost() *host {
	return &host{
		command:     execCommand,
		net:         hostNetwork{},
		ringBuffer:  kernel.ReadRingBuffer,
		dialCAN:     dialRawCAN,
		clock:       clock.NewClock(),
		gpioRoot:    "/sys/class/gpio",
		diskByLabel: "/dev/disk/by-label",
		mountsPath:  "/proc/mounts",

		mediaTimeout: defaultMediaTimeout,
	}
}

// execCommand runs name and logs the command line to the context's sink.
func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := shutil.Command(name, args...)
	logging.ContextLog(ctx, "Running ", line)
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, errors.Wrapf(err, "%s failed", line)
	}
	return out, nil
}
