// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kernel controls the kernel console log level and reads the kernel
// ring buffer.
package kernel

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/boardlab/hwtest/errors"
)

// PrintkPath is the procfs file holding the console log levels.
const PrintkPath = "/proc/sys/kernel/printk"

// Printk reads and writes the console log level through a printk file.
type Printk struct {
	Path string
}

// DefaultPrintk returns a Printk backed by PrintkPath.
func DefaultPrintk() *Printk {
	return &Printk{Path: PrintkPath}
}

// Level returns the current content of the printk file, without trailing
// newlines. The value is opaque and meant to be passed back to SetLevel.
func (p *Printk) Level() (string, error) {
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read printk level")
	}
	line := string(b)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, "\r"), nil
}

// SetLevel writes level to the printk file.
func (p *Printk) SetLevel(level string) error {
	if err := os.WriteFile(p.Path, []byte(level), 0644); err != nil {
		return errors.Wrapf(err, "failed to set printk level to %q", level)
	}
	return nil
}

// ReadRingBuffer returns the whole kernel ring buffer, as printed by dmesg.
func ReadRingBuffer() (string, error) {
	n, err := unix.Klogctl(unix.SYSLOG_ACTION_SIZE_BUFFER, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to get kernel log buffer size")
	}
	buf := make([]byte, n)
	m, err := unix.Klogctl(unix.SYSLOG_ACTION_READ_ALL, buf)
	if err != nil {
		return "", errors.Wrap(err, "failed to read kernel log buffer")
	}
	return string(buf[:m]), nil
}
