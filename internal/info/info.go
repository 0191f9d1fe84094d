// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package info writes machine-collectible probe measurements to the shared
// info file.
//
// The file holds one "<session>_<metric> <value>" line per measurement. All
// probes of a scheduler run append to the same file; the scheduler removes it
// when a run starts.
package info

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/boardlab/hwtest/errors"
)

// FileName is the base name of the info file inside the temporary directory.
const FileName = "inf.txt"

// DefaultPath returns the well-known location of the info file.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), FileName)
}

// Recorder appends measurements to an info file.
type Recorder struct {
	path string

	mu sync.Mutex
	f  *os.File // nil once closed
}

// Open opens the info file at path for appending, creating it if needed. The
// file is world-writable so that probes run by different users share it.
func Open(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open info file %s", path)
	}
	if err := f.Chmod(0666); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to chmod info file %s", path)
	}
	return &Recorder{path: path, f: f}, nil
}

// Record appends "<session>_<metric> <value>".
func (r *Recorder) Record(session, metric string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return errors.Errorf("info file %s already closed", r.path)
	}
	if _, err := fmt.Fprintf(r.f, "%s_%s %v\n", session, metric, value); err != nil {
		return errors.Wrapf(err, "failed to write to info file %s", r.path)
	}
	return nil
}

// Close closes the file. Later calls are no-ops.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Remove deletes the info file at path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove info file %s", path)
	}
	return nil
}
