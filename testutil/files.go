// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testutil provides support code for unit tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempDir creates a directory named after the running test, e.g.
// "hwtest_TestFoo_sub.123456", and returns its path. The directory and its
// contents are removed when the test finishes. Failure to create it is fatal.
func TempDir(t *testing.T) string {
	t.Helper()
	prefix := "hwtest_" + strings.ReplaceAll(t.Name(), "/", "_") + "."
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatal("Failed to create temporary directory: ", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// WriteFiles populates dir with files, keyed by slash-separated paths
// relative to dir. Missing parent directories are created.
func WriteFiles(dir string, files map[string]string) error {
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// ReadFiles returns the contents of the regular files under dir, keyed the
// way WriteFiles takes them. Symlinks and other special files are skipped.
func ReadFiles(dir string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	return files, err
}
