// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boardlab/hwtest/testutil"
)

func TestPrintkRoundTrip(t *testing.T) {
	td := testutil.TempDir(t)
	defer os.RemoveAll(td)
	if err := testutil.WriteFiles(td, map[string]string{"printk": "7\t4\t1\t7\n"}); err != nil {
		t.Fatal(err)
	}
	p := &Printk{Path: filepath.Join(td, "printk")}

	level, err := p.Level()
	if err != nil {
		t.Fatal("Level failed: ", err)
	}
	if level != "7\t4\t1\t7" {
		t.Errorf("Level() = %q; want %q", level, "7\t4\t1\t7")
	}

	if err := p.SetLevel("0"); err != nil {
		t.Fatal("SetLevel failed: ", err)
	}
	if got, err := p.Level(); err != nil || got != "0" {
		t.Errorf("Level() after SetLevel(0) = (%q, %v); want (0, nil)", got, err)
	}
}

func TestPrintkMissing(t *testing.T) {
	td := testutil.TempDir(t)
	defer os.RemoveAll(td)
	p := &Printk{Path: filepath.Join(td, "missing", "printk")}
	if _, err := p.Level(); err == nil {
		t.Error("Level on missing file succeeded")
	}
	if err := p.SetLevel("0"); err == nil {
		t.Error("SetLevel on missing directory succeeded")
	}
}
