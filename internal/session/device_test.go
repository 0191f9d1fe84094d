// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/testutil"
)

func TestWaitForDeviceTimeout(t *testing.T) {
	s := New(Options{Name: "sd", Stdout: io.Discard})

	start := time.Now()
	err := s.WaitForDevice(context.Background(), "/dev/doesnotexist", time.Second)
	elapsed := time.Since(start)

	var e *Error
	if !errors.As(err, &e) || e.Code != CodeDevNotFound {
		t.Fatalf("WaitForDevice = %v; want DEV_NOT_FOUND", err)
	}
	if e.Value != "/dev/doesnotexist" {
		t.Errorf("Error value = %q; want %q", e.Value, "/dev/doesnotexist")
	}
	if elapsed < time.Second || elapsed > 3*time.Second {
		t.Errorf("WaitForDevice returned after %v; want between 1s and 3s", elapsed)
	}
}

func TestWaitForDeviceAppears(t *testing.T) {
	dir := testutil.TempDir(t)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "sda1")

	s := New(Options{Name: "usb", Stdout: io.Discard})
	go func() {
		time.Sleep(300 * time.Millisecond)
		os.WriteFile(path, nil, 0644)
	}()
	if err := s.WaitForDevice(context.Background(), path, 5*time.Second); err != nil {
		t.Error("WaitForDevice failed: ", err)
	}
}

func TestWaitForDeviceExisting(t *testing.T) {
	dir := testutil.TempDir(t)
	defer os.RemoveAll(dir)

	s := New(Options{Name: "usb", Stdout: io.Discard})
	if err := s.WaitForDevice(context.Background(), dir, 0); err != nil {
		t.Error("WaitForDevice failed on existing path: ", err)
	}
}

func TestWaitForDeviceCancel(t *testing.T) {
	s := New(Options{Name: "usb", Stdout: io.Discard})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WaitForDevice(ctx, "/dev/doesnotexist", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForDevice = %v; want context.Canceled", err)
	}
}

func TestMatchPattern(t *testing.T) {
	s := New(Options{Name: "ethernet", Stdout: io.Discard})

	got, err := s.MatchPattern("link/ether 00:11:22:33:44:55 brd ff:ff:ff:ff:ff:ff", `link/ether ([0-9a-f:]+)`)
	if err != nil {
		t.Fatal("MatchPattern failed: ", err)
	}
	if want := "00:11:22:33:44:55"; got != want {
		t.Errorf("MatchPattern = %q; want %q", got, want)
	}

	_, err = s.MatchPattern("no digits here", `(\d+)`)
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeReNotMatch {
		t.Fatalf("MatchPattern = %v; want RE_NOT_MATCH", err)
	}
	if e.Value != "no digits here" {
		t.Errorf("Error value = %q; want %q", e.Value, "no digits here")
	}
	if got, want := s.Errors().Render(e.Code, e.Value), "Regular expression not match in string 'no digits here'"; got != want {
		t.Errorf("Rendered = %q; want %q", got, want)
	}
}

func TestMatchPatternBadPattern(t *testing.T) {
	s := New(Options{Name: "ethernet", Stdout: io.Discard})
	for _, pattern := range []string{`(unclosed`, `\d+`} {
		_, err := s.MatchPattern("123", pattern)
		if err == nil {
			t.Errorf("MatchPattern(%q) succeeded", pattern)
			continue
		}
		var e *Error
		if errors.As(err, &e) {
			t.Errorf("MatchPattern(%q) = %v; want a non-session error", pattern, err)
		}
	}
}

