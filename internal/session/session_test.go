// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/testutil"
)

// fakePrintk is a LevelController keeping the level in memory.
type fakePrintk struct {
	level      string
	restoreErr error // returned by SetLevel for anything but the quiet level
	sets       []string
}

func (p *fakePrintk) Level() (string, error) { return p.level, nil }

func (p *fakePrintk) SetLevel(level string) error {
	p.sets = append(p.sets, level)
	if p.restoreErr != nil && level != quietLevel {
		return p.restoreErr
	}
	p.level = level
	return nil
}

type testEnv struct {
	dir    string
	stdout bytes.Buffer
	clk    *fakeclock.FakeClock
	printk *fakePrintk
}

// newTestEnv creates a temporary directory holding a version artifact.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		dir:    testutil.TempDir(t),
		clk:    fakeclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		printk: &fakePrintk{level: "7\t4\t1\t7"},
	}
	t.Cleanup(func() { os.RemoveAll(env.dir) })
	if err := testutil.WriteFiles(env.dir, map[string]string{"version": "1.4.2\nignored\n"}); err != nil {
		t.Fatal(err)
	}
	return env
}

// options returns Options wired to env. Callers adjust fields as needed.
func (env *testEnv) options(name string) Options {
	return Options{
		Name:        name,
		Verbosity:   1,
		LogPath:     filepath.Join(env.dir, "log.txt"),
		InfoPath:    filepath.Join(env.dir, "inf.txt"),
		VersionPath: filepath.Join(env.dir, "version"),
		Stdout:      &env.stdout,
		Clock:       env.clk,
		Printk:      env.printk,
		IsRoot:      func() bool { return true },
	}
}

func (env *testEnv) lines() []string {
	return strings.Split(strings.TrimSuffix(env.stdout.String(), "\n"), "\n")
}

func (env *testEnv) startLine(name string) string {
	return fmt.Sprintf("0000.000-%s-MSG Start test [name='%s', ver='1.4.2', ts='2026-03-01 12:00:00.000000']", name, name)
}

func TestSuccess(t *testing.T) {
	env := newTestEnv(t)
	s := New(env.options("ethernet"))

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	env.clk.Increment(1200 * time.Millisecond)
	s.Messagef("Ping %s", "192.168.1.1")
	env.clk.Increment(1300 * time.Millisecond)

	if status := s.Success(); status != command.StatusPass {
		t.Errorf("Success() = %d; want %d", status, command.StatusPass)
	}

	want := []string{
		env.startLine("ethernet"),
		"0001.200-ethernet-MSG Ping 192.168.1.1",
		"0002.500-ethernet-INF ethernet_testDuration=2.500",
		"0002.500-ethernet-OK",
	}
	if diff := cmp.Diff(env.lines(), want); diff != "" {
		t.Errorf("Output mismatch (-got +want):\n%s", diff)
	}
}

func TestErrorRendering(t *testing.T) {
	table := NewErrorTable(map[Code]string{
		"PING_FAILED":  "Ping failed",
		"IF_NOT_FOUND": "Interface '%s' not found",
	})
	for _, tc := range []struct {
		code  Code
		value string
		want  string
	}{
		{"PING_FAILED", "", "0000.000-ethernet-ERR PING_FAILED (Ping failed)"},
		{"PING_FAILED", "ignored", "0000.000-ethernet-ERR PING_FAILED (Ping failed)"},
		{"IF_NOT_FOUND", "eth0", "0000.000-ethernet-ERR IF_NOT_FOUND (Interface 'eth0' not found)"},
		{CodeNonRoot, "", "0000.000-ethernet-ERR NON_ROOT (Non root)"},
		{"NO_SUCH_CODE", "x", "0000.000-ethernet-ERR NO_SUCH_CODE (Unknown error)"},
	} {
		t.Run(string(tc.code), func(t *testing.T) {
			env := newTestEnv(t)
			opts := env.options("ethernet")
			opts.Errors = table
			s := New(opts)

			if status := s.Error(tc.code, tc.value); status == command.StatusPass {
				t.Errorf("Error(%s) = %d; want nonzero", tc.code, status)
			}
			lines := env.lines()
			want := []string{
				"0000.000-ethernet-WRN RAISE " + string(tc.code),
				"0000.000-ethernet-INF ethernet_testDuration=0.000",
				tc.want,
			}
			if diff := cmp.Diff(lines, want); diff != "" {
				t.Errorf("Output mismatch (-got +want):\n%s", diff)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	for _, tc := range []struct {
		code Code
		want int
	}{
		{CodeNonRoot, command.StatusPrecondition},
		{CodeMissingVersion, command.StatusPrecondition},
		{CodeDevNotFound, command.StatusTestFailed},
		{"NO_SUCH_CODE", command.StatusTestFailed},
	} {
		env := newTestEnv(t)
		if got := New(env.options("usb")).Error(tc.code, ""); got != tc.want {
			t.Errorf("Error(%s) = %d; want %d", tc.code, got, tc.want)
		}
	}
}

func TestTerminalOnce(t *testing.T) {
	env := newTestEnv(t)
	s := New(env.options("touch"))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}

	if status := s.Success(); status != command.StatusPass {
		t.Fatalf("Success() = %d; want %d", status, command.StatusPass)
	}
	if status := s.Error("NO_TOUCH", ""); status != command.StatusPass {
		t.Errorf("Error after Success = %d; want first outcome %d", status, command.StatusPass)
	}
	if status := s.Fail(errors.New("late")); status != command.StatusPass {
		t.Errorf("Fail after Success = %d; want first outcome %d", status, command.StatusPass)
	}
	if status := s.Success(); status != command.StatusPass {
		t.Errorf("Second Success = %d; want %d", status, command.StatusPass)
	}

	out := env.stdout.String()
	if n := strings.Count(out, "-touch-OK"); n != 1 {
		t.Errorf("Got %d OK lines; want 1:\n%s", n, out)
	}
	if strings.Contains(out, "-ERR ") || strings.Contains(out, "RAISE") {
		t.Errorf("Error path ran after Success:\n%s", out)
	}
}

func TestQuietModeRestoresLevel(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options("can")
	opts.Quiet = true
	s := New(opts)

	before := env.printk.level
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	if env.printk.level != quietLevel {
		t.Errorf("Level during session = %q; want %q", env.printk.level, quietLevel)
	}
	if err := s.Finalize(); err != nil {
		t.Fatal("Finalize failed: ", err)
	}
	if env.printk.level != before {
		t.Errorf("Level after Finalize = %q; want %q", env.printk.level, before)
	}
	// Finalize is idempotent: later calls, including the one made by
	// Success, must not write again.
	if err := s.Finalize(); err != nil {
		t.Error("Second Finalize failed: ", err)
	}
	s.Success()
	if diff := cmp.Diff(env.printk.sets, []string{quietLevel, before}); diff != "" {
		t.Errorf("SetLevel calls mismatch (-got +want):\n%s", diff)
	}
}

func TestQuietModeWithRealPrintkFile(t *testing.T) {
	env := newTestEnv(t)
	if err := testutil.WriteFiles(env.dir, map[string]string{"printk": "4\t4\t1\t7\n"}); err != nil {
		t.Fatal(err)
	}
	opts := env.options("fan")
	opts.Quiet = true
	opts.Printk = &printkFile{filepath.Join(env.dir, "printk")}
	s := New(opts)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	s.Error("FAN_STOPPED", "")
	b, err := os.ReadFile(filepath.Join(env.dir, "printk"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "4\t4\t1\t7" {
		t.Errorf("printk after Error = %q; want %q", got, "4\t4\t1\t7")
	}
}

// printkFile mirrors kernel.Printk on an arbitrary path.
type printkFile struct{ path string }

func (p *printkFile) Level() (string, error) {
	b, err := os.ReadFile(p.path)
	return strings.TrimRight(string(b), "\n"), err
}

func (p *printkFile) SetLevel(level string) error {
	return os.WriteFile(p.path, []byte(level), 0644)
}

func TestErrorSwallowsFinalizeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.printk.restoreErr = errors.New("read-only procfs")
	opts := env.options("can")
	opts.Quiet = true
	opts.Errors = NewErrorTable(map[Code]string{"TIMEOUT": "Not receive package on interface '%s'"})
	s := New(opts)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	if status := s.Error("TIMEOUT", "can0"); status != command.StatusTestFailed {
		t.Errorf("Error() = %d; want %d", status, command.StatusTestFailed)
	}
	lines := env.lines()
	if want := "0000.000-can-ERR TIMEOUT (Not receive package on interface 'can0')"; lines[len(lines)-1] != want {
		t.Errorf("Last line = %q; want %q", lines[len(lines)-1], want)
	}
}

func TestSuccessWithFinalizeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.printk.restoreErr = errors.New("read-only procfs")
	opts := env.options("usb")
	opts.Quiet = true
	s := New(opts)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	if status := s.Success(); status != command.StatusTestFailed {
		t.Errorf("Success() = %d; want %d", status, command.StatusTestFailed)
	}
	out := env.stdout.String()
	if strings.Contains(out, "-usb-OK") {
		t.Errorf("OK line printed although restore failed:\n%s", out)
	}
	if !strings.Contains(out, "-usb-ERR OS_ERROR (OS Error 'read-only procfs')") {
		t.Errorf("OS_ERROR line missing:\n%s", out)
	}
}

func TestRunPreconditions(t *testing.T) {
	for _, tc := range []struct {
		name     string
		prepare  func(env *testEnv, opts *Options)
		wantLine string
	}{
		{
			name: "missing version",
			prepare: func(env *testEnv, opts *Options) {
				opts.VersionPath = filepath.Join(env.dir, "nonexistent")
			},
			wantLine: "0000.000-sd-ERR MISSING_VERSION (Missing version file)",
		},
		{
			name: "non root",
			prepare: func(env *testEnv, opts *Options) {
				opts.IsRoot = func() bool { return false }
			},
			wantLine: "0000.000-sd-ERR NON_ROOT (Non root)",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			opts := env.options("sd")
			opts.Quiet = true
			tc.prepare(env, &opts)

			ran := false
			status := Run(context.Background(), New(opts), func(ctx context.Context, s *Session) error {
				ran = true
				return nil
			})
			if status != command.StatusPrecondition {
				t.Errorf("Run() = %d; want %d", status, command.StatusPrecondition)
			}
			if ran {
				t.Error("Body ran although a precondition failed")
			}
			if len(env.printk.sets) != 0 {
				t.Errorf("Kernel level touched before preconditions passed: %q", env.printk.sets)
			}
			lines := env.lines()
			if got := lines[len(lines)-1]; got != tc.wantLine {
				t.Errorf("Last line = %q; want %q", got, tc.wantLine)
			}
		})
	}
}

func TestRunBodyErrors(t *testing.T) {
	table := NewErrorTable(map[Code]string{"NO_TOUCH": "AR1100 HID-MOUSE not detected"})
	for _, tc := range []struct {
		name     string
		err      error
		wantLine string
	}{
		{"session error", NewError("NO_TOUCH"), "ERR NO_TOUCH (AR1100 HID-MOUSE not detected)"},
		{"wrapped", errors.Wrap(NewError(CodeDevNotFound, "/dev/input/event0"), "probe"), "ERR DEV_NOT_FOUND (Device '/dev/input/event0' not found)"},
		{"foreign", errors.New("permission denied"), "ERR OS_ERROR (OS Error 'permission denied')"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			opts := env.options("touch")
			opts.Errors = table
			status := Run(context.Background(), New(opts), func(ctx context.Context, s *Session) error {
				return tc.err
			})
			if status != command.StatusTestFailed {
				t.Errorf("Run() = %d; want %d", status, command.StatusTestFailed)
			}
			lines := env.lines()
			if got := lines[len(lines)-1]; !strings.HasSuffix(got, tc.wantLine) {
				t.Errorf("Last line = %q; want suffix %q", got, tc.wantLine)
			}
		})
	}
}

func TestRunContextLogs(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options("datetime")
	opts.Verbosity = 2
	Run(context.Background(), New(opts), func(ctx context.Context, s *Session) error {
		s.Debugf("direct")
		env.clk.Increment(time.Second)
		s.Messagef("milestone")
		return nil
	})
	want := []string{
		env.startLine("datetime"),
		"0000.000-datetime-DBG direct",
		"0001.000-datetime-MSG milestone",
		"0001.000-datetime-INF datetime_testDuration=1.000",
		"0001.000-datetime-OK",
	}
	if diff := cmp.Diff(env.lines(), want); diff != "" {
		t.Errorf("Output mismatch (-got +want):\n%s", diff)
	}
}

func TestVerbosity(t *testing.T) {
	for _, tc := range []struct {
		verbosity int
		want      []string
	}{
		{0, []string{"0000.000-fan-WRN w", "0000.000-fan-INF fan_pulses=12"}},
		{1, []string{"0000.000-fan-MSG m", "0000.000-fan-WRN w", "0000.000-fan-INF fan_pulses=12"}},
		{2, []string{"0000.000-fan-DBG d", "0000.000-fan-MSG m", "0000.000-fan-WRN w", "0000.000-fan-INF fan_pulses=12"}},
	} {
		env := newTestEnv(t)
		opts := env.options("fan")
		opts.Verbosity = tc.verbosity
		s := New(opts)
		s.Debugf("d")
		s.Messagef("m")
		s.Warningf("w")
		s.Info("pulses", 12)
		if diff := cmp.Diff(env.lines(), tc.want); diff != "" {
			t.Errorf("Verbosity %d output mismatch (-got +want):\n%s", tc.verbosity, diff)
		}
	}
}

func TestColor(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options("usb")
	opts.Color = true
	s := New(opts)
	s.Success()
	lines := env.lines()
	if want := "\x1b[96m0000.000-usb-INF usb_testDuration=0.000\x1b[0m"; lines[0] != want {
		t.Errorf("Info line = %q; want %q", lines[0], want)
	}
	if want := "\x1b[92m0000.000-usb-OK\x1b[0m"; lines[1] != want {
		t.Errorf("OK line = %q; want %q", lines[1], want)
	}
}

func TestSaveLogAndInfo(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options("ethernet")
	opts.Verbosity = 0
	opts.SaveLog = true
	opts.SaveInfo = true
	s := New(opts)

	status := Run(context.Background(), s, func(ctx context.Context, s *Session) error {
		s.Debugf("Link up")
		s.Info("MAC_address_eth0", "00:11:22:33:44:55")
		env.clk.Increment(3 * time.Second)
		return nil
	})
	if status != command.StatusPass {
		t.Fatalf("Run() = %d; want %d", status, command.StatusPass)
	}
	if s.fileLogger != nil || s.infoRec != nil {
		t.Error("Sinks still open after Success")
	}

	files, err := testutil.ReadFiles(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	wantLog := env.startLine("ethernet") + "\n" +
		"0000.000-ethernet-DBG Link up\n" +
		"0000.000-ethernet-INF ethernet_MAC_address_eth0=00:11:22:33:44:55\n" +
		"0003.000-ethernet-INF ethernet_testDuration=3.000\n" +
		"0003.000-ethernet-OK\n"
	if diff := cmp.Diff(files["log.txt"], wantLog); diff != "" {
		t.Errorf("Log file mismatch (-got +want):\n%s", diff)
	}
	wantInfo := "ethernet_MAC_address_eth0 00:11:22:33:44:55\n" +
		"ethernet_testDuration 3.000\n"
	if diff := cmp.Diff(files["inf.txt"], wantInfo); diff != "" {
		t.Errorf("Info file mismatch (-got +want):\n%s", diff)
	}

	// Only non-debug lines reach the console at verbosity 0.
	wantConsole := []string{
		"0000.000-ethernet-INF ethernet_MAC_address_eth0=00:11:22:33:44:55",
		"0003.000-ethernet-INF ethernet_testDuration=3.000",
		"0003.000-ethernet-OK",
	}
	if diff := cmp.Diff(env.lines(), wantConsole); diff != "" {
		t.Errorf("Console mismatch (-got +want):\n%s", diff)
	}
}

func TestInitializeTwice(t *testing.T) {
	env := newTestEnv(t)
	s := New(env.options("usb"))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal("Initialize failed: ", err)
	}
	if err := s.Initialize(context.Background()); err == nil {
		t.Error("Second Initialize succeeded")
	}
}

func TestFailureTraceOneLinePerMessage(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options("sd")
	opts.Verbosity = 2
	opts.SaveLog = true

	status := Run(context.Background(), New(opts), func(ctx context.Context, s *Session) error {
		return errors.Wrap(NewError(CodeDevNotFound, "/dev/sda1"), "medium check")
	})
	if status != command.StatusTestFailed {
		t.Fatalf("Run() = %d; want %d", status, command.StatusTestFailed)
	}

	files, err := testutil.ReadFiles(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	logLines := strings.Split(strings.TrimSuffix(files["log.txt"], "\n"), "\n")

	prefix := regexp.MustCompile(`^\d{4}\.\d{3}-sd-`)
	for name, lines := range map[string][]string{"console": env.lines(), "log file": logLines} {
		frames := 0
		for _, line := range lines {
			if !prefix.MatchString(line) {
				t.Errorf("%s line %q lacks the elapsed time and name prefix", name, line)
			}
			if strings.Contains(line, "-DBG   at ") {
				frames++
			}
			if strings.Contains(line, "medium check") {
				t.Errorf("%s line %q repeats the error message", name, line)
			}
		}
		if frames == 0 {
			t.Errorf("%s has no stack frame lines", name)
		}
	}
}
