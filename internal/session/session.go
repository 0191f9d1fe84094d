// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package session implements the runtime shared by hardware probes.
//
// A probe builds a Session, initializes it, narrates its progress through
// Messagef/Debugf/Warningf/Info and ends it with exactly one of Success or
// Error. Most probes hand their body to Run, which does all of that and
// returns the process exit status.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sys/unix"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/info"
	"github.com/boardlab/hwtest/internal/kernel"
	"github.com/boardlab/hwtest/internal/logging"
)

const (
	// DefaultLogPath is the log file written when log saving is enabled,
	// relative to the working directory.
	DefaultLogPath = "log.txt"
	// DefaultVersionPath is the version artifact, relative to the working
	// directory.
	DefaultVersionPath = "version"

	// quietLevel is written to the printk file while quiet mode is engaged.
	quietLevel = "0"

	startTimeLayout = "2006-01-02 15:04:05.000000"
)

// LevelController reads and writes the kernel console log level.
// *kernel.Printk implements it.
type LevelController interface {
	Level() (string, error)
	SetLevel(level string) error
}

// Options configures a Session. Zero fields take the defaults noted below.
type Options struct {
	// Name identifies the probe in every emitted line.
	Name string
	// Verbosity is 0, 1 or 2.
	Verbosity int
	// Color enables ANSI colors on the console.
	Color bool
	// Quiet silences kernel console logging while the session runs.
	Quiet bool
	// SaveLog appends every line to LogPath.
	SaveLog bool
	// SaveInfo appends Info measurements to InfoPath.
	SaveInfo bool

	LogPath     string // default DefaultLogPath
	InfoPath    string // default info.DefaultPath()
	VersionPath string // default DefaultVersionPath

	// Errors is the probe's error table. Default: base codes only.
	Errors *ErrorTable

	Stdout io.Writer       // default os.Stdout
	Clock  clock.Clock     // default real clock
	Printk LevelController // default kernel.DefaultPrintk()
	IsRoot func() bool     // default effective UID check
}

type state int

const (
	stateCreated state = iota
	stateInitialized
	stateTerminated
)

// Session is one probe's execution context.
type Session struct {
	name   string
	opts   Options
	clk    clock.Clock
	start  time.Time
	errors *ErrorTable

	logger *logging.MultiLogger

	// Sinks are opened by Initialize and closed once by the terminal method.
	fileLogger *logging.LineLogger
	infoRec    *info.Recorder

	mu           sync.Mutex // protects the fields below; Finalize runs on signal goroutines too
	state        state
	status       int
	hasBackup    bool
	printkBackup string
}

// New creates a session. The start time is read from the clock here and
// never changes.
func New(opts Options) *Session {
	if opts.LogPath == "" {
		opts.LogPath = DefaultLogPath
	}
	if opts.InfoPath == "" {
		opts.InfoPath = info.DefaultPath()
	}
	if opts.VersionPath == "" {
		opts.VersionPath = DefaultVersionPath
	}
	if opts.Errors == nil {
		opts.Errors = NewErrorTable(nil)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	if opts.Printk == nil {
		opts.Printk = kernel.DefaultPrintk()
	}
	if opts.IsRoot == nil {
		opts.IsRoot = func() bool { return unix.Geteuid() == 0 }
	}

	console := logging.NewConsoleLogger(opts.Stdout, logging.LevelForVerbosity(opts.Verbosity), opts.Color)
	return &Session{
		name:   opts.Name,
		opts:   opts,
		clk:    opts.Clock,
		start:  opts.Clock.Now(),
		errors: opts.Errors,
		logger: logging.NewMultiLogger(console),
	}
}

// Name returns the probe name.
func (s *Session) Name() string { return s.name }

// Errors returns the session's error table.
func (s *Session) Errors() *ErrorTable { return s.errors }

// Elapsed returns the time since the session was created.
func (s *Session) Elapsed() time.Duration { return s.clk.Since(s.start) }

// Initialize opens the sinks, announces the probe and checks its
// preconditions. Errors are *Error values for MISSING_VERSION and NON_ROOT.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != stateCreated {
		return errors.Errorf("session %s already initialized", s.name)
	}

	if s.opts.SaveLog {
		fl, err := logging.OpenFileLogger(logging.LevelDebug, s.opts.LogPath)
		if err != nil {
			return err
		}
		s.fileLogger = fl
		s.logger.AddLogger(fl)
	}

	ver, err := readVersion(s.opts.VersionPath)
	if err != nil {
		return err
	}
	s.Messagef("Start test [name='%s', ver='%s', ts='%s']", s.name, ver, s.clk.Now().Format(startTimeLayout))

	if !s.opts.IsRoot() {
		return NewError(CodeNonRoot)
	}

	if s.opts.Quiet {
		level, err := s.opts.Printk.Level()
		if err != nil {
			return err
		}
		if err := s.opts.Printk.SetLevel(quietLevel); err != nil {
			return err
		}
		s.mu.Lock()
		s.printkBackup = level
		s.hasBackup = true
		s.mu.Unlock()
		s.Debugf("Kernel console log level %q saved", level)
	}

	if s.opts.SaveInfo {
		rec, err := info.Open(s.opts.InfoPath)
		if err != nil {
			return err
		}
		s.infoRec = rec
	}

	s.mu.Lock()
	if s.state == stateCreated {
		s.state = stateInitialized
	}
	s.mu.Unlock()
	return nil
}

// readVersion returns the first line of the version artifact.
func readVersion(path string) (string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", NewError(CodeMissingVersion)
	} else if err != nil {
		return "", errors.Wrap(err, "failed to open version file")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", errors.Wrap(err, "failed to read version file")
		}
		return "", nil
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

// Finalize restores the kernel console log level saved by Initialize. Only
// the first call after quiet mode was engaged has an effect; the saved level
// is dropped even when restoring it fails.
func (s *Session) Finalize() error {
	s.mu.Lock()
	if !s.hasBackup {
		s.mu.Unlock()
		return nil
	}
	level := s.printkBackup
	s.hasBackup = false
	s.printkBackup = ""
	s.mu.Unlock()

	return s.opts.Printk.SetLevel(level)
}

// emit writes one "<elapsed>-<name>-<TAG> <msg>" line.
func (s *Session) emit(level logging.Level, msg string) {
	now := s.clk.Now()
	line := fmt.Sprintf("%08.3f-%s-%s %s", now.Sub(s.start).Seconds(), s.name, level.Tag(), msg)
	s.logger.Log(level, now, line)
}

// Messagef narrates a milestone. Shown at verbosity 1 and above.
func (s *Session) Messagef(format string, args ...interface{}) {
	s.emit(logging.LevelMessage, fmt.Sprintf(format, args...))
}

// Debugf traces details. Shown at verbosity 2.
func (s *Session) Debugf(format string, args ...interface{}) {
	s.emit(logging.LevelDebug, fmt.Sprintf(format, args...))
}

// Warningf reports a non-fatal anomaly. Always shown.
func (s *Session) Warningf(format string, args ...interface{}) {
	s.emit(logging.LevelWarning, fmt.Sprintf(format, args...))
}

// Info reports a measurement on the console and, if info saving is enabled,
// appends "<name>_<metric> <value>" to the info file.
func (s *Session) Info(metric string, value interface{}) {
	s.emit(logging.LevelInfo, fmt.Sprintf("%s_%s=%v", s.name, metric, value))
	if s.infoRec == nil {
		return
	}
	if err := s.infoRec.Record(s.name, metric, value); err != nil {
		s.Warningf("Failed to record %s: %v", metric, err)
	}
}

// terminate moves the session to the terminal state. It returns false if
// the session was already terminated, together with the first outcome.
func (s *Session) terminate() (first bool, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTerminated {
		return false, s.status
	}
	s.state = stateTerminated
	return true, 0
}

func (s *Session) setStatus(status int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return status
}

// Success ends a passing probe and returns command.StatusPass. If the saved
// kernel log level cannot be restored, the probe fails with OS_ERROR
// instead. Calls after the first terminal call return the first outcome.
func (s *Session) Success() int {
	if first, status := s.terminate(); !first {
		return status
	}
	if err := s.Finalize(); err != nil {
		return s.setStatus(s.report(CodeOSError, err.Error()))
	}

	d := s.Elapsed().Seconds()
	s.Info("testDuration", fmt.Sprintf("%.3f", d))
	s.logger.Log(logging.LevelSuccess, s.clk.Now(), fmt.Sprintf("%08.3f-%s-OK", d, s.name))
	s.closeSinks()
	return s.setStatus(command.StatusPass)
}

// Error ends a failing probe with code and returns its exit status. value is
// interpolated into the code's message. Calls after the first terminal call
// return the first outcome.
func (s *Session) Error(code Code, value string) int {
	if first, status := s.terminate(); !first {
		return status
	}
	return s.setStatus(s.report(code, value))
}

// Fail is Error for an arbitrary error: an *Error anywhere in err's chain is
// reported with its code and value, anything else as OS_ERROR.
func (s *Session) Fail(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Code: CodeOSError, Value: err.Error()}
	}
	if first, status := s.terminate(); !first {
		return status
	}
	s.logTrace(err)
	return s.setStatus(s.report(e.Code, e.Value))
}

// logTrace writes the stack frames recorded in err's chain as debug lines,
// one frame per line. Messages are left to the RAISE and ERR lines.
func (s *Session) logTrace(err error) {
	for _, line := range strings.Split(fmt.Sprintf("%+v", err), "\n") {
		if strings.HasPrefix(line, "\tat ") {
			s.Debugf("  %s", strings.TrimPrefix(line, "\t"))
		}
	}
}

// report prints the failure line. Finalize errors are dropped so that the
// probe's own failure is the one reported.
func (s *Session) report(code Code, value string) int {
	s.Warningf("RAISE %s", code)
	if err := s.Finalize(); err != nil {
		s.Debugf("Ignoring finalize failure: %v", err)
	}

	msg := s.errors.Render(code, value)
	d := s.Elapsed().Seconds()
	s.Info("testDuration", fmt.Sprintf("%.3f", d))
	s.logger.Log(logging.LevelError, s.clk.Now(), fmt.Sprintf("%08.3f-%s-ERR %s (%s)", d, s.name, code, msg))
	s.closeSinks()
	return Status(code)
}

func (s *Session) closeSinks() {
	if s.infoRec != nil {
		s.infoRec.Close()
		s.infoRec = nil
	}
	if s.fileLogger != nil {
		s.logger.RemoveLogger(s.fileLogger)
		s.fileLogger.Close()
		s.fileLogger = nil
	}
}
