// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scheduler runs probes as separate processes over several
// iterations and keeps a tally of their failures.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/info"
)

const separator = "------------------------------"

// AbortScope selects what a probe failure aborts when Continue is unset.
type AbortScope int

const (
	// AbortRun ends the whole run at the first failure.
	AbortRun AbortScope = iota
	// AbortIteration skips the rest of the current iteration, reports it and
	// goes on with the next one.
	AbortIteration
)

// Runner starts a probe process and waits for it.
type Runner interface {
	// Run returns the exit status of the probe. An error means the probe
	// could not be run at all.
	Run(ctx context.Context, d Descriptor) (int, error)
}

// Config describes one scheduler run.
type Config struct {
	// Tests are probe names or All, run in this order every iteration. An
	// empty list means All.
	Tests []string
	// Count is the number of iterations; values below 1 mean 1.
	Count int
	// Continue keeps going after a probe failure.
	Continue bool
	// Abort is consulted when Continue is false.
	Abort AbortScope
	// InfoPath is the shared info file removed when the run starts.
	// Defaults to info.DefaultPath().
	InfoPath string
	// MetricsPath, if non-empty, receives Prometheus metrics after every
	// iteration.
	MetricsPath string

	Stdout io.Writer   // default os.Stdout
	IsRoot func() bool // default effective UID check
}

// Tally maps a probe name to its number of failed runs. Probes that never
// failed are absent.
type Tally map[string]int

// Scheduler executes a Config. It is used for a single run.
type Scheduler struct {
	cfg     Config
	reg     *Registry
	runner  Runner
	metrics *Metrics
	tally   Tally
}

var errProbeFailed = errors.New("probe failed")

// New validates cfg against reg and returns a scheduler that starts probes
// with runner.
func New(cfg Config, reg *Registry, runner Runner) (*Scheduler, error) {
	if len(cfg.Tests) == 0 {
		cfg.Tests = []string{All}
	}
	if err := reg.Validate(cfg.Tests); err != nil {
		return nil, err
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	if cfg.InfoPath == "" {
		cfg.InfoPath = info.DefaultPath()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.IsRoot == nil {
		cfg.IsRoot = func() bool { return unix.Geteuid() == 0 }
	}
	return &Scheduler{
		cfg:     cfg,
		reg:     reg,
		runner:  runner,
		metrics: NewMetrics(cfg.MetricsPath),
		tally:   make(Tally),
	}, nil
}

// Tally returns a copy of the failures observed so far.
func (s *Scheduler) Tally() Tally {
	t := make(Tally, len(s.tally))
	for k, v := range s.tally {
		t[k] = v
	}
	return t
}

// Run runs every iteration. It returns nil only if every probe passed every
// time; otherwise the error is a *command.StatusError.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.IsRoot() {
		return command.NewStatusErrorf(command.StatusPrecondition, "Non root")
	}
	if err := info.Remove(s.cfg.InfoPath); err != nil {
		return err
	}

	for i := 1; i <= s.cfg.Count; i++ {
		for _, name := range s.cfg.Tests {
			err := s.start(ctx, i, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, errProbeFailed) {
				return err
			}
			if s.cfg.Abort == AbortRun {
				s.writeMetrics()
				return command.NewStatusErrorf(command.StatusTestFailed, "Test failed")
			}
			break
		}
		s.metrics.IterationDone()
		s.writeMetrics()
		s.report(i)
	}

	if len(s.tally) > 0 {
		return command.NewStatusErrorf(command.StatusTestFailed, "Test failed")
	}
	return nil
}

// start runs name, expanding All in canonical order. It returns
// errProbeFailed if a probe failed and the run must not continue.
func (s *Scheduler) start(ctx context.Context, i int, name string) error {
	if name == All {
		for _, n := range s.reg.names {
			if err := s.start(ctx, i, n); err != nil {
				return err
			}
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "scheduler interrupted")
	}

	fmt.Fprintf(s.cfg.Stdout, "%s\n %d/%d - %s\n%s\n", separator, i, s.cfg.Count, name, separator)
	d, _ := s.reg.Lookup(name)
	status, err := s.runner.Run(ctx, d)
	if err != nil {
		fmt.Fprintf(s.cfg.Stdout, "Failed to run %s: %v\n", name, err)
		status = command.StatusTestFailed
	}

	failed := status != command.StatusPass
	s.metrics.ObserveRun(name, failed)
	if !failed {
		return nil
	}
	s.tally[name]++
	if s.cfg.Continue {
		return nil
	}
	return errProbeFailed
}

func (s *Scheduler) report(i int) {
	fmt.Fprintf(s.cfg.Stdout, "%s\n   Report %d\n%s\nTests failed: %s\n", separator, i, separator, s.formatTally())
}

// formatTally renders the tally in canonical probe order, e.g.
// "{touch: 1, usb: 2}".
func (s *Scheduler) formatTally() string {
	var parts []string
	for _, n := range s.reg.names {
		if c, ok := s.tally[n]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", n, c))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *Scheduler) writeMetrics() {
	if err := s.metrics.Write(); err != nil {
		fmt.Fprintf(s.cfg.Stdout, "Failed to write metrics: %v\n", err)
	}
}
