// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/subcommands"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
	"github.com/boardlab/hwtest/internal/config"
	"github.com/boardlab/hwtest/internal/info"
	"github.com/boardlab/hwtest/internal/session"
)

// app is the state shared by the subcommands.
type app struct {
	global globalFlags
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	// installSignalHandler is replaced in tests.
	installSignalHandler func(out io.Writer, callback func(sig os.Signal))
	// isRoot overrides the scheduler's privilege check in tests.
	isRoot func() bool

	executed bool
	status   int
}

// exit records status as the process exit status and converts it for
// subcommands.
func (a *app) exit(status int) subcommands.ExitStatus {
	a.executed = true
	a.status = status
	if status == command.StatusPass {
		return subcommands.ExitSuccess
	}
	return subcommands.ExitFailure
}

// globalFlags are accepted before the subcommand name.
type globalFlags struct {
	configPath  string
	versionPath string
	infoPath    string
	logPath     string

	configSet bool
	// forward holds the flags given explicitly, to pass on to probe
	// processes started by the scheduler.
	forward []string
}

func (g *globalFlags) register(f *flag.FlagSet) {
	f.StringVar(&g.configPath, "config", config.DefaultPath, "YAML document with option defaults")
	f.StringVar(&g.versionPath, "versionfile", session.DefaultVersionPath, "version artifact")
	f.StringVar(&g.infoPath, "infofile", info.DefaultPath(), "shared info file")
	f.StringVar(&g.logPath, "logfile", session.DefaultLogPath, "log file written with -savelog=yes")
}

// collect records which flags were set after f has been parsed.
func (g *globalFlags) collect(f *flag.FlagSet) {
	g.forward = nil
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == "config" {
			g.configSet = true
		}
		g.forward = append(g.forward, fmt.Sprintf("-%s=%s", fl.Name, fl.Value.String()))
	})
}

// loadConfig reads the configuration document. The default document is
// optional; one named with -config is not.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if errors.Is(err, fs.ErrNotExist) && !g.configSet {
		return config.Default(), nil
	}
	return cfg, err
}

// commonFlags are accepted by every probe.
type commonFlags struct {
	saveInfo  bool
	saveLog   bool
	verbosity int
	color     bool
	quiet     bool
}

func (c *commonFlags) register(f *flag.FlagSet, cfg *config.Config) {
	f.Var(command.NewYesNoFlag(&c.saveInfo, cfg.SaveInfo), "saveinf", "save measurements to the info file (yes|no)")
	f.Var(command.NewYesNoFlag(&c.saveLog, cfg.SaveLog), "savelog", "save the log to the log file (yes|no)")
	f.Var(command.NewVerbosityFlag(&c.verbosity, cfg.Verbosity), "v", "verbosity (0|1|2)")
	f.Var(command.NewYesNoFlag(&c.color, cfg.Colorize), "color", "colorize the output (yes|no)")
	f.Var(command.NewYesNoFlag(&c.quiet, cfg.Quiet), "q", "silence kernel console messages while testing (yes|no)")
}

// value returns the command-line spelling of the common flag name.
func (c *commonFlags) value(name string) (string, bool) {
	switch name {
	case "saveinf":
		return command.FormatYesNo(c.saveInfo), true
	case "savelog":
		return command.FormatYesNo(c.saveLog), true
	case "v":
		return fmt.Sprint(c.verbosity), true
	case "color":
		return command.FormatYesNo(c.color), true
	case "q":
		return command.FormatYesNo(c.quiet), true
	}
	return "", false
}

// forwarded returns the common flags explicitly set on f, sorted by name.
func (c *commonFlags) forwarded(f *flag.FlagSet) []string {
	var args []string
	f.Visit(func(fl *flag.Flag) {
		if v, ok := c.value(fl.Name); ok {
			args = append(args, fmt.Sprintf("-%s=%s", fl.Name, v))
		}
	})
	return args
}
