// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config reads the YAML document supplying default option values for
// the common probe flags and for each probe.
//
// A document looks like:
//
//	saveinf: false
//	savelog: false
//	verbosity: 2
//	colorize: true
//	quiet: false
//	ethernet:
//	  target: 192.168.1.1
//	usb:
//	  labela: USBA
//	  labelb: USBB
//
// Every top-level key other than the common options names a probe section of
// string values.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/boardlab/hwtest/errors"
)

// DefaultPath is the document read when no -config flag is given, relative to
// the working directory.
const DefaultPath = "config.yaml"

// Config holds the parsed document.
type Config struct {
	SaveInfo  bool `yaml:"saveinf"`
	SaveLog   bool `yaml:"savelog"`
	Verbosity int  `yaml:"verbosity"`
	Colorize  bool `yaml:"colorize"`
	Quiet     bool `yaml:"quiet"`

	// Probes maps a probe name to its option defaults.
	Probes map[string]map[string]string `yaml:",inline"`
}

// Default returns the built-in defaults, used when no document exists.
func Default() *Config {
	return &Config{
		Verbosity: 2,
		Colorize:  true,
		Probes:    make(map[string]map[string]string),
	}
}

// Parse parses a document, starting from the built-in defaults so that
// omitted keys keep their default values.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if cfg.Verbosity < 0 || cfg.Verbosity > 2 {
		return nil, errors.Errorf("verbosity %d out of range [0, 2]", cfg.Verbosity)
	}
	if cfg.Probes == nil {
		cfg.Probes = make(map[string]map[string]string)
	}
	return cfg, nil
}

// Load reads and parses the document at path. A missing file yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "bad config %s", path)
	}
	return cfg, nil
}

// Lookup returns the value of key in the section of probe.
func (c *Config) Lookup(probe, key string) (string, bool) {
	sec, ok := c.Probes[probe]
	if !ok {
		return "", false
	}
	v, ok := sec[key]
	return v, ok
}

// Get is like Lookup but returns def when the key is absent.
func (c *Config) Get(probe, key, def string) string {
	if v, ok := c.Lookup(probe, key); ok {
		return v
	}
	return def
}
