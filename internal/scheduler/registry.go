// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scheduler

import (
	"strings"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/command"
)

// All is the pseudo-probe expanding to every registered probe.
const All = "all"

// Descriptor tells a Runner how to start a probe process.
type Descriptor struct {
	// Name is the probe name used in banners and the failure tally.
	Name string
	// Path is the executable to run.
	Path string
	// Args are passed to the executable.
	Args []string
}

// Registry is a static, ordered set of probes. The registration order is the
// canonical order used to expand All.
type Registry struct {
	names []string
	descs map[string]Descriptor
}

// NewRegistry returns a registry holding descs in the given order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{descs: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		switch {
		case d.Name == "":
			return nil, errors.New("probe with empty name")
		case d.Name == All:
			return nil, errors.Errorf("probe name %q is reserved", All)
		}
		if _, ok := r.descs[d.Name]; ok {
			return nil, errors.Errorf("probe %q registered twice", d.Name)
		}
		r.names = append(r.names, d.Name)
		r.descs[d.Name] = d
	}
	return r, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.descs[name]
	return d, ok
}

// Validate checks that every name is registered or All. The returned error
// carries command.StatusUsage.
func (r *Registry) Validate(names []string) error {
	var bad []string
	for _, n := range names {
		if _, ok := r.descs[n]; !ok && n != All {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		return command.NewStatusErrorf(command.StatusUsage, "unknown probe(s) %s (valid: %s, %s)",
			strings.Join(bad, ", "), strings.Join(r.names, ", "), All)
	}
	return nil
}
