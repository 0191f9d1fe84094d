// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/boardlab/hwtest/errors"
)

// Metrics counts probe runs for collection by node_exporter's textfile
// collector.
type Metrics struct {
	path string
	reg  *prometheus.Registry

	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	iterations prometheus.Gauge
}

// NewMetrics returns metrics written to path. An empty path disables Write.
func NewMetrics(path string) *Metrics {
	m := &Metrics{
		path: path,
		reg:  prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwtest_probe_runs_total",
			Help: "Number of probe runs",
		}, []string{"probe"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwtest_probe_failures_total",
			Help: "Number of failed probe runs",
		}, []string{"probe"}),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hwtest_iterations_completed",
			Help: "Number of completed scheduler iterations",
		}),
	}
	m.reg.MustRegister(m.runs, m.failures, m.iterations)
	return m
}

// ObserveRun counts one run of probe.
func (m *Metrics) ObserveRun(probe string, failed bool) {
	m.runs.WithLabelValues(probe).Inc()
	if failed {
		m.failures.WithLabelValues(probe).Inc()
	}
}

// IterationDone counts a completed iteration.
func (m *Metrics) IterationDone() {
	m.iterations.Inc()
}

// Write replaces the metrics file atomically.
func (m *Metrics) Write() error {
	if m.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.path, m.reg); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", m.path)
	}
	return nil
}
