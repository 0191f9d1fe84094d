// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"strconv"
	"time"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/session"
)

const (
	codeFanStopped session.Code = "FAN_STOPPED"

	fanSampleInterval = time.Millisecond
)

var fanProbe = &Probe{
	Name:        "fan",
	Description: "count tachometer pulses of the fan",
	Errors: map[session.Code]string{
		codeFanStopped: "Fan stopped",
	},
	Params: []Param{
		{Key: "gpio", Default: "72", Usage: "GPIO number of the fan feedback line"},
		{Key: "window", Default: "2", Usage: "sampling window in seconds"},
	},
	run: runFan,
}

func runFan(ctx context.Context, s *session.Session, p Params, h *host) error {
	num, err := strconv.Atoi(p["gpio"])
	if err != nil {
		return errors.Wrapf(err, "bad GPIO number %q", p["gpio"])
	}
	secs, err := strconv.ParseFloat(p["window"], 64)
	if err != nil || secs <= 0 {
		return errors.Errorf("bad sampling window %q", p["window"])
	}
	window := time.Duration(secs * float64(time.Second))

	pin := &gpioPin{root: h.gpioRoot, num: num}
	s.Messagef("Export GPIO %d", num)
	if err := pin.Export(); err != nil {
		return err
	}
	defer func() {
		if err := pin.Unexport(); err != nil {
			s.Warningf("Failed to unexport GPIO %d: %v", num, err)
		}
	}()
	if err := pin.SetDirection("in"); err != nil {
		return err
	}

	s.Messagef("Sample fan feedback for %v", window)
	pulses, err := countPulses(ctx, pin, h, window)
	if err != nil {
		return err
	}
	s.Info("pulses", pulses)
	if pulses == 0 {
		return session.NewError(codeFanStopped)
	}
	return nil
}

// countPulses samples pin for window and returns the number of rising edges.
func countPulses(ctx context.Context, pin *gpioPin, h *host, window time.Duration) (int, error) {
	prev, err := pin.Read()
	if err != nil {
		return 0, err
	}
	pulses := 0
	start := h.clock.Now()
	for h.clock.Since(start) < window {
		select {
		case <-ctx.Done():
			return 0, errors.Wrap(ctx.Err(), "sampling interrupted")
		case <-h.clock.After(fanSampleInterval):
		}
		v, err := pin.Read()
		if err != nil {
			return 0, err
		}
		if prev == 0 && v != 0 {
			pulses++
		}
		prev = v
	}
	return pulses, nil
}
