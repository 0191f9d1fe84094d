// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/vishvananda/netlink"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/session"
)

const (
	codeTestCANFail session.Code = "TEST_CAN_FAIL"
	codeNotBindIf   session.Code = "NOT_BIND_IF"
	codeTimeout     session.Code = "TIMEOUT"

	// canFrameSize is sizeof(struct can_frame): id, length, 3 pad bytes and
	// 8 data bytes.
	canFrameSize = 16
	canMaxData   = 8

	canSendDelay    = 100 * time.Millisecond
	canReplyTimeout = 10 * time.Second
)

var errCANTimeout = errors.New("no CAN frame received")

var canProbe = &Probe{
	Name:        "can",
	Description: "exchange a frame with the CAN test peer",
	Errors: map[session.Code]string{
		codeTestCANFail: `Test "CAN" failed`,
		codeNotBindIf:   "Could not bind to interface '%s'",
		codeTimeout:     "Not receive package on interface '%s'",
	},
	Params: []Param{
		{Key: "interface", Default: "can0", Usage: "CAN interface"},
		{Key: "id", Default: "0x12", Usage: "identifier of the request; the peer answers with id+1"},
		{Key: "data", Default: "11223344", Usage: "request payload, up to 8 bytes"},
	},
	run: runCAN,
}

// canFrame is a classic CAN frame.
type canFrame struct {
	ID   uint32
	Data []byte
}

// MarshalBinary encodes f in the kernel's struct can_frame layout.
func (f canFrame) MarshalBinary() ([]byte, error) {
	if len(f.Data) > canMaxData {
		return nil, errors.Errorf("CAN payload of %d bytes exceeds %d", len(f.Data), canMaxData)
	}
	b := make([]byte, canFrameSize)
	binary.LittleEndian.PutUint32(b[0:4], f.ID)
	b[4] = byte(len(f.Data))
	copy(b[8:], f.Data)
	return b, nil
}

// UnmarshalBinary decodes a struct can_frame. Flag bits are dropped from the
// identifier.
func (f *canFrame) UnmarshalBinary(b []byte) error {
	if len(b) < canFrameSize {
		return errors.Errorf("short CAN frame of %d bytes", len(b))
	}
	n := int(b[4])
	if n > canMaxData {
		return errors.Errorf("bad CAN payload length %d", n)
	}
	f.ID = binary.LittleEndian.Uint32(b[0:4]) & unix.CAN_EFF_MASK
	f.Data = append([]byte(nil), b[8:8+n]...)
	return nil
}

// canConn is a bound CAN socket.
type canConn interface {
	Send(b []byte) error
	// Receive waits up to timeout for a frame. It returns errCANTimeout if
	// none arrives.
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

type rawCANConn struct {
	fd int
}

// dialRawCAN opens a raw CAN socket bound to iface.
func dialRawCAN(iface string) (canConn, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, errors.Wrapf(err, "interface %s not found", iface)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CAN socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: link.Attrs().Index}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "failed to bind to %s", iface)
	}
	return &rawCANConn{fd: fd}, nil
}

func (c *rawCANConn) Send(b []byte) error {
	if _, err := unix.Write(c.fd, b); err != nil {
		return errors.Wrap(err, "failed to send CAN frame")
	}
	return nil
}

func (c *rawCANConn) Receive(timeout time.Duration) ([]byte, error) {
	if err := waitReadable(c.fd, timeout, unix.Poll, clock.NewClock()); err != nil {
		return nil, err
	}
	b := make([]byte, canFrameSize)
	n, err := unix.Read(c.fd, b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to receive CAN frame")
	}
	return b[:n], nil
}

func (c *rawCANConn) Close() error {
	return unix.Close(c.fd)
}

// pollFunc has the signature of unix.Poll.
type pollFunc func(fds []unix.PollFd, timeoutMs int) (int, error)

// waitReadable waits until fd is readable or timeout has passed on clk, in
// which case it returns errCANTimeout. Interrupted polls resume with the
// time remaining.
func waitReadable(fd int, timeout time.Duration, poll pollFunc, clk clock.Clock) error {
	deadline := clk.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			return errCANTimeout
		}
		n, err := poll(fds, int((remaining+time.Millisecond-1)/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "failed to poll CAN socket")
		}
		if n == 0 {
			return errCANTimeout
		}
		return nil
	}
}

func runCAN(ctx context.Context, s *session.Session, p Params, h *host) error {
	iface := p["interface"]
	id, err := strconv.ParseUint(p["id"], 0, 32)
	if err != nil {
		return errors.Wrapf(err, "bad CAN id %q", p["id"])
	}
	req := canFrame{ID: uint32(id), Data: []byte(p["data"])}
	if len(req.Data) > canMaxData {
		return errors.Errorf("CAN payload %q longer than %d bytes", p["data"], canMaxData)
	}

	conn, err := h.dialCAN(iface)
	if err != nil {
		s.Debugf("%v", err)
		return session.NewError(codeNotBindIf, iface)
	}
	defer conn.Close()

	s.Messagef("Send 0x%x [% x] on %s", req.ID, req.Data, iface)
	return exchangeCAN(ctx, h, conn, iface, req)
}

// exchangeCAN listens for the peer's reply while sending req after a short
// delay. The reply must carry req's id plus one and the same payload.
func exchangeCAN(ctx context.Context, h *host, conn canConn, iface string, req canFrame) error {
	out, err := req.MarshalBinary()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := conn.Receive(canReplyTimeout)
		if errors.Is(err, errCANTimeout) {
			return session.NewError(codeTimeout, iface)
		} else if err != nil {
			return session.NewError(session.CodeOSError, err.Error())
		}
		var resp canFrame
		if err := resp.UnmarshalBinary(b); err != nil {
			return session.NewError(session.CodeOSError, err.Error())
		}
		if resp.ID != req.ID+1 || !bytes.Equal(resp.Data, req.Data) {
			return session.NewError(codeTestCANFail)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-h.clock.After(canSendDelay):
		}
		if err := conn.Send(out); err != nil {
			return session.NewError(session.CodeOSError, err.Error())
		}
		return nil
	})
	return g.Wait()
}
