// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"context"
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"
	probing "github.com/prometheus-community/pro-bing"
	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/logging"
)

const (
	dhcpTimeout     = 10 * time.Second
	pingPerPacket   = time.Second
	pingGracePeriod = 2 * time.Second
)

// pingStats summarizes an ICMP echo exchange.
type pingStats struct {
	Sent, Received int
	Loss           float64 // percent
	AvgRTT         time.Duration
}

// network is the datetime and ethernet probes' view of the network stack.
type network interface {
	// CheckLink fails if iface does not exist. A down link is brought up.
	CheckLink(ctx context.Context, iface string) error
	// AcquireLease obtains a DHCPv4 lease on iface and assigns its address.
	AcquireLease(ctx context.Context, iface string) (*net.IPNet, error)
	// LinkSpeed returns the negotiated speed of iface in Mb/s.
	LinkSpeed(iface string) (uint32, error)
	// Ping sends count echo requests to target.
	Ping(ctx context.Context, target string, count int) (*pingStats, error)
}

// hostNetwork implements network with netlink, nclient4, ethtool and
// pro-bing.
type hostNetwork struct{}

func (hostNetwork) CheckLink(ctx context.Context, iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return errors.Wrapf(err, "interface %s not found", iface)
	}
	if link.Attrs().Flags&net.FlagUp == 0 {
		logging.ContextLogf(ctx, "Bringing %s up", iface)
		if err := netlink.LinkSetUp(link); err != nil {
			return errors.Wrapf(err, "failed to bring %s up", iface)
		}
	}
	return nil
}

func (hostNetwork) AcquireLease(ctx context.Context, iface string) (*net.IPNet, error) {
	client, err := nclient4.New(iface, nclient4.WithTimeout(dhcpTimeout))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create DHCP client for %s", iface)
	}
	defer client.Close()

	lease, err := client.Request(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "DHCP request on %s failed", iface)
	}
	addr := &net.IPNet{IP: lease.ACK.YourIPAddr, Mask: lease.ACK.SubnetMask()}
	logging.ContextLogf(ctx, "Lease %s from %s", addr, lease.ACK.ServerIPAddr)

	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, errors.Wrapf(err, "interface %s not found", iface)
	}
	current, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list addresses of %s", iface)
	}
	for _, a := range current {
		if a.IPNet.String() == addr.String() {
			return addr, nil
		}
	}
	if err := netlink.AddrAdd(link, &netlink.Addr{IPNet: addr}); err != nil {
		return nil, errors.Wrapf(err, "failed to assign %s to %s", addr, iface)
	}
	return addr, nil
}

func (hostNetwork) LinkSpeed(iface string) (uint32, error) {
	h, err := ethtool.NewEthtool()
	if err != nil {
		return 0, errors.Wrap(err, "failed to open ethtool handle")
	}
	defer h.Close()

	settings, err := h.GetLinkSettings(iface)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get link settings of %s", iface)
	}
	return settings.Speed, nil
}

func (hostNetwork) Ping(ctx context.Context, target string, count int) (*pingStats, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", target)
	}
	pinger.Count = count
	pinger.Timeout = time.Duration(count)*pingPerPacket + pingGracePeriod
	pinger.SetPrivileged(true)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return nil, errors.Wrapf(err, "ping %s failed", target)
	}
	st := pinger.Statistics()
	return &pingStats{
		Sent:     st.PacketsSent,
		Received: st.PacketsRecv,
		Loss:     st.PacketLoss,
		AvgRTT:   st.AvgRtt,
	}, nil
}
