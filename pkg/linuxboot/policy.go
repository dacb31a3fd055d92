// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"fmt"
	"os/exec"

	"github.com/google/uuid"
	"github.com/vishvananda/netlink"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Links is the part of netlink the policy uses.
type Links interface {
	LinkList() ([]netlink.Link, error)
	LinkSetUp(link netlink.Link) error
}

type nlLinks struct{}

func (nlLinks) LinkList() ([]netlink.Link, error) { return netlink.LinkList() }
func (nlLinks) LinkSetUp(link netlink.Link) error { return netlink.LinkSetUp(link) }

// Policy connects device classes on a linux host. Network brings up every
// link but loopback; ConnectAll has udev replay all device events, waits for
// the queue to drain, then does Network.
type Policy struct {
	Links Links
}

var _ bds.PolicyService = (*Policy)(nil)

func NewPolicy() *Policy { return &Policy{Links: nlLinks{}} }

func (p *Policy) ConnectDeviceClass(class uuid.UUID) error {
	switch class {
	case guid.PolicyNetwork:
		return p.network()
	case guid.PolicyConnectAll:
		if err := udevTrigger(); err != nil {
			return err
		}
		return p.network()
	}
	return fmt.Errorf("%w: device class %s", bds.ENotFound, class)
}

func (p *Policy) network() error {
	links, err := p.Links.LinkList()
	if err != nil {
		return fmt.Errorf("%w: listing links: %s", bds.EDevice, err)
	}
	up := 0
	for _, l := range links {
		attrs := l.Attrs()
		if attrs == nil || l.Type() == "loopback" || attrs.Name == "lo" {
			continue
		}
		if err = p.Links.LinkSetUp(l); err != nil {
			log.Warnf("%s: link up: %s", attrs.Name, err)
			continue
		}
		up++
	}
	log.Verbosef("%d links up", up)
	if up == 0 {
		return fmt.Errorf("%w: no network links", bds.EDevice)
	}
	return nil
}

func udevTrigger() error {
	for _, args := range [][]string{
		{"udevadm", "trigger", "--action=add"},
		{"udevadm", "settle"},
	} {
		if _, ok := log.Cmd(exec.Command(args[0], args[1:]...)); !ok {
			return fmt.Errorf("%w: %s failed", bds.EDevice, args[:2])
		}
	}
	return nil
}
