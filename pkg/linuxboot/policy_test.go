// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/vishvananda/netlink"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

type fakeLinks struct {
	links []netlink.Link
	up    []string
	fail  map[string]bool
}

func (fl *fakeLinks) LinkList() ([]netlink.Link, error) { return fl.links, nil }
func (fl *fakeLinks) LinkSetUp(l netlink.Link) error {
	if fl.fail[l.Attrs().Name] {
		return errors.New("no carrier")
	}
	fl.up = append(fl.up, l.Attrs().Name)
	return nil
}

func dev(name string) netlink.Link { return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name}} }

func TestPolicy(t *testing.T) {
	udev := testlog.CmdMap{
		testlog.CmdKey([]string{"udevadm", "trigger", "--action=add"}): {Result: testlog.Result{Success: true}},
		testlog.CmdKey([]string{"udevadm", "settle"}):                  {Result: testlog.Result{Success: true}},
	}
	for _, td := range []struct {
		name  string
		class uuid.UUID
		links []netlink.Link
		fail  map[string]bool
		cmds  testlog.CmdMap
		up    int
		want  error
		udev  bool
	}{
		{"network", guid.PolicyNetwork, []netlink.Link{dev("lo"), dev("eth0"), dev("eth1")}, nil, nil, 2, nil, false},
		{"one fails", guid.PolicyNetwork, []netlink.Link{dev("eth0"), dev("eth1")}, map[string]bool{"eth0": true}, nil, 1, nil, false},
		{"no links", guid.PolicyNetwork, []netlink.Link{dev("lo")}, nil, nil, 0, bds.EDevice, false},
		{"all", guid.PolicyConnectAll, []netlink.Link{dev("eth0")}, nil, udev, 1, nil, true},
		{"udev fails", guid.PolicyConnectAll, []netlink.Link{dev("eth0")}, nil, testlog.CmdMap{}, 0, bds.EDevice, false},
		{"unknown", guid.PolicyConsole, nil, nil, nil, 0, bds.ENotFound, false},
	} {
		t.Run(td.name, func(t *testing.T) {
			tlog := testlog.NewTestLog(t, true, false)
			defer tlog.Freeze()
			cmds := td.cmds
			if cmds == nil {
				cmds = testlog.CmdMap{}
			}
			tlog.UseMappedCmdHijacker(cmds)

			fl := &fakeLinks{links: td.links, fail: td.fail}
			p := &Policy{Links: fl}
			err := p.ConnectDeviceClass(td.class)
			if td.want == nil && err != nil {
				t.Fatal(err)
			}
			if !errors.Is(err, td.want) {
				t.Fatalf("got %v want %v", err, td.want)
			}
			if len(fl.up) != td.up {
				t.Errorf("up %v", fl.up)
			}
			if td.udev && cmds[testlog.CmdKey([]string{"udevadm", "settle"})].RunCount != 1 {
				t.Error("udevadm settle not run")
			}
		})
	}
}
