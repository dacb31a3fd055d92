// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"testing"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

func pciPath(dev uint8) uefi.DevicePath {
	return uefi.DevicePath{uefi.PciRoot(0), &uefi.DppHwPci{Device: dev}}
}

func TestFilterAndProcess(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	display := &PciClass{Base: 3}
	network := &PciClass{Base: 2}
	p, db, _, _ := testPlatform(
		&fakeDev{caps: []Capability{CapPciIo}, path: pciPath(1), class: display},
		&fakeDev{caps: []Capability{CapPciIo}, path: pciPath(2), class: network},
		&fakeDev{caps: []Capability{CapPciIo}, path: pciPath(3)},
		&fakeDev{caps: []Capability{CapPciIo}, class: display},
	)
	var seen []string
	p.FilterAndProcess(CapPciIo, p.isPciDisplay, func(h Handle, name string) { seen = append(seen, name) })
	if len(seen) != 2 || seen[0] != pciPath(1).String() || seen[1] != NameUnavailable {
		t.Errorf("got %q", seen)
	}

	seen = nil
	p.FilterAndProcess(CapGraphicsOutput, nil, func(h Handle, name string) { seen = append(seen, name) })
	if len(seen) != 0 || len(db.connected) != 0 {
		t.Errorf("absent capability: %q", seen)
	}
	want := []string{
		"ERR:" + pciPath(3).String() + ": reading pci config space: device error",
	}
	tlog.LinesMustMatch(testlog.FilterErr(), want)
}

func TestIsUsbHost(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	p, _, _, _ := testPlatform(
		&fakeDev{path: pciPath(1), ndType: guid.NonDiscoverableXhci},
		&fakeDev{path: pciPath(2), ndType: guid.NonDiscoverableEhci},
		&fakeDev{path: pciPath(3), ndType: guid.NonDiscoverableUhci},
		&fakeDev{path: pciPath(4), ndType: guid.NonDiscoverableSdhc},
		&fakeDev{path: pciPath(5)},
	)
	for h, want := range []bool{true, true, true, false, false} {
		if got := p.isUsbHost(Handle(h), ""); got != want {
			t.Errorf("%d: got %t", h, got)
		}
	}
	if tlog.ErrCount != 0 {
		t.Error("lookup failure must not be an error")
	}
}

func TestConnectLogsFailures(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	p, db, _, _ := testPlatform(
		&fakeDev{caps: []Capability{CapPciRootBridge}, path: pciPath(1), connectErr: EDevice},
		&fakeDev{caps: []Capability{CapPciRootBridge}, path: pciPath(2),
			children: []*fakeDev{{path: pciPath(3), children: []*fakeDev{{path: pciPath(4)}}}}},
	)
	p.FilterAndProcess(CapPciRootBridge, nil, p.connect)
	//one level only
	if len(db.connected) != 1 || db.connected[0] != pciPath(2).String() || len(db.devs) != 3 {
		t.Errorf("connected %q, %d devs", db.connected, len(db.devs))
	}
	if tlog.ErrCount != 1 {
		t.Errorf("want 1 error, got %d", tlog.ErrCount)
	}
}

func TestConnectAllAndBootableDevices(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	disk := &fakeDev{caps: []Capability{CapBlockIo, CapSimpleFileSystem}, path: pciPath(5), desc: "eMMC"}
	nic := &fakeDev{caps: []Capability{CapLoadFile}, path: pciPath(6)}
	p, db, _, _ := testPlatform(
		&fakeDev{path: pciPath(1), children: []*fakeDev{{path: pciPath(2), children: []*fakeDev{disk}}}},
		&fakeDev{path: pciPath(3), children: []*fakeDev{nic}},
	)
	if devs := p.BootableDevices(); len(devs) != 0 {
		t.Errorf("bootable before connect: %v", devs)
	}
	p.ConnectAll()
	if len(db.devs) != 5 {
		t.Errorf("want 5 devs, got %d", len(db.devs))
	}
	devs := p.BootableDevices()
	want := []bootmgr.BootableDevice{
		{Description: "eMMC", Path: pciPath(5)},
		{Description: "UEFI " + pciPath(6).String(), Path: pciPath(6)},
	}
	if len(devs) != len(want) {
		t.Fatalf("got %v", devs)
	}
	for i := range want {
		if devs[i].Description != want[i].Description || !devs[i].Path.Equal(want[i].Path) {
			t.Errorf("%d: got %v want %v", i, devs[i], want[i])
		}
	}
}
