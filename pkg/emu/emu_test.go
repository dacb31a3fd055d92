// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package emu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	fp "path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/capsule"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

func loadMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := Load("testdata/machine.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParse(t *testing.T) {
	m := loadMachine(t)
	if m.Name != "rk3588-evb" || !m.PolicyService || m.Display != 1920 {
		t.Errorf("got %#v", m)
	}
	for name, n := range map[string]int{"pcie3x4": 1, "nvme": 2, "pxe": 3, "emmc": 2} {
		d := m.FindDevice(name)
		if d == nil {
			t.Errorf("%s missing", name)
			continue
		}
		if len(d.DevicePath()) != n {
			t.Errorf("%s: want %d nodes, got %s", name, n, d.DevicePath())
		}
	}
	if m.FindDevice("nvme").Boot != "os" {
		t.Error("nvme should boot")
	}
	if m.CapsuleDir() != "" {
		t.Errorf("capsule dir %q", m.CapsuleDir())
	}

	for _, bad := range []string{
		"devices: []",
		"name: x\ndevices: [{caps: [BlockIo]}]",
		"name: x\ndevices: [{name: a, host-type: ohci}]",
		"name: x\ndevices: [{name: a, path: [{}]}]",
		"name: x\ndevices: [{name: a, path: [{mac: zz}]}]",
	} {
		if _, err := Parse([]byte(bad), "."); err == nil {
			t.Errorf("%q: no error", bad)
		}
	}
}

func TestHandleDB(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := loadMachine(t)
	db := newHandleDB(m)
	if n := len(db.AllHandles()); n != 3 {
		t.Fatalf("want 3 handles before connecting, got %d", n)
	}
	roots, err := db.LocateHandles(bds.CapPciRootBridge)
	if err != nil || len(roots) != 1 {
		t.Fatalf("roots %v %v", roots, err)
	}
	if err = db.ConnectController(roots[0], false); err != nil {
		t.Fatal(err)
	}
	if n := len(db.AllHandles()); n != 5 {
		t.Errorf("want 5 handles, got %d", n)
	}
	//children of children only appear with a recursive connect
	if err = db.ConnectController(roots[0], true); err != nil {
		t.Fatal(err)
	}
	if n := len(db.AllHandles()); n != 6 {
		t.Errorf("want 6 handles after recursive connect, got %d", n)
	}
	if _, err = db.LocateHandles(bds.CapLoadFile); err != nil {
		t.Error(err)
	}
	if _, err = db.LocateHandles(bds.CapGraphicsOutput); !errors.Is(err, bds.ENotFound) {
		t.Errorf("want ENotFound, got %v", err)
	}

	nics := 0
	for _, h := range db.AllHandles() {
		if cc, err := db.PciClassCode(h); err == nil && cc.Base == pciClassNetwork {
			nics++
		}
	}
	if nics != 1 {
		t.Errorf("want 1 nic, got %d", nics)
	}

	hosts, _ := db.LocateHandles(bds.CapNonDiscoverable)
	if len(hosts) != 2 {
		t.Fatalf("hosts %v", hosts)
	}
	if typ, err := db.NonDiscoverableType(hosts[1]); err != nil || typ != hostTypes["sdhc"] {
		t.Errorf("sdhc type %s %v", typ, err)
	}

	nvme := m.FindDevice("nvme")
	if d := db.deviceFor(nvme.DevicePath()); d != nvme {
		t.Errorf("deviceFor nvme: %v", d)
	}
	if d := db.deviceFor(m.FindDevice("emmc").DevicePath()); d == nil || d.Name != "sdhc" {
		t.Errorf("emmc not connected yet, want sdhc, got %v", d)
	}

	img, err := db.LoadedImagePath()
	if err != nil {
		t.Fatal(err)
	}
	v, err := volumes(m.Volumes).LocateVolume(img)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = v.FileInfo(uuid.New()); !errors.Is(err, bds.ENotFound) {
		t.Errorf("want ENotFound, got %v", err)
	}
}

func TestConnectAllPolicy(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := loadMachine(t)
	db := newHandleDB(m)
	p := policy{db: db}
	if err := p.ConnectDeviceClass(uuid.New()); !errors.Is(err, bds.ENotFound) {
		t.Errorf("want ENotFound, got %v", err)
	}
	if err := p.ConnectDeviceClass(guid.PolicyConnectAll); err != nil {
		t.Fatal(err)
	}
	if n := len(db.AllHandles()); n != 7 {
		t.Errorf("want every device, got %d handles", n)
	}
}

// Scripted menu input. "boot <description>" selects the option by
// description.
type script struct {
	e     *Emulator
	lines []string
}

func (s *script) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	if desc := strings.TrimPrefix(l, "boot "); desc != l {
		for _, o := range s.e.cur.Options.LoadOptions() {
			if o.Description == desc {
				return fmt.Sprintf("%x", o.Number), nil
			}
		}
		return "", fmt.Errorf("no option %q", desc)
	}
	return l, nil
}

func (s *script) Close() error { return nil }

func TestRun(t *testing.T) {
	for _, tc := range []struct {
		name   string
		emuNV  bool
		keys   []string
		menu   []string
		noMenu bool
		boots  int
		booted string
		halted string
		out    string
	}{
		{
			name:   "reset after refresh",
			boots:  2,
			booted: "NVMe SSD",
		},
		{
			name:   "maskrom hotkey",
			keys:   []string{"F4"},
			boots:  3,
			booted: "NVMe SSD",
			out:    "resetting to maskrom",
		},
		{
			name:   "unbound key",
			keys:   []string{"x"},
			boots:  2,
			booted: "NVMe SSD",
		},
		{
			name:   "menu",
			emuNV:  true,
			menu:   []string{"zz", "", "list", "boot eMMC", "boot NVMe SSD"},
			boots:  1,
			booted: "NVMe SSD",
			out:    "eMMC: device error",
		},
		{
			name:   "menu exit",
			emuNV:  true,
			menu:   []string{"exit"},
			boots:  1,
			halted: "boot manager menu: exit",
			out:    "Boot Manager Menu",
		},
		{
			name:   "menu eof",
			emuNV:  true,
			boots:  1,
			halted: "boot manager menu: EOF",
		},
		{
			name:   "no menu input",
			emuNV:  true,
			noMenu: true,
			boots:  1,
			halted: "boot manager menu: no input",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tlog := testlog.NewTestLog(t, true, false)
			defer tlog.Freeze()

			m := loadMachine(t)
			for _, k := range tc.keys {
				var key platcfg.Key
				if err := key.UnmarshalText([]byte(k)); err != nil {
					t.Fatal(err)
				}
				m.Keys = append(m.Keys, key)
			}
			cfg := platcfg.Default()
			cfg.EmuVariableNV = tc.emuNV
			e := New(m, cfg, efivar.NewMemStore())
			out := &bytes.Buffer{}
			e.Out = out
			if !tc.noMenu {
				e.Menu = func() (LineReader, error) { return &script{e: e, lines: tc.menu}, nil }
			}

			res, err := e.Run()
			if err != nil {
				t.Fatal(err)
			}
			if res.Boots != tc.boots {
				t.Errorf("want %d boots, got %d", tc.boots, res.Boots)
			}
			switch {
			case tc.booted != "":
				if res.Booted == nil || res.Booted.Description != tc.booted {
					t.Errorf("want %q booted, got %s", tc.booted, res)
				}
			case res.Halted != tc.halted:
				t.Errorf("want halt %q, got %s", tc.halted, res)
			}
			if !strings.Contains(out.String(), tc.out) {
				t.Errorf("output lacks %q:\n%s", tc.out, out)
			}
		})
	}
}

func TestMaxBoots(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := loadMachine(t)
	f4 := platcfg.Key{ScanCode: 0x0e}
	m.Keys = []platcfg.Key{f4, f4, f4}
	e := New(m, platcfg.Default(), efivar.NewMemStore())
	e.MaxBoots = 2
	res, err := e.Run()
	if !errors.Is(err, EMaxBoots) {
		t.Errorf("want EMaxBoots, got %v", err)
	}
	if res.Boots != 2 || res.Booted != nil {
		t.Errorf("got %s", res)
	}
}

func TestRunCapsule(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	dir, err := ioutil.TempDir("", "emu")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	class := uuid.MustParse("6f2a7c1e-3b5d-4e8f-9a0b-1c2d3e4f5a6b")
	data, err := ioutil.ReadFile("testdata/machine.yaml")
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, []byte(fmt.Sprintf(`
capsules: caps
firmware:
  - class: %s
    type: 1
    version: 1
    lowest: 1
`, class))...)
	m, err := Parse(data, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err = os.Mkdir(m.CapsuleDir(), 0755); err != nil {
		t.Fatal(err)
	}
	capFile := fp.Join(m.CapsuleDir(), "fw.cap")
	img := capsule.Build(capsule.FlagPersistAcrossReset, capsule.BuildPayload{
		ImageType:     class,
		Version:       2,
		LowestVersion: 1,
		Image:         []byte("new firmware"),
	})
	if err = ioutil.WriteFile(capFile, img, 0644); err != nil {
		t.Fatal(err)
	}

	e := New(m, platcfg.Default(), efivar.NewMemStore())
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	//capsule reset, then the reset after refreshing options
	if res.Boots != 3 || res.Booted == nil {
		t.Errorf("got %s", res)
	}
	if _, err = os.Stat(capFile); !os.IsNotExist(err) {
		t.Errorf("capsule not consumed: %v", err)
	}
	inv := e.Inventory()
	if inv.Res[0].Version != 2 || string(inv.Images[class]) != "new firmware" {
		t.Errorf("inventory %#v", inv)
	}
	tr := &capsule.Tracker{Vars: e.Vars, Inv: inv}
	ent, err := tr.Lookup(class)
	if err != nil {
		t.Fatal(err)
	}
	if ent.FwVersion != 2 || ent.LastAttemptVersion != 2 || ent.LastAttemptStatus != capsule.StatusSuccess {
		t.Errorf("esrt %s", ent)
	}
}
