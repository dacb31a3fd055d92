// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

var (
	fvA   = uuid.MustParse("8fc151ae-c96f-4bc9-8c33-107992c7735b")
	fileX = uuid.MustParse("0b3d5bd5-1a72-4b2e-9cbd-6a0eb4a8f3d1")
	fileY = uuid.MustParse("41f5e9c8-5ad2-4d8a-a2f7-b9db8f3c0a64")
)

func fvPath() uefi.DevicePath { return uefi.DevicePath{uefi.FvNode(fvA)} }

func fvOpt(desc string, file uuid.UUID) *uefi.LoadOption {
	return &uefi.LoadOption{
		Number:      uefi.NumberUnassigned,
		Attributes:  uefi.LoadOptionActive,
		Description: desc,
		FilePath:    fvPath().Append(uefi.FvFileNode(file)),
	}
}

func TestOptionNumber(t *testing.T) {
	for _, td := range []struct {
		name string
		want int
	}{
		{"Boot0000", 0},
		{"Boot00A1", 0xa1},
		{"BootFFFF", 0xffff},
		{"BootOrder", -1},
		{"Boot001", -1},
		{"Boot00001", -1},
		{"Key0001", -1},
	} {
		if got := optionNumber(bootPfx, td.name); got != td.want {
			t.Errorf("%s: got %d want %d", td.name, got, td.want)
		}
	}
	if n := OptionName(keyPfx, 0x1b); n != "Key001B" {
		t.Errorf("got %s", n)
	}
}

func TestAddLoadOption(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := New(efivar.NewMemStore())
	a, b := fvOpt("a", fileX), fvOpt("b", fileY)
	if err := m.AddLoadOption(a, PositionEnd); err != nil {
		t.Fatal(err)
	}
	if err := m.AddLoadOption(b, PositionEnd); err != nil {
		t.Fatal(err)
	}
	if a.Number != 0 || b.Number != 1 {
		t.Errorf("numbers %d %d", a.Number, b.Number)
	}

	//explicit number, inserted at the front
	c := fvOpt("c", fileX)
	c.Attributes |= uefi.LoadOptionHidden
	c.Number = 7
	if err := m.AddLoadOption(c, 0); err != nil {
		t.Fatal(err)
	}
	order, _ := m.BootOrder()
	if len(order) != 3 || order[0] != 7 || order[1] != 0 || order[2] != 1 {
		t.Errorf("order %v", order)
	}

	opts := m.LoadOptions()
	if len(opts) != 3 || opts[0].Description != "c" || opts[2].Description != "b" {
		t.Fatalf("options %v", opts)
	}
	if FindLoadOption(fvOpt("other desc", fileY), opts) != 2 {
		t.Error("dedup must ignore description")
	}
	d := fvOpt("a", fileX)
	d.Attributes = 0
	if FindLoadOption(d, opts) != -1 {
		t.Error("differing attributes must not match")
	}

	//a gap is filled before higher numbers are used
	if err := m.DeleteLoadOption(0); err != nil {
		t.Fatal(err)
	}
	e := fvOpt("e", fileY)
	e.Attributes = 0
	if err := m.AddLoadOption(e, PositionEnd); err != nil {
		t.Fatal(err)
	}
	if e.Number != 0 {
		t.Errorf("want reused number 0, got %d", e.Number)
	}
	order, _ = m.BootOrder()
	if len(order) != 3 || order[2] != 0 {
		t.Errorf("order %v", order)
	}

	//FilePathListLength is 16 bits
	long := fvOpt("long", fileX)
	name := strings.Repeat("x", 20000)
	for i := 0; i < 3; i++ {
		long.FilePath = append(long.FilePath, &uefi.DppMediaFilePath{PathName: name})
	}
	if err := m.AddLoadOption(long, PositionEnd); !errors.Is(err, efivar.EInvalid) {
		t.Errorf("oversized path: want EInvalid, got %v", err)
	}
	if long.Number != uefi.NumberUnassigned || len(m.LoadOptions()) != 3 {
		t.Errorf("oversized option was stored as %s", long.Name("Boot"))
	}
}

func TestLoadOptionsSkipsBroken(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	vars := efivar.NewMemStore()
	m := New(vars)
	a := fvOpt("a", fileX)
	if err := m.AddLoadOption(a, PositionEnd); err != nil {
		t.Fatal(err)
	}
	if err := efivar.SetUint16s(vars, guid.GlobalVariable, bootOrder, efivar.DefaultAttrs, []uint16{5, 0, 6}); err != nil {
		t.Fatal(err)
	}
	if err := vars.Set(guid.GlobalVariable, "Boot0006", efivar.DefaultAttrs, []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	opts := m.LoadOptions()
	if len(opts) != 1 || opts[0].Number != 0 {
		t.Errorf("got %v", opts)
	}
	if n := len(tlog.Filter(testlog.FilterPfx("WRN:"))); n != 2 {
		t.Errorf("want 2 warnings, got %d", n)
	}
}

func TestKeyOptions(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := New(efivar.NewMemStore())
	a, b := fvOpt("a", fileX), fvOpt("b", fileY)
	for _, o := range []*uefi.LoadOption{a, b} {
		if err := m.AddLoadOption(o, PositionEnd); err != nil {
			t.Fatal(err)
		}
	}
	k, err := m.AddKeyOption(a.Number, 0, uefi.KeyF2)
	if err != nil {
		t.Fatal(err)
	}
	if k.Number != 0 || k.BootOption != uint16(a.Number) {
		t.Errorf("got %s", k)
	}
	if _, err = m.AddKeyOption(a.Number, 0, uefi.KeyEsc); err != nil {
		t.Fatal(err)
	}
	if _, err = m.AddKeyOption(a.Number, 0, uefi.KeyF2); !errors.Is(err, EAlreadyStarted) {
		t.Errorf("rebind same option: %v", err)
	}
	if _, err = m.AddKeyOption(b.Number, 0, uefi.KeyF2); !errors.Is(err, EKeyInUse) {
		t.Errorf("rebind other option: %v", err)
	}
	if _, err = m.AddKeyOption(9, 0, uefi.KeyF1); !errors.Is(err, efivar.ENotFound) {
		t.Errorf("missing boot option: %v", err)
	}
	keys, _ := m.KeyOptions()
	if len(keys) != 2 {
		t.Errorf("want 2 key options, got %d", len(keys))
	}

	if got := m.LookupKey(0, uefi.KeyF2); got == nil || int(got.BootOption) != a.Number {
		t.Errorf("lookup: %v", got)
	}
	//changing the boot option invalidates its bindings
	a.Description = "changed"
	if err := m.AddLoadOption(a, PositionEnd); err != nil {
		t.Fatal(err)
	}
	if got := m.LookupKey(0, uefi.KeyF2); got != nil {
		t.Errorf("stale binding returned: %s", got)
	}

	if err := m.DeleteLoadOption(a.Number); err != nil {
		t.Fatal(err)
	}
	keys, _ = m.KeyOptions()
	if len(keys) != 0 {
		t.Errorf("bindings survived option deletion: %v", keys)
	}
}

func TestContinueKeys(t *testing.T) {
	m := New(efivar.NewMemStore())
	if err := m.RegisterContinueKey(0, uefi.KeyEnter); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterContinueKey(0, uefi.KeyEnter); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterContinueKey(0); err == nil {
		t.Error("empty chord accepted")
	}
	if len(m.ContinueKeys()) != 1 {
		t.Errorf("got %v", m.ContinueKeys())
	}
	if !m.IsContinueKey(0, uefi.KeyEnter) || m.IsContinueKey(0, uefi.KeyF1) {
		t.Error("IsContinueKey")
	}
}

func TestBootManagerMenu(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := New(efivar.NewMemStore())
	if f := m.FindBootManagerMenu(guid.BootManagerMenuFile); f != nil {
		t.Errorf("found %s in an empty store", f)
	}
	o, err := m.BootManagerMenu(fvPath(), guid.BootManagerMenuFile)
	if err != nil {
		t.Fatal(err)
	}
	if o.Number != 0 || o.Attributes != menuAttrs || o.Description != MenuDescription {
		t.Errorf("got %s", o)
	}
	//found again even when the volume differs
	other := uefi.DevicePath{uefi.FvNode(fileY)}
	o2, err := m.BootManagerMenu(other, guid.BootManagerMenuFile)
	if err != nil || o2.Number != o.Number {
		t.Errorf("got %v %v", o2, err)
	}
	if n := len(m.LoadOptions()); n != 1 {
		t.Errorf("want 1 option, got %d", n)
	}
	if f := m.FindBootManagerMenu(guid.BootManagerMenuFile); f == nil || f.Number != o.Number {
		t.Errorf("find: %v", f)
	}
}

func TestUpdateConsoleVariable(t *testing.T) {
	vars := efivar.NewMemStore()
	m := New(vars)
	kb := uefi.DevicePath{&uefi.DppMsgUSBClass{VendorID: uefi.UsbAnyID, ProductID: uefi.UsbAnyID, Class: 3, SubClass: 1, Protocol: 1}}
	ser := uefi.DevicePath{uefi.VendorHw(guid.SerialPortLibVendor), &uefi.DppMsgUART{BaudRate: 115200, DataBits: 8, Parity: uefi.ParityNone, StopBits: uefi.StopBits1}}

	for _, p := range []uefi.DevicePath{kb, ser, kb} {
		if err := m.UpdateConsoleVariable(ConIn, p, nil); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ConsoleInstances(ConIn)
	if err != nil || len(got) != 2 || !got[0].Equal(kb) || !got[1].Equal(ser) {
		t.Errorf("got %v %v", got, err)
	}
	if err := m.UpdateConsoleVariable(ConIn, nil, kb); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateConsoleVariable(ConIn, nil, ser); err != nil {
		t.Fatal(err)
	}
	if _, _, err := vars.Get(guid.GlobalVariable, "ConIn"); !errors.Is(err, efivar.ENotFound) {
		t.Errorf("empty console variable not deleted: %v", err)
	}
	if _, err := m.ConsoleInstances("BootOrder"); err == nil {
		t.Error("accepted non-console variable")
	}
}

func TestRefreshAll(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	m := New(efivar.NewMemStore())
	manual := fvOpt("manual", fileX)
	if err := m.AddLoadOption(manual, PositionEnd); err != nil {
		t.Fatal(err)
	}
	disk := BootableDevice{"disk", uefi.DevicePath{uefi.PciRoot(0), &uefi.DppHwPci{Device: 1}}}
	nic := BootableDevice{"nic", uefi.DevicePath{uefi.PciRoot(0), &uefi.DppHwPci{Device: 2}}}
	usb := BootableDevice{"usb", uefi.DevicePath{uefi.PciRoot(0), &uefi.DppHwPci{Device: 3}}}

	if a, r := m.RefreshAll([]BootableDevice{disk, nic}); a != 2 || r != 0 {
		t.Errorf("first refresh: +%d -%d", a, r)
	}
	if a, r := m.RefreshAll([]BootableDevice{disk, nic}); a != 0 || r != 0 {
		t.Errorf("unchanged refresh: +%d -%d", a, r)
	}
	if a, r := m.RefreshAll([]BootableDevice{usb, disk}); a != 1 || r != 1 {
		t.Errorf("changed refresh: +%d -%d", a, r)
	}
	opts := m.LoadOptions()
	if len(opts) != 3 || opts[0].Description != "manual" || IsAutoCreated(opts[0]) {
		t.Fatalf("got %v", opts)
	}
	for _, o := range opts[1:] {
		if !IsAutoCreated(o) {
			t.Errorf("%s not tagged", o)
		}
	}
	if m.RefreshAll(nil); len(m.LoadOptions()) != 1 {
		t.Error("auto options survived empty refresh")
	}
}
