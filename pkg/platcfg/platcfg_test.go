// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package platcfg

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

// the default config must survive its own schema
func TestDefaultConformance(t *testing.T) {
	def := Default()
	cfg, err := Parse([]byte(def.String()))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.String() != def.String() {
		t.Errorf("round trip changed config:\n%s\n%s", def, cfg)
	}
}

func TestLoad(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	cfg, err := Load("testdata/platcfg.json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DiscoveryPolicy != PolicyNetwork || cfg.BootTimeout != 3 || cfg.Uart.BaudRate != 115200 {
		t.Errorf("got %s", cfg)
	}
	//absent from the file
	if cfg.ShellFile != guid.UefiShellFile || cfg.EmuVariableNV {
		t.Errorf("defaults not kept: %s", cfg)
	}
	if len(cfg.BootOptions) != 2 || cfg.BootOptions[1].Key.Input().ScanCode != 0x16 {
		t.Fatalf("boot options: %v", cfg.BootOptions)
	}
	want := "VenHw(d3987d4b-971a-435f-8caf-4967eb627241)/Uart(115200,8,N,1)/VenMsg(7baec70b-57e0-4c76-8e87-2f9e28088343)"
	if got := cfg.SerialPath().String(); got != want {
		t.Errorf("serial path\n got %s\nwant %s", got, want)
	}

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil || cfg.String() != Default().String() {
		t.Errorf("missing file: %v", err)
	}
	if n := len(tlog.Filter(testlog.FilterRe("not found, using default"))); n != 1 {
		t.Errorf("want 1 log line about the missing file, got %d", n)
	}
}

func TestInvalid(t *testing.T) {
	for _, td := range []struct {
		name, json string
	}{
		{"unknown field", `{"bootTimeOut": 5}`},
		{"bad policy", `{"discoveryPolicy": "some"}`},
		{"bad parity", `{"uart": {"parity": "X"}}`},
		{"bad guid", `{"shellFile": "7c04a583"}`},
		{"no description", `{"bootOptions": [{"fvFile": "7c04a583-9e3e-4f1c-ad65-e05268d0b4d1"}]}`},
		{"no target", `{"bootOptions": [{"description": "x"}]}`},
		{"two targets", `{"bootOptions": [{"description": "x", "fvFile": "7c04a583-9e3e-4f1c-ad65-e05268d0b4d1", "devicePath": "7fff0400"}]}`},
		{"odd hex", `{"bootOptions": [{"description": "x", "devicePath": "7ff"}]}`},
		{"bad key", `{"bootOptions": [{"description": "x", "devicePath": "7fff0400", "key": "F13"}]}`},
		{"not json", `{`},
	} {
		t.Run(td.name, func(t *testing.T) {
			_, err := Parse([]byte(td.json))
			if !errors.Is(err, EInvalid) {
				t.Errorf("want EInvalid, got %v", err)
			}
		})
	}
}

func TestKey(t *testing.T) {
	for _, td := range []struct {
		in   string
		want uefi.InputKey
	}{
		{"", uefi.InputKey{}},
		{"F1", uefi.KeyF1},
		{"f4", uefi.KeyF4},
		{"F12", uefi.InputKey{ScanCode: 0x16}},
		{"Esc", uefi.KeyEsc},
		{"enter", uefi.KeyEnter},
		{"g", uefi.InputKey{UnicodeChar: 'g'}},
	} {
		var k Key
		if err := k.UnmarshalText([]byte(td.in)); err != nil {
			t.Errorf("%q: %s", td.in, err)
			continue
		}
		if k.Input() != td.want {
			t.Errorf("%q: got %v", td.in, k)
		}
		if k.String() != td.in && td.in != "f4" && td.in != "enter" {
			t.Errorf("%q: String() gives %q", td.in, k.String())
		}
	}
	for _, bad := range []string{"F0", "F1x", "ab", "\t"} {
		var k Key
		if err := k.UnmarshalText([]byte(bad)); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestBootOptionLoadOption(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	cfg, err := Load("testdata/platcfg.json")
	if err != nil {
		t.Fatal(err)
	}
	fv := uefi.DevicePath{uefi.FvNode(uuid.MustParse("8fc151ae-c96f-4bc9-8c33-107992c7735b"))}

	grub, err := cfg.BootOptions[0].LoadOption(fv)
	if err != nil {
		t.Fatal(err)
	}
	if grub.Number != uefi.NumberUnassigned || grub.Attributes != uefi.LoadOptionActive || len(grub.FilePath) != 2 {
		t.Errorf("got %s", grub)
	}
	args, err := uefi.DecodeUTF16(grub.OptionalData[:len(grub.OptionalData)-2])
	if err != nil {
		t.Fatal(err)
	}
	split, _ := shlex.Split(args)
	if len(split) != 2 || split[1] != "root=/dev/mmcblk0p2" {
		t.Errorf("args %q -> %q", args, split)
	}

	net, err := cfg.BootOptions[1].LoadOption(fv)
	if err != nil {
		t.Fatal(err)
	}
	if net.FilePath.String() != "VenHw(9bf1a380-a82f-43b3-9b54-e90f4ad6b5f6)" || net.OptionalData != nil {
		t.Errorf("got %s", net)
	}
}

func TestJoinArgs(t *testing.T) {
	for _, args := range [][]string{
		{"a", "b c", `d"e`},
		{`back\slash`, "#x"},
		{"plain"},
	} {
		split, err := shlex.Split(JoinArgs(args))
		if err != nil {
			t.Fatal(err)
		}
		if len(split) != len(args) {
			t.Errorf("%q: got %q", args, split)
			continue
		}
		for i := range args {
			if split[i] != args[i] {
				t.Errorf("%q: got %q", args, split)
			}
		}
	}
}
