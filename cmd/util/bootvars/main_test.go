// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

func TestDump(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	vars := efivar.NewMemStore()
	m := bootmgr.New(vars)
	o := &uefi.LoadOption{
		Number:      uefi.NumberUnassigned,
		Attributes:  uefi.LoadOptionActive,
		Description: "NVMe SSD",
		FilePath:    uefi.DevicePath{uefi.PciRoot(0)},
	}
	if err := m.AddLoadOption(o, bootmgr.PositionEnd); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddKeyOption(o.Number, 0, uefi.KeyF1); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	dump(&buf, vars, true)
	out := buf.String()
	for _, want := range []string{
		"BootOrder: [0000]",
		`desc="NVMe SSD"`,
		"Boot0000-8be4df61-93ca-11d2-aa0d-00e098032b8c",
		"Key0000-",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}
