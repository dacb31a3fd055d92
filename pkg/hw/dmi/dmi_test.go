// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package dmi

import (
	"testing"

	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
)

func TestString(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	defer Clear()

	cmds := testlog.CmdMap{
		testlog.CmdKey([]string{"dmidecode", "-s", BiosVersion}):   {Result: testlog.Result{Res: "v1.2-rk3588\n", Success: true}},
		testlog.CmdKey([]string{"dmidecode", "-s", SystemProduct}): {Result: testlog.Result{Res: "EVB\nInvalid entry length (16). Fixed up to 11.\n", Success: true}},
		testlog.CmdKey([]string{"dmidecode", "-s", BiosVendor}):    {Result: testlog.Result{Success: false}},
	}
	tlog.UseMappedCmdHijacker(cmds)

	for i := 0; i < 2; i++ {
		if v := String(BiosVersion); v != "v1.2-rk3588" {
			t.Errorf("version %q", v)
		}
	}
	if n := cmds[testlog.CmdKey([]string{"dmidecode", "-s", BiosVersion})].RunCount; n != 1 {
		t.Errorf("dmidecode ran %d times", n)
	}
	if v := String(SystemProduct); v != "EVB" {
		t.Errorf("product %q", v)
	}
	if v := String(BiosVendor); v != "" {
		t.Errorf("vendor %q", v)
	}
}
