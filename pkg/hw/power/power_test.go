// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package power

import (
	"testing"

	hk "github.com/purecloudlabs/platformbm/pkg/init/housekeeping"
)

func TestReset(t *testing.T) {
	defer func(r func(int) error, e func(int), g func() int) { reboot, exit, getpid = r, e, g }(reboot, exit, getpid)
	settle = 0

	for _, td := range []struct {
		name     string
		pid      int
		success  bool
		rebooted bool
		exited   bool
	}{
		{"pid1", 1, true, true, false},
		{"not pid1", 42, true, false, true},
	} {
		t.Run(td.name, func(t *testing.T) {
			var cmds []int
			exited := false
			reboot = func(cmd int) error { cmds = append(cmds, cmd); return nil }
			exit = func(int) { exited = true }
			getpid = func() int { return td.pid }

			var got []bool
			hk.Preboots.Add(&hk.HkTask{Name: "t", Func: func(ok bool) { got = append(got, ok) }})
			Host{}.ResetCold()
			if len(got) != 1 || got[0] != td.success {
				t.Errorf("housekeeping got %v", got)
			}
			if (len(cmds) == 1) != td.rebooted || exited != td.exited {
				t.Errorf("reboot %v exit %t", cmds, exited)
			}
		})
	}
}
