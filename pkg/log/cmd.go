// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os/exec"
)

type CommandFunc func(cmd *exec.Cmd) (res string, success bool)

// Wrapper for exec.Command(...).CombinedOutput(). Replaceable in tests so that
// host tools (udevadm etc) need not be present.
var Cmd CommandFunc = DefaultCmd

// Default impl of Cmd(); runs a command, capturing output, logging in the
// event of failure. On failure, returns "",false.
func DefaultCmd(cmd *exec.Cmd) (res string, success bool) {
	Verbosef("Running %v...", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), true
	}
	Errorf("Running %v: error %s\noutput:\n%s", cmd.Args, err, string(out))
	return
}
