// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"os/exec"
	"strings"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// represents a Cmd in CmdMap
type Key string

// generates key for given command
func CmdKey(args []string) Key { return Key(strings.Join(args, "|") + "|") }

// execution result
type Result struct {
	Res     string
	Success bool
}

// data for use with UseMappedCmdHijacker
type HijackerData struct {
	Result   Result //returned to the caller
	RunCount int    //number of times the command has been invoked
}

// map passed to UseMappedCmdHijacker
type CmdMap map[Key]HijackerData

// Replays results from the map rather than executing anything. Commands
// absent from the map fail. Restored by Freeze().
func (tlog *TstLog) UseMappedCmdHijacker(m CmdMap) {
	log.Cmd = func(cmd *exec.Cmd) (res string, success bool) {
		key := CmdKey(cmd.Args)
		log.Logf("Running %v...", cmd.Args)
		data, ok := m[key]
		data.RunCount++
		m[key] = data
		if !ok {
			return "", false
		}
		return data.Result.Res, data.Result.Success
	}
}
