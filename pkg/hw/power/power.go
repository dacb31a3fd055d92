// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package power resets a linux host, first running the pre-reset tasks
// registered with the housekeeping pkg.
//
// Install sets log's fatal action to a failed reset.
package power

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	hk "github.com/purecloudlabs/platformbm/pkg/init/housekeeping"
	"github.com/purecloudlabs/platformbm/pkg/log"

	"golang.org/x/sys/unix"
)

// Action taken when the boot flow hits a fatal assumption violation.
var FatalAction = log.FailAction{
	MsgPfx:     "ERROR, resetting:",
	Terminator: FailReset,
}

func Install() { log.SetFatalAction(FatalAction) }

// Host resets the machine it runs on.
type Host struct{}

var _ bds.Resetter = Host{}

func (Host) ResetCold() { Reset(true) }

func FailReset() { Reset(false) }

// overridden in tests
var (
	reboot = unix.Reboot
	exit   = os.Exit
	getpid = os.Getpid
	settle = 2 * time.Second
)

// Not for general use; prefer Host.ResetCold or FailReset.
func Reset(success bool) {
	/* may run from a defer; exiting or resetting would mask a panic, so log
	   it first */
	if x := recover(); x != nil {
		log.Logf("panic() caught in Reset(success=%t)", success)
		success = false
		log.Msgf("internal error: %s", x)
		stars := "***********************************************************"
		log.Logf("%s\nstack trace:\n%s\n%s", stars, debug.Stack(), stars)
	}

	hk.Preboots.Perform(success)
	if getpid() != 1 {
		fmt.Fprintln(os.Stderr, "pid 1 would reset here")
		exit(0)
		return
	}
	time.Sleep(settle)
	if err := reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		fmt.Fprintf(os.Stderr, "reboot: %s\n", err)
	}
}
