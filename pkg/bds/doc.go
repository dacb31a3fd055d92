// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package bds is the platform half of boot device selection. The surrounding
// boot driver calls four entry points on a Platform:
//
//	BeforeConsole  - connect consoles, register default options and hotkeys
//	AfterConsole   - version banner, discovery policy, capsule updates
//	WaitCallback   - once per second during the boot countdown
//	UnableToBoot   - no option booted; never returns
//
// Everything the platform needs from the firmware (handle database, variable
// store, boot option persistence, firmware volumes, capsules, display) is
// consumed through the interfaces in services.go. Sub-failures are logged and
// skipped; only a cold reset or the boot manager menu loop end the flow, and
// only log.Fatalf aborts it.
package bds
