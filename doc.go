// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package platformbm is the platform boot manager policy layer: the code that
// runs between driver dispatch and os handoff, deciding which devices get
// connected, which consoles are used, which boot options exist, and what
// happens when nothing boots.
//
// The core (pkg/bds) only talks to the firmware through narrow service
// interfaces. Two hosts implement them:
//
//   - pkg/linuxboot: the boot manager runs as pid 1 of a linuxboot
//     initramfs (cmd/init). Devices come from sysfs, variables from efivarfs,
//     and an os is started with kexec.
//
//   - pkg/emu: a machine described in yaml, driven by cmd/bdsemu. Resets
//     reboot the emulated machine, so whole multi-boot sequences (option
//     refresh, capsule updates, hotkeys, the boot manager menu) can be run and
//     tested without hardware.
//
// Boot options, hotkeys and console variables are kept in a variable store
// (pkg/hw/efivar) through pkg/bootmgr. Platform settings are read from a json
// file (pkg/platcfg).
package platformbm
