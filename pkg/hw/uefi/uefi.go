// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package uefi models UEFI device paths, load options (Boot####) and key
// options (Key####), and encodes/decodes them in their on-disk format.
//
// https://uefi.org/sites/default/files/resources/UEFI_Spec_2_8_A_Feb14.pdf
package uefi

import (
	"errors"
	"os"
)

var (
	//when true, log each node as it is parsed
	Verbose bool

	EParse = errors.New("parse error")
)

var efiSysDir = "/sys/firmware/efi"

// return true if the system booted via UEFI (as opposed to legacy)
func BootedUEFI() bool {
	_, err := os.Stat(efiSysDir)
	return (err == nil)
}
