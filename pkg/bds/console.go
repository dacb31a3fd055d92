// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// usb class codes of a boot keyboard
const (
	usbClassHid         = 3
	usbSubClassBoot     = 1
	usbProtocolKeyboard = 1
)

// UsbKeyboardPath is a short-form path matching any usb boot keyboard.
func UsbKeyboardPath() uefi.DevicePath {
	return uefi.DevicePath{&uefi.DppMsgUSBClass{
		VendorID:  uefi.UsbAnyID,
		ProductID: uefi.UsbAnyID,
		Class:     usbClassHid,
		SubClass:  usbSubClassBoot,
		Protocol:  usbProtocolKeyboard,
	}}
}

func (p *Platform) addConsole(c bootmgr.ConsoleVar, path uefi.DevicePath) {
	if err := p.Options.UpdateConsoleVariable(c, path, nil); err != nil {
		log.Errorf("adding %s to %s: %s", path, c, err)
	}
}

// An Action adding the handle's device path to ConOut and ErrOut.
func (p *Platform) addOutput(h Handle, name string) {
	dp, err := p.Handles.DevicePath(h)
	if err != nil || len(dp) == 0 {
		log.Errorf("%s: device path not found", name)
		return
	}
	for _, c := range []bootmgr.ConsoleVar{bootmgr.ConOut, bootmgr.ErrOut} {
		if err := p.Options.UpdateConsoleVariable(c, dp, nil); err != nil {
			log.Errorf("%s: adding to %s: %s", name, c, err)
			return
		}
	}
	log.Verbosef("%s: added to ConOut and ErrOut", name)
}
