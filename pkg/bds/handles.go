// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Filter decides whether a handle is processed. name is the text form of the
// handle's device path.
type Filter func(h Handle, name string) bool

// Action is applied to each handle passing the Filter.
type Action func(h Handle, name string)

const NameUnavailable = "<device path unavailable>"

// HandleName returns the text form of h's device path, or NameUnavailable.
func (p *Platform) HandleName(h Handle) string {
	dp, err := p.Handles.DevicePath(h)
	if err != nil || len(dp) == 0 {
		return NameUnavailable
	}
	return dp.String()
}

// FilterAndProcess applies act to every handle exposing c for which filter
// (if not nil) returns true. No handles is not an error.
func (p *Platform) FilterAndProcess(c Capability, filter Filter, act Action) {
	handles, err := p.Handles.LocateHandles(c)
	if err != nil || len(handles) == 0 {
		log.Verbosef("%s: no handles: %v", c, err)
		return
	}
	for _, h := range handles {
		name := p.HandleName(h)
		if filter == nil || filter(h, name) {
			act(h, name)
		}
	}
}

// A Filter passing display class pci functions.
func (p *Platform) isPciDisplay(h Handle, name string) bool {
	class, err := p.Handles.PciClassCode(h)
	if err != nil {
		log.Errorf("%s: reading pci config space: %s", name, err)
		return false
	}
	return class.IsDisplay()
}

// A Filter passing non-discoverable usb host controllers.
func (p *Platform) isUsbHost(h Handle, name string) bool {
	typ, err := p.Handles.NonDiscoverableType(h)
	if err != nil {
		log.Verbosef("%s: %s", name, err)
		return false
	}
	switch typ {
	case guid.NonDiscoverableUhci, guid.NonDiscoverableEhci, guid.NonDiscoverableXhci:
		return true
	}
	return false
}

// An Action connecting the handle, one level only.
func (p *Platform) connect(h Handle, name string) {
	err := p.Handles.ConnectController(h, false)
	if err != nil {
		log.Errorf("%s: connect: %s", name, err)
		return
	}
	log.Verbosef("%s: connected", name)
}

// more passes than any real device tree is deep
const maxConnectPasses = 32

// ConnectAll connects every handle recursively, repeating until no new
// handles appear.
func (p *Platform) ConnectAll() {
	for pass := 0; pass < maxConnectPasses; pass++ {
		before := p.Handles.AllHandles()
		for _, h := range before {
			if err := p.Handles.ConnectController(h, true); err != nil {
				log.Verbosef("%s: connect: %s", p.HandleName(h), err)
			}
		}
		if len(p.Handles.AllHandles()) == len(before) {
			return
		}
	}
	log.Warnf("handle count still changing after %d connect passes", maxConnectPasses)
}

// BootableDevices lists devices which boot options can be generated for: block
// devices, file systems, and network (load file) devices. A device exposing
// several of these is listed once.
func (p *Platform) BootableDevices() []bootmgr.BootableDevice {
	var devs []bootmgr.BootableDevice
	seen := make(map[Handle]bool)
	for _, c := range []Capability{CapBlockIo, CapSimpleFileSystem, CapLoadFile} {
		handles, err := p.Handles.LocateHandles(c)
		if err != nil {
			continue
		}
		for _, h := range handles {
			if seen[h] {
				continue
			}
			seen[h] = true
			dp, err := p.Handles.DevicePath(h)
			if err != nil || len(dp) == 0 {
				continue
			}
			desc := p.Handles.Description(h)
			if desc == "" {
				desc = "UEFI " + dp.String()
			}
			devs = append(devs, bootmgr.BootableDevice{Description: desc, Path: dp})
		}
	}
	return devs
}

// RefreshAllBootOptions regenerates the automatically created boot options
// from the devices currently connected.
func (p *Platform) RefreshAllBootOptions() {
	added, removed := p.Options.RefreshAll(p.BootableDevices())
	log.Verbosef("refreshed boot options: %d added, %d removed", added, removed)
}
