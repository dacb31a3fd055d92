// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"fmt"
	"net"
	"os"
	fp "path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// Vendor node appended to a display controller's path for its drm card.
var DrmOutputVendor = uuid.MustParse("3a9b2c4e-7f1d-4b6a-9e2c-5d8f0a1b3c7e")

// EfiMemoryMappedIO
const mmioMemType = 11

var (
	rootBridgeRe = regexp.MustCompile(`^pci([0-9a-f]{4}):([0-9a-f]{2})$`)
	drmCardRe    = regexp.MustCompile(`^card[0-9]+$`)
	skipBlockRe  = regexp.MustCompile(`^(loop|ram|zram|dm-|sr)`)
)

func (db *SysfsDB) rootBridges() []*sysDev {
	var devs []*sysDev
	names, reals := listDir(db.sys("devices"))
	for i, n := range names {
		m := rootBridgeRe.FindStringSubmatch(n)
		if m == nil {
			continue
		}
		bus, _ := strconv.ParseUint(m[2], 16, 8)
		devs = append(devs, &sysDev{
			key:  "devices/" + n,
			real: reals[i],
			name: n,
			caps: []bds.Capability{bds.CapPciRootBridge},
			path: uefi.DevicePath{uefi.PciRoot(uint32(bus))},
		})
	}
	return devs
}

// dddd:bb:dd.f
func parsePciAddr(s string) (bus, dev, fn uint8, err error) {
	var dom uint16
	_, err = fmt.Sscanf(s, "%04x:%02x:%02x.%x", &dom, &bus, &dev, &fn)
	return
}

func (db *SysfsDB) pciFunctions() []*sysDev {
	var devs []*sysDev
	dir := db.sys("bus", "pci", "devices")
	names, reals := listDir(dir)
	for i, n := range names {
		bus, dev, fn, err := parsePciAddr(n)
		if err != nil {
			continue
		}
		d := &sysDev{
			key:  "bus/pci/devices/" + n,
			real: reals[i],
			bus:  "pci",
			name: n,
			caps: []bds.Capability{bds.CapPciIo},
			path: uefi.DevicePath{uefi.PciRoot(uint32(bus)), &uefi.DppHwPci{Device: dev, Function: fn}},
		}
		if cc, err := strconv.ParseUint(readAttr(fp.Join(reals[i], "class")), 0, 32); err == nil {
			d.class = &bds.PciClass{Base: uint8(cc >> 16), Sub: uint8(cc >> 8), ProgIf: uint8(cc)}
		}
		devs = append(devs, d)
	}
	return devs
}

// Platform usb and sd host controllers. Others are of no interest.
func (db *SysfsDB) platformDevices() []*sysDev {
	var devs []*sysDev
	names, reals := listDir(db.sys("bus", "platform", "devices"))
	for i, n := range names {
		id := strings.ToLower(n + " " + readAttr(fp.Join(reals[i], "modalias")))
		d := &sysDev{
			key:  "bus/platform/devices/" + n,
			real: reals[i],
			bus:  "platform",
			name: n,
		}
		switch {
		case strings.Contains(id, "xhci"):
			d.ndType = guid.NonDiscoverableXhci
		case strings.Contains(id, "ehci"):
			d.ndType = guid.NonDiscoverableEhci
		case strings.Contains(id, "uhci"):
			d.ndType = guid.NonDiscoverableUhci
		case strings.Contains(id, "sdhci"):
			d.ndType = guid.NonDiscoverableSdhc
		case strings.Contains(id, "ohci"):
			d.caps = []bds.Capability{bds.CapOhci}
		default:
			continue
		}
		if d.ndType != uuid.Nil {
			d.caps = []bds.Capability{bds.CapNonDiscoverable}
		}
		//named for their register base, as in fe2c0000.usb
		if dot := strings.IndexByte(n, '.'); dot > 0 {
			if base, err := strconv.ParseUint(n[:dot], 16, 64); err == nil {
				d.path = uefi.DevicePath{&uefi.DppHwMMap{MemType: mmioMemType, Start: base, End: base}}
			}
		}
		devs = append(devs, d)
	}
	return devs
}

// The nearest device in parents that real is below.
func parentOf(real string, parents []*sysDev) *sysDev {
	var best *sysDev
	for _, p := range parents {
		if !strings.HasPrefix(real, p.real+string(fp.Separator)) {
			continue
		}
		if best == nil || len(p.real) > len(best.real) {
			best = p
		}
	}
	return best
}

func childPath(parent *sysDev, node uefi.EfiDevicePathProtocol) uefi.DevicePath {
	if parent == nil || len(parent.path) == 0 {
		return nil
	}
	return parent.path.Append(node)
}

func (db *SysfsDB) drmOutputs(parents []*sysDev) []*sysDev {
	var devs []*sysDev
	names, reals := listDir(db.sys("class", "drm"))
	for i, n := range names {
		if !drmCardRe.MatchString(n) {
			continue
		}
		devs = append(devs, &sysDev{
			key:  "class/drm/" + n,
			real: reals[i],
			name: n,
			caps: []bds.Capability{bds.CapGraphicsOutput},
			path: childPath(parentOf(reals[i], parents), uefi.VendorHw(DrmOutputVendor)),
		})
	}
	return devs
}

func (db *SysfsDB) blockDevices(parents []*sysDev) []*sysDev {
	var devs []*sysDev
	names, reals := listDir(db.sys("class", "block"))
	for i, n := range names {
		if skipBlockRe.MatchString(n) {
			continue
		}
		if _, err := os.Stat(fp.Join(reals[i], "partition")); err == nil {
			continue
		}
		sectors, _ := strconv.ParseUint(readAttr(fp.Join(reals[i], "size")), 10, 64)
		desc := readAttr(fp.Join(reals[i], "device", "model"))
		if desc == "" {
			desc = n
		}
		devs = append(devs, &sysDev{
			key:  "class/block/" + n,
			real: reals[i],
			name: n,
			caps: []bds.Capability{bds.CapBlockIo},
			path: childPath(parentOf(reals[i], parents), &uefi.DppMediaHDD{PartSize: sectors}),
			desc: "UEFI " + desc,
		})
	}
	return devs
}

func (db *SysfsDB) netDevices(parents []*sysDev) []*sysDev {
	var devs []*sysDev
	names, reals := listDir(db.sys("class", "net"))
	for i, n := range names {
		if n == "lo" || strings.Contains(reals[i], "/virtual/") {
			continue
		}
		mac, err := net.ParseMAC(readAttr(fp.Join(reals[i], "address")))
		if err != nil {
			continue
		}
		node := &uefi.DppMsgMAC{IfType: 1}
		copy(node.Mac[:], mac)
		devs = append(devs, &sysDev{
			key:  "class/net/" + n,
			real: reals[i],
			name: n,
			caps: []bds.Capability{bds.CapLoadFile},
			path: childPath(parentOf(reals[i], parents), node),
			desc: fmt.Sprintf("UEFI PXEv4 (MAC:%s)", strings.ToUpper(strings.Replace(mac.String(), ":", "", -1))),
		})
	}
	return devs
}
