// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package linuxboot runs the boot flow as a userspace boot manager on a
// linux host: sysfs stands in for the handle database, directories for
// firmware volumes, netlink and udev for the connection policy, and kexec for
// launching options.
package linuxboot

import (
	"fmt"
	"io/ioutil"
	"os"
	fp "path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// A device found in sysfs.
type sysDev struct {
	key    string //sysfs path, relative to the root; stable across scans
	real   string //resolved path, for parent/child relations
	bus    string //bus whose drivers_probe binds it, if any
	name   string
	caps   []bds.Capability
	path   uefi.DevicePath
	class  *bds.PciClass
	ndType uuid.UUID
	desc   string
}

func (d *sysDev) has(c bds.Capability) bool {
	for _, dc := range d.caps {
		if dc == c {
			return true
		}
	}
	return false
}

// SysfsDB is a bds.HandleDB over sysfs. Handles are assigned on first sight
// and keep their value across rescans.
type SysfsDB struct {
	Root string //normally "/"
	//path of the volume holding the boot manager's own files
	Image uefi.DevicePath

	handles map[string]bds.Handle
	devs    map[bds.Handle]*sysDev
}

var _ bds.HandleDB = (*SysfsDB)(nil)

func NewSysfsDB(root string, image uefi.DevicePath) *SysfsDB {
	return &SysfsDB{Root: root, Image: image}
}

func (db *SysfsDB) sys(elem ...string) string {
	return fp.Join(append([]string{db.Root, "sys"}, elem...)...)
}

// Rescans sysfs. Devices that vanished lose their handle.
func (db *SysfsDB) scan() []bds.Handle {
	if db.handles == nil {
		db.handles = make(map[string]bds.Handle)
	}
	found := db.scanAll()
	db.devs = make(map[bds.Handle]*sysDev, len(found))
	hs := make([]bds.Handle, 0, len(found))
	for _, d := range found {
		h, ok := db.handles[d.key]
		if !ok {
			h = bds.Handle(len(db.handles) + 1)
			db.handles[d.key] = h
		}
		db.devs[h] = d
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

func (db *SysfsDB) scanAll() []*sysDev {
	var devs []*sysDev
	devs = append(devs, db.rootBridges()...)
	pci := db.pciFunctions()
	devs = append(devs, pci...)
	devs = append(devs, db.platformDevices()...)
	parents := append([]*sysDev(nil), devs...)
	devs = append(devs, db.drmOutputs(parents)...)
	devs = append(devs, db.blockDevices(parents)...)
	devs = append(devs, db.netDevices(parents)...)
	return devs
}

func (db *SysfsDB) LocateHandles(c bds.Capability) ([]bds.Handle, error) {
	var out []bds.Handle
	for _, h := range db.scan() {
		if db.devs[h].has(c) {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", bds.ENotFound, c)
	}
	return out, nil
}

func (db *SysfsDB) AllHandles() []bds.Handle { return db.scan() }

func (db *SysfsDB) dev(h bds.Handle) (*sysDev, error) {
	if db.devs == nil {
		db.scan()
	}
	d, ok := db.devs[h]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", bds.ENotFound, h)
	}
	return d, nil
}

func (db *SysfsDB) DevicePath(h bds.Handle) (uefi.DevicePath, error) {
	d, err := db.dev(h)
	if err != nil {
		return nil, err
	}
	if len(d.path) == 0 {
		return nil, fmt.Errorf("%w: no device path for %s", bds.ENotFound, d.key)
	}
	return d.path, nil
}

// ConnectController asks the kernel to bind drivers. A root bridge is
// rescanned; pci and platform devices go through their bus's drivers_probe.
// Other devices are bound already once they show up in sysfs.
func (db *SysfsDB) ConnectController(h bds.Handle, recursive bool) error {
	d, err := db.dev(h)
	if err != nil {
		return err
	}
	switch {
	case d.has(bds.CapPciRootBridge):
		err = db.write(db.sys("bus", "pci", "rescan"), "1")
	case d.bus != "":
		err = db.write(db.sys("bus", d.bus, "drivers_probe"), d.name)
	}
	if err != nil || !recursive {
		return err
	}
	db.scan()
	var children []bds.Handle
	for ch, cd := range db.devs {
		if cd != d && strings.HasPrefix(cd.real, d.real+string(fp.Separator)) {
			children = append(children, ch)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	for _, ch := range children {
		if cerr := db.ConnectController(ch, false); cerr != nil {
			log.Verbosef("connecting child %d of %s: %s", ch, d.key, cerr)
		}
	}
	return nil
}

func (db *SysfsDB) write(path, val string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: %s", bds.EDevice, err)
	}
	defer f.Close()
	if _, err = f.WriteString(val); err != nil {
		return fmt.Errorf("%w: writing %q to %s: %s", bds.EDevice, val, path, err)
	}
	return nil
}

func (db *SysfsDB) PciClassCode(h bds.Handle) (bds.PciClass, error) {
	d, err := db.dev(h)
	if err != nil {
		return bds.PciClass{}, err
	}
	if d.class == nil {
		return bds.PciClass{}, fmt.Errorf("%w: %s is not a pci function", bds.EDevice, d.key)
	}
	return *d.class, nil
}

func (db *SysfsDB) NonDiscoverableType(h bds.Handle) (uuid.UUID, error) {
	d, err := db.dev(h)
	if err != nil {
		return uuid.Nil, err
	}
	if d.ndType == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s type", bds.ENotFound, d.key)
	}
	return d.ndType, nil
}

func (db *SysfsDB) Description(h bds.Handle) string {
	d, err := db.dev(h)
	if err != nil {
		return ""
	}
	return d.desc
}

func (db *SysfsDB) LoadedImagePath() (uefi.DevicePath, error) {
	if len(db.Image) == 0 {
		return nil, fmt.Errorf("image volume %w", bds.ENotFound)
	}
	return db.Image, nil
}

// reads a sysfs attribute, trimmed. "" on error.
func readAttr(path string) string {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// lists a sysfs directory, resolving each entry
func listDir(dir string) (names, reals []string) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Verbosef("reading %s: %s", dir, err)
		}
		return
	}
	for _, e := range entries {
		r, err := fp.EvalSymlinks(fp.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		names = append(names, e.Name())
		reals = append(reals, r)
	}
	return
}
