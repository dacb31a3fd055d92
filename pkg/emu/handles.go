// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package emu

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// The device tree as seen during one boot. Handles index devs; a device's
// children are appended when it is first connected.
type handleDB struct {
	m         *Machine
	devs      []*Device
	connected map[*Device]bool
}

var _ bds.HandleDB = (*handleDB)(nil)

func newHandleDB(m *Machine) *handleDB {
	return &handleDB{
		m:         m,
		devs:      append([]*Device(nil), m.Devices...),
		connected: make(map[*Device]bool),
	}
}

func (db *handleDB) dev(h bds.Handle) (*Device, error) {
	if int(h) >= len(db.devs) {
		return nil, fmt.Errorf("%w: handle %d", bds.ENotFound, h)
	}
	return db.devs[h], nil
}

func (db *handleDB) handleOf(d *Device) (bds.Handle, bool) {
	for i, dd := range db.devs {
		if dd == d {
			return bds.Handle(i), true
		}
	}
	return 0, false
}

func (d *Device) has(c bds.Capability) bool {
	for _, dc := range d.Caps {
		if dc == c {
			return true
		}
	}
	return false
}

func (db *handleDB) LocateHandles(c bds.Capability) ([]bds.Handle, error) {
	var hs []bds.Handle
	for i, d := range db.devs {
		if d.has(c) {
			hs = append(hs, bds.Handle(i))
		}
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: %s", bds.ENotFound, c)
	}
	return hs, nil
}

func (db *handleDB) AllHandles() []bds.Handle {
	hs := make([]bds.Handle, len(db.devs))
	for i := range hs {
		hs[i] = bds.Handle(i)
	}
	return hs
}

func (db *handleDB) DevicePath(h bds.Handle) (uefi.DevicePath, error) {
	d, err := db.dev(h)
	if err != nil {
		return nil, err
	}
	if len(d.path) == 0 {
		return nil, fmt.Errorf("%w: %s has no device path", bds.ENotFound, d.Name)
	}
	return d.path, nil
}

func (db *handleDB) ConnectController(h bds.Handle, recursive bool) error {
	d, err := db.dev(h)
	if err != nil {
		return err
	}
	if d.ConnectFail {
		return fmt.Errorf("%w: %s: no driver", bds.EDevice, d.Name)
	}
	if !db.connected[d] {
		db.connected[d] = true
		db.devs = append(db.devs, d.Children...)
		log.Verbosef("%s: %d children", d.Name, len(d.Children))
	}
	if recursive {
		for _, c := range d.Children {
			if ch, ok := db.handleOf(c); ok {
				if err = db.ConnectController(ch, true); err != nil {
					log.Verbosef("%s: %s", c.Name, err)
				}
			}
		}
	}
	return nil
}

func (db *handleDB) PciClassCode(h bds.Handle) (bds.PciClass, error) {
	d, err := db.dev(h)
	if err != nil {
		return bds.PciClass{}, err
	}
	if d.Class == nil {
		return bds.PciClass{}, fmt.Errorf("%w: %s has no config space", bds.EDevice, d.Name)
	}
	cc := *d.Class
	return bds.PciClass{Base: uint8(cc >> 16), Sub: uint8(cc >> 8), ProgIf: uint8(cc)}, nil
}

func (db *handleDB) NonDiscoverableType(h bds.Handle) (uuid.UUID, error) {
	d, err := db.dev(h)
	if err != nil {
		return uuid.Nil, err
	}
	t, ok := hostTypes[d.HostType]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s type", bds.ENotFound, d.Name)
	}
	return t, nil
}

func (db *handleDB) Description(h bds.Handle) string {
	if d, err := db.dev(h); err == nil {
		return d.Description
	}
	return ""
}

func (db *handleDB) LoadedImagePath() (uefi.DevicePath, error) {
	if db.m.ImageVolume == uuid.Nil {
		return nil, fmt.Errorf("image volume %w", bds.ENotFound)
	}
	return uefi.DevicePath{uefi.FvNode(db.m.ImageVolume)}, nil
}

// Present device whose path is a prefix of p. Longest match wins.
func (db *handleDB) deviceFor(p uefi.DevicePath) *Device {
	var best *Device
	for _, d := range db.devs {
		if len(d.path) == 0 || len(d.path) > len(p) || !p[:len(d.path)].Equal(d.path) {
			continue
		}
		if best == nil || len(d.path) > len(best.path) {
			best = d
		}
	}
	return best
}

// policy service over the device tree
type policy struct{ db *handleDB }

var _ bds.PolicyService = policy{}

const pciClassNetwork = 0x02

func (p policy) ConnectDeviceClass(class uuid.UUID) error {
	switch class {
	case guid.PolicyNetwork:
		for _, h := range p.db.AllHandles() {
			cc, err := p.db.PciClassCode(h)
			if err != nil || cc.Base != pciClassNetwork {
				continue
			}
			if err = p.db.ConnectController(h, true); err != nil {
				return err
			}
		}
		return nil
	case guid.PolicyConnectAll:
		for n := -1; n != len(p.db.devs); {
			n = len(p.db.devs)
			for _, h := range p.db.AllHandles() {
				_ = p.db.ConnectController(h, true)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: device class %s", bds.ENotFound, class)
}

// firmware volumes from the machine description
type volumes []*Volume

var _ bds.FirmwareVolumes = volumes(nil)

func (vs volumes) LocateVolume(p uefi.DevicePath) (bds.Volume, error) {
	if len(p) > 0 {
		if fv, ok := p[0].(*uefi.DppMediaPIWGFV); ok {
			name := fv.Name.ToStdEnc()
			for _, v := range vs {
				if v.Guid == name {
					return v, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: volume for %s", bds.ENotFound, p)
}

// EFI_FV_FILETYPE_APPLICATION
const fvFileTypeApp = 0x09

func (v *Volume) FileInfo(name uuid.UUID) (bds.FileInfo, error) {
	for _, f := range v.Files {
		if f == name {
			return bds.FileInfo{Size: 4096, Type: fvFileTypeApp}, nil
		}
	}
	return bds.FileInfo{}, fmt.Errorf("%w: %s in %s", bds.ENotFound, name, v.Guid)
}
