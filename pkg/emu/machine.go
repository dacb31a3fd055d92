// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package emu runs the boot flow against a machine described in yaml. The
// machine provides every service the boot flow consumes; a driver loop plays
// the part of the firmware core, rebooting the machine when it is reset.
package emu

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	fp "path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/capsule"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

var EMachine = errors.New("bad machine description")

// Machine is the yaml description of an emulated machine.
type Machine struct {
	Name    string    `yaml:"name"`
	Devices []*Device `yaml:"devices"`
	Volumes []*Volume `yaml:"volumes"`
	//volume the boot manager is loaded from; unset means the image path is unavailable
	ImageVolume uuid.UUID `yaml:"image-volume"`
	//whether a boot manager policy service is installed
	PolicyService bool `yaml:"policy-service"`
	//updatable firmware; empty means no esrt service
	Firmware []capsule.Resource `yaml:"firmware"`
	//directory holding capsules, relative to the machine file
	Capsules string `yaml:"capsules"`
	//horizontal resolution; 0 is a text-only console
	Display int `yaml:"display"`
	//keys typed during boot countdowns, one per boot
	Keys []platcfg.Key `yaml:"keys"`

	dir string
}

// Device is a node of the device tree. Children appear once it is
// connected.
type Device struct {
	Name string           `yaml:"name"`
	Caps []bds.Capability `yaml:"caps"`
	//appended to the parent's path
	Path []Node `yaml:"path"`
	//pci class code, as 0xBBSSPP
	Class *uint32 `yaml:"class"`
	//xhci, ehci, uhci or sdhc for non-discoverable devices
	HostType    string    `yaml:"host-type"`
	Description string    `yaml:"description"`
	ConnectFail bool      `yaml:"connect-fail"`
	Children    []*Device `yaml:"children"`
	//what happens when an option on this device is booted: "os" boots,
	//anything else fails
	Boot string `yaml:"boot"`

	path uefi.DevicePath
}

// Volume is a firmware volume: Fv(Guid), holding the named files.
type Volume struct {
	Guid  uuid.UUID   `yaml:"guid"`
	Files []uuid.UUID `yaml:"files"`
}

// Node is one device path node; exactly one field is set.
type Node struct {
	PciRoot  *uint32    `yaml:"pci-root"`
	Pci      *PciNode   `yaml:"pci"`
	MMIO     *MMIONode  `yaml:"mmio"`
	MAC      string     `yaml:"mac"`
	VendorHw *uuid.UUID `yaml:"vendor-hw"`
	Acpi     *uint32    `yaml:"acpi"` //HID
	HD       *uint32    `yaml:"hd"`   //partition number
	File     string     `yaml:"file"`
}

type PciNode struct {
	Dev uint8 `yaml:"dev"`
	Fn  uint8 `yaml:"fn"`
}

type MMIONode struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

func (n Node) efi() (uefi.EfiDevicePathProtocol, error) {
	switch {
	case n.PciRoot != nil:
		return uefi.PciRoot(*n.PciRoot), nil
	case n.Pci != nil:
		return &uefi.DppHwPci{Device: n.Pci.Dev, Function: n.Pci.Fn}, nil
	case n.MMIO != nil:
		return &uefi.DppHwMMap{MemType: 11, Start: n.MMIO.Start, End: n.MMIO.End}, nil
	case n.MAC != "":
		mac, err := net.ParseMAC(n.MAC)
		if err != nil {
			return nil, err
		}
		node := &uefi.DppMsgMAC{IfType: 1}
		copy(node.Mac[:], mac)
		return node, nil
	case n.VendorHw != nil:
		return uefi.VendorHw(*n.VendorHw), nil
	case n.Acpi != nil:
		return &uefi.DppAcpiDevPath{HID: *n.Acpi}, nil
	case n.HD != nil:
		return &uefi.DppMediaHDD{PartNum: *n.HD}, nil
	case n.File != "":
		return &uefi.DppMediaFilePath{PathName: n.File}, nil
	}
	return nil, fmt.Errorf("%w: empty path node", EMachine)
}

var hostTypes = map[string]uuid.UUID{
	"xhci": guid.NonDiscoverableXhci,
	"ehci": guid.NonDiscoverableEhci,
	"uhci": guid.NonDiscoverableUhci,
	"sdhc": guid.NonDiscoverableSdhc,
}

// Parse decodes and checks a machine description. dir is where relative
// paths in it are resolved.
func Parse(data []byte, dir string) (*Machine, error) {
	m := &Machine{dir: dir}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s", EMachine, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: name is required", EMachine)
	}
	if err := resolve(m.Devices, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a machine description from a file.
func Load(path string) (*Machine, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data, fp.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Computes full device paths and checks host types.
func resolve(devs []*Device, parent uefi.DevicePath) error {
	for _, d := range devs {
		if d.Name == "" {
			return fmt.Errorf("%w: device without name under %s", EMachine, parent)
		}
		d.path = parent
		for _, n := range d.Path {
			node, err := n.efi()
			if err != nil {
				return fmt.Errorf("device %s: %w", d.Name, err)
			}
			d.path = d.path.Append(node)
		}
		if _, ok := hostTypes[d.HostType]; d.HostType != "" && !ok {
			return fmt.Errorf("%w: device %s: unknown host type %q", EMachine, d.Name, d.HostType)
		}
		if err := resolve(d.Children, d.path); err != nil {
			return err
		}
	}
	return nil
}

// CapsuleDir is the capsule directory, or "" if none is configured.
func (m *Machine) CapsuleDir() string {
	if m.Capsules == "" || fp.IsAbs(m.Capsules) {
		return m.Capsules
	}
	return fp.Join(m.dir, m.Capsules)
}

// FindDevice returns the first device in the tree with the given name.
func (m *Machine) FindDevice(name string) *Device {
	var walk func([]*Device) *Device
	walk = func(devs []*Device) *Device {
		for _, d := range devs {
			if d.Name == name {
				return d
			}
			if c := walk(d.Children); c != nil {
				return c
			}
		}
		return nil
	}
	return walk(m.Devices)
}

func (d *Device) DevicePath() uefi.DevicePath { return d.path }
