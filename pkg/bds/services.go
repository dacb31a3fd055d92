// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// Handle identifies a device in a HandleDB. Values are only meaningful to the
// HandleDB that returned them.
type Handle uint

// Capability names a protocol a handle may expose.
type Capability string

const (
	CapPciRootBridge    Capability = "PciRootBridgeIo"
	CapPciIo            Capability = "PciIo"
	CapGraphicsOutput   Capability = "GraphicsOutput"
	CapNonDiscoverable  Capability = "NonDiscoverableDevice"
	CapOhci             Capability = "OhciDevice"
	CapBlockIo          Capability = "BlockIo"
	CapSimpleFileSystem Capability = "SimpleFileSystem"
	CapLoadFile         Capability = "LoadFile"
)

// PciClass is the class code register of a PCI function.
type PciClass struct {
	Base, Sub, ProgIf uint8
}

const pciClassDisplay = 0x03

func (c PciClass) IsDisplay() bool { return c.Base == pciClassDisplay }

// HandleDB is the enumeration and connection service.
type HandleDB interface {
	// Handles exposing c, in a stable order. None is ENotFound or an empty
	// list.
	LocateHandles(c Capability) ([]Handle, error)
	AllHandles() []Handle
	DevicePath(h Handle) (uefi.DevicePath, error)
	// Binds drivers to h. Unless recursive, only one level of children is
	// produced.
	ConnectController(h Handle, recursive bool) error
	// Reads the class code from the function's config space.
	PciClassCode(h Handle) (PciClass, error)
	// Type guid declared by a non-discoverable device.
	NonDiscoverableType(h Handle) (uuid.UUID, error)
	// Human readable name for a bootable device; "" if unknown.
	Description(h Handle) string
	// Path of the volume the boot manager was loaded from.
	LoadedImagePath() (uefi.DevicePath, error)
}

// OptionStore is the boot option persistence service. Satisfied by
// *bootmgr.Manager.
type OptionStore interface {
	LoadOptions() []*uefi.LoadOption
	LoadOption(num int) (*uefi.LoadOption, error)
	AddLoadOption(o *uefi.LoadOption, position int) error
	DeleteLoadOption(num int) error
	AddKeyOption(bootOption int, modifiers uint32, keys ...uefi.InputKey) (*uefi.KeyOption, error)
	RegisterContinueKey(modifiers uint32, keys ...uefi.InputKey) error
	IsContinueKey(modifiers uint32, keys ...uefi.InputKey) bool
	LookupKey(modifiers uint32, keys ...uefi.InputKey) *uefi.KeyOption
	FindBootManagerMenu(menuFile uuid.UUID) *uefi.LoadOption
	BootManagerMenu(fvPath uefi.DevicePath, menuFile uuid.UUID) (*uefi.LoadOption, error)
	UpdateConsoleVariable(c bootmgr.ConsoleVar, add, remove uefi.DevicePath) error
	RefreshAll(devs []bootmgr.BootableDevice) (added, removed int)
}

var _ OptionStore = (*bootmgr.Manager)(nil)

// FirmwareVolumes is the firmware volume content service.
type FirmwareVolumes interface {
	// Finds the volume whose device path is a prefix of p.
	LocateVolume(p uefi.DevicePath) (Volume, error)
}

type Volume interface {
	// Metadata only; the file is not read. ENotFound if absent.
	FileInfo(name uuid.UUID) (FileInfo, error)
}

type FileInfo struct {
	Size uint64
	Type uint8
}

// PolicyService connects whole classes of devices (network, everything).
type PolicyService interface {
	ConnectDeviceClass(class uuid.UUID) error
}

// CapsuleRecord is an update payload handed over by an earlier boot phase.
type CapsuleRecord struct {
	//where the record was found, for logging
	Source string
	Image  []byte
}

// CapsuleSource produces the capsule records of this boot. Each call to
// Records starts over at the first record.
type CapsuleSource interface {
	Records() CapsuleIter
}

// CapsuleIter yields records in discovery order; io.EOF after the last.
type CapsuleIter interface {
	Next() (*CapsuleRecord, error)
}

type CapsuleProcessor interface {
	ProcessCapsule(r *CapsuleRecord) error
}

// EsrtService keeps the firmware resource table in sync with the platform's
// updatable firmware.
type EsrtService interface {
	SyncEsrtFmp() error
}

// Display is the console output service.
type Display interface {
	EnableLogo() error
	// Horizontal and vertical resolution of the current graphics mode.
	Resolution() (h, v int, err error)
	PrintXY(x, y int, s string) error
	Print(s string)
	// Draws a progress bar at pct percent with title beneath it.
	UpdateProgress(title string, pct int) error
}

type Event string

const (
	EventEndOfDxe     Event = "EndOfDxe"
	EventAfterConsole Event = "PlatformBmAfterConsole"
)

// Events signals event groups to the rest of the firmware.
type Events interface {
	Signal(e Event)
	DispatchDeferredImages() error
}

// Resetter performs a cold reset. ResetCold does not return on real
// hardware.
type Resetter interface {
	ResetCold()
}

// Booter launches an option. Boot returns only if the option failed to boot
// or exited.
type Booter interface {
	Boot(o *uefi.LoadOption) error
}

// DefaultOption is a platform default boot option and its optional hotkey.
type DefaultOption struct {
	Option *uefi.LoadOption
	Key    uefi.InputKey
}

// PlatformDefaults supplies the platform default boot options.
type PlatformDefaults interface {
	PlatformBootOptions() ([]DefaultOption, error)
}
