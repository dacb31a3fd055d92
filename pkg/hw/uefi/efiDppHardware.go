// Copyright (C) 2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package uefi

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/purecloudlabs/platformbm/pkg/guid"
)

type EfiDppHwSubType EfiDevPathProtoSubType

const (
	DppHTypePCI EfiDppHwSubType = iota + 1
	DppHTypePCCARD
	DppHTypeMMap
	DppHTypeVendor
	DppHTypeCtrl
	DppHTypeBMC
)

func (s EfiDppHwSubType) String() string {
	switch s {
	case DppHTypePCI:
		return "PCI"
	case DppHTypePCCARD:
		return "PCCARD"
	case DppHTypeMMap:
		return "MMap"
	case DppHTypeVendor:
		return "Vendor"
	case DppHTypeCtrl:
		return "Control"
	case DppHTypeBMC:
		return "BMC"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(s))
	}
}

func init() {
	registerParser(DppTypeHw, uint8(DppHTypePCI), parseDppHwPci)
	registerParser(DppTypeHw, uint8(DppHTypeMMap), parseDppHwMMap)
	registerParser(DppTypeHw, uint8(DppHTypeVendor), parseDppHwVendor)
}

// struct in EfiDevicePathProtocol for DppHTypePCI
type DppHwPci struct {
	Function, Device uint8
}

var _ EfiDevicePathProtocol = (*DppHwPci)(nil)

func parseDppHwPci(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 2); err != nil {
		return nil, err
	}
	return &DppHwPci{Function: b[0], Device: b[1]}, nil
}
func (e *DppHwPci) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeHw, uint8(DppHTypePCI), 2)
}
func (e *DppHwPci) ProtoSubTypeStr() string { return DppHTypePCI.String() }
func (e *DppHwPci) String() string {
	return fmt.Sprintf("Pci(0x%x,0x%x)", e.Device, e.Function)
}
func (e *DppHwPci) Data() []byte { return []byte{e.Function, e.Device} }

// struct in EfiDevicePathProtocol for DppHTypeMMap. Used for firmware volumes
// identified by location rather than name.
type DppHwMMap struct {
	MemType    uint32
	Start, End uint64
}

var _ EfiDevicePathProtocol = (*DppHwMMap)(nil)

func parseDppHwMMap(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 20); err != nil {
		return nil, err
	}
	return &DppHwMMap{
		MemType: binary.LittleEndian.Uint32(b[:4]),
		Start:   binary.LittleEndian.Uint64(b[4:12]),
		End:     binary.LittleEndian.Uint64(b[12:20]),
	}, nil
}
func (e *DppHwMMap) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeHw, uint8(DppHTypeMMap), 20)
}
func (e *DppHwMMap) ProtoSubTypeStr() string { return DppHTypeMMap.String() }
func (e *DppHwMMap) String() string {
	return fmt.Sprintf("MemoryMapped(0x%x,0x%x,0x%x)", e.MemType, e.Start, e.End)
}
func (e *DppHwMMap) Data() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint32(b, e.MemType)
	binary.LittleEndian.PutUint64(b[4:], e.Start)
	binary.LittleEndian.PutUint64(b[12:], e.End)
	return b
}

// struct in EfiDevicePathProtocol for DppHTypeVendor
type DppHwVendor struct {
	Guid       guid.MixedGuid
	VendorData []byte
}

var _ EfiDevicePathProtocol = (*DppHwVendor)(nil)

func VendorHw(u uuid.UUID) *DppHwVendor { return &DppHwVendor{Guid: guid.FromStdEnc(u)} }

func parseDppHwVendor(b []byte) (EfiDevicePathProtocol, error) {
	if len(b) < 16 {
		return nil, EParse
	}
	v := &DppHwVendor{Guid: guid.FromBytes(b)}
	if len(b) > 16 {
		v.VendorData = append([]byte(nil), b[16:]...)
	}
	return v, nil
}
func (e *DppHwVendor) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeHw, uint8(DppHTypeVendor), 16+len(e.VendorData))
}
func (e *DppHwVendor) ProtoSubTypeStr() string { return DppHTypeVendor.String() }
func (e *DppHwVendor) String() string {
	if len(e.VendorData) > 0 {
		return fmt.Sprintf("VenHw(%s,%x)", e.Guid, e.VendorData)
	}
	return fmt.Sprintf("VenHw(%s)", e.Guid)
}
func (e *DppHwVendor) Data() []byte {
	return append(append([]byte(nil), e.Guid[:]...), e.VendorData...)
}
