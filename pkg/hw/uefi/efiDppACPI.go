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
)

type EfiDppACPISubType EfiDevPathProtoSubType

const (
	DppAcpiTypeDevPath EfiDppACPISubType = iota + 1
	DppAcpiTypeExpandedDevPath
	DppAcpiTypeADR
	DppAcpiTypeNVDIMM
)

func (e EfiDppACPISubType) String() string {
	switch e {
	case DppAcpiTypeDevPath:
		return "Device Path"
	case DppAcpiTypeExpandedDevPath:
		return "Expanded Device Path"
	case DppAcpiTypeADR:
		return "_ADR"
	case DppAcpiTypeNVDIMM:
		return "NVDIMM"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(e))
	}
}

// compressed EISA ids, as stored in _HID
const (
	PnpPciRoot  uint32 = 0x0a0341d0 //PNP0A03
	PnpPcieRoot uint32 = 0x0a0841d0 //PNP0A08
)

func init() {
	registerParser(DppTypeACPI, uint8(DppAcpiTypeDevPath), parseDppAcpiDevPath)
}

type DppAcpiDevPath struct {
	HID, UID uint32
}

var _ EfiDevicePathProtocol = (*DppAcpiDevPath)(nil)

// PciRoot(uid)
func PciRoot(uid uint32) *DppAcpiDevPath { return &DppAcpiDevPath{HID: PnpPciRoot, UID: uid} }

func parseDppAcpiDevPath(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 8); err != nil {
		return nil, err
	}
	return &DppAcpiDevPath{
		HID: binary.LittleEndian.Uint32(b[:4]),
		UID: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

func (e *DppAcpiDevPath) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeACPI, uint8(DppAcpiTypeDevPath), 8)
}
func (e *DppAcpiDevPath) ProtoSubTypeStr() string { return DppAcpiTypeDevPath.String() }
func (e *DppAcpiDevPath) String() string {
	switch e.HID {
	case PnpPciRoot:
		return fmt.Sprintf("PciRoot(0x%x)", e.UID)
	case PnpPcieRoot:
		return fmt.Sprintf("PcieRoot(0x%x)", e.UID)
	}
	return fmt.Sprintf("Acpi(0x%x,0x%x)", e.HID, e.UID)
}
func (e *DppAcpiDevPath) Data() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, e.HID)
	binary.LittleEndian.PutUint32(b[4:], e.UID)
	return b
}
