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
	"strings"

	"github.com/google/uuid"
	"github.com/purecloudlabs/platformbm/pkg/guid"
)

type EfiDppMediaSubType EfiDevPathProtoSubType

const (
	//DppTypeMedia, pg 319 +
	DppMTypeHdd      EfiDppMediaSubType = iota + 1 //0x01
	DppMTypeCd                                     //0x02
	DppMTypeVendor                                 //0x03
	DppMTypeFilePath                               //0x04 //p321
	DppMTypeMedia                                  //0x05
	DppMTypePIWGFF                                 //0x06 //firmware file
	DppMTypePIWGFV                                 //0x07 //firmware volume
	DppMTypeRelOff                                 //0x08
	DppMTypeRAM                                    //0x09
)

func (e EfiDppMediaSubType) String() string {
	switch e {
	case DppMTypeHdd:
		return "HDD"
	case DppMTypeCd:
		return "CD"
	case DppMTypeVendor:
		return "Vendor"
	case DppMTypeFilePath:
		return "FilePath"
	case DppMTypeMedia:
		return "Media"
	case DppMTypePIWGFF:
		return "PIWG Firmware File"
	case DppMTypePIWGFV:
		return "PIWG Firmware Volume"
	case DppMTypeRelOff:
		return "Relative Offset"
	case DppMTypeRAM:
		return "RAMDisk"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(e))
	}
}

func init() {
	registerParser(DppTypeMedia, uint8(DppMTypeHdd), parseDppMediaHdd)
	registerParser(DppTypeMedia, uint8(DppMTypeFilePath), parseDppMediaFilePath)
	registerParser(DppTypeMedia, uint8(DppMTypePIWGFF), parseDppMediaPIWGFF)
	registerParser(DppTypeMedia, uint8(DppMTypePIWGFV), parseDppMediaPIWGFV)
}

// struct in EfiDevicePathProtocol for DppMTypeHdd
type DppMediaHDD struct {
	PartNum   uint32         //index into partition table for MBR or GPT; 0 indicates entire disk
	PartStart uint64         //starting LBA
	PartSize  uint64         //size in LB's
	PartSig   guid.MixedGuid //format determined by SigType below. unused bytes must be 0x0.
	PartFmt   uint8          //0x01 for MBR, 0x02 for GPT
	SigType   uint8          //0x00 - none; 0x01 - 32bit MBR sig (@ 0x1b8); 0x02 - GUID
}

var _ EfiDevicePathProtocol = (*DppMediaHDD)(nil)

func parseDppMediaHdd(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 38); err != nil {
		return nil, err
	}
	return &DppMediaHDD{
		PartNum:   binary.LittleEndian.Uint32(b[:4]),
		PartStart: binary.LittleEndian.Uint64(b[4:12]),
		PartSize:  binary.LittleEndian.Uint64(b[12:20]),
		PartSig:   guid.FromBytes(b[20:36]),
		PartFmt:   b[36],
		SigType:   b[37],
	}, nil
}

func (e *DppMediaHDD) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMedia, uint8(DppMTypeHdd), 38)
}
func (e *DppMediaHDD) ProtoSubTypeStr() string { return DppMTypeHdd.String() }
func (e *DppMediaHDD) String() string {
	//             (part#,pttype,guid,begin,length)
	return fmt.Sprintf("HD(%d,%s,%s,0x%x,0x%x)", e.PartNum, e.pttype(), e.sig(), e.PartStart, e.PartSize)
}
func (e *DppMediaHDD) Data() []byte {
	b := make([]byte, 38)
	binary.LittleEndian.PutUint32(b, e.PartNum)
	binary.LittleEndian.PutUint64(b[4:], e.PartStart)
	binary.LittleEndian.PutUint64(b[12:], e.PartSize)
	copy(b[20:36], e.PartSig[:])
	b[36], b[37] = e.PartFmt, e.SigType
	return b
}

// return the partition table type as a string
func (e *DppMediaHDD) pttype() string {
	switch e.PartFmt {
	case 1:
		return "MBR"
	case 2:
		return "GPT"
	default:
		return "UNKNOWN"
	}
}

// return the signature as a string
func (e *DppMediaHDD) sig() string {
	switch e.SigType {
	case 1: //32-bit MBR sig
		return fmt.Sprintf("%x", binary.LittleEndian.Uint32(e.PartSig[:4]))
	case 2: //GUID
		return e.PartSig.String()
	default:
		return "(NO SIG)"
	}
}

// struct in EfiDevicePathProtocol for DppMTypeFilePath. Path uses backslashes,
// as stored.
type DppMediaFilePath struct {
	PathName string
}

var _ EfiDevicePathProtocol = (*DppMediaFilePath)(nil)

func parseDppMediaFilePath(b []byte) (EfiDevicePathProtocol, error) {
	path, err := DecodeUTF16(b)
	if err != nil {
		return nil, err
	}
	//remove null termination
	return &DppMediaFilePath{PathName: strings.TrimRight(path, "\000")}, nil
}

func (e *DppMediaFilePath) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMedia, uint8(DppMTypeFilePath), len(e.Data()))
}
func (e *DppMediaFilePath) ProtoSubTypeStr() string { return DppMTypeFilePath.String() }
func (e *DppMediaFilePath) String() string          { return fmt.Sprintf("File(%s)", e.PathName) }
func (e *DppMediaFilePath) Data() []byte            { return EncodeUTF16z(e.PathName) }

// struct in EfiDevicePathProtocol for DppMTypePIWGFV; names a firmware volume
type DppMediaPIWGFV struct {
	Name guid.MixedGuid
}

var _ EfiDevicePathProtocol = (*DppMediaPIWGFV)(nil)

func FvNode(u uuid.UUID) *DppMediaPIWGFV { return &DppMediaPIWGFV{Name: guid.FromStdEnc(u)} }

func parseDppMediaPIWGFV(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 16); err != nil {
		return nil, err
	}
	return &DppMediaPIWGFV{Name: guid.FromBytes(b)}, nil
}
func (e *DppMediaPIWGFV) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMedia, uint8(DppMTypePIWGFV), 16)
}
func (e *DppMediaPIWGFV) ProtoSubTypeStr() string { return DppMTypePIWGFV.String() }
func (e *DppMediaPIWGFV) String() string          { return fmt.Sprintf("Fv(%s)", e.Name) }
func (e *DppMediaPIWGFV) Data() []byte            { return append([]byte(nil), e.Name[:]...) }

// struct in EfiDevicePathProtocol for DppMTypePIWGFF; names a file within the
// firmware volume given by the previous node
type DppMediaPIWGFF struct {
	Name guid.MixedGuid
}

var _ EfiDevicePathProtocol = (*DppMediaPIWGFF)(nil)

func FvFileNode(u uuid.UUID) *DppMediaPIWGFF { return &DppMediaPIWGFF{Name: guid.FromStdEnc(u)} }

func parseDppMediaPIWGFF(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 16); err != nil {
		return nil, err
	}
	return &DppMediaPIWGFF{Name: guid.FromBytes(b)}, nil
}
func (e *DppMediaPIWGFF) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMedia, uint8(DppMTypePIWGFF), 16)
}
func (e *DppMediaPIWGFF) ProtoSubTypeStr() string { return DppMTypePIWGFF.String() }
func (e *DppMediaPIWGFF) String() string          { return fmt.Sprintf("FvFile(%s)", e.Name) }
func (e *DppMediaPIWGFF) Data() []byte            { return append([]byte(nil), e.Name[:]...) }

// Returns true if n is of the given type and subtype.
func IsNode(n EfiDevicePathProtocol, t EfiDevPathProtoType, st uint8) bool {
	if n == nil {
		return false
	}
	h := n.Header()
	return h.ProtoType == t && uint8(h.ProtoSubType) == st
}
