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

type EfiDppMsgSubType EfiDevPathProtoSubType

const (
	DppMsgTypeATAPI      EfiDppMsgSubType = iota + 1
	DppMsgTypeSCSI                        //2
	DppMsgTypeFibreCh                     //3
	DppMsgTypeFirewire                    //4
	DppMsgTypeUSB                         //5
	DppMsgTypeIIO                         //6
	_                                     //7
	_                                     //8
	DppMsgTypeInfiniband                  //9
	DppMsgTypeVendor                      //10 //uart flow control, sas, terminal type are vendor subtypes
	DppMsgTypeMAC                         //11
	DppMsgTypeIP4                         //12
	DppMsgTypeIP6                         //13
	DppMsgTypeUART                        //14
	DppMsgTypeUSBClass                    //15
)

func (e EfiDppMsgSubType) String() string {
	switch e {
	case DppMsgTypeATAPI:
		return "ATAPI"
	case DppMsgTypeSCSI:
		return "SCSI"
	case DppMsgTypeFibreCh:
		return "Fibre Channel"
	case DppMsgTypeFirewire:
		return "1394"
	case DppMsgTypeUSB:
		return "USB"
	case DppMsgTypeIIO:
		return "I20"
	case DppMsgTypeInfiniband:
		return "Infiniband"
	case DppMsgTypeVendor:
		return "Vendor"
	case DppMsgTypeMAC:
		return "MAC"
	case DppMsgTypeIP4:
		return "IPv4"
	case DppMsgTypeIP6:
		return "IPv6"
	case DppMsgTypeUART:
		return "UART"
	case DppMsgTypeUSBClass:
		return "USB Class"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(e))
	}
}

func init() {
	registerParser(DppTypeMessaging, uint8(DppMsgTypeMAC), parseDppMsgMAC)
	registerParser(DppTypeMessaging, uint8(DppMsgTypeUART), parseDppMsgUART)
	registerParser(DppTypeMessaging, uint8(DppMsgTypeVendor), parseDppMsgVendor)
	registerParser(DppTypeMessaging, uint8(DppMsgTypeUSBClass), parseDppMsgUSBClass)
}

// pg 300
type DppMsgMAC struct {
	Mac    [32]byte //0-padded
	IfType uint8    //RFC3232; ethernet is 1
}

var _ EfiDevicePathProtocol = (*DppMsgMAC)(nil)

func parseDppMsgMAC(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 33); err != nil {
		return nil, err
	}
	mac := &DppMsgMAC{IfType: b[32]}
	copy(mac.Mac[:], b[:32])
	return mac, nil
}

func (e *DppMsgMAC) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMessaging, uint8(DppMsgTypeMAC), 33)
}
func (e *DppMsgMAC) ProtoSubTypeStr() string { return DppMsgTypeMAC.String() }
func (e *DppMsgMAC) String() string {
	switch e.IfType {
	case 0, 1:
		return fmt.Sprintf("MAC(%x,0x%x)", e.Mac[:6], e.IfType)
	default:
		return fmt.Sprintf("MAC(%x,0x%x)", e.Mac, e.IfType)
	}
}
func (e *DppMsgMAC) Data() []byte { return append(append([]byte(nil), e.Mac[:]...), e.IfType) }

// UART parity values
const (
	ParityDefault uint8 = iota
	ParityNone
	ParityEven
	ParityOdd
	ParityMark
	ParitySpace
)

// UART stop bit values
const (
	StopBitsDefault uint8 = iota
	StopBits1
	StopBits15
	StopBits2
)

// pg 305
type DppMsgUART struct {
	BaudRate uint64
	DataBits uint8
	Parity   uint8
	StopBits uint8
}

var _ EfiDevicePathProtocol = (*DppMsgUART)(nil)

func parseDppMsgUART(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 15); err != nil {
		return nil, err
	}
	//first 4 bytes reserved
	return &DppMsgUART{
		BaudRate: binary.LittleEndian.Uint64(b[4:12]),
		DataBits: b[12],
		Parity:   b[13],
		StopBits: b[14],
	}, nil
}

func (e *DppMsgUART) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMessaging, uint8(DppMsgTypeUART), 15)
}
func (e *DppMsgUART) ProtoSubTypeStr() string { return DppMsgTypeUART.String() }
func (e *DppMsgUART) String() string {
	parity := "x"
	if int(e.Parity) < len("DNEOMS") {
		parity = string("DNEOMS"[e.Parity])
	}
	stop := "x"
	switch e.StopBits {
	case StopBitsDefault:
		stop = "D"
	case StopBits1:
		stop = "1"
	case StopBits15:
		stop = "1.5"
	case StopBits2:
		stop = "2"
	}
	return fmt.Sprintf("Uart(%d,%d,%s,%s)", e.BaudRate, e.DataBits, parity, stop)
}
func (e *DppMsgUART) Data() []byte {
	b := make([]byte, 15)
	binary.LittleEndian.PutUint64(b[4:], e.BaudRate)
	b[12], b[13], b[14] = e.DataBits, e.Parity, e.StopBits
	return b
}

// pg 306; also used to declare a terminal type
type DppMsgVendor struct {
	Guid       guid.MixedGuid
	VendorData []byte
}

var _ EfiDevicePathProtocol = (*DppMsgVendor)(nil)

func VendorMsg(u uuid.UUID) *DppMsgVendor { return &DppMsgVendor{Guid: guid.FromStdEnc(u)} }

func parseDppMsgVendor(b []byte) (EfiDevicePathProtocol, error) {
	if len(b) < 16 {
		return nil, EParse
	}
	v := &DppMsgVendor{Guid: guid.FromBytes(b)}
	if len(b) > 16 {
		v.VendorData = append([]byte(nil), b[16:]...)
	}
	return v, nil
}
func (e *DppMsgVendor) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMessaging, uint8(DppMsgTypeVendor), 16+len(e.VendorData))
}
func (e *DppMsgVendor) ProtoSubTypeStr() string { return DppMsgTypeVendor.String() }
func (e *DppMsgVendor) String() string {
	if len(e.VendorData) == 0 {
		switch e.Guid.ToStdEnc() {
		case guid.TtyTerm:
			return "VenTtyTerm()"
		case guid.VT100:
			return "VenVt100()"
		case guid.PcAnsi:
			return "VenPcAnsi()"
		}
		return fmt.Sprintf("VenMsg(%s)", e.Guid)
	}
	return fmt.Sprintf("VenMsg(%s,%x)", e.Guid, e.VendorData)
}
func (e *DppMsgVendor) Data() []byte {
	return append(append([]byte(nil), e.Guid[:]...), e.VendorData...)
}

// matches any id in DppMsgUSBClass
const UsbAnyID uint16 = 0xffff

// pg 302. A short-form path matching any usb device of the given class.
type DppMsgUSBClass struct {
	VendorID, ProductID       uint16
	Class, SubClass, Protocol uint8
}

var _ EfiDevicePathProtocol = (*DppMsgUSBClass)(nil)

func parseDppMsgUSBClass(b []byte) (EfiDevicePathProtocol, error) {
	if err := wantLen(b, 7); err != nil {
		return nil, err
	}
	return &DppMsgUSBClass{
		VendorID:  binary.LittleEndian.Uint16(b[:2]),
		ProductID: binary.LittleEndian.Uint16(b[2:4]),
		Class:     b[4],
		SubClass:  b[5],
		Protocol:  b[6],
	}, nil
}
func (e *DppMsgUSBClass) Header() EfiDevicePathProtocolHdr {
	return mkHdr(DppTypeMessaging, uint8(DppMsgTypeUSBClass), 7)
}
func (e *DppMsgUSBClass) ProtoSubTypeStr() string { return DppMsgTypeUSBClass.String() }
func (e *DppMsgUSBClass) String() string {
	return fmt.Sprintf("UsbClass(0x%x,0x%x,0x%x,0x%x,0x%x)", e.VendorID, e.ProductID, e.Class, e.SubClass, e.Protocol)
}
func (e *DppMsgUSBClass) Data() []byte {
	b := make([]byte, 7)
	binary.LittleEndian.PutUint16(b, e.VendorID)
	binary.LittleEndian.PutUint16(b[2:], e.ProductID)
	b[4], b[5], b[6] = e.Class, e.SubClass, e.Protocol
	return b
}
