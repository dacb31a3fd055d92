// Copyright (C) 2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package uefi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// EfiDevicePathProtocolHdr - all node variants start with the following three
// fields:
//
//	typedef struct _EFI_DEVICE_PATH_PROTOCOL {
//	    UINT8 Type;
//	    UINT8 SubType;
//	    UINT8 Length[2];
//	} EFI_DEVICE_PATH_PROTOCOL;
//
// Length includes the header.
//
// UEFI Spec 2.8A, pg 286 +
type EfiDevicePathProtocolHdr struct {
	ProtoType    EfiDevPathProtoType
	ProtoSubType EfiDevPathProtoSubType
	Length       uint16
}

const hdrLen = 4

func mkHdr(t EfiDevPathProtoType, st uint8, dataLen int) EfiDevicePathProtocolHdr {
	return EfiDevicePathProtocolHdr{
		ProtoType:    t,
		ProtoSubType: EfiDevPathProtoSubType(st),
		Length:       uint16(hdrLen + dataLen),
	}
}

type EfiDevPathProtoType uint8

const (
	DppTypeHw        EfiDevPathProtoType = iota + 1 //0x01, pg 288
	DppTypeACPI                                     //0x02, pg 290
	DppTypeMessaging                                //0x03, pg 293
	DppTypeMedia                                    //0x04, pg 319
	DppTypeBBS                                      //0x05, pg 287
	DppTypeEnd       EfiDevPathProtoType = 0x7f
)

func (e EfiDevPathProtoType) String() string {
	switch e {
	case DppTypeHw:
		return "HW"
	case DppTypeACPI:
		return "ACPI"
	case DppTypeMessaging:
		return "Messaging"
	case DppTypeMedia:
		return "Media"
	case DppTypeBBS:
		return "BBS"
	case DppTypeEnd:
		return "End"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(e))
	}
}

type EfiDevPathProtoSubType uint8

type EfiDppEndSubType EfiDevPathProtoSubType

const (
	//DppTypeEnd, pg 287-288
	DppETypeEndInstance EfiDppEndSubType = 0x01 //separates instances of a multi-instance path
	DppETypeEndEntire   EfiDppEndSubType = 0xff
)

func (e EfiDppEndSubType) String() string {
	switch e {
	case DppETypeEndEntire:
		return "End"
	case DppETypeEndInstance:
		return "End one, start another"
	default:
		return fmt.Sprintf("UNKNOWN-0x%x", uint8(e))
	}
}

// An EfiDevicePathProtocol is one node of a device path. Nodes have value
// semantics: they are never modified after construction.
type EfiDevicePathProtocol interface {
	Header() EfiDevicePathProtocolHdr

	//subtype as human readable
	ProtoSubTypeStr() string

	//node as human readable, in the style of the UEFI shell
	String() string

	//node content, following the header
	Data() []byte
}

// Encodes a single node, including its header.
func NodeBytes(n EfiDevicePathProtocol) []byte {
	h := n.Header()
	d := n.Data()
	b := make([]byte, hdrLen, hdrLen+len(d))
	b[0] = byte(h.ProtoType)
	b[1] = byte(h.ProtoSubType)
	binary.LittleEndian.PutUint16(b[2:], uint16(hdrLen+len(d)))
	return append(b, d...)
}

func endNode(st EfiDppEndSubType) []byte {
	return []byte{byte(DppTypeEnd), byte(st), hdrLen, 0}
}

// A node of a type/subtype that has no dedicated decoder. Round-trips
// unchanged.
type EfiDevPathRaw struct {
	Hdr EfiDevicePathProtocolHdr
	Raw []byte
}

var _ EfiDevicePathProtocol = (*EfiDevPathRaw)(nil)

func (e *EfiDevPathRaw) Header() EfiDevicePathProtocolHdr {
	return mkHdr(e.Hdr.ProtoType, uint8(e.Hdr.ProtoSubType), len(e.Raw))
}
func (e *EfiDevPathRaw) ProtoSubTypeStr() string {
	return fmt.Sprintf("0x%x", uint8(e.Hdr.ProtoSubType))
}
func (e *EfiDevPathRaw) String() string {
	return fmt.Sprintf("Path(%d,%d,%x)", uint8(e.Hdr.ProtoType), uint8(e.Hdr.ProtoSubType), e.Raw)
}
func (e *EfiDevPathRaw) Data() []byte { return e.Raw }

// DevicePath is a single device path instance. The terminating End node is
// implicit: it is added by Bytes() and consumed by ParseDevicePath().
type DevicePath []EfiDevicePathProtocol

// Encodes the path, terminated with an End Entire node.
func (p DevicePath) Bytes() []byte {
	var buf bytes.Buffer
	p.writeNodes(&buf)
	buf.Write(endNode(DppETypeEndEntire))
	return buf.Bytes()
}

func (p DevicePath) writeNodes(buf *bytes.Buffer) {
	for _, n := range p {
		buf.Write(NodeBytes(n))
	}
}

// Two paths are equal iff their encodings are byte-identical.
func (p DevicePath) Equal(o DevicePath) bool {
	return bytes.Equal(p.Bytes(), o.Bytes())
}

// True if the leading nodes of p encode identically to prefix.
func (p DevicePath) HasPrefix(prefix DevicePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if !bytes.Equal(NodeBytes(p[i]), NodeBytes(prefix[i])) {
			return false
		}
	}
	return true
}

// Returns a new path consisting of p followed by nodes. p is not modified.
func (p DevicePath) Append(nodes ...EfiDevicePathProtocol) DevicePath {
	np := make(DevicePath, 0, len(p)+len(nodes))
	np = append(np, p...)
	return append(np, nodes...)
}

func (p DevicePath) String() string {
	strs := make([]string, len(p))
	for i, n := range p {
		strs[i] = n.String()
	}
	return strings.Join(strs, "/")
}

// Decodes a single-instance device path; the End Entire node must be the last
// thing in 'in'.
func ParseDevicePath(in []byte) (DevicePath, error) {
	p, st, rest, err := parseInstance(in)
	if err != nil {
		return nil, err
	}
	if st != DppETypeEndEntire {
		log.Verbosef("device path: unexpected end subtype %s", st)
		return nil, EParse
	}
	if len(rest) != 0 {
		log.Verbosef("device path: remaining bytes %x", rest)
		return nil, EParse
	}
	return p, nil
}

// Decodes a multi-instance device path such as the ConIn variable. Instances
// are separated by End Instance nodes.
func ParseMultiInstance(in []byte) ([]DevicePath, error) {
	var paths []DevicePath
	b := in
	for len(b) > 0 {
		p, st, rest, err := parseInstance(b)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
		b = rest
		if st == DppETypeEndEntire {
			if len(b) != 0 {
				log.Verbosef("multi-instance path: remaining bytes %x", b)
				return nil, EParse
			}
			return paths, nil
		}
	}
	if len(in) == 0 {
		return nil, nil
	}
	log.Verbosef("multi-instance path incorrectly terminated")
	return nil, EParse
}

// Encodes instances into a multi-instance path. Returns nil for no instances.
func MultiInstanceBytes(paths []DevicePath) []byte {
	var buf bytes.Buffer
	for i, p := range paths {
		p.writeNodes(&buf)
		if i == len(paths)-1 {
			buf.Write(endNode(DppETypeEndEntire))
		} else {
			buf.Write(endNode(DppETypeEndInstance))
		}
	}
	return buf.Bytes()
}

type nodeKey struct {
	t  EfiDevPathProtoType
	st uint8
}

type nodeParser func(b []byte) (EfiDevicePathProtocol, error)

// populated by init() in the files for each node type
var nodeParsers = make(map[nodeKey]nodeParser)

func registerParser(t EfiDevPathProtoType, st uint8, p nodeParser) {
	nodeParsers[nodeKey{t, st}] = p
}

// Parses nodes up to and including an End node; returns the End subtype and
// whatever follows it.
func parseInstance(in []byte) (p DevicePath, st EfiDppEndSubType, rest []byte, err error) {
	b := in
	for len(b) >= hdrLen {
		h := EfiDevicePathProtocolHdr{
			ProtoType:    EfiDevPathProtoType(b[0]),
			ProtoSubType: EfiDevPathProtoSubType(b[1]),
			Length:       binary.LittleEndian.Uint16(b[2:4]),
		}
		if h.Length < hdrLen {
			log.Verbosef("invalid node - len %d remain %d: 0x%x", h.Length, len(b), b)
			return nil, 0, nil, EParse
		}
		if len(b) < int(h.Length) {
			log.Verbosef("undersize %s: %d < %d in %x", h.ProtoType, len(b), h.Length, in)
			return nil, 0, nil, EParse
		}
		data := b[hdrLen:h.Length]
		b = b[h.Length:]
		if h.ProtoType == DppTypeEnd {
			return p, EfiDppEndSubType(h.ProtoSubType), b, nil
		}
		var n EfiDevicePathProtocol
		if parse, ok := nodeParsers[nodeKey{h.ProtoType, uint8(h.ProtoSubType)}]; ok {
			n, err = parse(data)
			if err != nil {
				log.Verbosef("%s 0x%x: %s", h.ProtoType, uint8(h.ProtoSubType), err)
				return nil, 0, nil, err
			}
		} else {
			raw := make([]byte, len(data))
			copy(raw, data)
			n = &EfiDevPathRaw{Hdr: h, Raw: raw}
		}
		if Verbose {
			log.Verbosef("%s %s: %s", h.ProtoType, n.ProtoSubTypeStr(), n)
		}
		p = append(p, n)
	}
	log.Verbosef("device path incorrectly terminated")
	return nil, 0, nil, EParse
}

// checks the node data length for fixed-size nodes
func wantLen(b []byte, n int) error {
	if len(b) != n {
		return fmt.Errorf("%w: node data len %d, want %d", EParse, len(b), n)
	}
	return nil
}

/* UEFI Spec 2.8A
Boot0007* UEFI OS       HD(1,GPT,81635ccd-1b4f-4d3f-b7b7-f78a5b029f35,0x40,0xf000)/File(\EFI\BOOT\BOOTX64.EFI)..BO

00000000  01 00 00 00 5e 00 55 00  45 00 46 00 49 00 20 00  |....^.U.E.F.I. .|
00000010  4f 00 53 00 00 00[04 01  2a 00 01 00 00 00 40 00  |O.S.....*.....@.|
00000020  00 00 00 00 00 00 00 f0  00 00 00 00 00 00 cd 5c  |...............\|
00000030  63 81 4f 1b 3f 4d b7 b7  f7 8a 5b 02 9f 35 02 02  |c.O.?M....[..5..|
00000040  04 04 30 00 5c 00 45 00  46 00 49 00 5c 00 42 00  |..0.\.E.F.I.\.B.|
00000050  4f 00 4f 00 54 00 5c 00  42 00 4f 00 4f 00 54 00  |O.O.T.\.B.O.O.T.|
00000060  58 00 36 00 34 00 2e 00  45 00 46 00 49 00 00 00  |X.6.4...E.F.I...|
00000070  7f ff 04 00]00 00 42 4f                           |......BO|
                     ^     ^     ][ = end, beginning of path
*/
