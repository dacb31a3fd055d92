// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package capsule provides a directory-backed source of firmware update
// capsules, a decoder for FMP capsules, and an update tracker (ESRT) kept in
// a variable store.
package capsule

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
)

var (
	EParse       = errors.New("malformed capsule")
	EUnsupported = errors.New("unsupported capsule")
)

// FmpCapsule is the capsule guid of firmware management protocol capsules.
var FmpCapsule = uuid.MustParse("6dcbd5ed-e82d-4c44-bda1-7194199ad92a")

const (
	capsuleHeaderSize  = 28
	fmpHeaderSize      = 8
	imageHeaderV1Size  = 32
	payloadHeaderSize  = 16
	payloadSignature   = 0x3153534d //MSS1
	fmpCapsuleVersion  = 1
	imageHeaderVersion = 3
)

// Capsule header flags
const (
	FlagPersistAcrossReset  = 0x00010000
	FlagPopulateSystemTable = 0x00020000
	FlagInitiateReset       = 0x00040000
)

// Capsule is a decoded FMP capsule.
type Capsule struct {
	Guid     uuid.UUID
	Flags    uint32
	Payloads []Payload
}

// Payload is one firmware image within an FMP capsule.
type Payload struct {
	ImageType      uuid.UUID
	Index          uint8
	Instance       uint64
	Version        uint32 //from the payload header, 0 if absent
	LowestVersion  uint32
	Image          []byte
	VendorCodeSize uint32
}

func (p Payload) String() string {
	return fmt.Sprintf("%s[%d] v%d (%d bytes)", p.ImageType, p.Index, p.Version, len(p.Image))
}

func readGuid(b []byte) uuid.UUID { return guid.FromBytes(b).ToStdEnc() }

// Parse decodes an FMP capsule. Capsules with other guids return
// EUnsupported. Embedded drivers are skipped.
func Parse(image []byte) (*Capsule, error) {
	if len(image) < capsuleHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", EParse, len(image))
	}
	c := &Capsule{Guid: readGuid(image)}
	hdrSize := binary.LittleEndian.Uint32(image[16:])
	c.Flags = binary.LittleEndian.Uint32(image[20:])
	imgSize := binary.LittleEndian.Uint32(image[24:])
	if hdrSize < capsuleHeaderSize || hdrSize > imgSize || int(imgSize) > len(image) {
		return nil, fmt.Errorf("%w: header size %d, image size %d, have %d", EParse, hdrSize, imgSize, len(image))
	}
	if c.Guid != FmpCapsule {
		return c, fmt.Errorf("%w: capsule guid %s", EUnsupported, c.Guid)
	}
	body := image[hdrSize:imgSize]
	if len(body) < fmpHeaderSize {
		return nil, fmt.Errorf("%w: fmp header truncated", EParse)
	}
	if v := binary.LittleEndian.Uint32(body); v != fmpCapsuleVersion {
		return nil, fmt.Errorf("%w: fmp capsule version %d", EUnsupported, v)
	}
	drivers := int(binary.LittleEndian.Uint16(body[4:]))
	payloads := int(binary.LittleEndian.Uint16(body[6:]))
	items := drivers + payloads
	if len(body) < fmpHeaderSize+8*items {
		return nil, fmt.Errorf("%w: item offsets truncated", EParse)
	}
	offsets := make([]uint64, items)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(body[fmpHeaderSize+8*i:])
	}
	for i := drivers; i < items; i++ {
		end := uint64(len(body))
		if i+1 < items {
			end = offsets[i+1]
		}
		if offsets[i] > end || end > uint64(len(body)) {
			return nil, fmt.Errorf("%w: payload %d at %d..%d", EParse, i-drivers, offsets[i], end)
		}
		p, err := parsePayload(body[offsets[i]:end])
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i-drivers, err)
		}
		c.Payloads = append(c.Payloads, p)
	}
	return c, nil
}

func parsePayload(b []byte) (p Payload, err error) {
	if len(b) < imageHeaderV1Size {
		err = fmt.Errorf("%w: image header truncated", EParse)
		return
	}
	ver := binary.LittleEndian.Uint32(b)
	if ver == 0 || ver > imageHeaderVersion {
		err = fmt.Errorf("%w: image header version %d", EUnsupported, ver)
		return
	}
	p.ImageType = readGuid(b[4:])
	p.Index = b[20]
	imgSize := binary.LittleEndian.Uint32(b[24:])
	p.VendorCodeSize = binary.LittleEndian.Uint32(b[28:])
	hdrSize := imageHeaderV1Size
	if ver >= 2 {
		hdrSize += 8
		if len(b) < hdrSize {
			err = fmt.Errorf("%w: image header truncated", EParse)
			return
		}
		p.Instance = binary.LittleEndian.Uint64(b[32:])
	}
	if ver >= 3 {
		hdrSize += 8
	}
	if len(b) < hdrSize+int(imgSize) {
		err = fmt.Errorf("%w: image of %d bytes truncated to %d", EParse, imgSize, len(b)-hdrSize)
		return
	}
	p.Image = b[hdrSize : hdrSize+int(imgSize)]
	if len(p.Image) >= payloadHeaderSize && binary.LittleEndian.Uint32(p.Image) == payloadSignature {
		ph := binary.LittleEndian.Uint32(p.Image[4:])
		p.Version = binary.LittleEndian.Uint32(p.Image[8:])
		p.LowestVersion = binary.LittleEndian.Uint32(p.Image[12:])
		if ph >= payloadHeaderSize && int(ph) <= len(p.Image) {
			p.Image = p.Image[ph:]
		}
	}
	return
}

// BuildPayload describes a payload to build with Build.
type BuildPayload struct {
	ImageType     uuid.UUID
	Index         uint8
	Version       uint32
	LowestVersion uint32
	Image         []byte
}

// Build encodes an FMP capsule holding the given payloads, each wrapped in a
// payload header. Used by tools and tests.
func Build(flags uint32, payloads ...BuildPayload) []byte {
	le := binary.LittleEndian
	var items [][]byte
	for _, bp := range payloads {
		img := make([]byte, payloadHeaderSize, payloadHeaderSize+len(bp.Image))
		le.PutUint32(img, payloadSignature)
		le.PutUint32(img[4:], payloadHeaderSize)
		le.PutUint32(img[8:], bp.Version)
		le.PutUint32(img[12:], bp.LowestVersion)
		img = append(img, bp.Image...)

		hdr := make([]byte, imageHeaderV1Size+8)
		le.PutUint32(hdr, 2)
		mg := guid.FromStdEnc(bp.ImageType)
		copy(hdr[4:], mg[:])
		hdr[20] = bp.Index
		le.PutUint32(hdr[24:], uint32(len(img)))
		items = append(items, append(hdr, img...))
	}

	body := make([]byte, fmpHeaderSize+8*len(items))
	le.PutUint32(body, fmpCapsuleVersion)
	le.PutUint16(body[6:], uint16(len(items)))
	for i, it := range items {
		le.PutUint64(body[fmpHeaderSize+8*i:], uint64(len(body)))
		body = append(body, it...)
	}

	out := make([]byte, capsuleHeaderSize, capsuleHeaderSize+len(body))
	mg := guid.FromStdEnc(FmpCapsule)
	copy(out, mg[:])
	le.PutUint32(out[16:], capsuleHeaderSize)
	le.PutUint32(out[20:], flags)
	le.PutUint32(out[24:], uint32(capsuleHeaderSize+len(body)))
	return append(out, body...)
}
