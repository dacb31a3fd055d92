// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
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

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Attributes of a load option
type LoadOptionAttr uint32

const (
	LoadOptionActive         LoadOptionAttr = 0x1
	LoadOptionForceReconnect LoadOptionAttr = 0x2
	LoadOptionHidden         LoadOptionAttr = 0x8
	LoadOptionCategoryMask   LoadOptionAttr = 0x1f00
	LoadOptionCategoryBoot   LoadOptionAttr = 0x0
	LoadOptionCategoryApp    LoadOptionAttr = 0x100
)

// Option number for an option that has not been persisted yet.
const NumberUnassigned = -1

/*
	LoadOption is the data stored in vars such as BootXXXX.

As defined in UEFI spec v2.8A:

	typedef struct _EFI_LOAD_OPTION {
	    UINT32 Attributes;
	    UINT16 FilePathListLength;
	    // CHAR16 Description[];
	    // EFI_DEVICE_PATH_PROTOCOL FilePathList[];
	    // UINT8 OptionalData[];
	} EFI_LOAD_OPTION;

The first entry of FilePathList is decoded into FilePath. Any further
instances (such as an initrd following a kernel) are kept undecoded in
FilePathExtra, starting after the End Instance node, so that the option
re-encodes unchanged.
*/
type LoadOption struct {
	Number        int //from the var name, or NumberUnassigned
	Attributes    LoadOptionAttr
	Description   string
	FilePath      DevicePath
	FilePathExtra []byte
	OptionalData  []byte
}

// Largest FilePathList the 16-bit length field can describe.
const MaxFilePathListLen = 0xffff

// Encoded FilePathList: FilePath followed by FilePathExtra, if any.
func (o *LoadOption) FilePathList() []byte {
	if len(o.FilePathExtra) == 0 {
		return o.FilePath.Bytes()
	}
	var buf bytes.Buffer
	o.FilePath.writeNodes(&buf)
	buf.Write(endNode(DppETypeEndInstance))
	buf.Write(o.FilePathExtra)
	return buf.Bytes()
}

// Encodes the option as stored in a Boot#### variable. The caller must
// ensure FilePathList fits in MaxFilePathListLen bytes.
func (o *LoadOption) Bytes() []byte {
	path := o.FilePathList()
	var buf bytes.Buffer
	var hdr [6]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(o.Attributes))
	binary.LittleEndian.PutUint16(hdr[4:], uint16(len(path)))
	buf.Write(hdr[:])
	buf.Write(EncodeUTF16z(o.Description))
	buf.Write(path)
	buf.Write(o.OptionalData)
	return buf.Bytes()
}

// Decodes a load option. num is the number from the variable name.
func ParseLoadOption(num int, data []byte) (*LoadOption, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: load option too short (%d)", EParse, len(data))
	}
	o := &LoadOption{
		Number:     num,
		Attributes: LoadOptionAttr(binary.LittleEndian.Uint32(data[:4])),
	}
	pathLen := int(binary.LittleEndian.Uint16(data[4:6]))
	desc, n, err := readUTF16z(data[6:])
	if err != nil {
		return nil, fmt.Errorf("reading description: %w", err)
	}
	o.Description = desc
	start := 6 + n
	if len(data) < start+pathLen {
		return nil, fmt.Errorf("%w: file path list overruns option (%d+%d > %d)", EParse, start, pathLen, len(data))
	}
	path, st, extra, err := parseInstance(data[start : start+pathLen])
	if err == nil {
		switch {
		case st == DppETypeEndEntire && len(extra) != 0:
			log.Verbosef("file path list: remaining bytes %x", extra)
			err = EParse
		case st == DppETypeEndInstance:
			//remaining instances must still be well formed
			_, err = ParseMultiInstance(extra)
			if err == nil && len(extra) == 0 {
				err = EParse
			}
		case st != DppETypeEndEntire:
			log.Verbosef("file path list: unexpected end subtype %s", st)
			err = EParse
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing file path list of %q: %w", desc, err)
	}
	o.FilePath = path
	if len(extra) > 0 {
		o.FilePathExtra = append([]byte(nil), extra...)
	}
	if rest := data[start+pathLen:]; len(rest) > 0 {
		o.OptionalData = append([]byte(nil), rest...)
	}
	return o, nil
}

// Two options match if their file path lists and attributes are identical.
// Description, number and optional data are not compared.
func (o *LoadOption) Matches(other *LoadOption) bool {
	return o.Attributes == other.Attributes && o.FilePath.Equal(other.FilePath) &&
		bytes.Equal(o.FilePathExtra, other.FilePathExtra)
}

func (o *LoadOption) IsActive() bool { return o.Attributes&LoadOptionActive != 0 }

func (o *LoadOption) Category() LoadOptionAttr { return o.Attributes & LoadOptionCategoryMask }

func (o *LoadOption) Name(prefix string) string {
	if o.Number == NumberUnassigned {
		return prefix + "????"
	}
	return fmt.Sprintf("%s%04X", prefix, o.Number)
}

func (o LoadOption) String() string {
	return fmt.Sprintf("%s: attrs=0x%x, desc=%q, path=%s, opts=%s", o.Name("Boot"), uint32(o.Attributes), o.Description, o.FilePath, optDataString(o.OptionalData))
}

// Returns a deep copy.
func (o *LoadOption) Clone() *LoadOption {
	c := *o
	c.FilePath = o.FilePath.Append()
	if o.FilePathExtra != nil {
		c.FilePathExtra = append([]byte(nil), o.FilePathExtra...)
	}
	if o.OptionalData != nil {
		c.OptionalData = append([]byte(nil), o.OptionalData...)
	}
	return &c
}
