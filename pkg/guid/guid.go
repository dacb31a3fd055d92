// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package guid handles uuid's encoded in the mixed-endianness format used by
// uefi, and holds the well-known GUIDs the boot manager refers to. For normal
// uuid-related functionality, use github.com/google/uuid .
package guid

import (
	"github.com/google/uuid"
)

// A mixed-endianness guid, as stored in device paths and capsule headers.
type MixedGuid [16]byte

// Converts MixedGuid to a uuid.UUID
func (m MixedGuid) ToStdEnc() (u uuid.UUID) {
	u[0], u[1], u[2], u[3] = m[3], m[2], m[1], m[0]
	u[4], u[5] = m[5], m[4]
	u[6], u[7] = m[7], m[6]
	copy(u[8:], m[8:])
	return
}

// Converts uuid.UUID to MixedGuid
func FromStdEnc(u uuid.UUID) (m MixedGuid) {
	m[0], m[1], m[2], m[3] = u[3], u[2], u[1], u[0]
	m[4], m[5] = u[5], u[4]
	m[6], m[7] = u[7], u[6]
	copy(m[8:], u[8:])
	return
}

// String returns the registry-style lowercase text form, which is the same
// regardless of encoding.
func (m MixedGuid) String() string { return m.ToStdEnc().String() }

// FromBytes copies the first 16 bytes of b. Panics if b is short.
func FromBytes(b []byte) (m MixedGuid) {
	if len(b) < 16 {
		panic("bad len")
	}
	copy(m[:], b)
	return
}

// variable namespaces
var (
	GlobalVariable         = uuid.MustParse("8be4df61-93ca-11d2-aa0d-00e098032b8c")
	BootDiscoveryPolicyMgr = uuid.MustParse("5b6f7107-bb3c-4660-92cd-542690280bbd")
	SystemResourceTable    = uuid.MustParse("b122a262-3551-4f48-8892-55f6c0614290")
)

// device path vendor nodes
var (
	SerialPortLibVendor = uuid.MustParse("d3987d4b-971a-435f-8caf-4967eb627241")
	TtyTerm             = uuid.MustParse("7d916d80-5bb1-458c-a48f-e25fdd51ef94")
	VT100               = uuid.MustParse("dfa66065-b419-11d3-9a2d-0090273fc14d")
	VT100Plus           = uuid.MustParse("7baec70b-57e0-4c76-8e87-2f9e28088343")
	VTUTF8              = uuid.MustParse("ad15a0d6-8bec-4acf-a073-d01de77e2d88")
	PcAnsi              = uuid.MustParse("e0c14753-f9be-11d2-9a0c-0090273fc14d")
)

// non-discoverable device types
var (
	NonDiscoverableUhci = uuid.MustParse("a8cda0a2-4f37-4a1b-8e10-8ef3cc3bf3a8")
	NonDiscoverableEhci = uuid.MustParse("eaee5615-0cfd-45fc-8769-a0d85695af85")
	NonDiscoverableXhci = uuid.MustParse("b20005b0-bb2d-496f-869c-230b4479e7d1")
	NonDiscoverableSdhc = uuid.MustParse("1dd1d619-f9b8-463e-8681-d1dc7c07b72c")
)

// device classes for the boot manager policy service
var (
	PolicyConsole    = uuid.MustParse("cab0e94c-e15f-11e3-918d-b8e8562cbafa")
	PolicyNetwork    = uuid.MustParse("d04159dc-e15f-11e3-b261-b8e8562cbafa")
	PolicyConnectAll = uuid.MustParse("113b2126-fc8a-11e3-bd6c-b8e8562cbafa")
)

// firmware files
var (
	UefiShellFile       = uuid.MustParse("7c04a583-9e3e-4f1c-ad65-e05268d0b4d1")
	BootManagerMenuFile = uuid.MustParse("eec25bdc-67f2-4d95-b1d5-f81b2039d11d")
)

// Marks boot options created by refresh-all; stored in their optional data.
var AutoCreatedBootOption = uuid.MustParse("8108ac4e-9f11-4d59-850e-e21a522c59b2")
