// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package efivar provides access to GUID-scoped UEFI variables through the
// Store interface. Backends: an in-memory store (tests and emulation), a
// bitcask-backed store that persists non-volatile variables across runs, and
// efivarfs on a linux host.
package efivar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Variable attributes, as in SetVariable()
type Attr uint32

const (
	NonVolatile       Attr = 0x1
	BootServiceAccess Attr = 0x2
	RuntimeAccess     Attr = 0x4

	//attrs used for BootXXXX, BootOrder, ConIn etc
	DefaultAttrs = NonVolatile | BootServiceAccess | RuntimeAccess
)

func (a Attr) String() string {
	var s []string
	if a&NonVolatile != 0 {
		s = append(s, "NV")
	}
	if a&BootServiceAccess != 0 {
		s = append(s, "BS")
	}
	if a&RuntimeAccess != 0 {
		s = append(s, "RT")
	}
	if rest := a &^ DefaultAttrs; rest != 0 {
		s = append(s, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(s, "+")
}

var (
	ENotFound = errors.New("variable not found")
	EInvalid  = errors.New("invalid variable")
)

// Identifies a variable. Names are unique within a vendor namespace.
type VarId struct {
	Vendor uuid.UUID
	Name   string
}

// Same format as efivarfs file names: Name-guid
func (id VarId) String() string { return id.Name + "-" + id.Vendor.String() }

func ParseVarId(s string) (VarId, error) {
	//uuid string form is 36 chars
	if len(s) < 38 || s[len(s)-37] != '-' {
		return VarId{}, fmt.Errorf("%w: bad var id %q", EInvalid, s)
	}
	u, err := uuid.Parse(s[len(s)-36:])
	if err != nil {
		return VarId{}, fmt.Errorf("%w: %s: %s", EInvalid, s, err)
	}
	return VarId{Vendor: u, Name: s[:len(s)-37]}, nil
}

// Store is the persistent variable service. Implementations need not be safe
// for concurrent use unless documented otherwise.
type Store interface {
	//Returns ENotFound if the variable does not exist.
	Get(vendor uuid.UUID, name string) (data []byte, attrs Attr, err error)

	//Creates or replaces a variable. Empty data deletes the variable, as with
	//SetVariable().
	Set(vendor uuid.UUID, name string, attrs Attr, data []byte) error

	//Returns ENotFound if the variable does not exist.
	Delete(vendor uuid.UUID, name string) error

	//Lists variables passing filt (all if filt is nil), sorted by vendor then
	//name.
	List(filt VarFilter) ([]VarId, error)
}

// A type of function used to filter efi vars
type VarFilter func(vendor uuid.UUID, name string) bool

// Passes variables in the given namespace whose name starts with prefix.
func PrefixFilter(vendor uuid.UUID, prefix string) VarFilter {
	return func(u uuid.UUID, n string) bool { return u == vendor && strings.HasPrefix(n, prefix) }
}

// Returns a filter negating the given filter.
func NotFilter(f VarFilter) VarFilter {
	return func(u uuid.UUID, n string) bool { return !f(u, n) }
}

// Returns true only if all given filters return true.
func AndFilter(filters ...VarFilter) VarFilter {
	return func(u uuid.UUID, n string) bool {
		for _, f := range filters {
			if !f(u, n) {
				return false
			}
		}
		return true
	}
}

func sortIds(ids []VarId) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Vendor != ids[j].Vendor {
			return ids[i].Vendor.String() < ids[j].Vendor.String()
		}
		return ids[i].Name < ids[j].Name
	})
}

func checkAttrs(attrs Attr) error {
	if attrs&RuntimeAccess != 0 && attrs&BootServiceAccess == 0 {
		return fmt.Errorf("%w: runtime access requires boot service access", EInvalid)
	}
	return nil
}

// Reads a UINT32 variable.
func GetUint32(s Store, vendor uuid.UUID, name string) (uint32, error) {
	d, _, err := s.Get(vendor, name)
	if err != nil {
		return 0, err
	}
	if len(d) != 4 {
		return 0, fmt.Errorf("%w: %s has size %d, want 4", EInvalid, name, len(d))
	}
	return binary.LittleEndian.Uint32(d), nil
}

func SetUint32(s Store, vendor uuid.UUID, name string, attrs Attr, v uint32) error {
	var d [4]byte
	binary.LittleEndian.PutUint32(d[:], v)
	return s.Set(vendor, name, attrs, d[:])
}

// Reads a UINT16 variable, such as BootCurrent.
func GetUint16(s Store, vendor uuid.UUID, name string) (uint16, error) {
	d, _, err := s.Get(vendor, name)
	if err != nil {
		return 0, err
	}
	if len(d) != 2 {
		return 0, fmt.Errorf("%w: %s has size %d, want 2", EInvalid, name, len(d))
	}
	return binary.LittleEndian.Uint16(d), nil
}

func SetUint16(s Store, vendor uuid.UUID, name string, attrs Attr, v uint16) error {
	var d [2]byte
	binary.LittleEndian.PutUint16(d[:], v)
	return s.Set(vendor, name, attrs, d[:])
}

// Reads an array of UINT16, such as BootOrder. A missing variable is an empty
// list.
func GetUint16s(s Store, vendor uuid.UUID, name string) ([]uint16, error) {
	d, _, err := s.Get(vendor, name)
	if errors.Is(err, ENotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(d)%2 != 0 {
		return nil, fmt.Errorf("%w: %s has odd size %d", EInvalid, name, len(d))
	}
	list := make([]uint16, len(d)/2)
	for i := range list {
		list[i] = binary.LittleEndian.Uint16(d[2*i:])
	}
	return list, nil
}

// Writes an array of UINT16. An empty list deletes the variable.
func SetUint16s(s Store, vendor uuid.UUID, name string, attrs Attr, list []uint16) error {
	d := make([]byte, 2*len(list))
	for i, v := range list {
		binary.LittleEndian.PutUint16(d[2*i:], v)
	}
	err := s.Set(vendor, name, attrs, d)
	if len(list) == 0 && errors.Is(err, ENotFound) {
		return nil
	}
	return err
}
