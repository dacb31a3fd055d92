// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package capsule

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// EsrtVar is the variable holding the table, in the guid.SystemResourceTable
// namespace.
const EsrtVar = "EsrtFmp"

const esrtAttrs = efivar.NonVolatile | efivar.BootServiceAccess

// Firmware types
const (
	FwTypeUnknown        = 0
	FwTypeSystem         = 1
	FwTypeDevice         = 2
	FwTypeDeviceDriver   = 3
	FwTypeUefiDriverSlot = 4
)

// Last attempt status values
type Status uint32

const (
	StatusSuccess Status = iota
	StatusUnsuccessful
	StatusInsufficientResources
	StatusIncorrectVersion
	StatusInvalidFormat
	StatusAuthError
	StatusPowerAc
	StatusPowerBattery
)

var statusNames = []string{"success", "unsuccessful", "insufficient resources", "incorrect version", "invalid format", "auth error", "ac power", "battery power"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status 0x%x", uint32(s))
}

// Entry is one updatable firmware resource.
type Entry struct {
	FwClass            uuid.UUID `cbor:"1,keyasint"`
	FwType             uint32    `cbor:"2,keyasint"`
	FwVersion          uint32    `cbor:"3,keyasint"`
	LowestSupported    uint32    `cbor:"4,keyasint"`
	CapsuleFlags       uint32    `cbor:"5,keyasint"`
	LastAttemptVersion uint32    `cbor:"6,keyasint"`
	LastAttemptStatus  Status    `cbor:"7,keyasint"`
}

func (e Entry) String() string {
	s := fmt.Sprintf("%s type %d v%d (lowest %d)", e.FwClass, e.FwType, e.FwVersion, e.LowestSupported)
	if e.LastAttemptVersion != 0 {
		s += fmt.Sprintf(", last attempt v%d: %s", e.LastAttemptVersion, e.LastAttemptStatus)
	}
	return s
}

// Resource is updatable firmware as reported by the platform.
type Resource struct {
	Class           uuid.UUID `yaml:"class"`
	Type            uint32    `yaml:"type"`
	Version         uint32    `yaml:"version"`
	LowestSupported uint32    `yaml:"lowest"`
	Flags           uint32    `yaml:"flags"`
}

// Inventory is the platform's updatable firmware.
type Inventory interface {
	Resources() ([]Resource, error)
	//Writes image to the resource; the new version takes effect at next Resources().
	Update(class uuid.UUID, version uint32, image []byte) error
}

var ENoEntry = errors.New("no esrt entry")

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("esrt cbor encoder: %v", err))
	}
}

// Tracker keeps the ESRT in a variable store.
type Tracker struct {
	Vars efivar.Store
	Inv  Inventory
}

var _ bds.EsrtService = (*Tracker)(nil)

// Table returns the persisted table. A missing table is empty.
func (t *Tracker) Table() ([]Entry, error) {
	data, _, err := t.Vars.Get(guid.SystemResourceTable, EsrtVar)
	if errors.Is(err, efivar.ENotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tbl []Entry
	if err = cbor.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", efivar.EInvalid, EsrtVar, err)
	}
	return tbl, nil
}

func (t *Tracker) store(tbl []Entry) error {
	sort.Slice(tbl, func(i, j int) bool {
		return strings.Compare(tbl[i].FwClass.String(), tbl[j].FwClass.String()) < 0
	})
	data, err := encMode.Marshal(tbl)
	if err != nil {
		return err
	}
	return t.Vars.Set(guid.SystemResourceTable, EsrtVar, esrtAttrs, data)
}

// SyncEsrtFmp rebuilds the table from the inventory. Last attempt fields of
// resources already in the table are kept; resources no longer present are
// dropped.
func (t *Tracker) SyncEsrtFmp() error {
	if t.Inv == nil {
		return fmt.Errorf("firmware inventory %w", bds.ENotFound)
	}
	res, err := t.Inv.Resources()
	if err != nil {
		return err
	}
	old, err := t.Table()
	if err != nil {
		log.Warnf("discarding esrt: %s", err)
		old = nil
	}
	prev := make(map[uuid.UUID]Entry, len(old))
	for _, e := range old {
		prev[e.FwClass] = e
	}
	tbl := make([]Entry, 0, len(res))
	for _, r := range res {
		e := Entry{
			FwClass:         r.Class,
			FwType:          r.Type,
			FwVersion:       r.Version,
			LowestSupported: r.LowestSupported,
			CapsuleFlags:    r.Flags,
		}
		if p, ok := prev[r.Class]; ok {
			e.LastAttemptVersion = p.LastAttemptVersion
			e.LastAttemptStatus = p.LastAttemptStatus
		}
		tbl = append(tbl, e)
	}
	log.Verbosef("esrt: %d entries", len(tbl))
	return t.store(tbl)
}

// Lookup returns the entry for class.
func (t *Tracker) Lookup(class uuid.UUID) (Entry, error) {
	tbl, err := t.Table()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range tbl {
		if e.FwClass == class {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ENoEntry, class)
}

// RecordAttempt sets the last attempt fields of class.
func (t *Tracker) RecordAttempt(class uuid.UUID, version uint32, status Status) error {
	tbl, err := t.Table()
	if err != nil {
		return err
	}
	for i := range tbl {
		if tbl[i].FwClass == class {
			tbl[i].LastAttemptVersion = version
			tbl[i].LastAttemptStatus = status
			return t.store(tbl)
		}
	}
	return fmt.Errorf("%w: %s", ENoEntry, class)
}
