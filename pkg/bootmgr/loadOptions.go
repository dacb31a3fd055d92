// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"fmt"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Position meaning "end of BootOrder"
const PositionEnd = -1

// Returns the boot order.
func (m *Manager) BootOrder() ([]uint16, error) {
	return efivar.GetUint16s(m.Vars, guid.GlobalVariable, bootOrder)
}

func (m *Manager) setBootOrder(order []uint16) error {
	return efivar.SetUint16s(m.Vars, guid.GlobalVariable, bootOrder, efivar.DefaultAttrs, order)
}

// Reads a single Boot#### option.
func (m *Manager) LoadOption(num int) (*uefi.LoadOption, error) {
	data, _, err := m.Vars.Get(guid.GlobalVariable, OptionName(bootPfx, num))
	if err != nil {
		return nil, err
	}
	return uefi.ParseLoadOption(num, data)
}

// Returns the boot options listed in BootOrder, in that order. Entries that
// are missing or do not parse are logged and skipped.
func (m *Manager) LoadOptions() []*uefi.LoadOption {
	order, err := m.BootOrder()
	if err != nil {
		log.Errorf("reading %s: %s", bootOrder, err)
		return nil
	}
	opts := make([]*uefi.LoadOption, 0, len(order))
	for _, n := range order {
		o, err := m.LoadOption(int(n))
		if err != nil {
			log.Warnf("%s: %s", OptionName(bootPfx, int(n)), err)
			continue
		}
		opts = append(opts, o)
	}
	return opts
}

// Returns the index in list of an option matching o (same path and
// attributes), or -1.
func FindLoadOption(o *uefi.LoadOption, list []*uefi.LoadOption) int {
	for i, l := range list {
		if o.Matches(l) {
			return i
		}
	}
	return -1
}

// AddLoadOption writes o as Boot#### and inserts its number into BootOrder at
// position (PositionEnd to append). If o.Number is NumberUnassigned, the
// lowest free number is assigned and stored in o.Number. If the number is
// already in BootOrder, the order is left alone.
func (m *Manager) AddLoadOption(o *uefi.LoadOption, position int) error {
	if n := len(o.FilePathList()); n > uefi.MaxFilePathListLen {
		return fmt.Errorf("%w: %s: file path list is %d bytes", efivar.EInvalid, o.Description, n)
	}
	order, err := m.BootOrder()
	if err != nil {
		return err
	}
	num := o.Number
	if num == uefi.NumberUnassigned {
		num, err = m.freeNumber(bootPfx, order)
		if err != nil {
			return err
		}
	}
	if num < 0 || num > maxOptionNumber {
		return fmt.Errorf("%w: option number %d", efivar.EInvalid, num)
	}
	err = m.Vars.Set(guid.GlobalVariable, OptionName(bootPfx, num), efivar.DefaultAttrs, o.Bytes())
	if err != nil {
		return err
	}
	o.Number = num
	for _, n := range order {
		if int(n) == num {
			return nil
		}
	}
	if position < 0 || position > len(order) {
		position = len(order)
	}
	order = append(order, 0)
	copy(order[position+1:], order[position:])
	order[position] = uint16(num)
	return m.setBootOrder(order)
}

// DeleteLoadOption removes Boot####, its BootOrder entry and any Key####
// bound to it.
func (m *Manager) DeleteLoadOption(num int) error {
	order, err := m.BootOrder()
	if err != nil {
		return err
	}
	if err = m.DeleteKeyOptions(num); err != nil {
		return err
	}
	kept := order[:0]
	for _, n := range order {
		if int(n) != num {
			kept = append(kept, n)
		}
	}
	if len(kept) != len(order) {
		if err = m.setBootOrder(kept); err != nil {
			return err
		}
	}
	return m.Vars.Delete(guid.GlobalVariable, OptionName(bootPfx, num))
}
