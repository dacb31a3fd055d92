// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"fmt"
	"hash/crc32"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Returns all Key#### options that parse. Others are logged and skipped.
func (m *Manager) KeyOptions() ([]*uefi.KeyOption, error) {
	ids, err := m.Vars.List(OptionFilter(keyPfx))
	if err != nil {
		return nil, err
	}
	var keys []*uefi.KeyOption
	for _, id := range ids {
		data, _, err := m.Vars.Get(id.Vendor, id.Name)
		if err != nil {
			log.Warnf("reading %s: %s", id, err)
			continue
		}
		k, err := uefi.ParseKeyOption(optionNumber(keyPfx, id.Name), data)
		if err != nil {
			log.Warnf("%s: %s", id.Name, err)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// AddKeyOption binds the chord (modifiers + keys) to Boot<bootOption>. The
// binding records the CRC32 of the boot option's current contents.
//
// If the chord is already bound to bootOption, EAlreadyStarted is returned
// and nothing is written. If it is bound to a different option, EKeyInUse is
// returned. The boot option must exist.
func (m *Manager) AddKeyOption(bootOption int, modifiers uint32, keys ...uefi.InputKey) (*uefi.KeyOption, error) {
	if len(keys) == 0 || len(keys) > 3 {
		return nil, fmt.Errorf("%w: %d keys in chord", efivar.EInvalid, len(keys))
	}
	data, _, err := m.Vars.Get(guid.GlobalVariable, OptionName(bootPfx, bootOption))
	if err != nil {
		return nil, fmt.Errorf("binding key to %s: %w", OptionName(bootPfx, bootOption), err)
	}
	ko := &uefi.KeyOption{
		Number:        uefi.NumberUnassigned,
		Modifiers:     modifiers,
		BootOptionCrc: crc32.ChecksumIEEE(data),
		BootOption:    uint16(bootOption),
		Keys:          append([]uefi.InputKey(nil), keys...),
	}
	existing, err := m.KeyOptions()
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if !e.SameChord(ko) {
			continue
		}
		if e.BootOption == ko.BootOption {
			return e, EAlreadyStarted
		}
		return e, fmt.Errorf("%w: %s", EKeyInUse, e)
	}
	num, err := m.freeNumber(keyPfx, nil)
	if err != nil {
		return nil, err
	}
	ko.Number = num
	err = m.Vars.Set(guid.GlobalVariable, OptionName(keyPfx, num), efivar.DefaultAttrs, ko.Bytes())
	if err != nil {
		return nil, err
	}
	return ko, nil
}

// Removes every Key#### bound to the given boot option.
func (m *Manager) DeleteKeyOptions(bootOption int) error {
	keys, err := m.KeyOptions()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if int(k.BootOption) != bootOption {
			continue
		}
		if err := m.Vars.Delete(guid.GlobalVariable, OptionName(keyPfx, k.Number)); err != nil {
			return err
		}
	}
	return nil
}

// Returns the key option bound to this chord, if any. Bindings whose CRC no
// longer matches the boot option's contents are ignored.
func (m *Manager) LookupKey(modifiers uint32, keys ...uefi.InputKey) *uefi.KeyOption {
	want := &uefi.KeyOption{Modifiers: modifiers, Keys: keys}
	existing, err := m.KeyOptions()
	if err != nil {
		log.Errorf("reading key options: %s", err)
		return nil
	}
	for _, k := range existing {
		if !k.SameChord(want) {
			continue
		}
		data, _, err := m.Vars.Get(guid.GlobalVariable, OptionName(bootPfx, int(k.BootOption)))
		if err != nil || crc32.ChecksumIEEE(data) != k.BootOptionCrc {
			log.Verbosef("ignoring stale %s", k)
			continue
		}
		return k
	}
	return nil
}

// RegisterContinueKey adds a chord which ends the hotkey wait and continues
// the normal boot. Continue keys are not persisted. Registering the same
// chord twice has no further effect.
func (m *Manager) RegisterContinueKey(modifiers uint32, keys ...uefi.InputKey) error {
	if len(keys) == 0 || len(keys) > 3 {
		return fmt.Errorf("%w: %d keys in chord", efivar.EInvalid, len(keys))
	}
	ko := uefi.KeyOption{Number: uefi.NumberUnassigned, Modifiers: modifiers, Keys: append([]uefi.InputKey(nil), keys...)}
	for i := range m.continueKeys {
		if m.continueKeys[i].SameChord(&ko) {
			return nil
		}
	}
	m.continueKeys = append(m.continueKeys, ko)
	return nil
}

func (m *Manager) IsContinueKey(modifiers uint32, keys ...uefi.InputKey) bool {
	want := &uefi.KeyOption{Modifiers: modifiers, Keys: keys}
	for i := range m.continueKeys {
		if m.continueKeys[i].SameChord(want) {
			return true
		}
	}
	return false
}

func (m *Manager) ContinueKeys() []uefi.KeyOption {
	return append([]uefi.KeyOption(nil), m.continueKeys...)
}
