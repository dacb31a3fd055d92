// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"errors"
	"fmt"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// ConsoleVar names a multi-instance console variable.
type ConsoleVar string

const (
	ConIn  ConsoleVar = "ConIn"
	ConOut ConsoleVar = "ConOut"
	ErrOut ConsoleVar = "ErrOut"
)

func (c ConsoleVar) valid() bool { return c == ConIn || c == ConOut || c == ErrOut }

// Returns the instances stored in the console variable; missing is empty.
func (m *Manager) ConsoleInstances(c ConsoleVar) ([]uefi.DevicePath, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w: console variable %q", efivar.EInvalid, c)
	}
	data, _, err := m.Vars.Get(guid.GlobalVariable, string(c))
	if err != nil {
		if errors.Is(err, efivar.ENotFound) {
			return nil, nil
		}
		return nil, err
	}
	return uefi.ParseMultiInstance(data)
}

// UpdateConsoleVariable removes the instance equal to remove (if not nil) and
// appends add (if not nil and not already present). The variable is only
// written if it changed.
func (m *Manager) UpdateConsoleVariable(c ConsoleVar, add, remove uefi.DevicePath) error {
	paths, err := m.ConsoleInstances(c)
	if err != nil {
		return fmt.Errorf("updating %s: %w", c, err)
	}
	changed := false
	if len(remove) > 0 {
		kept := paths[:0]
		for _, p := range paths {
			if p.Equal(remove) {
				changed = true
				continue
			}
			kept = append(kept, p)
		}
		paths = kept
	}
	if len(add) > 0 {
		found := false
		for _, p := range paths {
			if p.Equal(add) {
				found = true
				break
			}
		}
		if !found {
			paths = append(paths, add)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	err = m.Vars.Set(guid.GlobalVariable, string(c), efivar.DefaultAttrs, uefi.MultiInstanceBytes(paths))
	if len(paths) == 0 && errors.Is(err, efivar.ENotFound) {
		return nil
	}
	return err
}
