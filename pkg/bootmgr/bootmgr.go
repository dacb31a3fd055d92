// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package bootmgr implements boot option persistence on top of a variable
// store: the ordered Boot#### list (BootOrder), Key#### hotkey bindings, the
// ConIn/ConOut/ErrOut console variables, the boot manager menu option, and
// regeneration of automatically created options.
package bootmgr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

var (
	//a hotkey with the same chord is already bound to the same option
	EAlreadyStarted = errors.New("already started")
	//a hotkey with the same chord is bound to a different option
	EKeyInUse = errors.New("key chord bound to another option")
	ENoSpace  = errors.New("no free option number")
)

const (
	bootOrder = "BootOrder"
	bootPfx   = "Boot"
	keyPfx    = "Key"

	//option numbers are 4 hex digits
	maxOptionNumber = 0xffff
)

// Manager reads and writes boot options in Vars. All methods assume
// exclusive access to the store for their duration.
type Manager struct {
	Vars efivar.Store

	//in-memory only; registered anew each boot
	continueKeys []uefi.KeyOption
}

func New(vars efivar.Store) *Manager { return &Manager{Vars: vars} }

// Returns the variable name for a numbered option, i.e. Boot0001
func OptionName(prefix string, num int) string { return fmt.Sprintf("%s%04X", prefix, num) }

// Parses the number from an option variable name. Returns -1 if name is not of
// the form <prefix>XXXX.
func optionNumber(prefix, name string) int {
	if len(name) != len(prefix)+4 || !strings.HasPrefix(name, prefix) {
		return -1
	}
	n, err := strconv.ParseUint(name[len(prefix):], 16, 16)
	if err != nil {
		return -1
	}
	return int(n)
}

// A VarFilter passing numbered option vars (Boot0000, Key0001, ...); excludes
// BootOrder, BootCurrent and the like.
func OptionFilter(prefix string) efivar.VarFilter {
	return func(u uuid.UUID, n string) bool {
		return u == guid.GlobalVariable && optionNumber(prefix, n) >= 0
	}
}

// Returns the lowest number not used by any option variable with the given
// prefix, nor listed in extra.
func (m *Manager) freeNumber(prefix string, extra []uint16) (int, error) {
	ids, err := m.Vars.List(OptionFilter(prefix))
	if err != nil {
		return 0, err
	}
	used := make(map[int]bool, len(ids)+len(extra))
	for _, id := range ids {
		used[optionNumber(prefix, id.Name)] = true
	}
	for _, n := range extra {
		used[int(n)] = true
	}
	for n := 0; n <= maxOptionNumber; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, ENoSpace
}
