// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

const MenuDescription = "Boot Manager Menu"

const menuAttrs = uefi.LoadOptionActive | uefi.LoadOptionHidden | uefi.LoadOptionCategoryApp

// True if the last node of p is a firmware file node naming file.
func pointsAtFvFile(p uefi.DevicePath, file uuid.UUID) bool {
	if len(p) == 0 {
		return false
	}
	ff, ok := p[len(p)-1].(*uefi.DppMediaPIWGFF)
	return ok && ff.Name == guid.FromStdEnc(file)
}

// FindBootManagerMenu returns the existing option pointing at menuFile in any
// volume, or nil.
func (m *Manager) FindBootManagerMenu(menuFile uuid.UUID) *uefi.LoadOption {
	for _, o := range m.LoadOptions() {
		if pointsAtFvFile(o.FilePath, menuFile) {
			return o
		}
	}
	return nil
}

// BootManagerMenu returns the option launching the boot manager menu
// application (menuFile, in the volume at fvPath). Any existing option
// pointing at a file with that name is reused regardless of volume; otherwise
// a hidden application option is created at the end of BootOrder.
func (m *Manager) BootManagerMenu(fvPath uefi.DevicePath, menuFile uuid.UUID) (*uefi.LoadOption, error) {
	if o := m.FindBootManagerMenu(menuFile); o != nil {
		return o, nil
	}
	o := &uefi.LoadOption{
		Number:      uefi.NumberUnassigned,
		Attributes:  menuAttrs,
		Description: MenuDescription,
		FilePath:    fvPath.Append(uefi.FvFileNode(menuFile)),
	}
	if err := m.AddLoadOption(o, PositionEnd); err != nil {
		return nil, err
	}
	log.Verbosef("created %s", o)
	return o, nil
}
