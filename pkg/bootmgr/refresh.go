// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bootmgr

import (
	"bytes"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// BootableDevice is a device found to be bootable during enumeration.
type BootableDevice struct {
	Description string
	Path        uefi.DevicePath
}

func autoTag() []byte {
	g := guid.FromStdEnc(guid.AutoCreatedBootOption)
	return g[:]
}

// IsAutoCreated returns true for options created by RefreshAll.
func IsAutoCreated(o *uefi.LoadOption) bool {
	return bytes.Equal(o.OptionalData, autoTag())
}

func autoOption(d BootableDevice) *uefi.LoadOption {
	return &uefi.LoadOption{
		Number:       uefi.NumberUnassigned,
		Attributes:   uefi.LoadOptionActive,
		Description:  d.Description,
		FilePath:     d.Path,
		OptionalData: autoTag(),
	}
}

// RefreshAll brings the auto-created options in line with devs: options
// whose device is not in devs are deleted, and devices without a matching
// option get a new one appended. Options not created here are never touched.
// Individual failures are logged and skipped.
func (m *Manager) RefreshAll(devs []BootableDevice) (added, removed int) {
	current := m.LoadOptions()
	for _, o := range current {
		if !IsAutoCreated(o) {
			continue
		}
		stillThere := false
		for _, d := range devs {
			if o.FilePath.Equal(d.Path) {
				stillThere = true
				break
			}
		}
		if stillThere {
			continue
		}
		if err := m.DeleteLoadOption(o.Number); err != nil {
			log.Errorf("deleting %s: %s", o.Name(bootPfx), err)
			continue
		}
		log.Verbosef("removed %s (%s): device gone", o.Name(bootPfx), o.Description)
		removed++
	}
	current = m.LoadOptions()
	for _, d := range devs {
		o := autoOption(d)
		if FindLoadOption(o, current) >= 0 {
			continue
		}
		if err := m.AddLoadOption(o, PositionEnd); err != nil {
			log.Errorf("adding option for %s: %s", d.Path, err)
			continue
		}
		log.Verbosef("added %s (%s)", o.Name(bootPfx), o.Description)
		current = append(current, o)
		added++
	}
	return added, removed
}
