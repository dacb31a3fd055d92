// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"errors"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

const (
	ShellDescription   = "UEFI Shell"
	MaskromDescription = "Reset to MaskROM"
)

// Synchronize merges defaults into the persisted options. A default matching
// an existing option (same path and attributes) reuses its number; others are
// appended to the boot order. Hotkeys are then bound to the resulting option
// number. Safe to call every boot; nothing is duplicated.
func (p *Platform) Synchronize(defaults []DefaultOption) {
	current := p.Options.LoadOptions()
	for _, d := range defaults {
		var num int
		if i := bootmgr.FindLoadOption(d.Option, current); i >= 0 {
			num = current[i].Number
		} else {
			if err := p.Options.AddLoadOption(d.Option, bootmgr.PositionEnd); err != nil {
				log.Errorf("failed to register %q: %s", d.Option.Description, err)
				continue
			}
			num = d.Option.Number
			current = append(current, d.Option)
		}
		if d.Key.IsNull() {
			continue
		}
		p.bindKey(num, d.Option.Description, d.Key)
	}
}

// GetPlatformOptions synchronizes the platform default options, if the
// platform supplies any.
func (p *Platform) GetPlatformOptions() {
	if p.Defaults == nil {
		return
	}
	defaults, err := p.Defaults.PlatformBootOptions()
	if err != nil {
		log.Verbosef("platform boot options: %s", err)
		return
	}
	p.Synchronize(defaults)
}

// Binds a single key to Boot<num>. An identical existing binding is fine.
func (p *Platform) bindKey(num int, desc string, key uefi.InputKey) {
	_, err := p.Options.AddKeyOption(num, 0, key)
	if err != nil && !errors.Is(err, bootmgr.EAlreadyStarted) {
		log.Errorf("failed to register hotkey %s for %q: %s", key, desc, err)
	}
}

// RegisterFvBootOption registers an option for a file in the boot manager's
// own firmware volume, unless an identical option exists, and binds key to
// it.
func (p *Platform) RegisterFvBootOption(file uuid.UUID, desc string, attrs uefi.LoadOptionAttr, key uefi.InputKey) {
	vol, ok := p.imageVolume()
	if !ok {
		return
	}
	o := &uefi.LoadOption{
		Number:      uefi.NumberUnassigned,
		Attributes:  attrs,
		Description: desc,
		FilePath:    vol.Append(uefi.FvFileNode(file)),
	}
	opts := p.Options.LoadOptions()
	if i := bootmgr.FindLoadOption(o, opts); i >= 0 {
		o.Number = opts[i].Number
	} else if err := p.Options.AddLoadOption(o, bootmgr.PositionEnd); err != nil {
		log.Errorf("failed to register %q: %s", desc, err)
		return
	}
	p.bindKey(o.Number, desc, key)
}

// RegisterOptionsAndKeys registers platform defaults, prunes stale firmware
// file options, then sets up the well-known keys: Enter continues, F2/Esc
// open the boot manager menu, F1 the shell, F4 resets to maskrom.
func (p *Platform) RegisterOptionsAndKeys() {
	p.GetPlatformOptions()
	p.RemoveStaleFvFileOptions()

	if err := p.Options.RegisterContinueKey(0, uefi.KeyEnter); err != nil {
		log.Fatalf("registering continue key: %s", err)
		return
	}

	vol, ok := p.imageVolume()
	if !ok {
		return
	}
	menu, err := p.Options.BootManagerMenu(vol, p.Cfg.MenuFile)
	if err != nil {
		log.Fatalf("boot manager menu: %s", err)
		return
	}
	p.bindKey(menu.Number, menu.Description, uefi.KeyF2)
	p.bindKey(menu.Number, menu.Description, uefi.KeyEsc)

	p.RegisterFvBootOption(p.Cfg.ShellFile, ShellDescription, 0, uefi.KeyF1)
	p.RegisterFvBootOption(p.Cfg.MaskromFile, MaskromDescription, 0, uefi.KeyF4)
}
