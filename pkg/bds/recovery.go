// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Parks the caller forever. Replaced in tests.
var deadLoop = func() { select {} }

// Resets the system. Does not return.
func (p *Platform) resetCold() {
	p.Resetter.ResetCold()
	deadLoop()
}

// UnableToBoot is called when no boot option could be launched. All devices
// are connected and boot options regenerated; if that changed the number of
// options, the system is reset so the normal boot flow sees them. When the
// variable store is emulated in ram a reset would lose them, so instead the
// boot manager menu is launched over and over. Does not return.
func (p *Platform) UnableToBoot() {
	before := len(p.Options.LoadOptions())
	p.ConnectAll()
	p.RefreshAllBootOptions()
	after := len(p.Options.LoadOptions())

	if !p.Cfg.EmuVariableNV && after != before {
		log.Warnf("rebooting after refreshing all boot options (%d -> %d)", before, after)
		p.resetCold()
	}

	menu := p.Options.FindBootManagerMenu(p.Cfg.MenuFile)
	if menu == nil {
		//creating the option needs the image's own volume
		vol, ok := p.imageVolume()
		if !ok {
			deadLoop()
		}
		var err error
		menu, err = p.Options.BootManagerMenu(vol, p.Cfg.MenuFile)
		if err != nil {
			log.Errorf("boot manager menu: %s", err)
			deadLoop()
		}
	}
	for {
		if err := p.Booter.Boot(menu); err != nil {
			log.Verbosef("%s: %s", menu.Description, err)
		}
	}
}
