// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"io"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/hw/dmi"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/power"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

// Host describes where things live on the linux host.
type Host struct {
	Sysfs    string    //parent of sys/; "/" on a real host
	FvDir    string    //holds one directory per firmware volume
	ImageFv  uuid.UUID //volume the boot manager's own files are in
	BootRoot string    //mount point of the boot filesystem
	Console  io.Writer
}

// Platform assembles the boot flow's services for the host.
// A config without a firmware version takes the one in SMBIOS.
func (h *Host) Platform(cfg *platcfg.Config, vars efivar.Store) *bds.Platform {
	if cfg.FirmwareVersion == "" {
		if v := dmi.String(dmi.BiosVersion); v != "" {
			c := *cfg
			c.FirmwareVersion = v
			cfg = &c
		}
	}
	vols := DirVolumes{Root: h.FvDir}
	db := NewSysfsDB(h.Sysfs, uefi.DevicePath{uefi.FvNode(h.ImageFv)})
	p := bds.New(cfg, db, vars, vols, power.Host{}, &Booter{Root: h.BootRoot, Volumes: vols})
	p.Policy = NewPolicy()
	p.Defaults = bds.ConfigDefaults(cfg, db)
	if h.Console != nil {
		p.Display = &TextDisplay{W: h.Console}
	}
	return p
}
