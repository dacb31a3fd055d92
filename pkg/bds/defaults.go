// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

type cfgDefaults struct {
	opts []platcfg.BootOption
	db   HandleDB
}

// ConfigDefaults returns the boot options listed in the platform config as
// PlatformDefaults. Firmware file entries are placed in the boot manager's
// own volume.
func ConfigDefaults(cfg *platcfg.Config, db HandleDB) PlatformDefaults {
	return &cfgDefaults{opts: cfg.BootOptions, db: db}
}

func (c *cfgDefaults) PlatformBootOptions() ([]DefaultOption, error) {
	if len(c.opts) == 0 {
		return nil, nil
	}
	vol, err := c.db.LoadedImagePath()
	if err != nil {
		return nil, err
	}
	defaults := make([]DefaultOption, 0, len(c.opts))
	for i := range c.opts {
		o, err := c.opts[i].LoadOption(vol)
		if err != nil {
			log.Errorf("platform boot option %d: %s", i, err)
			continue
		}
		defaults = append(defaults, DefaultOption{Option: o, Key: c.opts[i].Key.Input()})
	}
	return defaults, nil
}
