// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Returns the firmware file node if p is MemoryMapped(...)/FvFile(...) or
// Fv(...)/FvFile(...), followed by anything.
func fvFileTarget(p uefi.DevicePath) (*uefi.DppMediaPIWGFF, bool) {
	if len(p) < 2 {
		return nil, false
	}
	switch p[0].(type) {
	case *uefi.DppHwMMap, *uefi.DppMediaPIWGFV:
	default:
		return nil, false
	}
	ff, ok := p[1].(*uefi.DppMediaPIWGFF)
	return ff, ok
}

// Resolves the volume named by the first node and looks for the file named by
// the second.
func (p *Platform) fvFileResolves(path uefi.DevicePath, ff *uefi.DppMediaPIWGFF) bool {
	if p.Volumes == nil {
		return false
	}
	vol, err := p.Volumes.LocateVolume(path[:1])
	if err != nil {
		log.Verbosef("%s: locating volume: %s", path, err)
		return false
	}
	if _, err = vol.FileInfo(ff.Name.ToStdEnc()); err != nil {
		log.Verbosef("%s: %s", path, err)
		return false
	}
	return true
}

// RemoveStaleFvFileOptions deletes options pointing at firmware files that no
// longer exist at that location: the volume moved or was renamed, or the file
// guid changed or the file was dropped from the image. Options of any other
// shape are left alone.
func (p *Platform) RemoveStaleFvFileOptions() {
	for _, o := range p.Options.LoadOptions() {
		ff, ok := fvFileTarget(o.FilePath)
		if !ok || p.fvFileResolves(o.FilePath, ff) {
			continue
		}
		err := p.Options.DeleteLoadOption(o.Number)
		if err != nil {
			log.Warnf("removing stale %s %s: %s", o.Name("Boot"), o.FilePath, err)
			continue
		}
		log.Verbosef("removing stale %s %s: success", o.Name("Boot"), o.FilePath)
	}
}
