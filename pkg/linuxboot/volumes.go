// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"fmt"
	"os"
	fp "path/filepath"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// EFI_FV_FILETYPE_APPLICATION
const fvFileTypeApp = 0x09

// DirVolumes maps firmware volumes onto directories: volume Fv(g) is the
// directory <Root>/<g>, and file FvFile(f) in it is the file named f.
type DirVolumes struct {
	Root string
}

var _ bds.FirmwareVolumes = DirVolumes{}

type dirVolume string

func (dv DirVolumes) LocateVolume(p uefi.DevicePath) (bds.Volume, error) {
	for _, n := range p {
		fv, ok := n.(*uefi.DppMediaPIWGFV)
		if !ok {
			continue
		}
		dir := fp.Join(dv.Root, fv.Name.ToStdEnc().String())
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dirVolume(dir), nil
		}
		break
	}
	return nil, fmt.Errorf("%w: volume for %s", bds.ENotFound, p)
}

func (v dirVolume) FileInfo(name uuid.UUID) (bds.FileInfo, error) {
	fi, err := os.Stat(v.File(name))
	if err != nil {
		if os.IsNotExist(err) {
			return bds.FileInfo{}, fmt.Errorf("%w: %s", bds.ENotFound, name)
		}
		return bds.FileInfo{}, fmt.Errorf("%w: %s", bds.EDevice, err)
	}
	return bds.FileInfo{Size: uint64(fi.Size()), Type: fvFileTypeApp}, nil
}

func (v dirVolume) File(name uuid.UUID) string { return fp.Join(string(v), name.String()) }
