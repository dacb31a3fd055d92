// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"io"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// HandleCapsules syncs the firmware resource table, then applies each capsule
// record in order. The first failure stops the drain. If any capsule was
// applied, the system is reset and HandleCapsules does not return.
func (p *Platform) HandleCapsules() {
	log.Logf("processing capsules")
	if p.Esrt != nil {
		if err := p.Esrt.SyncEsrtFmp(); err != nil {
			log.Warnf("syncing esrt: %s", err)
		}
	}
	if p.Capsules == nil {
		return
	}
	if p.Processor == nil {
		log.Verbosef("capsule processor %s", ENotFound)
		return
	}
	applied := 0
	it := p.Capsules.Records()
	for {
		r, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Errorf("reading capsule records: %s", err)
			break
		}
		if err = p.Processor.ProcessCapsule(r); err != nil {
			log.Errorf("failed to process capsule %s: %s", r.Source, err)
			return
		}
		log.Logf("applied capsule %s", r.Source)
		applied++
	}
	if applied > 0 {
		log.Warnf("capsule update successful, resetting")
		p.resetCold()
	}
}
