// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package capsule

import (
	"fmt"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Updater applies FMP capsules to the inventory, recording each attempt in
// the tracker.
type Updater struct {
	Tracker *Tracker
}

var _ bds.CapsuleProcessor = (*Updater)(nil)

// ProcessCapsule applies every payload of an FMP capsule. The first payload
// that cannot be applied stops processing with an error.
func (u *Updater) ProcessCapsule(r *bds.CapsuleRecord) error {
	c, err := Parse(r.Image)
	if err != nil {
		return err
	}
	if len(c.Payloads) == 0 {
		return fmt.Errorf("%w: no payloads", EParse)
	}
	for _, p := range c.Payloads {
		if err = u.apply(p); err != nil {
			return fmt.Errorf("%s: %w", p.ImageType, err)
		}
	}
	return nil
}

func (u *Updater) apply(p Payload) error {
	e, err := u.Tracker.Lookup(p.ImageType)
	if err != nil {
		return err
	}
	status := StatusSuccess
	switch {
	case len(p.Image) == 0:
		status = StatusInvalidFormat
		err = fmt.Errorf("%w: empty image", EParse)
	case p.Version < e.LowestSupported:
		status = StatusIncorrectVersion
		err = fmt.Errorf("%w: version %d below lowest supported %d", EUnsupported, p.Version, e.LowestSupported)
	default:
		if err = u.Tracker.Inv.Update(p.ImageType, p.Version, p.Image); err != nil {
			status = StatusUnsuccessful
		}
	}
	if rerr := u.Tracker.RecordAttempt(p.ImageType, p.Version, status); rerr != nil {
		log.Errorf("recording update attempt: %s", rerr)
		if err == nil {
			err = rerr
		}
	}
	if err == nil {
		log.Logf("updated %s from v%d to v%d", p.ImageType, e.FwVersion, p.Version)
	}
	return err
}
