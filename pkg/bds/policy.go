// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

// variables in the guid.BootDiscoveryPolicyMgr namespace
const (
	PolicyVar    = "BootDiscoveryPolicy"
	PolicyOldVar = "BootDiscoveryPolicyOld"
)

const policyAttrs = efivar.NonVolatile | efivar.BootServiceAccess

// Returns the device class to connect for a policy. Minimal has none.
func policyClass(pol platcfg.DiscoveryPolicy) (uuid.UUID, error) {
	switch pol {
	case platcfg.PolicyMinimal:
		return uuid.Nil, nil
	case platcfg.PolicyNetwork:
		return guid.PolicyNetwork, nil
	case platcfg.PolicyConnectAll:
		return guid.PolicyConnectAll, nil
	}
	return uuid.Nil, fmt.Errorf("%w: unexpected discovery policy 0x%x", EPolicy, uint32(pol))
}

// Reads the persisted policy. If unset, the configured default is used and
// persisted.
func (p *Platform) discoveryPolicy() (platcfg.DiscoveryPolicy, error) {
	v, err := efivar.GetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, PolicyVar)
	if err == nil {
		return platcfg.DiscoveryPolicy(v), nil
	}
	if !errors.Is(err, efivar.ENotFound) {
		return 0, err
	}
	pol := p.Cfg.DiscoveryPolicy
	if err = efivar.SetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, PolicyVar, policyAttrs, uint32(pol)); err != nil {
		log.Errorf("%s: persisting default %s: %s", PolicyVar, pol, err)
	}
	return pol, nil
}

// BootDiscoveryPolicyHandler connects the device class selected by the
// discovery policy and, if the policy changed since it was last acted upon,
// regenerates all boot options and records the new value.
//
// Minimal, unrecognized values, and a missing policy service all connect
// nothing and return nil. Errors reading the policy or connecting the class
// are returned.
func (p *Platform) BootDiscoveryPolicyHandler() error {
	pol, err := p.discoveryPolicy()
	if err != nil {
		return fmt.Errorf("reading %s: %w", PolicyVar, err)
	}
	class, err := policyClass(pol)
	if err != nil {
		log.Warnf("%s, running minimal discovery policy", err)
		return nil
	}
	if class == uuid.Nil {
		return nil
	}
	if p.Policy == nil {
		log.Logf("boot manager policy service %s, driver connect skipped", ENotFound)
		return nil
	}
	if err = p.Policy.ConnectDeviceClass(class); err != nil {
		log.Errorf("connecting device class %s: %s", pol, err)
		return fmt.Errorf("%w: connecting %s: %s", EDevice, pol, err)
	}

	old, err := efivar.GetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, PolicyOldVar)
	if err == nil && platcfg.DiscoveryPolicy(old) == pol {
		return nil
	}
	if err != nil && !errors.Is(err, efivar.ENotFound) {
		log.Warnf("reading %s: %s", PolicyOldVar, err)
	}
	log.Logf("discovery policy is now %s, refreshing boot options", pol)
	p.RefreshAllBootOptions()
	if err = efivar.SetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, PolicyOldVar, policyAttrs, uint32(pol)); err != nil {
		log.Errorf("%s: %s", PolicyOldVar, fmt.Errorf("%w: %s", EPersist, err))
	}
	return nil
}
