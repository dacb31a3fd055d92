// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log/testlog"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

const unset = ^uint32(0)

func TestBootDiscoveryPolicy(t *testing.T) {
	for _, td := range []struct {
		name        string
		def         platcfg.DiscoveryPolicy
		policy, old uint32 //unset: variable absent
		noService   bool
		connectErr  error

		wantErr       error
		wantClasses   []uuid.UUID
		wantRefreshes int
		wantPolicy    uint32
		wantOld       uint32
	}{
		{
			name: "first boot minimal", def: platcfg.PolicyMinimal, policy: unset, old: unset,
			wantPolicy: 0, wantOld: unset,
		},
		{
			name: "first boot network default", def: platcfg.PolicyNetwork, policy: unset, old: unset,
			wantClasses: []uuid.UUID{guid.PolicyNetwork}, wantRefreshes: 1, wantPolicy: 1, wantOld: 1,
		},
		{
			name: "minimal to all", policy: 2, old: 0,
			wantClasses: []uuid.UUID{guid.PolicyConnectAll}, wantRefreshes: 1, wantPolicy: 2, wantOld: 2,
		},
		{
			name: "unchanged", policy: 2, old: 2,
			wantClasses: []uuid.UUID{guid.PolicyConnectAll}, wantPolicy: 2, wantOld: 2,
		},
		{
			name: "network no shadow", policy: 1, old: unset,
			wantClasses: []uuid.UUID{guid.PolicyNetwork}, wantRefreshes: 1, wantPolicy: 1, wantOld: 1,
		},
		{
			name: "unknown value", policy: 7, old: 0,
			wantPolicy: 7, wantOld: 0,
		},
		{
			name: "no policy service", policy: 2, old: 0, noService: true,
			wantPolicy: 2, wantOld: 0,
		},
		{
			name: "connect fails", policy: 1, old: 0, connectErr: EDevice,
			wantErr: EDevice, wantClasses: []uuid.UUID{guid.PolicyNetwork}, wantPolicy: 1, wantOld: 0,
		},
	} {
		t.Run(td.name, func(t *testing.T) {
			tlog := testlog.NewTestLog(t, true, false)
			defer tlog.Freeze()

			p, _, _, _ := testPlatform()
			p.Cfg.DiscoveryPolicy = td.def
			cs := &countingStore{Manager: bootmgr.New(p.Vars)}
			p.Options = cs
			svc := &fakePolicy{err: td.connectErr}
			if !td.noService {
				p.Policy = svc
			}
			for v, n := range map[string]uint32{PolicyVar: td.policy, PolicyOldVar: td.old} {
				if n == unset {
					continue
				}
				if err := efivar.SetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, v, policyAttrs, n); err != nil {
					t.Fatal(err)
				}
			}

			err := p.BootDiscoveryPolicyHandler()
			if !errors.Is(err, td.wantErr) {
				t.Errorf("got error %v, want %v", err, td.wantErr)
			}
			if len(svc.classes) != len(td.wantClasses) {
				t.Errorf("connected %v, want %v", svc.classes, td.wantClasses)
			}
			for i := range svc.classes {
				if i < len(td.wantClasses) && svc.classes[i] != td.wantClasses[i] {
					t.Errorf("connected %v, want %v", svc.classes, td.wantClasses)
				}
			}
			if cs.refreshes != td.wantRefreshes {
				t.Errorf("%d refreshes, want %d", cs.refreshes, td.wantRefreshes)
			}
			for v, want := range map[string]uint32{PolicyVar: td.wantPolicy, PolicyOldVar: td.wantOld} {
				got, err := efivar.GetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, v)
				if errors.Is(err, efivar.ENotFound) {
					got = unset
				} else if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Errorf("%s: got 0x%x want 0x%x", v, got, want)
				}
			}
		})
	}
}

// refresh happens once per change, never on a re-read
func TestPolicyRefreshOncePerChange(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	p, _, _, _ := testPlatform()
	cs := &countingStore{Manager: bootmgr.New(p.Vars)}
	p.Options = cs
	p.Policy = &fakePolicy{}

	set := func(v platcfg.DiscoveryPolicy) {
		if err := efivar.SetUint32(p.Vars, guid.BootDiscoveryPolicyMgr, PolicyVar, policyAttrs, uint32(v)); err != nil {
			t.Fatal(err)
		}
	}
	for _, step := range []struct {
		policy    platcfg.DiscoveryPolicy
		refreshes int
	}{
		{platcfg.PolicyNetwork, 1},
		{platcfg.PolicyNetwork, 1},
		{platcfg.PolicyConnectAll, 2},
		{platcfg.PolicyConnectAll, 2},
		{platcfg.PolicyMinimal, 2},
		{platcfg.PolicyConnectAll, 2},
		{platcfg.PolicyNetwork, 3},
	} {
		set(step.policy)
		if err := p.BootDiscoveryPolicyHandler(); err != nil {
			t.Fatal(err)
		}
		if cs.refreshes != step.refreshes {
			t.Errorf("after %s: %d refreshes, want %d", step.policy, cs.refreshes, step.refreshes)
		}
	}
}
