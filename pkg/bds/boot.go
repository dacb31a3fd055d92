// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"errors"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// KeyReader supplies keystrokes typed during the boot countdown.
type KeyReader interface {
	// Waits up to d for a key. ok is false on timeout.
	ReadKey(d time.Duration) (k uefi.InputKey, ok bool)
}

const BootNextVar = "BootNext"

// Boot runs the whole boot flow: the console hooks, the countdown, BootNext,
// every boot-category option in BootOrder, and finally UnableToBoot. keys may
// be nil, in which case the countdown just waits. Does not return.
func (p *Platform) Boot(keys KeyReader) {
	p.BeforeConsole()
	p.AfterConsole()

	if hot := p.countdown(keys); hot != nil {
		p.tryBoot(hot)
	}
	if next := p.bootNext(); next != nil {
		p.tryBoot(next)
	}
	for _, o := range p.Options.LoadOptions() {
		if !o.IsActive() || o.Category() != uefi.LoadOptionCategoryBoot {
			continue
		}
		p.tryBoot(o)
	}
	p.UnableToBoot()
}

// Counts down the configured timeout, calling WaitCallback once a second.
// Returns the option bound to a hotkey if one was pressed. A continue key or
// any unbound key ends the countdown early.
func (p *Platform) countdown(keys KeyReader) *uefi.LoadOption {
	for remaining := p.Cfg.BootTimeout; remaining > 0; remaining-- {
		p.WaitCallback(remaining)
		if keys == nil {
			time.Sleep(time.Second)
			continue
		}
		k, ok := keys.ReadKey(time.Second)
		if !ok {
			continue
		}
		if p.Options.IsContinueKey(0, k) {
			log.Verbosef("%s: continue", k)
			break
		}
		ko := p.Options.LookupKey(0, k)
		if ko == nil {
			log.Verbosef("%s: not bound", k)
			break
		}
		o, err := p.Options.LoadOption(int(ko.BootOption))
		if err != nil {
			log.Warnf("%s: %s", ko, err)
			break
		}
		log.Logf("hotkey %s selects %q", k, o.Description)
		p.WaitCallback(0)
		return o
	}
	p.WaitCallback(0)
	return nil
}

// Reads and deletes BootNext. nil if unset or stale.
func (p *Platform) bootNext() *uefi.LoadOption {
	num, err := efivar.GetUint16(p.Vars, guid.GlobalVariable, BootNextVar)
	if err != nil {
		if !errors.Is(err, efivar.ENotFound) {
			log.Warnf("%s: %s", BootNextVar, err)
		}
		return nil
	}
	if err = p.Vars.Delete(guid.GlobalVariable, BootNextVar); err != nil {
		log.Warnf("deleting %s: %s", BootNextVar, err)
	}
	o, err := p.Options.LoadOption(int(num))
	if err != nil {
		log.Warnf("%s: %s", BootNextVar, err)
		return nil
	}
	return o
}

func (p *Platform) tryBoot(o *uefi.LoadOption) {
	log.Logf("booting %s %q", o.Name("Boot"), o.Description)
	if err := p.Booter.Boot(o); err != nil {
		log.Warnf("%s %q: %s", o.Name("Boot"), o.Description, err)
	}
}
