// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package emu

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/capsule"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

var EMaxBoots = errors.New("boot limit reached")

// How an emulated boot ended. Carried by panics out of the boot flow, which
// does not return on success.
type (
	resetSignal struct{}
	osSignal    struct{ o *uefi.LoadOption }
	haltSignal  struct{ why string }
)

// Result summarizes a run.
type Result struct {
	Boots int
	//option that booted an os, nil if none did
	Booted *uefi.LoadOption
	//why the run ended without booting an os
	Halted string
}

func (r *Result) String() string {
	switch {
	case r.Booted != nil:
		return fmt.Sprintf("booted %s %q after %d boot(s)", r.Booted.Name("Boot"), r.Booted.Description, r.Boots)
	case r.Halted != "":
		return fmt.Sprintf("halted after %d boot(s): %s", r.Boots, r.Halted)
	}
	return fmt.Sprintf("%d boot(s)", r.Boots)
}

// LineReader reads commands for the boot manager menu.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Emulator runs the boot flow on a Machine until an os boots, the machine
// halts, or MaxBoots boots have happened.
type Emulator struct {
	M   *Machine
	Cfg *platcfg.Config
	//variables survive resets; volatile ones are dropped on reset, and all of
	//them if Cfg.EmuVariableNV is set
	Vars     efivar.Store
	Out      io.Writer
	MaxBoots int
	//opens the menu's input; nil means the menu has no input
	Menu func() (LineReader, error)

	inv  *capsule.MemInventory
	keys []platcfg.Key
	cur  *bds.Platform
	db   *handleDB
}

func New(m *Machine, cfg *platcfg.Config, vars efivar.Store) *Emulator {
	return &Emulator{
		M:        m,
		Cfg:      cfg,
		Vars:     vars,
		Out:      ioutil.Discard,
		MaxBoots: 8,
		inv:      &capsule.MemInventory{Res: append([]capsule.Resource(nil), m.Firmware...)},
		keys:     append([]platcfg.Key(nil), m.Keys...),
	}
}

// Inventory is the machine's updatable firmware, as changed by capsules.
func (e *Emulator) Inventory() *capsule.MemInventory { return e.inv }

// Run boots the machine repeatedly, rebooting after each reset.
func (e *Emulator) Run() (*Result, error) {
	res := &Result{}
	prev := log.GetFatalAction()
	log.SetFatalAction(log.FailAction{
		MsgPfx:     prev.MsgPfx,
		Terminator: func() { panic(haltSignal{"fatal error"}) },
	})
	defer log.SetFatalAction(prev)

	for res.Boots < e.MaxBoots {
		res.Boots++
		log.Logf("%s: boot %d", e.M.Name, res.Boots)
		switch sig := e.boot().(type) {
		case resetSignal:
			e.reboot()
		case osSignal:
			res.Booted = sig.o
			return res, nil
		case haltSignal:
			res.Halted = sig.why
			return res, nil
		default:
			panic(sig)
		}
	}
	return res, fmt.Errorf("%w: %d", EMaxBoots, e.MaxBoots)
}

// Runs one boot, returning how it ended.
func (e *Emulator) boot() (sig interface{}) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch r.(type) {
		case resetSignal, osSignal, haltSignal:
			sig = r
		default:
			panic(r)
		}
	}()
	p := e.Platform()
	p.Boot(e.keyReader())
	return haltSignal{"boot flow returned"}
}

// Platform wires a fresh boot's services together.
func (e *Emulator) Platform() *bds.Platform {
	e.db = newHandleDB(e.M)
	p := bds.New(e.Cfg, e.db, e.Vars, volumes(e.M.Volumes), e, e)
	p.Events = events{}
	p.Display = &display{w: e.Out, width: e.M.Display}
	p.Defaults = bds.ConfigDefaults(e.Cfg, e.db)
	if e.M.PolicyService {
		p.Policy = policy{db: e.db}
	}
	if dir := e.M.CapsuleDir(); dir != "" {
		p.Capsules = &capsule.DirSource{Dir: dir}
	}
	if len(e.M.Firmware) > 0 {
		t := &capsule.Tracker{Vars: e.Vars, Inv: e.inv}
		p.Esrt = t
		p.Processor = &capsule.Updater{Tracker: t}
	}
	e.cur = p
	return p
}

// Drops what a reset loses.
func (e *Emulator) reboot() {
	if e.Cfg.EmuVariableNV {
		e.Vars = efivar.NewMemStore()
		return
	}
	if r, ok := e.Vars.(interface{ Reset() }); ok {
		r.Reset()
	}
}

func (e *Emulator) ResetCold() {
	log.Logf("%s: cold reset", e.M.Name)
	panic(resetSignal{})
}

// Boot launches an option: an application in a firmware volume, or whatever
// the device the option points at does when booted.
func (e *Emulator) Boot(o *uefi.LoadOption) error {
	if file, ok := fvFile(o.FilePath); ok {
		v, err := volumes(e.M.Volumes).LocateVolume(o.FilePath)
		if err != nil {
			return err
		}
		if _, err = v.FileInfo(file); err != nil {
			return err
		}
		switch file {
		case e.Cfg.MenuFile:
			return e.menu()
		case e.Cfg.MaskromFile:
			fmt.Fprintln(e.Out, "resetting to maskrom")
			e.ResetCold()
		}
		return fmt.Errorf("application %s exited", file)
	}
	d := e.db.deviceFor(o.FilePath)
	if d == nil {
		return fmt.Errorf("%w: %s", bds.ENotFound, o.FilePath)
	}
	if d.Boot != "os" {
		return fmt.Errorf("%w: %s: no bootable media", bds.EDevice, d.Name)
	}
	fmt.Fprintf(e.Out, "booting os from %s\n", d.Name)
	panic(osSignal{o})
}

func fvFile(p uefi.DevicePath) (uuid.UUID, bool) {
	if len(p) == 0 {
		return uuid.Nil, false
	}
	ff, ok := p[len(p)-1].(*uefi.DppMediaPIWGFF)
	if !ok {
		return uuid.Nil, false
	}
	return ff.Name.ToStdEnc(), true
}

// Hands out the next scripted key, once, to each boot's countdown.
type keyReader struct{ k *platcfg.Key }

func (e *Emulator) keyReader() *keyReader {
	kr := &keyReader{}
	if len(e.keys) > 0 {
		kr.k = &e.keys[0]
		e.keys = e.keys[1:]
	}
	return kr
}

func (kr *keyReader) ReadKey(time.Duration) (uefi.InputKey, bool) {
	if kr.k == nil {
		return uefi.InputKey{}, false
	}
	k := kr.k.Input()
	kr.k = nil
	return k, true
}
