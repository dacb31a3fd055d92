// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"unicode/utf8"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

const (
	VersionPrefix = "firmware version "
	BootPrompt    = "Setup (ESC/F2)   Shell (F1)   Reset to MaskROM (F4)   Continue (Enter)"

	glyphWidth = 8
)

// Platform holds the services the boot flow runs against. Optional services
// may be nil, meaning the service is not installed.
type Platform struct {
	Cfg     *platcfg.Config
	Handles HandleDB
	Vars    efivar.Store
	Options OptionStore
	Volumes FirmwareVolumes

	Policy    PolicyService    //optional
	Capsules  CapsuleSource    //optional
	Processor CapsuleProcessor //optional
	Esrt      EsrtService      //optional
	Display   Display          //optional
	Events    Events           //optional
	Defaults  PlatformDefaults //optional

	Resetter Resetter
	Booter   Booter
}

// New returns a Platform using a bootmgr.Manager over vars for option
// persistence. Optional services are left for the caller to fill in.
func New(cfg *platcfg.Config, db HandleDB, vars efivar.Store, fv FirmwareVolumes, r Resetter, b Booter) *Platform {
	return &Platform{
		Cfg:      cfg,
		Handles:  db,
		Vars:     vars,
		Options:  bootmgr.New(vars),
		Volumes:  fv,
		Resetter: r,
		Booter:   b,
	}
}

// BeforeConsole runs before any console device is connected.
func (p *Platform) BeforeConsole() {
	if p.Events != nil {
		p.Events.Signal(EventEndOfDxe)
		if err := p.Events.DispatchDeferredImages(); err != nil {
			log.Verbosef("dispatching deferred images: %s", err)
		}
	}

	//console input is only enabled for devices already listed in ConIn, so
	//the keyboard must be there before usb controllers are connected
	p.addConsole(bootmgr.ConIn, UsbKeyboardPath())

	p.FilterAndProcess(CapPciRootBridge, nil, p.connect)
	p.FilterAndProcess(CapPciIo, p.isPciDisplay, p.connect)
	p.FilterAndProcess(CapGraphicsOutput, nil, p.addOutput)
	p.FilterAndProcess(CapNonDiscoverable, p.isUsbHost, p.connect)
	p.FilterAndProcess(CapOhci, nil, p.connect)

	serial := p.Cfg.SerialPath()
	for _, c := range []bootmgr.ConsoleVar{bootmgr.ConIn, bootmgr.ConOut, bootmgr.ErrOut} {
		p.addConsole(c, serial)
	}

	p.RegisterOptionsAndKeys()
}

// AfterConsole runs once consoles are live.
func (p *Platform) AfterConsole() {
	if p.Events != nil {
		p.Events.Signal(EventAfterConsole)
	}
	p.banner()

	if err := p.BootDiscoveryPolicyHandler(); err != nil {
		log.Verbosef("boot discovery policy: %s", err)
	}
	p.HandleCapsules()
}

func (p *Platform) banner() {
	if p.Display == nil {
		log.Verbosef("no display service")
		return
	}
	ver := p.Cfg.FirmwareVersion
	if err := p.Display.EnableLogo(); err != nil {
		if ver != "" {
			p.Display.Print(VersionPrefix + ver + "\n")
		}
		p.Display.Print(BootPrompt)
		return
	}
	if ver == "" {
		return
	}
	hres, _, err := p.Display.Resolution()
	if err != nil {
		log.Verbosef("graphics mode: %s", err)
		return
	}
	text := VersionPrefix + ver
	x := (hres - utf8.RuneCountInString(text)*glyphWidth) / 2
	if x < 0 {
		x = 0
	}
	if err = p.Display.PrintXY(x, 0, text); err != nil {
		log.Verbosef("printing version: %s", err)
	}
}

// WaitCallback is called once per second of the boot countdown with the
// seconds remaining.
func (p *Platform) WaitCallback(remaining uint16) {
	if p.Display == nil {
		return
	}
	if err := p.Display.UpdateProgress(BootPrompt, Progress(p.Cfg.BootTimeout, remaining)); err != nil {
		p.Display.Print(".")
	}
}

// Progress returns the countdown progress in percent. A zero timeout is
// complete.
func Progress(timeout, remaining uint16) int {
	switch {
	case timeout == 0:
		return 100
	case remaining > timeout:
		return 0
	}
	return int(timeout-remaining) * 100 / int(timeout)
}

// Path of the volume holding the boot manager itself. Its absence means the
// firmware image is broken.
func (p *Platform) imageVolume() (uefi.DevicePath, bool) {
	vol, err := p.Handles.LoadedImagePath()
	if err != nil || len(vol) == 0 {
		log.Fatalf("loaded image device path unavailable: %v", err)
		return nil, false
	}
	return vol, true
}
