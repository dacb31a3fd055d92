// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package init runs the boot manager as pid 1 of a linuxboot initramfs: it
// sets up logging and the console, loads the platform config, and hands
// over to the boot flow, which ends in kexec or a reset.
package init

import (
	"io"
	"os"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/kmsg"
	"github.com/purecloudlabs/platformbm/pkg/hw/power"
	"github.com/purecloudlabs/platformbm/pkg/hw/serial"
	hk "github.com/purecloudlabs/platformbm/pkg/init/housekeeping"
	"github.com/purecloudlabs/platformbm/pkg/linuxboot"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/log/flags"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

// Options locate the boot manager's inputs on the host.
type Options struct {
	Config   string //platform config file
	Efivarfs string //"" for the default mount point
	DevDir   string //where console devices are
	LogDir   string //if set, the log is also written to a file here
	Kmsg     bool   //also log to the kernel ring buffer
	Verbose  bool
	Host     linuxboot.Host
}

var DefaultOptions = Options{
	Config: "/etc/platformbm.json",
	DevDir: "/dev",
	Kmsg:   true,
	Host: linuxboot.Host{
		Sysfs:    "/",
		FvDir:    "/fv",
		BootRoot: "/boot",
	},
}

// Boot does not return.
func Boot(o Options) {
	show := flags.NA
	if o.Verbose {
		show = flags.Verbose
	}
	log.AddConsoleLog(show)
	if o.LogDir != "" {
		if _, err := log.AddFileLog(o.LogDir); err != nil {
			log.Logf("file log: %s", err)
		}
	}
	if o.Kmsg {
		if err := kmsg.AddKmsgLog(kmsg.FacUser, "platformbm"); err != nil {
			log.Logf("kmsg log: %s", err)
		}
	}
	log.FlushMemLog()
	power.Install()
	hk.AddPrebootDefaults(nil)

	cfg, err := platcfg.Load(o.Config)
	if err != nil {
		log.Errorf("%s, using defaults", err)
		cfg = platcfg.Default()
	}
	vars := efivar.NewEfivarfs(o.Efivarfs)

	h := o.Host
	var keys bds.KeyReader
	h.Console, keys = console(o.DevDir, cfg)
	p := h.Platform(cfg, vars)
	p.Boot(keys)
}

// Picks the serial console if the kernel has one, stdio otherwise.
func console(devDir string, cfg *platcfg.Config) (io.Writer, bds.KeyReader) {
	port, err := openConsole(devDir, cfg)
	if err == nil {
		hk.Preboots.Add(&hk.HkTask{Name: "close-console", Func: func(bool) { _ = port.Close() }})
		return port, linuxboot.NewTermKeys(port)
	}
	log.Verbosef("%s; using stdio", err)
	restore, err := serial.MakeRaw(os.Stdin.Fd())
	if err != nil {
		log.Logf("stdin raw mode: %s", err)
	} else {
		hk.Preboots.Add(&hk.HkTask{Name: "restore-stdin", Func: func(bool) { _ = restore() }})
	}
	return os.Stdout, linuxboot.NewTermKeys(os.Stdin)
}
