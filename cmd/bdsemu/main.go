// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Command bdsemu runs the boot flow against an emulated machine, rebooting it
// whenever it resets, until an os boots or the machine halts.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/purecloudlabs/platformbm/pkg/emu"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/log/flags"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

func main() {
	machine := flag.StringP("machine", "m", "machine.yaml", "machine description")
	cfgPath := flag.StringP("config", "c", "", "platform config; defaults are used if unset or missing")
	varDir := flag.String("vars", "", "bitcask dir persisting non-volatile variables; ram only if unset")
	maxBoots := flag.Int("max-boots", 8, "give up after this many boots")
	verbose := flag.BoolP("verbose", "v", false, "show verbose log entries")
	logDir := flag.String("log-dir", "", "also log to a file in this dir")
	flag.Parse()

	show := flags.NA
	if *verbose {
		show = flags.Verbose
	}
	log.AddConsoleLog(show)
	if *logDir != "" {
		if name, err := log.AddFileLog(*logDir); err != nil {
			log.Errorf("file log: %s", err)
		} else {
			log.Verbosef("logging to %s", name)
		}
	}
	log.FlushMemLog()

	m, err := emu.Load(*machine)
	if err != nil {
		log.Fatalf("%s", err)
		return
	}
	cfg := platcfg.Default()
	if *cfgPath != "" {
		if cfg, err = platcfg.Load(*cfgPath); err != nil {
			log.Fatalf("%s", err)
			return
		}
	}

	var vars efivar.Store = efivar.NewMemStore()
	if *varDir != "" {
		bc, err := efivar.OpenBitcask(*varDir)
		if err != nil {
			log.Fatalf("opening %s: %s", *varDir, err)
			return
		}
		vars = bc
	}

	e := emu.New(m, cfg, vars)
	e.Out = os.Stdout
	e.MaxBoots = *maxBoots
	e.Menu = emu.ReadlineMenu(os.Stdin, os.Stdout)
	res, err := e.Run()
	fmt.Println(res)
	if c, ok := e.Vars.(interface{ Close() error }); ok {
		if cerr := c.Close(); cerr != nil {
			log.Errorf("closing %s: %s", *varDir, cerr)
		}
	}
	log.Finalize()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
