// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Command bootvars prints the boot manager's variables: boot order, load
// options, hotkeys and consoles. Reads efivarfs by default, or the bitcask
// store written by bdsemu.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

func main() {
	efivarfs := flag.String("efivarfs", efivar.DefaultEfivarfs, "efivarfs mount point")
	bc := flag.String("bitcask", "", "read this bitcask store instead of efivarfs")
	all := flag.BoolP("all", "a", false, "also list every variable in the store")
	flag.Parse()

	log.AddConsoleLog(0)
	log.FlushMemLog()

	var vars efivar.Store = efivar.NewEfivarfs(*efivarfs)
	if *bc != "" {
		s, err := efivar.OpenBitcask(*bc)
		if err != nil {
			log.Fatalf("opening %s: %s", *bc, err)
			return
		}
		defer s.Close()
		vars = s
	}
	dump(os.Stdout, vars, *all)
}

func dump(w io.Writer, vars efivar.Store, all bool) {
	m := bootmgr.New(vars)
	order, err := m.BootOrder()
	if err != nil {
		fmt.Fprintf(w, "BootOrder: %s\n", err)
	} else {
		fmt.Fprintf(w, "BootOrder: %04X\n", order)
	}
	for _, name := range []string{bds.BootNextVar, "BootCurrent"} {
		if v, err := efivar.GetUint16(vars, guid.GlobalVariable, name); err == nil {
			fmt.Fprintf(w, "%s: %04X\n", name, v)
		}
	}
	for _, o := range m.LoadOptions() {
		auto := ""
		if bootmgr.IsAutoCreated(o) {
			auto = " (auto)"
		}
		fmt.Fprintf(w, "%s%s\n", o, auto)
	}

	keys, err := m.KeyOptions()
	if err != nil {
		fmt.Fprintf(w, "key options: %s\n", err)
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%s\n", k)
	}
	for _, k := range m.ContinueKeys() {
		fmt.Fprintf(w, "continue: %s\n", k)
	}

	for _, c := range []bootmgr.ConsoleVar{bootmgr.ConIn, bootmgr.ConOut, bootmgr.ErrOut} {
		paths, err := m.ConsoleInstances(c)
		if err != nil {
			fmt.Fprintf(w, "%s: %s\n", c, err)
			continue
		}
		for _, p := range paths {
			fmt.Fprintf(w, "%s: %s\n", c, p)
		}
	}

	if !all {
		return
	}
	ids, err := vars.List(nil)
	if err != nil {
		log.Errorf("listing variables: %s", err)
		return
	}
	for _, id := range ids {
		_, attrs, err := vars.Get(id.Vendor, id.Name)
		if err != nil {
			fmt.Fprintf(w, "%s: %s\n", id, err)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", id, attrs)
	}
}
