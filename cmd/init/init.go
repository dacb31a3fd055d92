// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Command init is the boot manager of a linuxboot initramfs. See
// github.com/purecloudlabs/platformbm/pkg/init for details.
package main

import (
	flag "github.com/spf13/pflag"

	ini "github.com/purecloudlabs/platformbm/pkg/init"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// in any binary with main.buildId string, it is set at compile time to $BUILD_INFO
var buildId string

func main() {
	o := ini.DefaultOptions
	flag.StringVar(&o.Config, "config", o.Config, "platform config")
	flag.StringVar(&o.Efivarfs, "efivarfs", o.Efivarfs, "efivarfs mount point, if not the default")
	flag.StringVar(&o.LogDir, "log-dir", o.LogDir, "also log to a file in this dir")
	flag.BoolVar(&o.Kmsg, "kmsg", o.Kmsg, "also log to the kernel ring buffer")
	flag.StringVar(&o.Host.FvDir, "fv", o.Host.FvDir, "dir holding firmware volumes")
	flag.StringVar(&o.Host.BootRoot, "boot", o.Host.BootRoot, "boot filesystem mount point")
	fv := flag.String("image-fv", "", "guid of the volume holding the boot manager's files")
	flag.BoolVarP(&o.Verbose, "verbose", "v", false, "show verbose log entries")
	flag.Parse()

	if *fv != "" {
		if err := o.Host.ImageFv.UnmarshalText([]byte(*fv)); err != nil {
			log.Fatalf("image-fv: %s", err)
		}
	}
	log.Logf("buildId: %s", buildId)
	ini.Boot(o)
}
