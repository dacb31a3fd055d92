// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package init

import (
	"fmt"
	"io/ioutil"
	fp "path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/purecloudlabs/platformbm/pkg/hw/serial"
	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

var procCmdline = "/proc/cmdline"

// ConsoleDevice returns the device named by the last console= parameter in a
// kernel command line, without its options. "" if there is none.
func ConsoleDevice(cmdline string) string {
	args, err := shlex.Split(cmdline)
	if err != nil {
		log.Logf("parsing kernel command line: %s", err)
		return ""
	}
	var dev string
	for _, a := range args {
		if v := strings.TrimPrefix(a, "console="); v != a {
			dev = strings.SplitN(v, ",", 2)[0]
		}
	}
	return dev
}

// Opens the kernel's serial console with the configured line settings.
func openConsole(devDir string, cfg *platcfg.Config) (*serial.Port, error) {
	cl, err := ioutil.ReadFile(procCmdline)
	if err != nil {
		return nil, err
	}
	dev := ConsoleDevice(string(cl))
	if !strings.HasPrefix(dev, "tty") || dev == "tty0" {
		return nil, fmt.Errorf("no serial console in %q", strings.TrimSpace(string(cl)))
	}
	p, err := serial.Open(fp.Join(devDir, dev), cfg.Uart)
	if err != nil {
		return nil, fmt.Errorf("console %s: %w", dev, err)
	}
	log.Logf("console on %s at %d %d%s%s", dev, cfg.Uart.BaudRate, cfg.Uart.DataBits, parityLetter(cfg.Uart.Parity), cfg.Uart.StopBits)
	return p, nil
}

func parityLetter(p platcfg.Parity) string {
	switch p {
	case platcfg.ParityEven:
		return "E"
	case platcfg.ParityOdd:
		return "O"
	case platcfg.ParityMark:
		return "M"
	case platcfg.ParitySpace:
		return "S"
	}
	return "N"
}
