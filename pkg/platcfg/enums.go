// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package platcfg

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// DiscoveryPolicy is the breadth of device connection before boot. Values
// match those stored in the BootDiscoveryPolicy variable.
type DiscoveryPolicy uint32

const (
	PolicyMinimal    DiscoveryPolicy = 0
	PolicyNetwork    DiscoveryPolicy = 1
	PolicyConnectAll DiscoveryPolicy = 2
)

var policyNames = map[DiscoveryPolicy]string{
	PolicyMinimal:    "minimal",
	PolicyNetwork:    "network",
	PolicyConnectAll: "all",
}

func (p DiscoveryPolicy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("unknown(0x%x)", uint32(p))
}

func (p DiscoveryPolicy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("%w: discovery policy 0x%x", EInvalid, uint32(p))
	}
	return []byte(p.String()), nil
}

func (p *DiscoveryPolicy) UnmarshalText(b []byte) error {
	for k, v := range policyNames {
		if strings.EqualFold(v, string(b)) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("%w: discovery policy %q", EInvalid, b)
}

type TerminalType string

const (
	TermPcAnsi    TerminalType = "pcansi"
	TermVt100     TerminalType = "vt100"
	TermVt100Plus TerminalType = "vt100+"
	TermVtUtf8    TerminalType = "vt-utf8"
	TermTty       TerminalType = "tty"
)

var termGuids = map[TerminalType]uuid.UUID{
	TermPcAnsi:    guid.PcAnsi,
	TermVt100:     guid.VT100,
	TermVt100Plus: guid.VT100Plus,
	TermVtUtf8:    guid.VTUTF8,
	TermTty:       guid.TtyTerm,
}

// Guid returns the vendor guid identifying the terminal type in a device
// path; unknown types are treated as tty.
func (t TerminalType) Guid() uuid.UUID {
	if g, ok := termGuids[t]; ok {
		return g
	}
	return guid.TtyTerm
}

type Parity uint8

const (
	ParityDefault = Parity(uefi.ParityDefault)
	ParityNone    = Parity(uefi.ParityNone)
	ParityEven    = Parity(uefi.ParityEven)
	ParityOdd     = Parity(uefi.ParityOdd)
	ParityMark    = Parity(uefi.ParityMark)
	ParitySpace   = Parity(uefi.ParitySpace)
)

const parityLetters = "DNEOMS"

func (p Parity) String() string {
	if int(p) < len(parityLetters) {
		return parityLetters[p : p+1]
	}
	return "?"
}

func (p Parity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Parity) UnmarshalText(b []byte) error {
	s := strings.ToUpper(string(b))
	if len(s) == 1 {
		if i := strings.Index(parityLetters, s); i >= 0 {
			*p = Parity(i)
			return nil
		}
	}
	return fmt.Errorf("%w: parity %q", EInvalid, b)
}

type StopBits uint8

const (
	StopBitsDefault = StopBits(uefi.StopBitsDefault)
	StopBits1       = StopBits(uefi.StopBits1)
	StopBits15      = StopBits(uefi.StopBits15)
	StopBits2       = StopBits(uefi.StopBits2)
)

var stopNames = []string{"default", "1", "1.5", "2"}

func (s StopBits) String() string {
	if int(s) < len(stopNames) {
		return stopNames[s]
	}
	return "?"
}

func (s StopBits) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *StopBits) UnmarshalText(b []byte) error {
	for i, n := range stopNames {
		if n == string(b) {
			*s = StopBits(i)
			return nil
		}
	}
	return fmt.Errorf("%w: stop bits %q", EInvalid, b)
}

// SerialPath returns the serial console path: the serial port vendor node,
// the uart node with these parameters, and the terminal type node.
func (c *Config) SerialPath() uefi.DevicePath {
	return uefi.DevicePath{
		uefi.VendorHw(guid.SerialPortLibVendor),
		&uefi.DppMsgUART{
			BaudRate: c.Uart.BaudRate,
			DataBits: c.Uart.DataBits,
			Parity:   uint8(c.Uart.Parity),
			StopBits: uint8(c.Uart.StopBits),
		},
		uefi.VendorMsg(c.TerminalType.Guid()),
	}
}
