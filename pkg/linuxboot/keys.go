// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"bufio"
	"io"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// TermKeys decodes keystrokes from a terminal in raw mode: vt100/xterm
// sequences for F1-F12, Esc, Enter and printable characters. Anything else is
// dropped.
type TermKeys struct {
	ch chan uefi.InputKey
}

var _ bds.KeyReader = (*TermKeys)(nil)

// NewTermKeys starts reading r in the background. The reader is abandoned,
// not closed, once it stops being read.
func NewTermKeys(r io.Reader) *TermKeys {
	tk := &TermKeys{ch: make(chan uefi.InputKey, 16)}
	go tk.read(bufio.NewReader(r))
	return tk
}

func (tk *TermKeys) read(br *bufio.Reader) {
	defer close(tk.ch)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if k, ok := decodeKey(b, br); ok {
			tk.ch <- k
		}
	}
}

func (tk *TermKeys) ReadKey(d time.Duration) (uefi.InputKey, bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case k, ok := <-tk.ch:
		if ok {
			return k, true
		}
		//input gone; wait out the tick
		<-t.C
	case <-t.C:
	}
	return uefi.InputKey{}, false
}

const esc = 0x1b

// csi sequences: ESC [ n ~
var csiTilde = map[string]uint16{
	"11": uefi.ScanF1, "12": uefi.ScanF2, "13": uefi.ScanF3, "14": uefi.ScanF4,
	"15": 0x0f, "17": 0x10, "18": 0x11, "19": 0x12,
	"20": 0x13, "21": 0x14, "23": 0x15, "24": 0x16,
}

func decodeKey(b byte, br *bufio.Reader) (uefi.InputKey, bool) {
	switch {
	case b == '\r' || b == '\n':
		return uefi.KeyEnter, true
	case b == esc:
		if br.Buffered() == 0 {
			return uefi.InputKey{ScanCode: uefi.ScanEsc}, true
		}
		return decodeEscape(br)
	case b >= 0x20 && b < 0x7f:
		return uefi.InputKey{UnicodeChar: uint16(b)}, true
	}
	return uefi.InputKey{}, false
}

func decodeEscape(br *bufio.Reader) (uefi.InputKey, bool) {
	intro, err := br.ReadByte()
	if err != nil {
		return uefi.InputKey{}, false
	}
	switch intro {
	case 'O':
		//SS3 P-S: F1-F4
		c, err := br.ReadByte()
		if err != nil || c < 'P' || c > 'S' {
			return uefi.InputKey{}, false
		}
		return uefi.InputKey{ScanCode: uefi.ScanF1 + uint16(c-'P')}, true
	case '[':
		var param []byte
		for {
			c, err := br.ReadByte()
			if err != nil {
				return uefi.InputKey{}, false
			}
			if c >= '0' && c <= '9' || c == ';' {
				param = append(param, c)
				continue
			}
			if c != '~' {
				//arrows and the like
				return uefi.InputKey{}, false
			}
			sc, ok := csiTilde[string(param)]
			if !ok {
				return uefi.InputKey{}, false
			}
			return uefi.InputKey{ScanCode: sc}, true
		}
	}
	//alt+key; drop both
	return uefi.InputKey{}, false
}
