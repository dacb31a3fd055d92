// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

func TestDecodeKey(t *testing.T) {
	for _, td := range []struct {
		in   string
		want []uefi.InputKey
	}{
		{"\r", []uefi.InputKey{uefi.KeyEnter}},
		{"a\n", []uefi.InputKey{{UnicodeChar: 'a'}, uefi.KeyEnter}},
		{"\x1b", []uefi.InputKey{{ScanCode: uefi.ScanEsc}}},
		{"\x1bOP\x1bOS", []uefi.InputKey{uefi.KeyF1, {ScanCode: uefi.ScanF4}}},
		{"\x1b[12~", []uefi.InputKey{{ScanCode: uefi.ScanF2}}},
		{"\x1b[24~x", []uefi.InputKey{{ScanCode: 0x16}, {UnicodeChar: 'x'}}},
		{"\x1b[A\x1b[99~\x03", nil},
		{"\x1bx", nil},
	} {
		br := bufio.NewReader(strings.NewReader(td.in))
		var got []uefi.InputKey
		for {
			b, err := br.ReadByte()
			if err != nil {
				break
			}
			if k, ok := decodeKey(b, br); ok {
				got = append(got, k)
			}
		}
		if len(got) != len(td.want) {
			t.Errorf("%q: got %v, want %v", td.in, got, td.want)
			continue
		}
		for i := range got {
			if got[i] != td.want[i] {
				t.Errorf("%q: key %d is %v, want %v", td.in, i, got[i], td.want[i])
			}
		}
	}
}

func TestTermKeys(t *testing.T) {
	tk := NewTermKeys(strings.NewReader("\x1bOQ"))
	k, ok := tk.ReadKey(time.Second)
	if !ok || k.ScanCode != uefi.ScanF2 {
		t.Errorf("got %v %t", k, ok)
	}
	start := time.Now()
	if _, ok = tk.ReadKey(50 * time.Millisecond); ok {
		t.Error("key after eof")
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("did not wait")
	}
}
