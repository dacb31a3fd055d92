// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package flags

import (
	"testing"
)

func TestString(t *testing.T) {
	for i, td := range []struct {
		f    Flag
		want string
	}{
		{f: EndUser | Fatal, want: "user|fatal"},
		{f: EndUser, want: "user"},
		{f: NA, want: ""},
		{f: Flag(0x1), want: "user"},
		{f: Flag(0x2), want: "fatal"},
		{f: Flag(0x4), want: "verbose"},
		{f: Flag(0x8), want: "warn"},
		{f: Flag(0x10), want: "error"},
		{f: Flag(0x20), want: "not file"},
		{f: Error | NotFile, want: "error|not file"},
		{f: Flag(0x1232), want: "fatal|error|not file|0x1200"},
		{f: Flag(0x7800), want: "0x7800"},
	} {
		s := td.f.String()
		if s != td.want {
			t.Errorf("%d 0x%x: want %s, got %s", i, int(td.f), td.want, s)
		}
	}
}

func TestLevel(t *testing.T) {
	if l := (EndUser | Warn | NotFile).Level(); l != Warn {
		t.Errorf("want warn, got %s", l)
	}
	if l := EndUser.Level(); l != NA {
		t.Errorf("want no level, got %s", l)
	}
}
