// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package kmsg

import (
	"testing"

	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

type recorder struct {
	recs   []string
	closed bool
}

func (r *recorder) Write(b []byte) (int, error) {
	r.recs = append(r.recs, string(b))
	return len(b), nil
}

func (r *recorder) Close() error { r.closed = true; return nil }

func TestKmsgLog(t *testing.T) {
	r := &recorder{}
	l := &kmsgLog{w: r, fac: FacUser, pfx: "bds"}
	for _, e := range []log.LogEntry{
		{Msg: "connecting %s", Args: []interface{}{"xhci"}},
		{Msg: "no driver", Flags: flags.Error},
		{Msg: "stale option", Flags: flags.Warn | flags.EndUser},
		{Msg: "chatty", Flags: flags.Verbose},
		{Msg: "gone", Flags: flags.Fatal | flags.Error},
	} {
		l.AddEntry(e)
	}
	want := []string{
		"<13>bds: connecting xhci",
		"<11>bds: no driver",
		"<12>bds: stale option",
		"<15>bds: chatty",
		"<10>bds: gone",
	}
	if len(r.recs) != len(want) {
		t.Fatalf("got %q", r.recs)
	}
	for i := range want {
		if r.recs[i] != want[i] {
			t.Errorf("record %d: got %q, want %q", i, r.recs[i], want[i])
		}
	}
	l.Finalize()
	if !r.closed {
		t.Error("not closed")
	}
	l.AddEntry(log.LogEntry{Msg: "after"})
	if len(r.recs) != len(want) {
		t.Error("written after Finalize")
	}
}
