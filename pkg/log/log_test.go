// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"bytes"
	"io/ioutil"
	"os"
	fp "path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

func TestConsoleLogVisibility(t *testing.T) {
	defer DefaultLogStack()
	for _, td := range []struct {
		name string
		show flags.Flag
		want []string
	}{
		{"default", flags.NA, []string{"info", "warn", "err", "user"}},
		{"verbose", flags.Verbose, []string{"detail", "info", "warn", "err", "user"}},
		{"enduser", flags.EndUser, []string{"user"}},
	} {
		t.Run(td.name, func(t *testing.T) {
			DefaultLogStack()
			buf := &bytes.Buffer{}
			if err := AddLogger(&consoleLog{show: td.show, out: buf}, false); err != nil {
				t.Fatal(err)
			}
			Verbosef("detail")
			Logf("info")
			Warnf("warn")
			Errorf("err")
			Msgf("user")
			var got []string
			for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				f := strings.Fields(l)
				got = append(got, f[len(f)-1])
			}
			if strings.Join(got, ",") != strings.Join(td.want, ",") {
				t.Errorf("got %v want %v", got, td.want)
			}
		})
	}
}

func TestAddPrevious(t *testing.T) {
	defer DefaultLogStack()
	DefaultLogStack()
	Logf("early %d", 1)
	buf := &bytes.Buffer{}
	if err := AddLogger(&consoleLog{out: buf}, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "early 1") {
		t.Errorf("missing replayed entry: %q", buf.String())
	}
	if err := AddLogger(&consoleLog{out: buf}, true); err == nil {
		t.Errorf("duplicate logger accepted")
	}
	if n := len(StoredEntries()); n != 1 {
		t.Errorf("want 1 stored entry, got %d", n)
	}
	FlushMemLog()
	if InStack(MemLogIdent) {
		t.Errorf("memLog not removed")
	}
	if !InStack(ConsoleLogIdent) {
		t.Errorf("consoleLog lost")
	}
}

func TestLevelf(t *testing.T) {
	defer DefaultLogStack()
	DefaultLogStack()
	Levelf(nil, flags.Verbose, "ok")
	Levelf(os.ErrNotExist, flags.Verbose, "bad")
	e := StoredEntries()
	if len(e) != 2 {
		t.Fatalf("got %d entries", len(e))
	}
	if e[0].Flags != flags.Verbose || e[1].Flags != flags.Error {
		t.Errorf("flags: %s %s", e[0].Flags, e[1].Flags)
	}
}

func TestEntryString(t *testing.T) {
	tm := time.Date(2020, 1, 2, 3, 4, 5, 6000000, time.UTC)
	e := LogEntry{Time: tm, Msg: "x=%d", Args: []interface{}{3}, Flags: flags.Warn}
	want := "W- 03:04:05.006 W- x=3"
	if got := e.String(); got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestMemLogMax(t *testing.T) {
	defer func(m int) { MemLogMax = m }(MemLogMax)
	defer DefaultLogStack()
	DefaultLogStack()
	MemLogMax = 3
	for i := 0; i < 5; i++ {
		Logf("%d", i)
	}
	e := StoredEntries()
	if len(e) != 3 || e[0].Args[0] != 2 || e[2].Args[0] != 4 {
		t.Errorf("got %v", e)
	}
}

func TestFileLog(t *testing.T) {
	defer DefaultLogStack()
	DefaultLogStack()
	dir, err := ioutil.TempDir("", "log")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	defer SetPrefix("")
	SetPrefix("bds")

	Logf("before")
	name, err := AddFileLog(fp.Join(dir, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if base := fp.Base(name); !strings.HasPrefix(base, "bds-") || strings.ContainsAny(base, `:\/*?"<>|`) {
		t.Errorf("name %s", name)
	}
	Verbosef("detail")
	FlaggedLogf(flags.NotFile, "secret")
	Finalize()

	data, err := ioutil.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "before") || !strings.Contains(got, "detail") || strings.Contains(got, "secret") {
		t.Errorf("file log:\n%s", got)
	}
}
