// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package housekeeping

import (
	"strings"
	"testing"
)

func TestPerformOrder(t *testing.T) {
	var hl HkList
	var ran []string
	task := func(name string) *HkTask {
		return &HkTask{Name: name, Func: func(ok bool) {
			if !ok {
				name += "!"
			}
			ran = append(ran, name)
		}}
	}
	hl.Add(task("a"))
	hl.Add(task("b"))
	hl.AddFirst(task("first"))
	hl.Add(task("drop"))
	hl = hl.FilterOut(func(t *HkTask) bool { return t.Name == "drop" })
	hl.Perform(false)
	if got := strings.Join(ran, ","); got != "b!,a!,first!" {
		t.Errorf("got %s", got)
	}
	if hl.Len() != 0 {
		t.Error("tasks not removed")
	}
}

type closer struct{ closed int }

func (c *closer) Close() error { c.closed++; return nil }

func TestPrebootDefaults(t *testing.T) {
	defer Preboots.Clear()
	Preboots.Add(&HkTask{Name: "mine", Func: func(bool) {}})
	c := &closer{}
	AddPrebootDefaults(c)
	AddPrebootDefaults(c)
	if Preboots.Len() != 4 {
		t.Fatalf("want 4 tasks, got %d", Preboots.Len())
	}
	var names []string
	for _, task := range Preboots.tasks {
		names = append(names, task.Name)
	}
	if got := strings.Join(names, ","); got != TaskVars+","+TaskLog+","+TaskSync+",mine" {
		t.Errorf("order %s", got)
	}
	RemovePrebootDefaults()
	if Preboots.Len() != 1 {
		t.Errorf("want 1 task, got %d", Preboots.Len())
	}
	if c.closed != 0 {
		t.Error("closed early")
	}
}
