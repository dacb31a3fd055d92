// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package housekeeping keeps lists of tasks to run before the host resets.
// Like defer, a list runs last-in first-out. Tasks can be dropped by filtering
// a list and assigning the result back. The bool passed to Perform says
// whether the boot flow got where it wanted to; most tasks ignore it.
package housekeeping

import (
	"io"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/log"

	"golang.org/x/sys/unix"
)

type HkFun func(success bool)
type HkTask struct {
	Name string
	Func HkFun
}
type HkList struct{ tasks []*HkTask }

type HkFilter func(t *HkTask) bool

// subset of the list where filter matches
func (hl *HkList) Filter(filter HkFilter) HkList {
	var out HkList
	for _, entry := range hl.tasks {
		if filter(entry) {
			out.tasks = append(out.tasks, entry)
		}
	}
	return out
}

// subset of the list where filter does not match
func (hl *HkList) FilterOut(filter HkFilter) HkList {
	return hl.Filter(func(t *HkTask) bool { return !filter(t) })
}

// Runs the tasks, newest first, removing each once done.
func (hl *HkList) Perform(success bool) {
	for {
		l := len(hl.tasks)
		if l == 0 {
			return
		}
		t := hl.tasks[l-1]
		hl.tasks = hl.tasks[:l-1]
		t.Func(success)
	}
}

func (hl *HkList) Len() int { return len(hl.tasks) }
func (hl *HkList) Clear()   { hl.tasks = nil }

func (hl *HkList) Add(t *HkTask) {
	hl.tasks = append(hl.tasks, t)
}
func (hl *HkList) AddFirst(t *HkTask) {
	hl.tasks = append([]*HkTask{t}, hl.tasks...)
}

// names of the default tasks
const (
	TaskVars = "close-vars"
	TaskLog  = "log.Finalize"
	TaskSync = "sync"
)

// Adds tasks that close the variable store, finish the log, and sync disks.
// They are put at the start of the list so they run last, in that order.
// vars may be nil.
func AddPrebootDefaults(vars io.Closer) {
	RemovePrebootDefaults()
	Preboots.AddFirst(&HkTask{Name: TaskSync, Func: func(_ bool) {
		ss := time.Now()
		unix.Sync()
		log.Verbosef("sync: %s", time.Since(ss))
	}})
	Preboots.AddFirst(&HkTask{Name: TaskLog, Func: func(_ bool) { log.Finalize() }})
	if vars != nil {
		Preboots.AddFirst(&HkTask{Name: TaskVars, Func: func(_ bool) {
			if err := vars.Close(); err != nil {
				log.Errorf("closing variable store: %s", err)
			}
		}})
	}
}

func RemovePrebootDefaults() {
	Preboots = Preboots.FilterOut(func(t *HkTask) bool {
		switch t.Name {
		case TaskVars, TaskLog, TaskSync:
			return true
		}
		return false
	})
}

var Preboots HkList
