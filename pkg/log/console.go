// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"io"
	"os"

	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

type consoleLog struct {
	show flags.Flag
	out  io.Writer
	next StackableLogger
}

// Adds a consoleLog to the stack, writing to stderr. Everything except
// verbose entries is shown; pass flags.Verbose to show those too, or
// flags.EndUser to show only messages intended for the user.
func AddConsoleLog(show flags.Flag) {
	_ = AddLogger(&consoleLog{show: show, out: os.Stderr}, true)
}

var _ StackableLogger = (*consoleLog)(nil)

func (l *consoleLog) wants(e LogEntry) bool {
	switch {
	case l.show&flags.EndUser != 0:
		return e.Flags&flags.EndUser != 0
	case e.Flags&flags.Verbose != 0:
		return l.show&flags.Verbose != 0
	}
	return true
}

func (l *consoleLog) AddEntry(e LogEntry) {
	if l.wants(e) {
		fmt.Fprintln(l.out, e.String())
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func (l *consoleLog) ForwardTo(sl StackableLogger) {
	if l.next == nil || sl == nil {
		l.next = sl
	} else {
		panic("next already set")
	}
}

const ConsoleLogIdent = "consoleLog"

func (*consoleLog) Ident() string           { return ConsoleLogIdent }
func (l *consoleLog) Next() StackableLogger { return l.next }

func (l *consoleLog) Finalize() {
	if l.next != nil {
		l.next.Finalize()
	}
}
