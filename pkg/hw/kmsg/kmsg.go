// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package kmsg is a log sink writing to the kernel ring buffer, so that boot
// manager messages show up in dmesg alongside the kernel's. Process must run as
// root.
package kmsg

import (
	"fmt"
	"io"
	"os"

	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

type Priority uint

// Convert facility/severity into priority
func Prio(f Facility, s Severity) Priority {
	return Priority(f*8) + Priority(s)
}

// Facility values a la RFC5424. Incomplete list.
type Facility uint

const (
	FacUser   Facility = 1
	FacSys    Facility = 3
	FacLocal0 Facility = 16
)

// Severity values a la RFC5424.
type Severity uint

const (
	SevEmerg Severity = iota
	SevAlert
	SevCrit
	SevError
	SevWarn
	SevNotice
	SevInfo
	SevDebug
)

// Maps log flags to a severity.
func severity(f flags.Flag) Severity {
	switch {
	case f&flags.Fatal != 0:
		return SevCrit
	case f&flags.Error != 0:
		return SevError
	case f&flags.Warn != 0:
		return SevWarn
	case f&flags.Verbose != 0:
		return SevDebug
	}
	return SevNotice
}

var DefaultPath = "/dev/kmsg"

const KmsgLogIdent = "kmsgLog"

// kmsgLog is a StackableLogger. Each entry is one kmsg record.
type kmsgLog struct {
	w    io.WriteCloser
	fac  Facility
	pfx  string
	next log.StackableLogger
}

var _ log.StackableLogger = (*kmsgLog)(nil)

// AddKmsgLog adds a kmsg sink to the log stack. Records are tagged with pfx.
func AddKmsgLog(fac Facility, pfx string) error {
	if fac == 0 {
		return fmt.Errorf("cannot use facility 0")
	}
	f, err := os.OpenFile(DefaultPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return log.AddLogger(&kmsgLog{w: f, fac: fac, pfx: pfx}, true)
}

func (l *kmsgLog) record(e log.LogEntry) string {
	msg := fmt.Sprintf("<%d>", Prio(l.fac, severity(e.Flags)))
	if len(l.pfx) > 0 {
		msg += l.pfx + ": "
	}
	return msg + fmt.Sprintf(e.Msg, e.Args...)
}

func (l *kmsgLog) AddEntry(e log.LogEntry) {
	if l.w != nil {
		//kmsg takes one record per write
		_, _ = io.WriteString(l.w, l.record(e))
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func (l *kmsgLog) ForwardTo(sl log.StackableLogger) {
	if l.next == nil || sl == nil {
		l.next = sl
	} else {
		panic("next already set")
	}
}

func (*kmsgLog) Ident() string               { return KmsgLogIdent }
func (l *kmsgLog) Next() log.StackableLogger { return l.next }

func (l *kmsgLog) Finalize() {
	if l.w != nil {
		_ = l.w.Close()
		l.w = nil
	}
	if l.next != nil {
		l.next.Finalize()
	}
}
