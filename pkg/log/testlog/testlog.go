// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package testlog hijacks the output of
// github.com/purecloudlabs/platformbm/pkg/log, and can hijack log.Cmd(). By
// default, this output prints through testing functions but it can be stored
// in a buffer as well - for example, for analysis as part of the test.
//
// Each entry is prefixed according to severity: MSG:, LOG:, VRB:, WRN:, ERR:.
// Fatal entries cause the test to fail unless FatalIsNotErr is set.
package testlog

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/purecloudlabs/platformbm/pkg/log"
	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

// Conforms to log.StackableLogger interface. Constructed via NewTestLog().
type TstLog struct {
	t             *testing.T    //log here if Buf is nil
	Buf           *bytes.Buffer //if non-nil, output goes here
	MsgCount      int           //counts number of calls to Msgf()
	LogCount      int           //counts calls to Logf(), Verbosef(), Warnf()
	ErrCount      int           //counts number of calls to Errorf()
	FatalCount    int           //counts number of calls to Fatalf()
	FatalIsNotErr bool          //if true, do not call t.Errorf() for Fatalf()
	freeze        bool          //do not write any more to Buf
	stderr        bool          //also immediately write to stderr
	mu            sync.Mutex
}

// Returns a new TstLog. If bufferLog is true, logging goes to a buffer rather
// than passing directly to t.Log()/t.Error(). Do not share one TstLog between
// tests - create a new one each time.
func NewTestLog(t *testing.T, bufferLog, stderr bool) (tlog *TstLog) {
	tlog = &TstLog{
		t:      t,
		stderr: stderr,
	}
	if bufferLog {
		tlog.Buf = new(bytes.Buffer)
	}
	log.NewLogStack(tlog)
	log.SetFatalAction(log.FailAction{Terminator: func() {}})
	return
}

var _ log.StackableLogger = (*TstLog)(nil)

func prefix(fl flags.Flag) string {
	switch {
	case fl&flags.Fatal != 0:
		return ">>FATAL()<< "
	case fl&flags.Error != 0:
		return "ERR:"
	case fl&flags.Warn != 0:
		return "WRN:"
	case fl&flags.Verbose != 0:
		return "VRB:"
	case fl&flags.EndUser != 0:
		return "MSG:"
	}
	return "LOG:"
}

func (tlog *TstLog) AddEntry(e log.LogEntry) {
	tlog.t.Helper()
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.freeze {
		return
	}
	e.Msg = prefix(e.Flags) + e.Msg
	tlog.handleEvt(e)
}

const TstLogIdent = "tstLog"

func (*TstLog) Ident() string                      { return TstLogIdent }
func (tl *TstLog) Next() log.StackableLogger       { return nil }
func (*TstLog) Finalize()                          {}
func (tl *TstLog) ForwardTo(_ log.StackableLogger) {}

// caller holds mu
func (tlog *TstLog) handleEvt(evt log.LogEntry) {
	tlog.t.Helper()
	f := "@" + evt.Time.Format(log.DefaultTimestampLayout) + ": " + evt.Msg
	switch {
	case evt.Flags&flags.Fatal != 0:
		tlog.FatalCount++
		if !tlog.FatalIsNotErr {
			tlog.t.Errorf(f, evt.Args...)
			return
		}
	case evt.Flags&flags.Error != 0:
		tlog.ErrCount++
	case evt.Flags&flags.EndUser != 0:
		tlog.MsgCount++
	default:
		tlog.LogCount++
	}
	if tlog.stderr {
		fmt.Fprintf(os.Stderr, f+"\n", evt.Args...)
	}
	if tlog.Buf != nil {
		fmt.Fprintf(tlog.Buf, evt.Msg+"\n", evt.Args...)
	} else {
		tlog.t.Logf(f, evt.Args...)
	}
}

// sometimes used in testing to inject separators
func (tlog *TstLog) Logf(f string, va ...interface{}) {
	tlog.t.Helper()
	tlog.AddEntry(log.LogEntry{
		Time: time.Now(),
		Msg:  f,
		Args: va,
	})
}

// call at end of test to stop logging into this TstLog and restore the default
// stack, fatal action, and log.Cmd
func (tlog *TstLog) Freeze() {
	tlog.mu.Lock()
	freeze := tlog.freeze
	tlog.freeze = true
	tlog.mu.Unlock()
	if freeze {
		return
	}
	log.DefaultLogStack()
	log.SetFatalAction(log.DefaultFatal)
	log.Cmd = log.DefaultCmd
}

// just calls testing.T.Errorf
func (tlog *TstLog) TstErrf(f string, va ...interface{}) {
	tlog.t.Helper()
	tlog.t.Errorf(f, va...)
}

// just calls testing.T.Logf
func (tlog *TstLog) TstLogf(f string, va ...interface{}) {
	tlog.t.Helper()
	tlog.t.Logf(f, va...)
}
