// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package log is a flexible logging mechanism allowing multiple log sinks,
// outputting to one or more of: the console, a file, or memory.
//
// By default, events are retained in memory so they can be re-played into
// new log sinks if/when they are added later on. This matters during boot,
// where the console only becomes available part way through.
//
// Entries carry a severity in the manner of firmware debug output: Verbosef
// for chatty detail, Logf for information, Warnf and Errorf for problems that
// are reported and then skipped. Fatalf is reserved for broken assumptions and
// does not return.
package log

import (
	"fmt"
	"os"
	fp "path/filepath"

	"github.com/purecloudlabs/platformbm/pkg/log/flags"
)

var logPrefix string

// Sets the log prefix, used in log file names. Defaults to the program name.
func SetPrefix(pfx string) {
	logPrefix = pfx
}

// Gets the log prefix
func GetPrefix() string {
	if logPrefix == "" {
		return fp.Base(os.Args[0])
	}
	return logPrefix
}

// Msgf is for use with messages suitable for display to the user. Short,
// non-technical.
func Msgf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser, f, va...) }

// Logf is for informational messages. Never shown as a user message.
func Logf(f string, va ...interface{}) { FlaggedLogf(flags.NA, f, va...) }

// See Logf
func Log(message string) { Logf(message) }

// Verbosef is for detail that is only interesting while debugging; hidden
// on the console unless requested.
func Verbosef(f string, va ...interface{}) { FlaggedLogf(flags.Verbose, f, va...) }

// Warnf reports something unexpected that does not change the outcome.
func Warnf(f string, va ...interface{}) { FlaggedLogf(flags.Warn, f, va...) }

// Errorf reports a failed operation. The caller is expected to skip the
// affected item and carry on.
func Errorf(f string, va ...interface{}) { FlaggedLogf(flags.Error, f, va...) }

// Levelf logs at Error if err is non-nil, otherwise at the given level. Used
// for reporting the status of an operation that may or may not have worked.
func Levelf(err error, okLevel flags.Flag, f string, va ...interface{}) {
	if err != nil {
		FlaggedLogf(flags.Error, f, va...)
		return
	}
	FlaggedLogf(okLevel, f, va...)
}

// If the log stack includes a MemLog, this writes all of its content to stderr.
// no-op otherwise.
func DumpStderr() {
	l := FindInStack(MemLogIdent)
	if l != nil {
		ml := l.(*memLog)
		for _, e := range ml.Entries() {
			fmt.Fprintln(os.Stderr, e.String())
		}
	}
}
