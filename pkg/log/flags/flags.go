// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package flags holds the bits attached to each log entry. Besides routing
// bits (EndUser, NotFile), an entry carries at most one severity bit; an entry
// with no severity bit is informational.
package flags

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Flag int

const (
	NA Flag = 0

	//ok to display message to end user
	EndUser Flag = 1 << (iota - 1) //iota increments with first ConstSpec in the const declaration, so subtract 1
	//logging a fatal error
	Fatal
	//chatty detail, hidden on the console unless requested
	Verbose
	//something unexpected, boot continues
	Warn
	//an operation failed; the affected item is skipped
	Error
	//do not write to local file log
	NotFile
)

// Mask of all severity bits.
const Severity = Fatal | Verbose | Warn | Error

var names = []struct {
	bit  Flag
	name string
}{
	{EndUser, "user"},
	{Fatal, "fatal"},
	{Verbose, "verbose"},
	{Warn, "warn"},
	{Error, "error"},
	{NotFile, "not file"},
}

func (f Flag) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }
func (f Flag) String() string {
	if f == NA {
		return ""
	}
	for _, n := range names {
		if f == n.bit {
			return n.name
		}
	}
	for _, n := range names {
		if f&n.bit > 0 {
			return strings.Join([]string{n.name, (f &^ n.bit).String()}, "|")
		}
	}
	return fmt.Sprintf("0x%x", int(f))
}

// Level returns only the severity bits of f.
func (f Flag) Level() Flag { return f & Severity }
