// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"bufio"
	"regexp"
	"strings"
)

// a function that returns true if 'in' should be included in entries compared
type LineFilterer func(in string) (match bool)

// filter passing only calls to Msgf()
func FilterMsg() LineFilterer { return FilterPfx("MSG:") }

// filter passing only calls to Logf()
func FilterLog() LineFilterer { return FilterPfx("LOG:") }

// filter passing only calls to Errorf()
func FilterErr() LineFilterer { return FilterPfx("ERR:") }

// filter passing only lines with given prefix (note the severity prefix added
// to every line)
func FilterPfx(pfx string) LineFilterer {
	return func(in string) bool { return strings.HasPrefix(in, pfx) }
}

// filter passing only calls to Logf, with given prefix
func FilterLogPfx(pfx string) LineFilterer { return FilterPfx("LOG:" + pfx) }

// filter with given regex
func FilterRe(re string) LineFilterer {
	rx := regexp.MustCompile(re)
	return func(in string) bool {
		return rx.MatchString(in)
	}
}

// combine two filters; either may accept input
func FilterOr(f1, f2 LineFilterer) LineFilterer {
	return func(in string) bool {
		return f1(in) || f2(in)
	}
}

// Filter buffered log using lf as test. Return matches. Buffer is left empty.
// Assumes each entry is a single line.
func (tlog *TstLog) Filter(lf LineFilterer) []string {
	tlog.t.Helper()
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.Buf == nil {
		tlog.t.Error("nil buffer")
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(tlog.Buf)
	for scanner.Scan() {
		if lf(scanner.Text()) {
			lines = append(lines, scanner.Text())
		}
	}
	return lines
}
