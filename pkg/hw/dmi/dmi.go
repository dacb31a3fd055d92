// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package dmi reads DMI (aka SMBIOS) strings via dmidecode.
package dmi

import (
	"bytes"
	"os/exec"
	"strings"
	"sync"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Keywords accepted by dmidecode -s
const (
	BiosVendor      = "bios-vendor"
	BiosVersion     = "bios-version"
	BiosReleaseDate = "bios-release-date"
	SystemProduct   = "system-product-name"
)

// cache data so it's not necessary to call dmidecode over and over
var (
	cache   = map[string]string{}
	cacheMu sync.Mutex
)

// Returns the result of 'dmidecode -s <key>', or "" on failure.
func String(key string) string {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if str, ok := cache[key]; ok {
		return str
	}
	res, ok := log.Cmd(exec.Command("dmidecode", "-s", key))
	if !ok {
		return ""
	}
	str := parse([]byte(res))
	cache[key] = str
	return str
}

// Last line of output. If dmidecode doesn't like the data presented, it may
// print a second line with an error.
func parse(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(bytes.ReplaceAll(out, []byte("\r"), nil))), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if l == "" || strings.HasPrefix(l, "Invalid entry") || strings.HasPrefix(l, "#") {
			continue
		}
		return l
	}
	return ""
}

func Clear() {
	cacheMu.Lock()
	cache = map[string]string{}
	cacheMu.Unlock()
}
