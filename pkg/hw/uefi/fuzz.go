// Copyright (C) 2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build gofuzz
// +build gofuzz

package uefi

/*
go get github.com/dvyukov/go-fuzz/go-fuzz
go get github.com/dvyukov/go-fuzz/go-fuzz-build

go-fuzz-build -func FuzzParseLoadOption github.com/purecloudlabs/platformbm/pkg/hw/uefi
go-fuzz -bin=./uefi-fuzz.zip -workdir=fuzz
...
*/

// Anything that parses must re-encode to the same bytes.
func FuzzParseLoadOption(data []byte) int {
	o, err := ParseLoadOption(0, data)
	if err != nil {
		return 0
	}
	if string(o.Bytes()) != string(data) {
		panic("round trip mismatch")
	}
	return 1
}
