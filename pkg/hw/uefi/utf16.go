// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package uefi

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Decodes little-endian UTF-16. Any NUL terminator(s) are left in place.
func DecodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd length %d for utf16", EParse, len(b))
	}
	u16s := make([]uint16, len(b)/2)
	for i := range u16s {
		u16s[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u16s)), nil
}

// Encodes s as little-endian UTF-16, without a terminator.
func EncodeUTF16(s string) []byte {
	u16s := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u16s))
	for i, c := range u16s {
		binary.LittleEndian.PutUint16(b[2*i:], c)
	}
	return b
}

// Encodes s as little-endian UTF-16 with a NUL terminator (CHAR16 string).
func EncodeUTF16z(s string) []byte { return append(EncodeUTF16(s), 0, 0) }

// Reads a NUL-terminated UTF-16 string from the start of b. Returns the string
// and the number of bytes consumed, including the terminator.
func readUTF16z(b []byte) (string, int, error) {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			s, err := DecodeUTF16(b[:i])
			return s, i + 2, err
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated utf16 string", EParse)
}

// Decodes UTF-16 optional data for display, falling back to hex.
func optDataString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s, err := DecodeUTF16(b)
	if err != nil || strings.ContainsFunc(strings.TrimRight(s, "\x00"), func(r rune) bool { return r < 0x20 || r == unicode.ReplacementChar }) {
		return fmt.Sprintf("%x", b)
	}
	return strings.TrimRight(s, "\x00")
}
