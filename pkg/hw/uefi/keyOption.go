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
)

// EFI_INPUT_KEY
type InputKey struct {
	ScanCode    uint16
	UnicodeChar uint16
}

// scan codes, UEFI Spec 2.8A table 107
const (
	ScanNull uint16 = 0x00
	ScanF1   uint16 = 0x0b
	ScanF2   uint16 = 0x0c
	ScanF3   uint16 = 0x0d
	ScanF4   uint16 = 0x0e
	ScanEsc  uint16 = 0x17
)

const CharCarriageReturn uint16 = 0x0d

var (
	KeyEnter = InputKey{UnicodeChar: CharCarriageReturn}
	KeyF1    = InputKey{ScanCode: ScanF1}
	KeyF2    = InputKey{ScanCode: ScanF2}
	KeyF4    = InputKey{ScanCode: ScanF4}
	KeyEsc   = InputKey{ScanCode: ScanEsc}
)

// A null key carries neither a scan code nor a character.
func (k InputKey) IsNull() bool { return k.ScanCode == ScanNull && k.UnicodeChar == 0 }

func (k InputKey) String() string {
	switch k.ScanCode {
	case ScanF1, ScanF2, ScanF3, ScanF4:
		return fmt.Sprintf("F%d", k.ScanCode-ScanF1+1)
	case ScanEsc:
		return "Esc"
	case ScanNull:
	default:
		return fmt.Sprintf("Scan(0x%x)", k.ScanCode)
	}
	switch k.UnicodeChar {
	case 0:
		return "Null"
	case CharCarriageReturn:
		return "Enter"
	}
	return fmt.Sprintf("%q", rune(k.UnicodeChar))
}

/*
	KeyOption is the data stored in Key#### vars.
	   typedef struct _EFI_KEY_OPTION {
	       EFI_BOOT_KEY_DATA KeyData;
	       UINT32            BootOptionCrc;
	       UINT16            BootOption;
	       // EFI_INPUT_KEY  Keys[];
	   } EFI_KEY_OPTION;

KeyData bits 30-31 hold the number of keys; the remaining bits are modifier
state, compared but otherwise not interpreted.
*/
type KeyOption struct {
	Number        int //from the var name, or NumberUnassigned
	Modifiers     uint32
	BootOptionCrc uint32
	BootOption    uint16
	Keys          []InputKey
}

const (
	keyCountShift = 30
	keyCountMask  = 0x3
	keyOptHdrLen  = 10
)

func (k *KeyOption) Bytes() []byte {
	b := make([]byte, keyOptHdrLen+4*len(k.Keys))
	kd := k.Modifiers&^(keyCountMask<<keyCountShift) | uint32(len(k.Keys))<<keyCountShift
	binary.LittleEndian.PutUint32(b, kd)
	binary.LittleEndian.PutUint32(b[4:], k.BootOptionCrc)
	binary.LittleEndian.PutUint16(b[8:], k.BootOption)
	for i, key := range k.Keys {
		binary.LittleEndian.PutUint16(b[keyOptHdrLen+4*i:], key.ScanCode)
		binary.LittleEndian.PutUint16(b[keyOptHdrLen+4*i+2:], key.UnicodeChar)
	}
	return b
}

func ParseKeyOption(num int, data []byte) (*KeyOption, error) {
	if len(data) < keyOptHdrLen {
		return nil, fmt.Errorf("%w: key option too short (%d)", EParse, len(data))
	}
	kd := binary.LittleEndian.Uint32(data)
	count := int(kd >> keyCountShift & keyCountMask)
	if len(data) != keyOptHdrLen+4*count {
		return nil, fmt.Errorf("%w: key option len %d for %d keys", EParse, len(data), count)
	}
	k := &KeyOption{
		Number:        num,
		Modifiers:     kd &^ (keyCountMask << keyCountShift),
		BootOptionCrc: binary.LittleEndian.Uint32(data[4:]),
		BootOption:    binary.LittleEndian.Uint16(data[8:]),
	}
	for i := 0; i < count; i++ {
		off := keyOptHdrLen + 4*i
		k.Keys = append(k.Keys, InputKey{
			ScanCode:    binary.LittleEndian.Uint16(data[off:]),
			UnicodeChar: binary.LittleEndian.Uint16(data[off+2:]),
		})
	}
	return k, nil
}

// True if both options are triggered by the same key chord.
func (k *KeyOption) SameChord(o *KeyOption) bool {
	if k.Modifiers != o.Modifiers || len(k.Keys) != len(o.Keys) {
		return false
	}
	for i := range k.Keys {
		if k.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}

func (k KeyOption) String() string {
	keys := make([]string, len(k.Keys))
	for i, key := range k.Keys {
		keys[i] = key.String()
	}
	name := "Key????"
	if k.Number != NumberUnassigned {
		name = fmt.Sprintf("Key%04X", k.Number)
	}
	return fmt.Sprintf("%s: %s -> Boot%04X (crc 0x%08x)", name, strings.Join(keys, "+"), k.BootOption, k.BootOptionCrc)
}
