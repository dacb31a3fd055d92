// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package platcfg

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
)

// BootOption is a platform default boot entry. Exactly one of FvFile (a file
// in the boot manager's own firmware volume) and DevicePath (hex encoded
// device path) is set.
type BootOption struct {
	Description string    `json:"description"`
	FvFile      uuid.UUID `json:"fvFile,omitempty"`
	DevicePath  string    `json:"devicePath,omitempty"`
	Attributes  uint32    `json:"attributes"`
	//command line passed to the image
	Args string `json:"args,omitempty"`
	Key  Key    `json:"key,omitempty"`
}

// LoadOption builds the option. fvPath is the path of the volume holding the
// boot manager, used for FvFile entries.
func (b *BootOption) LoadOption(fvPath uefi.DevicePath) (*uefi.LoadOption, error) {
	o := &uefi.LoadOption{
		Number:      uefi.NumberUnassigned,
		Attributes:  uefi.LoadOptionAttr(b.Attributes),
		Description: b.Description,
	}
	if b.FvFile != uuid.Nil {
		o.FilePath = fvPath.Append(uefi.FvFileNode(b.FvFile))
	} else {
		raw, err := hex.DecodeString(b.DevicePath)
		if err != nil {
			return nil, fmt.Errorf("%w: device path of %q: %s", EInvalid, b.Description, err)
		}
		o.FilePath, err = uefi.ParseDevicePath(raw)
		if err != nil {
			return nil, fmt.Errorf("device path of %q: %w", b.Description, err)
		}
	}
	if b.Args != "" {
		args, err := shlex.Split(b.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: args of %q: %s", EInvalid, b.Description, err)
		}
		o.OptionalData = uefi.EncodeUTF16z(JoinArgs(args))
	}
	return o, nil
}

// JoinArgs is the inverse of shlex.Split, quoting only where needed.
func JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\#") {
			quoted[i] = a
			continue
		}
		quoted[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a) + `"`
	}
	return strings.Join(quoted, " ")
}

// Key is a single keystroke named in config: a function key (F1-F12), Esc,
// Enter, or a single printable character. The zero Key binds nothing.
type Key uefi.InputKey

const scanEsc = 0x17

func (k Key) String() string {
	switch {
	case k.ScanCode >= 0x0b && k.ScanCode <= 0x16:
		return fmt.Sprintf("F%d", k.ScanCode-0x0a)
	case k.ScanCode == scanEsc:
		return "Esc"
	case k.ScanCode == 0 && k.UnicodeChar == uefi.CharCarriageReturn:
		return "Enter"
	case k.ScanCode == 0 && k.UnicodeChar != 0:
		return string(rune(k.UnicodeChar))
	}
	return ""
}

func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Key) UnmarshalText(b []byte) error {
	s := string(b)
	*k = Key{}
	switch {
	case s == "":
	case strings.EqualFold(s, "esc"):
		k.ScanCode = scanEsc
	case strings.EqualFold(s, "enter"):
		k.UnicodeChar = uefi.CharCarriageReturn
	case len(s) > 1 && (s[0] == 'F' || s[0] == 'f'):
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 1 || n > 12 {
			return fmt.Errorf("%w: key %q", EInvalid, s)
		}
		k.ScanCode = uint16(0x0a + n)
	case len([]rune(s)) == 1 && []rune(s)[0] < 0x10000 && []rune(s)[0] >= 0x20:
		k.UnicodeChar = uint16([]rune(s)[0])
	default:
		return fmt.Errorf("%w: key %q", EInvalid, s)
	}
	return nil
}

func (k Key) Input() uefi.InputKey { return uefi.InputKey(k) }
