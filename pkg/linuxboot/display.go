// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"fmt"
	"io"
	"strings"

	"github.com/purecloudlabs/platformbm/pkg/bds"
)

const barWidth = 20

// TextDisplay is a bds.Display on a text console. It has no graphics, so the
// boot flow falls back to printing the version and prompt.
type TextDisplay struct {
	W io.Writer
}

var _ bds.Display = (*TextDisplay)(nil)

func (d *TextDisplay) EnableLogo() error { return fmt.Errorf("logo %w", bds.ENotFound) }

func (d *TextDisplay) Resolution() (int, int, error) {
	return 0, 0, fmt.Errorf("graphics mode %w", bds.ENotFound)
}

func (d *TextDisplay) PrintXY(_, _ int, s string) error {
	_, err := fmt.Fprintln(d.W, s)
	return err
}

func (d *TextDisplay) Print(s string) { fmt.Fprint(d.W, s) }

func (d *TextDisplay) UpdateProgress(title string, pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: progress %d%%", bds.EDevice, pct)
	}
	n := pct * barWidth / 100
	_, err := fmt.Fprintf(d.W, "\r[%s%s] %3d%% %s", strings.Repeat("#", n), strings.Repeat(" ", barWidth-n), pct, title)
	if err == nil && pct == 100 {
		_, err = fmt.Fprintln(d.W)
	}
	return err
}
