// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package emu

import (
	"fmt"
	"io"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

// Writes what would appear on screen to w. A zero width has no graphics.
type display struct {
	w     io.Writer
	width int
}

var _ bds.Display = (*display)(nil)

func (d *display) EnableLogo() error {
	if d.width == 0 {
		return fmt.Errorf("logo %w", bds.ENotFound)
	}
	fmt.Fprintln(d.w, "[logo]")
	return nil
}

func (d *display) Resolution() (int, int, error) {
	if d.width == 0 {
		return 0, 0, fmt.Errorf("graphics mode %w", bds.ENotFound)
	}
	return d.width, d.width * 3 / 4, nil
}

func (d *display) PrintXY(x, y int, s string) error {
	_, err := fmt.Fprintf(d.w, "[%d,%d] %s\n", x, y, s)
	return err
}

func (d *display) Print(s string) { fmt.Fprint(d.w, s) }

func (d *display) UpdateProgress(title string, pct int) error {
	if d.width == 0 {
		return fmt.Errorf("progress bar %w", bds.ENotFound)
	}
	_, err := fmt.Fprintf(d.w, "[%3d%%] %s\n", pct, title)
	return err
}

type events struct{}

var _ bds.Events = events{}

func (events) Signal(e bds.Event)            { log.Verbosef("signal %s", e) }
func (events) DispatchDeferredImages() error { return nil }
