// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package linuxboot

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	fp "path/filepath"
	"strings"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

var EUnsupported = errors.New("cannot boot this option from linux")

// Booter launches options from linux. A firmware volume file that is
// executable runs as a program and the boot flow resumes when it exits; any
// other file, in a volume or named by a File() node below Root, is loaded
// with kexec. The option's optional data is the command line.
type Booter struct {
	Root    string //where the boot filesystem is mounted
	Volumes DirVolumes
}

var _ bds.Booter = (*Booter)(nil)

// overridden in tests
var run = func(cmd *exec.Cmd) error {
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

func (b *Booter) Boot(o *uefi.LoadOption) error {
	if len(o.FilePath) == 0 {
		return fmt.Errorf("%w: empty path", EUnsupported)
	}
	args := cmdline(o)
	switch last := o.FilePath[len(o.FilePath)-1].(type) {
	case *uefi.DppMediaPIWGFF:
		vol, err := b.Volumes.LocateVolume(o.FilePath)
		if err != nil {
			return err
		}
		file := vol.(dirVolume).File(last.Name.ToStdEnc())
		fi, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("%w: %s", bds.ENotFound, err)
		}
		if fi.Mode()&0111 != 0 {
			return run(exec.Command(file, strings.Fields(args)...))
		}
		return kexec(file, args)
	case *uefi.DppMediaFilePath:
		rel := strings.Replace(last.PathName, `\`, "/", -1)
		return kexec(fp.Join(b.Root, rel), args)
	}
	return fmt.Errorf("%w: %s", EUnsupported, o.FilePath)
}

// Optional data as text. Auto-created options carry a tag, not arguments.
func cmdline(o *uefi.LoadOption) string {
	if len(o.OptionalData) == 0 || bootmgr.IsAutoCreated(o) {
		return ""
	}
	s, err := uefi.DecodeUTF16(o.OptionalData)
	if err != nil {
		log.Verbosef("%s: optional data is not text", o.Name("Boot"))
		return ""
	}
	return strings.TrimRight(s, "\000")
}

func kexec(kernel, args string) error {
	load := []string{"kexec", "-l", kernel}
	if args != "" {
		load = append(load, "--command-line="+args)
	}
	if _, ok := log.Cmd(exec.Command(load[0], load[1:]...)); !ok {
		return fmt.Errorf("%w: loading %s", bds.EDevice, kernel)
	}
	log.Logf("kexec %s %s", kernel, args)
	if _, ok := log.Cmd(exec.Command("kexec", "-e")); !ok {
		return fmt.Errorf("%w: kexec -e", bds.EDevice)
	}
	return fmt.Errorf("%w: kexec returned", bds.EDevice)
}
