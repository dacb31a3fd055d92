// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package efivar

import (
	"errors"
	"fmt"
	"os"
	fp "path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

const DefaultEfivarfs = "/sys/firmware/efi/efivars"

// from linux/fs.h
const fsImmutableFl = 0x10

// Efivarfs accesses variables through the linux efivarfs filesystem. Each file
// holds the 4-byte attributes followed by the data. The kernel marks most
// variables immutable; the flag is cleared before writing or deleting.
type Efivarfs struct {
	Dir string
}

var _ Store = (*Efivarfs)(nil)

func NewEfivarfs(dir string) *Efivarfs {
	if dir == "" {
		dir = DefaultEfivarfs
	}
	return &Efivarfs{Dir: dir}
}

func (e *Efivarfs) path(vendor uuid.UUID, name string) string {
	return fp.Join(e.Dir, VarId{vendor, name}.String())
}

func (e *Efivarfs) Get(vendor uuid.UUID, name string) ([]byte, Attr, error) {
	v, err := os.ReadFile(e.path(vendor, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ENotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return decodeAttrs(v)
}

func (e *Efivarfs) Set(vendor uuid.UUID, name string, attrs Attr, data []byte) error {
	if len(data) == 0 {
		return e.Delete(vendor, name)
	}
	if err := checkAttrs(attrs); err != nil {
		return err
	}
	p := e.path(vendor, name)
	if err := clearImmutable(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	//efivarfs requires attrs and data in a single write
	_, err = f.Write(encodeAttrs(attrs, data))
	cerr := f.Close()
	if err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return cerr
}

func (e *Efivarfs) Delete(vendor uuid.UUID, name string) error {
	p := e.path(vendor, name)
	err := clearImmutable(p)
	if errors.Is(err, os.ErrNotExist) {
		return ENotFound
	}
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (e *Efivarfs) List(filt VarFilter) ([]VarId, error) {
	entries, err := os.ReadDir(e.Dir)
	if err != nil {
		return nil, err
	}
	var ids []VarId
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		id, err := ParseVarId(ent.Name())
		if err != nil {
			log.Verbosef("skipping %s - not a valid var?", ent.Name())
			continue
		}
		if filt == nil || filt(id.Vendor, id.Name) {
			ids = append(ids, id)
		}
	}
	sortIds(ids)
	return ids, nil
}

// Clears the immutable flag, if set. Filesystems without flag support are
// left alone.
func clearImmutable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fd := int(f.Fd())
	flags, err := unix.IoctlGetUint32(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		log.Verbosef("%s: reading inode flags: %s", path, err)
		return nil
	}
	if flags&fsImmutableFl == 0 {
		return nil
	}
	err = unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, int(flags&^fsImmutableFl))
	if err != nil {
		return fmt.Errorf("%s: clearing immutable flag: %w", path, err)
	}
	return nil
}
