// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package capsule

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/purecloudlabs/platformbm/pkg/bds"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

const (
	capExt = ".cap"
	xzExt  = ".xz"
)

// DirSource reads capsules from files in a directory, in name order. Files
// ending in .cap are raw capsules, .cap.xz are xz compressed. Other files are
// ignored. A capsule file is removed once read, like capsules on disk are
// consumed by the firmware.
type DirSource struct {
	Dir string
	//if set, files are left in place
	Keep bool
}

var _ bds.CapsuleSource = (*DirSource)(nil)

func (d *DirSource) Records() bds.CapsuleIter {
	it := &dirIter{src: d}
	entries, err := ioutil.ReadDir(d.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			it.err = err
		}
		return it
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, capExt) || strings.HasSuffix(n, capExt+xzExt) {
			it.names = append(it.names, n)
		}
	}
	sort.Strings(it.names)
	return it
}

type dirIter struct {
	src   *DirSource
	names []string
	err   error
}

func (it *dirIter) Next() (*bds.CapsuleRecord, error) {
	if it.err != nil {
		return nil, it.err
	}
	if len(it.names) == 0 {
		return nil, io.EOF
	}
	name := it.names[0]
	it.names = it.names[1:]
	path := filepath.Join(it.src.Dir, name)
	img, err := readCapsule(path)
	if err != nil {
		return nil, err
	}
	if !it.src.Keep {
		if err = os.Remove(path); err != nil {
			log.Warnf("removing consumed capsule %s: %s", path, err)
		}
	}
	return &bds.CapsuleRecord{Source: name, Image: img}, nil
}

func readCapsule(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, xzExt) {
		r, err = xz.NewReader(f)
		if err != nil {
			return nil, err
		}
	}
	return ioutil.ReadAll(r)
}

// WriteXz writes a compressed capsule file.
func WriteXz(path string, image []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	if _, err = w.Write(image); err != nil {
		f.Close()
		return err
	}
	if err = w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
