// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/purecloudlabs/platformbm/pkg/bootmgr"
	"github.com/purecloudlabs/platformbm/pkg/hw/efivar"
	"github.com/purecloudlabs/platformbm/pkg/hw/uefi"
	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

type fakeDev struct {
	caps       []Capability
	path       uefi.DevicePath
	class      *PciClass
	ndType     uuid.UUID
	desc       string
	children   []*fakeDev //appear when connected
	connectErr error
	connected  bool
}

func (d *fakeDev) has(c Capability) bool {
	for _, dc := range d.caps {
		if dc == c {
			return true
		}
	}
	return false
}

type fakeDB struct {
	devs  []*fakeDev
	image uefi.DevicePath
	//paths of connected devices, in order
	connected []string
	//called on each ConnectController
	onConnect func(h Handle)
}

var _ HandleDB = (*fakeDB)(nil)

func (db *fakeDB) LocateHandles(c Capability) ([]Handle, error) {
	var hs []Handle
	for i, d := range db.devs {
		if d.has(c) {
			hs = append(hs, Handle(i))
		}
	}
	if len(hs) == 0 {
		return nil, ENotFound
	}
	return hs, nil
}

func (db *fakeDB) AllHandles() []Handle {
	hs := make([]Handle, len(db.devs))
	for i := range hs {
		hs[i] = Handle(i)
	}
	return hs
}

func (db *fakeDB) dev(h Handle) (*fakeDev, error) {
	if int(h) >= len(db.devs) {
		return nil, fmt.Errorf("%w: handle %d", ENotFound, h)
	}
	return db.devs[h], nil
}

func (db *fakeDB) DevicePath(h Handle) (uefi.DevicePath, error) {
	d, err := db.dev(h)
	if err != nil {
		return nil, err
	}
	if d.path == nil {
		return nil, ENotFound
	}
	return d.path, nil
}

func (db *fakeDB) ConnectController(h Handle, recursive bool) error {
	if db.onConnect != nil {
		db.onConnect(h)
	}
	d, err := db.dev(h)
	if err != nil {
		return err
	}
	if d.connectErr != nil {
		return d.connectErr
	}
	if !d.connected {
		d.connected = true
		db.connected = append(db.connected, d.path.String())
		db.devs = append(db.devs, d.children...)
	}
	if recursive {
		for _, c := range d.children {
			for i, dd := range db.devs {
				if dd == c {
					_ = db.ConnectController(Handle(i), true)
				}
			}
		}
	}
	return nil
}

func (db *fakeDB) PciClassCode(h Handle) (PciClass, error) {
	d, err := db.dev(h)
	if err != nil {
		return PciClass{}, err
	}
	if d.class == nil {
		return PciClass{}, EDevice
	}
	return *d.class, nil
}

func (db *fakeDB) NonDiscoverableType(h Handle) (uuid.UUID, error) {
	d, err := db.dev(h)
	if err != nil {
		return uuid.Nil, err
	}
	if d.ndType == uuid.Nil {
		return uuid.Nil, ENotFound
	}
	return d.ndType, nil
}

func (db *fakeDB) Description(h Handle) string {
	if d, err := db.dev(h); err == nil {
		return d.desc
	}
	return ""
}

func (db *fakeDB) LoadedImagePath() (uefi.DevicePath, error) {
	if db.image == nil {
		return nil, ENotFound
	}
	return db.image, nil
}

// volumes keyed by the text of their device path
type fakeVolumes map[string]fakeVol

type fakeVol map[uuid.UUID]bool

func (fv fakeVolumes) LocateVolume(p uefi.DevicePath) (Volume, error) {
	for k, v := range fv {
		if strings.HasPrefix(p.String(), k) {
			return v, nil
		}
	}
	return nil, ENotFound
}

func (v fakeVol) FileInfo(name uuid.UUID) (FileInfo, error) {
	if v[name] {
		return FileInfo{Size: 4096, Type: 9}, nil
	}
	return FileInfo{}, ENotFound
}

type fakePolicy struct {
	classes []uuid.UUID
	err     error
}

func (fp *fakePolicy) ConnectDeviceClass(class uuid.UUID) error {
	fp.classes = append(fp.classes, class)
	return fp.err
}

type fakeCapsules []*CapsuleRecord

type capsuleIter struct {
	recs []*CapsuleRecord
}

func (fc fakeCapsules) Records() CapsuleIter { return &capsuleIter{recs: fc} }

func (ci *capsuleIter) Next() (*CapsuleRecord, error) {
	if len(ci.recs) == 0 {
		return nil, io.EOF
	}
	r := ci.recs[0]
	ci.recs = ci.recs[1:]
	return r, nil
}

// fails any capsule whose source is in fail
type fakeProcessor struct {
	applied []string
	fail    map[string]bool
}

func (fp *fakeProcessor) ProcessCapsule(r *CapsuleRecord) error {
	if fp.fail[r.Source] {
		return EDevice
	}
	fp.applied = append(fp.applied, r.Source)
	return nil
}

type fakeEsrt struct{ syncs int }

func (fe *fakeEsrt) SyncEsrtFmp() error { fe.syncs++; return nil }

type fakeDisplay struct {
	logoErr, progressErr error
	hres                 int
	printed              []string
	xy                   []string
	progress             []int
}

func (d *fakeDisplay) EnableLogo() error { return d.logoErr }
func (d *fakeDisplay) Resolution() (int, int, error) {
	if d.hres == 0 {
		return 0, 0, ENotFound
	}
	return d.hres, d.hres * 9 / 16, nil
}
func (d *fakeDisplay) PrintXY(x, y int, s string) error {
	d.xy = append(d.xy, fmt.Sprintf("%d,%d:%s", x, y, s))
	return nil
}
func (d *fakeDisplay) Print(s string) { d.printed = append(d.printed, s) }
func (d *fakeDisplay) UpdateProgress(title string, pct int) error {
	if d.progressErr != nil {
		return d.progressErr
	}
	d.progress = append(d.progress, pct)
	return nil
}

type fakeEvents struct{ signaled []Event }

func (fe *fakeEvents) Signal(e Event)                { fe.signaled = append(fe.signaled, e) }
func (fe *fakeEvents) DispatchDeferredImages() error { return nil }

// panics with these so tests can observe non-returning paths
var (
	errReset    = errors.New("cold reset")
	errMenuLoop = errors.New("menu loop")
	errDeadLoop = errors.New("dead loop")
)

type fakeResetter struct{ resets int }

func (fr *fakeResetter) ResetCold() {
	fr.resets++
	panic(errReset)
}

// panics after limit boots
type fakeBooter struct {
	booted []string
	limit  int
}

func (fb *fakeBooter) Boot(o *uefi.LoadOption) error {
	fb.booted = append(fb.booted, o.Description)
	if len(fb.booted) >= fb.limit {
		panic(errMenuLoop)
	}
	return errors.New("exited")
}

// Runs f, which must not return normally. Returns the value f panicked with.
func diverges(f func()) (r interface{}) {
	defer func() { r = recover() }()
	f()
	return nil
}

// Counts RefreshAll calls.
type countingStore struct {
	*bootmgr.Manager
	refreshes int
}

func (cs *countingStore) RefreshAll(devs []bootmgr.BootableDevice) (int, int) {
	cs.refreshes++
	return cs.Manager.RefreshAll(devs)
}

// Fails writes whose data contains fail.
type failingStore struct {
	efivar.Store
	fail []byte
}

func (fs *failingStore) Set(vendor uuid.UUID, name string, attrs efivar.Attr, data []byte) error {
	if bytes.Contains(data, fs.fail) {
		return fmt.Errorf("%w: write protected", EPersist)
	}
	return fs.Store.Set(vendor, name, attrs, data)
}

var (
	fvMain  = uuid.MustParse("8fc151ae-c96f-4bc9-8c33-107992c7735b")
	fvNew   = uuid.MustParse("b2c6a3e7-58f1-4c8a-9b1d-0e4f6a7c8d90")
	appFile = uuid.MustParse("0b3d5bd5-1a72-4b2e-9cbd-6a0eb4a8f3d1")
)

func mainVol() uefi.DevicePath { return uefi.DevicePath{uefi.FvNode(fvMain)} }

// A platform with every firmware file present in fvMain and the boot manager
// loaded from it.
func testPlatform(devs ...*fakeDev) (*Platform, *fakeDB, *fakeResetter, *fakeBooter) {
	cfg := platcfg.Default()
	db := &fakeDB{devs: devs, image: mainVol()}
	vols := fakeVolumes{
		mainVol().String(): fakeVol{cfg.ShellFile: true, cfg.MaskromFile: true, cfg.MenuFile: true, appFile: true},
	}
	r := &fakeResetter{}
	b := &fakeBooter{limit: 3}
	p := New(cfg, db, efivar.NewMemStore(), vols, r, b)
	return p, db, r, b
}
