// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package efivar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prologic/bitcask"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// BitcaskStore persists non-volatile variables in a bitcask database, one key
// per variable (same form as efivarfs file names). Values are the 4-byte
// attributes followed by the data, again as with efivarfs. Volatile variables
// live in memory only and so are gone when the store is reopened.
type BitcaskStore struct {
	bc       *bitcask.Bitcask
	volatile *MemStore
	sync.Mutex
}

var _ Store = (*BitcaskStore)(nil)

// variable names are at most a few dozen chars; the key adds a guid
const maxKeySize = 256

func OpenBitcask(path string) (*BitcaskStore, error) {
	db, err := bitcask.Open(path, bitcask.WithMaxKeySize(maxKeySize))
	if err != nil {
		return nil, fmt.Errorf("opening variable store %s: %w", path, err)
	}
	return &BitcaskStore{bc: db, volatile: NewMemStore()}, nil
}

func (s *BitcaskStore) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.bc.Close()
}

// Drops volatile variables, as happens on reset.
func (s *BitcaskStore) Reset() { s.volatile.Reset() }

func key(vendor uuid.UUID, name string) []byte { return []byte(VarId{vendor, name}.String()) }

func (s *BitcaskStore) Get(vendor uuid.UUID, name string) ([]byte, Attr, error) {
	if d, a, err := s.volatile.Get(vendor, name); err == nil {
		return d, a, nil
	}
	s.Lock()
	v, err := s.bc.Get(key(vendor, name))
	s.Unlock()
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return nil, 0, ENotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return decodeAttrs(v)
}

func (s *BitcaskStore) Set(vendor uuid.UUID, name string, attrs Attr, data []byte) error {
	if len(data) == 0 {
		return s.Delete(vendor, name)
	}
	if err := checkAttrs(attrs); err != nil {
		return err
	}
	if attrs&NonVolatile == 0 {
		//may be replacing a non-volatile var
		if err := s.deletePersistent(vendor, name); err != nil && !errors.Is(err, ENotFound) {
			return err
		}
		return s.volatile.Set(vendor, name, attrs, data)
	}
	_ = s.volatile.Delete(vendor, name)
	s.Lock()
	defer s.Unlock()
	return s.bc.Put(key(vendor, name), encodeAttrs(attrs, data))
}

func (s *BitcaskStore) Delete(vendor uuid.UUID, name string) error {
	verr := s.volatile.Delete(vendor, name)
	perr := s.deletePersistent(vendor, name)
	if verr == nil && errors.Is(perr, ENotFound) {
		return nil
	}
	return perr
}

func (s *BitcaskStore) deletePersistent(vendor uuid.UUID, name string) error {
	s.Lock()
	defer s.Unlock()
	k := key(vendor, name)
	if !s.bc.Has(k) {
		return ENotFound
	}
	return s.bc.Delete(k)
}

func (s *BitcaskStore) List(filt VarFilter) ([]VarId, error) {
	ids, _ := s.volatile.List(filt)
	s.Lock()
	defer s.Unlock()
	for k := range s.bc.Keys() {
		id, err := ParseVarId(string(k))
		if err != nil {
			log.Warnf("variable store: skipping key %q: %s", k, err)
			continue
		}
		if filt == nil || filt(id.Vendor, id.Name) {
			ids = append(ids, id)
		}
	}
	sortIds(ids)
	return ids, nil
}

func encodeAttrs(attrs Attr, data []byte) []byte {
	v := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(v, uint32(attrs))
	copy(v[4:], data)
	return v
}

func decodeAttrs(v []byte) ([]byte, Attr, error) {
	if len(v) < 4 {
		return nil, 0, fmt.Errorf("%w: stored value too short (%d)", EInvalid, len(v))
	}
	return append([]byte(nil), v[4:]...), Attr(binary.LittleEndian.Uint32(v)), nil
}
