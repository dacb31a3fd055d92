// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package efivar

import (
	"sync"

	"github.com/google/uuid"
)

type memVar struct {
	attrs Attr
	data  []byte
}

// MemStore keeps variables in memory. Safe for concurrent use.
type MemStore struct {
	mu   sync.Mutex
	vars map[VarId]memVar
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{vars: make(map[VarId]memVar)} }

func (m *MemStore) Get(vendor uuid.UUID, name string) ([]byte, Attr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[VarId{vendor, name}]
	if !ok {
		return nil, 0, ENotFound
	}
	return append([]byte(nil), v.data...), v.attrs, nil
}

func (m *MemStore) Set(vendor uuid.UUID, name string, attrs Attr, data []byte) error {
	if len(data) == 0 {
		return m.Delete(vendor, name)
	}
	if err := checkAttrs(attrs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[VarId{vendor, name}] = memVar{attrs: attrs, data: append([]byte(nil), data...)}
	return nil
}

func (m *MemStore) Delete(vendor uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := VarId{vendor, name}
	if _, ok := m.vars[id]; !ok {
		return ENotFound
	}
	delete(m.vars, id)
	return nil
}

func (m *MemStore) List(filt VarFilter) ([]VarId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []VarId
	for id := range m.vars {
		if filt == nil || filt(id.Vendor, id.Name) {
			ids = append(ids, id)
		}
	}
	sortIds(ids)
	return ids, nil
}

// Drops volatile variables, as happens on reset.
func (m *MemStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.vars {
		if v.attrs&NonVolatile == 0 {
			delete(m.vars, id)
		}
	}
}

// Number of variables held
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vars)
}
