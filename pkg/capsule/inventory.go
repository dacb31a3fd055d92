// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package capsule

import (
	"fmt"

	"github.com/google/uuid"
)

// MemInventory is an Inventory whose firmware lives in memory.
type MemInventory struct {
	Res []Resource
	//last image written to each resource
	Images map[uuid.UUID][]byte
}

var _ Inventory = (*MemInventory)(nil)

func (m *MemInventory) Resources() ([]Resource, error) {
	return append([]Resource(nil), m.Res...), nil
}

func (m *MemInventory) Update(class uuid.UUID, version uint32, image []byte) error {
	for i := range m.Res {
		if m.Res[i].Class != class {
			continue
		}
		if m.Images == nil {
			m.Images = make(map[uuid.UUID][]byte)
		}
		m.Images[class] = append([]byte(nil), image...)
		m.Res[i].Version = version
		return nil
	}
	return fmt.Errorf("%w: %s", ENoEntry, class)
}
