// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package bds

import "errors"

var (
	//capability, service, or variable absent
	ENotFound = errors.New("not found")
	//a specific device failed a read or connect
	EDevice = errors.New("device error")
	//an option, hotkey, or variable could not be written
	EPersist = errors.New("persistence error")
	//unrecognized policy value
	EPolicy = errors.New("policy error")
)
