// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

// Format: hh:mm:ss.mmm. Boot logs are short-lived; the date adds nothing.
const DefaultTimestampLayout = "15:04:05.000"

var TimestampLayout = DefaultTimestampLayout

// Timestamp used in log file names. No colons, so names are valid on FAT.
const FileTimestampLayout = "20060102-150405.000"
