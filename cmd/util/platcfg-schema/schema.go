// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Platcfg-schema generates a json schema for
// github.com/purecloudlabs/platformbm/pkg/platcfg, as a starting point for
// edits to pkg/platcfg/schema.json.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/jsonschema"
	flag "github.com/spf13/pflag"

	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

const Warn = `WARNING:
	schema will need to be hand-edited, as the output isn't perfect
	* jsonschema doesn't realize that keys, guids and enums are marshalled as strings
	* value ranges checked by platcfg.Check are not expressed
`

func main() {
	loose := flag.Bool("allow-additional", false, "allow properties not in the struct")
	flag.Parse()
	fmt.Fprint(os.Stderr, Warn)
	r := &jsonschema.Reflector{AllowAdditionalProperties: *loose}
	data, err := json.MarshalIndent(r.Reflect(&platcfg.Config{}), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s\n", data)
}
