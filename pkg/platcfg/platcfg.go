// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package platcfg holds build-time platform settings consumed by the boot
// manager: default discovery policy, serial console parameters, countdown,
// firmware version text, the GUIDs of firmware-bundled applications, and the
// platform default boot options.
//
// Settings are read from a json file, which is validated against an embedded
// schema before use. Fields absent from the file keep their Default() value.
package platcfg

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema"

	"github.com/purecloudlabs/platformbm/pkg/guid"
	"github.com/purecloudlabs/platformbm/pkg/log"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "platcfg.schema.json"

var EInvalid = errors.New("invalid platform config")

type Config struct {
	DiscoveryPolicy DiscoveryPolicy `json:"discoveryPolicy"`
	Uart            Uart            `json:"uart"`
	TerminalType    TerminalType    `json:"terminalType"`
	//seconds
	BootTimeout uint16 `json:"bootTimeout"`
	//variable store is held in ram; option changes do not survive reset
	EmuVariableNV   bool   `json:"emuVariableNV"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`

	ShellFile   uuid.UUID `json:"shellFile"`
	MaskromFile uuid.UUID `json:"maskromFile"`
	MenuFile    uuid.UUID `json:"menuFile"`

	BootOptions []BootOption `json:"bootOptions,omitempty"`
}

type Uart struct {
	BaudRate uint64   `json:"baudRate"`
	DataBits uint8    `json:"dataBits"`
	Parity   Parity   `json:"parity"`
	StopBits StopBits `json:"stopBits"`
}

// Placeholder for the maskrom reset application. Deployments set the real file
// guid of their firmware image with maskromFile.
var defaultMaskromFile = uuid.MustParse("0f7ba0f8-ea68-4bdb-8b8b-29fc5d6e1e38")

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DiscoveryPolicy: PolicyMinimal,
		Uart: Uart{
			BaudRate: 1500000,
			DataBits: 8,
			Parity:   ParityNone,
			StopBits: StopBits1,
		},
		TerminalType: TermTty,
		BootTimeout:  5,
		ShellFile:    guid.UefiShellFile,
		MaskromFile:  defaultMaskromFile,
		MenuFile:     guid.BootManagerMenuFile,
	}
}

// Load reads and validates the config at path. A missing file is not an
// error; Default() is returned.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Logf("%s not found, using default platform config", path)
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates data against the schema and decodes it over Default().
func Parse(data []byte) (*Config, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", EInvalid, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(data []byte) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return err
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return err
	}
	if err = schema.Validate(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %s", EInvalid, err)
	}
	return nil
}

// Check catches what the schema cannot express.
func (c *Config) Check() error {
	if c.Uart.Parity == ParityDefault || c.Uart.StopBits == StopBitsDefault {
		return fmt.Errorf("%w: uart parity and stop bits must be set explicitly", EInvalid)
	}
	for i, o := range c.BootOptions {
		if (o.FvFile == uuid.Nil) == (o.DevicePath == "") {
			return fmt.Errorf("%w: boot option %d (%q) needs exactly one of fvFile, devicePath", EInvalid, i, o.Description)
		}
	}
	return nil
}

func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("%#v", *c)
	}
	return string(data)
}
