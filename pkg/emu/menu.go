// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package emu

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/purecloudlabs/platformbm/pkg/log"
)

// ReadlineMenu returns a Menu func reading from a terminal.
func ReadlineMenu(in io.ReadCloser, out io.Writer) func() (LineReader, error) {
	return func() (LineReader, error) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "bootmgr> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			Stdin:           in,
			Stdout:          out,
		})
		if err != nil {
			return nil, err
		}
		return rl, nil
	}
}

// The boot manager menu. Lists the load options and boots the one chosen;
// returns only if the input is exhausted.
func (e *Emulator) menu() error {
	if e.Menu == nil {
		panic(haltSignal{"boot manager menu: no input"})
	}
	rl, err := e.Menu()
	if err != nil {
		return err
	}
	defer rl.Close()
	e.listOptions()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			panic(haltSignal{"boot manager menu: " + err.Error()})
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch cmd := strings.ToLower(fields[0]); cmd {
		case "exit", "halt", "q":
			panic(haltSignal{"boot manager menu: " + cmd})
		case "r", "reset":
			e.ResetCold()
		case "l", "ls", "list":
			e.listOptions()
		default:
			n, err := strconv.ParseUint(cmd, 16, 16)
			if err != nil {
				fmt.Fprintf(e.Out, "unknown command %q\n", cmd)
				continue
			}
			o, err := e.cur.Options.LoadOption(int(n))
			if err != nil {
				fmt.Fprintln(e.Out, err)
				continue
			}
			if err = e.Boot(o); err != nil {
				log.Logf("menu: boot %s: %s", o.Name("Boot"), err)
				fmt.Fprintf(e.Out, "%s: %s\n", o.Description, err)
			}
		}
	}
}

func (e *Emulator) listOptions() {
	for _, o := range e.cur.Options.LoadOptions() {
		mark := " "
		if !o.IsActive() {
			mark = "-"
		}
		fmt.Fprintf(e.Out, "%s%04X  %s\n", mark, o.Number, o.Description)
	}
	fmt.Fprintln(e.Out, "enter an option number, r to reset, or exit")
}
