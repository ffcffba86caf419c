// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tarnvm/tarn/tarn"
)

const (
	prompt     = ">> "
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

var errNoMachines = errors.New("no module loaded; use LOAD first")

type repl struct {
	config   *Config
	machines map[string]*tarn.Machine
	// lastLoaded names the machine unqualified commands target.
	lastLoaded string
	scanner    *bufio.Scanner
}

func newRepl(config *Config) *repl {
	return &repl{
		config:   config,
		machines: make(map[string]*tarn.Machine),
		scanner:  bufio.NewScanner(os.Stdin),
	}
}

func (r *repl) run() {
	fmt.Print(prompt)

	for r.scanner.Scan() {
		line := r.scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			fmt.Print(prompt)
			continue
		}

		cmd := strings.ToUpper(parts[0])
		args := parts[1:]
		var err error

		switch cmd {
		case "LOAD":
			err = r.handleLoad(args)
		case "INVOKE":
			err = r.handleInvoke(args)
		case "MEM":
			err = r.handleMem(args)
		case "LIST":
			r.handleList()
		case "HELP":
			r.handleHelp()
		case "CLEAR":
			r.handleClear()
		case "QUIT":
			os.Exit(0)
		default:
			fmt.Fprintln(
				os.Stderr,
				red(fmt.Sprintf("Error: unknown command: %s", parts[0])),
			)
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, red(fmt.Sprintf("Error: %s", err)))
		}
		fmt.Print(prompt)
	}
}

func (r *repl) handleLoad(args []string) error {
	var name, source string
	switch len(args) {
	case 1:
		// Unnamed loads get a short unique name so several anonymous modules
		// can coexist.
		name = uuid.NewString()[:8]
		source = args[0]
	case 2:
		name = args[0]
		source = args[1]
	default:
		return errors.New("usage: LOAD [<name>] <path-to-file | url>")
	}

	if _, ok := r.machines[name]; ok {
		return fmt.Errorf("machine '%s' already exists", name)
	}

	machine, err := loadMachine(r.config, source)
	if err != nil {
		return err
	}
	r.machines[name] = machine
	r.lastLoaded = name
	fmt.Println(green(fmt.Sprintf("'%s' loaded.", name)))
	return nil
}

func (r *repl) handleInvoke(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: INVOKE [<name>.]<function> [args...]")
	}

	machine, funcName, err := r.resolveItem(args[0])
	if err != nil {
		return err
	}

	parsed, err := parseFunctionArguments(args[1:])
	if err != nil {
		return err
	}

	result, hasResult, err := machine.CallExport(funcName, parsed...)
	if err != nil {
		return err
	}
	if hasResult {
		fmt.Println(green(result.String()))
	}
	return nil
}

func (r *repl) handleMem(args []string) error {
	var name, offsetStr, lengthStr string
	switch len(args) {
	case 2:
		name = r.lastLoaded
		offsetStr = args[0]
		lengthStr = args[1]
	case 3:
		name = args[0]
		offsetStr = args[1]
		lengthStr = args[2]
	default:
		return errors.New("usage: MEM [<name>] <offset> <length>")
	}

	machine, ok := r.machines[name]
	if !ok {
		if name == "" {
			return errNoMachines
		}
		return fmt.Errorf("machine '%s' not found", name)
	}

	offset, err := strconv.ParseUint(offsetStr, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid offset: %s", offsetStr)
	}
	length, err := strconv.ParseUint(lengthStr, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid length: %s", lengthStr)
	}

	data, err := machine.Memory().ReadBytes(uint32(offset), uint32(length))
	if err != nil {
		return err
	}
	fmt.Println(data)
	return nil
}

func (r *repl) handleList() {
	for name, machine := range r.machines {
		fmt.Println(name)
		for _, export := range machine.ExportNames() {
			fmt.Printf("  %s\n", export)
		}
	}
}

func (r *repl) handleHelp() {
	helpText := `
Commands:
  LOAD [<name>] <path-to-file | url>
  INVOKE [<name>.]<function> [args...]
  MEM [<name>] <offset> <length>
  LIST
  HELP
  CLEAR
  QUIT

Arguments default to i32, or f64 when they carry a decimal point.
Prefix with a kind to override, e.g. i64:70000 or f32:0.5.
`
	fmt.Println(strings.TrimSpace(helpText))
}

func (r *repl) handleClear() {
	fmt.Print("\033[H\033[2J")
	r.machines = make(map[string]*tarn.Machine)
	r.lastLoaded = ""
}

// resolveItem splits an optional "name." prefix off an item and returns the
// machine it refers to. Unqualified items target the most recently loaded
// machine.
func (r *repl) resolveItem(input string) (*tarn.Machine, string, error) {
	name, item := r.lastLoaded, input
	if before, after, ok := strings.Cut(input, "."); ok {
		name, item = before, after
	}

	machine, ok := r.machines[name]
	if !ok {
		if name == "" {
			return nil, "", errNoMachines
		}
		return nil, "", fmt.Errorf("machine '%s' not found", name)
	}
	return machine, item, nil
}

func red(s string) string   { return colorRed + s + colorReset }
func green(s string) string { return colorGreen + s + colorReset }
