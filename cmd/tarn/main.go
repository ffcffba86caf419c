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

// Command tarn runs binary modules: either one module file invoked directly
// or an interactive session.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/tarnvm/tarn/hostfn"
	"github.com/tarnvm/tarn/tarn"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("tarn")

func main() {
	interactive := flag.Bool("i", false, "Start an interactive session")
	invoke := flag.String("invoke", "main", "Exported function to invoke")
	configPath := flag.String("config", "tarn.toml", "Path to the configuration file")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tarn [options] [module-file [args...]]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tarn -i                        # Start an interactive session\n")
		fmt.Fprintf(os.Stderr, "  tarn demo.wasm                 # Run demo.wasm's 'main' export\n")
		fmt.Fprintf(os.Stderr, "  tarn -invoke add demo.wasm 2 3 # Invoke 'add' with arguments\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	// Handle CTRL-C
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		os.Exit(0)
	}()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *trace {
		config.Machine.Trace = true
	}

	if *interactive || flag.NArg() == 0 {
		newRepl(config).run()
		return
	}

	if err := runFile(config, flag.Arg(0), *invoke, flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFile loads one module, links it against the standard host functions,
// and invokes the named export.
func runFile(config *Config, source, entry string, rawArgs []string) error {
	machine, err := loadMachine(config, source)
	if err != nil {
		return err
	}

	args, err := parseFunctionArguments(rawArgs)
	if err != nil {
		return err
	}

	log.Infof("invoking %q with %d arguments", entry, len(args))
	result, hasResult, err := machine.CallExport(entry, args...)
	if err != nil {
		return err
	}
	if hasResult {
		fmt.Println(result)
	}
	return nil
}

// loadMachine parses and instantiates the module at source, wiring the
// standard host functions and the configured trace hook.
func loadMachine(config *Config, source string) (*tarn.Machine, error) {
	reader, err := resolveModule(source)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	module, err := tarn.NewParser(reader).Parse()
	if err != nil {
		return nil, err
	}
	if pages := config.Machine.MemoryPages; pages != 0 {
		module.MemoryPages = &pages
	}

	console := hostfn.NewConsole(os.Stdout)
	if config.Console.Width != 0 {
		console.SetWidth(config.Console.Width)
	}
	console.SetFrameDelay(time.Duration(config.Console.FrameDelayMs) * time.Millisecond)

	hosts, err := hostfn.Standard(console, hostfn.NewClock()).Resolve(module)
	if err != nil {
		return nil, err
	}

	machine, err := tarn.Instantiate(module, hosts)
	if err != nil {
		return nil, err
	}
	console.Bind(machine)

	if config.Machine.Trace {
		machine.SetTrace(func(ins tarn.Instruction, stackSize int) {
			log.Debugf("[stack %3d] %s", stackSize, ins)
		})
	}
	log.Infof("loaded %s: %d functions, %d exports",
		source, len(module.Imports)+len(module.Funcs), len(module.Exports))
	return machine, nil
}

// parseFunctionArguments turns command-line literals into operand values.
// A "kind:" prefix forces the kind; otherwise integers become i32 and
// decimal literals become f64.
func parseFunctionArguments(rawArgs []string) ([]tarn.Value, error) {
	args := make([]tarn.Value, len(rawArgs))
	for i, raw := range rawArgs {
		v, err := parseFunctionArgument(raw)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func parseFunctionArgument(raw string) (tarn.Value, error) {
	kind, literal := "", raw
	if k, rest, ok := strings.Cut(raw, ":"); ok {
		kind, literal = k, rest
	}

	switch kind {
	case "i32":
		v, err := strconv.ParseInt(literal, 10, 32)
		if err != nil {
			return tarn.Value{}, fmt.Errorf("failed to parse arg %s as i32: %v", literal, err)
		}
		return tarn.I32(int32(v)), nil
	case "i64":
		v, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return tarn.Value{}, fmt.Errorf("failed to parse arg %s as i64: %v", literal, err)
		}
		return tarn.I64(v), nil
	case "f32":
		v, err := strconv.ParseFloat(literal, 32)
		if err != nil {
			return tarn.Value{}, fmt.Errorf("failed to parse arg %s as f32: %v", literal, err)
		}
		return tarn.F32(float32(v)), nil
	case "f64":
		v, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return tarn.Value{}, fmt.Errorf("failed to parse arg %s as f64: %v", literal, err)
		}
		return tarn.F64(v), nil
	case "":
		if v, err := strconv.ParseInt(literal, 10, 32); err == nil {
			return tarn.I32(int32(v)), nil
		}
		if v, err := strconv.ParseFloat(literal, 64); err == nil {
			return tarn.F64(v), nil
		}
		return tarn.Value{}, fmt.Errorf("cannot parse arg %s; use a kind prefix like i64:%s", raw, raw)
	default:
		return tarn.Value{}, fmt.Errorf("unsupported arg kind: %s", kind)
	}
}

func resolveModule(source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https":
		resp, err := http.Get(source)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: %s", source, resp.Status)
		}
		return resp.Body, nil
	default:
		return os.Open(source)
	}
}
