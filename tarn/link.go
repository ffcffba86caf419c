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

package tarn

import (
	"fmt"
	"math"
)

// LinkError reports a failure to instantiate a decoded module: a missing or
// mismatched import, an unresolvable export, or a data segment that does not
// fit in memory.
type LinkError struct {
	Err error
}

func (e *LinkError) Error() string { return fmt.Sprintf("link failed: %v", e.Err) }

func (e *LinkError) Unwrap() error { return e.Err }

// Instantiate links a decoded module against the given host functions and
// returns a machine ready to execute. Host functions satisfy the module's
// imports positionally, so hosts[i] binds to module.Imports[i] and must carry
// a matching signature. Data segments are copied into memory before any code
// runs; a segment that lands outside memory fails instantiation.
func Instantiate(module *Module, hosts []*HostFunc) (*Machine, error) {
	if len(hosts) != len(module.Imports) {
		return nil, &LinkError{Err: fmt.Errorf(
			"module declares %d imports, got %d host functions",
			len(module.Imports), len(hosts),
		)}
	}

	functions := make([]Function, 0, len(hosts)+len(module.Funcs))
	for i, imp := range module.Imports {
		want := module.Types[imp.TypeIndex]
		if hosts[i].Sig != want {
			return nil, &LinkError{Err: fmt.Errorf(
				"import %s.%s: signature mismatch: declared %s, host provides %s",
				imp.ModuleName, imp.Name, want, hosts[i].Sig,
			)}
		}
		functions = append(functions, hosts[i])
	}
	for _, code := range module.Funcs {
		functions = append(functions, &WasmFunction{
			Sig:    module.Types[code.TypeIndex],
			Locals: code.Locals,
			Body:   code.Body,
		})
	}

	memoryPages := uint32(1)
	if module.MemoryPages != nil {
		memoryPages = *module.MemoryPages
	}
	if memoryPages > math.MaxUint32/PageSize {
		return nil, &LinkError{Err: fmt.Errorf("initial memory too large: %d pages", memoryPages)}
	}

	machine := NewMachine(functions, memoryPages*PageSize)
	for _, export := range module.Exports {
		machine.exports[export.Name] = export.Index
	}

	for i, segment := range module.DataSegments {
		if err := applyDataSegment(machine, segment); err != nil {
			return nil, &LinkError{Err: fmt.Errorf("data segment %d: %w", i, err)}
		}
	}
	return machine, nil
}

// applyDataSegment evaluates the segment's offset expression on the machine
// and copies the content into place.
func applyDataSegment(m *Machine, segment DataSegment) error {
	if _, err := m.execute(segment.OffsetExpression, nil); err != nil {
		return fmt.Errorf("offset expression: %w", err)
	}
	offsetValue, err := m.stack.pop()
	if err != nil {
		return fmt.Errorf("offset expression left no value: %w", err)
	}
	offset, err := offsetValue.I32()
	if err != nil {
		return fmt.Errorf("offset expression: %w", err)
	}
	return m.memory.WriteBytes(uint32(offset), segment.Content)
}
