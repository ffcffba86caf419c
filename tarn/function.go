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

import "fmt"

// Signature is the shape of a callable: how many parameters it takes and
// whether it produces a result. Functions have at most one result.
type Signature struct {
	NumParams int
	HasResult bool
}

func (s Signature) String() string {
	result := "none"
	if s.HasResult {
		result = "one"
	}
	return fmt.Sprintf("(params: %d, result: %s)", s.NumParams, result)
}

// Function is anything the machine can invoke: a function defined by a
// decoded module or a host callback. Dispatch between the two happens through
// this interface, resolved once per call.
type Function interface {
	Signature() Signature
	invoke(m *Machine, args []Value) (Value, error)
}

// WasmFunction is a function defined by an instruction sequence. Immutable
// once constructed.
type WasmFunction struct {
	Sig Signature
	// Locals declares the extra locals beyond the parameters. They are
	// zero-initialized on every call entry.
	Locals []ValueKind
	Body   []Instruction
}

func (f *WasmFunction) Signature() Signature { return f.Sig }

func (f *WasmFunction) invoke(m *Machine, args []Value) (Value, error) {
	locals := make([]Value, 0, len(args)+len(f.Locals))
	locals = append(locals, args...)
	for _, kind := range f.Locals {
		locals = append(locals, zeroValue(kind))
	}

	// The body is the activation's root scope: a branch that unwinds past it
	// ends the call, exactly like return.
	if _, err := m.execute(f.Body, locals); err != nil {
		return Value{}, err
	}

	if f.Sig.HasResult {
		result, err := m.stack.pop()
		if err != nil {
			return Value{}, fmt.Errorf("missing return value: %w", err)
		}
		return result, nil
	}
	return Value{}, nil
}

// HostFunc is a function provided by the embedder. The callback runs
// synchronously; any side effects must complete before it returns.
type HostFunc struct {
	Sig Signature
	Fn  func(args []Value) (Value, error)
}

func (f *HostFunc) Signature() Signature { return f.Sig }

func (f *HostFunc) invoke(_ *Machine, args []Value) (Value, error) {
	return f.Fn(args)
}
