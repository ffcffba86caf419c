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
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrUnknownFunction    = errors.New("unknown function index")
	ErrCallStackExhausted = errors.New("call stack exhausted")
)

const maxCallDepth = 1000

// control is the outcome of executing an instruction sequence. Branching is
// plain data flowing back to the caller, never an error and never a panic:
// each enclosing scope decrements the depth and re-propagates until some
// scope is the target.
type control struct {
	kind  controlKind
	depth uint32
}

type controlKind byte

const (
	// controlNone: the sequence ran to completion.
	controlNone controlKind = iota
	// controlBranch: a br is unwinding; depth counts the scopes still to
	// cross, 0 meaning the immediately enclosing one.
	controlBranch
	// controlReturn: a return is unwinding every scope of the activation.
	controlReturn
)

// TraceFunc observes every dispatched instruction. stackSize is the operand
// stack size before the instruction executes.
type TraceFunc func(ins Instruction, stackSize int)

// Machine executes instruction sequences against a function table, an
// operand stack, and a linear memory. One Machine is single-threaded;
// concurrent execution requires separate instances.
type Machine struct {
	functions []Function
	memory    *Memory
	stack     *operandStack
	exports   map[string]uint32
	callDepth int
	trace     TraceFunc
}

// NewMachine creates a machine owning the given function table and a linear
// memory of memorySize bytes.
func NewMachine(functions []Function, memorySize uint32) *Machine {
	return &Machine{
		functions: functions,
		memory:    NewMemory(memorySize),
		stack:     newOperandStack(),
		exports:   make(map[string]uint32),
	}
}

// Memory exposes the machine's linear memory for host-side initialization
// and inspection, bypassing the machine's opcodes.
func (m *Machine) Memory() *Memory { return m.memory }

// SetTrace installs a hook invoked for every dispatched instruction. A nil
// hook disables tracing.
func (m *Machine) SetTrace(trace TraceFunc) { m.trace = trace }

// Function returns the function table entry at the given index.
func (m *Machine) Function(index uint32) (Function, error) {
	if index >= uint32(len(m.functions)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFunction, index)
	}
	return m.functions[index], nil
}

// Export returns the exported function with the given name. Unresolved
// exports are a LinkError.
func (m *Machine) Export(name string) (Function, error) {
	index, ok := m.exports[name]
	if !ok {
		return nil, &LinkError{Err: fmt.Errorf("unresolved export %q", name)}
	}
	return m.Function(index)
}

// ExportNames returns the machine's export names in sorted order.
func (m *Machine) ExportNames() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a function with the given arguments, bound positionally to
// the parameter locals. The returned bool reports whether the Value is
// meaningful, i.e. whether the function's signature has a result.
func (m *Machine) Call(fn Function, args ...Value) (Value, bool, error) {
	sig := fn.Signature()
	if len(args) != sig.NumParams {
		return Value{}, false, fmt.Errorf(
			"wrong argument count: function takes %d, got %d",
			sig.NumParams, len(args),
		)
	}
	if m.callDepth >= maxCallDepth {
		return Value{}, false, ErrCallStackExhausted
	}
	m.callDepth++
	result, err := fn.invoke(m, args)
	m.callDepth--
	if err != nil {
		return Value{}, false, err
	}
	return result, sig.HasResult, nil
}

// CallExport invokes an exported function by name.
func (m *Machine) CallExport(name string, args ...Value) (Value, bool, error) {
	fn, err := m.Export(name)
	if err != nil {
		return Value{}, false, err
	}
	return m.Call(fn, args...)
}

// execute runs one instruction sequence against the given locals. Nested
// blocks and loops recurse; a fatal error aborts the whole call, while a
// branch or return is reported through the control result.
func (m *Machine) execute(body []Instruction, locals []Value) (control, error) {
	for i := range body {
		ins := &body[i]
		if m.trace != nil {
			m.trace(*ins, m.stack.size())
		}

		switch ins.Op {
		case OpNop:

		case OpBlock:
			ctl, err := m.execute(ins.Body, locals)
			if err != nil {
				return control{}, err
			}
			switch ctl.kind {
			case controlReturn:
				return ctl, nil
			case controlBranch:
				if ctl.depth > 0 {
					return control{kind: controlBranch, depth: ctl.depth - 1}, nil
				}
				// Depth 0 targets this block: forward exit, resume after it.
			}

		case OpLoop:
			for {
				ctl, err := m.execute(ins.Body, locals)
				if err != nil {
					return control{}, err
				}
				if ctl.kind == controlReturn {
					return ctl, nil
				}
				if ctl.kind == controlBranch {
					if ctl.depth > 0 {
						return control{kind: controlBranch, depth: ctl.depth - 1}, nil
					}
					// Depth 0 targets the loop itself: restart the body.
					continue
				}
				// Completion without a branch exits after a single pass.
				break
			}

		case OpBr:
			return control{kind: controlBranch, depth: ins.Depth}, nil

		case OpBrIf:
			truthy, err := m.popCondition()
			if err != nil {
				return control{}, err
			}
			if truthy {
				return control{kind: controlBranch, depth: ins.Depth}, nil
			}

		case OpBrTable:
			index, err := m.popI32()
			if err != nil {
				return control{}, err
			}
			depth := ins.Depth // the default target
			if index >= 0 && int(index) < len(ins.Table) {
				depth = ins.Table[index]
			}
			return control{kind: controlBranch, depth: depth}, nil

		case OpReturn:
			return control{kind: controlReturn}, nil

		case OpCall:
			if err := m.callIndexed(ins.Index); err != nil {
				return control{}, err
			}

		case OpDrop:
			if _, err := m.stack.pop(); err != nil {
				return control{}, err
			}

		case OpSelect:
			truthy, err := m.popCondition()
			if err != nil {
				return control{}, err
			}
			falseValue, err := m.stack.pop()
			if err != nil {
				return control{}, err
			}
			trueValue, err := m.stack.pop()
			if err != nil {
				return control{}, err
			}
			if truthy {
				m.stack.push(trueValue)
			} else {
				m.stack.push(falseValue)
			}

		case OpLocalGet:
			if int(ins.Index) >= len(locals) {
				return control{}, fmt.Errorf("local index %d out of range", ins.Index)
			}
			m.stack.push(locals[ins.Index])

		case OpLocalSet:
			v, err := m.stack.pop()
			if err != nil {
				return control{}, err
			}
			if int(ins.Index) >= len(locals) {
				return control{}, fmt.Errorf("local index %d out of range", ins.Index)
			}
			locals[ins.Index] = v

		case OpLocalTee:
			v, err := m.stack.peek()
			if err != nil {
				return control{}, err
			}
			if int(ins.Index) >= len(locals) {
				return control{}, fmt.Errorf("local index %d out of range", ins.Index)
			}
			locals[ins.Index] = v

		case OpMemorySize:
			m.stack.push(I32(int32(m.memory.Size())))

		case OpMemoryGrow:
			pages, err := m.popI32()
			if err != nil {
				return control{}, err
			}
			m.stack.push(I32(int32(m.memory.Grow(uint32(pages)))))

		case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
			m.stack.push(ins.Imm)

		default:
			if err := m.dispatch(ins); err != nil {
				return control{}, err
			}
		}
	}
	return control{}, nil
}

// dispatch executes the table-driven opcode categories: unary, binary, load,
// and store.
func (m *Machine) dispatch(ins *Instruction) error {
	if f := binaryOps[ins.Op]; f != nil {
		right, err := m.stack.pop()
		if err != nil {
			return err
		}
		left, err := m.stack.pop()
		if err != nil {
			return err
		}
		result, err := f(left, right)
		if err != nil {
			return fmt.Errorf("%s: %w", ins.Op, err)
		}
		m.stack.push(result)
		return nil
	}

	if f := unaryOps[ins.Op]; f != nil {
		v, err := m.stack.pop()
		if err != nil {
			return err
		}
		result, err := f(v)
		if err != nil {
			return fmt.Errorf("%s: %w", ins.Op, err)
		}
		m.stack.push(result)
		return nil
	}

	if f := loadOps[ins.Op]; f != nil {
		addr, err := m.popAddress(ins.Offset)
		if err != nil {
			return err
		}
		v, err := f(m.memory, addr)
		if err != nil {
			return fmt.Errorf("%s: %w", ins.Op, err)
		}
		m.stack.push(v)
		return nil
	}

	if f := storeOps[ins.Op]; f != nil {
		v, err := m.stack.pop()
		if err != nil {
			return err
		}
		addr, err := m.popAddress(ins.Offset)
		if err != nil {
			return err
		}
		if err := f(m.memory, addr, v); err != nil {
			return fmt.Errorf("%s: %w", ins.Op, err)
		}
		return nil
	}

	return fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, byte(ins.Op))
}

// callIndexed implements the call opcode: pop the arguments (they come off
// the stack in reverse push order, so they are bound back-to-front), invoke,
// and push the result if the callee has one.
func (m *Machine) callIndexed(index uint32) error {
	fn, err := m.Function(index)
	if err != nil {
		return err
	}

	sig := fn.Signature()
	args := make([]Value, sig.NumParams)
	for i := sig.NumParams - 1; i >= 0; i-- {
		v, err := m.stack.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	result, hasResult, err := m.Call(fn, args...)
	if err != nil {
		return err
	}
	if hasResult {
		m.stack.push(result)
	}
	return nil
}

// popAddress computes the effective address: popped u32 base plus the static
// offset immediate, widened so the addition cannot wrap.
func (m *Machine) popAddress(offset uint32) (uint64, error) {
	base, err := m.popI32()
	if err != nil {
		return 0, err
	}
	return uint64(uint32(base)) + uint64(offset), nil
}

func (m *Machine) popI32() (int32, error) {
	v, err := m.stack.pop()
	if err != nil {
		return 0, err
	}
	return v.I32()
}

// popCondition pops a truthiness value: a nonzero 32-bit integer is true.
func (m *Machine) popCondition() (bool, error) {
	v, err := m.popI32()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
