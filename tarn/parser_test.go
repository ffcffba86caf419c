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
	"bytes"
	"errors"
	"testing"
)

var moduleHeader = []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

// section encodes a section: ID, payload length, payload. Lengths and counts
// in these fixtures fit in a single LEB128 byte.
func section(id byte, payload ...byte) []byte {
	out := []byte{id, byte(len(payload))}
	return append(out, payload...)
}

func buildModule(sections ...[]byte) []byte {
	out := append([]byte{}, moduleHeader...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func parseBytes(t *testing.T, data []byte) *Module {
	t.Helper()
	module, err := NewParser(bytes.NewReader(data)).Parse()
	if err != nil {
		t.Fatalf("failed to parse module: %v", err)
	}
	return module
}

func TestParseEmptyModule(t *testing.T) {
	module := parseBytes(t, moduleHeader)

	if len(module.Types) != 0 || len(module.Funcs) != 0 || len(module.Exports) != 0 {
		t.Fatalf("expected empty module, got %+v", module)
	}
	if module.MemoryPages != nil {
		t.Fatalf("expected no memory declaration")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := []byte{0x00, 'w', 'a', 't', 0x01, 0x00, 0x00, 0x00}

	_, err := NewParser(bytes.NewReader(data)).Parse()

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	data := []byte{0x00, 'a', 's', 'm', 0x02, 0x00, 0x00, 0x00}

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	_, err := NewParser(bytes.NewReader([]byte{0x00, 'a', 's'})).Parse()

	if err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	data := buildModule(section(8)) // start section

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for unsupported section")
	}
}

func TestParseSkipsCustomSection(t *testing.T) {
	data := buildModule(section(0, 0x04, 'n', 'a', 'm', 'e'))

	module := parseBytes(t, data)

	if len(module.Types) != 0 {
		t.Fatalf("expected custom section to carry no semantics")
	}
}

func TestParseAddModule(t *testing.T) {
	data := buildModule(
		// (i32, i32) -> i32
		section(1, 0x01, 0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F),
		section(3, 0x01, 0x00),
		section(7, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00),
		// local.get 0, local.get 1, i32.add, end
		section(10, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B),
	)

	module := parseBytes(t, data)
	machine, err := Instantiate(module, nil)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}

	result, _, err := machine.CallExport("add", I32(2), I32(40))
	if err != nil {
		t.Fatalf("failed to execute add: %v", err)
	}
	v, err := result.I32()
	if err != nil {
		t.Fatalf("unexpected result kind: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestParseNegativeConstant(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x01, 0x7F),
		section(3, 0x01, 0x00),
		section(7, 0x01, 0x03, 'n', 'e', 'g', 0x00, 0x00),
		// i32.const -1, end
		section(10, 0x01, 0x04, 0x00, 0x41, 0x7F, 0x0B),
	)

	module := parseBytes(t, data)
	machine, err := Instantiate(module, nil)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}

	result, _, err := machine.CallExport("neg")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	v, err := result.I32()
	if err != nil {
		t.Fatalf("unexpected result kind: %v", err)
	}
	if v != -1 {
		t.Fatalf("expected -1, got %d", v)
	}
}

func TestParseNestedControlFlow(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x01, 0x7F),
		section(3, 0x01, 0x00),
		section(7, 0x01, 0x01, 'f', 0x00, 0x00),
		// block (void): block (void): br 1, end, end; i32.const 9; end
		section(10, 0x01, 0x0D, 0x00,
			0x02, 0x40,
			0x02, 0x40,
			0x0C, 0x01,
			0x0B,
			0x0B,
			0x41, 0x09,
			0x0B,
		),
	)

	module := parseBytes(t, data)

	body := module.Funcs[0].Body
	if len(body) != 2 {
		t.Fatalf("expected 2 top-level instructions, got %d", len(body))
	}
	if body[0].Op != OpBlock || len(body[0].Body) != 1 {
		t.Fatalf("expected outer block with one instruction, got %+v", body[0])
	}
	inner := body[0].Body[0]
	if inner.Op != OpBlock || len(inner.Body) != 1 || inner.Body[0].Op != OpBr {
		t.Fatalf("expected nested block holding br, got %+v", inner)
	}
	if inner.Body[0].Depth != 1 {
		t.Fatalf("expected branch depth 1, got %d", inner.Body[0].Depth)
	}
}

func TestParseCodeWithLocals(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		// two runs of locals: 2 x i32, 1 x f64
		section(10, 0x01, 0x08, 0x02, 0x02, 0x7F, 0x01, 0x7C, 0x01, 0x0B),
	)

	module := parseBytes(t, data)

	locals := module.Funcs[0].Locals
	expected := []ValueKind{KindI32, KindI32, KindF64}
	if len(locals) != len(expected) {
		t.Fatalf("expected %d locals, got %d", len(expected), len(locals))
	}
	for i := range expected {
		if locals[i] != expected[i] {
			t.Fatalf("local %d: expected %s, got %s", i, expected[i], locals[i])
		}
	}
	if module.Funcs[0].Body[0].Op != OpNop {
		t.Fatalf("expected nop body, got %s", module.Funcs[0].Body[0].Op)
	}
}

func TestParseMemoryAndData(t *testing.T) {
	data := buildModule(
		section(5, 0x01, 0x00, 0x02),
		// offset expression: i32.const 10, end; content "hi"
		section(11, 0x01, 0x00, 0x41, 0x0A, 0x0B, 0x02, 'h', 'i'),
	)

	module := parseBytes(t, data)
	if module.MemoryPages == nil || *module.MemoryPages != 2 {
		t.Fatalf("expected 2 memory pages, got %+v", module.MemoryPages)
	}

	machine, err := Instantiate(module, nil)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}

	content, err := machine.Memory().ReadBytes(10, 2)
	if err != nil {
		t.Fatalf("failed to read memory: %v", err)
	}
	if string(content) != "hi" {
		t.Fatalf("expected %q, got %q", "hi", content)
	}
}

func TestParseRejectsMultiValueResult(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x02, 0x7F, 0x7F),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for multi-value result")
	}
}

func TestParseRejectsNonFunctionImport(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		// import env.m with a memory descriptor
		section(2, 0x01, 0x03, 'e', 'n', 'v', 0x01, 'm', 0x02, 0x00, 0x01),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for non-function import")
	}
}

func TestParseRejectsTypeIndexOutOfRange(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x05),
		section(10, 0x01, 0x02, 0x00, 0x0B),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestParseRejectsExportIndexOutOfRange(t *testing.T) {
	data := buildModule(
		section(7, 0x01, 0x01, 'f', 0x00, 0x03),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for export index out of range")
	}
}

func TestParseRejectsDuplicateExport(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		section(7, 0x02, 0x01, 'f', 0x00, 0x00, 0x01, 'f', 0x00, 0x00),
		section(10, 0x01, 0x02, 0x00, 0x0B),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for duplicate export name")
	}
}

func TestParseRejectsDeclarationBodyCountMismatch(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for missing function bodies")
	}
}

func TestParseRejectsTrailingBytesInBody(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		// end followed by a stray byte, still inside the declared size
		section(10, 0x01, 0x03, 0x00, 0x0B, 0x6A),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if err == nil {
		t.Fatalf("expected error for trailing bytes after function body")
	}
}

func TestParseRejectsUnknownOpcodeInBody(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		section(10, 0x01, 0x03, 0x00, 0xFF, 0x0B),
	)

	_, err := NewParser(bytes.NewReader(data)).Parse()

	if !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected unknown opcode error, got %v", err)
	}
}

func TestParseBranchTableTargets(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		// block: i32.const 0, br_table [0 1] default 0, end; end
		section(10, 0x01, 0x0C, 0x00,
			0x02, 0x40,
			0x41, 0x00,
			0x0E, 0x02, 0x00, 0x01, 0x00,
			0x0B,
			0x0B,
		),
	)

	module := parseBytes(t, data)

	ins := module.Funcs[0].Body[0].Body[1]
	if ins.Op != OpBrTable {
		t.Fatalf("expected br_table, got %s", ins.Op)
	}
	if len(ins.Table) != 2 || ins.Table[0] != 0 || ins.Table[1] != 1 {
		t.Fatalf("unexpected targets: %v", ins.Table)
	}
	if ins.Depth != 0 {
		t.Fatalf("expected default depth 0, got %d", ins.Depth)
	}
}

func TestParseMemarg(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(3, 0x01, 0x00),
		// i32.const 0, i32.load align=2 offset=16, drop, end
		section(10, 0x01, 0x08, 0x00, 0x41, 0x00, 0x28, 0x02, 0x10, 0x1A, 0x0B),
	)

	module := parseBytes(t, data)

	ins := module.Funcs[0].Body[1]
	if ins.Op != OpI32Load {
		t.Fatalf("expected i32.load, got %s", ins.Op)
	}
	if ins.Offset != 16 {
		t.Fatalf("expected offset 16, got %d", ins.Offset)
	}
}
