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

// Module is the decoded form of a binary module. Built once by Parse and
// read-only thereafter; linking against host callbacks happens in
// Instantiate.
type Module struct {
	// Types holds the declared function signatures, referenced by index from
	// imports and defined functions.
	Types []Signature

	// Imports lists the function imports in declaration order. They occupy
	// the low indices of the function table, before the defined functions.
	Imports []Import

	// Funcs lists the defined functions with their resolved signature index
	// and decoded bodies, in table order after the imports.
	Funcs []Code

	// Exports maps export names to function table indices.
	Exports []Export

	// MemoryPages is the declared initial memory size in pages, or nil if
	// the module declares no memory.
	MemoryPages *uint32

	// DataSegments are applied to memory at instantiation time.
	DataSegments []DataSegment
}

// Import is a function import descriptor. Only functions can be imported.
type Import struct {
	ModuleName string
	Name       string
	TypeIndex  uint32
}

// Code is a defined function before linking: a type reference, the declared
// extra locals, and the decoded body.
type Code struct {
	TypeIndex uint32
	Locals    []ValueKind
	Body      []Instruction
}

// Export binds a name to a function table index.
type Export struct {
	Name  string
	Index uint32
}

// DataSegment is a static memory initializer: an offset-computing instruction
// sequence plus the raw bytes to copy there.
type DataSegment struct {
	OffsetExpression []Instruction
	Content          []byte
}
