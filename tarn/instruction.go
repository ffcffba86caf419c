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
	"strings"
)

// Instruction is one decoded operation. Which fields are meaningful depends
// on the opcode:
//
//   - const opcodes use Imm
//   - local.get/set/tee and call use Index
//   - br and br_if use Depth; br_table uses Table plus Depth as the default
//   - loads and stores use Offset (the static immediate added to the popped
//     base address)
//   - block and loop use Body
type Instruction struct {
	Op     Opcode
	Imm    Value
	Index  uint32
	Depth  uint32
	Offset uint32
	Body   []Instruction
	Table  []uint32
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpBlock, OpLoop:
		return fmt.Sprintf("%s [%d instructions]", ins.Op, len(ins.Body))
	case OpBr, OpBrIf:
		return fmt.Sprintf("%s %d", ins.Op, ins.Depth)
	case OpBrTable:
		targets := make([]string, len(ins.Table))
		for i, t := range ins.Table {
			targets[i] = fmt.Sprintf("%d", t)
		}
		return fmt.Sprintf(
			"%s [%s] default %d", ins.Op, strings.Join(targets, " "), ins.Depth,
		)
	case OpCall, OpLocalGet, OpLocalSet, OpLocalTee:
		return fmt.Sprintf("%s %d", ins.Op, ins.Index)
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
		return fmt.Sprintf("%s %v", ins.Op, ins.Imm.Interface())
	default:
		if loadOps[ins.Op] != nil || storeOps[ins.Op] != nil {
			return fmt.Sprintf("%s offset=%d", ins.Op, ins.Offset)
		}
		return ins.Op.String()
	}
}
