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
	"io"
	"math"
)

var (
	errIntRepresentationTooLong = errors.New("integer representation too long")
	errIntegerTooLarge          = errors.New("integer too large")
)

// codeDecoder turns a byte stream into nested instruction sequences. Bodies
// are decoded once, at load time; block and loop recurse to their matching
// end so execution never re-scans bytes.
type codeDecoder struct {
	r io.ByteReader
}

func newCodeDecoder(r io.ByteReader) *codeDecoder {
	return &codeDecoder{r: r}
}

// decodeSequence decodes instructions until the matching end opcode, which
// it consumes without emitting.
func (d *codeDecoder) decodeSequence() ([]Instruction, error) {
	var instructions []Instruction
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		op := Opcode(b)
		if op == OpEnd {
			return instructions, nil
		}
		ins, err := d.decodeOne(op)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ins)
	}
}

func (d *codeDecoder) decodeOne(op Opcode) (Instruction, error) {
	ins := Instruction{Op: op}
	switch op {
	case OpBlock, OpLoop:
		// The block type byte is parsed for wire compatibility but carries no
		// meaning here: multi-value and typed blocks are out of scope.
		if err := d.readBlockType(); err != nil {
			return Instruction{}, err
		}
		body, err := d.decodeSequence()
		if err != nil {
			return Instruction{}, err
		}
		ins.Body = body

	case OpBr, OpBrIf:
		depth, err := d.index()
		if err != nil {
			return Instruction{}, err
		}
		ins.Depth = depth

	case OpBrTable:
		count, err := d.uleb128()
		if err != nil {
			return Instruction{}, err
		}
		if count > math.MaxInt32 {
			return Instruction{}, errIntegerTooLarge
		}
		targets := make([]uint32, count)
		for i := range targets {
			target, err := d.index()
			if err != nil {
				return Instruction{}, err
			}
			targets[i] = target
		}
		fallback, err := d.index()
		if err != nil {
			return Instruction{}, err
		}
		ins.Table = targets
		ins.Depth = fallback

	case OpCall, OpLocalGet, OpLocalSet, OpLocalTee:
		index, err := d.index()
		if err != nil {
			return Instruction{}, err
		}
		ins.Index = index

	case OpMemorySize, OpMemoryGrow:
		// A single reserved zero byte: the memory index.
		if _, err := d.r.ReadByte(); err != nil {
			return Instruction{}, io.ErrUnexpectedEOF
		}

	case OpI32Const:
		v, err := d.sleb128(32)
		if err != nil {
			return Instruction{}, err
		}
		ins.Imm = I32(int32(v))

	case OpI64Const:
		v, err := d.sleb128(64)
		if err != nil {
			return Instruction{}, err
		}
		ins.Imm = I64(v)

	case OpF32Const:
		bits, err := d.fixedUint(4)
		if err != nil {
			return Instruction{}, err
		}
		ins.Imm = F32(math.Float32frombits(uint32(bits)))

	case OpF64Const:
		bits, err := d.fixedUint(8)
		if err != nil {
			return Instruction{}, err
		}
		ins.Imm = F64(math.Float64frombits(bits))

	default:
		if loadOps[op] != nil || storeOps[op] != nil {
			// memarg: alignment hint (ignored) then static offset.
			if _, err := d.uleb128(); err != nil {
				return Instruction{}, err
			}
			offset, err := d.index()
			if err != nil {
				return Instruction{}, err
			}
			ins.Offset = offset
			break
		}
		if op != OpNop && op != OpReturn && op != OpDrop && op != OpSelect &&
			unaryOps[op] == nil && binaryOps[op] == nil {
			return Instruction{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, byte(op))
		}
	}
	return ins, nil
}

func (d *codeDecoder) readBlockType() error {
	b, err := d.r.ReadByte()
	if err != nil {
		return io.ErrUnexpectedEOF
	}
	switch b {
	case 0x40, 0x7F, 0x7E, 0x7D, 0x7C:
		return nil
	default:
		return fmt.Errorf("invalid block type: 0x%02x", b)
	}
}

func (d *codeDecoder) index() (uint32, error) {
	v, err := d.uleb128()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errIntegerTooLarge
	}
	return uint32(v), nil
}

func (d *codeDecoder) uleb128() (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		if shift >= 64 {
			return 0, errIntRepresentationTooLong
		}
		value |= uint64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			return value, nil
		}
	}
}

func (d *codeDecoder) sleb128(width uint) (int64, error) {
	var value int64
	var shift uint
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		if shift >= width+7 {
			return 0, errIntRepresentationTooLong
		}
		value |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				value |= -1 << shift
			}
			return value, nil
		}
	}
}

func (d *codeDecoder) fixedUint(n int) (uint64, error) {
	var value uint64
	for i := 0; i < n; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		value |= uint64(b) << (8 * i)
	}
	return value, nil
}
