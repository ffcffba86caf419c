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
	"math"
	"strconv"
)

var ErrTypeMismatch = errors.New("type mismatch")

// ValueKind identifies the four numeric kinds a stack slot or a memory cell
// can hold.
type ValueKind byte

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
)

func (k ValueKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Value is a tagged 64-bit slot. Integers are two's-complement, floats are
// IEEE-754 binary32/binary64 stored as their raw bit patterns.
type Value struct {
	kind ValueKind
	bits uint64
}

func I32(v int32) Value {
	return Value{kind: KindI32, bits: uint64(uint32(v))}
}

func I64(v int64) Value {
	return Value{kind: KindI64, bits: uint64(v)}
}

func F32(v float32) Value {
	return Value{kind: KindF32, bits: uint64(math.Float32bits(v))}
}

func F64(v float64) Value {
	return Value{kind: KindF64, bits: math.Float64bits(v)}
}

func (v Value) Kind() ValueKind { return v.kind }

// I32 returns the value as an int32, or ErrTypeMismatch if the slot holds a
// different kind. The other accessors behave the same way for their kinds.
func (v Value) I32() (int32, error) {
	if v.kind != KindI32 {
		return 0, fmt.Errorf("%w: want i32, got %s", ErrTypeMismatch, v.kind)
	}
	return int32(v.bits), nil
}

func (v Value) I64() (int64, error) {
	if v.kind != KindI64 {
		return 0, fmt.Errorf("%w: want i64, got %s", ErrTypeMismatch, v.kind)
	}
	return int64(v.bits), nil
}

func (v Value) F32() (float32, error) {
	if v.kind != KindF32 {
		return 0, fmt.Errorf("%w: want f32, got %s", ErrTypeMismatch, v.kind)
	}
	return math.Float32frombits(uint32(v.bits)), nil
}

func (v Value) F64() (float64, error) {
	if v.kind != KindF64 {
		return 0, fmt.Errorf("%w: want f64, got %s", ErrTypeMismatch, v.kind)
	}
	return math.Float64frombits(v.bits), nil
}

// Interface returns the value as the matching Go type (int32, int64, float32,
// or float64).
func (v Value) Interface() any {
	switch v.kind {
	case KindI32:
		return int32(v.bits)
	case KindI64:
		return int64(v.bits)
	case KindF32:
		return math.Float32frombits(uint32(v.bits))
	case KindF64:
		return math.Float64frombits(v.bits)
	default:
		panic("unreachable")
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindI32:
		return "i32:" + strconv.FormatInt(int64(int32(v.bits)), 10)
	case KindI64:
		return "i64:" + strconv.FormatInt(int64(v.bits), 10)
	case KindF32:
		f := float64(math.Float32frombits(uint32(v.bits)))
		return "f32:" + strconv.FormatFloat(f, 'g', -1, 32)
	case KindF64:
		f := math.Float64frombits(v.bits)
		return "f64:" + strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return "unknown"
	}
}

// zeroValue returns the zero of the given kind, used to initialize
// non-parameter locals on call entry.
func zeroValue(k ValueKind) Value {
	return Value{kind: k}
}
