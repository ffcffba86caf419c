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
	"math"
	"math/bits"
)

var (
	ErrDivideByZero    = errors.New("integer divide by zero")
	ErrIntegerOverflow = errors.New("integer overflow")
)

type machineNumber interface {
	int32 | int64 | float32 | float64
}

type machineFloat interface {
	float32 | float64
}

func add[T machineNumber](a, b T) T { return a + b }
func sub[T machineNumber](a, b T) T { return a - b }
func mul[T machineNumber](a, b T) T { return a * b }

func fdiv[T machineFloat](a, b T) T { return a / b }

func divS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == math.MinInt32 && b == -1 {
		return 0, ErrIntegerOverflow
	}
	return a / b, nil
}

func divS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, ErrIntegerOverflow
	}
	return a / b, nil
}

func divU32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return int32(uint32(a) / uint32(b)), nil
}

func divU64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return int64(uint64(a) / uint64(b)), nil
}

func remS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == math.MinInt32 && b == -1 {
		// Unlike division, INT_MIN % -1 is defined: the result is 0.
		return 0, nil
	}
	return a % b, nil
}

func remS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func remU32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return int32(uint32(a) % uint32(b)), nil
}

func remU64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return int64(uint64(a) % uint64(b)), nil
}

func and[T int32 | int64](a, b T) T { return a & b }
func or[T int32 | int64](a, b T) T  { return a | b }
func xor[T int32 | int64](a, b T) T { return a ^ b }

// Shift counts are taken modulo the operand width.
func shl32(a, b int32) int32  { return a << (uint32(b) % 32) }
func shrS32(a, b int32) int32 { return a >> (uint32(b) % 32) }
func shrU32(a, b int32) int32 { return int32(uint32(a) >> (uint32(b) % 32)) }
func shl64(a, b int64) int64  { return a << (uint64(b) % 64) }
func shrS64(a, b int64) int64 { return a >> (uint64(b) % 64) }
func shrU64(a, b int64) int64 { return int64(uint64(a) >> (uint64(b) % 64)) }

func rotl32(a, b int32) int32 {
	return int32(bits.RotateLeft32(uint32(a), int(uint32(b)%32)))
}

func rotr32(a, b int32) int32 {
	return int32(bits.RotateLeft32(uint32(a), -int(uint32(b)%32)))
}

func rotl64(a, b int64) int64 {
	return int64(bits.RotateLeft64(uint64(a), int(uint64(b)%64)))
}

func rotr64(a, b int64) int64 {
	return int64(bits.RotateLeft64(uint64(a), -int(uint64(b)%64)))
}

func equal[T machineNumber](a, b T) bool          { return a == b }
func notEqual[T machineNumber](a, b T) bool       { return a != b }
func lessThan[T machineNumber](a, b T) bool       { return a < b }
func lessThanU32(a, b int32) bool                 { return uint32(a) < uint32(b) }
func lessThanU64(a, b int64) bool                 { return uint64(a) < uint64(b) }
func lessOrEqual[T machineNumber](a, b T) bool    { return a <= b }
func lessOrEqualU32(a, b int32) bool              { return uint32(a) <= uint32(b) }
func lessOrEqualU64(a, b int64) bool              { return uint64(a) <= uint64(b) }
func greaterThan[T machineNumber](a, b T) bool    { return a > b }
func greaterThanU32(a, b int32) bool              { return uint32(a) > uint32(b) }
func greaterThanU64(a, b int64) bool              { return uint64(a) > uint64(b) }
func greaterOrEqual[T machineNumber](a, b T) bool { return a >= b }
func greaterOrEqualU32(a, b int32) bool           { return uint32(a) >= uint32(b) }
func greaterOrEqualU64(a, b int64) bool           { return uint64(a) >= uint64(b) }

func clz32(a int32) int32    { return int32(bits.LeadingZeros32(uint32(a))) }
func ctz32(a int32) int32    { return int32(bits.TrailingZeros32(uint32(a))) }
func popcnt32(a int32) int32 { return int32(bits.OnesCount32(uint32(a))) }
func clz64(a int64) int64    { return int64(bits.LeadingZeros64(uint64(a))) }
func ctz64(a int64) int64    { return int64(bits.TrailingZeros64(uint64(a))) }
func popcnt64(a int64) int64 { return int64(bits.OnesCount64(uint64(a))) }

func fabs[T machineFloat](a T) T   { return T(math.Abs(float64(a))) }
func fneg[T machineFloat](a T) T   { return -a }
func fsqrt32(a float32) float32    { return float32(math.Sqrt(float64(a))) }
func fceil[T machineFloat](a T) T  { return T(math.Ceil(float64(a))) }
func ffloor[T machineFloat](a T) T { return T(math.Floor(float64(a))) }
func ftrunc[T machineFloat](a T) T { return T(math.Trunc(float64(a))) }

// fnearest rounds to the nearest integer, ties to even (IEEE roundTiesToEven),
// which is not what math.Round does.
func fnearest[T machineFloat](a T) T {
	return T(math.RoundToEven(float64(a)))
}

func fmin[T machineFloat](a, b T) T {
	return T(math.Min(float64(a), float64(b)))
}

func fmax[T machineFloat](a, b T) T {
	return T(math.Max(float64(a), float64(b)))
}

func fcopysign[T machineFloat](a, b T) T {
	return T(math.Copysign(float64(a), float64(b)))
}

func signExtend8To32(v byte) int32    { return int32(int8(v)) }
func zeroExtend8To32(v byte) int32    { return int32(v) }
func signExtend16To32(v uint16) int32 { return int32(int16(v)) }
func zeroExtend16To32(v uint16) int32 { return int32(v) }
func signExtend8To64(v byte) int64    { return int64(int8(v)) }
func zeroExtend8To64(v byte) int64    { return int64(v) }
func signExtend16To64(v uint16) int64 { return int64(int16(v)) }
func zeroExtend16To64(v uint16) int64 { return int64(v) }
func signExtend32To64(v uint32) int64 { return int64(int32(v)) }
func zeroExtend32To64(v uint32) int64 { return int64(v) }
