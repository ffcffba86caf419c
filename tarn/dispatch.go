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

import "math"

// Instruction semantics are table-driven: every non-control opcode belongs to
// one fixed category (unary, binary, load, store) and its table entry has the
// category's signature. The tables are built once at package init; the
// execute loop only consults them.

type unaryOp func(v Value) (Value, error)

// binaryOp receives the operands in push order: left was pushed before right.
type binaryOp func(left, right Value) (Value, error)

type loadOp func(m *Memory, addr uint64) (Value, error)

type storeOp func(m *Memory, addr uint64, v Value) error

var (
	unaryOps  [256]unaryOp
	binaryOps [256]binaryOp
	loadOps   [256]loadOp
	storeOps  [256]storeOp
)

// Adapters lift plain numeric functions into table entries, adding the kind
// checks. Operator semantics live in numeric.go; everything here is plumbing.

func unI32(f func(int32) int32) unaryOp {
	return func(v Value) (Value, error) {
		a, err := v.I32()
		if err != nil {
			return Value{}, err
		}
		return I32(f(a)), nil
	}
}

func unI64(f func(int64) int64) unaryOp {
	return func(v Value) (Value, error) {
		a, err := v.I64()
		if err != nil {
			return Value{}, err
		}
		return I64(f(a)), nil
	}
}

func unF32(f func(float32) float32) unaryOp {
	return func(v Value) (Value, error) {
		a, err := v.F32()
		if err != nil {
			return Value{}, err
		}
		return F32(f(a)), nil
	}
}

func unF64(f func(float64) float64) unaryOp {
	return func(v Value) (Value, error) {
		a, err := v.F64()
		if err != nil {
			return Value{}, err
		}
		return F64(f(a)), nil
	}
}

func binI32(f func(a, b int32) int32) binaryOp {
	return binI32Err(func(a, b int32) (int32, error) { return f(a, b), nil })
}

func binI32Err(f func(a, b int32) (int32, error)) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.I32()
		if err != nil {
			return Value{}, err
		}
		b, err := right.I32()
		if err != nil {
			return Value{}, err
		}
		r, err := f(a, b)
		if err != nil {
			return Value{}, err
		}
		return I32(r), nil
	}
}

func binI64(f func(a, b int64) int64) binaryOp {
	return binI64Err(func(a, b int64) (int64, error) { return f(a, b), nil })
}

func binI64Err(f func(a, b int64) (int64, error)) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.I64()
		if err != nil {
			return Value{}, err
		}
		b, err := right.I64()
		if err != nil {
			return Value{}, err
		}
		r, err := f(a, b)
		if err != nil {
			return Value{}, err
		}
		return I64(r), nil
	}
}

func binF32(f func(a, b float32) float32) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.F32()
		if err != nil {
			return Value{}, err
		}
		b, err := right.F32()
		if err != nil {
			return Value{}, err
		}
		return F32(f(a, b)), nil
	}
}

func binF64(f func(a, b float64) float64) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.F64()
		if err != nil {
			return Value{}, err
		}
		b, err := right.F64()
		if err != nil {
			return Value{}, err
		}
		return F64(f(a, b)), nil
	}
}

// Comparisons push an i32: 1 for true, 0 for false.

func boolToI32(b bool) Value {
	if b {
		return I32(1)
	}
	return I32(0)
}

func cmpI32(f func(a, b int32) bool) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.I32()
		if err != nil {
			return Value{}, err
		}
		b, err := right.I32()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(f(a, b)), nil
	}
}

func cmpI64(f func(a, b int64) bool) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.I64()
		if err != nil {
			return Value{}, err
		}
		b, err := right.I64()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(f(a, b)), nil
	}
}

func cmpF32(f func(a, b float32) bool) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.F32()
		if err != nil {
			return Value{}, err
		}
		b, err := right.F32()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(f(a, b)), nil
	}
}

func cmpF64(f func(a, b float64) bool) binaryOp {
	return func(left, right Value) (Value, error) {
		a, err := left.F64()
		if err != nil {
			return Value{}, err
		}
		b, err := right.F64()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(f(a, b)), nil
	}
}

func loadAs[R byte | uint16 | uint32 | uint64, T int32 | int64 | float32 | float64](
	read func(*Memory, uint64) (R, error),
	convert func(R) T,
	wrap func(T) Value,
) loadOp {
	return func(m *Memory, addr uint64) (Value, error) {
		raw, err := read(m, addr)
		if err != nil {
			return Value{}, err
		}
		return wrap(convert(raw)), nil
	}
}

func storeAs[R byte | uint16 | uint32 | uint64, T int32 | int64 | float32 | float64](
	unwrap func(Value) (T, error),
	convert func(T) R,
	write func(*Memory, uint64, R) error,
) storeOp {
	return func(m *Memory, addr uint64, v Value) error {
		val, err := unwrap(v)
		if err != nil {
			return err
		}
		return write(m, addr, convert(val))
	}
}

func init() {
	unaryOps[OpI32Eqz] = func(v Value) (Value, error) {
		a, err := v.I32()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(a == 0), nil
	}
	unaryOps[OpI64Eqz] = func(v Value) (Value, error) {
		a, err := v.I64()
		if err != nil {
			return Value{}, err
		}
		return boolToI32(a == 0), nil
	}
	unaryOps[OpI32Clz] = unI32(clz32)
	unaryOps[OpI32Ctz] = unI32(ctz32)
	unaryOps[OpI32Popcnt] = unI32(popcnt32)
	unaryOps[OpI64Clz] = unI64(clz64)
	unaryOps[OpI64Ctz] = unI64(ctz64)
	unaryOps[OpI64Popcnt] = unI64(popcnt64)
	unaryOps[OpF32Abs] = unF32(fabs[float32])
	unaryOps[OpF32Neg] = unF32(fneg[float32])
	unaryOps[OpF32Ceil] = unF32(fceil[float32])
	unaryOps[OpF32Floor] = unF32(ffloor[float32])
	unaryOps[OpF32Trunc] = unF32(ftrunc[float32])
	unaryOps[OpF32Nearest] = unF32(fnearest[float32])
	unaryOps[OpF32Sqrt] = unF32(fsqrt32)
	unaryOps[OpF64Abs] = unF64(fabs[float64])
	unaryOps[OpF64Neg] = unF64(fneg[float64])
	unaryOps[OpF64Ceil] = unF64(fceil[float64])
	unaryOps[OpF64Floor] = unF64(ffloor[float64])
	unaryOps[OpF64Trunc] = unF64(ftrunc[float64])
	unaryOps[OpF64Nearest] = unF64(fnearest[float64])
	unaryOps[OpF64Sqrt] = unF64(math.Sqrt)

	binaryOps[OpI32Add] = binI32(add[int32])
	binaryOps[OpI32Sub] = binI32(sub[int32])
	binaryOps[OpI32Mul] = binI32(mul[int32])
	binaryOps[OpI32DivS] = binI32Err(divS32)
	binaryOps[OpI32DivU] = binI32Err(divU32)
	binaryOps[OpI32RemS] = binI32Err(remS32)
	binaryOps[OpI32RemU] = binI32Err(remU32)
	binaryOps[OpI32And] = binI32(and[int32])
	binaryOps[OpI32Or] = binI32(or[int32])
	binaryOps[OpI32Xor] = binI32(xor[int32])
	binaryOps[OpI32Shl] = binI32(shl32)
	binaryOps[OpI32ShrS] = binI32(shrS32)
	binaryOps[OpI32ShrU] = binI32(shrU32)
	binaryOps[OpI32Rotl] = binI32(rotl32)
	binaryOps[OpI32Rotr] = binI32(rotr32)
	binaryOps[OpI64Add] = binI64(add[int64])
	binaryOps[OpI64Sub] = binI64(sub[int64])
	binaryOps[OpI64Mul] = binI64(mul[int64])
	binaryOps[OpI64DivS] = binI64Err(divS64)
	binaryOps[OpI64DivU] = binI64Err(divU64)
	binaryOps[OpI64RemS] = binI64Err(remS64)
	binaryOps[OpI64RemU] = binI64Err(remU64)
	binaryOps[OpI64And] = binI64(and[int64])
	binaryOps[OpI64Or] = binI64(or[int64])
	binaryOps[OpI64Xor] = binI64(xor[int64])
	binaryOps[OpI64Shl] = binI64(shl64)
	binaryOps[OpI64ShrS] = binI64(shrS64)
	binaryOps[OpI64ShrU] = binI64(shrU64)
	binaryOps[OpI64Rotl] = binI64(rotl64)
	binaryOps[OpI64Rotr] = binI64(rotr64)
	binaryOps[OpF32Add] = binF32(add[float32])
	binaryOps[OpF32Sub] = binF32(sub[float32])
	binaryOps[OpF32Mul] = binF32(mul[float32])
	binaryOps[OpF32Div] = binF32(fdiv[float32])
	binaryOps[OpF32Min] = binF32(fmin[float32])
	binaryOps[OpF32Max] = binF32(fmax[float32])
	binaryOps[OpF32Copysign] = binF32(fcopysign[float32])
	binaryOps[OpF64Add] = binF64(add[float64])
	binaryOps[OpF64Sub] = binF64(sub[float64])
	binaryOps[OpF64Mul] = binF64(mul[float64])
	binaryOps[OpF64Div] = binF64(fdiv[float64])
	binaryOps[OpF64Min] = binF64(fmin[float64])
	binaryOps[OpF64Max] = binF64(fmax[float64])
	binaryOps[OpF64Copysign] = binF64(fcopysign[float64])

	binaryOps[OpI32Eq] = cmpI32(equal[int32])
	binaryOps[OpI32Ne] = cmpI32(notEqual[int32])
	binaryOps[OpI32LtS] = cmpI32(lessThan[int32])
	binaryOps[OpI32LtU] = cmpI32(lessThanU32)
	binaryOps[OpI32GtS] = cmpI32(greaterThan[int32])
	binaryOps[OpI32GtU] = cmpI32(greaterThanU32)
	binaryOps[OpI32LeS] = cmpI32(lessOrEqual[int32])
	binaryOps[OpI32LeU] = cmpI32(lessOrEqualU32)
	binaryOps[OpI32GeS] = cmpI32(greaterOrEqual[int32])
	binaryOps[OpI32GeU] = cmpI32(greaterOrEqualU32)
	binaryOps[OpI64Eq] = cmpI64(equal[int64])
	binaryOps[OpI64Ne] = cmpI64(notEqual[int64])
	binaryOps[OpI64LtS] = cmpI64(lessThan[int64])
	binaryOps[OpI64LtU] = cmpI64(lessThanU64)
	binaryOps[OpI64GtS] = cmpI64(greaterThan[int64])
	binaryOps[OpI64GtU] = cmpI64(greaterThanU64)
	binaryOps[OpI64LeS] = cmpI64(lessOrEqual[int64])
	binaryOps[OpI64LeU] = cmpI64(lessOrEqualU64)
	binaryOps[OpI64GeS] = cmpI64(greaterOrEqual[int64])
	binaryOps[OpI64GeU] = cmpI64(greaterOrEqualU64)
	binaryOps[OpF32Eq] = cmpF32(equal[float32])
	binaryOps[OpF32Ne] = cmpF32(notEqual[float32])
	binaryOps[OpF32Lt] = cmpF32(lessThan[float32])
	binaryOps[OpF32Gt] = cmpF32(greaterThan[float32])
	binaryOps[OpF32Le] = cmpF32(lessOrEqual[float32])
	binaryOps[OpF32Ge] = cmpF32(greaterOrEqual[float32])
	binaryOps[OpF64Eq] = cmpF64(equal[float64])
	binaryOps[OpF64Ne] = cmpF64(notEqual[float64])
	binaryOps[OpF64Lt] = cmpF64(lessThan[float64])
	binaryOps[OpF64Gt] = cmpF64(greaterThan[float64])
	binaryOps[OpF64Le] = cmpF64(lessOrEqual[float64])
	binaryOps[OpF64Ge] = cmpF64(greaterOrEqual[float64])

	loadOps[OpI32Load] = loadAs((*Memory).loadUint32, uint32ToInt32, I32)
	loadOps[OpI64Load] = loadAs((*Memory).loadUint64, uint64ToInt64, I64)
	loadOps[OpF32Load] = loadAs((*Memory).loadUint32, math.Float32frombits, F32)
	loadOps[OpF64Load] = loadAs((*Memory).loadUint64, math.Float64frombits, F64)
	loadOps[OpI32Load8S] = loadAs((*Memory).loadByte, signExtend8To32, I32)
	loadOps[OpI32Load8U] = loadAs((*Memory).loadByte, zeroExtend8To32, I32)
	loadOps[OpI32Load16S] = loadAs((*Memory).loadUint16, signExtend16To32, I32)
	loadOps[OpI32Load16U] = loadAs((*Memory).loadUint16, zeroExtend16To32, I32)
	loadOps[OpI64Load8S] = loadAs((*Memory).loadByte, signExtend8To64, I64)
	loadOps[OpI64Load8U] = loadAs((*Memory).loadByte, zeroExtend8To64, I64)
	loadOps[OpI64Load16S] = loadAs((*Memory).loadUint16, signExtend16To64, I64)
	loadOps[OpI64Load16U] = loadAs((*Memory).loadUint16, zeroExtend16To64, I64)
	loadOps[OpI64Load32S] = loadAs((*Memory).loadUint32, signExtend32To64, I64)
	loadOps[OpI64Load32U] = loadAs((*Memory).loadUint32, zeroExtend32To64, I64)

	storeOps[OpI32Store] = storeAs(Value.I32, int32ToUint32, (*Memory).storeUint32)
	storeOps[OpI64Store] = storeAs(Value.I64, int64ToUint64, (*Memory).storeUint64)
	storeOps[OpF32Store] = storeAs(Value.F32, math.Float32bits, (*Memory).storeUint32)
	storeOps[OpF64Store] = storeAs(Value.F64, math.Float64bits, (*Memory).storeUint64)
	storeOps[OpI32Store8] = storeAs(Value.I32, int32ToByte, (*Memory).storeByte)
	storeOps[OpI32Store16] = storeAs(Value.I32, int32ToUint16, (*Memory).storeUint16)
	storeOps[OpI64Store8] = storeAs(Value.I64, int64ToByte, (*Memory).storeByte)
	storeOps[OpI64Store16] = storeAs(Value.I64, int64ToUint16, (*Memory).storeUint16)
	storeOps[OpI64Store32] = storeAs(Value.I64, int64ToUint32, (*Memory).storeUint32)
}

func uint32ToInt32(v uint32) int32 { return int32(v) }
func uint64ToInt64(v uint64) int64 { return int64(v) }
func int32ToUint32(v int32) uint32 { return uint32(v) }
func int64ToUint64(v int64) uint64 { return uint64(v) }
func int32ToByte(v int32) byte     { return byte(v) }
func int32ToUint16(v int32) uint16 { return uint16(v) }
func int64ToByte(v int64) byte     { return byte(v) }
func int64ToUint16(v int64) uint16 { return uint16(v) }
func int64ToUint32(v int64) uint32 { return uint32(v) }
