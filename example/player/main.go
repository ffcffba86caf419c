package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/tarnvm/tarn/hostfn"
	"github.com/tarnvm/tarn/tarn"
)

// A marker starts at column 2 moving right, bounces off column 70, and the
// animation ends when it returns to the left edge. Position and velocity
// live in linear memory as f64 values; the drawing is a host function.
const (
	xAddr = 16
	vAddr = 24
)

func main() {
	console := hostfn.NewConsole(os.Stdout)

	// f(x, v, dt) = x + v*dt
	updatePosition := &tarn.WasmFunction{
		Sig: tarn.Signature{NumParams: 3, HasResult: true},
		Body: []tarn.Instruction{
			{Op: tarn.OpLocalGet, Index: 0},
			{Op: tarn.OpLocalGet, Index: 1},
			{Op: tarn.OpLocalGet, Index: 2},
			{Op: tarn.OpF64Mul},
			{Op: tarn.OpF64Add},
		},
	}

	animate := &tarn.WasmFunction{
		Sig: tarn.Signature{},
		Body: []tarn.Instruction{
			{Op: tarn.OpBlock, Body: []tarn.Instruction{
				{Op: tarn.OpLoop, Body: []tarn.Instruction{
					// display(x)
					{Op: tarn.OpI32Const, Imm: tarn.I32(xAddr)},
					{Op: tarn.OpF64Load},
					{Op: tarn.OpCall, Index: 0},
					// stop once x falls back to the left edge
					{Op: tarn.OpI32Const, Imm: tarn.I32(xAddr)},
					{Op: tarn.OpF64Load},
					{Op: tarn.OpF64Const, Imm: tarn.F64(0)},
					{Op: tarn.OpF64Le},
					{Op: tarn.OpBrIf, Depth: 1},
					// x = updatePosition(x, v, 0.1)
					{Op: tarn.OpI32Const, Imm: tarn.I32(xAddr)},
					{Op: tarn.OpI32Const, Imm: tarn.I32(xAddr)},
					{Op: tarn.OpF64Load},
					{Op: tarn.OpI32Const, Imm: tarn.I32(vAddr)},
					{Op: tarn.OpF64Load},
					{Op: tarn.OpF64Const, Imm: tarn.F64(0.1)},
					{Op: tarn.OpCall, Index: 1},
					{Op: tarn.OpF64Store},
					// bounce: v = -v once x reaches column 70
					{Op: tarn.OpBlock, Body: []tarn.Instruction{
						{Op: tarn.OpI32Const, Imm: tarn.I32(xAddr)},
						{Op: tarn.OpF64Load},
						{Op: tarn.OpF64Const, Imm: tarn.F64(70)},
						{Op: tarn.OpF64Ge},
						{Op: tarn.OpBlock, Body: []tarn.Instruction{
							{Op: tarn.OpBrIf, Depth: 0},
							{Op: tarn.OpBr, Depth: 1},
						}},
						{Op: tarn.OpI32Const, Imm: tarn.I32(vAddr)},
						{Op: tarn.OpF64Const, Imm: tarn.F64(0)},
						{Op: tarn.OpI32Const, Imm: tarn.I32(vAddr)},
						{Op: tarn.OpF64Load},
						{Op: tarn.OpF64Sub},
						{Op: tarn.OpF64Store},
					}},
					{Op: tarn.OpBr, Depth: 0},
				}},
			}},
		},
	}

	machine := tarn.NewMachine(
		[]tarn.Function{console.Display(), updatePosition, animate},
		tarn.PageSize,
	)
	console.Bind(machine)

	storeF64(machine.Memory(), xAddr, 2.0)
	storeF64(machine.Memory(), vAddr, 3.0)

	if _, _, err := machine.Call(animate); err != nil {
		fmt.Println("Error running animation:", err)
		return
	}
	fmt.Println("Final position:", loadF64(machine.Memory(), xAddr))
}

func storeF64(mem *tarn.Memory, addr uint32, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	if err := mem.WriteBytes(addr, buf[:]); err != nil {
		panic(err)
	}
}

func loadF64(mem *tarn.Memory, addr uint32) float64 {
	data, err := mem.ReadBytes(addr, 8)
	if err != nil {
		panic(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}
