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

// Package hostfn provides ready-made host functions an embedder can link
// against a module's imports: console output, a monotonic clock, and a
// random source.
package hostfn

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarnvm/tarn/tarn"
)

const playerMarker = "<0:>"

// defaultWidth is the drawing width used when the output is not a terminal
// or its size cannot be determined.
const defaultWidth = 80

// Console bundles terminal-oriented host functions around one output
// writer. Functions that read linear memory require Bind to be called with
// the instantiated machine before the module runs.
type Console struct {
	out        io.Writer
	mem        *tarn.Memory
	width      int
	frameDelay time.Duration
}

// NewConsole creates a console writing to out. The drawing width defaults to
// the terminal width when out is a terminal, 80 columns otherwise.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, width: terminalWidth(out), frameDelay: 20 * time.Millisecond}
}

// SetFrameDelay overrides the pause after each Display call. Zero disables
// the pause, which tests rely on.
func (c *Console) SetFrameDelay(d time.Duration) { c.frameDelay = d }

// SetWidth overrides the detected drawing width.
func (c *Console) SetWidth(width int) { c.width = width }

// Bind attaches the console to an instantiated machine so its memory-reading
// functions can resolve addresses.
func (c *Console) Bind(m *tarn.Machine) { c.mem = m.Memory() }

// Display returns a host function taking one f64 position and drawing a
// marker at that column, one frame per line.
func (c *Console) Display() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{NumParams: 1},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			x, err := args[0].F64()
			if err != nil {
				return tarn.Value{}, err
			}
			column := int(x)
			if column < 0 {
				column = 0
			}
			if limit := c.width - len(playerMarker); column > limit {
				column = limit
			}
			fmt.Fprintf(c.out, "%s%s\n", strings.Repeat(" ", column), playerMarker)
			if c.frameDelay > 0 {
				time.Sleep(c.frameDelay)
			}
			return tarn.Value{}, nil
		},
	}
}

// PutChar returns a host function taking one i32 and writing its low byte.
func (c *Console) PutChar() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{NumParams: 1},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			ch, err := args[0].I32()
			if err != nil {
				return tarn.Value{}, err
			}
			_, err = c.out.Write([]byte{byte(ch)})
			return tarn.Value{}, err
		},
	}
}

// Print returns a host function taking (addr, length) and writing that byte
// range of linear memory. The console must be bound first.
func (c *Console) Print() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{NumParams: 2},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			if c.mem == nil {
				return tarn.Value{}, fmt.Errorf("console is not bound to a machine")
			}
			addr, err := args[0].I32()
			if err != nil {
				return tarn.Value{}, err
			}
			length, err := args[1].I32()
			if err != nil {
				return tarn.Value{}, err
			}
			data, err := c.mem.ReadBytes(uint32(addr), uint32(length))
			if err != nil {
				return tarn.Value{}, err
			}
			_, err = c.out.Write(data)
			return tarn.Value{}, err
		},
	}
}

// Width returns a host function reporting the drawing width in columns.
func (c *Console) Width() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{HasResult: true},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			return tarn.I32(int32(c.width)), nil
		},
	}
}
