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
	"encoding/binary"
	"errors"
)

// PageSize is the linear memory page size in bytes (64KiB).
const PageSize = 65536

var ErrMemoryOutOfBounds = errors.New("out of bounds memory access")

// Memory is a contiguous, growable byte buffer addressed by integer offset.
// All multi-byte accesses are little-endian.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Grow extends the memory by the given number of pages and returns the new
// size in pages. The added bytes read as zero.
func (m *Memory) Grow(pages uint32) uint32 {
	m.data = append(m.data, make([]byte, uint64(pages)*PageSize)...)
	return m.Size()
}

// Size returns the current size of the memory in pages.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data) / PageSize)
}

// Len returns the current size of the memory in bytes.
func (m *Memory) Len() int {
	return len(m.data)
}

// byteRange bounds-checks [addr, addr+n) and returns the backing slice.
// Arithmetic is done in uint64 so base+offset additions cannot wrap.
func (m *Memory) byteRange(addr, n uint64) ([]byte, error) {
	if addr+n > uint64(len(m.data)) {
		return nil, ErrMemoryOutOfBounds
	}
	return m.data[addr : addr+n], nil
}

// ReadBytes copies length bytes starting at addr. It is intended for
// host-side access bypassing the machine's opcodes.
func (m *Memory) ReadBytes(addr, length uint32) ([]byte, error) {
	src, err := m.byteRange(uint64(addr), uint64(length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, src)
	return out, nil
}

// WriteBytes copies the given bytes into memory starting at addr.
func (m *Memory) WriteBytes(addr uint32, values []byte) error {
	dst, err := m.byteRange(uint64(addr), uint64(len(values)))
	if err != nil {
		return err
	}
	copy(dst, values)
	return nil
}

func (m *Memory) loadByte(addr uint64) (byte, error) {
	b, err := m.byteRange(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Memory) loadUint16(addr uint64) (uint16, error) {
	b, err := m.byteRange(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *Memory) loadUint32(addr uint64) (uint32, error) {
	b, err := m.byteRange(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Memory) loadUint64(addr uint64) (uint64, error) {
	b, err := m.byteRange(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Memory) storeByte(addr uint64, v byte) error {
	b, err := m.byteRange(addr, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (m *Memory) storeUint16(addr uint64, v uint16) error {
	b, err := m.byteRange(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (m *Memory) storeUint32(addr uint64, v uint32) error {
	b, err := m.byteRange(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (m *Memory) storeUint64(addr uint64, v uint64) error {
	b, err := m.byteRange(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}
