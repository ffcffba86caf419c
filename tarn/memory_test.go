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
	"math"
	"testing"
)

func TestMemoryStartsZeroFilled(t *testing.T) {
	m := NewMemory(PageSize)

	data, err := m.ReadBytes(0, 64)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !bytes.Equal(data, make([]byte, 64)) {
		t.Fatalf("expected zero-filled memory")
	}
}

func TestMemoryLittleEndianLayout(t *testing.T) {
	m := NewMemory(PageSize)

	if err := m.storeUint32(0, 0x01020304); err != nil {
		t.Fatalf("failed to store: %v", err)
	}

	data, err := m.ReadBytes(0, 4)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !bytes.Equal(data, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Fatalf("expected little-endian layout, got %v", data)
	}
}

func TestMemoryFloatRoundTripIsBitIdentical(t *testing.T) {
	m := NewMemory(PageSize)
	values := []float64{0.1, -0.0, math.Inf(1), math.NaN(), math.MaxFloat64}

	for _, v := range values {
		if err := m.storeUint64(16, math.Float64bits(v)); err != nil {
			t.Fatalf("failed to store %v: %v", v, err)
		}
		got, err := m.loadUint64(16)
		if err != nil {
			t.Fatalf("failed to load %v: %v", v, err)
		}
		if got != math.Float64bits(v) {
			t.Fatalf("round trip of %v changed bits: %x != %x", v, got, math.Float64bits(v))
		}
	}
}

func TestMemoryGrowReturnsNewSize(t *testing.T) {
	m := NewMemory(PageSize)

	if got := m.Grow(2); got != 3 {
		t.Fatalf("expected new size 3, got %d", got)
	}
	if m.Len() != 3*PageSize {
		t.Fatalf("expected %d bytes, got %d", 3*PageSize, m.Len())
	}
}

func TestMemoryGrowZeroFillsNewPages(t *testing.T) {
	m := NewMemory(PageSize)
	m.Grow(1)

	data, err := m.ReadBytes(PageSize, 32)
	if err != nil {
		t.Fatalf("failed to read grown region: %v", err)
	}
	if !bytes.Equal(data, make([]byte, 32)) {
		t.Fatalf("expected grown pages to read as zero")
	}
}

func TestMemoryOutOfBounds(t *testing.T) {
	m := NewMemory(PageSize)

	if _, err := m.loadUint32(PageSize - 2); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("expected out of bounds load, got %v", err)
	}
	if err := m.storeByte(PageSize, 1); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("expected out of bounds store, got %v", err)
	}
	if err := m.WriteBytes(PageSize-1, []byte{1, 2}); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("expected out of bounds write, got %v", err)
	}
}

func TestMemoryBoundaryAccess(t *testing.T) {
	m := NewMemory(PageSize)

	if err := m.storeUint32(PageSize-4, 0xDEADBEEF); err != nil {
		t.Fatalf("store at last valid address failed: %v", err)
	}
	got, err := m.loadUint32(PageSize - 4)
	if err != nil {
		t.Fatalf("load at last valid address failed: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("expected 0xDEADBEEF, got 0x%X", got)
	}
}
