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

package hostfn

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/tarnvm/tarn/tarn"
)

// Random returns a host function producing a random i32 from the operating
// system entropy source.
func Random() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{HasResult: true},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			var buf [4]byte
			if _, err := rand.Read(buf[:]); err != nil {
				return tarn.Value{}, err
			}
			return tarn.I32(int32(binary.LittleEndian.Uint32(buf[:]))), nil
		},
	}
}
