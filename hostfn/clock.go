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
	"time"

	"github.com/tarnvm/tarn/tarn"
)

// Clock provides time host functions measured from its creation, so the
// values a module observes never go backwards.
type Clock struct {
	startNs int64
}

func NewClock() *Clock {
	return &Clock{startNs: time.Now().UnixNano()}
}

// MonotonicNanos returns a host function reporting elapsed nanoseconds since
// the clock was created as an i64.
func (c *Clock) MonotonicNanos() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{HasResult: true},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			return tarn.I64(time.Now().UnixNano() - c.startNs), nil
		},
	}
}

// Sleep returns a host function taking milliseconds as an i32 and pausing
// the calling machine for that long.
func (c *Clock) Sleep() *tarn.HostFunc {
	return &tarn.HostFunc{
		Sig: tarn.Signature{NumParams: 1},
		Fn: func(args []tarn.Value) (tarn.Value, error) {
			ms, err := args[0].I32()
			if err != nil {
				return tarn.Value{}, err
			}
			if ms > 0 {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
			return tarn.Value{}, nil
		},
	}
}
