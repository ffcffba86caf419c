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
	"fmt"

	"github.com/tarnvm/tarn/tarn"
)

// Registry maps "module.name" import keys to host functions.
type Registry map[string]*tarn.HostFunc

// Standard returns the registry of built-in host functions under the "env"
// namespace.
func Standard(console *Console, clock *Clock) Registry {
	return Registry{
		"env.display":  console.Display(),
		"env.print":    console.Print(),
		"env.put_char": console.PutChar(),
		"env.width":    console.Width(),
		"env.now":      clock.MonotonicNanos(),
		"env.sleep":    clock.Sleep(),
		"env.random":   Random(),
	}
}

// Resolve returns the registry's host functions in the order the module
// imports them, ready to pass to tarn.Instantiate. An import with no
// registry entry fails resolution.
func (r Registry) Resolve(module *tarn.Module) ([]*tarn.HostFunc, error) {
	hosts := make([]*tarn.HostFunc, len(module.Imports))
	for i, imp := range module.Imports {
		key := imp.ModuleName + "." + imp.Name
		fn, ok := r[key]
		if !ok {
			return nil, fmt.Errorf("no host function for import %q", key)
		}
		hosts[i] = fn
	}
	return hosts, nil
}
