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

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the tarn.toml runner configuration. Every field has a usable
// default so the file is optional.
type Config struct {
	Machine MachineConfig `toml:"machine"`
	Console ConsoleConfig `toml:"console"`
}

// MachineConfig tunes the machine a module is instantiated on.
type MachineConfig struct {
	// MemoryPages overrides the module's own memory declaration when nonzero.
	MemoryPages uint32 `toml:"memory-pages"`
	Trace       bool   `toml:"trace"`
}

// ConsoleConfig tunes the console host functions.
type ConsoleConfig struct {
	// Width overrides the detected terminal width when nonzero.
	Width        int `toml:"width"`
	FrameDelayMs int `toml:"frame-delay-ms"`
}

func defaultConfig() *Config {
	return &Config{
		Console: ConsoleConfig{FrameDelayMs: 20},
	}
}

// loadConfig reads a tarn.toml file. A missing file yields the defaults; a
// present but unparsable file is an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return config, nil
}
