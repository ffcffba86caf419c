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

import "errors"

var ErrStackUnderflow = errors.New("stack underflow")

// operandStack is the LIFO value storage expressions evaluate on. Push always
// succeeds; pop and peek on an empty stack fail with ErrStackUnderflow.
type operandStack struct {
	data []Value
}

func newOperandStack() *operandStack {
	return &operandStack{data: make([]Value, 0, 64)}
}

func (s *operandStack) push(v Value) {
	s.data = append(s.data, v)
}

func (s *operandStack) pop() (Value, error) {
	index := len(s.data) - 1
	if index < 0 {
		return Value{}, ErrStackUnderflow
	}
	element := s.data[index]
	s.data = s.data[:index]
	return element, nil
}

// peek returns the top of the stack without removing it. Used by local.tee.
func (s *operandStack) peek() (Value, error) {
	if len(s.data) == 0 {
		return Value{}, ErrStackUnderflow
	}
	return s.data[len(s.data)-1], nil
}

func (s *operandStack) size() int {
	return len(s.data)
}
