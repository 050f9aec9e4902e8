// Copyright 2024 Google LLC
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

package emitter

import "github.com/gx-org/vir/irerr"

// Stack of contexts. The top of the stack is the active context.
type Stack struct {
	contexts []Context
}

// NewStack returns a new stack with a base context.
func NewStack(base Context) *Stack {
	return &Stack{contexts: []Context{base}}
}

// Current returns the active context.
func (s *Stack) Current() Context {
	return s.contexts[len(s.contexts)-1]
}

// Depth returns the number of contexts in the stack.
func (s *Stack) Depth() int {
	return len(s.contexts)
}

// With makes ctx the active context while f runs.
// The previous context is restored when f returns, including when f panics.
func (s *Stack) With(ctx Context, f func() error) error {
	if ctx == nil {
		return irerr.Contextf("cannot push a nil context")
	}
	s.contexts = append(s.contexts, ctx)
	defer func() {
		s.contexts = s.contexts[:len(s.contexts)-1]
	}()
	return f()
}

// InvokeForContext calls f only if the active context is of type C.
func InvokeForContext[C Context](s *Stack, f func(C) error) error {
	ctx, ok := s.Current().(C)
	if !ok {
		return nil
	}
	return f(ctx)
}
