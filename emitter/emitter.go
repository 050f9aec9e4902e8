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

// Package emitter defines the operations shared by all backends.
//
// A Context realizes primitive operations on values: an interpreter executes
// them immediately on host memory while a code generator records them into
// routines executed later. User code is written once against a Context and
// behaves identically on both.
//
// The active context is selected with a Stack. Stacks are not safe for
// concurrent use: each goroutine building code needs its own stack.
package emitter

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

type (
	// Context realizes operations on values.
	Context interface {
		// Name of the backend.
		Name() string

		// Allocate returns a new zero-initialized value owning its storage.
		Allocate(dt dtype.DataType, lay layout.Layout) (value.Value, error)

		// Constant returns a new value initialized with the content of a host value.
		Constant(v value.Value) (value.Value, error)

		// StoreConstant writes a Go literal into all the elements of dst.
		StoreConstant(dst value.Value, literal any) error

		// Load returns a new value with a copy of the content of v.
		Load(v value.Value) (value.Value, error)

		// Copy writes the elements of src into dst.
		// src is broadcast if it has rank 0.
		Copy(dst, src value.Value) error

		// BinaryOp applies a binary operator elementwise.
		BinaryOp(op token.Token, x, y value.Value) (value.Value, error)

		// UnaryOp applies a unary operator elementwise.
		UnaryOp(op token.Token, x value.Value) (value.Value, error)

		// MathOp applies a math function elementwise.
		MathOp(fn kernels.MathFunc, x value.Value) (value.Value, error)

		// Cast converts the elements of a value to another data type.
		Cast(x value.Value, dt dtype.DataType) (value.Value, error)

		// Slice returns a value of reduced rank aliasing the elements of v
		// for which the coordinate of dim is given by the rank-0 index.
		Slice(v value.Value, dim int, index value.Value) (value.Value, error)

		// For calls body once for each logical index of v, in row-major order.
		// The index is passed as one rank-0 int64 value per dimension.
		For(v value.Value, body func(index []value.Value) error) error

		// If calls body if cond is true.
		If(cond value.Value, body func() error) IfContext

		// CreateFunction creates a new function.
		CreateFunction(name string, result value.Value, params []value.Value, body Body) (Function, error)

		// GlobalAllocate returns a value living as long as the context.
		// Calls with the same name return values aliasing the same storage.
		GlobalAllocate(name string, init value.Value) (value.Value, error)

		// Trace passes values to the tracer of the context, if any.
		Trace(label string, vals ...value.Value) error
	}

	// IfContext chains conditional clauses.
	// At most one body of a chain is executed: the body of the first true
	// condition or, if all conditions are false, the body passed to Else.
	IfContext interface {
		// ElseIf adds a clause executed if all previous conditions are false.
		ElseIf(cond value.Value, body func() error) IfContext

		// Else adds a final clause executed if all previous conditions are false.
		Else(body func() error) error

		// Err returns the first error that occurred in the chain.
		Err() error
	}

	// Body of a function.
	Body func(ctx Context, args []value.Value) (value.Value, error)

	// Function is a named unit of code which can be called any number of times.
	Function interface {
		// Name of the function.
		Name() string

		// Signature of the function.
		Signature() Signature

		// Call the function.
		Call(ctx Context, args ...value.Value) (value.Value, error)
	}

	// Tracer receives values traced by a context.
	Tracer interface {
		Trace(label string, vals []value.Value) error
	}

	// TraceFunc is a function implementing the Tracer interface.
	TraceFunc func(label string, vals []value.Value) error
)

// Trace calls the function.
func (f TraceFunc) Trace(label string, vals []value.Value) error {
	return f(label, vals)
}

// Offset returns a rank-0 value aliasing the element of v at a given index.
// Each coordinate is a rank-0 integer value.
func Offset(ctx Context, v value.Value, index ...value.Value) (value.Value, error) {
	if len(index) != v.Rank() {
		return value.Value{}, errIndexRank(v, len(index))
	}
	var err error
	for _, i := range index {
		if v, err = ctx.Slice(v, 0, i); err != nil {
			return value.Value{}, err
		}
	}
	return v, nil
}
