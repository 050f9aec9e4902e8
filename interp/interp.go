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

// Package interp implements a backend executing operations immediately
// on host memory.
//
// The interpreter is the reference implementation of the operations: loops
// and conditionals are ordinary Go control flow and errors are returned as
// soon as an operation fails.
package interp

import (
	"go/token"
	"slices"

	"github.com/pkg/errors"
	"github.com/gx-org/backend/dtype"
	"golang.org/x/exp/maps"
	"github.com/gx-org/vir/base/ordered"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

// Name of the backend.
const Name = "interp"

// WithGlobals initializes named globals of the interpreter.
// The values are aliased, not copied.
type WithGlobals struct {
	Values map[string]value.Value
}

// Backend returns the name of the interpreter backend.
func (WithGlobals) Backend() string {
	return Name
}

// Context executing operations on host memory.
type Context struct {
	tracer  emitter.Tracer
	globals *ordered.Map[string, value.Value]
}

var _ emitter.Context = (*Context)(nil)

// New returns a new interpreter context.
func New(opts ...emitter.Option) (*Context, error) {
	ctx := &Context{globals: ordered.NewMap[string, value.Value]()}
	for _, opt := range emitter.Filter(Name, opts) {
		switch optT := opt.(type) {
		case emitter.WithTracer:
			ctx.tracer = optT.Tracer
		case WithGlobals:
			names := maps.Keys(optT.Values)
			slices.Sort(names)
			for _, name := range names {
				ctx.globals.Store(name, optT.Values[name].Alias())
			}
		default:
			return nil, errors.Errorf("option of type %T not supported", optT)
		}
	}
	return ctx, nil
}

// Name of the backend.
func (ctx *Context) Name() string {
	return Name
}

// Allocate returns a new zero-initialized value owning its storage.
func (ctx *Context) Allocate(dt dtype.DataType, lay layout.Layout) (value.Value, error) {
	return value.Allocate(dt, lay)
}

func (ctx *Context) copyOf(v value.Value) (value.Value, error) {
	kernel, err := emitter.PlanCopy(v, v)
	if err != nil {
		return value.Value{}, err
	}
	z, err := value.Allocate(v.DType(), v.Layout().Compact())
	if err != nil {
		return value.Value{}, err
	}
	if err := kernel(z, v); err != nil {
		z.Release()
		return value.Value{}, err
	}
	return z, nil
}

// Constant returns a new value with a copy of a host value.
func (ctx *Context) Constant(v value.Value) (value.Value, error) {
	return ctx.copyOf(v)
}

// StoreConstant writes a literal into all the elements of dst.
func (ctx *Context) StoreConstant(dst value.Value, literal any) error {
	if dst.IsEmpty() {
		return irerr.Typef("cannot store a literal into an empty value")
	}
	c, err := value.Scalar(dst.DType(), literal)
	if err != nil {
		return err
	}
	defer c.Release()
	return ctx.Copy(dst, c)
}

// Load returns a copy of a value.
func (ctx *Context) Load(v value.Value) (value.Value, error) {
	return ctx.copyOf(v)
}

// Copy writes the elements of src into dst.
func (ctx *Context) Copy(dst, src value.Value) error {
	kernel, err := emitter.PlanCopy(dst, src)
	if err != nil {
		return err
	}
	return kernel(dst, src)
}

func (ctx *Context) castOperand(x value.Value, dt dtype.DataType) (value.Value, func(), error) {
	if x.DType() == dt {
		return x, func() {}, nil
	}
	y, err := ctx.Cast(x, dt)
	if err != nil {
		return value.Value{}, nil, err
	}
	return y, y.Release, nil
}

// BinaryOp applies a binary operator elementwise.
func (ctx *Context) BinaryOp(op token.Token, x, y value.Value) (value.Value, error) {
	plan, err := emitter.PlanBinary(op, x, y)
	if err != nil {
		return value.Value{}, err
	}
	x, releaseX, err := ctx.castOperand(x, plan.Operand)
	if err != nil {
		return value.Value{}, err
	}
	defer releaseX()
	y, releaseY, err := ctx.castOperand(y, plan.Operand)
	if err != nil {
		return value.Value{}, err
	}
	defer releaseY()
	return ctx.apply(plan.Result, plan.Layout, func(z value.Value) error {
		return plan.Kernel(z, x, y)
	})
}

func (ctx *Context) apply(dt dtype.DataType, lay layout.Layout, kernel func(z value.Value) error) (value.Value, error) {
	z, err := value.Allocate(dt, lay)
	if err != nil {
		return value.Value{}, err
	}
	if err := kernel(z); err != nil {
		z.Release()
		return value.Value{}, err
	}
	return z, nil
}

func (ctx *Context) unary(kernel kernels.Unary, dt dtype.DataType, x value.Value) (value.Value, error) {
	return ctx.apply(dt, x.Layout().Compact(), func(z value.Value) error {
		return kernel(z, x)
	})
}

// UnaryOp applies a unary operator elementwise.
func (ctx *Context) UnaryOp(op token.Token, x value.Value) (value.Value, error) {
	kernel, err := emitter.PlanUnary(op, x)
	if err != nil {
		return value.Value{}, err
	}
	return ctx.unary(kernel, x.DType(), x)
}

// MathOp applies a math function elementwise.
func (ctx *Context) MathOp(fn kernels.MathFunc, x value.Value) (value.Value, error) {
	kernel, err := emitter.PlanMath(fn, x)
	if err != nil {
		return value.Value{}, err
	}
	return ctx.unary(kernel, x.DType(), x)
}

// Cast converts the elements of a value to another data type.
func (ctx *Context) Cast(x value.Value, dt dtype.DataType) (value.Value, error) {
	kernel, err := emitter.PlanCast(x, dt)
	if err != nil {
		return value.Value{}, err
	}
	return ctx.unary(kernel, dt, x)
}

// Slice returns a value of reduced rank aliasing the elements of v.
func (ctx *Context) Slice(v value.Value, dim int, index value.Value) (value.Value, error) {
	if err := emitter.CheckSlice(v, dim, index); err != nil {
		return value.Value{}, err
	}
	i, err := emitter.HostIndex(index)
	if err != nil {
		return value.Value{}, err
	}
	return v.Slice(dim, i)
}

// For calls body for each logical index of v in row-major order.
func (ctx *Context) For(v value.Value, body func(index []value.Value) error) error {
	if v.IsEmpty() {
		return irerr.Typef("cannot iterate over an empty value")
	}
	counters := make([]value.Value, v.Rank())
	ptrs := make([]*int64, v.Rank())
	defer func() {
		for _, counter := range counters {
			counter.Release()
		}
	}()
	for i := range counters {
		var err error
		if counters[i], err = value.Allocate(emitter.IndexType, layout.Scalar); err != nil {
			return err
		}
		if ptrs[i], err = value.Get[int64](counters[i]); err != nil {
			return err
		}
	}
	for index := range v.Layout().Indices() {
		for i, coord := range index {
			*ptrs[i] = int64(coord)
		}
		if err := body(counters); err != nil {
			return err
		}
	}
	return nil
}

// GlobalAllocate returns a value living as long as the context.
// The value is initialized with init the first time the name is used.
func (ctx *Context) GlobalAllocate(name string, init value.Value) (value.Value, error) {
	if init.IsEmpty() {
		return value.Value{}, irerr.Typef("global %s initialized with an empty value", name)
	}
	global, loaded, err := ctx.globals.LoadOrStore(name, func() (value.Value, error) {
		if init.IsProto() {
			return value.Allocate(init.DType(), init.Layout().Compact())
		}
		return ctx.copyOf(init)
	})
	if err != nil {
		return value.Value{}, err
	}
	if loaded {
		if err := emitter.Compatible(global, init); err != nil {
			return value.Value{}, irerr.Wrap(err, "global %s", name)
		}
	}
	return global.Alias(), nil
}

// Globals returns the names of the globals in order of allocation.
func (ctx *Context) Globals() []string {
	return ctx.globals.Keys()
}

// Release the storage of all the globals owned by the context.
func (ctx *Context) Release() {
	for _, global := range ctx.globals.Iter() {
		global.Release()
	}
}

// Trace passes values to the tracer, if any.
func (ctx *Context) Trace(label string, vals ...value.Value) error {
	if ctx.tracer == nil {
		return nil
	}
	return ctx.tracer.Trace(label, vals)
}
