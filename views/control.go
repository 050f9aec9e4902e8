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

package views

import (
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

func wrapIndex(st *emitter.Stack, index []value.Value) []Scalar {
	scalars := make([]Scalar, len(index))
	for i, v := range index {
		scalars[i] = Scalar{base{st: st, v: v}}
	}
	return scalars
}

// For calls body for each index of x in row-major order.
// Each coordinate of the index is an int64 scalar.
func For[V Typed](x V, body func(index []Scalar) error) error {
	st := x.Stack()
	return st.Current().For(x.Value(), func(index []value.Value) error {
		return body(wrapIndex(st, index))
	})
}

// ForRange calls body for i in [0,n).
func ForRange(st *emitter.Stack, n int, body func(i Scalar) error) error {
	lay, err := layout.New(n)
	if err != nil {
		return err
	}
	return st.Current().For(value.Proto(emitter.IndexType, lay), func(index []value.Value) error {
		return body(Scalar{base{st: st, v: index[0]}})
	})
}

// IfChain chains conditional clauses on scalar conditions.
type IfChain struct {
	ifc emitter.IfContext
}

// If calls body if cond is true.
func If(cond Scalar, body func() error) IfChain {
	return IfChain{ifc: cond.ctx().If(cond.v, body)}
}

// ElseIf calls body if no previous condition was true and cond is true.
func (c IfChain) ElseIf(cond Scalar, body func() error) IfChain {
	return IfChain{ifc: c.ifc.ElseIf(cond.v, body)}
}

// Else calls body if no previous condition was true.
func (c IfChain) Else(body func() error) error {
	return c.ifc.Else(body)
}

// Err returns the first error of the chain.
func (c IfChain) Err() error {
	return c.ifc.Err()
}

// createFunction creates a function in the current context.
// The body executes with the context creating the function at the top of the stack.
func createFunction(st *emitter.Stack, name string, result View, params []View, body func(args []value.Value) (value.Value, error)) (emitter.Function, error) {
	var res value.Value
	if result != nil {
		res = result.Value()
	}
	protos := make([]value.Value, len(params))
	for i, param := range params {
		protos[i] = param.Value()
	}
	return st.Current().CreateFunction(name, res, protos, func(ctx emitter.Context, args []value.Value) (value.Value, error) {
		var out value.Value
		err := st.With(ctx, func() error {
			var err error
			out, err = body(args)
			return err
		})
		return out, err
	})
}

func call[R Typed](st *emitter.Stack, fn emitter.Function, args ...View) (R, error) {
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		vals[i] = arg.Value()
	}
	res, err := fn.Call(st.Current(), vals...)
	if err != nil {
		var zero R
		return zero, err
	}
	return Wrap[R](st, res)
}

// Func0 is a function without parameter.
type Func0[R Typed] struct {
	st *emitter.Stack
	fn emitter.Function
}

// NewFunc0 creates a function in the current context.
// The result of the function has the type and the layout of res.
func NewFunc0[R Typed](st *emitter.Stack, name string, res R, body func() (R, error)) (*Func0[R], error) {
	fn, err := createFunction(st, name, res, nil, func([]value.Value) (value.Value, error) {
		r, err := body()
		return r.Value(), err
	})
	if err != nil {
		return nil, err
	}
	return &Func0[R]{st: st, fn: fn}, nil
}

// Call the function.
func (f *Func0[R]) Call() (R, error) {
	return call[R](f.st, f.fn)
}

// Function returns the underlying function.
func (f *Func0[R]) Function() emitter.Function {
	return f.fn
}

// Func1 is a function with one parameter.
type Func1[R, A Typed] struct {
	st *emitter.Stack
	fn emitter.Function
}

// NewFunc1 creates a function in the current context.
// The signature of the function is given by the types and layouts of res and a.
func NewFunc1[R, A Typed](st *emitter.Stack, name string, res R, a A, body func(A) (R, error)) (*Func1[R, A], error) {
	fn, err := createFunction(st, name, res, []View{a}, func(args []value.Value) (value.Value, error) {
		a, err := Wrap[A](st, args[0])
		if err != nil {
			return value.Value{}, err
		}
		r, err := body(a)
		return r.Value(), err
	})
	if err != nil {
		return nil, err
	}
	return &Func1[R, A]{st: st, fn: fn}, nil
}

// Call the function.
func (f *Func1[R, A]) Call(a A) (R, error) {
	return call[R](f.st, f.fn, a)
}

// Function returns the underlying function.
func (f *Func1[R, A]) Function() emitter.Function {
	return f.fn
}

// Func2 is a function with two parameters.
type Func2[R, A, B Typed] struct {
	st *emitter.Stack
	fn emitter.Function
}

// NewFunc2 creates a function in the current context.
func NewFunc2[R, A, B Typed](st *emitter.Stack, name string, res R, a A, b B, body func(A, B) (R, error)) (*Func2[R, A, B], error) {
	fn, err := createFunction(st, name, res, []View{a, b}, func(args []value.Value) (value.Value, error) {
		a, err := Wrap[A](st, args[0])
		if err != nil {
			return value.Value{}, err
		}
		b, err := Wrap[B](st, args[1])
		if err != nil {
			return value.Value{}, err
		}
		r, err := body(a, b)
		return r.Value(), err
	})
	if err != nil {
		return nil, err
	}
	return &Func2[R, A, B]{st: st, fn: fn}, nil
}

// Call the function.
func (f *Func2[R, A, B]) Call(a A, b B) (R, error) {
	return call[R](f.st, f.fn, a, b)
}

// Function returns the underlying function.
func (f *Func2[R, A, B]) Function() emitter.Function {
	return f.fn
}

// Func3 is a function with three parameters.
type Func3[R, A, B, C Typed] struct {
	st *emitter.Stack
	fn emitter.Function
}

// NewFunc3 creates a function in the current context.
func NewFunc3[R, A, B, C Typed](st *emitter.Stack, name string, res R, a A, b B, c C, body func(A, B, C) (R, error)) (*Func3[R, A, B, C], error) {
	fn, err := createFunction(st, name, res, []View{a, b, c}, func(args []value.Value) (value.Value, error) {
		a, err := Wrap[A](st, args[0])
		if err != nil {
			return value.Value{}, err
		}
		b, err := Wrap[B](st, args[1])
		if err != nil {
			return value.Value{}, err
		}
		c, err := Wrap[C](st, args[2])
		if err != nil {
			return value.Value{}, err
		}
		r, err := body(a, b, c)
		return r.Value(), err
	})
	if err != nil {
		return nil, err
	}
	return &Func3[R, A, B, C]{st: st, fn: fn}, nil
}

// Call the function.
func (f *Func3[R, A, B, C]) Call(a A, b B, c C) (R, error) {
	return call[R](f.st, f.fn, a, b, c)
}

// Function returns the underlying function.
func (f *Func3[R, A, B, C]) Function() emitter.Function {
	return f.fn
}

// Procedure is a function without result.
type Procedure struct {
	st     *emitter.Stack
	fn     emitter.Function
	params []View
}

// NewProcedure creates a procedure in the current context.
// The arguments passed to body have the same view types as params.
func NewProcedure(st *emitter.Stack, name string, params []View, body func(args []View) error) (*Procedure, error) {
	fn, err := createFunction(st, name, nil, params, func(args []value.Value) (value.Value, error) {
		views := make([]View, len(args))
		for i, arg := range args {
			var err error
			if views[i], err = rewrap(params[i], arg); err != nil {
				return value.Value{}, err
			}
		}
		return value.Value{}, body(views)
	})
	if err != nil {
		return nil, err
	}
	return &Procedure{st: st, fn: fn, params: params}, nil
}

// Call the procedure.
func (p *Procedure) Call(args ...View) error {
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		vals[i] = arg.Value()
	}
	_, err := p.fn.Call(p.st.Current(), vals...)
	return err
}

// Function returns the underlying function.
func (p *Procedure) Function() emitter.Function {
	return p.fn
}

// Accumulate returns init plus the sum of the elements of x.
func Accumulate(x Vector, init Scalar) (Scalar, error) {
	acc, err := Load(init)
	if err != nil {
		return Scalar{}, err
	}
	if err := For(x, func(index []Scalar) error {
		elem, err := x.At(index[0])
		if err != nil {
			return err
		}
		return acc.AddAssign(elem)
	}); err != nil {
		return Scalar{}, err
	}
	return acc, nil
}

// Dot returns the inner product of two vectors.
func Dot(x, y Vector) (Scalar, error) {
	if x.Size() != y.Size() {
		return Scalar{}, irerr.Shapef("inner product of vectors of size %d and %d", x.Size(), y.Size())
	}
	prod, err := x.Mul(y)
	if err != nil {
		return Scalar{}, err
	}
	defer prod.Release()
	zero, err := AllocateShape[Scalar](x.st, prod.DType())
	if err != nil {
		return Scalar{}, err
	}
	defer zero.Release()
	return Accumulate(prod, zero)
}

// Trace passes the values of views to the tracer of the current context.
func Trace(st *emitter.Stack, label string, views ...View) error {
	vals := make([]value.Value, len(views))
	for i, view := range views {
		vals[i] = view.Value()
	}
	return st.Current().Trace(label, vals...)
}
