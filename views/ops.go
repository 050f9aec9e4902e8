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
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
)

func binary[V Typed](x V, op token.Token, y View) (V, error) {
	st := x.Stack()
	z, err := st.Current().BinaryOp(op, x.Value(), y.Value())
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, z)
}

// Add returns x+y. y is either a scalar or a vector of the same size.
func (x Vector) Add(y View) (Vector, error) { return binary(x, token.ADD, y) }

// Sub returns x-y.
func (x Vector) Sub(y View) (Vector, error) { return binary(x, token.SUB, y) }

// Mul returns x*y elementwise.
func (x Vector) Mul(y View) (Vector, error) { return binary(x, token.MUL, y) }

// Div returns x/y elementwise.
func (x Vector) Div(y View) (Vector, error) { return binary(x, token.QUO, y) }

// Add returns x+y. y is either a scalar or a matrix of the same shape.
func (x Matrix) Add(y View) (Matrix, error) { return binary(x, token.ADD, y) }

// Sub returns x-y.
func (x Matrix) Sub(y View) (Matrix, error) { return binary(x, token.SUB, y) }

// Mul returns x*y elementwise.
func (x Matrix) Mul(y View) (Matrix, error) { return binary(x, token.MUL, y) }

// Div returns x/y elementwise.
func (x Matrix) Div(y View) (Matrix, error) { return binary(x, token.QUO, y) }

// Add returns x+y. y is either a scalar or a tensor of the same shape.
func (x Tensor) Add(y View) (Tensor, error) { return binary(x, token.ADD, y) }

// Sub returns x-y.
func (x Tensor) Sub(y View) (Tensor, error) { return binary(x, token.SUB, y) }

// Mul returns x*y elementwise.
func (x Tensor) Mul(y View) (Tensor, error) { return binary(x, token.MUL, y) }

// Div returns x/y elementwise.
func (x Tensor) Div(y View) (Tensor, error) { return binary(x, token.QUO, y) }

// Add returns x+y.
func (x Scalar) Add(y Scalar) (Scalar, error) { return binary(x, token.ADD, y) }

// Sub returns x-y.
func (x Scalar) Sub(y Scalar) (Scalar, error) { return binary(x, token.SUB, y) }

// Mul returns x*y.
func (x Scalar) Mul(y Scalar) (Scalar, error) { return binary(x, token.MUL, y) }

// Div returns x/y.
func (x Scalar) Div(y Scalar) (Scalar, error) { return binary(x, token.QUO, y) }

// Rem returns the remainder of x/y.
func (x Scalar) Rem(y Scalar) (Scalar, error) { return binary(x, token.REM, y) }

// Equal returns x == y elementwise.
func Equal[V Typed](x V, y View) (V, error) { return binary(x, token.EQL, y) }

// NotEqual returns x != y elementwise.
func NotEqual[V Typed](x V, y View) (V, error) { return binary(x, token.NEQ, y) }

// Less returns x < y elementwise.
func Less[V Typed](x V, y View) (V, error) { return binary(x, token.LSS, y) }

// LessEqual returns x <= y elementwise.
func LessEqual[V Typed](x V, y View) (V, error) { return binary(x, token.LEQ, y) }

// Greater returns x > y elementwise.
func Greater[V Typed](x V, y View) (V, error) { return binary(x, token.GTR, y) }

// GreaterEqual returns x >= y elementwise.
func GreaterEqual[V Typed](x V, y View) (V, error) { return binary(x, token.GEQ, y) }

// And returns x && y elementwise.
func And[V Typed](x V, y View) (V, error) { return binary(x, token.LAND, y) }

// Or returns x || y elementwise.
func Or[V Typed](x V, y View) (V, error) { return binary(x, token.LOR, y) }

func unary[V Typed](x V, op token.Token) (V, error) {
	st := x.Stack()
	z, err := st.Current().UnaryOp(op, x.Value())
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, z)
}

// Not returns !x elementwise.
func Not[V Typed](x V) (V, error) { return unary(x, token.NOT) }

// Neg returns -x elementwise.
func Neg[V Typed](x V) (V, error) { return unary(x, token.SUB) }

// Math applies a math function elementwise.
func Math[V Typed](fn kernels.MathFunc, x V) (V, error) {
	st := x.Stack()
	z, err := st.Current().MathOp(fn, x.Value())
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, z)
}

// Sqrt returns the square root of x elementwise.
func Sqrt[V Typed](x V) (V, error) { return Math(kernels.Sqrt, x) }

// Exp returns e**x elementwise.
func Exp[V Typed](x V) (V, error) { return Math(kernels.Exp, x) }

// Log returns the natural logarithm of x elementwise.
func Log[V Typed](x V) (V, error) { return Math(kernels.Log, x) }

// Abs returns the absolute value of x elementwise.
func Abs[V Typed](x V) (V, error) { return Math(kernels.Abs, x) }

// CastTo converts the elements of x to a data type.
func CastTo[V Typed](x V, dt dtype.DataType) (V, error) {
	st := x.Stack()
	z, err := st.Current().Cast(x.Value(), dt)
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, z)
}

// Cast converts the elements of x to the data type of T.
func Cast[T dtype.GoDataType, V Typed](x V) (V, error) {
	return CastTo(x, dtype.Generic[T]())
}

// Set copies the elements of src into the view.
// src is broadcast if it is a scalar.
func (b base) Set(src View) error {
	return b.ctx().Copy(b.v, src.Value())
}

// Set copies src into the scalar.
// An empty scalar is first allocated in the current context.
func (s *Scalar) Set(src Scalar) error {
	if !s.v.IsEmpty() {
		return s.base.Set(src)
	}
	if src.v.IsEmpty() {
		return irerr.Typef("cannot set a scalar from an empty scalar")
	}
	v, err := src.ctx().Load(src.v)
	if err != nil {
		return err
	}
	*s = Scalar{base{st: src.st, v: v}}
	return nil
}

// AddAssign adds x to the scalar.
// An empty scalar is set to a copy of x.
func (s *Scalar) AddAssign(x Scalar) error {
	if s.v.IsEmpty() {
		return s.Set(x)
	}
	ctx := s.ctx()
	z, err := ctx.BinaryOp(token.ADD, s.v, x.v)
	if err != nil {
		return err
	}
	defer z.Release()
	if z.DType() != s.DType() {
		cast, err := ctx.Cast(z, s.DType())
		if err != nil {
			return err
		}
		defer cast.Release()
		z = cast
	}
	return ctx.Copy(s.v, z)
}

// Load returns a copy of a view.
func Load[V Typed](x V) (V, error) {
	st := x.Stack()
	v, err := st.Current().Load(x.Value())
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, v)
}

// Store writes a Go literal into all the elements of x.
func Store(x View, literal any) error {
	return x.Stack().Current().StoreConstant(x.Value(), literal)
}
