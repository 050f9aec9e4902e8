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

package kernels

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"golang.org/x/exp/constraints"
	"github.com/gx-org/vir/irerr"
)

type algebra interface {
	constraints.Integer | constraints.Float
}

func add[T algebra](x, y T) (T, error) {
	return x + y, nil
}

func sub[T algebra](x, y T) (T, error) {
	return x - y, nil
}

func mul[T algebra](x, y T) (T, error) {
	return x * y, nil
}

func quo[T constraints.Float](x, y T) (T, error) {
	return x / y, nil
}

func quoInt[T constraints.Integer](x, y T) (T, error) {
	if y == 0 {
		return 0, irerr.Arithmeticf("integer division by zero")
	}
	return x / y, nil
}

func remInt[T constraints.Integer](x, y T) (T, error) {
	if y == 0 {
		return 0, irerr.Arithmeticf("integer remainder by zero")
	}
	return x % y, nil
}

func equal[T comparable](x, y T) (bool, error) {
	return x == y, nil
}

func notEqual[T comparable](x, y T) (bool, error) {
	return x != y, nil
}

func less[T constraints.Ordered](x, y T) (bool, error) {
	return x < y, nil
}

func lessEqual[T constraints.Ordered](x, y T) (bool, error) {
	return x <= y, nil
}

func greater[T constraints.Ordered](x, y T) (bool, error) {
	return x > y, nil
}

func greaterEqual[T constraints.Ordered](x, y T) (bool, error) {
	return x >= y, nil
}

func neg[T algebra](x T) (T, error) {
	return -x, nil
}

// numericBinaryOp returns the kernels shared by all numerical types.
func numericBinaryOp[T number](op token.Token) (Binary, dtype.DataType, error) {
	dt := dtype.Generic[T]()
	switch op {
	case token.ADD:
		return binary(add[T]), dt, nil
	case token.SUB:
		return binary(sub[T]), dt, nil
	case token.MUL:
		return binary(mul[T]), dt, nil
	case token.EQL:
		return binary(equal[T]), dtype.Bool, nil
	case token.NEQ:
		return binary(notEqual[T]), dtype.Bool, nil
	case token.LSS:
		return binary(less[T]), dtype.Bool, nil
	case token.LEQ:
		return binary(lessEqual[T]), dtype.Bool, nil
	case token.GTR:
		return binary(greater[T]), dtype.Bool, nil
	case token.GEQ:
		return binary(greaterEqual[T]), dtype.Bool, nil
	}
	return nil, dtype.Invalid, opNotSupported(op, dt)
}

func numericUnaryOp[T number](op token.Token) (Unary, error) {
	switch op {
	case token.SUB:
		return unary(neg[T]), nil
	case token.ADD:
		return unary(identity[T]), nil
	}
	return nil, opNotSupported(op, dtype.Generic[T]())
}

type floatFactory[T float] struct{}

var _ Factory = floatFactory[float32]{}

func (floatFactory[T]) DType() dtype.DataType {
	return dtype.Generic[T]()
}

// BinaryOp creates a new kernel for a binary operator.
func (floatFactory[T]) BinaryOp(op token.Token) (Binary, dtype.DataType, error) {
	if op == token.QUO {
		return binary(quo[T]), dtype.Generic[T](), nil
	}
	return numericBinaryOp[T](op)
}

// UnaryOp creates a new kernel for a unary operator.
func (floatFactory[T]) UnaryOp(op token.Token) (Unary, error) {
	return numericUnaryOp[T](op)
}

// Math creates a new kernel for a math function.
func (floatFactory[T]) Math(fn MathFunc) (Unary, error) {
	return floatMath[T](fn)
}

// Cast creates a new kernel converting values to another type.
func (floatFactory[T]) Cast(target dtype.DataType) (Unary, error) {
	return castNumber[T](target)
}

// Copy creates a new kernel copying values.
func (floatFactory[T]) Copy() Unary {
	return copyKernel[T]()
}

type integerFactory[T integer] struct{}

var _ Factory = integerFactory[int32]{}

func (integerFactory[T]) DType() dtype.DataType {
	return dtype.Generic[T]()
}

// BinaryOp creates a new kernel for a binary operator.
func (integerFactory[T]) BinaryOp(op token.Token) (Binary, dtype.DataType, error) {
	switch op {
	case token.QUO:
		return binary(quoInt[T]), dtype.Generic[T](), nil
	case token.REM:
		return binary(remInt[T]), dtype.Generic[T](), nil
	}
	return numericBinaryOp[T](op)
}

// UnaryOp creates a new kernel for a unary operator.
func (integerFactory[T]) UnaryOp(op token.Token) (Unary, error) {
	return numericUnaryOp[T](op)
}

// Math creates a new kernel for a math function.
func (integerFactory[T]) Math(fn MathFunc) (Unary, error) {
	return integerMath[T](fn)
}

// Cast creates a new kernel converting values to another type.
func (integerFactory[T]) Cast(target dtype.DataType) (Unary, error) {
	return castNumber[T](target)
}

// Copy creates a new kernel copying values.
func (integerFactory[T]) Copy() Unary {
	return copyKernel[T]()
}
