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

// Package kernels implements elementwise kernels over host values.
//
// Kernels read their operands and write their result through strided
// layouts. A rank-0 operand is broadcast to the shape of the result.
// A kernel computes all its results before writing any of them: if an
// error occurs, the destination is left untouched. The same kernels are
// used by all backends, which guarantees bit-identical results.
package kernels

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/value"
)

type (
	// Unary kernel like -x or a cast. The result is written in z.
	Unary func(z, x value.Value) error

	// Binary kernel like x+y or x<y. The result is written in z.
	Binary func(z, x, y value.Value) error

	// Factory creates kernels for values of a given data type.
	Factory interface {
		// DType returns the type of the operands supported by the factory.
		DType() dtype.DataType

		// BinaryOp returns a kernel for a binary operator and the data type of its result.
		BinaryOp(op token.Token) (Binary, dtype.DataType, error)

		// UnaryOp returns a kernel for a unary operator.
		UnaryOp(op token.Token) (Unary, error)

		// Math returns a kernel for a math function.
		Math(fn MathFunc) (Unary, error)

		// Cast returns a kernel converting values to a target data type.
		Cast(target dtype.DataType) (Unary, error)

		// Copy returns a kernel copying values.
		Copy() Unary
	}
)

type (
	integer interface {
		int32 | int64 | uint32 | uint64
	}

	float interface {
		float32 | float64
	}

	number interface {
		integer | float
	}
)

// FactoryFor returns a factory given a data type.
func FactoryFor(dt dtype.DataType) (Factory, error) {
	switch dt {
	case dtype.Bool:
		return boolFactory{}, nil
	case dtype.Float32:
		return floatFactory[float32]{}, nil
	case dtype.Float64:
		return floatFactory[float64]{}, nil
	case dtype.Int32:
		return integerFactory[int32]{}, nil
	case dtype.Int64:
		return integerFactory[int64]{}, nil
	case dtype.Uint32:
		return integerFactory[uint32]{}, nil
	case dtype.Uint64:
		return integerFactory[uint64]{}, nil
	default:
		return nil, irerr.Typef("no kernels for %s", dt.String())
	}
}

func pick(offsets []int, i int) int {
	if len(offsets) == 1 {
		return offsets[0]
	}
	return offsets[i]
}

func checkOperand(name string, n int, offsets []int) error {
	if len(offsets) == n || len(offsets) == 1 {
		return nil
	}
	return irerr.Shapef("%s has %d elements but the result has %d", name, len(offsets), n)
}

func write[R dtype.GoDataType](zs []R, zOff []int, out []R) {
	for i, offset := range zOff {
		zs[offset] = out[i]
	}
}

func unary[T, R dtype.GoDataType](f func(T) (R, error)) Unary {
	return func(z, x value.Value) error {
		xs, xOff, err := value.Elements[T](x)
		if err != nil {
			return err
		}
		zs, zOff, err := value.Elements[R](z)
		if err != nil {
			return err
		}
		if err := checkOperand("operand", len(zOff), xOff); err != nil {
			return err
		}
		out := make([]R, len(zOff))
		for i := range zOff {
			if out[i], err = f(xs[pick(xOff, i)]); err != nil {
				return err
			}
		}
		write(zs, zOff, out)
		return nil
	}
}

func binary[T, R dtype.GoDataType](f func(T, T) (R, error)) Binary {
	return func(z, x, y value.Value) error {
		xs, xOff, err := value.Elements[T](x)
		if err != nil {
			return err
		}
		ys, yOff, err := value.Elements[T](y)
		if err != nil {
			return err
		}
		zs, zOff, err := value.Elements[R](z)
		if err != nil {
			return err
		}
		if err := checkOperand("left operand", len(zOff), xOff); err != nil {
			return err
		}
		if err := checkOperand("right operand", len(zOff), yOff); err != nil {
			return err
		}
		out := make([]R, len(zOff))
		for i := range zOff {
			if out[i], err = f(xs[pick(xOff, i)], ys[pick(yOff, i)]); err != nil {
				return err
			}
		}
		write(zs, zOff, out)
		return nil
	}
}

func identity[T any](x T) (T, error) {
	return x, nil
}

func copyKernel[T dtype.GoDataType]() Unary {
	return unary(identity[T])
}

func opNotSupported(op token.Token, dt dtype.DataType) error {
	return irerr.Typef("operator %s not supported for %s", op.String(), dt.String())
}
