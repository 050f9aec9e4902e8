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

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

func isFloat(dt dtype.DataType) bool {
	return dt == dtype.Float32 || dt == dtype.Float64
}

func isSigned(dt dtype.DataType) bool {
	return dt == dtype.Int32 || dt == dtype.Int64
}

func isUnsigned(dt dtype.DataType) bool {
	return dt == dtype.Uint32 || dt == dtype.Uint64
}

// IsInteger returns true if dt is an integer data type.
func IsInteger(dt dtype.DataType) bool {
	return isSigned(dt) || isUnsigned(dt)
}

func floatOfSize(size int) dtype.DataType {
	if size > dtype.Sizeof(dtype.Float32) {
		return dtype.Float64
	}
	return dtype.Float32
}

// Promote returns the data type both operands of a binary operator
// are converted to:
//   - an integer and a float promote to a float of the widest width,
//   - two integers of the same signedness promote to the widest,
//   - a signed and an unsigned integer promote to the signed type
//     if it is strictly wider.
//
// Booleans never promote.
func Promote(x, y dtype.DataType) (dtype.DataType, error) {
	if x == y {
		return x, nil
	}
	xSize, ySize := dtype.Sizeof(x), dtype.Sizeof(y)
	switch {
	case x == dtype.Bool || y == dtype.Bool:
	case isFloat(x) || isFloat(y):
		return floatOfSize(max(xSize, ySize)), nil
	case isSigned(x) == isSigned(y):
		if xSize > ySize {
			return x, nil
		}
		return y, nil
	case isSigned(x) && xSize > ySize:
		return x, nil
	case isSigned(y) && ySize > xSize:
		return y, nil
	}
	return dtype.Invalid, irerr.Typef("mismatched types %s and %s", x.String(), y.String())
}

// Broadcast returns the dense layout of the result of an elementwise
// binary operator. A rank-0 operand is broadcast to the shape of the other.
// Other operands must have the same shape.
func Broadcast(x, y layout.Layout) (layout.Layout, error) {
	switch {
	case x.Rank() == 0:
		return y.Compact(), nil
	case y.Rank() == 0:
		return x.Compact(), nil
	case x.Extents().Equal(y.Extents()):
		return x.Compact(), nil
	}
	return layout.Layout{}, irerr.Shapef("mismatched shapes %v and %v", x.Extents(), y.Extents())
}

func checkDefined(v value.Value) error {
	if v.IsEmpty() {
		return irerr.Typef("operation on an empty value")
	}
	return nil
}

func errIndexRank(v value.Value, n int) error {
	return irerr.Indexf("%d coordinates to index a value of rank %d", n, v.Rank())
}

// BinaryPlan describes how to compute a binary operator.
type BinaryPlan struct {
	// Operand is the data type operands need to be converted to.
	Operand dtype.DataType
	// Result is the data type of the result.
	Result dtype.DataType
	// Layout of the result.
	Layout layout.Layout
	// Kernel computing the result.
	Kernel kernels.Binary
}

// PlanBinary checks the operands of a binary operator and returns how to compute it.
func PlanBinary(op token.Token, x, y value.Value) (*BinaryPlan, error) {
	if err := checkDefined(x); err != nil {
		return nil, err
	}
	if err := checkDefined(y); err != nil {
		return nil, err
	}
	operand, err := Promote(x.DType(), y.DType())
	if err != nil {
		return nil, irerr.Wrap(err, "operator %s", op)
	}
	lay, err := Broadcast(x.Layout(), y.Layout())
	if err != nil {
		return nil, irerr.Wrap(err, "operator %s", op)
	}
	f, err := kernels.FactoryFor(operand)
	if err != nil {
		return nil, err
	}
	kernel, result, err := f.BinaryOp(op)
	if err != nil {
		return nil, err
	}
	return &BinaryPlan{
		Operand: operand,
		Result:  result,
		Layout:  lay,
		Kernel:  kernel,
	}, nil
}

// PlanUnary checks the operand of a unary operator and returns its kernel.
func PlanUnary(op token.Token, x value.Value) (kernels.Unary, error) {
	if err := checkDefined(x); err != nil {
		return nil, err
	}
	f, err := kernels.FactoryFor(x.DType())
	if err != nil {
		return nil, err
	}
	return f.UnaryOp(op)
}

// PlanMath checks the operand of a math function and returns its kernel.
func PlanMath(fn kernels.MathFunc, x value.Value) (kernels.Unary, error) {
	if err := checkDefined(x); err != nil {
		return nil, err
	}
	f, err := kernels.FactoryFor(x.DType())
	if err != nil {
		return nil, err
	}
	return f.Math(fn)
}

// PlanCast checks a conversion and returns its kernel.
func PlanCast(x value.Value, dt dtype.DataType) (kernels.Unary, error) {
	if err := checkDefined(x); err != nil {
		return nil, err
	}
	f, err := kernels.FactoryFor(x.DType())
	if err != nil {
		return nil, err
	}
	return f.Cast(dt)
}

// PlanCopy checks that src can be written into dst and returns the copy kernel.
func PlanCopy(dst, src value.Value) (kernels.Unary, error) {
	if err := checkDefined(dst); err != nil {
		return nil, err
	}
	if err := checkDefined(src); err != nil {
		return nil, err
	}
	if dst.DType() != src.DType() {
		return nil, irerr.Typef("cannot store a %s value into a %s value", src.DType().String(), dst.DType().String())
	}
	if src.Rank() != 0 && !src.Extents().Equal(dst.Extents()) {
		return nil, irerr.Shapef("cannot store a value of shape %v into a value of shape %v", src.Extents(), dst.Extents())
	}
	f, err := kernels.FactoryFor(dst.DType())
	if err != nil {
		return nil, err
	}
	return f.Copy(), nil
}

// CheckCondition returns an error if a value cannot be used as a condition.
func CheckCondition(cond value.Value) error {
	if err := checkDefined(cond); err != nil {
		return err
	}
	if cond.DType() != dtype.Bool {
		return irerr.Typef("condition of type %s is not a bool", cond.DType().String())
	}
	if cond.Rank() != 0 {
		return irerr.Shapef("condition of shape %v is not a scalar", cond.Extents())
	}
	return nil
}

// CheckSlice returns an error if v cannot be sliced along dim with a given index.
func CheckSlice(v value.Value, dim int, index value.Value) error {
	if err := checkDefined(v); err != nil {
		return err
	}
	if dim < 0 || dim >= v.Rank() {
		return irerr.Indexf("dimension %d out of range for a value of rank %d", dim, v.Rank())
	}
	if err := checkDefined(index); err != nil {
		return err
	}
	if !IsInteger(index.DType()) {
		return irerr.Typef("index of type %s is not an integer", index.DType().String())
	}
	if index.Rank() != 0 {
		return irerr.Shapef("index of shape %v is not a scalar", index.Extents())
	}
	return nil
}

// HostIndex reads the integer stored in a rank-0 host value.
func HostIndex(v value.Value) (int, error) {
	switch v.DType() {
	case dtype.Int32:
		return readIndex[int32](v)
	case dtype.Int64:
		return readIndex[int64](v)
	case dtype.Uint32:
		return readIndex[uint32](v)
	case dtype.Uint64:
		return readIndex[uint64](v)
	}
	return 0, irerr.Typef("index of type %s is not an integer", v.DType().String())
}

func readIndex[T int32 | int64 | uint32 | uint64](v value.Value) (int, error) {
	ptr, err := value.Get[T](v)
	if err != nil {
		return 0, err
	}
	return int(*ptr), nil
}

// IndexType is the data type of loop indices.
var IndexType = dtype.Int64
