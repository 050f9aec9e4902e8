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
	"github.com/gx-org/vir/irerr"
)

type boolFactory struct{}

var _ Factory = boolFactory{}

func and(x, y bool) (bool, error) {
	return x && y, nil
}

func or(x, y bool) (bool, error) {
	return x || y, nil
}

func not(x bool) (bool, error) {
	return !x, nil
}

func (boolFactory) DType() dtype.DataType {
	return dtype.Bool
}

// BinaryOp creates a new kernel for a binary operator.
func (boolFactory) BinaryOp(op token.Token) (Binary, dtype.DataType, error) {
	switch op {
	case token.LAND:
		return binary(and), dtype.Bool, nil
	case token.LOR:
		return binary(or), dtype.Bool, nil
	case token.EQL:
		return binary(equal[bool]), dtype.Bool, nil
	case token.NEQ:
		return binary(notEqual[bool]), dtype.Bool, nil
	}
	return nil, dtype.Invalid, opNotSupported(op, dtype.Bool)
}

// UnaryOp creates a new kernel for a unary operator.
func (boolFactory) UnaryOp(op token.Token) (Unary, error) {
	if op == token.NOT {
		return unary(not), nil
	}
	return nil, opNotSupported(op, dtype.Bool)
}

// Math returns an error: no math function applies to booleans.
func (boolFactory) Math(fn MathFunc) (Unary, error) {
	return nil, irerr.Typef("math function %s not supported for bool", fn)
}

// Cast creates a new kernel converting values to another type.
func (boolFactory) Cast(target dtype.DataType) (Unary, error) {
	return castBool(target)
}

// Copy creates a new kernel copying values.
func (boolFactory) Copy() Unary {
	return copyKernel[bool]()
}
