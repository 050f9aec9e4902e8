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

package value

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
)

type number interface {
	int32 | int64 | uint32 | uint64 | float32 | float64
}

func setNumber[T number](v Value, literal any) error {
	var x T
	switch l := literal.(type) {
	case int:
		x = T(l)
	case int32:
		x = T(l)
	case int64:
		x = T(l)
	case uint32:
		x = T(l)
	case uint64:
		x = T(l)
	case float32:
		x = T(l)
	case float64:
		x = T(l)
	default:
		return irerr.Typef("cannot use literal %v of type %T as %s", literal, literal, v.dt.String())
	}
	ptr, err := Get[T](v)
	if err != nil {
		return err
	}
	*ptr = x
	return nil
}

// SetLiteral sets the first element of a host value to a Go literal.
// Numerical literals are converted to the type of the value.
func SetLiteral(v Value, literal any) error {
	switch v.dt {
	case dtype.Bool:
		b, ok := literal.(bool)
		if !ok {
			return irerr.Typef("cannot use literal %v of type %T as %s", literal, literal, v.dt.String())
		}
		ptr, err := Get[bool](v)
		if err != nil {
			return err
		}
		*ptr = b
		return nil
	case dtype.Float32:
		return setNumber[float32](v, literal)
	case dtype.Float64:
		return setNumber[float64](v, literal)
	case dtype.Int32:
		return setNumber[int32](v, literal)
	case dtype.Int64:
		return setNumber[int64](v, literal)
	case dtype.Uint32:
		return setNumber[uint32](v, literal)
	case dtype.Uint64:
		return setNumber[uint64](v, literal)
	}
	return irerr.Typef("data type %s not supported", v.dt.String())
}

// Scalar returns a new rank-0 value owning a literal converted to dt.
func Scalar(dt dtype.DataType, literal any) (Value, error) {
	v, err := Allocate(dt, layout.Scalar)
	if err != nil {
		return Value{}, err
	}
	if err := SetLiteral(v, literal); err != nil {
		v.Release()
		return Value{}, err
	}
	return v, nil
}

// Index returns a new rank-0 int64 value.
func Index(i int) Value {
	v, err := Scalar(dtype.Int64, i)
	if err != nil {
		panic(irerr.Internal(err))
	}
	return v
}
