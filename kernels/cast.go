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
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
)

func convert[T, R number](x T) (R, error) {
	return R(x), nil
}

func toBool[T number](x T) (bool, error) {
	return x != 0, nil
}

func fromBool[R number](x bool) (R, error) {
	if x {
		return 1, nil
	}
	return 0, nil
}

func castNumber[T number](target dtype.DataType) (Unary, error) {
	switch target {
	case dtype.Bool:
		return unary(toBool[T]), nil
	case dtype.Float32:
		return unary(convert[T, float32]), nil
	case dtype.Float64:
		return unary(convert[T, float64]), nil
	case dtype.Int32:
		return unary(convert[T, int32]), nil
	case dtype.Int64:
		return unary(convert[T, int64]), nil
	case dtype.Uint32:
		return unary(convert[T, uint32]), nil
	case dtype.Uint64:
		return unary(convert[T, uint64]), nil
	}
	return nil, irerr.Typef("cannot cast %s to %s", dtype.Generic[T]().String(), target.String())
}

func castBool(target dtype.DataType) (Unary, error) {
	switch target {
	case dtype.Bool:
		return copyKernel[bool](), nil
	case dtype.Float32:
		return unary(fromBool[float32]), nil
	case dtype.Float64:
		return unary(fromBool[float64]), nil
	case dtype.Int32:
		return unary(fromBool[int32]), nil
	case dtype.Int64:
		return unary(fromBool[int64]), nil
	case dtype.Uint32:
		return unary(fromBool[uint32]), nil
	case dtype.Uint64:
		return unary(fromBool[uint64]), nil
	}
	return nil, irerr.Typef("cannot cast bool to %s", target.String())
}
