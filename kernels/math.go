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
	"math"

	"github.com/gx-org/backend/dtype"
	"golang.org/x/exp/constraints"
	"github.com/gx-org/vir/irerr"
)

// MathFunc is a math function applied elementwise.
type MathFunc int

// Math functions supported by the kernels.
const (
	Sqrt MathFunc = iota
	Exp
	Log
	Abs
)

var mathNames = map[MathFunc]string{
	Sqrt: "sqrt",
	Exp:  "exp",
	Log:  "log",
	Abs:  "abs",
}

func (fn MathFunc) String() string {
	if name, ok := mathNames[fn]; ok {
		return name
	}
	return "math?"
}

// Kernelize converts a float64 function into a kernel function for another float type.
func Kernelize[T constraints.Float](f func(float64) float64) func(T) (T, error) {
	return func(x T) (T, error) {
		return T(f(float64(x))), nil
	}
}

func floatMath[T float](fn MathFunc) (Unary, error) {
	switch fn {
	case Sqrt:
		return unary(Kernelize[T](math.Sqrt)), nil
	case Exp:
		return unary(Kernelize[T](math.Exp)), nil
	case Log:
		return unary(Kernelize[T](math.Log)), nil
	case Abs:
		return unary(Kernelize[T](math.Abs)), nil
	}
	return nil, irerr.Typef("math function %s not supported for %s", fn, dtype.Generic[T]().String())
}

func abs[T constraints.Integer](x T) (T, error) {
	if x < 0 {
		return -x, nil
	}
	return x, nil
}

func integerMath[T integer](fn MathFunc) (Unary, error) {
	if fn == Abs {
		return unary(abs[T]), nil
	}
	return nil, irerr.Typef("math function %s not supported for %s", fn, dtype.Generic[T]().String())
}
