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
	"fmt"

	"github.com/gx-org/vir/base/stringseq"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/value"
)

// Signature declares the parameters and the result of a function.
// Parameters and result are protos: values with a type and a layout
// but without storage. An empty result declares a function without result.
type Signature struct {
	Name   string
	Params []value.Value
	Result value.Value
}

// NewSignature returns a new signature.
func NewSignature(name string, result value.Value, params []value.Value) (Signature, error) {
	sig := Signature{
		Name:   name,
		Params: make([]value.Value, len(params)),
	}
	for i, param := range params {
		if param.IsEmpty() {
			return Signature{}, irerr.Typef("function %s: parameter %d has no type", name, i)
		}
		sig.Params[i] = param.Proto()
	}
	if !result.IsEmpty() {
		sig.Result = result.Proto()
	}
	return sig, nil
}

// Compatible returns an error if got cannot be used where want is expected.
func Compatible(want, got value.Value) error {
	if want.IsEmpty() != got.IsEmpty() {
		return irerr.Typef("got %s but want %s", describe(got), describe(want))
	}
	if want.IsEmpty() {
		return nil
	}
	if want.DType() != got.DType() {
		return irerr.Typef("got %s but want %s", describe(got), describe(want))
	}
	if !want.Extents().Equal(got.Extents()) {
		return irerr.Shapef("got %s but want %s", describe(got), describe(want))
	}
	return nil
}

// CheckArgs returns an error if arguments do not match the parameters.
func (s Signature) CheckArgs(args []value.Value) error {
	if len(args) != len(s.Params) {
		return irerr.Typef("function %s called with %d arguments but requires %d", s.Name, len(args), len(s.Params))
	}
	for i, arg := range args {
		if err := Compatible(s.Params[i], arg); err != nil {
			return irerr.Wrap(err, "function %s argument %d", s.Name, i)
		}
	}
	return nil
}

// CheckResult returns an error if a value does not match the result.
func (s Signature) CheckResult(result value.Value) error {
	return irerr.Wrap(Compatible(s.Result, result), "function %s result", s.Name)
}

func describe(v value.Value) string {
	if v.IsEmpty() {
		return "no value"
	}
	return value.TypeName(v.DType()) + v.Extents().String()
}

// String representation of the signature.
func (s Signature) String() string {
	params := func(yield func(string) bool) {
		for _, param := range s.Params {
			if !yield(describe(param)) {
				return
			}
		}
	}
	r := fmt.Sprintf("func %s(%s)", s.Name, stringseq.Join(params, ", "))
	if !s.Result.IsEmpty() {
		r += " " + describe(s.Result)
	}
	return r
}
