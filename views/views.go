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

// Package views provides typed views over values.
//
// A view wraps a value of a given rank (Scalar, Vector, Matrix or Tensor)
// together with the stack selecting the active context. All the operations
// on views are routed to the current context of the stack: the same code
// either executes immediately or records a routine depending on the context.
package views

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

type (
	// View over a value.
	View interface {
		// Value wrapped by the view.
		Value() value.Value
		// Stack of contexts used by the operations on the view.
		Stack() *emitter.Stack
	}

	// Typed is the set of view types of a given rank.
	Typed interface {
		Scalar | Vector | Matrix | Tensor
		View
	}

	base struct {
		st *emitter.Stack
		v  value.Value
	}

	// Scalar is a view over a rank-0 value.
	Scalar struct{ base }

	// Vector is a view over a rank-1 value.
	Vector struct{ base }

	// Matrix is a view over a rank-2 value.
	Matrix struct{ base }

	// Tensor is a view over a rank-3 value.
	Tensor struct{ base }
)

// Value wrapped by the view.
func (b base) Value() value.Value {
	return b.v
}

// Stack of contexts.
func (b base) Stack() *emitter.Stack {
	return b.st
}

// DType returns the data type of the elements.
func (b base) DType() dtype.DataType {
	return b.v.DType()
}

// Extents returns the logical extents of the view.
func (b base) Extents() layout.Shape {
	return b.v.Extents()
}

// IsEmpty returns true if the view has no value.
func (b base) IsEmpty() bool {
	return b.v.IsEmpty()
}

// Release the storage owned by the value of the view, if any.
func (b base) Release() {
	b.v.Release()
}

func (b base) String() string {
	return b.v.String()
}

func (b base) ctx() emitter.Context {
	return b.st.Current()
}

func rankOf[V Typed]() int {
	var view V
	switch any(view).(type) {
	case Vector:
		return 1
	case Matrix:
		return 2
	case Tensor:
		return 3
	}
	return 0
}

// Wrap a value into a view of the matching rank.
func Wrap[V Typed](st *emitter.Stack, v value.Value) (V, error) {
	var view V
	if rank := rankOf[V](); !v.IsEmpty() && v.Rank() != rank {
		return view, irerr.Shapef("cannot view a value of shape %v as a %T", v.Extents(), view)
	}
	b := base{st: st, v: v}
	switch p := any(&view).(type) {
	case *Scalar:
		*p = Scalar{b}
	case *Vector:
		*p = Vector{b}
	case *Matrix:
		*p = Matrix{b}
	case *Tensor:
		*p = Tensor{b}
	}
	return view, nil
}

// wrapAny wraps a value into a view given its rank.
func wrapAny(st *emitter.Stack, v value.Value) (View, error) {
	switch v.Rank() {
	case 0:
		return Wrap[Scalar](st, v)
	case 1:
		return Wrap[Vector](st, v)
	case 2:
		return Wrap[Matrix](st, v)
	case 3:
		return Wrap[Tensor](st, v)
	}
	return nil, irerr.Shapef("no view for a value of rank %d", v.Rank())
}

// rewrap wraps a value into a view of the same type as like.
func rewrap(like View, v value.Value) (View, error) {
	switch like.(type) {
	case Scalar:
		return Wrap[Scalar](like.Stack(), v)
	case Vector:
		return Wrap[Vector](like.Stack(), v)
	case Matrix:
		return Wrap[Matrix](like.Stack(), v)
	case Tensor:
		return Wrap[Tensor](like.Stack(), v)
	}
	return nil, irerr.Typef("view of type %T not supported", like)
}

// Proto returns a view without storage, used to declare signatures.
func Proto[V Typed](dt dtype.DataType, lay layout.Layout) (V, error) {
	return Wrap[V](nil, value.Proto(dt, lay))
}

// ProtoShape returns a view without storage with a row-major layout.
func ProtoShape[V Typed](dt dtype.DataType, extents ...int) (V, error) {
	lay, err := layout.New(extents...)
	if err != nil {
		var zero V
		return zero, err
	}
	return Proto[V](dt, lay)
}

// Allocate returns a new zero-initialized view.
func Allocate[V Typed](st *emitter.Stack, dt dtype.DataType, lay layout.Layout) (V, error) {
	if lay.Rank() != rankOf[V]() {
		var zero V
		return zero, irerr.Shapef("cannot allocate a %T with a layout of rank %d", zero, lay.Rank())
	}
	v, err := st.Current().Allocate(dt, lay)
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, v)
}

// AllocateShape returns a new zero-initialized view with a row-major layout.
func AllocateShape[V Typed](st *emitter.Stack, dt dtype.DataType, extents ...int) (V, error) {
	lay, err := layout.New(extents...)
	if err != nil {
		var zero V
		return zero, err
	}
	return Allocate[V](st, dt, lay)
}

// GlobalAllocate returns a view living as long as the current context.
// Views allocated with the same name alias the same storage.
func GlobalAllocate[V Typed](st *emitter.Stack, name string, init V) (V, error) {
	v, err := st.Current().GlobalAllocate(name, init.Value())
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, v)
}

func constant[V Typed, T dtype.GoDataType](st *emitter.Stack, data []T, extents ...int) (V, error) {
	host, err := value.FromSlice(data, extents...)
	if err != nil {
		var zero V
		return zero, err
	}
	defer host.Release()
	v, err := st.Current().Constant(host)
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](st, v)
}

// NewScalar returns a scalar initialized with a Go value.
func NewScalar[T dtype.GoDataType](st *emitter.Stack, x T) (Scalar, error) {
	return constant[Scalar](st, []T{x})
}

// NewVector returns a vector initialized with a copy of a slice.
func NewVector[T dtype.GoDataType](st *emitter.Stack, data []T) (Vector, error) {
	return constant[Vector](st, data, len(data))
}

// NewMatrix returns a row-major matrix initialized with a copy of nested slices.
func NewMatrix[T dtype.GoDataType](st *emitter.Stack, data [][]T) (Matrix, error) {
	flat, cols, err := flatten(data)
	if err != nil {
		return Matrix{}, err
	}
	return constant[Matrix](st, flat, len(data), cols)
}

// NewTensor returns a row-major tensor initialized with a copy of nested slices.
func NewTensor[T dtype.GoDataType](st *emitter.Stack, data [][][]T) (Tensor, error) {
	var rows [][]T
	cols := -1
	for _, matrix := range data {
		if cols >= 0 && len(matrix) != cols {
			return Tensor{}, irerr.Shapef("ragged tensor: got %d columns but want %d", len(matrix), cols)
		}
		cols = len(matrix)
		rows = append(rows, matrix...)
	}
	flat, channels, err := flatten(rows)
	if err != nil {
		return Tensor{}, err
	}
	return constant[Tensor](st, flat, len(data), max(cols, 0), channels)
}

func flatten[T any](data [][]T) ([]T, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}
	n := len(data[0])
	flat := make([]T, 0, len(data)*n)
	for _, row := range data {
		if len(row) != n {
			return nil, 0, irerr.Shapef("ragged data: got a row of length %d but want %d", len(row), n)
		}
		flat = append(flat, row...)
	}
	return flat, n, nil
}

// Elements returns a copy of the elements of a host view in row-major order.
func Elements[T dtype.GoDataType](x View) ([]T, error) {
	return value.ToSlice[T](x.Value())
}

// Get returns the element of a host scalar.
func Get[T dtype.GoDataType](s Scalar) (T, error) {
	ptr, err := value.Get[T](s.v)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ptr, nil
}
