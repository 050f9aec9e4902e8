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
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/value"
)

// Coord selects elements along one dimension of a view.
//
// An Idx or an integer Scalar selects one coordinate and removes the
// dimension. All keeps the dimension.
type Coord interface {
	sliceAt(ctx emitter.Context, v value.Value, dim int) (_ value.Value, removed bool, _ error)
}

// Idx is a coordinate known when the code is written.
type Idx int

func (i Idx) sliceAt(_ emitter.Context, v value.Value, dim int) (value.Value, bool, error) {
	v, err := v.Slice(dim, int(i))
	return v, true, err
}

// sliceAt slices a value with a coordinate read from the scalar
// when the context executes the operation.
func (s Scalar) sliceAt(ctx emitter.Context, v value.Value, dim int) (value.Value, bool, error) {
	v, err := ctx.Slice(v, dim, s.v)
	return v, true, err
}

type all struct{}

func (all) sliceAt(_ emitter.Context, v value.Value, _ int) (value.Value, bool, error) {
	return v, false, nil
}

// All keeps all the coordinates of a dimension.
var All Coord = all{}

func (b base) slice(coords ...Coord) (value.Value, error) {
	if len(coords) != b.v.Rank() {
		return value.Value{}, irerr.Indexf("%d coordinates to index a value of rank %d", len(coords), b.v.Rank())
	}
	v, dim := b.v, 0
	for _, coord := range coords {
		var removed bool
		var err error
		if v, removed, err = coord.sliceAt(b.ctx(), v, dim); err != nil {
			return value.Value{}, err
		}
		if !removed {
			dim++
		}
	}
	return v, nil
}

func sliceAs[V Typed](b base, coords ...Coord) (V, error) {
	v, err := b.slice(coords...)
	if err != nil {
		var zero V
		return zero, err
	}
	return Wrap[V](b.st, v)
}

func (b base) subRange(dim, start, n int) (value.Value, error) {
	return b.v.SubRange(dim, start, n)
}

// Size returns the number of elements of the vector.
func (x Vector) Size() int {
	return x.v.Layout().Extent(0)
}

// At returns a scalar aliasing an element of the vector.
func (x Vector) At(i Coord) (Scalar, error) {
	return sliceAs[Scalar](x.base, i)
}

// SubVector returns a vector aliasing n elements starting at start.
func (x Vector) SubVector(start, n int) (Vector, error) {
	v, err := x.subRange(0, start, n)
	if err != nil {
		return Vector{}, err
	}
	return Wrap[Vector](x.st, v)
}

// Rows returns the number of rows.
func (x Matrix) Rows() int {
	return x.v.Layout().Extent(0)
}

// Columns returns the number of columns.
func (x Matrix) Columns() int {
	return x.v.Layout().Extent(1)
}

// At returns a scalar aliasing an element of the matrix.
func (x Matrix) At(row, col Coord) (Scalar, error) {
	return sliceAs[Scalar](x.base, row, col)
}

// Row returns a vector aliasing a row of the matrix.
func (x Matrix) Row(row Coord) (Vector, error) {
	return sliceAs[Vector](x.base, row, All)
}

// Column returns a vector aliasing a column of the matrix.
func (x Matrix) Column(col Coord) (Vector, error) {
	return sliceAs[Vector](x.base, All, col)
}

// Slice returns a view aliasing the elements selected by the coordinates.
func (x Matrix) Slice(row, col Coord) (View, error) {
	v, err := x.slice(row, col)
	if err != nil {
		return nil, err
	}
	return wrapAny(x.st, v)
}

// SubMatrix returns a matrix aliasing a block of the matrix.
func (x Matrix) SubMatrix(row, rows, col, cols int) (Matrix, error) {
	v, err := x.subRange(0, row, rows)
	if err != nil {
		return Matrix{}, err
	}
	if v, err = v.SubRange(1, col, cols); err != nil {
		return Matrix{}, err
	}
	return Wrap[Matrix](x.st, v)
}

// Rows returns the extent of the first dimension.
func (x Tensor) Rows() int {
	return x.v.Layout().Extent(0)
}

// Columns returns the extent of the second dimension.
func (x Tensor) Columns() int {
	return x.v.Layout().Extent(1)
}

// Channels returns the extent of the third dimension.
func (x Tensor) Channels() int {
	return x.v.Layout().Extent(2)
}

// At returns a scalar aliasing an element of the tensor.
func (x Tensor) At(row, col, channel Coord) (Scalar, error) {
	return sliceAs[Scalar](x.base, row, col, channel)
}

// Slice returns a view aliasing the elements selected by the coordinates.
// The rank of the view is the number of All coordinates.
func (x Tensor) Slice(row, col, channel Coord) (View, error) {
	v, err := x.slice(row, col, channel)
	if err != nil {
		return nil, err
	}
	return wrapAny(x.st, v)
}

// Channel returns a vector aliasing all the channels of a pixel.
func (x Tensor) Channel(row, col Coord) (Vector, error) {
	return sliceAs[Vector](x.base, row, col, All)
}

// SubTensor returns a tensor aliasing n coordinates of a dimension starting at start.
func (x Tensor) SubTensor(dim, start, n int) (Tensor, error) {
	v, err := x.subRange(dim, start, n)
	if err != nil {
		return Tensor{}, err
	}
	return Wrap[Tensor](x.st, v)
}
