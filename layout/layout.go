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

// Package layout describes how the elements of N-dimensional arrays
// are stored in linear memory.
//
// A logical shape lists the extent of each dimension as seen by the user.
// A layout maps logical indices onto linear offsets: each logical dimension
// is stored at a physical position given by a dimension order, each physical
// position has a stride, and all offsets are shifted by a base offset.
// Slicing a layout never moves data: it returns a new layout addressing a
// subset of the same storage.
package layout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/vir/irerr"
)

// Shape is the logical shape of an array: the extent of each dimension.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Size returns the number of elements in the shape.
func (s Shape) Size() int {
	size := 1
	for _, n := range s {
		size *= n
	}
	return size
}

// Equal returns true if both shapes have the same extents.
func (s Shape) Equal(o Shape) bool {
	return slices.Equal(s, o)
}

func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// DimensionOrder lists, for each physical position, the logical dimension
// stored at that position. Physical positions are ordered from the
// outermost (largest stride) to the innermost (stride 1 for dense layouts).
type DimensionOrder []int

var (
	// RowMajorMatrixOrder stores matrices row by row.
	RowMajorMatrixOrder = DimensionOrder{0, 1}
	// ColumnMajorMatrixOrder stores matrices column by column.
	ColumnMajorMatrixOrder = DimensionOrder{1, 0}
	// RowMajorTensorOrder stores tensors (row, column, channel) with channels innermost.
	RowMajorTensorOrder = DimensionOrder{0, 1, 2}
	// ChannelMajorTensorOrder stores tensors (row, column, channel) with channels outermost.
	ChannelMajorTensorOrder = DimensionOrder{2, 0, 1}
)

// RowMajor returns the identity order for a given rank.
func RowMajor(rank int) DimensionOrder {
	order := make(DimensionOrder, rank)
	for i := range order {
		order[i] = i
	}
	return order
}

// Validate returns an error if the order is not a permutation of [0,rank).
func (o DimensionOrder) Validate(rank int) error {
	if len(o) != rank {
		return irerr.Shapef("dimension order %v has %d dimensions but %d are required", []int(o), len(o), rank)
	}
	seen := make([]bool, rank)
	for _, dim := range o {
		if dim < 0 || dim >= rank || seen[dim] {
			return irerr.Shapef("dimension order %v is not a permutation of [0,%d)", []int(o), rank)
		}
		seen[dim] = true
	}
	return nil
}

// IsRowMajor returns true if the order is the identity.
func (o DimensionOrder) IsRowMajor() bool {
	for i, dim := range o {
		if i != dim {
			return false
		}
	}
	return true
}

// Layout maps logical indices to linear offsets in storage.
//
// The zero value is the layout of a single element at offset 0.
// Layouts are immutable.
type Layout struct {
	// extents is indexed by logical dimension.
	extents []int
	// order, physical, and strides are indexed by physical position.
	order    DimensionOrder
	physical []int
	strides  []int
	offset   int
	// capacity is the number of elements of the storage the layout was
	// declared over: the base offset plus the product of the physical extents.
	// Slices keep the capacity of the layout they come from.
	capacity int
}

// Scalar is the layout of a single element.
var Scalar = Layout{}

func stridesFor(physical []int) []int {
	strides := make([]int, len(physical))
	stride := 1
	for p := len(physical) - 1; p >= 0; p-- {
		strides[p] = stride
		stride *= physical[p]
	}
	return strides
}

func checkExtents(extents []int) error {
	for _, n := range extents {
		if n < 0 {
			return irerr.Shapef("negative extent in %v", extents)
		}
	}
	return nil
}

// New returns a dense row-major layout given logical extents.
func New(extents ...int) (Layout, error) {
	if err := checkExtents(extents); err != nil {
		return Layout{}, err
	}
	return Layout{
		extents:  slices.Clone(extents),
		order:    RowMajor(len(extents)),
		physical: slices.Clone(extents),
		strides:  stridesFor(extents),
		capacity: Shape(extents).Size(),
	}, nil
}

// NewOrdered returns a dense layout given the physical extents,
// listed in physical order, and the dimension order.
// For example, a 2x3 matrix stored column-major is:
//
//	NewOrdered([]int{3, 2}, ColumnMajorMatrixOrder)
func NewOrdered(physical []int, order DimensionOrder) (Layout, error) {
	logical := make([]int, len(physical))
	if err := order.Validate(len(physical)); err != nil {
		return Layout{}, err
	}
	for p, dim := range order {
		logical[dim] = physical[p]
	}
	return NewPadded(logical, physical, 0, order)
}

// NewPadded returns a layout with physical extents (in physical order)
// that can be larger than the logical extents (in logical order),
// and with a base offset.
func NewPadded(logical, physical []int, offset int, order DimensionOrder) (Layout, error) {
	if len(logical) != len(physical) {
		return Layout{}, irerr.Shapef("logical extents %v and physical extents %v have different ranks", logical, physical)
	}
	if err := order.Validate(len(logical)); err != nil {
		return Layout{}, err
	}
	if err := checkExtents(logical); err != nil {
		return Layout{}, err
	}
	for p, dim := range order {
		if logical[dim] > physical[p] {
			return Layout{}, irerr.Shapef("logical extent %d of dimension %d larger than physical extent %d", logical[dim], dim, physical[p])
		}
	}
	if offset < 0 {
		return Layout{}, irerr.Shapef("negative offset %d", offset)
	}
	return Layout{
		extents:  slices.Clone(logical),
		order:    slices.Clone(order),
		physical: slices.Clone(physical),
		strides:  stridesFor(physical),
		offset:   offset,
		capacity: offset + Shape(physical).Size(),
	}, nil
}

// Rank returns the number of logical dimensions.
func (l Layout) Rank() int {
	return len(l.extents)
}

// Extents returns the logical shape.
func (l Layout) Extents() Shape {
	return slices.Clone(l.extents)
}

// Extent returns the logical extent of a dimension.
func (l Layout) Extent(dim int) int {
	return l.extents[dim]
}

// PhysicalExtents returns the extents of the storage, in physical order.
func (l Layout) PhysicalExtents() Shape {
	return slices.Clone(l.physical)
}

// Order returns the dimension order.
func (l Layout) Order() DimensionOrder {
	return slices.Clone(l.order)
}

// Strides returns the strides, in physical order.
func (l Layout) Strides() []int {
	return slices.Clone(l.strides)
}

// PhysicalPosition returns the physical position of a logical dimension.
func (l Layout) PhysicalPosition(dim int) int {
	return slices.Index(l.order, dim)
}

// Stride returns the stride of a logical dimension.
func (l Layout) Stride(dim int) int {
	return l.strides[l.PhysicalPosition(dim)]
}

// BaseOffset returns the offset of the first element.
func (l Layout) BaseOffset() int {
	return l.offset
}

// Size returns the number of logical elements.
func (l Layout) Size() int {
	return Shape(l.extents).Size()
}

// Capacity returns the number of elements of the storage described by
// the layout: the base offset plus the product of the physical extents.
// Padding is included. Slices report the capacity of their parent.
func (l Layout) Capacity() int {
	return max(l.capacity, l.MemorySize())
}

// MemorySize returns the minimum number of elements storage needs
// to hold for all offsets of the layout to be valid.
// It is smaller than Capacity if the layout is padded.
func (l Layout) MemorySize() int {
	if l.Size() == 0 {
		return l.offset
	}
	last := l.offset
	for dim, n := range l.extents {
		last += (n - 1) * l.Stride(dim)
	}
	return last + 1
}

// IsContiguous returns true if the elements, enumerated in row-major
// logical order, are stored at consecutive offsets.
func (l Layout) IsContiguous() bool {
	want := 1
	for dim := len(l.extents) - 1; dim >= 0; dim-- {
		n := l.extents[dim]
		if n == 1 {
			continue
		}
		if l.Stride(dim) != want {
			return false
		}
		want *= n
	}
	return true
}

// Equal returns true if both layouts address the same offsets in the same order.
func (l Layout) Equal(o Layout) bool {
	if !slices.Equal(l.extents, o.extents) {
		return false
	}
	if l.Size() == 0 {
		return true
	}
	if l.offset != o.offset {
		return false
	}
	for dim, n := range l.extents {
		if n > 1 && l.Stride(dim) != o.Stride(dim) {
			return false
		}
	}
	return true
}

// Offset returns the linear offset of a logical index.
func (l Layout) Offset(index ...int) (int, error) {
	if len(index) != len(l.extents) {
		return 0, irerr.Indexf("index %v has %d coordinates but layout %s has rank %d", index, len(index), l, len(l.extents))
	}
	offset := l.offset
	for dim, i := range index {
		if i < 0 || i >= l.extents[dim] {
			return 0, irerr.Indexf("index %v out of range for shape %v", index, l.extents)
		}
		offset += l.Stride(dim) * i
	}
	return offset, nil
}

// Element returns the rank-0 layout of the element at the given index.
func (l Layout) Element(index ...int) (Layout, error) {
	offset, err := l.Offset(index...)
	if err != nil {
		return Layout{}, err
	}
	return Layout{offset: offset, capacity: l.capacity}, nil
}

// Shift returns the same layout with a base offset moved by delta.
func (l Layout) Shift(delta int) Layout {
	r := l.clone()
	r.offset += delta
	return r
}

func (l Layout) clone() Layout {
	return Layout{
		extents:  slices.Clone(l.extents),
		order:    slices.Clone(l.order),
		physical: slices.Clone(l.physical),
		strides:  slices.Clone(l.strides),
		offset:   l.offset,
		capacity: l.capacity,
	}
}

func (l Layout) checkDim(dim int) error {
	if dim < 0 || dim >= len(l.extents) {
		return irerr.Indexf("dimension %d out of range for layout of rank %d", dim, len(l.extents))
	}
	return nil
}

// Slice fixes the coordinate of a dimension and returns a layout
// of reduced rank addressing the same storage.
func (l Layout) Slice(dim, i int) (Layout, error) {
	if err := l.checkDim(dim); err != nil {
		return Layout{}, err
	}
	if i < 0 || i >= l.extents[dim] {
		return Layout{}, irerr.Indexf("index %d out of range [0,%d) for dimension %d", i, l.extents[dim], dim)
	}
	pos := l.PhysicalPosition(dim)
	r := Layout{
		extents:  slices.Delete(slices.Clone(l.extents), dim, dim+1),
		physical: slices.Delete(slices.Clone(l.physical), pos, pos+1),
		strides:  slices.Delete(slices.Clone(l.strides), pos, pos+1),
		offset:   l.offset + l.strides[pos]*i,
		capacity: l.capacity,
	}
	r.order = make(DimensionOrder, 0, len(l.order)-1)
	for _, d := range l.order {
		switch {
		case d == dim:
			continue
		case d > dim:
			r.order = append(r.order, d-1)
		default:
			r.order = append(r.order, d)
		}
	}
	return r, nil
}

// SubRange restricts a dimension to [start,start+n) and returns a layout
// of the same rank addressing the same storage.
func (l Layout) SubRange(dim, start, n int) (Layout, error) {
	if err := l.checkDim(dim); err != nil {
		return Layout{}, err
	}
	if start < 0 || n < 0 || start+n > l.extents[dim] {
		return Layout{}, irerr.Indexf("range [%d,%d) out of range [0,%d) for dimension %d", start, start+n, l.extents[dim], dim)
	}
	r := l.clone()
	r.extents[dim] = n
	r.offset += l.Stride(dim) * start
	return r, nil
}

// Compact returns a dense row-major layout with the same logical extents.
func (l Layout) Compact() Layout {
	r, _ := New(l.extents...)
	return r
}

// Indices iterates over all the logical indices of the layout in row-major
// order, that is the last dimension varies the fastest.
// The slice passed to yield is reused between iterations.
func (l Layout) Indices() func(yield func([]int) bool) {
	return func(yield func([]int) bool) {
		if l.Size() == 0 {
			return
		}
		index := make([]int, len(l.extents))
		for {
			if !yield(index) {
				return
			}
			dim := len(index) - 1
			for ; dim >= 0; dim-- {
				index[dim]++
				if index[dim] < l.extents[dim] {
					break
				}
				index[dim] = 0
			}
			if dim < 0 {
				return
			}
		}
	}
}

// Offsets returns the linear offsets of all the logical elements
// in row-major order.
func (l Layout) Offsets() []int {
	offsets := make([]int, 0, l.Size())
	strides := make([]int, len(l.extents))
	for dim := range l.extents {
		strides[dim] = l.Stride(dim)
	}
	for index := range l.Indices() {
		offset := l.offset
		for dim, i := range index {
			offset += strides[dim] * i
		}
		offsets = append(offsets, offset)
	}
	return offsets
}

// Shape returns the logical shape of the layout for a given data type.
func (l Layout) Shape(dt dtype.DataType) *shape.Shape {
	return &shape.Shape{
		DType:       dt,
		AxisLengths: slices.Clone(l.extents),
	}
}

// String representation of the layout.
func (l Layout) String() string {
	if len(l.extents) == 0 {
		if l.offset == 0 {
			return "[]"
		}
		return fmt.Sprintf("[]@%d", l.offset)
	}
	var s strings.Builder
	s.WriteString(fmt.Sprint(l.extents))
	if !l.order.IsRowMajor() {
		fmt.Fprintf(&s, "order%v", []int(l.order))
	}
	if !slices.Equal(l.strides, stridesFor(l.physicalOfLogical())) {
		fmt.Fprintf(&s, "strides%v", l.strides)
	}
	if l.offset != 0 {
		fmt.Fprintf(&s, "@%d", l.offset)
	}
	return s.String()
}

func (l Layout) physicalOfLogical() []int {
	ext := make([]int, len(l.order))
	for p, dim := range l.order {
		ext[p] = l.extents[dim]
	}
	return ext
}
