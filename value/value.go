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

// Package value implements typed handles over N-dimensional memory.
//
// A Value is an element type, a layout, and a reference to storage. A
// value either owns its storage (allocated with Allocate or FromSlice),
// or aliases storage owned by something else (FromExternalBuffer, or any
// view derived from another value with Offset, Slice, or SubRange).
// Only owning values release storage.
//
// Values whose data is not in host memory (for example values recorded by
// a code generator) share the same type and layout information but cannot be
// read directly: Get returns a ContextError for them.
package value

import (
	"fmt"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/vir/fmt/fmtarray"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
)

// Value is a typed handle to a region of memory.
type Value struct {
	typed bool
	dt    dtype.DataType
	lay   layout.Layout
	data  Data
	owns  bool
}

// Empty returns a value without type nor storage.
func Empty() Value {
	return Value{}
}

// Proto returns a value with a type and a layout but without storage.
// Protos declare the parameters of functions.
func Proto(dt dtype.DataType, lay layout.Layout) Value {
	return Value{typed: true, dt: dt, lay: lay}
}

// New returns a value aliasing some data.
func New(dt dtype.DataType, lay layout.Layout, data Data) Value {
	return Value{typed: true, dt: dt, lay: lay, data: data}
}

// Allocate returns a new value owning zero-initialized host storage.
func Allocate(dt dtype.DataType, lay layout.Layout) (Value, error) {
	buf, err := NewBuffer(dt, lay.Capacity())
	if err != nil {
		return Value{}, err
	}
	return Value{typed: true, dt: dt, lay: lay, data: buf, owns: true}, nil
}

// View returns a value aliasing a host buffer.
func View(buf *Buffer, lay layout.Layout) (Value, error) {
	if lay.Size() > 0 && lay.MemorySize() > buf.Len() {
		return Value{}, irerr.Shapef("layout %s requires %d elements but buffer %s has %d", lay, lay.MemorySize(), buf, buf.Len())
	}
	return Value{typed: true, dt: buf.DType(), lay: lay, data: buf}, nil
}

// FromExternalBuffer returns a value aliasing a slice owned by the caller.
func FromExternalBuffer(dt dtype.DataType, lay layout.Layout, storage any) (Value, error) {
	buf, err := ExternalBuffer(storage)
	if err != nil {
		return Value{}, err
	}
	if buf.DType() != dt {
		return Value{}, irerr.Typef("storage of type %T cannot hold %s elements", storage, dt.String())
	}
	return View(buf, lay)
}

// FromSlice returns a new value owning a copy of the data.
// The layout of the value is row-major with the given extents.
func FromSlice[T dtype.GoDataType](data []T, extents ...int) (Value, error) {
	lay, err := layout.New(extents...)
	if err != nil {
		return Value{}, err
	}
	if lay.Size() != len(data) {
		return Value{}, irerr.Shapef("%d elements cannot fill shape %v of size %d", len(data), extents, lay.Size())
	}
	v, err := Allocate(dtype.Generic[T](), lay)
	if err != nil {
		return Value{}, err
	}
	dst, err := Slice[T](v.data.(*Buffer))
	if err != nil {
		return Value{}, err
	}
	copy(dst, data)
	return v, nil
}

// IsEmpty returns true if the value has no type.
func (v Value) IsEmpty() bool {
	return !v.typed
}

// IsProto returns true if the value has a type but no storage.
func (v Value) IsProto() bool {
	return v.typed && v.data == nil
}

// DType returns the element type of the value.
func (v Value) DType() dtype.DataType {
	return v.dt
}

// Layout returns the layout of the value.
func (v Value) Layout() layout.Layout {
	return v.lay
}

// Rank returns the number of dimensions.
func (v Value) Rank() int {
	return v.lay.Rank()
}

// Extents returns the logical shape of the value.
func (v Value) Extents() layout.Shape {
	return v.lay.Extents()
}

// Shape returns the shape of the value.
func (v Value) Shape() *shape.Shape {
	return v.lay.Shape(v.dt)
}

// Data returns the storage referenced by the value.
func (v Value) Data() Data {
	return v.data
}

// Buffer returns the host buffer of the value, if any.
func (v Value) Buffer() (*Buffer, bool) {
	buf, ok := v.data.(*Buffer)
	return buf, ok
}

// Owns returns true if the value owns its storage.
func (v Value) Owns() bool {
	return v.owns
}

// Release the storage owned by the value.
// Nothing happens if the value does not own its storage.
func (v Value) Release() {
	if !v.owns {
		return
	}
	if buf, ok := v.Buffer(); ok {
		buf.Release()
	}
}

// Proto returns a value with the same type and layout but without storage.
func (v Value) Proto() Value {
	return Proto(v.dt, v.lay)
}

// Alias returns a value with the same type, layout, and storage
// but which does not own the storage.
func (v Value) Alias() Value {
	v.owns = false
	return v
}

// WithLayout returns a value aliasing the same storage with another layout.
func (v Value) WithLayout(lay layout.Layout) (Value, error) {
	if v.IsEmpty() {
		return Value{}, irerr.Typef("cannot change the layout of an empty value")
	}
	if buf, ok := v.Buffer(); ok {
		return View(buf, lay)
	}
	return Value{typed: true, dt: v.dt, lay: lay, data: v.data}, nil
}

// Offset returns a rank-0 value aliasing the element at a given index.
func (v Value) Offset(index ...int) (Value, error) {
	lay, err := v.lay.Element(index...)
	if err != nil {
		return Value{}, err
	}
	return v.WithLayout(lay)
}

// Slice returns a value of reduced rank aliasing the elements
// for which the coordinate of dimension dim is i.
func (v Value) Slice(dim, i int) (Value, error) {
	lay, err := v.lay.Slice(dim, i)
	if err != nil {
		return Value{}, err
	}
	return v.WithLayout(lay)
}

// SubRange returns a value aliasing the elements for which the coordinate
// of dimension dim is in [start,start+n).
func (v Value) SubRange(dim, start, n int) (Value, error) {
	lay, err := v.lay.SubRange(dim, start, n)
	if err != nil {
		return Value{}, err
	}
	return v.WithLayout(lay)
}

func (v Value) hostBuffer() (*Buffer, error) {
	if v.IsEmpty() {
		return nil, irerr.Contextf("empty value has no data")
	}
	buf, ok := v.Buffer()
	if !ok {
		if v.data == nil {
			return nil, irerr.Contextf("%s value has no data", v.dt.String())
		}
		return nil, irerr.Contextf("%s data owned by the %s backend cannot be accessed from the host", v.dt.String(), v.data.Backend())
	}
	return buf, nil
}

func checkType[T dtype.GoDataType](v Value) error {
	if want := dtype.Generic[T](); v.dt != want {
		return irerr.Typef("cannot access %s value as %s", v.dt.String(), want.String())
	}
	return nil
}

// Elements returns the storage of a host value and the offsets
// of its logical elements in row-major order.
func Elements[T dtype.GoDataType](v Value) ([]T, []int, error) {
	if err := checkType[T](v); err != nil {
		return nil, nil, err
	}
	buf, err := v.hostBuffer()
	if err != nil {
		return nil, nil, err
	}
	data, err := Slice[T](buf)
	if err != nil {
		return nil, nil, err
	}
	return data, v.lay.Offsets(), nil
}

// Get returns a reference to the first element of a value.
// A TypeError is returned if T does not match the type of the value.
func Get[T dtype.GoDataType](v Value) (*T, error) {
	if err := checkType[T](v); err != nil {
		return nil, err
	}
	buf, err := v.hostBuffer()
	if err != nil {
		return nil, err
	}
	data, err := Slice[T](buf)
	if err != nil {
		return nil, err
	}
	offset := v.lay.BaseOffset()
	if offset >= len(data) {
		return nil, irerr.Indexf("offset %d out of buffer %s", offset, buf)
	}
	return &data[offset], nil
}

// TryGet returns a reference to the first element of a value
// or false if the value cannot be accessed as T.
func TryGet[T dtype.GoDataType](v Value) (*T, bool) {
	ptr, err := Get[T](v)
	return ptr, err == nil
}

// ToSlice returns a copy of the elements of a host value in row-major order.
func ToSlice[T dtype.GoDataType](v Value) ([]T, error) {
	data, offsets, err := Elements[T](v)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(offsets))
	for i, offset := range offsets {
		out[i] = data[offset]
	}
	return out, nil
}

func sprint[T dtype.GoDataType](v Value) string {
	data, err := Slice[T](v.data.(*Buffer))
	if err != nil {
		return err.Error()
	}
	return fmtarray.SprintAt(v.lay.Extents(), func(pos []int) T {
		offset, err := v.lay.Offset(pos...)
		if err != nil {
			panic(err)
		}
		return data[offset]
	})
}

// String returns a string representation of the value.
func (v Value) String() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	buf, ok := v.Buffer()
	if !ok || buf.Released() {
		return fmt.Sprintf("%s%s{%v}", TypeName(v.dt), v.lay.String(), v.data)
	}
	switch v.dt {
	case dtype.Bool:
		return sprint[bool](v)
	case dtype.Float32:
		return sprint[float32](v)
	case dtype.Float64:
		return sprint[float64](v)
	case dtype.Int32:
		return sprint[int32](v)
	case dtype.Int64:
		return sprint[int64](v)
	case dtype.Uint32:
		return sprint[uint32](v)
	case dtype.Uint64:
		return sprint[uint64](v)
	}
	return fmt.Sprintf("%s%s{?}", TypeName(v.dt), v.lay.String())
}
