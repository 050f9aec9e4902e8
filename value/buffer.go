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
	"fmt"
	"sync/atomic"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/irerr"
)

// Data is the storage referenced by a value.
type Data interface {
	// Backend returns the name of the backend able to read the data.
	Backend() string
}

// HostBackend is the name of the backend owning host memory.
const HostBackend = "host"

// Buffer is a typed linear storage in host memory.
type Buffer struct {
	dt       dtype.DataType
	data     any
	size     int
	owned    bool
	released atomic.Bool
}

var _ Data = (*Buffer)(nil)

var liveBuffers atomic.Int64

// LiveBuffers returns the number of owning buffers that have not been released.
func LiveBuffers() int {
	return int(liveBuffers.Load())
}

func makeSlice(dt dtype.DataType, size int) (any, error) {
	switch dt {
	case dtype.Bool:
		return make([]bool, size), nil
	case dtype.Float32:
		return make([]float32, size), nil
	case dtype.Float64:
		return make([]float64, size), nil
	case dtype.Int32:
		return make([]int32, size), nil
	case dtype.Int64:
		return make([]int64, size), nil
	case dtype.Uint32:
		return make([]uint32, size), nil
	case dtype.Uint64:
		return make([]uint64, size), nil
	default:
		return nil, irerr.Typef("data type %s not supported", dt.String())
	}
}

// NewBuffer allocates a new zero-initialized buffer owning its storage.
func NewBuffer(dt dtype.DataType, size int) (*Buffer, error) {
	if size < 0 {
		return nil, irerr.Shapef("cannot allocate a buffer of negative size %d", size)
	}
	data, err := makeSlice(dt, size)
	if err != nil {
		return nil, err
	}
	liveBuffers.Add(1)
	return &Buffer{dt: dt, data: data, size: size, owned: true}, nil
}

// ExternalBuffer wraps a slice owned by the caller.
// The returned buffer never releases the slice.
func ExternalBuffer(storage any) (*Buffer, error) {
	var dt dtype.DataType
	var size int
	switch s := storage.(type) {
	case []bool:
		dt, size = dtype.Bool, len(s)
	case []float32:
		dt, size = dtype.Float32, len(s)
	case []float64:
		dt, size = dtype.Float64, len(s)
	case []int32:
		dt, size = dtype.Int32, len(s)
	case []int64:
		dt, size = dtype.Int64, len(s)
	case []uint32:
		dt, size = dtype.Uint32, len(s)
	case []uint64:
		dt, size = dtype.Uint64, len(s)
	default:
		return nil, irerr.Typef("storage of type %T not supported", storage)
	}
	return &Buffer{dt: dt, data: storage, size: size}, nil
}

// Backend returns the host backend name.
func (b *Buffer) Backend() string {
	return HostBackend
}

// DType returns the data type of the elements in the buffer.
func (b *Buffer) DType() dtype.DataType {
	return b.dt
}

// Len returns the number of elements in the buffer.
func (b *Buffer) Len() int {
	return b.size
}

// Owned returns true if the buffer owns its storage.
func (b *Buffer) Owned() bool {
	return b.owned
}

// Released returns true if the storage of the buffer has been released.
func (b *Buffer) Released() bool {
	return b.released.Load()
}

// Release the storage of the buffer.
// Releasing a buffer more than once or releasing an external buffer does nothing.
func (b *Buffer) Release() {
	if !b.owned {
		return
	}
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	liveBuffers.Add(-1)
}

func (b *Buffer) check() error {
	if b.Released() {
		return irerr.Contextf("access to a released %s buffer", b.dt.String())
	}
	return nil
}

// Slice returns the typed storage of a buffer.
func Slice[T dtype.GoDataType](b *Buffer) ([]T, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	s, ok := b.data.([]T)
	if !ok {
		var zero T
		return nil, irerr.Typef("cannot access %s data as %T", b.dt.String(), zero)
	}
	return s, nil
}

// Raw returns the storage of the buffer as a slice (for example []float32).
func (b *Buffer) Raw() (any, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.data, nil
}

// String returns a short description of the buffer.
func (b *Buffer) String() string {
	return fmt.Sprintf("%s[%d]", TypeName(b.dt), b.size)
}

var typeNames = map[dtype.DataType]string{
	dtype.Bool:    "bool",
	dtype.Float32: "float32",
	dtype.Float64: "float64",
	dtype.Int32:   "int32",
	dtype.Int64:   "int64",
	dtype.Uint32:  "uint32",
	dtype.Uint64:  "uint64",
}

// TypeName returns the Go name of the elements of a data type.
func TypeName(dt dtype.DataType) string {
	if name, ok := typeNames[dt]; ok {
		return name
	}
	return dt.String()
}
