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

// Package fmtarray formats arrays into string.
package fmtarray

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/backend/dtype"
)

type builder[T dtype.GoDataType] struct {
	w    *strings.Builder
	at   func([]int) T
	axes []int
}

func newBuilder[T dtype.GoDataType](at func([]int) T, axes []int) *builder[T] {
	return &builder[T]{
		w:    &strings.Builder{},
		at:   at,
		axes: axes,
	}
}

func (b *builder[T]) toValue(x T) string {
	var fmtstr string
	switch any(x).(type) {
	case float32:
		fmtstr = "%.6f"
	case float64:
		fmtstr = "%.10f"
	default:
		return fmt.Sprint(x)
	}

	result := fmt.Sprintf(fmtstr, x)
	if strings.ContainsRune(result, '.') {
		result = strings.TrimRight(result, "0")
		result = strings.TrimSuffix(result, ".")
	}
	return result
}

func (b *builder[T]) printScalar() {
	b.w.WriteString("(")
	b.w.WriteString(b.toValue(b.at(nil)))
	b.w.WriteString(")")
}

func (b *builder[T]) printVector(p []int) {
	fullPos := make([]int, len(b.axes))
	copy(fullPos, p)
	vecSize := b.axes[len(b.axes)-1]

	vec := make([]string, vecSize)
	for i := range vecSize {
		fullPos[len(fullPos)-1] = i
		vec[i] = b.toValue(b.at(fullPos))
	}
	fmt.Fprintf(b.w, "{%s}", strings.Join(vec, ", "))
}

func toPosition(parentPosition []int) []int {
	position := append([]int{}, parentPosition...)
	return append(position, 0)
}

const tab = "\t"

func (b *builder[T]) printMatrix(indent string, parentPosition []int) {
	numRows := b.axes[len(b.axes)-2]
	position := toPosition(parentPosition)
	b.w.WriteString("{\n")
	for i := range numRows {
		b.w.WriteString(indent + tab)
		position[len(position)-1] = i
		b.printVector(position)
		b.w.WriteString(",\n")
	}
	b.w.WriteString(indent + "}")
}

func (b *builder[T]) printRec(indent string, parentPosition []int) {
	if len(b.axes)-len(parentPosition) == 2 {
		b.printMatrix(indent, parentPosition)
		return
	}
	b.w.WriteString("{\n")
	position := toPosition(parentPosition)
	for i := range b.axes[len(parentPosition)] {
		position[len(position)-1] = i
		b.w.WriteString(indent + tab)
		b.printRec(indent+tab, position)
		b.w.WriteString(",\n")
	}
	b.w.WriteString(indent + "}")
}

func (b *builder[T]) printType() {
	for _, size := range b.axes {
		fmt.Fprintf(b.w, "[%d]", size)
	}
	var zero T
	fmt.Fprintf(b.w, "%T", zero)
}

func (b *builder[T]) printData() {
	for _, size := range b.axes {
		if size == 0 {
			b.w.WriteString("{}")
			return
		}
	}
	switch len(b.axes) {
	case 0:
		b.printScalar()
	case 1:
		b.printVector(nil)
	default:
		b.printRec("", nil)
	}
}

func rowMajor[T dtype.GoDataType](data []T, axes []int) (func([]int) T, error) {
	offsets := make([]int, len(axes))
	total := 1
	for i := len(axes) - 1; i >= 0; i-- {
		offsets[i] = total
		total *= axes[i]
	}
	if total != len(data) {
		return nil, errors.Errorf("len(data)=%d does not match axes %v=%d", len(data), axes, total)
	}
	return func(pos []int) T {
		index := 0
		for i, p := range pos {
			index += offsets[i] * p
		}
		return data[index]
	}, nil
}

// SprintAt returns a string representation of an array
// given its axes and a function to access its elements.
func SprintAt[T dtype.GoDataType](axes []int, at func(pos []int) T) string {
	b := newBuilder(at, axes)
	b.printType()
	b.printData()
	return b.w.String()
}

// SDataPrint returns a string representation of the content of an array without the type.
func SDataPrint[T dtype.GoDataType](data []T, axes []int) string {
	at, err := rowMajor(data, axes)
	if err != nil {
		return err.Error()
	}
	b := newBuilder(at, axes)
	b.printData()
	return b.w.String()
}

// Sprint returns a string representation of an array stored in row-major order.
func Sprint[T dtype.GoDataType](data []T, axes []int) string {
	at, err := rowMajor(data, axes)
	if err != nil {
		return err.Error()
	}
	return SprintAt(axes, at)
}
