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

package fmtarray_test

import (
	"strings"
	"testing"

	"github.com/gx-org/vir/fmt/fmtarray"
)

func iota(axes []int) []int32 {
	total := int32(1)
	for _, axisSize := range axes {
		total *= int32(axisSize)
	}
	data := make([]int32, total)
	for i := range total {
		data[i] = i
	}
	return data
}

func TestSprintRowMajor(t *testing.T) {
	tests := []struct {
		data []int32
		axes []int
		want string
	}{
		{
			data: []int32{42},
			want: "int32(42)",
		},
		{
			data: []int32{1, 2, 3},
			axes: []int{3},
			want: "[3]int32{1, 2, 3}",
		},
		{
			data: []int32{},
			axes: []int{0, 2},
			want: "[0][2]int32{}",
		},
		{
			axes: []int{2, 3},
			want: `
[2][3]int32{
	{0, 1, 2},
	{3, 4, 5},
}
`,
		},
		{
			axes: []int{2, 2, 3},
			want: `
[2][2][3]int32{
	{
		{0, 1, 2},
		{3, 4, 5},
	},
	{
		{6, 7, 8},
		{9, 10, 11},
	},
}
`,
		},
	}
	for i, test := range tests {
		if test.data == nil {
			test.data = iota(test.axes)
		}
		test.want = strings.TrimSpace(test.want)
		got := fmtarray.Sprint(test.data, test.axes)
		if got != test.want {
			t.Errorf("test %d: incorrect array formatting:\naxes: %v\ngot:\n%s\nwant:\n%s\n", i, test.axes, got, test.want)
		}
	}
}

func TestSprintAtStrided(t *testing.T) {
	// 2x3 matrix stored column by column.
	data := []float32{1, 4, 2.5, 5, 3, 6}
	got := fmtarray.SprintAt([]int{2, 3}, func(pos []int) float32 {
		return data[pos[1]*2+pos[0]]
	})
	want := strings.TrimSpace(`
[2][3]float32{
	{1, 2.5, 3},
	{4, 5, 6},
}
`)
	if got != want {
		t.Errorf("incorrect array formatting:\ngot:\n%s\nwant:\n%s\n", got, want)
	}
}

func TestSDataPrint(t *testing.T) {
	got := fmtarray.SDataPrint([]bool{true, false}, []int{2})
	if want := "{true, false}"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	got = fmtarray.SDataPrint([]bool{true}, []int{2})
	if !strings.Contains(got, "does not match") {
		t.Errorf("got %q but want a size mismatch error", got)
	}
}
