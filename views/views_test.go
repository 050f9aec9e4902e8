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

package views_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/codegen"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/interp"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
	"github.com/gx-org/vir/views"
)

type backend struct {
	name string
	// build calls f with a context of the backend at the top of the stack.
	// It returns a stack from which the functions created by f can be called.
	build func(t *testing.T, tracer emitter.Tracer, f func(st *emitter.Stack) error) *emitter.Stack
}

func options(tracer emitter.Tracer) []emitter.Option {
	if tracer == nil {
		return nil
	}
	return []emitter.Option{emitter.WithTracer{Tracer: tracer}}
}

func newInterpStack(t *testing.T, tracer emitter.Tracer) *emitter.Stack {
	t.Helper()
	ctx, err := interp.New(options(tracer)...)
	if err != nil {
		t.Fatal(err)
	}
	return emitter.NewStack(ctx)
}

var backends = []backend{
	{
		name: interp.Name,
		build: func(t *testing.T, tracer emitter.Tracer, f func(st *emitter.Stack) error) *emitter.Stack {
			t.Helper()
			st := newInterpStack(t, tracer)
			if err := f(st); err != nil {
				t.Fatalf("%+v", err)
			}
			return st
		},
	},
	{
		name: codegen.Name,
		build: func(t *testing.T, tracer emitter.Tracer, f func(st *emitter.Stack) error) *emitter.Stack {
			t.Helper()
			st := newInterpStack(t, nil)
			m, err := codegen.New("views", options(tracer)...)
			if err != nil {
				t.Fatal(err)
			}
			if err := st.With(m, func() error { return f(st) }); err != nil {
				t.Fatalf("%+v", err)
			}
			if err := m.Finalize(); err != nil {
				t.Fatalf("cannot finalize module:\n%s\nerror: %+v", m, err)
			}
			return st
		},
	},
}

func must[T any](x T, err error) func(*testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		return x
	}
}

var (
	referenceFilter = []float64{0.25, 0.5, 0.25}
	referenceSignal = []float64{
		0.42929697, 0.90317845, 0.84490289, 0.66174327, 0.10820399, 0.3511343, 0.58248869, 0.62674724,
		0.11014194, 0.00132073, 0.58431646, 0.39873614, 0.40304155, 0.79139607, 0.97710827, 0.21268128,
	}
	referenceConv = []float64{
		0.77013919, 0.81368187, 0.56914835, 0.30732139, 0.34824032, 0.53571473, 0.48653128,
		0.21208796, 0.17427497, 0.39217245, 0.44620757, 0.49905383, 0.74073549, 0.73957347,
	}
)

type conv1d = views.Func2[views.Vector, views.Vector, views.Vector]

// newConv1D returns a valid 1D correlation of a signal with a filter
// followed by a rectifier.
func newConv1D(t *testing.T, st *emitter.Stack) (*conv1d, error) {
	out := must(views.ProtoShape[views.Vector](dtype.Float64, 14))(t)
	signal := must(views.ProtoShape[views.Vector](dtype.Float64, 16))(t)
	filter := must(views.ProtoShape[views.Vector](dtype.Float64, 3))(t)
	return views.NewFunc2(st, "conv1d", out, signal, filter, func(signal, filter views.Vector) (views.Vector, error) {
		out, err := views.AllocateShape[views.Vector](st, dtype.Float64, signal.Size()-filter.Size()+1)
		if err != nil {
			return views.Vector{}, err
		}
		zero, err := views.NewScalar(st, 0.0)
		if err != nil {
			return views.Vector{}, err
		}
		return out, views.ForRange(st, out.Size(), func(i views.Scalar) error {
			acc, err := views.AllocateShape[views.Scalar](st, dtype.Float64)
			if err != nil {
				return err
			}
			if err := views.ForRange(st, filter.Size(), func(k views.Scalar) error {
				ik, err := i.Add(k)
				if err != nil {
					return err
				}
				s, err := signal.At(ik)
				if err != nil {
					return err
				}
				f, err := filter.At(k)
				if err != nil {
					return err
				}
				p, err := s.Mul(f)
				if err != nil {
					return err
				}
				return acc.AddAssign(p)
			}); err != nil {
				return err
			}
			o, err := out.At(i)
			if err != nil {
				return err
			}
			negative, err := views.Less(acc, zero)
			if err != nil {
				return err
			}
			return views.If(negative, func() error {
				return o.Set(zero)
			}).Else(func() error {
				return o.Set(acc)
			})
		})
	})
}

func callConv(st *emitter.Stack, conv *conv1d, signal, filter []float64) ([]float64, error) {
	s, err := views.NewVector(st, signal)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	f, err := views.NewVector(st, filter)
	if err != nil {
		return nil, err
	}
	defer f.Release()
	out, err := conv.Call(s, f)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	return views.Elements[float64](out)
}

func TestConv1DReference(t *testing.T) {
	for _, bck := range backends {
		var conv *conv1d
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			conv, err = newConv1D(t, st)
			return err
		})
		got, err := callConv(st, conv, referenceSignal, referenceFilter)
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if diff := cmp.Diff(referenceConv, got, cmpopts.EquateApprox(0, 1e-7)); diff != "" {
			t.Errorf("%s: unexpected convolution: %s", bck.name, diff)
		}
	}
}

func TestConv1DBackendEquivalence(t *testing.T) {
	convs := make([]*conv1d, len(backends))
	stacks := make([]*emitter.Stack, len(backends))
	for i, bck := range backends {
		stacks[i] = bck.build(t, nil, func(st *emitter.Stack) (err error) {
			convs[i], err = newConv1D(t, st)
			return err
		})
	}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("interpreted and compiled results are identical", prop.ForAll(
		func(signal, filter []float64) bool {
			want, err := callConv(stacks[0], convs[0], signal, filter)
			if err != nil {
				t.Logf("%s: %+v", backends[0].name, err)
				return false
			}
			for i := 1; i < len(backends); i++ {
				got, err := callConv(stacks[i], convs[i], signal, filter)
				if err != nil {
					t.Logf("%s: %+v", backends[i].name, err)
					return false
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Logf("%s: results differ: %s", backends[i].name, diff)
					return false
				}
			}
			return true
		},
		gen.SliceOfN(16, gen.Float64Range(-1, 1)),
		gen.SliceOfN(3, gen.Float64Range(-1, 1)),
	))
	properties.TestingRun(t)
}

type indexRecorder struct {
	indices [][]int64
}

func (r *indexRecorder) Trace(_ string, vals []value.Value) error {
	index := make([]int64, len(vals))
	for i, v := range vals {
		ptr, err := value.Get[int64](v)
		if err != nil {
			return err
		}
		index[i] = *ptr
	}
	r.indices = append(r.indices, index)
	return nil
}

func enumerate(extents []int) [][]int64 {
	want := [][]int64{{}}
	for _, extent := range extents {
		var next [][]int64
		for _, prefix := range want {
			for i := range extent {
				index := append(append([]int64{}, prefix...), int64(i))
				next = append(next, index)
			}
		}
		want = next
	}
	return want
}

func TestForOrder(t *testing.T) {
	for _, extents := range [][]int{{2, 3}, {3, 4, 2}} {
		want := enumerate(extents)
		for _, bck := range backends {
			rec := &indexRecorder{}
			var proc *views.Procedure
			bck.build(t, rec, func(st *emitter.Stack) (err error) {
				proc, err = views.NewProcedure(st, "loop", nil, func([]views.View) error {
					switch len(extents) {
					case 2:
						m, err := views.AllocateShape[views.Matrix](st, dtype.Float32, extents...)
						if err != nil {
							return err
						}
						return views.For(m, func(index []views.Scalar) error {
							return views.Trace(st, "index", index[0], index[1])
						})
					default:
						x, err := views.AllocateShape[views.Tensor](st, dtype.Float32, extents...)
						if err != nil {
							return err
						}
						return views.For(x, func(index []views.Scalar) error {
							return views.Trace(st, "index", index[0], index[1], index[2])
						})
					}
				})
				return err
			})
			rec.indices = nil
			if err := proc.Call(); err != nil {
				t.Errorf("%s: %+v", bck.name, err)
				continue
			}
			if diff := cmp.Diff(want, rec.indices); diff != "" {
				t.Errorf("%s: shape %v: unexpected iteration order: %s", bck.name, extents, diff)
			}
		}
	}
}

func TestIfChain(t *testing.T) {
	tests := []struct {
		c1, c2 bool
		want   int32
	}{
		{c1: true, c2: true, want: 1},
		{c1: true, c2: false, want: 1},
		{c1: false, c2: true, want: 2},
		{c1: false, c2: false, want: 3},
	}
	for _, bck := range backends {
		var choose *views.Func2[views.Scalar, views.Scalar, views.Scalar]
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			res := must(views.ProtoShape[views.Scalar](dtype.Int32))(t)
			cond := must(views.ProtoShape[views.Scalar](dtype.Bool))(t)
			choose, err = views.NewFunc2(st, "choose", res, cond, cond, func(c1, c2 views.Scalar) (views.Scalar, error) {
				z, err := views.AllocateShape[views.Scalar](st, dtype.Int32)
				if err != nil {
					return views.Scalar{}, err
				}
				store := func(i int) func() error {
					return func() error { return views.Store(z, i) }
				}
				return z, views.If(c1, store(1)).ElseIf(c2, store(2)).Else(store(3))
			})
			return err
		})
		for i, test := range tests {
			c1 := must(views.NewScalar(st, test.c1))(t)
			c2 := must(views.NewScalar(st, test.c2))(t)
			res, err := choose.Call(c1, c2)
			if err != nil {
				t.Errorf("%s: test %d: %+v", bck.name, i, err)
				continue
			}
			if got := must(views.Get[int32](res))(t); got != test.want {
				t.Errorf("%s: test %d: (%v,%v): got %d but want %d", bck.name, i, test.c1, test.c2, got, test.want)
			}
		}
	}
}

func TestDot(t *testing.T) {
	for _, bck := range backends {
		var dot *views.Func2[views.Scalar, views.Vector, views.Vector]
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			res := must(views.ProtoShape[views.Scalar](dtype.Int64))(t)
			vec := must(views.ProtoShape[views.Vector](dtype.Int64, 3))(t)
			dot, err = views.NewFunc2(st, "dot", res, vec, vec, views.Dot)
			return err
		})
		x := must(views.NewVector(st, []int64{1, 2, 3}))(t)
		y := must(views.NewVector(st, []int64{4, 5, 6}))(t)
		res, err := dot.Call(x, y)
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if got := must(views.Get[int64](res))(t); got != 32 {
			t.Errorf("%s: got %d but want 32", bck.name, got)
		}
	}
}

func TestDynamicRowOutOfRange(t *testing.T) {
	for _, bck := range backends {
		var row *views.Func2[views.Vector, views.Matrix, views.Scalar]
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			res := must(views.ProtoShape[views.Vector](dtype.Float32, 3))(t)
			matrix := must(views.ProtoShape[views.Matrix](dtype.Float32, 2, 3))(t)
			index := must(views.ProtoShape[views.Scalar](dtype.Int64))(t)
			row, err = views.NewFunc2(st, "row", res, matrix, index, func(m views.Matrix, i views.Scalar) (views.Vector, error) {
				return m.Row(i)
			})
			return err
		})
		m := must(views.NewMatrix(st, [][]float32{{1, 2, 3}, {4, 5, 6}}))(t)
		got, err := row.Call(m, must(views.NewScalar(st, int64(1)))(t))
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if diff := cmp.Diff([]float32{4, 5, 6}, must(views.Elements[float32](got))(t)); diff != "" {
			t.Errorf("%s: unexpected row: %s", bck.name, diff)
		}
		if _, err := row.Call(m, must(views.NewScalar(st, int64(2)))(t)); !errors.Is(err, irerr.IndexError) {
			t.Errorf("%s: got error %v but want an index error", bck.name, err)
		}
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	st := newInterpStack(t, nil)
	data := [][]float32{{1.5, -2, 3}, {4, 5.25, -6}}
	m := must(views.NewMatrix(st, data))(t)
	if m.Rows() != 2 || m.Columns() != 3 {
		t.Fatalf("got a %dx%d matrix but want 2x3", m.Rows(), m.Columns())
	}
	for i, row := range data {
		for j, want := range row {
			elem := must(m.At(views.Idx(i), views.Idx(j)))(t)
			if got := must(views.Get[float32](elem))(t); got != want {
				t.Errorf("(%d,%d): got %f but want %f", i, j, got, want)
			}
		}
	}
	tensor := must(views.NewTensor(st, [][][]int32{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}, {{9, 10}, {11, 12}}}))(t)
	if got, want := []int{tensor.Rows(), tensor.Columns(), tensor.Channels()}, []int{3, 2, 2}; !cmp.Equal(got, want) {
		t.Errorf("got extents %v but want %v", got, want)
	}
	if diff := cmp.Diff([]int32{7, 8}, must(views.Elements[int32](must(tensor.Channel(views.Idx(1), views.Idx(1)))(t)))(t)); diff != "" {
		t.Errorf("unexpected channels: %s", diff)
	}
	if _, err := views.NewMatrix(st, [][]float32{{1, 2}, {3}}); !errors.Is(err, irerr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
}

// TestChannelMajorSlicing compares slices of a channel-major tensor
// with offsets computed directly from the physical arrangement
// channel, row, column.
func TestChannelMajorSlicing(t *testing.T) {
	const rows, cols, channels = 3, 4, 2
	lay := must(layout.NewOrdered([]int{channels, rows, cols}, layout.ChannelMajorTensorOrder))(t)
	storage := make([]int32, rows*cols*channels)
	for i := range storage {
		storage[i] = int32(i)
	}
	st := newInterpStack(t, nil)
	tensor := must(views.Wrap[views.Tensor](st, must(value.FromExternalBuffer(dtype.Int32, lay, storage))(t)))(t)
	reference := func(r, c, ch int) int32 {
		return storage[ch*rows*cols+r*cols+c]
	}
	for r := range rows {
		for c := range cols {
			var want []int32
			for ch := range channels {
				want = append(want, reference(r, c, ch))
			}
			got := must(views.Elements[int32](must(tensor.Channel(views.Idx(r), views.Idx(c)))(t)))(t)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("pixel (%d,%d): unexpected channels: %s", r, c, diff)
			}
		}
	}
	for ch := range channels {
		for r := range rows {
			var want []int32
			for c := range cols {
				want = append(want, reference(r, c, ch))
			}
			view := must(tensor.Slice(views.Idx(r), views.All, views.Idx(ch)))(t)
			vec, ok := view.(views.Vector)
			if !ok {
				t.Fatalf("got a %T but want a views.Vector", view)
			}
			if diff := cmp.Diff(want, must(views.Elements[int32](vec))(t)); diff != "" {
				t.Errorf("row %d channel %d: unexpected elements: %s", r, ch, diff)
			}
		}
		for c := range cols {
			var want []int32
			for r := range rows {
				want = append(want, reference(r, c, ch))
			}
			view := must(tensor.Slice(views.All, views.Idx(c), views.Idx(ch)))(t)
			vec, ok := view.(views.Vector)
			if !ok {
				t.Fatalf("got a %T but want a views.Vector", view)
			}
			if diff := cmp.Diff(want, must(views.Elements[int32](vec))(t)); diff != "" {
				t.Errorf("column %d channel %d: unexpected elements: %s", c, ch, diff)
			}
		}
	}
}

func TestErrors(t *testing.T) {
	st := newInterpStack(t, nil)
	x3 := must(views.NewVector(st, []float32{1, 2, 3}))(t)
	x4 := must(views.NewVector(st, []float32{1, 2, 3, 4}))(t)
	m := must(views.NewMatrix(st, [][]float32{{1, 2}, {3, 4}}))(t)
	ints := must(views.NewScalar(st, int32(3)))(t)
	tests := []struct {
		name string
		f    func() error
		want *irerr.Kind
	}{
		{
			name: "row out of range",
			f: func() error {
				_, err := m.Row(views.Idx(2))
				return err
			},
			want: irerr.IndexError,
		},
		{
			name: "mismatched shapes",
			f: func() error {
				_, err := x3.Add(x4)
				return err
			},
			want: irerr.ShapeError,
		},
		{
			name: "integer read as float",
			f: func() error {
				_, err := views.Get[float32](ints)
				return err
			},
			want: irerr.TypeError,
		},
		{
			name: "dot of vectors of different sizes",
			f: func() error {
				_, err := views.Dot(x3, x4)
				return err
			},
			want: irerr.ShapeError,
		},
		{
			name: "set from an empty scalar",
			f: func() error {
				var dst, src views.Scalar
				return dst.Set(src)
			},
			want: irerr.TypeError,
		},
		{
			name: "vector viewed as a matrix",
			f: func() error {
				_, err := views.Wrap[views.Matrix](st, x3.Value())
				return err
			},
			want: irerr.ShapeError,
		},
	}
	for _, test := range tests {
		if err := test.f(); !errors.Is(err, test.want) {
			t.Errorf("%s: got error %v but want %v", test.name, err, test.want)
		}
	}
}

func TestAddAssignEmpty(t *testing.T) {
	st := newInterpStack(t, nil)
	x := must(views.NewScalar(st, 2.5))(t)
	var acc views.Scalar
	if err := acc.AddAssign(x); err != nil {
		t.Fatal(err)
	}
	if got := must(views.Get[float64](acc))(t); got != 2.5 {
		t.Errorf("got %f but want 2.5", got)
	}
	if err := views.Store(acc, 1); err != nil {
		t.Fatal(err)
	}
	if got := must(views.Get[float64](x))(t); got != 2.5 {
		t.Errorf("got %f but want 2.5: the scalar aliases the value it was set to", got)
	}
}

func TestScalarSet(t *testing.T) {
	st := newInterpStack(t, nil)
	var s views.Scalar
	if err := s.Set(must(views.NewScalar(st, 2.5))(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAssign(must(views.NewScalar(st, 1.0))(t)); err != nil {
		t.Fatal(err)
	}
	if got := must(views.Get[float64](s))(t); got != 3.5 {
		t.Errorf("got %f but want 3.5", got)
	}
}

func TestCastAndMath(t *testing.T) {
	st := newInterpStack(t, nil)
	x := must(views.NewVector(st, []float64{-1.75, 4, 2.5}))(t)
	ints := must(views.Cast[int32](x))(t)
	if diff := cmp.Diff([]int32{-1, 4, 2}, must(views.Elements[int32](ints))(t)); diff != "" {
		t.Errorf("unexpected cast: %s", diff)
	}
	abs := must(views.Abs(x))(t)
	root := must(views.Sqrt(abs))(t)
	if diff := cmp.Diff([]float64{1.3228756555322954, 2, 1.5811388300841898}, must(views.Elements[float64](root))(t), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("unexpected square roots: %s", diff)
	}
	neg := must(views.Neg(ints))(t)
	pos := must(views.Greater(neg, must(views.NewScalar(st, int32(0)))(t)))(t)
	if diff := cmp.Diff([]bool{true, false, false}, must(views.Elements[bool](pos))(t)); diff != "" {
		t.Errorf("unexpected comparison: %s", diff)
	}
}

func TestGlobalIdentity(t *testing.T) {
	st := newInterpStack(t, nil)
	init := must(views.ProtoShape[views.Vector](dtype.Float32, 2))(t)
	g1 := must(views.GlobalAllocate(st, "weights", init))(t)
	g2 := must(views.GlobalAllocate(st, "weights", init))(t)
	if err := views.Store(g1, 1.5); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{1.5, 1.5}, must(views.Elements[float32](g2))(t)); diff != "" {
		t.Errorf("globals with the same name do not alias: %s", diff)
	}
}

func TestInvokeForContext(t *testing.T) {
	st := newInterpStack(t, nil)
	m, err := codegen.New("invoke")
	if err != nil {
		t.Fatal(err)
	}
	var calls []string
	record := func(m *codegen.Module) error {
		calls = append(calls, m.ModuleName())
		return nil
	}
	if err := emitter.InvokeForContext(st, record); err != nil {
		t.Fatal(err)
	}
	if err := st.With(m, func() error {
		return emitter.InvokeForContext(st, record)
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"invoke"}, calls); diff != "" {
		t.Errorf("unexpected calls: %s", diff)
	}
}

func TestTopLevelLoop(t *testing.T) {
	want := [][]int64{{1, 6, 1}, {1, 6, 1}, {1, 6, 1}}
	for _, bck := range backends {
		rec := &indexRecorder{}
		bck.build(t, rec, func(st *emitter.Stack) error {
			one, err := views.NewScalar(st, int64(1))
			if err != nil {
				return err
			}
			return views.ForRange(st, 3, func(views.Scalar) error {
				var acc views.Scalar
				if err := acc.AddAssign(one); err != nil {
					return err
				}
				c, err := views.NewScalar(st, int64(5))
				if err != nil {
					return err
				}
				if err := c.AddAssign(one); err != nil {
					return err
				}
				z, err := views.AllocateShape[views.Scalar](st, dtype.Int64)
				if err != nil {
					return err
				}
				if err := z.AddAssign(one); err != nil {
					return err
				}
				return views.Trace(st, "count", acc, c, z)
			})
		})
		if diff := cmp.Diff(want, rec.indices); diff != "" {
			t.Errorf("%s: unexpected traces: %s", bck.name, diff)
		}
	}
}

func TestMatrixRowsAndColumns(t *testing.T) {
	data := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	columnMajor := []float32{1, 3, 5, 2, 4, 6}
	for _, bck := range backends {
		var row, col *views.Func2[views.Vector, views.Matrix, views.Scalar]
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			matrix := must(views.ProtoShape[views.Matrix](dtype.Float32, 3, 2))(t)
			index := must(views.ProtoShape[views.Scalar](dtype.Int64))(t)
			rowRes := must(views.ProtoShape[views.Vector](dtype.Float32, 2))(t)
			if row, err = views.NewFunc2(st, "row", rowRes, matrix, index, func(m views.Matrix, i views.Scalar) (views.Vector, error) {
				return m.Row(i)
			}); err != nil {
				return err
			}
			colRes := must(views.ProtoShape[views.Vector](dtype.Float32, 3))(t)
			col, err = views.NewFunc2(st, "column", colRes, matrix, index, func(m views.Matrix, i views.Scalar) (views.Vector, error) {
				return m.Column(i)
			})
			return err
		})
		lay := must(layout.NewOrdered([]int{2, 3}, layout.ColumnMajorMatrixOrder))(t)
		matrices := []struct {
			name   string
			matrix views.Matrix
		}{
			{
				name:   "row-major",
				matrix: must(views.NewMatrix(st, data))(t),
			},
			{
				name:   "column-major",
				matrix: must(views.Wrap[views.Matrix](st, must(value.FromExternalBuffer(dtype.Float32, lay, columnMajor))(t)))(t),
			},
		}
		for _, test := range matrices {
			for r, want := range data {
				got, err := row.Call(test.matrix, must(views.NewScalar(st, int64(r)))(t))
				if err != nil {
					t.Errorf("%s: %s: row %d: %+v", bck.name, test.name, r, err)
					continue
				}
				if diff := cmp.Diff(want, must(views.Elements[float32](got))(t)); diff != "" {
					t.Errorf("%s: %s: row %d: unexpected elements: %s", bck.name, test.name, r, diff)
				}
			}
			for c := range 2 {
				want := []float32{data[0][c], data[1][c], data[2][c]}
				got, err := col.Call(test.matrix, must(views.NewScalar(st, int64(c)))(t))
				if err != nil {
					t.Errorf("%s: %s: column %d: %+v", bck.name, test.name, c, err)
					continue
				}
				if diff := cmp.Diff(want, must(views.Elements[float32](got))(t)); diff != "" {
					t.Errorf("%s: %s: column %d: unexpected elements: %s", bck.name, test.name, c, diff)
				}
			}
		}
		if diff := cmp.Diff([]float32{1, 3, 5, 2, 4, 6}, columnMajor); diff != "" {
			t.Errorf("%s: external storage modified: %s", bck.name, diff)
		}
	}
}

func TestSubRanges(t *testing.T) {
	for _, bck := range backends {
		var (
			middle *views.Func1[views.Vector, views.Vector]
			block  *views.Func1[views.Matrix, views.Matrix]
			last   *views.Func1[views.Tensor, views.Tensor]
		)
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			vecRes := must(views.ProtoShape[views.Vector](dtype.Int32, 3))(t)
			vec := must(views.ProtoShape[views.Vector](dtype.Int32, 5))(t)
			if middle, err = views.NewFunc1(st, "middle", vecRes, vec, func(x views.Vector) (views.Vector, error) {
				return x.SubVector(1, 3)
			}); err != nil {
				return err
			}
			matRes := must(views.ProtoShape[views.Matrix](dtype.Int32, 2, 2))(t)
			mat := must(views.ProtoShape[views.Matrix](dtype.Int32, 3, 4))(t)
			if block, err = views.NewFunc1(st, "block", matRes, mat, func(x views.Matrix) (views.Matrix, error) {
				return x.SubMatrix(1, 2, 1, 2)
			}); err != nil {
				return err
			}
			tensorRes := must(views.ProtoShape[views.Tensor](dtype.Int32, 2, 2, 1))(t)
			tensor := must(views.ProtoShape[views.Tensor](dtype.Int32, 2, 2, 3))(t)
			last, err = views.NewFunc1(st, "last", tensorRes, tensor, func(x views.Tensor) (views.Tensor, error) {
				return x.SubTensor(2, 2, 1)
			})
			return err
		})
		tests := []struct {
			name string
			call func() (views.View, error)
			want []int32
		}{
			{
				name: "vector",
				call: func() (views.View, error) {
					return middle.Call(must(views.NewVector(st, []int32{1, 2, 3, 4, 5}))(t))
				},
				want: []int32{2, 3, 4},
			},
			{
				name: "matrix",
				call: func() (views.View, error) {
					return block.Call(must(views.NewMatrix(st, [][]int32{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}))(t))
				},
				want: []int32{6, 7, 10, 11},
			},
			{
				name: "tensor",
				call: func() (views.View, error) {
					return last.Call(must(views.NewTensor(st, [][][]int32{{{1, 2, 3}, {4, 5, 6}}, {{7, 8, 9}, {10, 11, 12}}}))(t))
				},
				want: []int32{3, 6, 9, 12},
			},
		}
		for _, test := range tests {
			got, err := test.call()
			if err != nil {
				t.Errorf("%s: %s: %+v", bck.name, test.name, err)
				continue
			}
			if diff := cmp.Diff(test.want, must(views.Elements[int32](got))(t)); diff != "" {
				t.Errorf("%s: %s: unexpected elements: %s", bck.name, test.name, diff)
			}
		}
	}
	st := newInterpStack(t, nil)
	x := must(views.NewVector(st, []int32{1, 2, 3}))(t)
	if _, err := x.SubVector(2, 2); !errors.Is(err, irerr.IndexError) {
		t.Errorf("got error %v but want an index error", err)
	}
}

func TestAccumulate(t *testing.T) {
	for _, bck := range backends {
		var sum *views.Func2[views.Scalar, views.Vector, views.Scalar]
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			res := must(views.ProtoShape[views.Scalar](dtype.Float64))(t)
			vec := must(views.ProtoShape[views.Vector](dtype.Float64, 3))(t)
			sum, err = views.NewFunc2(st, "sum", res, vec, res, views.Accumulate)
			return err
		})
		start := must(views.NewScalar(st, 10.0))(t)
		got, err := sum.Call(must(views.NewVector(st, []float64{1.5, 2, 3.25}))(t), start)
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if gotF := must(views.Get[float64](got))(t); gotF != 16.75 {
			t.Errorf("%s: got %f but want 16.75", bck.name, gotF)
		}
		if gotF := must(views.Get[float64](start))(t); gotF != 10 {
			t.Errorf("%s: initial value modified: got %f but want 10", bck.name, gotF)
		}
	}
}

func TestFunc0AndFunc3(t *testing.T) {
	for _, bck := range backends {
		var (
			answer *views.Func0[views.Scalar]
			fma    *views.Func3[views.Vector, views.Vector, views.Vector, views.Scalar]
		)
		st := bck.build(t, nil, func(st *emitter.Stack) (err error) {
			scalar := must(views.ProtoShape[views.Scalar](dtype.Float32))(t)
			if answer, err = views.NewFunc0(st, "answer", scalar, func() (views.Scalar, error) {
				return views.NewScalar(st, float32(4.5))
			}); err != nil {
				return err
			}
			vec := must(views.ProtoShape[views.Vector](dtype.Float32, 3))(t)
			fma, err = views.NewFunc3(st, "fma", vec, vec, vec, scalar, func(a, b views.Vector, c views.Scalar) (views.Vector, error) {
				ab, err := a.Mul(b)
				if err != nil {
					return views.Vector{}, err
				}
				return ab.Add(c)
			})
			return err
		})
		got, err := answer.Call()
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if gotF := must(views.Get[float32](got))(t); gotF != 4.5 {
			t.Errorf("%s: got %f but want 4.5", bck.name, gotF)
		}
		a := must(views.NewVector(st, []float32{1, 2, 3}))(t)
		b := must(views.NewVector(st, []float32{4, 5, 6}))(t)
		res, err := fma.Call(a, b, got)
		if err != nil {
			t.Errorf("%s: %+v", bck.name, err)
			continue
		}
		if diff := cmp.Diff([]float32{8.5, 14.5, 22.5}, must(views.Elements[float32](res))(t)); diff != "" {
			t.Errorf("%s: unexpected elements: %s", bck.name, diff)
		}
	}
}
