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

package emitter_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

func TestPromote(t *testing.T) {
	tests := []struct {
		x, y dtype.DataType
		want dtype.DataType
		err  bool
	}{
		{x: dtype.Float32, y: dtype.Float32, want: dtype.Float32},
		{x: dtype.Int32, y: dtype.Float32, want: dtype.Float32},
		{x: dtype.Int64, y: dtype.Float32, want: dtype.Float64},
		{x: dtype.Float64, y: dtype.Int32, want: dtype.Float64},
		{x: dtype.Float32, y: dtype.Float64, want: dtype.Float64},
		{x: dtype.Int32, y: dtype.Int64, want: dtype.Int64},
		{x: dtype.Uint32, y: dtype.Uint64, want: dtype.Uint64},
		{x: dtype.Uint32, y: dtype.Int64, want: dtype.Int64},
		{x: dtype.Int32, y: dtype.Uint32, err: true},
		{x: dtype.Int64, y: dtype.Uint64, err: true},
		{x: dtype.Bool, y: dtype.Int32, err: true},
		{x: dtype.Bool, y: dtype.Bool, want: dtype.Bool},
	}
	for i, test := range tests {
		got, err := emitter.Promote(test.x, test.y)
		if test.err {
			if !errors.Is(err, irerr.TypeError) {
				t.Errorf("test %d: %s,%s: got error %v but want a type error", i, test.x.String(), test.y.String(), err)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: %+v", i, err)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: %s,%s: got %s but want %s", i, test.x.String(), test.y.String(), got.String(), test.want.String())
		}
	}
}

func mustLayout(t *testing.T, extents ...int) layout.Layout {
	t.Helper()
	l, err := layout.New(extents...)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// TestBroadcast checks the broadcast policy: a rank-0 operand
// broadcasts against any shape, any other mismatch is an error.
func TestBroadcast(t *testing.T) {
	tests := []struct {
		x, y layout.Layout
		want layout.Shape
		err  bool
	}{
		{x: mustLayout(t), y: mustLayout(t, 3), want: layout.Shape{3}},
		{x: mustLayout(t, 2, 3), y: mustLayout(t), want: layout.Shape{2, 3}},
		{x: mustLayout(t, 4), y: mustLayout(t, 4), want: layout.Shape{4}},
		{x: mustLayout(t, 3), y: mustLayout(t, 4), err: true},
		{x: mustLayout(t, 1), y: mustLayout(t, 4), err: true},
		{x: mustLayout(t, 2, 3), y: mustLayout(t, 3, 2), err: true},
	}
	for i, test := range tests {
		got, err := emitter.Broadcast(test.x, test.y)
		if test.err {
			if !errors.Is(err, irerr.ShapeError) {
				t.Errorf("test %d: got error %v but want a shape error", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: %+v", i, err)
			continue
		}
		if !got.Extents().Equal(test.want) {
			t.Errorf("test %d: got shape %v but want %v", i, got.Extents(), test.want)
		}
	}
}

type (
	contextA struct{ emitter.Context }
	contextB struct{ emitter.Context }
)

func TestStack(t *testing.T) {
	base, other := contextA{}, contextB{}
	st := emitter.NewStack(base)
	var calls []string
	err := st.With(other, func() error {
		if st.Current() != other {
			t.Errorf("pushed context is not the current context")
		}
		if err := emitter.InvokeForContext(st, func(contextA) error {
			calls = append(calls, "A inside")
			return nil
		}); err != nil {
			return err
		}
		return emitter.InvokeForContext(st, func(contextB) error {
			calls = append(calls, "B inside")
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := emitter.InvokeForContext(st, func(contextA) error {
		calls = append(calls, "A outside")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	want := []string{"B inside", "A outside"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("got calls %v but want %v", calls, want)
	}
	if st.Depth() != 1 || st.Current() != base {
		t.Errorf("context not restored: depth=%d", st.Depth())
	}
}

func TestStackRestoredOnPanicAndError(t *testing.T) {
	st := emitter.NewStack(contextA{})
	func() {
		defer func() { _ = recover() }()
		_ = st.With(contextB{}, func() error {
			panic("boom")
		})
	}()
	if st.Depth() != 1 {
		t.Errorf("context not popped after a panic: depth=%d", st.Depth())
	}
	want := errors.New("failure")
	if err := st.With(contextB{}, func() error { return want }); err != want {
		t.Errorf("got error %v but want %v", err, want)
	}
	if st.Depth() != 1 {
		t.Errorf("context not popped after an error: depth=%d", st.Depth())
	}
}

func TestSignature(t *testing.T) {
	vec := value.Proto(dtype.Float32, mustLayout(t, 3))
	sig, err := emitter.NewSignature("f", value.Proto(dtype.Float32, layout.Scalar), []value.Value{vec, vec})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := sig.String(), "func f(float32[3], float32[3]) float32[]"; got != want {
		t.Errorf("got signature %q but want %q", got, want)
	}
	tests := []struct {
		args []value.Value
		err  *irerr.Kind
	}{
		{args: []value.Value{vec, vec}},
		{args: []value.Value{vec}, err: irerr.TypeError},
		{args: []value.Value{vec, value.Proto(dtype.Int32, mustLayout(t, 3))}, err: irerr.TypeError},
		{args: []value.Value{vec, value.Proto(dtype.Float32, mustLayout(t, 4))}, err: irerr.ShapeError},
	}
	for i, test := range tests {
		err := sig.CheckArgs(test.args)
		if test.err == nil {
			if err != nil {
				t.Errorf("test %d: %+v", i, err)
			}
			continue
		}
		if !errors.Is(err, test.err) {
			t.Errorf("test %d: got error %v but want %v", i, err, test.err)
		}
	}
	if err := sig.CheckResult(value.Empty()); !errors.Is(err, irerr.TypeError) {
		t.Errorf("got error %v but want a type error", err)
	}
}

type backendOption struct{ name string }

func (o backendOption) Backend() string { return o.name }

func TestFilter(t *testing.T) {
	opts := []emitter.Option{
		emitter.WithTracer{},
		backendOption{name: "interp"},
		backendOption{name: "codegen"},
	}
	got := emitter.Filter("interp", opts)
	if len(got) != 2 {
		t.Fatalf("got %d options but want 2", len(got))
	}
	if _, ok := got[0].(emitter.WithTracer); !ok {
		t.Errorf("first option is %T but want emitter.WithTracer", got[0])
	}
	if got[1] != (backendOption{name: "interp"}) {
		t.Errorf("second option is %v but want the interp option", got[1])
	}
}
