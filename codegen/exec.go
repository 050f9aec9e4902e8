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

package codegen

import (
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/value"
)

// frame is the state of one execution of a routine.
type frame struct {
	routine *routine
	locals  []*value.Buffer
	ptrs    []int
}

func operandOf(v value.Value) operand {
	return operand{dt: v.DType(), ref: v.Data().(*ref), lay: v.Layout()}
}

// value returns a host value aliasing the memory of an operand.
func (fr *frame) value(op operand) (value.Value, error) {
	var buf *value.Buffer
	if op.ref.scope == nil {
		buf = fr.routine.module.memory[op.ref.slot]
	} else {
		buf = fr.locals[op.ref.slot]
	}
	lay := op.lay
	if op.ref.ptr >= 0 {
		lay = lay.Shift(fr.ptrs[op.ref.ptr])
	}
	return value.View(buf, lay)
}

func (fr *frame) values(ops []operand) ([]value.Value, error) {
	vals := make([]value.Value, len(ops))
	for i, op := range ops {
		var err error
		if vals[i], err = fr.value(op); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (fr *frame) counter(op operand) (*int64, error) {
	v, err := fr.value(op)
	if err != nil {
		return nil, err
	}
	return value.Get[int64](v)
}

func (fr *frame) run() error {
	prog := fr.routine.prog
	for pc := 0; pc < len(prog); {
		target, err := prog[pc](fr)
		if err != nil {
			return irerr.Wrap(err, "%s", fr.routine.sig.Name)
		}
		if target == next {
			pc++
		} else {
			pc = target
		}
	}
	return nil
}

// bindParam binds the storage of an argument to a parameter.
// The argument storage is used directly if its layout matches the parameter.
// Otherwise, the argument is copied in a local buffer and copied back after
// the execution of the routine.
func (fr *frame) bindParam(param, arg value.Value) (copyBack func() error, err error) {
	slot := param.Data().(*ref).slot
	buf, ok := arg.Buffer()
	if !ok {
		return nil, irerr.Contextf("argument of %s is not a host value", fr.routine.sig.Name)
	}
	if arg.Layout().Equal(param.Layout()) {
		fr.locals[slot] = buf
		return nil, nil
	}
	if fr.locals[slot], err = value.NewBuffer(param.DType(), param.Layout().Capacity()); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			fr.locals[slot].Release()
		}
	}()
	local, err := value.View(fr.locals[slot], param.Layout())
	if err != nil {
		return nil, err
	}
	kernel, err := emitter.PlanCopy(local, arg)
	if err != nil {
		return nil, err
	}
	if err := kernel(local, arg); err != nil {
		return nil, err
	}
	return func() error { return kernel(arg, local) }, nil
}

// execute the routine in a new frame.
// The result, if any, is returned in a new value owning its storage.
func (r *routine) execute(args []value.Value) (value.Value, error) {
	if r.module.state != Built {
		return value.Value{}, irerr.Contextf("module %s is not built", r.module.name)
	}
	if len(args) != len(r.params) {
		return value.Value{}, irerr.Internalf("%d arguments passed to %s but want %d", len(args), r.sig.Name, len(r.params))
	}
	fr := &frame{
		routine: r,
		locals:  make([]*value.Buffer, len(r.locals)),
		ptrs:    make([]int, r.nptrs),
	}
	owned := make([]*value.Buffer, 0, len(r.locals))
	defer func() {
		for _, buf := range owned {
			buf.Release()
		}
	}()
	var copyBacks []func() error
	for i, param := range r.params {
		copyBack, err := fr.bindParam(param, args[i])
		if copyBack != nil {
			owned = append(owned, fr.locals[param.Data().(*ref).slot])
			copyBacks = append(copyBacks, copyBack)
		}
		if err != nil {
			return value.Value{}, err
		}
	}
	for i, local := range r.locals {
		if fr.locals[i] != nil {
			continue
		}
		buf, err := value.NewBuffer(local.dt, local.size)
		if err != nil {
			return value.Value{}, err
		}
		fr.locals[i] = buf
		owned = append(owned, buf)
	}
	if err := fr.run(); err != nil {
		return value.Value{}, err
	}
	for _, copyBack := range copyBacks {
		if err := copyBack(); err != nil {
			return value.Value{}, err
		}
	}
	if r.result.IsEmpty() {
		return value.Value{}, nil
	}
	res, err := fr.value(operandOf(r.result))
	if err != nil {
		return value.Value{}, err
	}
	return copyHost(res)
}

// copyHost returns a compact copy of a host value.
func copyHost(v value.Value) (value.Value, error) {
	f, err := kernels.FactoryFor(v.DType())
	if err != nil {
		return value.Value{}, err
	}
	z, err := value.Allocate(v.DType(), v.Layout().Compact())
	if err != nil {
		return value.Value{}, err
	}
	if err := f.Copy()(z, v); err != nil {
		z.Release()
		return value.Value{}, err
	}
	return z, nil
}
