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
	"fmt"
	"slices"

	"github.com/gx-org/vir/base/stringseq"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/value"
)

// next is returned by an executed instruction to continue with the following one.
const next = -1

type (
	// exec executes a compiled instruction in a frame.
	// It returns the index of the next instruction to execute.
	exec func(fr *frame) (int, error)

	instr interface {
		compile(r *routine) (exec, error)
		String() string
	}
)

func operandsString(ops []operand) string {
	return stringseq.JoinStringer(slices.Values(ops), ", ")
}

// access returns the access mode of a set of operands.
func access(ops ...operand) string {
	for _, op := range ops {
		if !op.lay.IsContiguous() {
			return "strided"
		}
	}
	return "dense"
}

type labelInstr struct {
	id int
}

func (in labelInstr) compile(*routine) (exec, error) {
	return func(*frame) (int, error) { return next, nil }, nil
}

func (in labelInstr) String() string {
	return fmt.Sprintf(".L%d", in.id)
}

type jumpInstr struct {
	label int
}

func (in jumpInstr) compile(r *routine) (exec, error) {
	pc, err := r.target(in.label)
	if err != nil {
		return nil, err
	}
	return func(*frame) (int, error) { return pc, nil }, nil
}

func (in jumpInstr) String() string {
	return fmt.Sprintf("jump .L%d", in.label)
}

// branchInstr jumps to a label if a condition is equal to when.
type branchInstr struct {
	cond  operand
	when  bool
	label int
}

func (in branchInstr) compile(r *routine) (exec, error) {
	pc, err := r.target(in.label)
	if err != nil {
		return nil, err
	}
	return func(fr *frame) (int, error) {
		cond, err := fr.value(in.cond)
		if err != nil {
			return 0, err
		}
		ok, err := value.Get[bool](cond)
		if err != nil {
			return 0, err
		}
		if *ok == in.when {
			return pc, nil
		}
		return next, nil
	}, nil
}

func (in branchInstr) String() string {
	mnemonic := "if"
	if !in.when {
		mnemonic = "ifnot"
	}
	return fmt.Sprintf("%s %s jump .L%d", mnemonic, in.cond, in.label)
}

type unaryInstr struct {
	name   string
	z, x   operand
	kernel kernels.Unary
}

func (in unaryInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		z, err := fr.value(in.z)
		if err != nil {
			return 0, err
		}
		x, err := fr.value(in.x)
		if err != nil {
			return 0, err
		}
		return next, in.kernel(z, x)
	}, nil
}

func (in unaryInstr) String() string {
	return fmt.Sprintf("%s = %s.%s %s", in.z, in.name, access(in.z, in.x), in.x)
}

type binaryInstr struct {
	name    string
	z, x, y operand
	kernel  kernels.Binary
}

func (in binaryInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		z, err := fr.value(in.z)
		if err != nil {
			return 0, err
		}
		x, err := fr.value(in.x)
		if err != nil {
			return 0, err
		}
		y, err := fr.value(in.y)
		if err != nil {
			return 0, err
		}
		return next, in.kernel(z, x, y)
	}, nil
}

func (in binaryInstr) String() string {
	return fmt.Sprintf("%s = %s.%s %s, %s", in.z, in.name, access(in.z, in.x, in.y), in.x, in.y)
}

// sliceInstr sets a pointer register to the offset of a coordinate along one dimension.
type sliceInstr struct {
	dst    int
	src    operand
	dim    int
	stride int
	extent int
	index  operand
}

func (in sliceInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		index, err := fr.value(in.index)
		if err != nil {
			return 0, err
		}
		i, err := emitter.HostIndex(index)
		if err != nil {
			return 0, err
		}
		if i < 0 || i >= in.extent {
			return 0, irerr.Indexf("index %d out of range [0,%d) for dimension %d", i, in.extent, in.dim)
		}
		base := 0
		if in.src.ref.ptr >= 0 {
			base = fr.ptrs[in.src.ref.ptr]
		}
		fr.ptrs[in.dst] = base + i*in.stride
		return next, nil
	}, nil
}

func (in sliceInstr) String() string {
	return fmt.Sprintf("p%d = slice %s, dim %d, %s", in.dst, in.src, in.dim, in.index)
}

type loopInitInstr struct {
	counter operand
}

func (in loopInitInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		counter, err := fr.counter(in.counter)
		if err != nil {
			return 0, err
		}
		*counter = 0
		return next, nil
	}, nil
}

func (in loopInitInstr) String() string {
	return fmt.Sprintf("%s = 0", in.counter)
}

// loopTestInstr exits a loop when its counter reaches the extent.
type loopTestInstr struct {
	counter operand
	extent  int
	exit    int
}

func (in loopTestInstr) compile(r *routine) (exec, error) {
	pc, err := r.target(in.exit)
	if err != nil {
		return nil, err
	}
	extent := int64(in.extent)
	return func(fr *frame) (int, error) {
		counter, err := fr.counter(in.counter)
		if err != nil {
			return 0, err
		}
		if *counter >= extent {
			return pc, nil
		}
		return next, nil
	}, nil
}

func (in loopTestInstr) String() string {
	return fmt.Sprintf("if %s >= %d jump .L%d", in.counter, in.extent, in.exit)
}

type loopIncrInstr struct {
	counter operand
}

func (in loopIncrInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		counter, err := fr.counter(in.counter)
		if err != nil {
			return 0, err
		}
		*counter++
		return next, nil
	}, nil
}

func (in loopIncrInstr) String() string {
	return fmt.Sprintf("%s++", in.counter)
}

type callInstr struct {
	callee *routine
	args   []operand
	result *operand
}

func (in callInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		args, err := fr.values(in.args)
		if err != nil {
			return 0, err
		}
		res, err := in.callee.execute(args)
		if err != nil {
			return 0, err
		}
		if in.result == nil {
			return next, nil
		}
		defer res.Release()
		dst, err := fr.value(*in.result)
		if err != nil {
			return 0, err
		}
		kernel, err := emitter.PlanCopy(dst, res)
		if err != nil {
			return 0, err
		}
		return next, kernel(dst, res)
	}, nil
}

func (in callInstr) String() string {
	call := fmt.Sprintf("call %s(%s)", in.callee.sig.Name, operandsString(in.args))
	if in.result == nil {
		return call
	}
	return fmt.Sprintf("%s = %s", *in.result, call)
}

type traceInstr struct {
	label string
	vals  []operand
}

func (in traceInstr) compile(*routine) (exec, error) {
	return func(fr *frame) (int, error) {
		tracer := fr.routine.module.tracer
		if tracer == nil {
			return next, nil
		}
		vals, err := fr.values(in.vals)
		if err != nil {
			return 0, err
		}
		return next, tracer.Trace(in.label, vals)
	}, nil
}

func (in traceInstr) String() string {
	return fmt.Sprintf("trace %q %s", in.label, operandsString(in.vals))
}
