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
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/kernels"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

// Allocate returns a new zero-initialized value.
// The value is zeroed each time the allocation is reached when the code
// executes, including at every iteration of a loop.
func (m *Module) Allocate(dt dtype.DataType, lay layout.Layout) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	if _, err := kernels.FactoryFor(dt); err != nil {
		return value.Value{}, err
	}
	z := m.alloc(dt, lay)
	zero, err := value.Allocate(dt, layout.Scalar)
	if err != nil {
		return value.Value{}, err
	}
	defer zero.Release()
	c, err := m.constant(zero)
	if err != nil {
		return value.Value{}, err
	}
	if err := m.Copy(z, c); err != nil {
		return value.Value{}, err
	}
	return z, nil
}

// Constant returns a new value initialized with a copy of a host value.
// The copy is made each time the code executes: writing into the returned
// value never changes the constant.
func (m *Module) Constant(v value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	if v.IsEmpty() {
		return value.Value{}, irerr.Typef("constant initialized with an empty value")
	}
	c, err := m.constant(v)
	if err != nil {
		return value.Value{}, err
	}
	return m.load(c)
}

// StoreConstant writes a literal into all the elements of dst.
func (m *Module) StoreConstant(dst value.Value, literal any) error {
	if err := m.checkBuilding(); err != nil {
		return err
	}
	if dst.IsEmpty() {
		return irerr.Typef("cannot store a literal into an empty value")
	}
	lit, err := value.Scalar(dst.DType(), literal)
	if err != nil {
		return err
	}
	defer lit.Release()
	c, err := m.constant(lit)
	if err != nil {
		return err
	}
	return m.Copy(dst, c)
}

func (m *Module) load(v value.Value) (value.Value, error) {
	z := m.alloc(v.DType(), v.Layout().Compact())
	if err := m.Copy(z, v); err != nil {
		return value.Value{}, err
	}
	return z, nil
}

// Load returns a new value with a copy of v.
func (m *Module) Load(v value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	if v.IsEmpty() {
		return value.Value{}, irerr.Typef("cannot load an empty value")
	}
	return m.load(v)
}

// Copy records a copy of src into dst.
func (m *Module) Copy(dst, src value.Value) error {
	if err := m.checkBuilding(); err != nil {
		return err
	}
	kernel, err := emitter.PlanCopy(dst, src)
	if err != nil {
		return err
	}
	return m.emitUnary("copy", kernel, dst, src)
}

func (m *Module) emitUnary(name string, kernel kernels.Unary, z, x value.Value) error {
	zOp, err := m.operand(z)
	if err != nil {
		return err
	}
	xOp, err := m.operand(x)
	if err != nil {
		return err
	}
	m.emit(unaryInstr{name: name, z: zOp, x: xOp, kernel: kernel})
	return nil
}

func (m *Module) castOperand(x value.Value, dt dtype.DataType) (value.Value, error) {
	if x.DType() == dt {
		return x, nil
	}
	return m.Cast(x, dt)
}

// BinaryOp records a binary operator applied elementwise.
func (m *Module) BinaryOp(op token.Token, x, y value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	plan, err := emitter.PlanBinary(op, x, y)
	if err != nil {
		return value.Value{}, err
	}
	if x, err = m.castOperand(x, plan.Operand); err != nil {
		return value.Value{}, err
	}
	if y, err = m.castOperand(y, plan.Operand); err != nil {
		return value.Value{}, err
	}
	xOp, err := m.operand(x)
	if err != nil {
		return value.Value{}, err
	}
	yOp, err := m.operand(y)
	if err != nil {
		return value.Value{}, err
	}
	z := m.alloc(plan.Result, plan.Layout)
	m.emit(binaryInstr{
		name:   op.String(),
		z:      operandOf(z),
		x:      xOp,
		y:      yOp,
		kernel: plan.Kernel,
	})
	return z, nil
}

func (m *Module) unary(name string, kernel kernels.Unary, dt dtype.DataType, x value.Value) (value.Value, error) {
	if _, err := m.operand(x); err != nil {
		return value.Value{}, err
	}
	z := m.alloc(dt, x.Layout().Compact())
	if err := m.emitUnary(name, kernel, z, x); err != nil {
		return value.Value{}, err
	}
	return z, nil
}

// UnaryOp records a unary operator applied elementwise.
func (m *Module) UnaryOp(op token.Token, x value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	kernel, err := emitter.PlanUnary(op, x)
	if err != nil {
		return value.Value{}, err
	}
	return m.unary(op.String(), kernel, x.DType(), x)
}

// MathOp records a math function applied elementwise.
func (m *Module) MathOp(fn kernels.MathFunc, x value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	kernel, err := emitter.PlanMath(fn, x)
	if err != nil {
		return value.Value{}, err
	}
	return m.unary(fn.String(), kernel, x.DType(), x)
}

// Cast records the conversion of the elements of a value.
func (m *Module) Cast(x value.Value, dt dtype.DataType) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	kernel, err := emitter.PlanCast(x, dt)
	if err != nil {
		return value.Value{}, err
	}
	return m.unary("cast."+value.TypeName(dt), kernel, dt, x)
}

// Slice returns a value of reduced rank aliasing the elements of v.
// The index is read when the routine executes: an index out of range
// is reported by the execution.
func (m *Module) Slice(v value.Value, dim int, index value.Value) (value.Value, error) {
	if err := m.checkBuilding(); err != nil {
		return value.Value{}, err
	}
	if err := emitter.CheckSlice(v, dim, index); err != nil {
		return value.Value{}, err
	}
	src, err := m.operand(v)
	if err != nil {
		return value.Value{}, err
	}
	indexOp, err := m.operand(index)
	if err != nil {
		return value.Value{}, err
	}
	lay, err := v.Layout().Slice(dim, 0)
	if err != nil {
		return value.Value{}, err
	}
	r := m.current()
	ptr := r.newPtr()
	m.emit(sliceInstr{
		dst:    ptr,
		src:    src,
		dim:    dim,
		stride: v.Layout().Stride(dim),
		extent: v.Layout().Extent(dim),
		index:  indexOp,
	})
	data := *src.ref
	data.ptr = ptr
	data.ptrScope = r
	return value.New(v.DType(), lay, &data), nil
}

// Trace records values to pass to the tracer when the routine executes.
func (m *Module) Trace(label string, vals ...value.Value) error {
	if err := m.checkBuilding(); err != nil {
		return err
	}
	ops, err := m.operands(vals)
	if err != nil {
		return err
	}
	m.emit(traceInstr{label: label, vals: ops})
	return nil
}

// GlobalAllocate returns a value stored in module memory.
// Calls with the same name return values aliasing the same storage.
func (m *Module) GlobalAllocate(name string, init value.Value) (value.Value, error) {
	if init.IsEmpty() {
		return value.Value{}, irerr.Typef("global %s initialized with an empty value", name)
	}
	global, loaded, err := m.globals.LoadOrStore(name, func() (value.Value, error) {
		if err := m.checkBuilding(); err != nil {
			return value.Value{}, err
		}
		if init.IsProto() {
			s := &slot{
				name: "g." + name,
				dt:   init.DType(),
				size: init.Layout().Compact().MemorySize(),
			}
			return value.New(init.DType(), init.Layout().Compact(), &ref{module: m, slot: m.newModuleSlot(s), ptr: -1}), nil
		}
		c, err := m.constant(init)
		if err != nil {
			return value.Value{}, err
		}
		m.slots[c.Data().(*ref).slot].name = "g." + name
		return c, nil
	})
	if err != nil {
		return value.Value{}, err
	}
	if loaded {
		if err := emitter.Compatible(global, init); err != nil {
			return value.Value{}, irerr.Wrap(err, "global %s", name)
		}
	}
	return global.Alias(), nil
}
