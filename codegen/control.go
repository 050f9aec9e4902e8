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

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

// For records loops over all the logical indices of v in row-major order.
// body is called once, with counters updated when the routine executes.
func (m *Module) For(v value.Value, body func(index []value.Value) error) error {
	if err := m.checkBuilding(); err != nil {
		return err
	}
	if v.IsEmpty() {
		return irerr.Typef("cannot iterate over an empty value")
	}
	r := m.current()
	extents := v.Extents()
	counters := make([]value.Value, len(extents))
	heads := make([]int, len(extents))
	exits := make([]int, len(extents))
	for dim, extent := range extents {
		counters[dim] = m.allocNamed("i", emitter.IndexType, layout.Scalar)
		counter := operandOf(counters[dim])
		heads[dim], exits[dim] = r.newLabel(), r.newLabel()
		m.emit(loopInitInstr{counter: counter})
		m.emit(labelInstr{id: heads[dim]})
		m.emit(loopTestInstr{counter: counter, extent: extent, exit: exits[dim]})
	}
	if err := body(counters); err != nil {
		return err
	}
	for dim := len(extents) - 1; dim >= 0; dim-- {
		m.emit(loopIncrInstr{counter: operandOf(counters[dim])})
		m.emit(jumpInstr{label: heads[dim]})
		m.emit(labelInstr{id: exits[dim]})
	}
	return nil
}

// ifChain records a chain of conditional clauses.
// A boolean local records if a clause has been taken when the routine executes.
type ifChain struct {
	m     *Module
	r     *routine
	taken value.Value
	first bool
	err   error
}

var _ emitter.IfContext = (*ifChain)(nil)

func (m *Module) boolConstant(b bool) (value.Value, error) {
	lit, err := value.FromSlice([]bool{b})
	if err != nil {
		return value.Value{}, err
	}
	defer lit.Release()
	return m.constant(lit)
}

func (c *ifChain) setTaken(b bool) error {
	val, err := c.m.boolConstant(b)
	if err != nil {
		return err
	}
	return c.m.Copy(c.taken, val)
}

func (c *ifChain) check() error {
	if err := c.m.checkBuilding(); err != nil {
		return err
	}
	if c.m.current() != c.r {
		return irerr.Contextf("conditional of routine %s continued in routine %s", c.r.sig.Name, c.m.current().sig.Name)
	}
	return nil
}

// If records a body executed if cond is true.
func (m *Module) If(cond value.Value, body func() error) emitter.IfContext {
	c := &ifChain{m: m, r: m.current(), first: true}
	if c.err = m.checkBuilding(); c.err != nil {
		return c
	}
	c.taken = m.allocNamed("taken", dtype.Bool, layout.Scalar)
	if c.err = c.setTaken(false); c.err != nil {
		return c
	}
	return c.clause(cond, body)
}

// clause records:
//
//	if taken jump skip  (all clauses but the first)
//	ifnot cond jump skip
//	body
//	taken = true
//	skip:
func (c *ifChain) clause(cond value.Value, body func() error) *ifChain {
	if c.err != nil {
		return c
	}
	if c.err = c.check(); c.err != nil {
		return c
	}
	if c.err = emitter.CheckCondition(cond); c.err != nil {
		return c
	}
	var condOp operand
	if condOp, c.err = c.m.operand(cond); c.err != nil {
		return c
	}
	skip := c.r.newLabel()
	if !c.first {
		c.m.emit(branchInstr{cond: operandOf(c.taken), when: true, label: skip})
	}
	c.first = false
	c.m.emit(branchInstr{cond: condOp, when: false, label: skip})
	if c.err = body(); c.err != nil {
		return c
	}
	if c.err = c.setTaken(true); c.err != nil {
		return c
	}
	c.m.emit(labelInstr{id: skip})
	return c
}

// ElseIf records a body executed if no previous condition was true and cond is true.
func (c *ifChain) ElseIf(cond value.Value, body func() error) emitter.IfContext {
	return c.clause(cond, body)
}

// Else records a body executed if no previous condition was true.
func (c *ifChain) Else(body func() error) error {
	if c.err != nil {
		return c.err
	}
	if c.err = c.check(); c.err != nil {
		return c.err
	}
	skip := c.r.newLabel()
	c.m.emit(branchInstr{cond: operandOf(c.taken), when: true, label: skip})
	if c.err = body(); c.err != nil {
		return c.err
	}
	c.m.emit(labelInstr{id: skip})
	return nil
}

// Err returns the first error of the chain.
func (c *ifChain) Err() error {
	return c.err
}

type function struct {
	module  *Module
	routine *routine
}

var _ emitter.Function = (*function)(nil)

// CreateFunction records a new routine in the module.
// Functions can be created while building another one: the new routine
// becomes the target of new instructions until body returns.
func (m *Module) CreateFunction(name string, result value.Value, params []value.Value, body emitter.Body) (emitter.Function, error) {
	if err := m.checkBuilding(); err != nil {
		return nil, err
	}
	sig, err := emitter.NewSignature(name, result, params)
	if err != nil {
		return nil, err
	}
	if !m.names.Reserve(name) {
		return nil, irerr.Contextf("function %s already defined in module %s", name, m.name)
	}
	r := newRoutine(m, sig)
	r.params = make([]value.Value, len(sig.Params))
	for i, param := range sig.Params {
		s := &slot{name: fmt.Sprintf("arg%d", i), dt: param.DType(), size: param.Layout().Capacity()}
		r.params[i] = value.New(param.DType(), param.Layout(), &ref{module: m, scope: r, slot: r.newLocal(s), ptr: -1})
	}
	m.open = append(m.open, r)
	defer func() { m.open = m.open[:len(m.open)-1] }()
	res, err := body(m, append([]value.Value{}, r.params...))
	if err != nil {
		return nil, irerr.Wrap(err, "function %s", name)
	}
	if err := sig.CheckResult(res); err != nil {
		return nil, err
	}
	if !res.IsEmpty() {
		if r.result, err = m.load(res); err != nil {
			return nil, err
		}
	}
	m.routines.Store(name, r)
	return &function{module: m, routine: r}, nil
}

func (f *function) Name() string {
	return f.routine.sig.Name
}

func (f *function) Signature() emitter.Signature {
	return f.routine.sig
}

// Call records a call when the module is the active context and is being built.
// Once the module has been built, Call executes the function on host values.
// Calls between modules are not supported: a built module cannot be called
// with values recorded by another module.
func (f *function) Call(ctx emitter.Context, args ...value.Value) (value.Value, error) {
	if err := f.routine.sig.CheckArgs(args); err != nil {
		return value.Value{}, err
	}
	m := f.module
	switch {
	case m.state == Built:
		for i, arg := range args {
			if _, ok := arg.Buffer(); !ok {
				return value.Value{}, irerr.Contextf("function %s of built module %s called from the %s backend: argument %d is not a host value", f.routine.sig.Name, m.name, ctx.Name(), i)
			}
		}
		return f.routine.execute(args)
	case ctx == emitter.Context(m):
		return m.emitCall(f.routine, args)
	}
	return value.Value{}, irerr.Contextf("function %s called from the %s backend but module %s is not built", f.routine.sig.Name, ctx.Name(), m.name)
}

func (m *Module) emitCall(callee *routine, args []value.Value) (value.Value, error) {
	ops, err := m.operands(args)
	if err != nil {
		return value.Value{}, err
	}
	in := callInstr{callee: callee, args: ops}
	var res value.Value
	if !callee.sig.Result.IsEmpty() {
		res = m.alloc(callee.sig.Result.DType(), callee.sig.Result.Layout().Compact())
		op := operandOf(res)
		in.result = &op
	}
	m.emit(in)
	return res, nil
}
