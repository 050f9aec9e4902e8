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

// Package codegen implements a backend recording operations into routines.
//
// A Module is a context: operations do not execute immediately but append
// instructions to the routine under construction. Values manipulated while
// building are symbolic: they reference slots of virtual memory, either at
// the module level (globals, constants, and values created outside of any
// routine) or local to a routine.
//
// A module goes through two states. While building, functions can be created
// and calls between them are recorded. Finalize resolves all the jumps,
// compiles every instruction into a Go closure, allocates the module memory
// and runs the code recorded outside of routines. Once built, functions
// execute on host values and can be called concurrently: each call runs in
// its own frame.
package codegen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/backend/dtype"
	"go.uber.org/multierr"
	"github.com/gx-org/vir/base/ordered"
	"github.com/gx-org/vir/base/uname"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

// Name of the backend.
const Name = "codegen"

// State of a module.
type State int

const (
	// Building modules accept new functions.
	Building State = iota
	// Built modules execute their functions.
	Built
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Built:
		return "built"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type slot struct {
	name string
	dt   dtype.DataType
	size int
	// init is a compact host value copied into the slot when the module is built.
	init value.Value
}

func (s *slot) String() string {
	var attr string
	if !s.init.IsEmpty() {
		attr = " = " + s.init.String()
	}
	return fmt.Sprintf("%s %s[%d]%s", s.name, value.TypeName(s.dt), s.size, attr)
}

// Module records routines.
type Module struct {
	name   string
	state  State
	tracer emitter.Tracer
	names  *uname.Unique

	slots    []*slot
	globals  *ordered.Map[string, value.Value]
	routines *ordered.Map[string, *routine]
	init     *routine
	open     []*routine

	memory []*value.Buffer
}

var _ emitter.Context = (*Module)(nil)

// New returns a new module in the building state.
func New(name string, opts ...emitter.Option) (*Module, error) {
	m := &Module{
		name:     name,
		names:    uname.New(),
		globals:  ordered.NewMap[string, value.Value](),
		routines: ordered.NewMap[string, *routine](),
	}
	m.init = newRoutine(m, emitter.Signature{Name: "init"})
	for _, opt := range emitter.Filter(Name, opts) {
		switch optT := opt.(type) {
		case emitter.WithTracer:
			m.tracer = optT.Tracer
		default:
			return nil, errors.Errorf("option of type %T not supported", optT)
		}
	}
	return m, nil
}

// Name of the backend.
func (m *Module) Name() string {
	return Name
}

// ModuleName returns the name of the module.
func (m *Module) ModuleName() string {
	return m.name
}

// State returns the state of the module.
func (m *Module) State() State {
	return m.state
}

func (m *Module) checkBuilding() error {
	if m.state != Building {
		return irerr.Contextf("module %s is %s: no more code can be added", m.name, m.state)
	}
	return nil
}

// current returns the routine receiving new instructions.
func (m *Module) current() *routine {
	if len(m.open) == 0 {
		return m.init
	}
	return m.open[len(m.open)-1]
}

func (m *Module) newModuleSlot(s *slot) int {
	m.slots = append(m.slots, s)
	return len(m.slots) - 1
}

// alloc returns a new symbolic value in the current scope.
// Values allocated outside of a routine live in module memory.
func (m *Module) alloc(dt dtype.DataType, lay layout.Layout) value.Value {
	return m.allocNamed("", dt, lay)
}

// allocNamed allocates a value like alloc.
// If root is not empty, the slot name is derived from root and unique in its scope.
func (m *Module) allocNamed(root string, dt dtype.DataType, lay layout.Layout) value.Value {
	r := m.current()
	s := &slot{dt: dt, size: lay.Capacity()}
	if root != "" {
		s.name = r.names.Name(root)
	}
	if r == m.init {
		if s.name == "" {
			s.name = fmt.Sprintf("m%d", len(m.slots))
		}
		return value.New(dt, lay, &ref{module: m, slot: m.newModuleSlot(s), ptr: -1})
	}
	if s.name == "" {
		s.name = fmt.Sprintf("l%d", len(r.locals))
	}
	return value.New(dt, lay, &ref{module: m, scope: r, slot: r.newLocal(s), ptr: -1})
}

// constant returns a module value initialized with a copy of a host value.
func (m *Module) constant(v value.Value) (value.Value, error) {
	if _, ok := v.Buffer(); !ok {
		return value.Value{}, irerr.Contextf("constant %v is not a host value", v)
	}
	init, err := copyHost(v)
	if err != nil {
		return value.Value{}, err
	}
	lay := init.Layout()
	s := &slot{
		name: fmt.Sprintf("m%d", len(m.slots)),
		dt:   v.DType(),
		size: lay.MemorySize(),
		init: init,
	}
	return value.New(v.DType(), lay, &ref{module: m, slot: m.newModuleSlot(s), ptr: -1}), nil
}

// operand converts a value into an instruction operand in the current scope.
// Host values are captured as module constants: their content is copied
// when the operation is recorded.
func (m *Module) operand(v value.Value) (operand, error) {
	if v.IsEmpty() {
		return operand{}, irerr.Typef("operation on an empty value")
	}
	switch data := v.Data().(type) {
	case *ref:
		if data.module != m {
			return operand{}, irerr.Contextf("value %v belongs to module %s but is used in module %s", v, data.module.name, m.name)
		}
		cur := m.current()
		if data.scope != nil && data.scope != cur {
			return operand{}, irerr.Contextf("value %v of routine %s used in routine %s", v, data.scope.sig.Name, cur.sig.Name)
		}
		if data.ptr >= 0 && data.ptrScope != cur {
			return operand{}, irerr.Contextf("value %v indexed in routine %s used in routine %s", v, data.ptrScope.sig.Name, cur.sig.Name)
		}
		return operand{dt: v.DType(), ref: data, lay: v.Layout()}, nil
	case *value.Buffer:
		c, err := m.constant(v)
		if err != nil {
			return operand{}, err
		}
		return m.operand(c)
	case nil:
		return operand{}, irerr.Contextf("%s value has no data", value.TypeName(v.DType()))
	default:
		return operand{}, irerr.Contextf("data of the %s backend cannot be used by module %s", data.Backend(), m.name)
	}
}

func (m *Module) operands(vals []value.Value) ([]operand, error) {
	ops := make([]operand, len(vals))
	for i, v := range vals {
		var err error
		if ops[i], err = m.operand(v); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func (m *Module) emit(in instr) {
	r := m.current()
	r.code = append(r.code, in)
}

// Finalize compiles the module. Functions of the module can then be executed.
func (m *Module) Finalize() error {
	if err := m.checkBuilding(); err != nil {
		return err
	}
	if len(m.open) > 0 {
		return irerr.Contextf("cannot finalize module %s: routine %s is still being built", m.name, m.current().sig.Name)
	}
	var err error
	for _, r := range m.allRoutines() {
		err = multierr.Append(err, r.compile())
	}
	if err != nil {
		return irerr.Internal(err)
	}
	memory := make([]*value.Buffer, len(m.slots))
	for i, s := range m.slots {
		if memory[i], err = s.allocate(); err != nil {
			return err
		}
	}
	m.memory = memory
	m.state = Built
	if _, err := m.init.execute(nil); err != nil {
		return irerr.Wrap(err, "module %s initialization", m.name)
	}
	return nil
}

func (s *slot) allocate() (*value.Buffer, error) {
	buf, err := value.NewBuffer(s.dt, s.size)
	if err != nil {
		return nil, err
	}
	if s.init.IsEmpty() {
		return buf, nil
	}
	dst, err := value.View(buf, s.init.Layout())
	if err != nil {
		return nil, err
	}
	kernel, err := emitter.PlanCopy(dst, s.init)
	if err != nil {
		return nil, err
	}
	return buf, kernel(dst, s.init)
}

func (m *Module) allRoutines() []*routine {
	all := []*routine{m.init}
	for _, r := range m.routines.Iter() {
		all = append(all, r)
	}
	return all
}

// HostValue returns a host value aliasing the module memory of a symbolic value.
func (m *Module) HostValue(v value.Value) (value.Value, error) {
	if m.state != Built {
		return value.Value{}, irerr.Contextf("module %s is not built", m.name)
	}
	data, ok := v.Data().(*ref)
	if !ok || data.module != m {
		return value.Value{}, irerr.Contextf("value %v does not belong to module %s", v, m.name)
	}
	if data.scope != nil || data.ptr >= 0 {
		return value.Value{}, irerr.Contextf("value %v is local to a routine", v)
	}
	return value.View(m.memory[data.slot], v.Layout())
}

// Global returns a host value aliasing a global once the module has been built.
func (m *Module) Global(name string) (value.Value, error) {
	global, ok := m.globals.Load(name)
	if !ok {
		return value.Value{}, irerr.Contextf("module %s has no global %s", m.name, name)
	}
	return m.HostValue(global)
}

// Function returns a function of the module given its name.
func (m *Module) Function(name string) (emitter.Function, bool) {
	r, ok := m.routines.Load(name)
	if !ok {
		return nil, false
	}
	return &function{module: m, routine: r}, true
}

// Release the module memory. Functions cannot be executed afterward.
func (m *Module) Release() {
	for _, buf := range m.memory {
		buf.Release()
	}
	for _, s := range m.slots {
		s.init.Release()
	}
}

// String returns a listing of the module.
func (m *Module) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "module %s (%s)\n", m.name, m.state)
	for _, sl := range m.slots {
		fmt.Fprintf(&s, "\t%s\n", sl)
	}
	for _, name := range m.globals.Keys() {
		global, _ := m.globals.Load(name)
		fmt.Fprintf(&s, "\tglobal %s = %s\n", name, global.Data())
	}
	for _, r := range m.allRoutines() {
		if r == m.init && len(r.code) == 0 {
			continue
		}
		s.WriteString(r.String())
	}
	return s.String()
}
