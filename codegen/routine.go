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
	"strings"

	"github.com/gx-org/backend/dtype"
	gxfmt "github.com/gx-org/vir/base/fmt"
	"github.com/gx-org/vir/base/uname"
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/layout"
	"github.com/gx-org/vir/value"
)

// ref is the data of a symbolic value: a reference to a memory slot.
type ref struct {
	module *Module
	// scope is the routine owning the slot or nil for module memory.
	scope *routine
	slot  int
	// ptr is a pointer register added to the offset of the layout, or -1.
	ptr      int
	ptrScope *routine
}

var _ value.Data = (*ref)(nil)

// Backend returns the name of the backend owning the data.
func (r *ref) Backend() string {
	return Name
}

func (r *ref) String() string {
	var s string
	if r.scope == nil {
		s = r.module.slots[r.slot].name
	} else {
		s = r.scope.locals[r.slot].name
	}
	if r.ptr >= 0 {
		s = fmt.Sprintf("%s+p%d", s, r.ptr)
	}
	return s
}

// operand of an instruction.
type operand struct {
	dt  dtype.DataType
	ref *ref
	lay layout.Layout
}

func (op operand) String() string {
	return fmt.Sprintf("%s%s", op.ref, op.lay.String())
}

type routine struct {
	module *Module
	sig    emitter.Signature
	params []value.Value
	result value.Value
	locals []*slot
	names  *uname.Unique
	nptrs  int
	nlabel int
	code   []instr
	labels []int
	prog   []exec
}

func newRoutine(m *Module, sig emitter.Signature) *routine {
	return &routine{module: m, sig: sig, names: uname.New()}
}

func (r *routine) newLocal(s *slot) int {
	r.locals = append(r.locals, s)
	return len(r.locals) - 1
}

func (r *routine) newLabel() int {
	r.nlabel++
	return r.nlabel - 1
}

func (r *routine) newPtr() int {
	r.nptrs++
	return r.nptrs - 1
}

// compile resolves the labels and compiles every instruction.
func (r *routine) compile() error {
	r.labels = make([]int, r.nlabel)
	for i := range r.labels {
		r.labels[i] = -1
	}
	for pc, in := range r.code {
		if lbl, ok := in.(labelInstr); ok {
			r.labels[lbl.id] = pc
		}
	}
	r.prog = make([]exec, len(r.code))
	for pc, in := range r.code {
		var err error
		if r.prog[pc], err = in.compile(r); err != nil {
			return irerr.Wrap(err, "routine %s, instruction %d (%s)", r.sig.Name, pc, in)
		}
	}
	return nil
}

func (r *routine) target(label int) (int, error) {
	if label < 0 || label >= len(r.labels) || r.labels[label] < 0 {
		return 0, irerr.Internalf("label .L%d has not been placed", label)
	}
	return r.labels[label], nil
}

func (r *routine) String() string {
	var body strings.Builder
	for _, in := range r.code {
		if _, ok := in.(labelInstr); ok {
			fmt.Fprintf(&body, "%s:\n", in)
			continue
		}
		fmt.Fprintf(&body, "\t%s\n", in)
	}
	var s strings.Builder
	s.WriteString(r.sig.String())
	if !r.result.IsEmpty() {
		fmt.Fprintf(&s, " -> %s", r.result.Data())
	}
	s.WriteString(" {\n")
	for _, local := range r.locals {
		fmt.Fprintf(&s, "\tvar %s\n", local)
	}
	s.WriteString(gxfmt.Indent(gxfmt.Number(body.String())))
	s.WriteString("}\n")
	return s.String()
}
