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

package interp

import (
	"github.com/gx-org/vir/emitter"
	"github.com/gx-org/vir/irerr"
	"github.com/gx-org/vir/value"
)

type ifChain struct {
	taken bool
	err   error
}

var _ emitter.IfContext = (*ifChain)(nil)

// If calls body if cond is true.
func (ctx *Context) If(cond value.Value, body func() error) emitter.IfContext {
	return (&ifChain{}).clause(cond, body)
}

func (c *ifChain) clause(cond value.Value, body func() error) *ifChain {
	if c.err != nil {
		return c
	}
	if c.err = emitter.CheckCondition(cond); c.err != nil {
		return c
	}
	if c.taken {
		return c
	}
	var ok *bool
	if ok, c.err = value.Get[bool](cond); c.err != nil || !*ok {
		return c
	}
	c.taken = true
	c.err = body()
	return c
}

// ElseIf calls body if no previous condition was true and cond is true.
func (c *ifChain) ElseIf(cond value.Value, body func() error) emitter.IfContext {
	return c.clause(cond, body)
}

// Else calls body if no previous condition was true.
func (c *ifChain) Else(body func() error) error {
	if c.err != nil || c.taken {
		return c.err
	}
	c.taken = true
	c.err = body()
	return c.err
}

// Err returns the first error of the chain.
func (c *ifChain) Err() error {
	return c.err
}

type function struct {
	ctx  *Context
	sig  emitter.Signature
	body emitter.Body
}

var _ emitter.Function = (*function)(nil)

// CreateFunction returns a function executing body each time it is called.
func (ctx *Context) CreateFunction(name string, result value.Value, params []value.Value, body emitter.Body) (emitter.Function, error) {
	sig, err := emitter.NewSignature(name, result, params)
	if err != nil {
		return nil, err
	}
	return &function{ctx: ctx, sig: sig, body: body}, nil
}

func (f *function) Name() string {
	return f.sig.Name
}

func (f *function) Signature() emitter.Signature {
	return f.sig
}

// Call the function. Arguments are passed by reference.
func (f *function) Call(ctx emitter.Context, args ...value.Value) (value.Value, error) {
	if _, ok := ctx.(*Context); !ok {
		return value.Value{}, irerr.Contextf("function %s of the %s backend called from the %s backend", f.sig.Name, Name, ctx.Name())
	}
	if err := f.sig.CheckArgs(args); err != nil {
		return value.Value{}, err
	}
	result, err := f.body(f.ctx, args)
	if err != nil {
		return value.Value{}, err
	}
	if err := f.sig.CheckResult(result); err != nil {
		return value.Value{}, err
	}
	return result, nil
}
