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

// Package irerr defines the errors raised when building or running IR code.
//
// Every error belongs to one kind. Kinds are sentinel errors so that callers
// can test for them with errors.Is:
//
//	if errors.Is(err, irerr.ShapeError) { ... }
//
// Errors carry the stack trace of where they were created, which is printed
// when formatted with %+v.
package irerr

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind is the category of an error.
type Kind struct {
	name string
}

var (
	// TypeError is raised on element type mismatches (access, cast, store, call).
	TypeError = &Kind{name: "type error"}
	// ShapeError is raised when the shapes of operands are incompatible.
	ShapeError = &Kind{name: "shape error"}
	// IndexError is raised when a coordinate is out of range.
	IndexError = &Kind{name: "index error"}
	// ContextError is raised when an operation requires a different
	// backend or a different state than the current one.
	ContextError = &Kind{name: "context error"}
	// ArithmeticError is raised on invalid arithmetic, like an integer division by zero.
	ArithmeticError = &Kind{name: "arithmetic error"}
)

// Error returns the name of the kind.
func (k *Kind) Error() string {
	return k.name
}

// Error is an error with a kind.
type Error struct {
	kind *Kind
	err  error
}

func newError(kind *Kind, err error) *Error {
	return &Error{kind: kind, err: err}
}

// Typef returns a new TypeError.
func Typef(format string, a ...any) error {
	return newError(TypeError, errors.Errorf(format, a...))
}

// Shapef returns a new ShapeError.
func Shapef(format string, a ...any) error {
	return newError(ShapeError, errors.Errorf(format, a...))
}

// Indexf returns a new IndexError.
func Indexf(format string, a ...any) error {
	return newError(IndexError, errors.Errorf(format, a...))
}

// Contextf returns a new ContextError.
func Contextf(format string, a ...any) error {
	return newError(ContextError, errors.Errorf(format, a...))
}

// Arithmeticf returns a new ArithmeticError.
func Arithmeticf(format string, a ...any) error {
	return newError(ArithmeticError, errors.Errorf(format, a...))
}

// Wrap annotates an error with a message.
// The kind of the error, if any, is preserved.
func Wrap(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return errors.WithMessagef(err, format, a...)
}

// Internal marks an error as internal, that is a bug in this package.
func Internal(err error) error {
	return fmt.Errorf("IR internal error. This is a bug. Please report it. Error:\n%+v", err)
}

// Internalf returns a new internal error.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}

// KindOf returns the kind of an error or nil if the error has no kind.
func KindOf(err error) *Kind {
	var irErr *Error
	if !errors.As(err, &irErr) {
		return nil
	}
	return irErr.kind
}

// Kind returns the kind of the error.
func (err *Error) Kind() *Kind {
	return err.kind
}

// Error returns the error message prefixed with its kind.
func (err *Error) Error() string {
	return err.kind.name + ": " + err.err.Error()
}

// Unwrap returns the cause of the error.
func (err *Error) Unwrap() error {
	return err.err
}

// Is returns true if the target is the kind of the error.
func (err *Error) Is(target error) bool {
	kind, ok := target.(*Kind)
	return ok && kind == err.kind
}

// Format writes the error into the state of the formatter.
// The stack trace is included when the + flag is set.
func (err *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, err.Error())
			var withSt interface {
				StackTrace() errors.StackTrace
			}
			if errors.As(err.err, &withSt) {
				fmt.Fprintf(s, "\nError generated at:%+v\n", withSt.StackTrace())
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}
