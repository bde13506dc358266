// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scope

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotFound is returned by Lookup when no binding has the requested name.
var ErrNotFound = errors.New("variable not found")

// ConstantError is returned when a ReadOnly binding is assigned to.
type ConstantError struct {
	Name string
}

func (e *ConstantError) Error() string {
	return fmt.Sprintf("variable %q is constant", e.Name)
}

// TypeMismatchError is returned by Lookup when the binding exists but does
// not hold the requested type.
type TypeMismatchError struct {
	Name string
	Want reflect.Type
	Got  cty.Type
	Err  error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("variable %q holds %s, not %s", e.Name, e.Got.FriendlyName(), e.Want)
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

// GetValue returns the most recent binding named n, flattened and
// downcast to T. It reports false both when the name is absent and when the
// value has another type; use Lookup to tell the two apart.
func GetValue[T any](s *Scope, n string) (T, bool) {
	out, err := Lookup[T](s, n)
	return out, err == nil
}

// Lookup is GetValue with a three-state result: the value, ErrNotFound, or
// a *TypeMismatchError.
func Lookup[T any](s *Scope, n string) (T, error) {
	var zero T
	v, ok := s.Get(n)
	if !ok {
		return zero, fmt.Errorf("%q: %w", n, ErrNotFound)
	}
	v = v.Flatten()
	out, err := dynamic.As[T](v)
	if err != nil {
		return zero, &TypeMismatchError{Name: n, Want: reflect.TypeFor[T](), Got: v.TypeID(), Err: err}
	}
	return out, nil
}
