// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bridge

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// CastError is the panic value raised by Entry.Invoke when its arguments do
// not match the fingerprint.
type CastError struct {
	Index int
	Want  reflect.Type
	Got   cty.Type
	Err   error
}

func (e *CastError) Error() string {
	if e.Want == nil {
		return fmt.Sprintf("argument cast failed: %v", e.Err)
	}
	got := "unknown"
	if e.Got != cty.NilType {
		got = typeName(e.Got)
	}
	return fmt.Sprintf("argument #%d: cannot cast %s to %s: %v", e.Index+1, got, e.Want, e.Err)
}

func (e *CastError) Unwrap() error {
	return e.Err
}
