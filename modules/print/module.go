// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package print provides output and introspection functions: print, debug
// and type_of.
package print

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// MaxArgs is the largest number of values a single print call accepts.
const MaxArgs = 8

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives printed lines. Nil means os.Stdout.
	Out io.Writer
}

// Render formats a value the way debug shows it: HCL syntax for data, the
// type name in angle brackets for host objects.
func Render(v dynamic.Value) string {
	val := v.Cty()
	switch {
	case v.IsUnit():
		return "null"
	case !val.IsWhollyKnown():
		return "(unknown)"
	case hasCapsule(val.Type()):
		return "<" + v.TypeName() + ">"
	}
	return strings.TrimSpace(string(hclwrite.TokensForValue(val).Bytes()))
}

// text formats a value for print: strings appear without quotes.
func text(v dynamic.Value) string {
	val := v.Cty()
	if !val.IsNull() && val.Type() == cty.String {
		return val.AsString()
	}
	return Render(v)
}

func hasCapsule(ty cty.Type) bool {
	switch {
	case ty.IsCapsuleType():
		return true
	case ty.IsObjectType():
		for _, at := range ty.AttributeTypes() {
			if hasCapsule(at) {
				return true
			}
		}
	case ty.IsTupleType():
		for _, et := range ty.TupleElementTypes() {
			if hasCapsule(et) {
				return true
			}
		}
	case ty.IsCollectionType():
		return hasCapsule(ty.ElementType())
	}
	return false
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	for n := 0; n <= MaxArgs; n++ {
		params := make([]cty.Type, n)
		for i := range params {
			params[i] = cty.DynamicPseudoType
		}
		r.RegisterEntry("print", bridge.NewRawEntry(params, bridge.Fallible, false,
			func(call *bridge.CallContext, args []*dynamic.Value) (dynamic.Value, error) {
				parts := make([]string, len(args))
				for i, a := range args {
					parts[i] = text(a.Take())
				}
				_, err := fmt.Fprintln(out, strings.Join(parts, " "))
				return dynamic.Unit(), err
			}))
	}

	r.RegisterFn("debug", func(v dynamic.Value) string { return Render(v) })
	r.RegisterFn("type_of", func(v dynamic.Value) string { return v.TypeName() })
}
