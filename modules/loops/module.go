// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package loops adds control-flow statements built on custom syntax:
//
//	repeat 3 { ... }
//	unless done { ... }
//	swap a b
//
// and the range values that for loops count with:
//
//	for i in range(0, 10, 2) { ... }
package loops

import (
	"errors"
	"fmt"

	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/syntax"
)

// Module implements the registry.Module and syntax.Module interfaces for
// this package.
type Module struct{}

// Register adds range(from, to) and range(from, to, step) and makes ranges
// iterable.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("range", NewRange)
	r.RegisterFn("range", NewRangeStep)
	registry.RegisterIterable(r, (*Range).All)
}

// RegisterSyntax registers repeat, unless and swap.
func (m *Module) RegisterSyntax(r *syntax.Registry) error {
	rules := []struct {
		segments []string
		eval     syntax.EvalFunc
	}{
		{[]string{"repeat", syntax.MarkerExpr, syntax.MarkerBlock}, Repeat},
		{[]string{"unless", syntax.MarkerExpr, syntax.MarkerBlock}, Unless},
		{[]string{"swap", syntax.MarkerIdent, syntax.MarkerIdent}, Swap},
	}
	for _, rule := range rules {
		if err := r.Register(rule.segments, 0, rule.eval); err != nil {
			return fmt.Errorf("registering '%s': %w", rule.segments[0], err)
		}
	}
	return nil
}

// Repeat runs the block a fixed number of times. break and continue behave
// as they do in while.
func Repeat(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
	v, err := ctx.EvalExpression(in[0])
	if err != nil {
		return dynamic.Unit(), err
	}
	n, err := dynamic.As[int](v)
	if err != nil {
		return dynamic.Unit(), fmt.Errorf("repeat count must be a whole number: %w", err)
	}
	for range max(n, 0) {
		if _, err := ctx.EvalExpression(in[1]); err != nil {
			switch {
			case errors.Is(err, scripterr.ErrBreak):
				return dynamic.Unit(), nil
			case errors.Is(err, scripterr.ErrContinue):
			default:
				return dynamic.Unit(), err
			}
		}
	}
	return dynamic.Unit(), nil
}

// Unless runs the block when the condition is false and returns its result.
func Unless(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
	v, err := ctx.EvalExpression(in[0])
	if err != nil {
		return dynamic.Unit(), err
	}
	cond, err := dynamic.As[bool](v)
	if err != nil {
		return dynamic.Unit(), fmt.Errorf("unless condition must be a bool: %w", err)
	}
	if cond {
		return dynamic.Unit(), nil
	}
	return ctx.EvalExpression(in[1])
}

// Swap exchanges the values of two variables.
func Swap(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
	a, _ := in[0].VariableName()
	b, _ := in[1].VariableName()
	s := ctx.Scope()

	va, err := lookup(s, a)
	if err != nil {
		return dynamic.Unit(), err
	}
	vb, err := lookup(s, b)
	if err != nil {
		return dynamic.Unit(), err
	}
	for _, name := range []string{a, b} {
		if constant, _ := s.IsConstant(name); constant {
			return dynamic.Unit(), &scope.ConstantError{Name: name}
		}
	}
	if err := s.SetValue(a, vb); err != nil {
		return dynamic.Unit(), err
	}
	return dynamic.Unit(), s.SetValue(b, va)
}

func lookup(s *scope.Scope, name string) (dynamic.Value, error) {
	v, ok := s.Get(name)
	if !ok {
		return dynamic.Unit(), fmt.Errorf("%w: '%s'", scope.ErrNotFound, name)
	}
	return v.Flatten(), nil
}
