// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/token"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// state is one evaluation in progress. It is the syntax.Context handed to
// custom constructs and the bridge.Caller handed to host functions.
type state struct {
	ctx     context.Context
	eng     *Engine
	scope   *scope.Scope
	imports []string
	depth   int
	ops     uint64
	pos     hcl.Range
	funcs   map[string]function.Function
}

func newState(ctx context.Context, e *Engine, s *scope.Scope) *state {
	if ctx == nil {
		ctx = context.Background()
	}
	st := &state{ctx: ctx, eng: e, scope: s}
	st.funcs = e.funcs.HCLFunctions(func(name string) *bridge.CallContext {
		return bridge.NewCallContext(st.ctx, name, st.pos, st)
	})
	return st
}

func (st *state) Context() context.Context { return st.ctx }
func (st *state) Scope() *scope.Scope      { return st.scope }
func (st *state) Imports() []string        { return st.imports }
func (st *state) CallDepth() int           { return st.depth }

// EvalExpression evaluates a custom construct's input.
func (st *state) EvalExpression(expr ast.Expression) (dynamic.Value, error) {
	switch expr.Kind() {
	case ast.InputBlock:
		return st.execBlock(expr.Block())
	case ast.InputIdent:
		name, _ := expr.VariableName()
		v, ok := st.scope.Get(name)
		if !ok {
			return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindVariableNotFound, expr.Range(), fmt.Errorf("'%s'", name))
		}
		return v.Flatten(), nil
	default:
		return st.evalHCL(expr.HCL())
	}
}

// CallFn re-enters the dispatcher on behalf of a host function.
func (st *state) CallFn(ctx context.Context, name string, args ...dynamic.Value) (dynamic.Value, error) {
	if st.depth >= st.eng.opts.MaxCallDepth {
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindStackOverflow, st.pos,
			fmt.Errorf("calling '%s' exceeds the maximum call depth of %d", name, st.eng.opts.MaxCallDepth))
	}
	st.depth++
	defer func() { st.depth-- }()

	slots := make([]*dynamic.Value, len(args))
	for i := range args {
		v := args[i]
		slots[i] = &v
	}
	return st.eng.funcs.Call(bridge.NewCallContext(ctx, name, st.pos, st), name, slots)
}

func (st *state) run(body *ast.Block) (dynamic.Value, error) {
	out, err := st.execStmts(body.Stmts)
	if err == nil {
		return out, nil
	}
	var ret *scripterr.Return
	switch {
	case errors.As(err, &ret):
		return ret.Value, nil
	case errors.Is(err, scripterr.ErrBreak), errors.Is(err, scripterr.ErrContinue):
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindLoopBreak, st.pos, err)
	}
	return dynamic.Unit(), err
}

func (st *state) execStmts(stmts []ast.Stmt) (dynamic.Value, error) {
	out := dynamic.Unit()
	for _, stmt := range stmts {
		v, err := st.exec(stmt)
		if err != nil {
			return dynamic.Unit(), err
		}
		out = v
	}
	return out, nil
}

func (st *state) execBlock(b *ast.Block) (dynamic.Value, error) {
	size := st.scope.Len()
	defer st.scope.Rewind(size)
	return st.execStmts(b.Stmts)
}

// tick accounts for one statement and checks the run limits.
func (st *state) tick(rng hcl.Range) error {
	st.pos = rng
	st.ops++
	if limit := st.eng.opts.MaxOperations; limit > 0 && st.ops > limit {
		return scripterr.NewEvalError(scripterr.KindTooManyOperations, rng, fmt.Errorf("limit of %d reached", limit))
	}
	if err := st.ctx.Err(); err != nil {
		return scripterr.NewEvalError(scripterr.KindTerminated, rng, err)
	}
	return nil
}

func (st *state) exec(stmt ast.Stmt) (dynamic.Value, error) {
	if err := st.tick(stmt.Range()); err != nil {
		return dynamic.Unit(), err
	}

	switch s := stmt.(type) {
	case *ast.Block:
		return st.execBlock(s)

	case *ast.ExprStmt:
		return st.evalStatementExpr(s.Expr)

	case *ast.Let:
		v := dynamic.Unit()
		if s.Value != nil {
			var err error
			if v, err = st.value(s.Value); err != nil {
				return dynamic.Unit(), err
			}
		}
		mode := dynamic.ReadWrite
		if s.Const {
			mode = dynamic.ReadOnly
		}
		st.scope.PushMode(s.Name, v, mode)
		return dynamic.Unit(), nil

	case *ast.Assign:
		return dynamic.Unit(), st.assign(s)

	case *ast.If:
		ok, err := st.condition(s.Cond)
		if err != nil {
			return dynamic.Unit(), err
		}
		switch {
		case ok:
			return st.execBlock(s.Then)
		case s.Else != nil:
			return st.exec(s.Else)
		}
		return dynamic.Unit(), nil

	case *ast.While:
		for {
			ok, err := st.condition(s.Cond)
			if err != nil {
				return dynamic.Unit(), err
			}
			if !ok {
				return dynamic.Unit(), nil
			}
			if _, err := st.execBlock(s.Body); err != nil {
				switch {
				case errors.Is(err, scripterr.ErrBreak):
					return dynamic.Unit(), nil
				case errors.Is(err, scripterr.ErrContinue):
				default:
					return dynamic.Unit(), err
				}
			}
			if err := st.tick(s.SrcRange); err != nil {
				return dynamic.Unit(), err
			}
		}

	case *ast.For:
		return dynamic.Unit(), st.execFor(s)

	case *ast.Break:
		return dynamic.Unit(), scripterr.ErrBreak

	case *ast.Continue:
		return dynamic.Unit(), scripterr.ErrContinue

	case *ast.Return:
		v := dynamic.Unit()
		if s.Value != nil {
			var err error
			if v, err = st.value(s.Value); err != nil {
				return dynamic.Unit(), err
			}
		}
		return dynamic.Unit(), &scripterr.Return{Value: v}

	case *ast.Import:
		return dynamic.Unit(), st.importModule(s)

	case *ast.Export:
		i, ok := st.scope.Index(s.Name)
		if !ok {
			return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindVariableNotFound, s.SrcRange, fmt.Errorf("cannot export '%s'", s.Name))
		}
		st.scope.AddAlias(i, s.Alias)
		return dynamic.Unit(), nil

	case *ast.Custom:
		return st.execCustom(s)
	}
	return dynamic.Unit(), fmt.Errorf("unsupported statement %T", stmt)
}

// value evaluates the right-hand side of a binding or return without
// counting it as a statement of its own.
func (st *state) value(stmt ast.Stmt) (dynamic.Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return st.evalStatementExpr(s.Expr)
	case *ast.Custom:
		return st.execCustom(s)
	}
	return st.exec(stmt)
}

func (st *state) assign(s *ast.Assign) error {
	v, err := st.value(s.Value)
	if err != nil {
		return err
	}
	if !st.scope.Contains(s.Name) {
		return scripterr.NewEvalError(scripterr.KindVariableNotFound, s.NameRange, fmt.Errorf("'%s'", s.Name))
	}
	if slot := st.scope.GetMut(s.Name); slot != nil && slot.IsShared() {
		if err := slot.Set(v.Cty()); err != nil {
			return scripterr.NewEvalError(scripterr.KindExpression, s.SrcRange, err)
		}
		return nil
	}
	if err := st.scope.SetValue(s.Name, v); err != nil {
		var ce *scope.ConstantError
		if errors.As(err, &ce) {
			return scripterr.NewEvalError(scripterr.KindAssignmentToConstant, s.NameRange, err)
		}
		return scripterr.NewEvalError(scripterr.KindExpression, s.SrcRange, err)
	}
	return nil
}

func (st *state) condition(expr hclsyntax.Expression) (bool, error) {
	v, err := st.evalHCL(expr)
	if err != nil {
		return false, err
	}
	val := v.Cty()
	if val.IsNull() || !val.Type().Equals(cty.Bool) {
		return false, scripterr.NewEvalError(scripterr.KindExpression, expr.Range(),
			fmt.Errorf("condition must be a bool, got %s", v.TypeName()))
	}
	return val.True(), nil
}

// execFor binds each item to a fresh loop variable. Variables the body
// declares are gone before the next item is bound.
func (st *state) execFor(s *ast.For) error {
	v, err := st.evalHCL(s.Iterable)
	if err != nil {
		return err
	}
	items, err := st.iterate(v, s.Iterable.Range())
	if err != nil {
		return err
	}

	size := st.scope.Len()
	defer st.scope.Rewind(size)
	for item, err := range items {
		if err != nil {
			return scripterr.NewEvalError(scripterr.KindFunction, s.Iterable.Range(), err)
		}
		st.scope.Rewind(size)
		st.scope.PushDynamic(s.Var, item)
		if _, err := st.execBlock(s.Body); err != nil {
			switch {
			case errors.Is(err, scripterr.ErrBreak):
				return nil
			case errors.Is(err, scripterr.ErrContinue):
			default:
				return err
			}
		}
		if err := st.tick(s.SrcRange); err != nil {
			return err
		}
	}
	return nil
}

// iterate lists the items of a collection or string, or of a host value
// with a registered iterator. Maps and objects are iterated through
// keys() or values().
func (st *state) iterate(v dynamic.Value, rng hcl.Range) (iter.Seq2[dynamic.Value, error], error) {
	v = v.Flatten()
	val := v.Cty()
	ty := val.Type()
	switch {
	case val.IsNull() || !val.IsKnown():
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		return func(yield func(dynamic.Value, error) bool) {
			for it := val.ElementIterator(); it.Next(); {
				_, elem := it.Element()
				if !yield(dynamic.Wrap(elem), nil) {
					return
				}
			}
		}, nil
	case ty.Equals(cty.String):
		return func(yield func(dynamic.Value, error) bool) {
			for _, r := range val.AsString() {
				if !yield(dynamic.Wrap(cty.StringVal(string(r))), nil) {
					return
				}
			}
		}, nil
	default:
		if fn, ok := st.eng.funcs.Iterator(ty); ok {
			return fn(v), nil
		}
	}
	return nil, scripterr.NewEvalError(scripterr.KindFor, rng, fmt.Errorf("'%s' is not iterable", v.TypeName()))
}

func (st *state) importModule(s *ast.Import) error {
	v, err := st.evalHCL(s.Path)
	if err != nil {
		return err
	}
	path, err := dynamic.As[string](v)
	if err != nil {
		return scripterr.NewEvalError(scripterr.KindModule, s.Path.Range(), fmt.Errorf("module path: %w", err))
	}
	if st.eng.opts.Resolver == nil {
		return scripterr.NewEvalError(scripterr.KindModule, s.SrcRange, fmt.Errorf("no module resolver to load '%s'", path))
	}

	ctxlog.FromContext(st.ctx).Debug("Importing module.", "path", path, "alias", s.Alias)
	obj, err := st.eng.opts.Resolver.Resolve(st.ctx, st.eng, path)
	if err != nil {
		return scripterr.NewEvalError(scripterr.KindModule, s.SrcRange, err)
	}
	st.scope.PushConstantDynamic(s.Alias, dynamic.Wrap(obj))
	st.imports = append(st.imports, s.Alias)
	return nil
}

func (st *state) execCustom(s *ast.Custom) (dynamic.Value, error) {
	rule, ok := st.eng.syntax.Lookup(s.Key)
	if !ok {
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindCustomSyntax, s.SrcRange, fmt.Errorf("no syntax registered for '%s'", s.Key))
	}
	ctxlog.FromContext(st.ctx).Debug("Running custom syntax.", "key", s.Key, "tokens", s.Tokens)

	before := st.scope.Len()
	out, err := rule.Eval(st, s.Inputs)
	if err != nil {
		var ee *scripterr.EvalError
		if scripterr.IsControl(err) || errors.As(err, &ee) {
			return dynamic.Unit(), err
		}
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindCustomSyntax, s.SrcRange, err)
	}

	if want, got := max(0, before+s.ScopeDelta), st.scope.Len(); got != want {
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindScopeDeltaMismatch, s.SrcRange,
			fmt.Errorf("'%s' declared a scope delta of %d but the scope went from %d to %d entries", s.Key, s.ScopeDelta, before, got))
	}
	return out, nil
}

// evalStatementExpr evaluates a statement-level expression. A call whose
// first argument is a bare variable and whose overload is a method gets
// that variable's slot by reference.
func (st *state) evalStatementExpr(expr hclsyntax.Expression) (dynamic.Value, error) {
	call, ok := expr.(*hclsyntax.FunctionCallExpr)
	if !ok || len(call.Args) == 0 || call.ExpandFinal || !st.eng.funcs.Has(call.Name) {
		return st.evalHCL(expr)
	}
	name, ok := ast.VariableName(call.Args[0])
	if !ok {
		return st.evalHCL(expr)
	}
	idx, ok := st.scope.Index(name)
	if !ok {
		return st.evalHCL(expr)
	}

	args := make([]*dynamic.Value, len(call.Args))
	types := make([]cty.Type, len(call.Args))
	first := st.scope.Entry(idx).Value
	types[0] = first.TypeID()
	for i, a := range call.Args[1:] {
		v, err := st.evalHCL(a)
		if err != nil {
			return dynamic.Unit(), err
		}
		args[i+1] = &v
		types[i+1] = v.TypeID()
	}

	entry, err := st.eng.funcs.Resolve(call.Name, types)
	if err != nil {
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindFunction, call.Range(), err)
	}
	if entry.IsMethod() {
		if first.IsReadOnly() {
			return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindNonPureMethodOnConstant, call.Range(),
				fmt.Errorf("'%s' modifies its first argument but '%s' is a constant", call.Name, name))
		}
		args[0] = st.scope.GetMutByIndex(idx)
	} else {
		v := first.Flatten()
		args[0] = &v
	}

	st.pos = call.Range()
	out, err := registry.Invoke(bridge.NewCallContext(st.ctx, call.Name, st.pos, st), call.Name, entry, args)
	if err != nil {
		var ee *scripterr.EvalError
		if errors.As(err, &ee) {
			return dynamic.Unit(), err
		}
		return dynamic.Unit(), scripterr.NewEvalError(scripterr.KindFunction, call.Range(), err)
	}
	return out, nil
}

// evalHCL evaluates an HCL expression against the visible bindings.
func (st *state) evalHCL(expr hclsyntax.Expression) (dynamic.Value, error) {
	st.pos = expr.Range()
	val, diags := expr.Value(&hcl.EvalContext{
		Variables: st.variables(),
		Functions: st.funcs,
	})
	if diags.HasErrors() {
		return dynamic.Unit(), st.diagError(expr.Range(), diags)
	}
	return dynamic.Wrap(val), nil
}

func (st *state) variables() map[string]cty.Value {
	vars := make(map[string]cty.Value, st.scope.Len())
	for e := range st.scope.Visible() {
		if token.IsValidIdentifier(e.Name) {
			vars[e.Name] = e.Value.Cty()
		}
	}
	return vars
}

// diagError turns HCL diagnostics into an EvalError. An error raised by a
// host function is kept as the cause.
func (st *state) diagError(rng hcl.Range, diags hcl.Diagnostics) error {
	for _, d := range diags {
		extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d)
		if !ok || extra.FunctionCallError() == nil {
			continue
		}
		cause := extra.FunctionCallError()
		var ee *scripterr.EvalError
		if errors.As(cause, &ee) {
			return ee
		}
		if d.Subject != nil {
			rng = *d.Subject
		}
		return &scripterr.EvalError{Kind: scripterr.KindFunction, Range: rng, Err: cause, Diags: diags}
	}
	return &scripterr.EvalError{Kind: scripterr.KindExpression, Range: rng, Err: diags, Diags: diags}
}
