// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
)

// ErrNoCaller is returned by CallContext.CallFn when the context was built
// without a dispatcher to call back into.
var ErrNoCaller = errors.New("no function dispatcher available in this call context")

// Caller dispatches a call by name. The engine implements it so host
// functions can call back into script-visible functions.
type Caller interface {
	CallFn(ctx context.Context, name string, args ...dynamic.Value) (dynamic.Value, error)
}

// CallContext is handed to host functions registered with a context parameter.
type CallContext struct {
	ctx    context.Context
	name   string
	pos    hcl.Range
	caller Caller
}

// NewCallContext builds the context for one native call.
func NewCallContext(ctx context.Context, name string, pos hcl.Range, caller Caller) *CallContext {
	return &CallContext{ctx: ctx, name: name, pos: pos, caller: caller}
}

// Context returns the context.Context of the running evaluation.
func (c *CallContext) Context() context.Context {
	if c == nil || c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// FnName returns the name the function was called by.
func (c *CallContext) FnName() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Position returns the source range of the call site.
func (c *CallContext) Position() hcl.Range {
	if c == nil {
		return hcl.Range{}
	}
	return c.pos
}

// Logger returns the evaluation's logger tagged with the function name.
func (c *CallContext) Logger() *slog.Logger {
	return ctxlog.FromContext(c.Context()).With("fn", c.FnName())
}

// CallFn calls another registered function by name.
func (c *CallContext) CallFn(name string, args ...any) (dynamic.Value, error) {
	if c == nil || c.caller == nil {
		return dynamic.Unit(), ErrNoCaller
	}
	values := make([]dynamic.Value, len(args))
	for i, a := range args {
		v, err := dynamic.From(a)
		if err != nil {
			return dynamic.Unit(), err
		}
		values[i] = v
	}
	return c.caller.CallFn(c.Context(), name, values...)
}
