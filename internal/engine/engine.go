// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"context"
	"io"
	"os"

	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/syntax"
	"github.com/vk/gridscript/internal/token"
	"github.com/zclconf/go-cty/cty"
)

// DefaultMaxCallDepth bounds nested CallFn re-entry when Options leaves it
// unset.
const DefaultMaxCallDepth = 64

// ModuleResolver loads the module named by an import statement and returns
// its exports as an object.
type ModuleResolver interface {
	Resolve(ctx context.Context, e *Engine, path string) (cty.Value, error)
}

// Options configures an Engine.
type Options struct {
	// MaxCallDepth limits nested host-to-script calls. Zero means
	// DefaultMaxCallDepth.
	MaxCallDepth int
	// MaxOperations limits the statements one Run may execute. Zero means
	// no limit.
	MaxOperations uint64
	// Output receives what scripts print. Nil means os.Stdout.
	Output io.Writer
	// Resolver serves import statements. Nil makes every import fail.
	Resolver ModuleResolver
}

// Engine compiles and runs scripts. Registration must finish before the
// engine is used from several goroutines; after that, Compile and Run are
// safe for concurrent use with distinct scopes.
type Engine struct {
	opts    Options
	symbols *token.Symbols
	syntax  *syntax.Registry
	funcs   *registry.Registry
}

// New creates an engine with no host functions.
func New(opts Options) *Engine {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	symbols := token.NewSymbols()
	return &Engine{
		opts:    opts,
		symbols: symbols,
		syntax:  syntax.New(symbols),
		funcs:   registry.New(),
	}
}

// Output returns the writer scripts print to.
func (e *Engine) Output() io.Writer { return e.opts.Output }

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Functions returns the host function registry.
func (e *Engine) Functions() *registry.Registry { return e.funcs }

// Syntax returns the custom syntax registry.
func (e *Engine) Syntax() *syntax.Registry { return e.syntax }

// Symbols returns the engine's symbol table.
func (e *Engine) Symbols() *token.Symbols { return e.symbols }

// SetResolver replaces the module resolver.
func (e *Engine) SetResolver(r ModuleResolver) { e.opts.Resolver = r }

// RegisterFn registers a host function. See registry.Registry.RegisterFn.
func (e *Engine) RegisterFn(name string, fn any) *Engine {
	e.funcs.RegisterFn(name, fn)
	return e
}

// RegisterMethod registers a host function whose first parameter is passed
// by reference.
func (e *Engine) RegisterMethod(name string, fn any) *Engine {
	e.funcs.RegisterMethod(name, fn)
	return e
}

// RegisterModules registers every module's functions.
func (e *Engine) RegisterModules(mods ...registry.Module) *Engine {
	for _, m := range mods {
		m.Register(e.funcs)
	}
	return e
}

// RegisterSyntaxModules installs every module's custom syntax.
func (e *Engine) RegisterSyntaxModules(mods ...syntax.Module) error {
	for _, m := range mods {
		if err := m.RegisterSyntax(e.syntax); err != nil {
			return err
		}
	}
	return nil
}

// RegisterCustomSyntax installs a custom construct. See syntax.Registry.Register.
func (e *Engine) RegisterCustomSyntax(segments []string, scopeDelta int, eval syntax.EvalFunc) error {
	return e.syntax.Register(segments, scopeDelta, eval)
}

// RegisterCustomSyntaxRaw installs a construct driven by parse.
func (e *Engine) RegisterCustomSyntaxRaw(key string, parse syntax.ParseFunc, scopeDelta int, eval syntax.EvalFunc) *Engine {
	e.syntax.RegisterRaw(key, parse, scopeDelta, eval)
	return e
}

// DisableSymbol switches off a keyword or operator.
func (e *Engine) DisableSymbol(sym string) *Engine {
	e.symbols.Disable(sym)
	return e
}

// Compile parses src into a program.
func (e *Engine) Compile(filename string, src []byte) (*ast.Program, error) {
	return e.compile(filename, src, nil)
}

// CompileWithScope parses src knowing the bindings of s, so assignments to
// its constants are rejected at parse time.
func (e *Engine) CompileWithScope(filename string, src []byte, s *scope.Scope) (*ast.Program, error) {
	return e.compile(filename, src, s)
}

func (e *Engine) compile(filename string, src []byte, s *scope.Scope) (*ast.Program, error) {
	toks, err := lex(src, filename)
	if err != nil {
		return nil, err
	}
	p := newParser(e, filename, src, toks)
	if s != nil {
		for entry := range s.IterRaw() {
			p.stack = append(p.stack, binding{name: entry.Name, constant: entry.Constant})
		}
	}
	body, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return &ast.Program{Filename: filename, Source: src, Body: body}, nil
}

// Run executes prog against s. Top-level bindings stay in s afterwards. The
// result is the value of the last expression statement or of a return
// statement.
func (e *Engine) Run(ctx context.Context, s *scope.Scope, prog *ast.Program) (dynamic.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Script run started.", "file", prog.Filename, "bindings", s.Len())

	st := newState(ctx, e, s)
	out, err := st.run(prog.Body)
	if err != nil {
		logger.Debug("Script run failed.", "file", prog.Filename, "error", err)
		return dynamic.Unit(), err
	}
	logger.Debug("Script run finished.", "file", prog.Filename, "operations", st.ops)
	return out, nil
}

// Eval compiles and runs src in one step.
func (e *Engine) Eval(ctx context.Context, s *scope.Scope, filename string, src string) (dynamic.Value, error) {
	prog, err := e.CompileWithScope(filename, []byte(src), s)
	if err != nil {
		return dynamic.Unit(), err
	}
	return e.Run(ctx, s, prog)
}

// CallFn calls a host function from outside any script.
func (e *Engine) CallFn(ctx context.Context, name string, args ...dynamic.Value) (dynamic.Value, error) {
	return newState(ctx, e, scope.New()).CallFn(ctx, name, args...)
}

var _ bridge.Caller = (*Engine)(nil)

// Exports returns alias to value for every exported binding of s. A later
// binding wins over an earlier one with the same alias.
func (e *Engine) Exports(s *scope.Scope) map[string]dynamic.Value {
	out := make(map[string]dynamic.Value)
	for i := 0; i < s.Len(); i++ {
		aliases := s.Aliases(i)
		if len(aliases) == 0 {
			continue
		}
		v := s.Entry(i).Value.Flatten()
		for _, a := range aliases {
			out[a] = v
		}
	}
	return out
}

// ExportsObject is Exports as a cty object.
func (e *Engine) ExportsObject(s *scope.Scope) cty.Value {
	exports := e.Exports(s)
	if len(exports) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(exports))
	for k, v := range exports {
		attrs[k] = v.Cty()
	}
	return cty.ObjectVal(attrs)
}
