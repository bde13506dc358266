// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package syntax lets hosts extend the statement grammar with custom
// constructs. A construct is a sequence of literal symbols and input
// markers; the engine's parser walks it, and the host's evaluation
// callback receives the parsed inputs.
package syntax

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/token"
)

// Input markers.
const (
	MarkerExpr  = "$expr$"
	MarkerBlock = "$block$"
	MarkerIdent = "$ident$"
)

// IsMarker reports whether s is one of the input markers.
func IsMarker(s string) bool {
	return s == MarkerExpr || s == MarkerBlock || s == MarkerIdent
}

// ParseFunc drives the parser through a construct. matched holds what has
// been parsed so far, starting with the key; lookAhead is the text of the
// next token. It returns the next expected literal or marker, or "" when
// the construct is complete.
type ParseFunc func(matched []string, lookAhead string) (next string, err error)

// EvalFunc runs a parsed construct.
type EvalFunc func(ctx Context, inputs []ast.Expression) (dynamic.Value, error)

// Context is what an EvalFunc sees of the running evaluation.
type Context interface {
	Context() context.Context
	Scope() *scope.Scope
	Imports() []string
	CallDepth() int
	// EvalExpression evaluates an input. A $block$ input runs with block
	// semantics; an $ident$ input yields the variable's value.
	EvalExpression(expr ast.Expression) (dynamic.Value, error)
}

// Rule is one registered construct.
type Rule struct {
	Key string
	// Segments is the shape given to Register; nil for raw rules.
	Segments []string

	Parse      ParseFunc
	ScopeDelta int
	Eval       EvalFunc
}

// Module is implemented by packages that contribute custom syntax.
type Module interface {
	RegisterSyntax(r *Registry) error
}

// Registry holds the custom syntax rules of one engine.
type Registry struct {
	mu      sync.RWMutex
	symbols *token.Symbols
	rules   map[string]*Rule
}

// New creates a registry that records custom keywords in symbols.
func New(symbols *token.Symbols) *Registry {
	return &Registry{symbols: symbols, rules: make(map[string]*Rule)}
}

// Register installs a construct described by segments. The first segment is
// the key and must be an identifier; later segments are markers, operators,
// keywords or identifiers, matched literally. Only disabled and reserved
// symbols become custom keywords; the key stays usable as a variable name.
// An error leaves the registry unchanged.
func (r *Registry) Register(segments []string, scopeDelta int, eval EvalFunc) error {
	var (
		segs   []string
		custom []string
	)
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		switch first := len(segs) == 0; {
		case IsMarker(s) && !first:
		case !first && token.IsStandard(s):
			if r.symbols.IsDisabled(s) || token.IsReserved(s) {
				custom = append(custom, s)
			}
		case token.IsValidIdentifier(s) && !token.IsKeyword(s) && !token.IsReserved(s):
			if r.symbols.IsDisabled(s) {
				custom = append(custom, s)
			}
		default:
			return scripterr.NewParseError(scripterr.ImproperSymbol,
				fmt.Sprintf("Improper symbol for custom syntax at position #%d: '%s'", len(segs)+1, s), nil)
		}
		segs = append(segs, s)
	}

	if len(segs) == 0 {
		return nil
	}

	for _, s := range custom {
		r.symbols.RegisterCustomKeyword(s)
	}
	r.install(&Rule{
		Key:      segs[0],
		Segments: segs,
		Parse: func(matched []string, _ string) (string, error) {
			if len(matched) >= len(segs) {
				return "", nil
			}
			return segs[len(matched)], nil
		},
		ScopeDelta: scopeDelta,
		Eval:       eval,
	})
	return nil
}

// RegisterRaw installs a construct whose shape is decided by parse. The key
// is not made a custom keyword; use token.Symbols for that if needed.
// Registering an existing key replaces it.
func (r *Registry) RegisterRaw(key string, parse ParseFunc, scopeDelta int, eval EvalFunc) {
	r.install(&Rule{Key: key, Parse: parse, ScopeDelta: scopeDelta, Eval: eval})
}

func (r *Registry) install(rule *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slog.Debug("Registering custom syntax.", "key", rule.Key, "segments", rule.Segments, "scope_delta", rule.ScopeDelta)
	r.rules[rule.Key] = rule
}

// Lookup returns the rule keyed by key.
func (r *Registry) Lookup(key string) (*Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[key]
	return rule, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.rules))
	for k := range r.rules {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Symbols returns the symbol table the registry writes to.
func (r *Registry) Symbols() *token.Symbols {
	return r.symbols
}
