// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package token classifies the words and operators a script may contain.
//
// The lexical grammar itself is HCL's native syntax; this package only adds
// the statement keywords on top of it and tracks the per-engine state that
// changes how a word is treated: disabled symbols and custom keywords.
package token

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Class is the lexical category of a symbol.
type Class uint8

const (
	Invalid Class = iota
	Ident
	Keyword
	Reserved
	Operator
	Custom
)

func (c Class) String() string {
	switch c {
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Reserved:
		return "reserved word"
	case Operator:
		return "operator"
	case Custom:
		return "custom keyword"
	default:
		return "invalid"
	}
}

var keywords = map[string]struct{}{
	"let": {}, "const": {}, "if": {}, "else": {}, "while": {}, "break": {},
	"continue": {}, "return": {}, "import": {}, "export": {}, "as": {},
	"true": {}, "false": {}, "null": {}, "for": {}, "in": {},
}

var reserved = map[string]struct{}{
	"fn": {}, "var": {}, "static": {}, "shared": {}, "match": {}, "case": {},
	"switch": {}, "do": {}, "loop": {}, "until": {}, "goto": {}, "exit": {},
	"public": {}, "private": {}, "new": {}, "use": {}, "with": {}, "module": {},
	"package": {}, "super": {}, "spawn": {}, "thread": {}, "go": {}, "sync": {},
	"async": {}, "await": {}, "yield": {}, "default": {}, "void": {}, "this": {},
}

var operators = map[string]hclsyntax.TokenType{
	"+": hclsyntax.TokenPlus, "-": hclsyntax.TokenMinus, "*": hclsyntax.TokenStar,
	"/": hclsyntax.TokenSlash, "%": hclsyntax.TokenPercent,
	"&&": hclsyntax.TokenAnd, "||": hclsyntax.TokenOr, "!": hclsyntax.TokenBang,
	"==": hclsyntax.TokenEqualOp, "!=": hclsyntax.TokenNotEqual,
	"<": hclsyntax.TokenLessThan, ">": hclsyntax.TokenGreaterThan,
	"<=": hclsyntax.TokenLessThanEq, ">=": hclsyntax.TokenGreaterThanEq,
	"=": hclsyntax.TokenEqual, "?": hclsyntax.TokenQuestion, ":": hclsyntax.TokenColon,
	".": hclsyntax.TokenDot, ",": hclsyntax.TokenComma, "...": hclsyntax.TokenEllipsis,
	"=>": hclsyntax.TokenFatArrow, "::": hclsyntax.TokenDoubleColon,
	"(": hclsyntax.TokenOParen, ")": hclsyntax.TokenCParen,
	"[": hclsyntax.TokenOBrack, "]": hclsyntax.TokenCBrack,
	"{": hclsyntax.TokenOBrace, "}": hclsyntax.TokenCBrace,
	";": hclsyntax.TokenSemicolon,
}

// IsKeyword reports whether s is a statement keyword.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// IsReserved reports whether s is reserved for future use.
func IsReserved(s string) bool {
	_, ok := reserved[s]
	return ok
}

// IsOperator reports whether s is an operator or punctuation symbol.
func IsOperator(s string) bool {
	_, ok := operators[s]
	return ok
}

// OperatorType returns the HCL token type of operator s.
func OperatorType(s string) (hclsyntax.TokenType, bool) {
	t, ok := operators[s]
	return t, ok
}

// IsStandard reports whether s is a keyword, a reserved word or an operator.
func IsStandard(s string) bool {
	return IsKeyword(s) || IsReserved(s) || IsOperator(s)
}

// IsValidIdentifier reports whether s can name a variable.
func IsValidIdentifier(s string) bool {
	return hclsyntax.ValidIdentifier(s)
}

// Symbols holds the symbol state of one engine.
type Symbols struct {
	mu       sync.RWMutex
	disabled map[string]struct{}
	custom   map[string]struct{}
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		disabled: make(map[string]struct{}),
		custom:   make(map[string]struct{}),
	}
}

// Lookup classifies s. A custom keyword wins over every other class.
func (s *Symbols) Lookup(text string) Class {
	if s.IsCustom(text) {
		return Custom
	}
	switch {
	case IsKeyword(text):
		return Keyword
	case IsReserved(text):
		return Reserved
	case IsOperator(text):
		return Operator
	case IsValidIdentifier(text):
		return Ident
	}
	return Invalid
}

// Disable turns sym off. Scripts using it fail to parse.
func (s *Symbols) Disable(sym string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Debug("Disabling symbol.", "symbol", sym)
	s.disabled[sym] = struct{}{}
}

// IsDisabled reports whether sym has been disabled.
func (s *Symbols) IsDisabled(sym string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.disabled[sym]
	return ok
}

// Disabled returns the disabled symbols in sorted order.
func (s *Symbols) Disabled() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.disabled))
	for k := range s.disabled {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// RegisterCustomKeyword makes sym a custom keyword. Registering it again has
// no effect.
func (s *Symbols) RegisterCustomKeyword(sym string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.custom[sym]; ok {
		return
	}
	slog.Debug("Registering custom keyword.", "symbol", sym)
	s.custom[sym] = struct{}{}
}

// IsCustom reports whether sym is a custom keyword.
func (s *Symbols) IsCustom(sym string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.custom[sym]
	return ok
}
