// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ast

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// InputKind tells which marker produced a custom syntax input.
type InputKind uint8

const (
	InputExpr InputKind = iota
	InputBlock
	InputIdent
)

func (k InputKind) String() string {
	switch k {
	case InputBlock:
		return "$block$"
	case InputIdent:
		return "$ident$"
	default:
		return "$expr$"
	}
}

// Expression is one input of a custom syntax statement.
type Expression struct {
	kind  InputKind
	expr  hclsyntax.Expression
	block *Block
	name  string
	rng   hcl.Range
	src   string
}

// NewExprInput wraps an HCL expression.
func NewExprInput(expr hclsyntax.Expression, src string) Expression {
	return Expression{kind: InputExpr, expr: expr, rng: expr.Range(), src: src}
}

// NewBlockInput wraps a statement block.
func NewBlockInput(b *Block, src string) Expression {
	return Expression{kind: InputBlock, block: b, rng: b.SrcRange, src: src}
}

// NewIdentInput wraps a bare identifier.
func NewIdentInput(name string, rng hcl.Range) Expression {
	return Expression{kind: InputIdent, name: name, rng: rng, src: name}
}

// Kind returns the marker that produced the input.
func (e Expression) Kind() InputKind { return e.kind }

// HCL returns the expression of an $expr$ input, or nil.
func (e Expression) HCL() hclsyntax.Expression { return e.expr }

// Block returns the statements of a $block$ input, or nil.
func (e Expression) Block() *Block { return e.block }

// VariableName returns the name of an $ident$ input, or of an $expr$ input
// that is a plain variable reference. It reports false otherwise.
func (e Expression) VariableName() (string, bool) {
	switch e.kind {
	case InputIdent:
		return e.name, true
	case InputExpr:
		return VariableName(e.expr)
	}
	return "", false
}

// Range returns the source range of the input.
func (e Expression) Range() hcl.Range { return e.rng }

// Source returns the input's source text.
func (e Expression) Source() string { return e.src }

// VariableName reports the name of expr when it is a bare variable
// reference such as `x`, with no attribute or index steps.
func VariableName(expr hclsyntax.Expression) (string, bool) {
	st, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok || len(st.Traversal) != 1 {
		return "", false
	}
	return st.Traversal.RootName(), true
}
