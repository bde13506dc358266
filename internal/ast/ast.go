// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package ast holds the compiled form of a script: a tree of statements
// whose expressions are HCL native-syntax expressions.
package ast

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Stmt is a single statement.
type Stmt interface {
	Range() hcl.Range
	stmt()
}

// Program is a compiled script.
type Program struct {
	Filename string
	Source   []byte
	Body     *Block
}

// Block is a braced sequence of statements. Bindings made inside it are
// dropped when it ends.
type Block struct {
	Stmts    []Stmt
	SrcRange hcl.Range
}

// Let binds Name to Value. A nil Value binds unit.
type Let struct {
	Name      string
	Const     bool
	Value     Stmt
	NameRange hcl.Range
	SrcRange  hcl.Range
}

// Assign replaces the value of an existing binding.
type Assign struct {
	Name      string
	Value     Stmt
	NameRange hcl.Range
	SrcRange  hcl.Range
}

// ExprStmt evaluates an expression. Its value becomes the value of the
// enclosing block when it is the last statement.
type ExprStmt struct {
	Expr hclsyntax.Expression
}

// If runs Then when Cond is true and Else otherwise. Else is nil, a *Block,
// or a nested *If.
type If struct {
	Cond     hclsyntax.Expression
	Then     *Block
	Else     Stmt
	SrcRange hcl.Range
}

// While runs Body as long as Cond is true.
type While struct {
	Cond     hclsyntax.Expression
	Body     *Block
	SrcRange hcl.Range
}

// For runs Body once for every item of Iterable, with the item bound to Var.
type For struct {
	Var      string
	VarRange hcl.Range
	Iterable hclsyntax.Expression
	Body     *Block
	SrcRange hcl.Range
}

// Break leaves the innermost loop.
type Break struct {
	SrcRange hcl.Range
}

// Continue skips to the next iteration of the innermost loop.
type Continue struct {
	SrcRange hcl.Range
}

// Return ends the script. A nil Value returns unit.
type Return struct {
	Value    Stmt
	SrcRange hcl.Range
}

// Import binds the exports of the module at Path as a constant named Alias.
type Import struct {
	Path       hclsyntax.Expression
	Alias      string
	AliasRange hcl.Range
	SrcRange   hcl.Range
}

// Export publishes the latest binding of Name under Alias.
type Export struct {
	Name     string
	Alias    string
	SrcRange hcl.Range
}

// Custom is a statement matched by a custom syntax rule. Tokens is the
// matched sequence as reported to the rule's parse callback.
type Custom struct {
	Key        string
	Tokens     []string
	Inputs     []Expression
	ScopeDelta int
	SrcRange   hcl.Range
}

func (s *Block) Range() hcl.Range    { return s.SrcRange }
func (s *Let) Range() hcl.Range      { return s.SrcRange }
func (s *Assign) Range() hcl.Range   { return s.SrcRange }
func (s *ExprStmt) Range() hcl.Range { return s.Expr.Range() }
func (s *If) Range() hcl.Range       { return s.SrcRange }
func (s *While) Range() hcl.Range    { return s.SrcRange }
func (s *For) Range() hcl.Range      { return s.SrcRange }
func (s *Break) Range() hcl.Range    { return s.SrcRange }
func (s *Continue) Range() hcl.Range { return s.SrcRange }
func (s *Return) Range() hcl.Range   { return s.SrcRange }
func (s *Import) Range() hcl.Range   { return s.SrcRange }
func (s *Export) Range() hcl.Range   { return s.SrcRange }
func (s *Custom) Range() hcl.Range   { return s.SrcRange }

func (*Block) stmt()    {}
func (*Let) stmt()      {}
func (*Assign) stmt()   {}
func (*ExprStmt) stmt() {}
func (*If) stmt()       {}
func (*For) stmt()      {}
func (*While) stmt()    {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Return) stmt()   {}
func (*Import) stmt()   {}
func (*Export) stmt()   {}
func (*Custom) stmt()   {}
