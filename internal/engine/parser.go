// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/syntax"
	"github.com/vk/gridscript/internal/token"
)

// binding is a parse-time view of a scope entry. Anonymous entries stand for
// variables a custom construct pushes; their names are unknown.
type binding struct {
	name     string
	constant bool
	anon     bool
}

type parser struct {
	eng      *Engine
	filename string
	src      []byte
	toks     hclsyntax.Tokens
	pos      int
	stack    []binding
	depth    int
}

func newParser(e *Engine, filename string, src []byte, toks hclsyntax.Tokens) *parser {
	return &parser{eng: e, filename: filename, src: src, toks: toks}
}

func (p *parser) peek() hclsyntax.Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) hclsyntax.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() hclsyntax.Token {
	t := p.toks[p.pos]
	if t.Type != hclsyntax.TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) prev() hclsyntax.Token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *parser) skipSeparators() {
	for isSeparator(p.peek().Type) {
		p.pos++
	}
}

func text(t hclsyntax.Token) string {
	return string(t.Bytes)
}

// isSymbol reports whether t is a word or operator rather than literal text.
func isSymbol(t hclsyntax.Token) bool {
	switch t.Type {
	case hclsyntax.TokenIdent:
		return true
	case hclsyntax.TokenQuotedLit, hclsyntax.TokenStringLit, hclsyntax.TokenNumberLit:
		return false
	}
	return token.IsOperator(text(t))
}

func isWord(t hclsyntax.Token, w string) bool {
	return t.Type == hclsyntax.TokenIdent && text(t) == w
}

func (p *parser) parseProgram() (*ast.Block, error) {
	start := p.peek().Range
	stmts, err := p.parseStatements(hclsyntax.TokenEOF)
	if err != nil {
		return nil, err
	}
	return &ast.Block{Stmts: stmts, SrcRange: hcl.RangeBetween(start, p.peek().Range)}, nil
}

func (p *parser) parseStatements(end hclsyntax.TokenType) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		p.skipSeparators()
		t := p.peek()
		if t.Type == end {
			return stmts, nil
		}
		if t.Type == hclsyntax.TokenEOF {
			return nil, scripterr.Errorf(scripterr.UnexpectedEOF, t.Range.Ptr(), "Expecting '}' to close the block")
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		t = p.peek()
		if isSeparator(t.Type) || t.Type == end || t.Type == hclsyntax.TokenEOF || p.prev().Type == hclsyntax.TokenCBrace {
			continue
		}
		return nil, scripterr.Errorf(scripterr.BadInput, t.Range.Ptr(), "Unexpected '%s'", text(t))
	}
}

func (p *parser) parseStatement() (ast.Stmt, error) {
	t := p.peek()
	word := text(t)

	if rule, ok := p.customRule(t); ok {
		return p.parseCustom(rule)
	}
	if p.eng.symbols.IsDisabled(word) {
		return nil, p.disabled(t)
	}
	if t.Type == hclsyntax.TokenOBrace {
		return p.parseBlock()
	}
	if t.Type != hclsyntax.TokenIdent {
		return p.parseExprStmt()
	}

	switch word {
	case "let":
		return p.parseLet(false)
	case "const":
		return p.parseLet(true)
	case "if":
		return p.parseIf()
	case "while":
		return p.parseWhile()
	case "for":
		return p.parseFor()
	case "break":
		p.next()
		return &ast.Break{SrcRange: t.Range}, nil
	case "continue":
		p.next()
		return &ast.Continue{SrcRange: t.Range}, nil
	case "return":
		return p.parseReturn()
	case "import":
		return p.parseImport()
	case "export":
		return p.parseExport()
	case "else", "as", "in":
		return nil, scripterr.Errorf(scripterr.BadInput, t.Range.Ptr(), "Unexpected '%s'", word)
	}
	if token.IsReserved(word) {
		return nil, p.reserved(t)
	}
	if p.peekAt(1).Type == hclsyntax.TokenEqual {
		return p.parseAssign()
	}
	return p.parseExprStmt()
}

// customRule finds the construct keyed by t. Standard keywords cannot be
// taken over unless they have been disabled.
func (p *parser) customRule(t hclsyntax.Token) (*syntax.Rule, bool) {
	word := text(t)
	rule, ok := p.eng.syntax.Lookup(word)
	if !ok {
		return nil, false
	}
	if token.IsKeyword(word) && !p.eng.symbols.IsDisabled(word) {
		return nil, false
	}
	return rule, true
}

func (p *parser) disabled(t hclsyntax.Token) error {
	return scripterr.Errorf(scripterr.DisabledSymbol, t.Range.Ptr(), "Symbol '%s' is disabled", text(t))
}

func (p *parser) reserved(t hclsyntax.Token) error {
	return scripterr.Errorf(scripterr.Reserved, t.Range.Ptr(), "'%s' is a reserved keyword", text(t))
}

func (p *parser) expect(typ hclsyntax.TokenType, what string) (hclsyntax.Token, error) {
	t := p.peek()
	if t.Type == typ {
		return p.next(), nil
	}
	return t, p.missing(what)
}

func (p *parser) missing(what string) error {
	t := p.peek()
	if t.Type == hclsyntax.TokenEOF {
		return scripterr.Errorf(scripterr.UnexpectedEOF, t.Range.Ptr(), "Expecting '%s'", what)
	}
	return scripterr.Errorf(scripterr.MissingToken, t.Range.Ptr(), "Expecting '%s'", what)
}

func (p *parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(hclsyntax.TokenOBrace, "{")
	if err != nil {
		return nil, err
	}
	saved := len(p.stack)
	p.depth++
	stmts, err := p.parseStatements(hclsyntax.TokenCBrace)
	p.depth--
	if err != nil {
		return nil, err
	}
	closeTok := p.next()
	p.stack = p.stack[:saved]
	return &ast.Block{Stmts: stmts, SrcRange: hcl.RangeBetween(open.Range, closeTok.Range)}, nil
}

// variableName reads a token that must name a new variable.
func (p *parser) variableName() (hclsyntax.Token, error) {
	t := p.peek()
	if t.Type != hclsyntax.TokenIdent {
		if t.Type == hclsyntax.TokenEOF {
			return t, scripterr.NewParseError(scripterr.UnexpectedEOF, "Expecting name of a variable", t.Range.Ptr())
		}
		return t, scripterr.NewParseError(scripterr.VariableExpected, "", t.Range.Ptr())
	}
	word := text(t)
	if p.eng.symbols.IsDisabled(word) {
		return t, p.disabled(t)
	}
	switch p.eng.symbols.Lookup(word) {
	case token.Ident:
	case token.Reserved:
		return t, p.reserved(t)
	default:
		return t, scripterr.Errorf(scripterr.VariableExpected, t.Range.Ptr(), "'%s' cannot be used as a variable name", word)
	}
	return p.next(), nil
}

func (p *parser) parseLet(constant bool) (ast.Stmt, error) {
	kw := p.next()
	nameTok, err := p.variableName()
	if err != nil {
		return nil, err
	}

	var value ast.Stmt
	if p.peek().Type == hclsyntax.TokenEqual {
		p.next()
		if value, err = p.parseValue(); err != nil {
			return nil, err
		}
	} else if constant {
		return nil, p.missing("=")
	}

	name := text(nameTok)
	p.stack = append(p.stack, binding{name: name, constant: constant})
	return &ast.Let{
		Name:      name,
		Const:     constant,
		Value:     value,
		NameRange: nameTok.Range,
		SrcRange:  hcl.RangeBetween(kw.Range, p.prev().Range),
	}, nil
}

func (p *parser) parseAssign() (ast.Stmt, error) {
	nameTok, err := p.variableName()
	if err != nil {
		return nil, err
	}
	name := text(nameTok)
	p.next() // =

	for i := len(p.stack) - 1; i >= 0; i-- {
		b := p.stack[i]
		if b.anon {
			break
		}
		if b.name == name {
			if b.constant {
				return nil, scripterr.Errorf(scripterr.AssignmentToConstant, nameTok.Range.Ptr(), "Cannot assign to constant '%s'", name)
			}
			break
		}
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{
		Name:      name,
		Value:     value,
		NameRange: nameTok.Range,
		SrcRange:  hcl.RangeBetween(nameTok.Range, p.prev().Range),
	}, nil
}

// parseValue parses the right-hand side of a binding: an expression or a
// custom construct.
func (p *parser) parseValue() (ast.Stmt, error) {
	if rule, ok := p.customRule(p.peek()); ok {
		return p.parseCustom(rule)
	}
	return p.parseExprStmt()
}

func (p *parser) parseExprStmt() (ast.Stmt, error) {
	expr, _, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr}, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	kw := p.next()
	cond, _, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Cond: cond, Then: then}

	save := p.pos
	p.skipSeparators()
	if isWord(p.peek(), "else") {
		p.next()
		if isWord(p.peek(), "if") {
			stmt.Else, err = p.parseIf()
		} else {
			stmt.Else, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = save
	}
	stmt.SrcRange = hcl.RangeBetween(kw.Range, p.prev().Range)
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	kw := p.next()
	cond, _, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, SrcRange: hcl.RangeBetween(kw.Range, body.SrcRange)}, nil
}

// parseFor reads `for name in expr { ... }`. The loop variable is only
// visible inside the body.
func (p *parser) parseFor() (ast.Stmt, error) {
	kw := p.next()
	nameTok, err := p.variableName()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != hclsyntax.TokenIdent || text(t) != "in" {
		return nil, p.missing("in")
	}
	p.next()
	iterable, _, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	name := text(nameTok)
	saved := len(p.stack)
	p.stack = append(p.stack, binding{name: name})
	body, err := p.parseBlock()
	p.stack = p.stack[:saved]
	if err != nil {
		return nil, err
	}
	return &ast.For{
		Var:      name,
		VarRange: nameTok.Range,
		Iterable: iterable,
		Body:     body,
		SrcRange: hcl.RangeBetween(kw.Range, body.SrcRange),
	}, nil
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	kw := p.next()
	stmt := &ast.Return{SrcRange: kw.Range}
	switch t := p.peek(); {
	case isSeparator(t.Type), t.Type == hclsyntax.TokenEOF, t.Type == hclsyntax.TokenCBrace:
		return stmt, nil
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	stmt.SrcRange = hcl.RangeBetween(kw.Range, p.prev().Range)
	return stmt, nil
}

func (p *parser) parseImport() (ast.Stmt, error) {
	kw := p.next()
	if p.depth > 0 {
		return nil, scripterr.NewParseError(scripterr.WrongImport, "", kw.Range.Ptr())
	}
	path, _, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !isWord(p.peek(), "as") {
		return nil, p.missing("as")
	}
	p.next()
	aliasTok, err := p.variableName()
	if err != nil {
		return nil, err
	}
	alias := text(aliasTok)
	p.stack = append(p.stack, binding{name: alias, constant: true})
	return &ast.Import{
		Path:       path,
		Alias:      alias,
		AliasRange: aliasTok.Range,
		SrcRange:   hcl.RangeBetween(kw.Range, aliasTok.Range),
	}, nil
}

func (p *parser) parseExport() (ast.Stmt, error) {
	kw := p.next()
	if p.depth > 0 {
		return nil, scripterr.NewParseError(scripterr.WrongExport, "", kw.Range.Ptr())
	}
	nameTok := p.peek()
	if nameTok.Type != hclsyntax.TokenIdent || !token.IsValidIdentifier(text(nameTok)) {
		return nil, scripterr.NewParseError(scripterr.VariableExpected, "", nameTok.Range.Ptr())
	}
	p.next()
	stmt := &ast.Export{Name: text(nameTok), Alias: text(nameTok)}
	if isWord(p.peek(), "as") {
		p.next()
		aliasTok, err := p.variableName()
		if err != nil {
			return nil, err
		}
		stmt.Alias = text(aliasTok)
	}
	stmt.SrcRange = hcl.RangeBetween(kw.Range, p.prev().Range)
	return stmt, nil
}

func (p *parser) parseCustom(rule *syntax.Rule) (ast.Stmt, error) {
	keyTok := p.next()
	matched := []string{rule.Key}
	var inputs []ast.Expression

	for {
		next, err := rule.Parse(slices.Clone(matched), text(p.peek()))
		if err != nil {
			return nil, p.customError(err)
		}
		if next == "" {
			break
		}

		switch next {
		case syntax.MarkerExpr:
			expr, src, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, ast.NewExprInput(expr, src))
		case syntax.MarkerBlock:
			start := p.peek().Range
			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, ast.NewBlockInput(b, string(hcl.RangeBetween(start, b.SrcRange).SliceBytes(p.src))))
		case syntax.MarkerIdent:
			t, err := p.variableName()
			if err != nil {
				return nil, err
			}
			next = text(t)
			inputs = append(inputs, ast.NewIdentInput(next, t.Range))
		default:
			t := p.peek()
			if text(t) != next {
				if t.Type == hclsyntax.TokenEOF {
					return nil, scripterr.Errorf(scripterr.UnexpectedEOF, t.Range.Ptr(), "Expecting '%s'", next)
				}
				return nil, scripterr.Errorf(scripterr.MissingToken, t.Range.Ptr(), "Expecting '%s' for '%s'", next, rule.Key)
			}
			p.next()
		}
		matched = append(matched, next)
	}

	switch d := rule.ScopeDelta; {
	case d > 0:
		for range d {
			p.stack = append(p.stack, binding{anon: true})
		}
	case d < 0:
		p.stack = p.stack[:max(0, len(p.stack)+d)]
	}

	return &ast.Custom{
		Key:        rule.Key,
		Tokens:     matched,
		Inputs:     inputs,
		ScopeDelta: rule.ScopeDelta,
		SrcRange:   hcl.RangeBetween(keyTok.Range, p.prev().Range),
	}, nil
}

func (p *parser) customError(err error) error {
	var pe *scripterr.ParseError
	if errors.As(err, &pe) {
		if pe.Subject == nil {
			pe.Subject = p.peek().Range.Ptr()
		}
		return pe
	}
	return &scripterr.ParseError{Type: scripterr.BadInput, Message: err.Error(), Subject: p.peek().Range.Ptr(), Err: err}
}

// parseExpr reads the longest run of tokens, up to the end of the line,
// that forms a valid HCL expression. Candidate ends are the points where
// all brackets opened since the start are closed again.
func (p *parser) parseExpr() (hclsyntax.Expression, string, error) {
	start := p.pos
	first := p.toks[start]

	var ends []int
	depth := 0
	for j := start; j < len(p.toks); j++ {
		t := p.toks[j]
		if t.Type == hclsyntax.TokenEOF {
			break
		}
		if depth == 0 && (isSeparator(t.Type) || closes(t.Type)) {
			break
		}
		switch {
		case opens(t.Type):
			depth++
		case closes(t.Type):
			depth--
		}
		if depth == 0 {
			ends = append(ends, j+1)
		}
	}

	if len(ends) == 0 {
		if first.Type == hclsyntax.TokenEOF {
			return nil, "", scripterr.NewParseError(scripterr.UnexpectedEOF, "Expecting an expression", first.Range.Ptr())
		}
		return nil, "", scripterr.Errorf(scripterr.ExprExpected, first.Range.Ptr(), "Expecting an expression, found '%s'", text(first))
	}

	var firstDiags hcl.Diagnostics
	for k := len(ends) - 1; k >= 0; k-- {
		end := ends[k]
		rng := hcl.RangeBetween(first.Range, p.toks[end-1].Range)
		src := rng.SliceBytes(p.src)
		expr, diags := hclsyntax.ParseExpression(src, p.filename, first.Range.Start)
		if diags.HasErrors() {
			if firstDiags == nil {
				firstDiags = diags
			}
			continue
		}
		for _, t := range p.toks[start:end] {
			if isSymbol(t) && p.eng.symbols.IsDisabled(text(t)) {
				return nil, "", p.disabled(t)
			}
		}
		p.pos = end
		return expr, string(src), nil
	}

	d := firstDiags[0]
	return nil, "", &scripterr.ParseError{
		Type:    scripterr.ExprExpected,
		Message: fmt.Sprintf("%s: %s", d.Summary, d.Detail),
		Subject: d.Subject,
		Err:     firstDiags,
	}
}
