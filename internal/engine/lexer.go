// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"bytes"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridscript/internal/scripterr"
)

// lex tokenizes src with HCL's native-syntax scanner. Semicolons are
// statement separators here, so HCL's complaint about them is dropped.
// Line comments end a line; other comments are discarded.
func lex(src []byte, filename string) (hclsyntax.Tokens, error) {
	toks, diags := hclsyntax.LexConfig(src, filename, hcl.InitialPos)
	for _, d := range diags {
		if d.Severity != hcl.DiagError || isSemicolon(d, src) {
			continue
		}
		return nil, scripterr.NewParseError(scripterr.BadInput, d.Summary+": "+d.Detail, d.Subject)
	}

	out := make(hclsyntax.Tokens, 0, len(toks))
	for _, t := range toks {
		if t.Type == hclsyntax.TokenComment {
			if !bytes.HasSuffix(t.Bytes, []byte("\n")) {
				continue
			}
			t.Type = hclsyntax.TokenNewline
		}
		out = append(out, t)
	}
	return out, nil
}

func isSemicolon(d *hcl.Diagnostic, src []byte) bool {
	if d.Subject == nil {
		return false
	}
	b := d.Subject.Start.Byte
	return b >= 0 && b < len(src) && src[b] == ';'
}

func opens(t hclsyntax.TokenType) bool {
	switch t {
	case hclsyntax.TokenOBrace, hclsyntax.TokenOBrack, hclsyntax.TokenOParen,
		hclsyntax.TokenOQuote, hclsyntax.TokenOHeredoc,
		hclsyntax.TokenTemplateInterp, hclsyntax.TokenTemplateControl:
		return true
	}
	return false
}

func closes(t hclsyntax.TokenType) bool {
	switch t {
	case hclsyntax.TokenCBrace, hclsyntax.TokenCBrack, hclsyntax.TokenCParen,
		hclsyntax.TokenCQuote, hclsyntax.TokenCHeredoc, hclsyntax.TokenTemplateSeqEnd:
		return true
	}
	return false
}

func isSeparator(t hclsyntax.TokenType) bool {
	return t == hclsyntax.TokenNewline || t == hclsyntax.TokenSemicolon
}
