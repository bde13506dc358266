// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scripterr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ParseErrorType is the closed set of grammar errors.
type ParseErrorType uint8

const (
	// ImproperSymbol is a symbol that may not appear where it was found,
	// such as a keyword at the start of a custom syntax rule.
	ImproperSymbol ParseErrorType = iota + 1
	// Reserved is the use of a reserved word.
	Reserved
	// DisabledSymbol is the use of a symbol switched off on the engine.
	DisabledSymbol
	UnexpectedEOF
	MissingToken
	ExprExpected
	VariableExpected
	BadInput
	AssignmentToConstant
	WrongExport
	WrongImport
)

// Summary returns the one-line description of the error type.
func (t ParseErrorType) Summary() string {
	switch t {
	case ImproperSymbol:
		return "Invalid symbol encountered"
	case Reserved:
		return "Invalid use of reserved keyword"
	case DisabledSymbol:
		return "Use of disabled symbol"
	case UnexpectedEOF:
		return "Script is incomplete"
	case MissingToken:
		return "Expecting a certain token that is missing"
	case ExprExpected:
		return "Expecting an expression"
	case VariableExpected:
		return "Expecting name of a variable"
	case BadInput:
		return "Unexpected input"
	case AssignmentToConstant:
		return "Cannot assign to a constant value"
	case WrongExport:
		return "Export statement can only appear at global level"
	case WrongImport:
		return "Import statement can only appear at global level"
	default:
		return "Parse error"
	}
}

func (t ParseErrorType) String() string {
	switch t {
	case ImproperSymbol:
		return "ImproperSymbol"
	case Reserved:
		return "Reserved"
	case DisabledSymbol:
		return "DisabledSymbol"
	case UnexpectedEOF:
		return "UnexpectedEOF"
	case MissingToken:
		return "MissingToken"
	case ExprExpected:
		return "ExprExpected"
	case VariableExpected:
		return "VariableExpected"
	case BadInput:
		return "BadInput"
	case AssignmentToConstant:
		return "AssignmentToConstant"
	case WrongExport:
		return "WrongExport"
	case WrongImport:
		return "WrongImport"
	default:
		return fmt.Sprintf("ParseErrorType(%d)", uint8(t))
	}
}

// ParseError is a grammar error with an optional source position. Errors
// raised while registering custom syntax carry no position.
type ParseError struct {
	Type    ParseErrorType
	Message string
	Subject *hcl.Range
	Err     error
}

// NewParseError builds a ParseError. An empty message falls back to the
// type's summary.
func NewParseError(typ ParseErrorType, msg string, subject *hcl.Range) *ParseError {
	return &ParseError{Type: typ, Message: msg, Subject: subject}
}

// Errorf builds a ParseError with a formatted message.
func Errorf(typ ParseErrorType, subject *hcl.Range, format string, args ...any) *ParseError {
	return NewParseError(typ, fmt.Sprintf(format, args...), subject)
}

func (e *ParseError) detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Type.Summary()
}

func (e *ParseError) Error() string {
	if e.Subject == nil {
		return e.detail()
	}
	return fmt.Sprintf("%s (%s)", e.detail(), e.Subject)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches another *ParseError of the same type, so callers can test with
// errors.Is(err, &ParseError{Type: ...}).
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Type == e.Type && t.Message == "" && t.Subject == nil
}

// Diagnostic renders the error as an HCL diagnostic.
func (e *ParseError) Diagnostic() *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  e.Type.Summary(),
		Detail:   e.detail(),
		Subject:  e.Subject,
	}
}
