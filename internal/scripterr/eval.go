// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scripterr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridscript/internal/dynamic"
)

// EvalKind classifies run-time failures.
type EvalKind uint8

const (
	KindExpression EvalKind = iota + 1
	KindFunction
	KindVariableNotFound
	KindAssignmentToConstant
	KindNonPureMethodOnConstant
	KindScopeDeltaMismatch
	KindTooManyOperations
	KindStackOverflow
	KindTerminated
	KindLoopBreak
	KindModule
	KindCustomSyntax
	KindFor
)

func (k EvalKind) String() string {
	switch k {
	case KindExpression:
		return "Invalid expression"
	case KindFunction:
		return "Error in function call"
	case KindVariableNotFound:
		return "Variable not found"
	case KindAssignmentToConstant:
		return "Cannot modify a constant"
	case KindNonPureMethodOnConstant:
		return "Non-pure method called on a constant"
	case KindScopeDeltaMismatch:
		return "Custom syntax changed the scope unexpectedly"
	case KindTooManyOperations:
		return "Too many operations"
	case KindStackOverflow:
		return "Call stack too deep"
	case KindTerminated:
		return "Script terminated"
	case KindLoopBreak:
		return "Break or continue outside a loop"
	case KindModule:
		return "Module import failed"
	case KindCustomSyntax:
		return "Error in custom syntax"
	case KindFor:
		return "For loop over a non-iterable value"
	default:
		return "Evaluation error"
	}
}

// EvalError is a run-time failure at a source position. Err holds the cause;
// a host function's own error is kept unwrapped so errors.Is still finds it.
type EvalError struct {
	Kind  EvalKind
	Range hcl.Range
	Err   error
	Diags hcl.Diagnostics
}

// NewEvalError builds an EvalError.
func NewEvalError(kind EvalKind, rng hcl.Range, err error) *EvalError {
	return &EvalError{Kind: kind, Range: rng, Err: err}
}

func (e *EvalError) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Range.Filename == "" && e.Range.Start.Line == 0 {
		return msg
	}
	return fmt.Sprintf("%s (%s)", msg, e.Range)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Diagnostic renders the error as an HCL diagnostic. When the failure came
// from HCL itself the first original diagnostic is returned instead.
func (e *EvalError) Diagnostic() *hcl.Diagnostic {
	for _, d := range e.Diags {
		if d.Severity == hcl.DiagError {
			return d
		}
	}
	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	rng := e.Range
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  e.Kind.String(),
		Detail:   detail,
		Subject:  &rng,
	}
}

// Diagnostics converts any error returned by the engine into diagnostics
// for display.
func Diagnostics(err error) hcl.Diagnostics {
	var pe *ParseError
	if errors.As(err, &pe) {
		return hcl.Diagnostics{pe.Diagnostic()}
	}
	var ee *EvalError
	if errors.As(err, &ee) {
		return hcl.Diagnostics{ee.Diagnostic()}
	}
	var diags hcl.Diagnostics
	if errors.As(err, &diags) {
		return diags
	}
	return hcl.Diagnostics{{Severity: hcl.DiagError, Summary: "Error", Detail: err.Error()}}
}

// Control flow travels as errors so custom syntax can run blocks and still
// see loop and return signals.
var (
	ErrBreak    = errors.New("break")
	ErrContinue = errors.New("continue")
)

// Return carries the value of a return statement up to the script runner.
type Return struct {
	Value dynamic.Value
}

func (r *Return) Error() string {
	return "return"
}

// IsControl reports whether err is a control-flow signal rather than a
// failure.
func IsControl(err error) bool {
	var r *Return
	return errors.Is(err, ErrBreak) || errors.Is(err, ErrContinue) || errors.As(err, &r)
}
