// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bridge

// MaxArity is the largest number of script parameters a host function may take.
const MaxArity = 20

// ABI is the calling shape of a registered host function.
type ABI uint8

const (
	// Plain is func(P1..Pn) R.
	Plain ABI = iota
	// PlainWithContext is func(ctx, P1..Pn) R.
	PlainWithContext
	// Fallible is func(P1..Pn) (R, error).
	Fallible
	// FallibleWithContext is func(ctx, P1..Pn) (R, error).
	FallibleWithContext
)

func abiFor(withContext, fallible bool) ABI {
	switch {
	case withContext && fallible:
		return FallibleWithContext
	case fallible:
		return Fallible
	case withContext:
		return PlainWithContext
	default:
		return Plain
	}
}

// HasContext reports whether the function receives a call context.
func (a ABI) HasContext() bool {
	return a == PlainWithContext || a == FallibleWithContext
}

// IsFallible reports whether the function returns an error.
func (a ABI) IsFallible() bool {
	return a == Fallible || a == FallibleWithContext
}

// String implements fmt.Stringer.
func (a ABI) String() string {
	switch a {
	case Plain:
		return "plain"
	case PlainWithContext:
		return "plain+context"
	case Fallible:
		return "fallible"
	case FallibleWithContext:
		return "fallible+context"
	default:
		return "unknown"
	}
}
