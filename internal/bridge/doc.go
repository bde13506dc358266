// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package bridge turns host Go functions into uniform callable entries.
//
// NewEntry reflects over a Go func once, at registration time, and produces
// an Entry: the cty type fingerprint of its script parameters, its ABI shape
// and a thunk that invokes it against a slice of argument slots. Arguments are
// passed by value (the slot is taken and left holding Unit) except for the
// first parameter of a method, which receives an exclusive view of the live
// slot so that mutations are visible to the caller.
//
// Entry.Invoke is the trusted fast path: it does not re-validate arity or
// argument types and panics with a *CastError when its precondition is
// violated. The function registry provides the checked path on top of it.
package bridge
