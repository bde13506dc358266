// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry provides the central "glue" between scripts and host code.
//
// The Registry maps the function names scripts call to the compiled Go
// functions that implement them. A name may carry several overloads that
// differ in arity or parameter types; Resolve picks the best one for the
// argument types seen at the call site.
//
// During application startup, the registry is populated by modules and then
// validated, so naming problems and loosely typed signatures are reported
// before the first script runs.
package registry
