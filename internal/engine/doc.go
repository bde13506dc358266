// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package engine compiles and runs scripts.
//
// A script is a sequence of statements (let/const bindings, assignments,
// if/while, import/export, custom constructs) whose expressions use HCL's
// native expression syntax. Compile turns source into an ast.Program; Run
// evaluates it against a scope.Scope, calling host functions through the
// registry and custom constructs through the syntax registry.
package engine
