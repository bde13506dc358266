// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package scripterr defines the errors a script produces: grammar errors
// found while parsing or while registering custom syntax, run-time
// evaluation errors, and the break, continue and return signals.
//
// Both error types render to hcl.Diagnostic so callers can print them with
// HCL's diagnostic writer.
package scripterr
