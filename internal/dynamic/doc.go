// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dynamic defines Value, the dynamically typed runtime value shared by
// script execution and native interop.
//
// A Value wraps a cty.Value. Run-time type identity is the cty.Type of the
// wrapped value; arbitrary host types participate through cty capsule types
// registered with RegisterType. A Value additionally carries an access mode
// (ReadWrite or ReadOnly) and may be promoted into a shared, mutex-guarded
// cell with Share. Flatten resolves a shared cell back into an owned snapshot.
//
// The conversion helpers (From, ToReflect, Downcast, As) are the single place
// where Go values cross into and out of the dynamic world; the marshaling
// bridge and the scope are both built on them.
package dynamic
