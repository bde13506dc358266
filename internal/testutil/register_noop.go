// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import "github.com/vk/gridscript/internal/registry"

// NoOpModule registers a single `noop()` function. It is useful for tests
// that replace the core modules but still need a non-empty registry.
type NoOpModule struct{}

// Register registers a single "noop" function that takes no arguments and
// does nothing.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterFn("noop", func() {})
}
