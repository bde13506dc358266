// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import "github.com/vk/gridscript/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a set of functions and methods.
type SimpleModule struct {
	Fns     map[string]any
	Methods map[string]any
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for name, fn := range m.Fns {
		r.RegisterFn(name, fn)
	}
	for name, fn := range m.Methods {
		r.RegisterMethod(name, fn)
	}
}
