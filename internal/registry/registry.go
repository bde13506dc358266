// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/gridscript/internal/bridge"
)

// Module is the interface that all host modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the host functions of a single engine instance.
type Registry struct {
	mu        sync.RWMutex
	fns       map[string][]*bridge.Entry
	iterators []iterator
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{fns: make(map[string][]*bridge.Entry)}
}

// RegisterFn registers fn under name. Every parameter is passed by value.
// It panics if fn has an unsupported signature.
func (r *Registry) RegisterFn(name string, fn any) {
	e, err := bridge.NewEntry(fn)
	if err != nil {
		panic(fmt.Sprintf("function '%s': %v", name, err))
	}
	r.RegisterEntry(name, e)
}

// RegisterMethod registers fn under name with its first parameter passed by
// exclusive reference. It panics if fn has an unsupported signature.
func (r *Registry) RegisterMethod(name string, fn any) {
	e, err := bridge.NewEntry(fn, bridge.AsMethod())
	if err != nil {
		panic(fmt.Sprintf("method '%s': %v", name, err))
	}
	r.RegisterEntry(name, e)
}

// RegisterEntry registers a prepared entry. An existing overload with the
// same parameter fingerprint is replaced.
func (r *Registry) RegisterEntry(name string, e *bridge.Entry) {
	if name == "" {
		panic("function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug("Registering function.", "name", name, "signature", e.Signature(name))
	overloads := r.fns[name]
	for i, existing := range overloads {
		if sameFingerprint(existing, e) {
			overloads[i] = e
			return
		}
	}
	r.fns[name] = append(overloads, e)
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Overloads returns the entries registered under name in registration order.
func (r *Registry) Overloads(name string) []*bridge.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.fns[name])
}

// Has reports whether any overload is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fns[name]) > 0
}

func sameFingerprint(a, b *bridge.Entry) bool {
	if a.Arity() != b.Arity() {
		return false
	}
	pa, pb := a.Params(), b.Params()
	for i := range pa {
		if !pa[i].Equals(pb[i]) {
			return false
		}
	}
	return true
}
