// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package maps provides functions over script objects. The mutating ones are
// methods: called as a statement on a variable, they change it in place.
package maps

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func load(v *dynamic.Value) (dynamic.Map, error) {
	m, err := dynamic.As[dynamic.Map](*v)
	if err != nil {
		return nil, fmt.Errorf("map required: %w", err)
	}
	return m, nil
}

func store(v *dynamic.Value, m dynamic.Map) error {
	if len(m) == 0 {
		return v.Set(cty.EmptyObjectVal)
	}
	return v.Set(cty.ObjectVal(m))
}

// Has reports whether m has key.
func Has(m dynamic.Map, key string) bool {
	_, ok := m[key]
	return ok
}

// Len returns the number of keys in m.
func Len(m dynamic.Map) int {
	return len(m)
}

// Clear removes every key.
func Clear(v *dynamic.Value) error {
	return v.Set(cty.EmptyObjectVal)
}

// Remove deletes key and returns its value, or Unit when it was absent.
func Remove(v *dynamic.Value, key string) (dynamic.Value, error) {
	m, err := load(v)
	if err != nil {
		return dynamic.Unit(), err
	}
	old, ok := m[key]
	if !ok {
		return dynamic.Unit(), nil
	}
	delete(m, key)
	if err := store(v, m); err != nil {
		return dynamic.Unit(), err
	}
	return dynamic.Wrap(old), nil
}

// Mixin copies every key of other into the map, overwriting existing ones.
func Mixin(v *dynamic.Value, other dynamic.Map) error {
	m, err := load(v)
	if err != nil {
		return err
	}
	maps.Copy(m, other)
	return store(v, m)
}

// FillWith copies the keys of other that the map does not have yet.
func FillWith(v *dynamic.Value, other dynamic.Map) error {
	m, err := load(v)
	if err != nil {
		return err
	}
	for k, val := range other {
		if _, ok := m[k]; !ok {
			m[k] = val
		}
	}
	return store(v, m)
}

// Keys returns the keys of m in sorted order.
func Keys(m dynamic.Map) []string {
	keys := slices.Sorted(maps.Keys(m))
	if keys == nil {
		return []string{}
	}
	return keys
}

// Values returns the values of m ordered by key.
func Values(m dynamic.Map) dynamic.Array {
	out := make(dynamic.Array, 0, len(m))
	for _, k := range Keys(m) {
		out = append(out, m[k])
	}
	return out
}

// Merge returns a new map with the keys of a and b; b wins on conflicts.
func Merge(a, b dynamic.Map) dynamic.Map {
	out := maps.Clone(a)
	if out == nil {
		out = make(dynamic.Map, len(b))
	}
	maps.Copy(out, b)
	return out
}

// Equals reports whether a and b hold equal data.
func Equals(a, b dynamic.Value) bool {
	eq := a.Cty().Equals(b.Cty())
	return eq.IsKnown() && eq.True()
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("has", Has)
	r.RegisterFn("len", Len)
	r.RegisterFn("keys", Keys)
	r.RegisterFn("values", Values)
	r.RegisterFn("merge_maps", Merge)
	r.RegisterFn("equals", Equals)

	r.RegisterMethod("clear", Clear)
	r.RegisterMethod("remove", Remove)
	r.RegisterMethod("mixin", Mixin)
	r.RegisterMethod("fill_with", FillWith)
}
