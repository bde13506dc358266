// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package scope implements the ordered variable-binding stack used during
// script execution.
//
// Bindings are appended, never updated by name: pushing a name that already
// exists shadows the older binding, and Rewind restores exactly the bindings
// that existed at an earlier length. Values and names are kept in two
// parallel slices because evaluation mostly addresses values by index, while
// names only matter for lookups by name.
package scope

import (
	"fmt"
	"iter"
	"slices"

	"github.com/vk/gridscript/internal/dynamic"
)

// name is the name half of a binding.
type name struct {
	text    string
	aliases []string
}

// Entry is one binding as seen by iteration.
type Entry struct {
	Name     string
	Constant bool
	Value    dynamic.Value
}

// Scope is an ordered stack of named bindings. The zero value is an empty
// scope ready to use. A Scope must not be shared between concurrently
// running evaluations.
type Scope struct {
	values []dynamic.Value
	names  []name
}

// New creates an empty scope.
func New() *Scope {
	return &Scope{}
}

// WithCapacity creates an empty scope with room for n bindings.
func WithCapacity(n int) *Scope {
	return &Scope{
		values: make([]dynamic.Value, 0, n),
		names:  make([]name, 0, n),
	}
}

// Len returns the number of bindings, shadowed ones included.
func (s *Scope) Len() int {
	return len(s.values)
}

// IsEmpty reports whether the scope has no bindings.
func (s *Scope) IsEmpty() bool {
	return len(s.values) == 0
}

// Clear removes every binding.
func (s *Scope) Clear() *Scope {
	return s.Rewind(0)
}

// Push appends a ReadWrite binding. It panics if value has no script
// representation.
func (s *Scope) Push(n string, value any) *Scope {
	return s.PushMode(n, dynamic.MustFrom(value), dynamic.ReadWrite)
}

// PushDynamic appends a ReadWrite binding holding value.
func (s *Scope) PushDynamic(n string, value dynamic.Value) *Scope {
	return s.PushMode(n, value, dynamic.ReadWrite)
}

// PushConstant appends a ReadOnly binding. It panics if value has no script
// representation.
func (s *Scope) PushConstant(n string, value any) *Scope {
	return s.PushMode(n, dynamic.MustFrom(value), dynamic.ReadOnly)
}

// PushConstantDynamic appends a ReadOnly binding holding value.
func (s *Scope) PushConstantDynamic(n string, value dynamic.Value) *Scope {
	return s.PushMode(n, value, dynamic.ReadOnly)
}

// PushMode appends a binding with an explicit access mode. The mode is
// stamped onto the stored value.
func (s *Scope) PushMode(n string, value dynamic.Value, mode dynamic.AccessMode) *Scope {
	s.names = append(s.names, name{text: n})
	s.values = append(s.values, value.WithAccessMode(mode))
	return s
}

// Rewind truncates the scope to its first size bindings. It is a no-op when
// size is not smaller than Len.
func (s *Scope) Rewind(size int) *Scope {
	if size < 0 {
		size = 0
	}
	if size >= len(s.values) {
		return s
	}
	clear(s.values[size:])
	clear(s.names[size:])
	s.values = s.values[:size]
	s.names = s.names[:size]
	return s
}

// Index returns the index of the most recent binding named n.
func (s *Scope) Index(n string) (int, bool) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i].text == n {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether any binding is named n.
func (s *Scope) Contains(n string) bool {
	_, ok := s.Index(n)
	return ok
}

// Get returns the most recent binding named n without flattening it.
func (s *Scope) Get(n string) (dynamic.Value, bool) {
	i, ok := s.Index(n)
	if !ok {
		return dynamic.Value{}, false
	}
	return s.values[i], true
}

// IsConstant reports whether the most recent binding named n is ReadOnly.
// The second result is false when there is no such binding.
func (s *Scope) IsConstant(n string) (constant, found bool) {
	i, ok := s.Index(n)
	if !ok {
		return false, false
	}
	return s.values[i].IsReadOnly(), true
}

// Entry returns the binding at index i.
func (s *Scope) Entry(i int) Entry {
	v := s.values[i]
	return Entry{Name: s.names[i].text, Constant: v.IsReadOnly(), Value: v}
}

// SetValue replaces the most recent binding named n in place. A missing name
// gets a new ReadWrite binding. A ReadOnly binding is left untouched and a
// *ConstantError is returned.
func (s *Scope) SetValue(n string, value any) error {
	v, err := dynamic.From(value)
	if err != nil {
		return fmt.Errorf("variable %q: %w", n, err)
	}
	i, ok := s.Index(n)
	if !ok {
		s.PushDynamic(n, v)
		return nil
	}
	if s.values[i].IsReadOnly() {
		return &ConstantError{Name: n}
	}
	s.values[i] = v.WithAccessMode(dynamic.ReadWrite)
	return nil
}

// MustSetValue is SetValue for callers that have already ruled out
// constants; it panics on a ReadOnly binding.
func (s *Scope) MustSetValue(n string, value any) *Scope {
	if err := s.SetValue(n, value); err != nil {
		panic(err)
	}
	return s
}

// GetMut returns the live slot of the most recent binding named n, or nil
// when the name is absent or the binding is ReadOnly.
func (s *Scope) GetMut(n string) *dynamic.Value {
	i, ok := s.Index(n)
	if !ok {
		return nil
	}
	return s.GetMutByIndex(i)
}

// GetMutByIndex returns the live slot at index i, or nil when it is ReadOnly.
// It panics when i is out of range.
func (s *Scope) GetMutByIndex(i int) *dynamic.Value {
	if s.values[i].IsReadOnly() {
		return nil
	}
	return &s.values[i]
}

// AddAlias records alias on the binding at index i. Adding an alias twice
// has no effect. It panics when i is out of range.
func (s *Scope) AddAlias(i int, alias string) *Scope {
	entry := &s.names[i]
	if !slices.Contains(entry.aliases, alias) {
		entry.aliases = append(entry.aliases, alias)
	}
	return s
}

// Aliases returns the aliases recorded on the binding at index i.
func (s *Scope) Aliases(i int) []string {
	return slices.Clone(s.names[i].aliases)
}

// CloneVisible returns a new scope holding only the most recent binding of
// each name, in their original relative order. Shared values stay shared.
func (s *Scope) CloneVisible() *Scope {
	keep := make([]bool, len(s.names))
	seen := make(map[string]struct{}, len(s.names))
	n := 0
	for i := len(s.names) - 1; i >= 0; i-- {
		if _, ok := seen[s.names[i].text]; ok {
			continue
		}
		seen[s.names[i].text] = struct{}{}
		keep[i] = true
		n++
	}

	out := WithCapacity(n)
	for i, k := range keep {
		if !k {
			continue
		}
		out.names = append(out.names, name{text: s.names[i].text, aliases: slices.Clone(s.names[i].aliases)})
		out.values = append(out.values, s.values[i])
	}
	return out
}

// Extend appends every binding of other, aliases included.
func (s *Scope) Extend(other *Scope) *Scope {
	for i := range other.values {
		s.names = append(s.names, name{text: other.names[i].text, aliases: slices.Clone(other.names[i].aliases)})
		s.values = append(s.values, other.values[i])
	}
	return s
}

// Iter yields every binding in push order with shared values flattened.
func (s *Scope) Iter() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range s.IterRaw() {
			e.Value = e.Value.Flatten()
			if !yield(e) {
				return
			}
		}
	}
}

// IterRaw yields every binding in push order without flattening.
func (s *Scope) IterRaw() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := range s.values {
			if !yield(s.Entry(i)) {
				return
			}
		}
	}
}

// Visible yields the most recent binding of each name, newest first, with
// shared values flattened.
func (s *Scope) Visible() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		seen := make(map[string]struct{}, len(s.names))
		for i := len(s.names) - 1; i >= 0; i-- {
			n := s.names[i].text
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			e := s.Entry(i)
			e.Value = e.Value.Flatten()
			if !yield(e) {
				return
			}
		}
	}
}
