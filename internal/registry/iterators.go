// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
)

// IterFunc yields the items a for loop visits for one value. A failure is
// yielded as an error and ends the loop.
type IterFunc func(v dynamic.Value) iter.Seq2[dynamic.Value, error]

type iterator struct {
	ty cty.Type
	fn IterFunc
}

// RegisterIterator makes values of type ty usable in for loops. Registering
// the same type again replaces the previous iterator.
func (r *Registry) RegisterIterator(ty cty.Type, fn IterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug("Registering iterator.", "type", ty.FriendlyName())
	for i, it := range r.iterators {
		if it.ty.Equals(ty) {
			r.iterators[i].fn = fn
			return
		}
	}
	r.iterators = append(r.iterators, iterator{ty: ty, fn: fn})
}

// Iterator returns the iterator registered for ty.
func (r *Registry) Iterator(ty cty.Type) (IterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.iterators {
		if it.ty.Equals(ty) {
			return it.fn, true
		}
	}
	return nil, false
}

// RegisterIterable registers an iterator for the host type T, which must have
// been registered with dynamic.RegisterType. fn receives the host object
// itself; every item it yields is converted with dynamic.From.
func RegisterIterable[T, E any](r *Registry, fn func(*T) iter.Seq[E]) {
	rt := reflect.TypeFor[T]()
	ty, ok := dynamic.HostType(rt)
	if !ok {
		panic(fmt.Sprintf("iterator for %s: not a registered host type", rt))
	}
	r.RegisterIterator(ty, func(v dynamic.Value) iter.Seq2[dynamic.Value, error] {
		return func(yield func(dynamic.Value, error) bool) {
			obj, err := dynamic.As[*T](v)
			if err != nil {
				yield(dynamic.Unit(), err)
				return
			}
			for item := range fn(obj) {
				d, err := dynamic.From(item)
				if !yield(d, err) || err != nil {
					return
				}
			}
		}
	})
}
