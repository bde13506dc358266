// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dynamic

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Map is the host-side view of a script object or map.
type Map = map[string]cty.Value

// Array is the host-side view of a script tuple, list or set.
type Array = []cty.Value

var (
	valueType    = reflect.TypeFor[Value]()
	ctyValueType = reflect.TypeFor[cty.Value]()
	mapType      = reflect.TypeFor[Map]()
	arrayType    = reflect.TypeFor[Array]()
	stringType   = reflect.TypeFor[string]()
	contextType  = reflect.TypeFor[context.Context]()
)

var (
	hostTypesMu sync.RWMutex
	hostTypes   = make(map[reflect.Type]cty.Type)
)

// RegisterType registers T as a host type and returns its capsule type.
// Registering the same Go type twice returns the original capsule type, so
// type identity is stable for the life of the process.
func RegisterType[T any](name string) cty.Type {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Pointer {
		panic(fmt.Sprintf("dynamic: register the element type of %s, not the pointer", rt))
	}

	hostTypesMu.Lock()
	defer hostTypesMu.Unlock()
	if ty, ok := hostTypes[rt]; ok {
		return ty
	}
	slog.Debug("Registering host type.", "name", name, "go_type", rt.String())
	ty := cty.Capsule(name, rt)
	hostTypes[rt] = ty
	return ty
}

// HostType returns the capsule type registered for rt or for the element
// type of a pointer rt.
func HostType(rt reflect.Type) (cty.Type, bool) {
	hostTypesMu.RLock()
	defer hostTypesMu.RUnlock()
	if ty, ok := hostTypes[rt]; ok {
		return ty, true
	}
	if rt.Kind() == reflect.Pointer {
		if ty, ok := hostTypes[rt.Elem()]; ok {
			return ty, true
		}
	}
	return cty.NilType, false
}

// TypeFor returns the cty type used as the dispatch fingerprint for a Go
// parameter or result type. Types that accept any script value map to
// cty.DynamicPseudoType.
func TypeFor(rt reflect.Type) (cty.Type, error) {
	switch {
	case rt == valueType, rt == ctyValueType, rt == mapType, rt == arrayType:
		return cty.DynamicPseudoType, nil
	case rt.Kind() == reflect.Interface:
		if rt.NumMethod() != 0 {
			return cty.NilType, fmt.Errorf("no script type for interface %s", rt)
		}
		return cty.DynamicPseudoType, nil
	}
	if ty, ok := HostType(rt); ok {
		return ty, nil
	}
	ty, err := gocty.ImpliedType(reflect.Zero(rt).Interface())
	if err != nil {
		return cty.NilType, fmt.Errorf("no script type for %s: %w", rt, err)
	}
	return ty, nil
}

// Accepts refines a dynamic fingerprint slot: Map parameters only take
// objects and maps, Array parameters only take sequences. Everything else is
// decided by the fingerprint alone.
func Accepts(rt reflect.Type, ty cty.Type) bool {
	switch rt {
	case mapType:
		return ty.IsObjectType() || ty.IsMapType()
	case arrayType:
		return ty.IsTupleType() || ty.IsListType() || ty.IsSetType()
	}
	return true
}

// IsContextType reports whether rt is context.Context.
func IsContextType(rt reflect.Type) bool {
	return rt == contextType
}
