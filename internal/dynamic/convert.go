// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dynamic

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// From converts a Go value into a Value. Registered host types become capsule
// values; everything else goes through gocty's implied type.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Unit(), nil
	case Value:
		return t, nil
	case *Value:
		return *t, nil
	case cty.Value:
		return Wrap(t), nil
	case string:
		// cty strings keep the Go string header, so no bytes are copied.
		return Wrap(cty.StringVal(t)), nil
	case bool:
		return Wrap(cty.BoolVal(t)), nil
	case int:
		return Wrap(cty.NumberIntVal(int64(t))), nil
	case int64:
		return Wrap(cty.NumberIntVal(t)), nil
	case float64:
		return Wrap(cty.NumberFloatVal(t)), nil
	case *big.Float:
		return Wrap(cty.NumberVal(t)), nil
	case Map:
		return Wrap(cty.ObjectVal(t)), nil
	case Array:
		return Wrap(cty.TupleVal(t)), nil
	case map[string]any, []any:
		v, err := FromInterface(t)
		if err != nil {
			return Value{}, err
		}
		return Wrap(v), nil
	}

	rv := reflect.ValueOf(x)
	if ty, ok := HostType(rv.Type()); ok {
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return Wrap(cty.NullVal(ty)), nil
			}
			return Wrap(cty.CapsuleVal(ty, x)), nil
		}
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return Wrap(cty.CapsuleVal(ty, ptr.Interface())), nil
	}

	ty, err := gocty.ImpliedType(x)
	if err != nil {
		return Value{}, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	v, err := gocty.ToCtyValue(x, ty)
	if err != nil {
		return Value{}, err
	}
	return Wrap(v), nil
}

// MustFrom is like From but panics on unsupported Go values. It is meant for
// host setup code where the type is known statically.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ToReflect converts v into a Go value of type rt.
func ToReflect(v Value, rt reflect.Type) (reflect.Value, error) {
	val := v.Cty()
	switch {
	case rt == valueType:
		return reflect.ValueOf(v.Flatten()), nil
	case rt == ctyValueType:
		return reflect.ValueOf(val), nil
	case rt == stringType:
		if val.Type() != cty.String || val.IsNull() {
			return reflect.Value{}, fmt.Errorf("string required, got %s", v.TypeName())
		}
		return reflect.ValueOf(val.AsString()), nil
	case rt == mapType:
		m, err := toMap(val)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(m), nil
	case rt == arrayType:
		a, err := toArray(val)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(a), nil
	case rt.Kind() == reflect.Interface:
		out, err := ToInterface(val)
		if err != nil {
			return reflect.Value{}, err
		}
		if out == nil {
			return reflect.Zero(rt), nil
		}
		ov := reflect.ValueOf(out)
		if !ov.Type().AssignableTo(rt) {
			return reflect.Value{}, fmt.Errorf("%s does not implement %s", ov.Type(), rt)
		}
		return ov, nil
	}

	if val.Type().IsCapsuleType() {
		return fromCapsule(val, rt)
	}

	out := reflect.New(rt)
	if err := gocty.FromCtyValue(val, out.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

// fromCapsule extracts a host object. A pointer target receives the original
// object; a value target receives a copy.
func fromCapsule(val cty.Value, rt reflect.Type) (reflect.Value, error) {
	et := val.Type().EncapsulatedType()
	switch {
	case rt.Kind() == reflect.Pointer && rt.Elem() == et:
		if val.IsNull() {
			return reflect.Zero(rt), nil
		}
		return reflect.ValueOf(val.EncapsulatedValue()), nil
	case rt == et:
		if val.IsNull() {
			return reflect.Value{}, fmt.Errorf("null %s", val.Type().FriendlyName())
		}
		return reflect.ValueOf(val.EncapsulatedValue()).Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("incorrect type %s", val.Type().FriendlyName())
}

// Downcast converts the flattened value to T, reporting false on a type
// mismatch.
func Downcast[T any](v Value) (T, bool) {
	out, err := As[T](v)
	return out, err == nil
}

// As converts the flattened value to T.
func As[T any](v Value) (T, error) {
	var zero T
	rv, err := ToReflect(v.Flatten(), reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	iv := rv.Interface()
	if iv == nil {
		return zero, nil
	}
	out, ok := iv.(T)
	if !ok {
		return zero, fmt.Errorf("cannot convert %s to %T", v.TypeName(), zero)
	}
	return out, nil
}

func toMap(val cty.Value) (Map, error) {
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("object required, got %s", ty.FriendlyName())
	}
	out := make(Map)
	if val.IsNull() {
		return out, nil
	}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		out[k.AsString()] = v
	}
	return out, nil
}

func toArray(val cty.Value) (Array, error) {
	ty := val.Type()
	if !ty.IsTupleType() && !ty.IsListType() && !ty.IsSetType() {
		return nil, fmt.Errorf("array required, got %s", ty.FriendlyName())
	}
	out := make(Array, 0)
	if val.IsNull() {
		return out, nil
	}
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		out = append(out, v)
	}
	return out, nil
}

// ToInterface converts a cty.Value to a plain Go value: strings, float64,
// bool, map[string]any, []any, or the pointer held by a capsule.
func ToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsCapsuleType() {
		return val.EncapsulatedValue(), nil
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			vi, err := ToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = vi
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			vi, err := ToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, vi)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

// FromInterface converts decoded JSON-like Go data into a cty.Value.
func FromInterface(data any) (cty.Value, error) {
	if data == nil {
		return unit, nil
	}
	switch v := data.(type) {
	case string:
		return cty.StringVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case float32:
		return cty.NumberFloatVal(float64(v)), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(v))
		for key, val := range v {
			cv, err := FromInterface(val)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key] = cv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		elems := make([]cty.Value, 0, len(v))
		for _, val := range v {
			cv, err := FromInterface(val)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, cv)
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported type for conversion to cty.Value: %T", v)
	}
}
