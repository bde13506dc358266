// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bridge

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
)

// Thunk is the uniform invocation form of every entry.
type Thunk func(call *CallContext, args []*dynamic.Value) (dynamic.Value, error)

// Entry is one registered host function: its parameter fingerprint, ABI
// shape and invocation thunk. Entries are immutable once built.
type Entry struct {
	params   []cty.Type
	goParams []reflect.Type
	ret      cty.Type
	abi      ABI
	method   bool
	thunk    Thunk
}

type entryOptions struct {
	method bool
}

// Option configures NewEntry.
type Option func(*entryOptions)

// AsMethod passes the first script parameter by exclusive reference. The
// Go parameter must be a pointer.
func AsMethod() Option {
	return func(o *entryOptions) { o.method = true }
}

var (
	errorType       = reflect.TypeFor[error]()
	callContextType = reflect.TypeFor[*CallContext]()
	valuePtrType    = reflect.TypeFor[*dynamic.Value]()
)

// NewEntry builds an Entry from a Go func.
func NewEntry(fn any, opts ...Option) (*Entry, error) {
	var o entryOptions
	for _, opt := range opts {
		opt(&o)
	}

	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("expected a func, got %T", fn)
	}
	ft := rv.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("variadic function %s is not supported", ft)
	}

	start := 0
	withCtx, passCallContext := false, false
	if ft.NumIn() > 0 {
		switch first := ft.In(0); {
		case first == callContextType:
			withCtx, passCallContext, start = true, true, 1
		case dynamic.IsContextType(first):
			withCtx, start = true, 1
		}
	}

	goParams := make([]reflect.Type, 0, ft.NumIn()-start)
	for i := start; i < ft.NumIn(); i++ {
		goParams = append(goParams, ft.In(i))
	}
	if len(goParams) > MaxArity {
		return nil, fmt.Errorf("function %s has %d parameters, the maximum is %d", ft, len(goParams), MaxArity)
	}
	if o.method {
		if len(goParams) == 0 {
			return nil, fmt.Errorf("method %s must take at least one parameter", ft)
		}
		if goParams[0].Kind() != reflect.Pointer {
			return nil, fmt.Errorf("method %s must take its first parameter by pointer, got %s", ft, goParams[0])
		}
	}

	params := make([]cty.Type, len(goParams))
	for i, pt := range goParams {
		if i == 0 && o.method && pt == valuePtrType {
			params[i] = cty.DynamicPseudoType
			continue
		}
		if i == 0 && o.method {
			pt = pt.Elem()
		}
		ty, err := dynamic.TypeFor(pt)
		if err != nil {
			return nil, fmt.Errorf("parameter #%d: %w", i+1, err)
		}
		params[i] = ty
	}

	var retType reflect.Type
	fallible := false
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			fallible = true
		} else {
			retType = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("second result of %s must be error, got %s", ft, ft.Out(1))
		}
		fallible, retType = true, ft.Out(0)
	default:
		return nil, fmt.Errorf("function %s returns %d results, at most 2 are supported", ft, ft.NumOut())
	}

	ret := cty.DynamicPseudoType
	if retType != nil {
		ty, err := dynamic.TypeFor(retType)
		if err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
		ret = ty
	}

	e := &Entry{
		params:   params,
		goParams: goParams,
		ret:      ret,
		abi:      abiFor(withCtx, fallible),
		method:   o.method,
	}
	e.thunk = e.reflectThunk(rv, withCtx, passCallContext, retType != nil)
	return e, nil
}

// MustNewEntry is like NewEntry but panics on an unsupported signature.
func MustNewEntry(fn any, opts ...Option) *Entry {
	e, err := NewEntry(fn, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// NewRawEntry builds an entry from an explicit fingerprint and thunk. The
// thunk receives the argument slots untouched and is responsible for taking
// or borrowing them itself.
func NewRawEntry(params []cty.Type, abi ABI, method bool, thunk Thunk) *Entry {
	if len(params) > MaxArity {
		panic(fmt.Sprintf("bridge: raw entry has %d parameters, the maximum is %d", len(params), MaxArity))
	}
	return &Entry{
		params: append([]cty.Type(nil), params...),
		ret:    cty.DynamicPseudoType,
		abi:    abi,
		method: method,
		thunk:  thunk,
	}
}

func (e *Entry) reflectThunk(fn reflect.Value, withCtx, passCallContext, hasResult bool) Thunk {
	fallible := e.abi.IsFallible()
	return func(call *CallContext, args []*dynamic.Value) (res dynamic.Value, err error) {
		if len(args) != len(e.goParams) {
			panic(&CastError{Index: len(args), Err: fmt.Errorf("expected %d arguments, got %d", len(e.goParams), len(args))})
		}

		in := make([]reflect.Value, 0, len(e.goParams)+1)
		if withCtx {
			if passCallContext {
				in = append(in, reflect.ValueOf(call))
			} else {
				in = append(in, reflect.ValueOf(call.Context()))
			}
		}

		for i, pt := range e.goParams {
			if i == 0 && e.method {
				arg, done, berr := byRef(args[0], pt)
				if berr != nil {
					return dynamic.Unit(), berr
				}
				// Ends the borrow even when a later argument panics.
				defer func() {
					if werr := done(); werr != nil && err == nil {
						res, err = dynamic.Unit(), fmt.Errorf("cannot write back first argument of %s: %w", call.FnName(), werr)
					}
				}()
				in = append(in, arg)
				continue
			}
			in = append(in, byValue(i, args[i], pt))
		}

		out := fn.Call(in)

		if fallible {
			if errV := out[len(out)-1]; !errV.IsNil() {
				return dynamic.Unit(), errV.Interface().(error)
			}
		}
		if !hasResult {
			return dynamic.Unit(), nil
		}
		res, err = dynamic.From(out[0].Interface())
		if err != nil {
			return dynamic.Unit(), fmt.Errorf("cannot convert result of %s: %w", call.FnName(), err)
		}
		return res, nil
	}
}

// byValue takes the slot and converts it to pt.
func byValue(i int, slot *dynamic.Value, pt reflect.Type) reflect.Value {
	v := slot.Take()
	rv, err := dynamic.ToReflect(v, pt)
	if err != nil {
		panic(&CastError{Index: i, Want: pt, Got: v.TypeID(), Err: err})
	}
	return rv
}

// byRef borrows the slot exclusively and returns the argument for a pointer
// parameter together with the function that ends the borrow. A *dynamic.Value
// or a pointer to a host object is handed over directly; any other pointer
// gets a temporary that is written back into the slot when the borrow ends.
// The slot keeps its old value when the temporary cannot be converted back.
func byRef(slot *dynamic.Value, pt reflect.Type) (reflect.Value, func() error, error) {
	view, release, err := slot.BorrowMut()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	mode := view.AccessMode()

	if pt == valuePtrType {
		return reflect.ValueOf(view), func() error {
			*view = view.WithAccessMode(mode)
			release()
			return nil
		}, nil
	}

	if _, ok := dynamic.HostType(pt.Elem()); ok {
		rv, err := dynamic.ToReflect(*view, pt)
		if err != nil {
			release()
			panic(&CastError{Index: 0, Want: pt, Got: view.TypeID(), Err: err})
		}
		return rv, func() error {
			release()
			return nil
		}, nil
	}

	rv, err := dynamic.ToReflect(*view, pt.Elem())
	if err != nil {
		release()
		panic(&CastError{Index: 0, Want: pt, Got: view.TypeID(), Err: err})
	}
	tmp := reflect.New(pt.Elem())
	tmp.Elem().Set(rv)
	return tmp, func() error {
		defer release()
		next, err := dynamic.From(tmp.Elem().Interface())
		if err != nil {
			return err
		}
		return view.Set(next.Cty())
	}, nil
}

// Invoke runs the entry. The caller must already have matched args to the
// fingerprint; on a mismatch Invoke panics with a *CastError. Slots passed
// by value are left holding Unit.
func (e *Entry) Invoke(call *CallContext, args []*dynamic.Value) (dynamic.Value, error) {
	return e.thunk(call, args)
}

// Params returns the parameter fingerprint.
func (e *Entry) Params() []cty.Type {
	return append([]cty.Type(nil), e.params...)
}

// Arity returns the number of script parameters.
func (e *Entry) Arity() int {
	return len(e.params)
}

// ABI returns the calling shape.
func (e *Entry) ABI() ABI {
	return e.abi
}

// IsMethod reports whether the first parameter is passed by reference.
func (e *Entry) IsMethod() bool {
	return e.method
}

// ReturnType returns the cty type of the result.
func (e *Entry) ReturnType() cty.Type {
	return e.ret
}

// Accepts reports whether an argument of type ty may be bound to parameter
// i beyond what the fingerprint says.
func (e *Entry) Accepts(i int, ty cty.Type) bool {
	if e.goParams == nil {
		return true
	}
	pt := e.goParams[i]
	if i == 0 && e.method && pt != valuePtrType {
		pt = pt.Elem()
	}
	return dynamic.Accepts(pt, ty)
}

// Signature renders the entry for diagnostics.
func (e *Entry) Signature(name string) string {
	names := make([]string, len(e.params))
	for i, p := range e.params {
		names[i] = typeName(p)
		if i == 0 && e.method {
			names[i] = "&mut " + names[i]
		}
	}
	return fmt.Sprintf("%s(%s) -> %s", name, strings.Join(names, ", "), typeName(e.ret))
}

func typeName(ty cty.Type) string {
	if ty == cty.DynamicPseudoType {
		return "any"
	}
	return ty.FriendlyName()
}
