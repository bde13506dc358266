// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// ErrFunctionNotFound is wrapped by NotFoundError.
var ErrFunctionNotFound = errors.New("function not found")

// NotFoundError reports that no overload of Name accepts the argument types.
type NotFoundError struct {
	Name       string
	Args       []cty.Type
	Candidates []string
}

func (e *NotFoundError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = typeName(a)
	}
	msg := fmt.Sprintf("%s: %s(%s)", ErrFunctionNotFound, e.Name, strings.Join(args, ", "))
	if len(e.Candidates) > 0 {
		msg += "; candidates are " + strings.Join(e.Candidates, ", ")
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return ErrFunctionNotFound
}

// CallError reports an argument that the selected overload could not accept.
type CallError struct {
	Name      string
	Signature string
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call to %s failed: %v", e.Signature, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

type matchLevel int

const (
	noMatch matchLevel = iota
	convertible
	dynamicMatch
	exact
)

func match(e *bridge.Entry, args []cty.Type) matchLevel {
	if e.Arity() != len(args) {
		return noMatch
	}
	level := exact
	for i, p := range e.Params() {
		arg := args[i]
		if !e.Accepts(i, arg) {
			return noMatch
		}
		switch {
		case p.Equals(arg):
		case p == cty.DynamicPseudoType:
			level = min(level, dynamicMatch)
		case arg == cty.DynamicPseudoType || convert.GetConversionUnsafe(arg, p) != nil:
			level = min(level, convertible)
		default:
			return noMatch
		}
	}
	return level
}

// Resolve returns the overload of name that best fits args: an exact
// fingerprint first, then one whose differing parameters are dynamic, then
// one the arguments can be converted to. Ties go to the overload registered
// first.
func (r *Registry) Resolve(name string, args []cty.Type) (*bridge.Entry, error) {
	overloads := r.Overloads(name)

	var (
		best  *bridge.Entry
		level = noMatch
	)
	for _, e := range overloads {
		if l := match(e, args); l > level {
			best, level = e, l
			if l == exact {
				break
			}
		}
	}
	if best == nil {
		candidates := make([]string, len(overloads))
		for i, e := range overloads {
			candidates[i] = e.Signature(name)
		}
		return nil, &NotFoundError{Name: name, Args: args, Candidates: candidates}
	}
	return best, nil
}

// Call resolves name against the argument slots and invokes the selected
// overload. Arguments are converted to the parameter types first; a
// conversion failure is reported as a *CallError instead of a panic.
func (r *Registry) Call(call *bridge.CallContext, name string, args []*dynamic.Value) (dynamic.Value, error) {
	types := make([]cty.Type, len(args))
	for i, a := range args {
		types[i] = a.TypeID()
	}
	e, err := r.Resolve(name, types)
	if err != nil {
		return dynamic.Unit(), err
	}
	return Invoke(call, name, e, args)
}

// Invoke runs an already resolved entry through the checked path.
func Invoke(call *bridge.CallContext, name string, e *bridge.Entry, args []*dynamic.Value) (out dynamic.Value, err error) {
	// Slots are only touched once every argument converts; a method's first
	// slot is the caller's variable.
	converted := make(map[int]cty.Value)
	for i, p := range e.Params() {
		if p == cty.DynamicPseudoType || args[i].TypeID().Equals(p) || args[i].IsUnit() {
			continue
		}
		conv, cerr := convert.Convert(args[i].Cty(), p)
		if cerr != nil {
			return dynamic.Unit(), &CallError{Name: name, Signature: e.Signature(name), Err: fmt.Errorf("argument #%d: %w", i+1, cerr)}
		}
		converted[i] = conv
	}
	for i, conv := range converted {
		if serr := args[i].Set(conv); serr != nil {
			return dynamic.Unit(), &CallError{Name: name, Signature: e.Signature(name), Err: serr}
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			castErr, ok := rec.(*bridge.CastError)
			if !ok {
				panic(rec)
			}
			out, err = dynamic.Unit(), &CallError{Name: name, Signature: e.Signature(name), Err: castErr}
		}
	}()
	return e.Invoke(call, args)
}

// HCLFunctions exposes every registered name as an HCL function taking any
// number of arguments of any type. newCall supplies the call context for
// each invocation.
func (r *Registry) HCLFunctions(newCall func(name string) *bridge.CallContext) map[string]function.Function {
	names := r.Names()
	out := make(map[string]function.Function, len(names))
	for _, name := range names {
		out[name] = function.New(&function.Spec{
			Description: fmt.Sprintf("Host function %s.", name),
			VarParam: &function.Parameter{
				Name:             "args",
				Type:             cty.DynamicPseudoType,
				AllowNull:        true,
				AllowDynamicType: true,
			},
			Type: function.StaticReturnType(cty.DynamicPseudoType),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				slots := make([]*dynamic.Value, len(args))
				for i, a := range args {
					v := dynamic.Wrap(a)
					slots[i] = &v
				}
				res, err := r.Call(newCall(name), name, slots)
				if err != nil {
					return cty.NilVal, err
				}
				return res.Cty(), nil
			},
		})
	}
	return out
}

func typeName(ty cty.Type) string {
	if ty == cty.DynamicPseudoType {
		return "any"
	}
	return ty.FriendlyName()
}
