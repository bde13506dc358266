// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/scope"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// typeExprToCtyType converts an HCL type expression into its cty.Type equivalent.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil || isNullExpr(expr) {
		logger.Debug("Type expression is absent, defaulting to any.")
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		logger.Debug("Parsing type expression as a function call.", "call", v.Name)
		if len(v.Args) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("type constructors (list, map, set) require exactly one argument, got %d", len(v.Args))
		}

		elementType, err := typeExprToCtyType(ctx, v.Args[0])
		if err != nil {
			return cty.DynamicPseudoType, err
		}
		if elementType == cty.DynamicPseudoType {
			return cty.DynamicPseudoType, fmt.Errorf("collection types cannot contain type 'any'")
		}

		switch v.Name {
		case "list":
			return cty.List(elementType), nil
		case "map":
			return cty.Map(elementType), nil
		case "set":
			return cty.Set(elementType), nil
		default:
			return cty.DynamicPseudoType, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch rootName := v.Traversal.RootName(); rootName {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "any":
			return cty.DynamicPseudoType, nil
		default:
			return cty.DynamicPseudoType, fmt.Errorf("unknown primitive type %q", rootName)
		}

	default:
		return cty.DynamicPseudoType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

// isNullExpr reports whether expr is the placeholder gohcl uses for an
// omitted optional attribute.
func isNullExpr(expr hcl.Expression) bool {
	if _, ok := expr.(hclsyntax.Expression); ok {
		return false
	}
	v, diags := expr.Value(nil)
	return !diags.HasErrors() && v.IsNull()
}

// Value returns the variable's default converted to its declared type. A
// variable without a default is null.
func (v *Variable) Value(ctx context.Context) (cty.Value, error) {
	typeExpr := v.TypeExpr
	if v.TypeName != "" {
		expr, diags := hclsyntax.ParseExpression([]byte(v.TypeName), v.Name+".type", hcl.InitialPos)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("variable %q: invalid type %q: %w", v.Name, v.TypeName, diags)
		}
		typeExpr = expr
	}
	ty, err := typeExprToCtyType(ctx, typeExpr)
	if err != nil {
		return cty.NilVal, fmt.Errorf("variable %q: %w", v.Name, err)
	}

	val := cty.NullVal(ty)
	switch {
	case v.DefaultExpr != nil && !isNullExpr(v.DefaultExpr):
		d, diags := v.DefaultExpr.Value(nil)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("variable %q: %w", v.Name, diags)
		}
		val = d
	case v.DefaultValue != nil:
		d, err := dynamic.FromInterface(v.DefaultValue)
		if err != nil {
			return cty.NilVal, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		val = d
	}

	out, err := convert.Convert(val, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("variable %q: default does not match type %s: %w", v.Name, ty.FriendlyName(), err)
	}
	return out, nil
}

// newScope builds a scope holding vars in declaration order.
func newScope(ctx context.Context, vars []*Variable) (*scope.Scope, error) {
	s := scope.WithCapacity(len(vars))
	for _, v := range vars {
		val, err := v.Value(ctx)
		if err != nil {
			return nil, err
		}
		mode := dynamic.ReadWrite
		if v.Constant {
			mode = dynamic.ReadOnly
		}
		s.PushMode(v.Name, dynamic.Wrap(val), mode)
	}
	return s, nil
}
