// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry checks that every registered name can be called from a
// script and warns about signatures that weaken type checking.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		if !callableName(name) {
			errs = append(errs, fmt.Sprintf("function '%s': name is not a valid identifier and cannot be called from a script", name))
			continue
		}

		overloads := r.Overloads(name)
		for _, e := range overloads {
			for i, p := range e.Params() {
				if p == cty.DynamicPseudoType {
					logger.Warn("Function has a parameter of type 'any', which disables static type checking. Consider using a specific type like 'string', 'number', or 'bool'.",
						"function", e.Signature(name), "parameter", i+1)
				}
			}
		}

		for i := range overloads {
			for j := i + 1; j < len(overloads); j++ {
				if overlap(overloads[i], overloads[j]) {
					logger.Warn("Overloads accept the same arguments; the one registered first wins.",
						"first", overloads[i].Signature(name), "second", overloads[j].Signature(name))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// callableName accepts plain identifiers and namespaced ones such as
// `wasm::add`.
func callableName(name string) bool {
	for _, part := range strings.Split(name, "::") {
		if !hclsyntax.ValidIdentifier(part) {
			return false
		}
	}
	return true
}

// overlap reports whether some argument list reaches both a and b at the
// dynamic level of Resolve.
func overlap(a, b *bridge.Entry) bool {
	if a.Arity() != b.Arity() {
		return false
	}
	pa, pb := a.Params(), b.Params()
	for i := range pa {
		if pa[i] == cty.DynamicPseudoType || pb[i] == cty.DynamicPseudoType {
			continue
		}
		if !pa[i].Equals(pb[i]) {
			return false
		}
	}
	return true
}
