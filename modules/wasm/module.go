// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package wasm loads WebAssembly plugins and exposes their numeric exports
// as script functions named `plugin::export`.
package wasm

import (
	"context"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/fsutil"
	"github.com/vk/gridscript/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Ext is the file extension of plugins.
const Ext = ".wasm"

// Host owns the wazero runtime and every plugin instantiated in it.
type Host struct {
	runtime wazero.Runtime
	plugins []*plugin
}

type plugin struct {
	name string
	mod  api.Module
	// wazero functions are not safe for concurrent calls.
	mu      sync.Mutex
	exports []export
}

type export struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// NewHost creates a runtime with WASI preview 1 available to plugins.
func NewHost(ctx context.Context) *Host {
	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	return &Host{runtime: rt}
}

// LoadDir loads every plugin under dir. A missing dir is not an error.
func (h *Host) LoadDir(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		ctxlog.FromContext(ctx).Debug("Plugin directory does not exist, skipping.", "path", dir)
		return nil
	}
	files, err := fsutil.FindFilesByExtension(dir, Ext)
	if err != nil {
		return fmt.Errorf("failed to list plugins in %s: %w", dir, err)
	}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read plugin %s: %w", f, err)
		}
		name := strings.TrimSuffix(filepath.Base(f), Ext)
		if err := h.Load(ctx, name, src); err != nil {
			return fmt.Errorf("plugin %s: %w", f, err)
		}
	}
	return nil
}

// Load compiles and instantiates one plugin under name.
func (h *Host) Load(ctx context.Context, name string, src []byte) error {
	logger := ctxlog.FromContext(ctx).With("plugin", name)

	compiled, err := h.runtime.CompileModule(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to compile module: %w", err)
	}
	mod, err := h.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return fmt.Errorf("failed to instantiate module: %w", err)
	}

	p := &plugin{name: name, mod: mod}
	defs := compiled.ExportedFunctions()
	for _, exp := range slices.Sorted(maps.Keys(defs)) {
		def := defs[exp]
		if strings.HasPrefix(exp, "_") || len(def.ParamTypes()) > bridge.MaxArity || len(def.ResultTypes()) > 1 {
			logger.Debug("Skipping export.", "export", exp)
			continue
		}
		if !numeric(def.ParamTypes()) || !numeric(def.ResultTypes()) {
			logger.Debug("Skipping export with non-numeric signature.", "export", exp)
			continue
		}
		p.exports = append(p.exports, export{name: exp, params: def.ParamTypes(), results: def.ResultTypes()})
	}
	logger.Info("Loaded plugin.", "exports", len(p.exports))
	h.plugins = append(h.plugins, p)
	return nil
}

// Functions lists the script names of every loaded export.
func (h *Host) Functions() []string {
	var out []string
	for _, p := range h.plugins {
		for _, x := range p.exports {
			out = append(out, p.name+"::"+x.name)
		}
	}
	return out
}

// Register implements registry.Module.
func (h *Host) Register(r *registry.Registry) {
	for _, p := range h.plugins {
		for _, x := range p.exports {
			params := make([]cty.Type, len(x.params))
			for i := range params {
				params[i] = cty.Number
			}
			r.RegisterEntry(p.name+"::"+x.name, bridge.NewRawEntry(params, bridge.FallibleWithContext, false, p.thunk(x)))
		}
	}
}

// Close releases the runtime and every plugin.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

func (p *plugin) thunk(x export) bridge.Thunk {
	return func(call *bridge.CallContext, args []*dynamic.Value) (dynamic.Value, error) {
		in := make([]uint64, len(args))
		for i, a := range args {
			n, err := encode(a.Take().Cty(), x.params[i])
			if err != nil {
				return dynamic.Unit(), fmt.Errorf("argument #%d: %w", i+1, err)
			}
			in[i] = n
		}

		p.mu.Lock()
		out, err := p.mod.ExportedFunction(x.name).Call(call.Context(), in...)
		p.mu.Unlock()
		if err != nil {
			return dynamic.Unit(), fmt.Errorf("%s::%s: %w", p.name, x.name, err)
		}
		if len(x.results) == 0 {
			return dynamic.Unit(), nil
		}
		return dynamic.Wrap(decode(out[0], x.results[0])), nil
	}
}

func numeric(types []api.ValueType) bool {
	for _, t := range types {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

func encode(v cty.Value, t api.ValueType) (uint64, error) {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0, fmt.Errorf("number required, got %s", v.Type().FriendlyName())
	}
	bf := v.AsBigFloat()
	switch t {
	case api.ValueTypeI32, api.ValueTypeI64:
		if !bf.IsInt() {
			return 0, fmt.Errorf("integer required, got %s", bf.Text('g', -1))
		}
		n, _ := bf.Int64()
		if t == api.ValueTypeI32 {
			if n < math.MinInt32 || n > math.MaxUint32 {
				return 0, fmt.Errorf("%d overflows i32", n)
			}
			return api.EncodeI32(int32(n)), nil
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		f, _ := bf.Float32()
		return api.EncodeF32(f), nil
	default:
		f, _ := bf.Float64()
		return api.EncodeF64(f), nil
	}
}

func decode(n uint64, t api.ValueType) cty.Value {
	switch t {
	case api.ValueTypeI32:
		return cty.NumberIntVal(int64(api.DecodeI32(n)))
	case api.ValueTypeI64:
		return cty.NumberIntVal(int64(n))
	case api.ValueTypeF32:
		return cty.NumberFloatVal(float64(api.DecodeF32(n)))
	default:
		return cty.NumberFloatVal(api.DecodeF64(n))
	}
}
