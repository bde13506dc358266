// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package resolver loads script modules from the file system for import
// statements.
//
// A module is an ordinary script. It runs once in a fresh scope and its
// exported bindings become the attributes of the object the importer sees.
// Results are cached per resolver, so a module imported from several places
// runs only once.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

// ErrCircularImport is returned when a module imports itself, directly or
// through other modules.
var ErrCircularImport = errors.New("circular import")

// FileResolver resolves the import path a/b to BaseDir/a/b.gs.
type FileResolver struct {
	BaseDir string

	modules sync.Map // Key: cleaned import path, Value: cty.Value

	mu      sync.Mutex
	loading map[string]struct{}
}

// New creates a resolver rooted at baseDir.
func New(baseDir string) *FileResolver {
	return &FileResolver{BaseDir: baseDir}
}

var _ engine.ModuleResolver = (*FileResolver)(nil)

// Resolve implements engine.ModuleResolver.
func (r *FileResolver) Resolve(ctx context.Context, e *engine.Engine, path string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	key := filepath.Clean(strings.TrimSuffix(path, engine.ScriptExt))
	if !filepath.IsLocal(key) {
		return cty.NilVal, fmt.Errorf("module path %q must be relative to the modules directory", path)
	}

	if v, ok := r.modules.Load(key); ok {
		logger.Debug("Module served from cache.", "path", key)
		return v.(cty.Value), nil
	}

	if err := r.enter(key); err != nil {
		return cty.NilVal, err
	}
	defer r.leave(key)

	file := filepath.Join(r.BaseDir, key+engine.ScriptExt)
	logger.Debug("Loading module.", "path", key, "file", file)
	ctx = ctxlog.With(ctx, "module", key)
	prog, err := e.CompileFile(ctx, file)
	if err != nil {
		return cty.NilVal, err
	}

	s := scope.New()
	if _, err := e.Run(ctx, s, prog); err != nil {
		return cty.NilVal, fmt.Errorf("module %q: %w", key, err)
	}

	exports := e.ExportsObject(s)
	r.modules.Store(key, exports)
	logger.Debug("Module loaded.", "path", key, "exports", len(exports.Type().AttributeTypes()))
	return exports, nil
}

func (r *FileResolver) enter(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loading == nil {
		r.loading = make(map[string]struct{})
	}
	if _, busy := r.loading[key]; busy {
		return fmt.Errorf("module %q: %w", key, ErrCircularImport)
	}
	r.loading[key] = struct{}{}
	return nil
}

func (r *FileResolver) leave(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loading, key)
}
