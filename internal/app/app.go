// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/resolver"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/modules/wasm"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	errW     io.Writer
	logger   *slog.Logger
	config   *Config
	settings *Settings
	engine   *engine.Engine
	plugins  *wasm.Host
}

// NewApp is the constructor for the main application. Script output goes to
// outW; logs and diagnostics go to errW. When modules is empty the core
// modules are registered.
//
// A registry that fails validation is a programming error and panics.
func NewApp(ctx context.Context, outW, errW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	settings := &Settings{}
	if cfg.SettingsPath != "" {
		s, err := LoadSettings(ctx, cfg.SettingsPath)
		if err != nil {
			var serr *SettingsError
			if errors.As(err, &serr) {
				writeDiagnostics(errW, serr.Diags, serr.Files)
			}
			return nil, err
		}
		settings = s
	}
	cfg.merge(settings)

	logger := ctxlog.New(errW, cfg.LogLevel, cfg.LogFormat)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	eng := engine.New(engine.Options{
		MaxCallDepth:  settings.MaxCallDepth,
		MaxOperations: settings.MaxOperations,
		Output:        outW,
		Resolver:      resolver.New(cfg.ModulesPath),
	})
	for _, sym := range settings.DisabledSymbols {
		eng.DisableSymbol(sym)
	}

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	eng.RegisterModules(modules...)
	if err := eng.RegisterSyntaxModules(coreSyntax...); err != nil {
		return nil, fmt.Errorf("failed to register custom syntax: %w", err)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	plugins := wasm.NewHost(ctx)
	if err := plugins.LoadDir(ctx, cfg.PluginsPath); err != nil {
		_ = plugins.Close(ctx)
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}
	eng.RegisterModules(plugins)
	logger.Debug("Plugins registered.", "functions", len(plugins.Functions()))

	if err := eng.Functions().ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		config:   cfg,
		settings: settings,
		engine:   eng,
		plugins:  plugins,
	}, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close releases the plugin runtime.
func (a *App) Close(ctx context.Context) error {
	return a.plugins.Close(ctx)
}

// newScope returns a scope holding the host variables from the settings.
func (a *App) newScope(ctx context.Context) (*scope.Scope, error) {
	return newScope(ctx, a.settings.Variables)
}
