// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"golang.org/x/term"
)

// ErrScriptFailed is returned by Run after a script error has been reported.
var ErrScriptFailed = errors.New("script failed")

// Run executes the configured script, or every script under the configured
// directory in lexical order. Each file gets its own scope.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	files, err := engine.ResolveScriptPath(ctx, a.config.ScriptPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.logger.Warn("No script files found.", "path", a.config.ScriptPath)
		return nil
	}

	for _, file := range files {
		s, err := a.newScope(ctx)
		if err != nil {
			return err
		}
		if err := a.runFile(ctx, s, file); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.", "files", len(files))
	return nil
}

// runFile compiles and runs one file in s, reporting failures as
// diagnostics.
func (a *App) runFile(ctx context.Context, s *scope.Scope, file string) error {
	a.logger.Info("Running script.", "file", file)
	prog, err := a.engine.CompileFile(ctx, file)
	if err == nil {
		_, err = a.engine.Run(ctx, s, prog)
	}
	if err != nil {
		a.report(err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrScriptFailed, file)
	}
	return nil
}

// report writes err to the error writer with source snippets where the
// source can be read.
func (a *App) report(err error) {
	diags := scripterr.Diagnostics(err)
	files := make(map[string]*hcl.File)
	for _, d := range diags {
		if d.Subject == nil || d.Subject.Filename == "" {
			continue
		}
		if _, ok := files[d.Subject.Filename]; ok {
			continue
		}
		if src, err := os.ReadFile(d.Subject.Filename); err == nil {
			files[d.Subject.Filename] = &hcl.File{Bytes: src}
		}
	}
	writeDiagnostics(a.errW, diags, files)
}

func writeDiagnostics(w io.Writer, diags hcl.Diagnostics, files map[string]*hcl.File) {
	width, color := uint(0), false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = uint(cols)
		}
		color = true
	}
	_ = hcl.NewDiagnosticTextWriter(w, files, width, color).WriteDiagnostics(diags)
}
