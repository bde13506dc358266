// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/ctxlog"
)

// CompileFile reads and compiles a single script file.
func (e *Engine) CompileFile(ctx context.Context, filePath string) (*ast.Program, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Compiling script file.", "path", filePath)
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file %s: %w", filePath, err)
	}

	prog, err := e.Compile(filePath, src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script file %s: %w", filePath, err)
	}

	logger.Debug("Successfully compiled script file.", "path", filePath, "statements", len(prog.Body.Stmts))
	return prog, nil
}
