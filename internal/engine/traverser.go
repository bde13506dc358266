// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/fsutil"
)

// ScriptExt is the file extension of script files.
const ScriptExt = ".gs"

// ResolveScriptPath takes a path and returns a slice of all script files found.
// If the path is a file, it returns a slice containing just that file.
// If the path is a directory, it recursively finds all script files within it,
// in lexical order.
func ResolveScriptPath(ctx context.Context, path string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving script path.", "path", path)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("script path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if info.IsDir() {
		logger.Debug("Path is a directory, scanning for script files.", "directory", path)
		return fsutil.FindFilesByExtension(path, ScriptExt)
	}

	logger.Debug("Path is a single file.", "file", path)
	if filepath.Ext(path) != ScriptExt {
		return nil, fmt.Errorf("specified file is not a %s file: %s", ScriptExt, path)
	}
	return []string{path}, nil
}
