// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/app"
	"github.com/vk/gridscript/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// MainScript is the file the harness runs.
const MainScript = "main.gs"

// RunScriptTest provides a standardized harness for running integration
// tests using a default background context.
func RunScriptTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunScriptTestWithContext(context.Background(), t, files, modules...)
}

// RunScriptTestWithContext writes files into a temporary directory laid
// out as a project and runs MainScript from it. Paths are relative to the
// project root: "modules/x.gs" is importable as "x", "plugins/p.wasm" is
// loaded as plugin p, and "settings.hcl" or "settings.yaml" is used as the
// settings file when present. Empty modules selects the core modules.
func RunScriptTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := &app.Config{
		ScriptPath:  filepath.Join(root, MainScript),
		ModulesPath: filepath.Join(root, "modules"),
		PluginsPath: filepath.Join(root, "plugins"),
		LogLevel:    "debug",
		LogFormat:   "text",
	}
	for _, name := range []string{"settings.hcl", "settings.yaml"} {
		if _, ok := files[name]; ok {
			cfg.SettingsPath = filepath.Join(root, name)
		}
	}

	out, logs := &SafeBuffer{}, &SafeBuffer{}
	result := &HarnessResult{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		testApp, err := app.NewApp(ctx, out, logs, cfg, modules...)
		if err != nil {
			result.Err = err
			return
		}
		t.Cleanup(func() { _ = testApp.Close(context.Background()) })
		result.App = testApp
		result.Err = testApp.Run(ctx)
	}()

	if os.Getenv("GRIDSCRIPT_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	result.Output = out.String()
	result.LogOutput = logs.String()
	return result
}
