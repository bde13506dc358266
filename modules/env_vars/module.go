// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package env_vars exposes the process environment to scripts.
package env_vars

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vk/gridscript/internal/registry"
)

// ErrNotSet is returned by env for a variable that is not set.
var ErrNotSet = errors.New("environment variable is not set")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Env returns the value of the named variable.
func Env(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrNotSet)
	}
	return v, nil
}

// EnvOr returns the value of the named variable, or def when it is not set.
func EnvOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

// All returns every environment variable.
func All() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("env", Env)
	r.RegisterFn("env_or", EnvOr)
	r.RegisterFn("env_vars", All)
}
