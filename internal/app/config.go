// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
)

// Defaults applied after flags and the settings file.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultModulesPath = "modules"
	DefaultPluginsPath = "plugins"
)

// Config holds all the necessary configuration for an App instance to run.
// Empty fields are filled from the settings file, then from the defaults.
type Config struct {
	ScriptPath   string
	SettingsPath string
	REPL         bool

	LogFormat   string `validate:"omitempty,oneof=text json"`
	LogLevel    string `validate:"omitempty,oneof=debug info warn error"`
	ModulesPath string
	PluginsPath string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScriptPath == "" && !cfg.REPL {
		return nil, errors.New("a script path is required unless -repl is given")
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// merge fills the empty fields of c from s and then from the defaults.
func (c *Config) merge(s *Settings) {
	if s != nil {
		c.LogLevel = firstNonEmpty(c.LogLevel, s.LogLevel)
		c.LogFormat = firstNonEmpty(c.LogFormat, s.LogFormat)
		c.ModulesPath = firstNonEmpty(c.ModulesPath, s.ModulesPath)
		c.PluginsPath = firstNonEmpty(c.PluginsPath, s.PluginsPath)
	}
	c.LogLevel = firstNonEmpty(c.LogLevel, DefaultLogLevel)
	c.LogFormat = firstNonEmpty(c.LogFormat, DefaultLogFormat)
	c.ModulesPath = firstNonEmpty(c.ModulesPath, DefaultModulesPath)
	c.PluginsPath = firstNonEmpty(c.PluginsPath, DefaultPluginsPath)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
