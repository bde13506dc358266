// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/invopop/jsonschema"
	"github.com/vk/gridscript/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Settings is the content of a settings file. Every field is optional;
// command-line flags win over the file.
type Settings struct {
	LogLevel        string      `hcl:"log_level,optional" yaml:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFormat       string      `hcl:"log_format,optional" yaml:"log_format" json:"log_format,omitempty" validate:"omitempty,oneof=text json" jsonschema:"enum=text,enum=json"`
	MaxCallDepth    int         `hcl:"max_call_depth,optional" yaml:"max_call_depth" json:"max_call_depth,omitempty" validate:"gte=0"`
	MaxOperations   uint64      `hcl:"max_operations,optional" yaml:"max_operations" json:"max_operations,omitempty"`
	DisabledSymbols []string    `hcl:"disabled_symbols,optional" yaml:"disabled_symbols" json:"disabled_symbols,omitempty" validate:"dive,required"`
	ModulesPath     string      `hcl:"modules_path,optional" yaml:"modules_path" json:"modules_path,omitempty"`
	PluginsPath     string      `hcl:"plugins_path,optional" yaml:"plugins_path" json:"plugins_path,omitempty"`
	Variables       []*Variable `hcl:"variable,block" yaml:"variables" json:"variables,omitempty" validate:"dive"`
}

// Variable is a host variable pushed into the scope of every script.
type Variable struct {
	Name     string `hcl:"name,label" yaml:"name" json:"name" validate:"required"`
	Constant bool   `hcl:"constant,optional" yaml:"constant" json:"constant,omitempty"`

	// HCL files give type and default as expressions.
	TypeExpr    hcl.Expression `hcl:"type,optional" yaml:"-" json:"-"`
	DefaultExpr hcl.Expression `hcl:"default,optional" yaml:"-" json:"-"`

	// YAML files give the type as source text and the default as data.
	TypeName     string `yaml:"type" json:"type,omitempty" jsonschema:"example=string,example=list(number)"`
	DefaultValue any    `yaml:"default" json:"default,omitempty"`
}

// SettingsError carries the diagnostics of a settings file that failed to
// parse or decode.
type SettingsError struct {
	Path  string
	Diags hcl.Diagnostics
	Files map[string]*hcl.File
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("failed to load settings file %s: %s", e.Path, e.Diags.Error())
}

func (e *SettingsError) Unwrap() error {
	return e.Diags
}

// LoadSettings reads a settings file. The format follows the extension:
// .hcl, or .yaml and .yml.
func LoadSettings(ctx context.Context, path string) (*Settings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading settings file.", "path", path)

	var (
		s   Settings
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		err = decodeHCLSettings(path, &s)
	case ".yaml", ".yml":
		err = decodeYAMLSettings(path, &s)
	default:
		return nil, fmt.Errorf("unsupported settings file extension %q: expected .hcl, .yaml or .yml", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("settings validation failed for %s: %w", path, err)
	}
	logger.Debug("Settings loaded.", "path", path, "variables", len(s.Variables))
	return &s, nil
}

func decodeHCLSettings(path string, s *Settings) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return &SettingsError{Path: path, Diags: diags, Files: parser.Files()}
	}
	if diags := gohcl.DecodeBody(file.Body, nil, s); diags.HasErrors() {
		return &SettingsError{Path: path, Diags: diags, Files: parser.Files()}
	}
	return nil
}

func decodeYAMLSettings(path string, s *Settings) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode settings file %s: %w", path, err)
	}
	return nil
}

// SettingsSchema returns the JSON schema of the settings file.
func SettingsSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&Settings{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
