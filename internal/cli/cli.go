// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/gridscript/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridscript", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gridscript - an embeddable scripting engine with an HCL expression language.

Usage:
  gridscript [options] [SCRIPT_PATH]

Arguments:
  SCRIPT_PATH
    Path to a single .gs file or a directory containing .gs files.

Options:
`)
		flagSet.PrintDefaults()
	}

	scriptFlag := flagSet.String("script", "", "Path to the script file or directory.")
	sFlag := flagSet.String("s", "", "Path to the script file or directory (shorthand).")
	settingsFlag := flagSet.String("settings", "", "Path to a settings file (.hcl, .yaml or .yml).")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'. (default \"text\")")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. (default \"info\")")
	modulesPathFlag := flagSet.String("modules-path", "", "Directory that import paths are resolved against. (default \"modules\")")
	pluginsPathFlag := flagSet.String("plugins-path", "", "Directory of .wasm plugins. (default \"plugins\")")
	replFlag := flagSet.Bool("repl", false, "Start an interactive session after running SCRIPT_PATH, if any.")
	schemaFlag := flagSet.Bool("settings-schema", false, "Print the JSON schema of the settings file and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if *schemaFlag {
		schema, err := app.SettingsSchema()
		if err != nil {
			return nil, false, err
		}
		fmt.Fprintln(output, string(schema))
		return nil, true, nil
	}

	path := ""
	switch {
	case *scriptFlag != "":
		path = *scriptFlag
	case *sFlag != "":
		path = *sFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	slog.Debug("Script path determined.", "path", path)

	if path == "" && !*replFlag {
		slog.Debug("No script path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ScriptPath:   path,
		SettingsPath: *settingsFlag,
		REPL:         *replFlag,
		LogFormat:    strings.ToLower(*logFormatFlag),
		LogLevel:     strings.ToLower(*logLevelFlag),
		ModulesPath:  *modulesPathFlag,
		PluginsPath:  *pluginsPathFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
