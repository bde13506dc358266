// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package app contains the core application logic. It defines the main App
// struct, its configuration and settings file, and the run and REPL
// lifecycles, decoupled from any specific entrypoint like a CLI.
//
// Configuration is layered: command-line flags win over the settings file,
// which wins over the package defaults. The settings file (HCL or YAML) also
// declares host variables that are pushed into the scope of every script.
package app
