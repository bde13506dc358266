// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"io"

	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/syntax"
	"github.com/vk/gridscript/modules/env_vars"
	"github.com/vk/gridscript/modules/http_client"
	"github.com/vk/gridscript/modules/loops"
	"github.com/vk/gridscript/modules/maps"
	"github.com/vk/gridscript/modules/print"
	"github.com/vk/gridscript/modules/s3"
	"github.com/vk/gridscript/modules/socketio"
)

// coreModules is the definitive list of the function modules compiled into
// the gridscript binary. print writes to out.
func coreModules(out io.Writer) []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: out},
		&maps.Module{},
		&http_client.Module{},
		&s3.Module{},
		&socketio.Module{},
		&loops.Module{},
	}
}

// coreSyntax lists the custom syntax modules compiled into the binary.
var coreSyntax = []syntax.Module{
	&loops.Module{},
}
