// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/modules/print"
	"golang.org/x/term"
)

// REPL prompts.
const (
	Prompt         = "gs> "
	ContinuePrompt = "... "
)

const replFile = "<repl>"

type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// scanReader reads lines from a non-terminal input without echoing prompts.
type scanReader struct{ *bufio.Scanner }

func (r scanReader) ReadLine() (string, error) {
	if !r.Scan() {
		if err := r.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.Text(), nil
}

func (scanReader) SetPrompt(string) {}

// REPL reads statements from in and runs them in one persistent scope. The
// value of each entry is printed unless it is unit. An entry that ends
// before its block or expression is complete continues on the next line.
// When in is a terminal the line editor of x/term is used.
//
// If a script path is configured it runs first in the same scope.
func (a *App) REPL(ctx context.Context, in io.Reader) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	s, err := a.newScope(ctx)
	if err != nil {
		return err
	}
	if a.config.ScriptPath != "" {
		if err := a.runFile(ctx, s, a.config.ScriptPath); err != nil {
			return err
		}
	}

	var lines lineReader = scanReader{bufio.NewScanner(in)}
	out := a.outW
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("failed to switch terminal to raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(f.Fd()), state) }()
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, a.outW}, Prompt)
		lines, out = t, t
	}

	var pending strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := lines.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if pending.Len() == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		pending.WriteString(line)
		pending.WriteByte('\n')

		src := pending.String()
		prog, err := a.engine.CompileWithScope(replFile, []byte(src), s)
		if errors.Is(err, &scripterr.ParseError{Type: scripterr.UnexpectedEOF}) {
			lines.SetPrompt(ContinuePrompt)
			continue
		}
		pending.Reset()
		lines.SetPrompt(Prompt)
		if err != nil {
			a.reportSource(out, err, src)
			continue
		}

		v, err := a.engine.Run(ctx, s, prog)
		if err != nil {
			a.reportSource(out, err, src)
			continue
		}
		if !v.IsUnit() {
			fmt.Fprintln(out, print.Render(v))
		}
	}
}

func (a *App) reportSource(w io.Writer, err error, src string) {
	writeDiagnostics(w, scripterr.Diagnostics(err), map[string]*hcl.File{replFile: {Bytes: []byte(src)}})
}
