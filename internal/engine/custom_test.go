package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/syntax"
)

func twice(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
	out := dynamic.Unit()
	for range 2 {
		v, err := ctx.EvalExpression(in[0])
		if err != nil {
			return dynamic.Unit(), err
		}
		out = v
	}
	return out, nil
}

func TestCustomSyntax_Block(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.RegisterCustomSyntax([]string{"twice", "$block$"}, 0, twice))

	assert.Equal(t, int64(2), evalInt(t, e, scope.New(), "let n = 0\ntwice { n = n + 1 }\nn"))
	assert.Equal(t, int64(7), evalInt(t, e, scope.New(), "let n = 5\nlet r = twice { n = n + 1\nn }\nr"))
}

func TestCustomSyntax_ExprAndLiterals(t *testing.T) {
	e := New(Options{})
	err := e.RegisterCustomSyntax([]string{"pick", "$expr$", "or", "$expr$"}, 0,
		func(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
			assert.Equal(t, "a + 1", in[0].Source())
			v, err := ctx.EvalExpression(in[0])
			if err != nil || !v.IsUnit() {
				return v, err
			}
			return ctx.EvalExpression(in[1])
		})
	require.NoError(t, err)

	assert.Equal(t, int64(3), evalInt(t, e, scope.New(), "let a = 2\npick a + 1 or 10"))

	_, err = e.Compile("test.gs", []byte("let a = 2\npick a + 1 10"))
	assert.ErrorIs(t, err, &scripterr.ParseError{Type: scripterr.MissingToken})
	assert.ErrorContains(t, err, "Expecting 'or' for 'pick'")
}

func TestCustomSyntax_ScopeDelta(t *testing.T) {
	e := New(Options{})
	declare := func(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
		name, _ := in[0].VariableName()
		ctx.Scope().Push(name, 41)
		return dynamic.Unit(), nil
	}
	require.NoError(t, e.RegisterCustomSyntax([]string{"declare", "$ident$"}, 1, declare))
	require.NoError(t, e.RegisterCustomSyntax([]string{"forget", "$ident$"}, 2, declare))

	t.Run("declared variable is visible", func(t *testing.T) {
		assert.Equal(t, int64(42), evalInt(t, e, scope.New(), "declare foo\nfoo + 1"))
	})

	t.Run("declared variable is dropped with its block", func(t *testing.T) {
		_, err := e.Eval(context.Background(), scope.New(), "test.gs", "{ declare foo }\nfoo")
		assert.Equal(t, scripterr.KindExpression, evalKind(t, err))
	})

	t.Run("delta mismatch", func(t *testing.T) {
		_, err := e.Eval(context.Background(), scope.New(), "test.gs", "forget foo")
		assert.Equal(t, scripterr.KindScopeDeltaMismatch, evalKind(t, err))
	})

	t.Run("key stays usable as a variable name", func(t *testing.T) {
		assert.Equal(t, int64(42), evalInt(t, e, scope.New(), "let declare = 40\n(declare + 2)"))
	})

	t.Run("disabled key is not a variable name", func(t *testing.T) {
		d := New(Options{})
		d.DisableSymbol("halt")
		require.NoError(t, d.RegisterCustomSyntax([]string{"halt"}, 0, twice))
		_, err := d.Compile("test.gs", []byte("let halt = 1"))
		assert.ErrorIs(t, err, &scripterr.ParseError{Type: scripterr.DisabledSymbol})
	})
}

func TestCustomSyntax_IdentAssignRoundTrip(t *testing.T) {
	e := New(Options{})
	var sources []string
	err := e.RegisterCustomSyntax([]string{"my_stmt", "$ident$", "=", "$expr$"}, 1,
		func(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
			name, ok := in[0].VariableName()
			require.True(t, ok)
			sources = append(sources, name, in[1].Source())
			v, err := ctx.EvalExpression(in[1])
			if err != nil {
				return dynamic.Unit(), err
			}
			ctx.Scope().PushDynamic(name, v)
			return dynamic.Unit(), nil
		})
	require.NoError(t, err)

	s := scope.New()
	_, err = e.Eval(context.Background(), s, "test.gs", "my_stmt x = 1+2")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "1+2"}, sources)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(3), evalInt(t, e, s, "x"))
}

func TestCustomSyntax_Errors(t *testing.T) {
	errNope := errors.New("nope")
	e := New(Options{})
	require.NoError(t, e.RegisterCustomSyntax([]string{"refuse"}, 0,
		func(syntax.Context, []ast.Expression) (dynamic.Value, error) {
			return dynamic.Unit(), errNope
		}))

	_, err := e.Eval(context.Background(), scope.New(), "test.gs", "refuse")
	assert.Equal(t, scripterr.KindCustomSyntax, evalKind(t, err))
	assert.ErrorIs(t, err, errNope)
}

func TestCustomSyntax_LoopSignals(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.RegisterCustomSyntax([]string{"twice", "$block$"}, 0, twice))

	src := `let n = 0
while true {
  twice {
    n = n + 1
    if n == 3 { break }
  }
}
n`
	assert.Equal(t, int64(3), evalInt(t, e, scope.New(), src))
}

func TestCustomSyntax_Raw(t *testing.T) {
	e := New(Options{})
	// sum $expr$ (, $expr$)*
	e.RegisterCustomSyntaxRaw("sum", func(matched []string, look string) (string, error) {
		switch {
		case len(matched) == 1:
			return syntax.MarkerExpr, nil
		case matched[len(matched)-1] == syntax.MarkerExpr && look == ",":
			return ",", nil
		case matched[len(matched)-1] == ",":
			return syntax.MarkerExpr, nil
		}
		return "", nil
	}, 0, func(ctx syntax.Context, in []ast.Expression) (dynamic.Value, error) {
		var total int
		for _, x := range in {
			v, err := ctx.EvalExpression(x)
			if err != nil {
				return dynamic.Unit(), err
			}
			n, err := dynamic.As[int](v)
			if err != nil {
				return dynamic.Unit(), err
			}
			total += n
		}
		return dynamic.From(total)
	})

	assert.Equal(t, int64(6), evalInt(t, e, scope.New(), "sum 1, 2, 3"))
}
