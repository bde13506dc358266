package engine

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/zclconf/go-cty/cty"
)

type word struct{ text string }

var wordType = dynamic.RegisterType[word]("word")

func (w *word) letters() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, r := range w.text {
			if !yield(string(r)) {
				return
			}
		}
	}
}

type broken struct{}

var brokenType = dynamic.RegisterType[broken]("broken")

func TestEval_For(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"tuple", "let sum = 0\nfor x in [1, 2, 3, 4] { sum = sum + x }\nsum", 10},
		{"list from function", "let sum = 0\nfor x in tolist([5, 6]) { sum = sum + x }\nsum", 11},
		{"string", "let n = 0\nfor c in \"héllo\" { n = n + 1 }\nn", 5},
		{"empty", "let n = 0\nfor x in [] { n = n + 1 }\nn", 0},
		{"break", "let sum = 0\nfor x in [1, 2, 3, 4] {\n  if x == 3 { break }\n  sum = sum + x\n}\nsum", 3},
		{"continue", "let sum = 0\nfor x in [1, 2, 3, 4] {\n  if x % 2 == 0 { continue }\n  sum = sum + x\n}\nsum", 4},
		{"return from loop", "for x in [7, 8] { return x * 2 }\n0", 14},
		{"nested", "let n = 0\nfor a in [1, 2] {\n  for b in [10, 20] { n = n + a * b }\n}\nn", 90},
		{"shadows outer variable", "let x = 100\nfor x in [1, 2] { x = x * 5 }\nx", 100},
		{"body locals are per item", "let sum = 0\nfor x in [1, 2, 3] {\n  let y = x\n  let y = y * 10\n  sum = sum + y\n}\nsum", 60},
		{"iterable evaluated once", "let xs = [1, 2]\nlet n = 0\nfor x in xs { n = n + 1 }\nn", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{})
			e.RegisterFn("tolist", func(a dynamic.Array) dynamic.Array { return a })
			assert.Equal(t, tt.want, evalInt(t, e, scope.New(), tt.src))
		})
	}
}

func TestEval_ForRewindsScope(t *testing.T) {
	e := New(Options{})
	s := scope.New()

	_, err := e.Eval(context.Background(), s, "test.gs", "let total = 0\nfor x in [1, 2, 3] {\n  let sq = x * x\n  total = total + sq\n}")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Contains("x"))
	assert.False(t, s.Contains("sq"))
	assert.Equal(t, int64(14), evalInt(t, e, s, "total"))
}

func TestEval_ForHostIterable(t *testing.T) {
	e := New(Options{})
	e.RegisterFn("prepend", func(s, prefix string) string { return prefix + "-" + s })
	registry.RegisterIterable(e.Functions(), (*word).letters)
	_, ok := e.Functions().Iterator(wordType)
	require.True(t, ok)

	s := scope.New().Push("w", &word{text: "hello"})
	out, err := e.Eval(context.Background(), s, "test.gs", "let out = \"\"\nfor c in w { out = prepend(out, c) }\nout")
	require.NoError(t, err)
	got, err := dynamic.As[string](out)
	require.NoError(t, err)
	assert.Equal(t, "o-l-l-e-h-", got)
}

func TestEval_ForIteratorFailure(t *testing.T) {
	e := New(Options{})
	e.Functions().RegisterIterator(brokenType, func(dynamic.Value) iter.Seq2[dynamic.Value, error] {
		return func(yield func(dynamic.Value, error) bool) {
			if !yield(dynamic.MustFrom(1), nil) {
				return
			}
			yield(dynamic.Unit(), errors.New("source closed"))
		}
	})

	s := scope.New().Push("b", &broken{})
	_, err := e.Eval(context.Background(), s, "test.gs", "let n = 0\nfor x in b { n = n + x }")
	assert.Equal(t, scripterr.KindFunction, evalKind(t, err))
	assert.ErrorContains(t, err, "source closed")
}

func TestEval_ForErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want scripterr.EvalKind
		msg  string
	}{
		{"object", "for x in { a = 1 } { }", scripterr.KindFor, "is not iterable"},
		{"number", "for x in 42 { }", scripterr.KindFor, "'number' is not iterable"},
		{"null", "for x in null { }", scripterr.KindFor, "is not iterable"},
		{"host type without iterator", "for x in w { }", scripterr.KindFor, "'word' is not iterable"},
		{"error in body", "for x in [1] { missing + x }", scripterr.KindExpression, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scope.New().Push("w", &word{text: "hi"})
			_, err := New(Options{}).Eval(context.Background(), s, "test.gs", tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.want, evalKind(t, err))
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestEval_ForLimits(t *testing.T) {
	t.Run("max operations", func(t *testing.T) {
		e := New(Options{MaxOperations: 20})
		xs := make([]cty.Value, 100)
		for i := range xs {
			xs[i] = cty.NumberIntVal(int64(i))
		}
		s := scope.New().PushDynamic("xs", dynamic.Wrap(cty.ListVal(xs)))
		_, err := e.Eval(context.Background(), s, "test.gs", "for x in xs { }")
		assert.Equal(t, scripterr.KindTooManyOperations, evalKind(t, err))
	})

	t.Run("cancelled in body", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		e := New(Options{})
		e.RegisterFn("stop", func() { cancel() })
		_, err := e.Eval(ctx, scope.New(), "test.gs", "for x in [1, 2, 3] { stop() }")
		assert.Equal(t, scripterr.KindTerminated, evalKind(t, err))
	})
}

func TestCompile_For(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		disable []string
		want    scripterr.ParseErrorType
	}{
		{name: "missing in", src: "for x [1] { }", want: scripterr.MissingToken},
		{name: "missing iterable", src: "for x in", want: scripterr.UnexpectedEOF},
		{name: "missing body", src: "for x in [1]", want: scripterr.UnexpectedEOF},
		{name: "keyword as loop variable", src: "for in in [1] { }", want: scripterr.VariableExpected},
		{name: "reserved loop variable", src: "for fn in [1] { }", want: scripterr.Reserved},
		{name: "disabled", src: "for x in [1] { }", disable: []string{"for"}, want: scripterr.DisabledSymbol},
		{name: "loop variable gone after body", src: "const x = 1\nfor x in [1] { x = 2 }\nx = 3", want: scripterr.AssignmentToConstant},
		{name: "loop variable assignable", src: "const x = 1\nfor x in [1] { x = 2 }", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{})
			for _, sym := range tt.disable {
				e.DisableSymbol(sym)
			}
			prog, err := e.Compile("test.gs", []byte(tt.src))
			if tt.want == 0 {
				require.NoError(t, err)
				require.NotNil(t, prog)
				return
			}
			assert.ErrorIs(t, err, &scripterr.ParseError{Type: tt.want})
		})
	}
}

func TestCompile_ForShape(t *testing.T) {
	prog, err := New(Options{}).Compile("test.gs", []byte("for item in [1, 2] {\n  item\n}"))
	require.NoError(t, err)
	require.Len(t, prog.Body.Stmts, 1)

	st, ok := prog.Body.Stmts[0].(*ast.For)
	require.True(t, ok)
	assert.Equal(t, "item", st.Var)
	assert.Len(t, st.Body.Stmts, 1)
	assert.Equal(t, 1, st.VarRange.Start.Line)
	assert.Equal(t, 3, st.SrcRange.End.Line)
}
