package loops

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/scope"
	"github.com/vk/gridscript/internal/scripterr"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(engine.Options{})
	e.RegisterModules(&Module{})
	require.NoError(t, e.RegisterSyntaxModules(&Module{}))
	return e
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"repeat", "let n = 0\nrepeat 4 { n = n + 2 }\nn", 8.0},
		{"repeat zero times", "let n = 1\nrepeat 0 { n = 5 }\nn", 1.0},
		{"repeat negative", "let n = 1\nrepeat -3 { n = 5 }\nn", 1.0},
		{"repeat count expression", "let k = 2\nlet n = 0\nrepeat k * 3 { n = n + 1 }\nn", 6.0},
		{"repeat break", "let n = 0\nrepeat 10 {\n  n = n + 1\n  if n == 3 { break }\n}\nn", 3.0},
		{"repeat continue", "let i = 0\nlet odd = 0\nrepeat 5 {\n  i = i + 1\n  if i % 2 == 0 { continue }\n  odd = odd + 1\n}\nodd", 3.0},
		{"repeat block scope", "let n = 0\nrepeat 2 { let t = 1\nn = n + t }\nn", 2.0},
		{"unless false", "let x = 0\nunless x > 1 { x = 9 }\nx", 9.0},
		{"unless true", "let x = 5\nunless x > 1 { x = 9 }\nx", 5.0},
		{"unless result", "let r = unless false { 42 }\nr", 42.0},
		{"swap", "let a = 1\nlet b = \"two\"\nswap a b\n[a, b]", []any{"two", 1.0}},
		{"return inside repeat", "repeat 3 { return 7 }\n1", 7.0},
	}
	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Eval(context.Background(), scope.New(), "test.gs", tt.src)
			require.NoError(t, err)
			got, err := dynamic.ToInterface(out.Cty())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoops_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"repeat non-number", `repeat "x" { }`, "repeat count must be a whole number"},
		{"unless non-bool", "unless 1 { }", "unless condition must be a bool"},
		{"swap constant", "const a = 1\nlet b = 2\nswap a b", `variable "a" is constant`},
		{"swap unknown", "let a = 1\nswap a zz", "variable not found"},
	}
	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Eval(context.Background(), scope.New(), "test.gs", tt.src)
			var ee *scripterr.EvalError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, scripterr.KindCustomSyntax, ee.Kind)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestRegisterSyntax_Keys(t *testing.T) {
	e := newEngine(t)
	for _, kw := range []string{"repeat", "unless", "swap"} {
		_, ok := e.Syntax().Lookup(kw)
		assert.True(t, ok, kw)
		assert.False(t, e.Symbols().IsCustom(kw), kw)
	}

	_, err := e.Compile("test.gs", []byte("repeat 3"))
	assert.ErrorIs(t, err, &scripterr.ParseError{Type: scripterr.UnexpectedEOF})
}

func TestRange_ForLoops(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"two ranges", "let sum = 0\nfor a in range(1, 6) { sum = sum + a }\nfor b in range(1, 6, 3) { sum = sum + b }\nsum", 20.0},
		{"step", "let sum = 0\nfor i in range(1, 10, 2) { sum = sum + i }\nsum", 25.0},
		{"positive step past end", "let sum = 0\nfor i in range(10, 1, 2) { sum = sum + i }\nsum", 0.0},
		{"negative step past end", "let sum = 0\nfor i in range(1, 10, -2) { sum = sum + i }\nsum", 0.0},
		{"counting down", "let sum = 0\nfor i in range(10, 1, -2) { sum = sum + i }\nsum", 30.0},
		{"empty", "let n = 0\nfor i in range(3, 3) { n = n + 1 }\nn", 0.0},
		{"break", "let last = 0\nfor i in range(0, 100) {\n  if i == 7 { break }\n  last = i\n}\nlast", 6.0},
		{"range in a variable", "let r = range(0, 4)\nlet n = 0\nfor i in r { n = n + i }\nfor i in r { n = n + i }\nn", 12.0},
	}
	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Eval(context.Background(), scope.New(), "test.gs", tt.src)
			require.NoError(t, err)
			got, err := dynamic.ToInterface(out.Cty())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRange_Overflow(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"max start and step", "range(9223372036854775807, 0, 9223372036854775807)", 0},
		{"min start and step", "range(-9223372036854775808, 0, -9223372036854775808)", 0},
		{"step past max", "range(9223372036854775806, 9223372036854775807, 5)", 1},
		{"step past min", "range(-9223372036854775807, -9223372036854775808, -5)", 1},
		{"up to max", "range(9223372036854775805, 9223372036854775807)", 2},
		{"huge step from min", "range(-9223372036854775808, 9223372036854775807, 9223372036854775807)", 3},
	}
	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "let n = 0\nfor i in " + tt.src + " { n = n + 1 }\nn"
			out, err := e.Eval(context.Background(), scope.New(), "test.gs", src)
			require.NoError(t, err)
			n, err := dynamic.As[int](out)
			require.NoError(t, err)
			assert.Equal(t, tt.count, n)
		})
	}
}

func TestRange_All(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want []int64
	}{
		{"up", Range{From: 0, To: 5, Step: 2}, []int64{0, 2, 4}},
		{"down", Range{From: 3, To: 0, Step: -1}, []int64{3, 2, 1}},
		{"wrong direction", Range{From: 0, To: 5, Step: -1}, nil},
		{"zero step", Range{From: 0, To: 5}, nil},
		{"stops before wrapping", Range{From: math.MaxInt64 - 1, To: math.MaxInt64, Step: 3}, []int64{math.MaxInt64 - 1}},
		{"stops before wrapping down", Range{From: math.MinInt64 + 1, To: math.MinInt64, Step: -3}, []int64{math.MinInt64 + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(tt.r.All()))
		})
	}
}

func TestRange_Errors(t *testing.T) {
	_, err := NewRangeStep(1, 5, 0)
	require.EqualError(t, err, "range step cannot be zero")

	e := newEngine(t)
	_, err = e.Eval(context.Background(), scope.New(), "test.gs", "for i in range(1, 5, 0) { }")
	var ee *scripterr.EvalError
	require.ErrorAs(t, err, &ee)
	assert.ErrorContains(t, err, "range step cannot be zero")

	_, err = e.Eval(context.Background(), scope.New(), "test.gs", "for i in range(1, 2.5) { }")
	assert.Error(t, err)
}

func TestRange_Value(t *testing.T) {
	out, err := newEngine(t).Eval(context.Background(), scope.New(), "test.gs", "range(0, 10, 5)")
	require.NoError(t, err)
	assert.True(t, out.Cty().Type().Equals(RangeType))

	r, err := dynamic.As[*Range](out)
	require.NoError(t, err)
	assert.Equal(t, Range{From: 0, To: 10, Step: 5}, *r)
}
