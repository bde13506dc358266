package registry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
)

func slots(vals ...any) []*dynamic.Value {
	out := make([]*dynamic.Value, len(vals))
	for i, v := range vals {
		d := dynamic.MustFrom(v)
		out[i] = &d
	}
	return out
}

func newTestRegistry() *Registry {
	r := New()
	r.RegisterFn("describe", func(n int) string { return "number" })
	r.RegisterFn("describe", func(s string) string { return "string" })
	r.RegisterFn("describe", func(v dynamic.Value) string { return "any" })
	r.RegisterFn("concat", func(a, b string) string { return a + b })
	r.RegisterMethod("bump", func(n *int) { *n++ })
	return r
}

func TestResolve(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name string
		fn   string
		args []cty.Type
		want string
	}{
		{"exact number", "describe", []cty.Type{cty.Number}, "describe(number) -> string"},
		{"exact string", "describe", []cty.Type{cty.String}, "describe(string) -> string"},
		{"dynamic fallback", "describe", []cty.Type{cty.Bool}, "describe(any) -> string"},
		{"conversion", "concat", []cty.Type{cty.Number, cty.String}, "concat(string, string) -> string"},
		{"method", "bump", []cty.Type{cty.Number}, "bump(&mut number) -> any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.Resolve(tt.fn, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Signature(tt.fn))
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Resolve("concat", []cty.Type{cty.String})
	require.ErrorIs(t, err, ErrFunctionNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"concat(string, string) -> string"}, nf.Candidates)
	assert.Contains(t, err.Error(), "concat(string)")

	_, err = r.Resolve("missing", nil)
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestRegisterEntry_ReplacesSameFingerprint(t *testing.T) {
	r := New()
	r.RegisterFn("greet", func(s string) string { return "hello " + s })
	r.RegisterFn("greet", func(s string) string { return "hi " + s })
	require.Len(t, r.Overloads("greet"), 1)

	out, err := r.Call(nil, "greet", slots("bob"))
	require.NoError(t, err)
	got, _ := dynamic.Downcast[string](out)
	assert.Equal(t, "hi bob", got)
}

func TestRegister_PanicsOnBadSignature(t *testing.T) {
	r := New()
	assert.Panics(t, func() { r.RegisterFn("bad", func(xs ...int) {}) })
	assert.Panics(t, func() { r.RegisterMethod("bad", func(n int) {}) })
	assert.Panics(t, func() { r.RegisterFn("", func() {}) })
}

func TestCall(t *testing.T) {
	r := newTestRegistry()

	t.Run("converts arguments", func(t *testing.T) {
		out, err := r.Call(nil, "concat", slots(1, "x"))
		require.NoError(t, err)
		got, _ := dynamic.Downcast[string](out)
		assert.Equal(t, "1x", got)
	})

	t.Run("method mutates slot", func(t *testing.T) {
		args := slots(41)
		_, err := r.Call(nil, "bump", args)
		require.NoError(t, err)
		got, _ := dynamic.Downcast[int](*args[0])
		assert.Equal(t, 42, got)
	})

	t.Run("by value takes slot", func(t *testing.T) {
		args := slots("a", "b")
		_, err := r.Call(nil, "concat", args)
		require.NoError(t, err)
		assert.True(t, args[0].IsUnit())
		assert.True(t, args[1].IsUnit())
	})

	t.Run("cast failure becomes CallError", func(t *testing.T) {
		r := New()
		r.RegisterFn("half", func(n int) int { return n / 2 })
		_, err := r.Call(nil, "half", []*dynamic.Value{ptr(dynamic.Unit())})
		var ce *CallError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "half", ce.Name)
		var cast *bridge.CastError
		assert.ErrorAs(t, err, &cast)
	})

	t.Run("host error passes through", func(t *testing.T) {
		sentinel := errors.New("nope")
		r := New()
		r.RegisterFn("fail", func() error { return sentinel })
		_, err := r.Call(nil, "fail", nil)
		assert.Same(t, sentinel, err)
	})
}

func ptr(v dynamic.Value) *dynamic.Value { return &v }

func TestHCLFunctions(t *testing.T) {
	r := newTestRegistry()
	var called []string
	funcs := r.HCLFunctions(func(name string) *bridge.CallContext {
		called = append(called, name)
		return bridge.NewCallContext(context.Background(), name, hcl.Range{}, nil)
	})
	require.Contains(t, funcs, "concat")

	expr, diags := hclsyntax.ParseExpression([]byte(`concat(describe(1), describe(true))`), "test.gs", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	val, diags := expr.Value(&hcl.EvalContext{Functions: funcs})
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, cty.StringVal("numberany"), val)
	assert.ElementsMatch(t, []string{"describe", "describe", "concat"}, called)
}

func TestHCLFunctions_ErrorReachable(t *testing.T) {
	sentinel := errors.New("host exploded")
	r := New()
	r.RegisterFn("boom", func() (int, error) { return 0, sentinel })
	funcs := r.HCLFunctions(func(name string) *bridge.CallContext { return nil })

	expr, _ := hclsyntax.ParseExpression([]byte(`boom()`), "test.gs", hcl.InitialPos)
	_, diags := expr.Value(&hcl.EvalContext{Functions: funcs})
	require.True(t, diags.HasErrors())

	extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](diags[0])
	require.True(t, ok)
	assert.ErrorIs(t, extra.FunctionCallError(), sentinel)
}

func TestValidateRegistry(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	r := newTestRegistry()
	require.NoError(t, r.ValidateRegistry(ctx))
	assert.Contains(t, buf.String(), "type 'any'")
	assert.Contains(t, buf.String(), "describe(any) -> string")

	r.RegisterFn("not valid", func() {})
	r.RegisterFn("wasm::add", func(a, b int) int { return a + b })
	err := r.ValidateRegistry(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function 'not valid'")
	assert.NotContains(t, err.Error(), "wasm::add")
}

func TestNames(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, []string{"bump", "concat", "describe"}, r.Names())
	assert.True(t, r.Has("bump"))
	assert.False(t, r.Has("nope"))
}

func TestCall_FailedConversionLeavesReceiver(t *testing.T) {
	r := New()
	r.RegisterMethod("append_n", func(s *string, n int) { *s += strings.Repeat("x", n) })

	in := slots(5, "notanumber")
	_, err := r.Call(nil, "append_n", in)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "argument #2")
	assert.True(t, in[0].Cty().RawEquals(cty.NumberIntVal(5)), "receiver changed to %#v", in[0].Cty())
}

func TestCall_FailedCastReleasesSharedReceiver(t *testing.T) {
	r := New()
	r.RegisterMethod("add", func(p *int, n int) { *p += n })

	shared := dynamic.MustFrom(1).Share()
	_, err := r.Call(nil, "add", []*dynamic.Value{&shared, slots(1.5)[0]})
	var ce *CallError
	require.ErrorAs(t, err, &ce)

	_, err = r.Call(nil, "add", []*dynamic.Value{&shared, slots(2)[0]})
	require.NoError(t, err)
	assert.True(t, shared.Equal(dynamic.MustFrom(3)))
	require.NoError(t, shared.Set(cty.NumberIntVal(5)))
}
