package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/ast"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/scripterr"
	"github.com/vk/gridscript/internal/token"
)

func noop(Context, []ast.Expression) (dynamic.Value, error) {
	return dynamic.Unit(), nil
}

// walk replays a rule's parse callback the way the parser does, feeding the
// returned segment back as matched.
func walk(t *testing.T, rule *Rule) []string {
	t.Helper()
	matched := []string{rule.Key}
	for i := 0; i < 32; i++ {
		next, err := rule.Parse(matched, "")
		require.NoError(t, err)
		if next == "" {
			return matched
		}
		matched = append(matched, next)
	}
	t.Fatal("parse callback never completed")
	return nil
}

func TestRegister_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     []string
	}{
		{"expr and block", []string{"repeat", "$expr$", "$block$"}, []string{"repeat", "$expr$", "$block$"}},
		{"literals", []string{"exec", "$ident$", "=", "$expr$", "to", "$expr$"}, []string{"exec", "$ident$", "=", "$expr$", "to", "$expr$"}},
		{"trims and drops empty", []string{" swap ", "", "$ident$", "  ", "$ident$"}, []string{"swap", "$ident$", "$ident$"}},
		{"key only", []string{"halt"}, []string{"halt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(token.NewSymbols())
			require.NoError(t, r.Register(tt.segments, 0, noop))

			rule, ok := r.Lookup(tt.want[0])
			require.True(t, ok)
			assert.Equal(t, tt.want, rule.Segments)
			assert.Equal(t, tt.want, walk(t, rule))
		})
	}
}

func TestRegister_KeywordFirstRejected(t *testing.T) {
	symbols := token.NewSymbols()
	r := New(symbols)

	err := r.Register([]string{"if", "$expr$", "$block$"}, 0, noop)
	var pe *scripterr.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, scripterr.ImproperSymbol, pe.Type)
	assert.Equal(t, "Improper symbol for custom syntax at position #1: 'if'", pe.Error())

	_, ok := r.Lookup("if")
	assert.False(t, ok)
	assert.Empty(t, r.Keys())
}

func TestRegister_ImproperSymbols(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		message  string
	}{
		{"marker first", []string{"$expr$", "x"}, "Improper symbol for custom syntax at position #1: '$expr$'"},
		{"reserved first", []string{"fn", "$ident$"}, "Improper symbol for custom syntax at position #1: 'fn'"},
		{"operator first", []string{"+", "$expr$"}, "Improper symbol for custom syntax at position #1: '+'"},
		{"junk later", []string{"go_to", "$expr$", "@"}, "Improper symbol for custom syntax at position #3: '@'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(token.NewSymbols())
			err := r.Register(tt.segments, 0, noop)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &scripterr.ParseError{Type: scripterr.ImproperSymbol}))
			assert.EqualError(t, err, tt.message)
		})
	}
}

func TestRegister_FailureInstallsNothing(t *testing.T) {
	symbols := token.NewSymbols()
	r := New(symbols)

	err := r.Register([]string{"spin", "$expr$", "static", "@"}, 0, noop)
	require.Error(t, err)
	assert.False(t, symbols.IsCustom("spin"))
	assert.False(t, symbols.IsCustom("static"))
	_, ok := r.Lookup("spin")
	assert.False(t, ok)
}

func TestRegister_EmptyIsNoop(t *testing.T) {
	r := New(token.NewSymbols())
	require.NoError(t, r.Register(nil, 0, noop))
	require.NoError(t, r.Register([]string{"", "  "}, 0, noop))
	assert.Empty(t, r.Keys())
}

func TestRegister_CustomKeywords(t *testing.T) {
	symbols := token.NewSymbols()
	symbols.Disable("while")
	r := New(symbols)

	require.NoError(t, r.Register([]string{"loop_until", "$block$", "while", "$expr$", "static"}, 0, noop))

	assert.False(t, symbols.IsCustom("loop_until"), "key stays an identifier")
	assert.Equal(t, token.Ident, symbols.Lookup("loop_until"))
	assert.True(t, symbols.IsCustom("while"), "disabled literal")
	assert.True(t, symbols.IsCustom("static"), "reserved literal")
	assert.Equal(t, token.Custom, symbols.Lookup("static"))

	require.NoError(t, r.Register([]string{"each", "$ident$", "in", "$expr$", "$block$"}, 1, noop))
	assert.False(t, symbols.IsCustom("in"), "plain keyword literal stays a keyword")

	rule, ok := r.Lookup("each")
	require.True(t, ok)
	assert.Equal(t, 1, rule.ScopeDelta)
}

func TestRegister_DisabledKeyBecomesCustom(t *testing.T) {
	symbols := token.NewSymbols()
	symbols.Disable("halt")
	r := New(symbols)

	require.NoError(t, r.Register([]string{"halt"}, 0, noop))
	assert.True(t, symbols.IsCustom("halt"))
	_, ok := r.Lookup("halt")
	assert.True(t, ok)
}

func TestRegisterRaw(t *testing.T) {
	r := New(token.NewSymbols())
	r.RegisterRaw("pick", func(matched []string, lookAhead string) (string, error) {
		switch len(matched) {
		case 1:
			return "$ident$", nil
		case 2:
			if lookAhead == "," {
				return ",", nil
			}
			return "", nil
		default:
			return "$ident$", nil
		}
	}, 0, noop)

	rule, ok := r.Lookup("pick")
	require.True(t, ok)
	next, err := rule.Parse([]string{"pick", "a"}, ";")
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.False(t, r.Symbols().IsCustom("pick"))

	// Re-registering replaces.
	r.RegisterRaw("pick", rule.Parse, -1, noop)
	rule, _ = r.Lookup("pick")
	assert.Equal(t, -1, rule.ScopeDelta)
	assert.Equal(t, []string{"pick"}, r.Keys())
}
