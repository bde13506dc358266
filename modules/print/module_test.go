package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

type widget struct{}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	e := engine.New(engine.Options{})
	e.RegisterModules(&Module{Out: &buf})

	_, err := e.Eval(context.Background(), scope.New(), "test.gs", `let x = 2
print("a", x, true)
print()
print([1, "b"])`)
	require.NoError(t, err)
	assert.Equal(t, "a 2 true\n\n[1, \"b\"]\n", buf.String())
}

func TestDebugAndTypeOf(t *testing.T) {
	e := engine.New(engine.Options{})
	e.RegisterModules(&Module{})

	tests := []struct {
		src  string
		want string
	}{
		{`debug("x")`, `"x"`},
		{`debug(1.5)`, `1.5`},
		{`debug(null)`, `null`},
		{`type_of("x")`, `string`},
		{`type_of(true)`, `bool`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := e.Eval(context.Background(), scope.New(), "test.gs", tt.src)
			require.NoError(t, err)
			s, err := dynamic.As[string](out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestRender_HostObject(t *testing.T) {
	dynamic.RegisterType[widget]("widget")
	v := dynamic.MustFrom(&widget{})
	assert.Equal(t, "<widget>", Render(v))

	obj := dynamic.Wrap(cty.ObjectVal(map[string]cty.Value{"w": v.Cty()}))
	assert.Equal(t, "<object>", Render(obj))
}
