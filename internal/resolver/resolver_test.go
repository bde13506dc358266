package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/engine"
	"github.com/vk/gridscript/internal/scope"
)

func writeModules(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func eval(t *testing.T, r *FileResolver, src string) (dynamic.Value, error) {
	t.Helper()
	e := engine.New(engine.Options{Resolver: r})
	return e.Eval(context.Background(), scope.New(), "main.gs", src)
}

func TestResolve_Exports(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"math.gs":      "let answer = 40\nlet hidden = 1\nexport answer",
		"lib/greet.gs": "let name = \"world\"\nexport name as who",
	})
	r := New(dir)

	out, err := eval(t, r, "import \"math\" as m\nimport \"lib/greet\" as g\n\"${g.who}:${m.answer + 2}\"")
	require.NoError(t, err)
	s, err := dynamic.As[string](out)
	require.NoError(t, err)
	assert.Equal(t, "world:42", s)

	_, err = eval(t, r, "import \"math\" as m\nm.hidden")
	require.Error(t, err, "unexported bindings stay private")
}

func TestResolve_Cache(t *testing.T) {
	dir := writeModules(t, map[string]string{"once.gs": "let v = 1\nexport v"})
	r := New(dir)

	_, err := eval(t, r, `import "once" as o`)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "once.gs")))

	out, err := eval(t, r, "import \"once.gs\" as o\no.v")
	require.NoError(t, err)
	assert.True(t, out.Equal(dynamic.MustFrom(1)))
}

func TestResolve_Errors(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"a.gs":      "import \"b\" as b",
		"b.gs":      "import \"a\" as a",
		"broken.gs": "let = 1",
	})
	r := New(dir)

	t.Run("circular", func(t *testing.T) {
		_, err := eval(t, r, `import "a" as a`)
		assert.ErrorIs(t, err, ErrCircularImport)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := eval(t, r, `import "nope" as n`)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("outside base dir", func(t *testing.T) {
		_, err := eval(t, r, `import "../etc/passwd" as p`)
		assert.ErrorContains(t, err, "must be relative")
	})

	t.Run("compile error", func(t *testing.T) {
		_, err := eval(t, r, `import "broken" as b`)
		assert.ErrorContains(t, err, "failed to compile script file")
	})
}
