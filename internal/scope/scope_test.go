package scope

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/zclconf/go-cty/cty"
)

func names(s *Scope) []string {
	var out []string
	for e := range s.IterRaw() {
		out = append(out, e.Name)
	}
	return out
}

func TestScope_PushAndShadow(t *testing.T) {
	s := New()
	assert.True(t, s.IsEmpty())

	s.Push("x", 1).Push("y", "a").Push("x", 2)
	assert.Equal(t, 3, s.Len())

	x, ok := GetValue[int](s, "x")
	require.True(t, ok)
	assert.Equal(t, 2, x)

	i, ok := s.Index("x")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = s.Index("missing")
	assert.False(t, ok)
	assert.False(t, s.Contains("missing"))
}

func TestScope_RewindRestoresShadowed(t *testing.T) {
	s := New()
	s.Push("x", 10)
	s.PushConstant("x", 20)

	x, _ := GetValue[int](s, "x")
	assert.Equal(t, 20, x)
	constant, found := s.IsConstant("x")
	assert.True(t, found)
	assert.True(t, constant)

	s.Rewind(1)
	x, _ = GetValue[int](s, "x")
	assert.Equal(t, 10, x)
	constant, _ = s.IsConstant("x")
	assert.False(t, constant)
}

func TestScope_RewindBeyondLenIsNoop(t *testing.T) {
	s := New().Push("a", 1).Push("b", 2)
	s.Rewind(5)
	assert.Equal(t, 2, s.Len())
	s.Rewind(-1)
	assert.True(t, s.IsEmpty())
}

func TestScope_SetValue(t *testing.T) {
	t.Run("replaces most recent binding", func(t *testing.T) {
		s := New().Push("x", 1).Push("x", 2)
		require.NoError(t, s.SetValue("x", 5))

		var got []int
		for e := range s.Iter() {
			n, ok := dynamic.Downcast[int](e.Value)
			require.True(t, ok)
			got = append(got, n)
		}
		assert.Equal(t, []int{1, 5}, got)
	})

	t.Run("pushes when absent", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SetValue("x", true))
		assert.Equal(t, 1, s.Len())
		constant, _ := s.IsConstant("x")
		assert.False(t, constant)
	})

	t.Run("refuses constants", func(t *testing.T) {
		s := New().PushConstant("pi", 3.14)
		err := s.SetValue("pi", 3)
		var cerr *ConstantError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "pi", cerr.Name)

		pi, _ := GetValue[float64](s, "pi")
		assert.Equal(t, 3.14, pi)
		assert.Panics(t, func() { s.MustSetValue("pi", 1) })
	})
}

func TestScope_GetMut(t *testing.T) {
	s := New().Push("x", 1).PushConstant("c", 2)

	slot := s.GetMut("x")
	require.NotNil(t, slot)
	require.NoError(t, slot.Set(cty.NumberIntVal(42)))
	x, _ := GetValue[int](s, "x")
	assert.Equal(t, 42, x)

	assert.Nil(t, s.GetMut("c"))
	assert.Nil(t, s.GetMut("missing"))
	assert.Nil(t, s.GetMutByIndex(1))
}

func TestScope_Aliases(t *testing.T) {
	s := New().Push("x", 1)
	s.AddAlias(0, "y").AddAlias(0, "y").AddAlias(0, "z")
	assert.Equal(t, []string{"y", "z"}, s.Aliases(0))
	assert.Panics(t, func() { s.AddAlias(3, "w") })
}

func TestScope_CloneVisible(t *testing.T) {
	s := New().
		Push("a", 1).
		Push("b", 2).
		Push("a", 3).
		Push("c", 4).
		Push("b", 5)
	s.AddAlias(2, "alpha")

	clone := s.CloneVisible()
	assert.Equal(t, []string{"a", "c", "b"}, names(clone))
	assert.Equal(t, []string{"alpha"}, clone.Aliases(0))

	a, _ := GetValue[int](clone, "a")
	b, _ := GetValue[int](clone, "b")
	assert.Equal(t, 3, a)
	assert.Equal(t, 5, b)

	again := clone.CloneVisible()
	assert.Equal(t, names(clone), names(again))

	// The clone is independent of the source.
	clone.Push("d", 6)
	assert.False(t, s.Contains("d"))
}

func TestScope_CloneVisibleKeepsSharing(t *testing.T) {
	shared := dynamic.MustFrom(1).Share()
	s := New().PushDynamic("x", shared)

	clone := s.CloneVisible()
	require.NoError(t, s.GetMut("x").Set(cty.NumberIntVal(7)))

	x, _ := GetValue[int](clone, "x")
	assert.Equal(t, 7, x)
}

func TestScope_IterVsIterRaw(t *testing.T) {
	s := New().PushDynamic("x", dynamic.MustFrom("v").Share()).PushConstant("k", 1)

	var raw, flat []bool
	for e := range s.IterRaw() {
		raw = append(raw, e.Value.IsShared())
	}
	for e := range s.Iter() {
		flat = append(flat, e.Value.IsShared())
	}
	assert.Equal(t, []bool{true, false}, raw)
	assert.Equal(t, []bool{false, false}, flat)

	var constants []bool
	for e := range s.Iter() {
		constants = append(constants, e.Constant)
	}
	assert.Equal(t, []bool{false, true}, constants)
}

func TestScope_IterStopsEarly(t *testing.T) {
	s := New().Push("a", 1).Push("b", 2).Push("c", 3)
	var seen []string
	for e := range s.Iter() {
		seen = append(seen, e.Name)
		if e.Name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestScope_Visible(t *testing.T) {
	s := New().Push("a", 1).Push("b", 2).Push("a", 3)
	var got []string
	for e := range s.Visible() {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestScope_Extend(t *testing.T) {
	a := New().Push("x", 1)
	b := New().Push("y", 2).AddAlias(0, "why")
	a.Extend(b)
	assert.Equal(t, []string{"x", "y"}, names(a))
	assert.Equal(t, []string{"why"}, a.Aliases(1))
	assert.True(t, slices.Equal(b.Aliases(0), a.Aliases(1)))
}

func TestLookup(t *testing.T) {
	s := New().Push("n", 3).Push("s", "text")

	n, err := Lookup[int](s, "n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Lookup[int](s, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Lookup[int](s, "s")
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "s", mismatch.Name)
	assert.Equal(t, cty.String, mismatch.Got)

	_, ok := GetValue[string](s, "n")
	assert.False(t, ok)
}

func TestLookup_FlattensShared(t *testing.T) {
	s := New().PushDynamic("m", dynamic.MustFrom(dynamic.Map{"k": cty.StringVal("v")}).Share())
	m, err := Lookup[dynamic.Map](s, "m")
	require.NoError(t, err)
	if diff := cmp.Diff(dynamic.Map{"k": cty.StringVal("v")}, m, cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) })); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}
}
