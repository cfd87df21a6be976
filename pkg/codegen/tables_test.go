package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-hmny/schemec/pkg/runtime"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

func TestConstantsTableSeedsFixedSingletons(t *testing.T) {
	tbl := NewConstantsTable()

	off, ok := tbl.Offset(sexpr.Void)
	require.True(t, ok)
	assert.Equal(t, 0, off)

	for _, v := range []sexpr.Value{sexpr.Nil, sexpr.False, sexpr.True, sexpr.Character(0x00)} {
		_, ok := tbl.Offset(v)
		assert.True(t, ok, "missing seeded singleton %s", sexpr.Print(v))
	}
}

func TestConstantsTableDeduplicates(t *testing.T) {
	tbl := NewConstantsTable()
	first := tbl.Add(sexpr.String("hi"))
	second := tbl.Add(sexpr.String("hi"))
	assert.Equal(t, first, second)
}

func TestConstantsTableSubObjectsPrecedeComposite(t *testing.T) {
	tbl := NewConstantsTable()
	pair := sexpr.Cons(sexpr.IntegerFromInt64(1), sexpr.Symbol("x"))
	pairOff := tbl.Add(pair)

	intOff, ok := tbl.Offset(sexpr.IntegerFromInt64(1))
	require.True(t, ok)
	assert.Less(t, intOff, pairOff)

	symOff, ok := tbl.Offset(sexpr.Symbol("x"))
	require.True(t, ok)
	assert.Less(t, symOff, pairOff)

	strOff, ok := tbl.Offset(sexpr.String("x"))
	require.True(t, ok)
	assert.Less(t, strOff, symOff, "a symbol's name string precedes the symbol itself")
}

func TestConstantsTableVectorElementsPrecedeVector(t *testing.T) {
	tbl := NewConstantsTable()
	vec := sexpr.Vector([]sexpr.Value{sexpr.IntegerFromInt64(7), sexpr.String("s")})
	vecOff := tbl.Add(vec)

	for _, e := range vec.Elements {
		off, ok := tbl.Offset(e)
		require.True(t, ok)
		assert.Less(t, off, vecOff)
	}
}

func TestFreeVarsTableIsPrimitiveSuperset(t *testing.T) {
	tbl := NewFreeVarsTable([]string{"my-global"})

	for _, name := range runtime.Names() {
		_, ok := tbl.Label(name)
		assert.True(t, ok, "primitive %q has no reserved slot", name)
	}

	_, ok := tbl.Label("my-global")
	assert.True(t, ok)
	assert.True(t, tbl.Referenced("my-global"))
	assert.False(t, tbl.Referenced("car"), "an untouched primitive is reserved but not referenced")
}

func TestFreeVarsRenderPointsSlotsAtUndefinedCells(t *testing.T) {
	consts := NewConstantsTable()
	consts.AddPrimitiveNames(runtime.Names())

	tbl := NewFreeVarsTable(nil)
	out := tbl.Render(consts)

	assert.Contains(t, out, "free_var_0:")
	assert.Contains(t, out, "free_var_0_undef")
	assert.Contains(t, out, "L_constants + ")
}
