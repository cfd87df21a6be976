package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/its-hmny/schemec/pkg/runtime"
)

func TestLookupKnownPrimitive(t *testing.T) {
	p, ok := runtime.Lookup("cons")
	assert.True(t, ok)
	assert.Equal(t, "prim_cons", p.Label)
	assert.Equal(t, 2, p.Arity.Fixed)
	assert.False(t, p.Arity.Variadic)
}

func TestLookupUnknownPrimitive(t *testing.T) {
	_, ok := runtime.Lookup("frobnicate")
	assert.False(t, ok)
}

func TestNamesMatchesTableLength(t *testing.T) {
	assert.Len(t, runtime.Names(), len(runtime.Primitives))
}

func TestRTTIStringNames(t *testing.T) {
	assert.Equal(t, "T_closure", runtime.TClosure.String())
	assert.Equal(t, "T_undefined", runtime.TUndefined.String())
}
