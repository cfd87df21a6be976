package sexpr

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFractionNormalization(t *testing.T) {
	v := Fraction(big.NewInt(6), big.NewInt(4))
	require.Equal(t, KindFraction, v.Kind)
	assert.Equal(t, "3/2", Print(v))

	assert.Equal(t, KindInteger, Fraction(big.NewInt(4), big.NewInt(2)).Kind, "denominator 1 collapses to an integer")
	assert.Equal(t, KindInteger, Fraction(big.NewInt(0), big.NewInt(5)).Kind, "zero numerator collapses to the integer 0")
	assert.Equal(t, "-1/2", Print(Fraction(big.NewInt(3), big.NewInt(-6))), "sign lives in the numerator")
}

func TestEqualIsStructural(t *testing.T) {
	a := List(Symbol("a"), IntegerFromInt64(1))
	b := List(Symbol("a"), IntegerFromInt64(1))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, List(Symbol("a"))))
	assert.False(t, Equal(True, False))
	assert.True(t, Equal(Vector([]Value{True}), Vector([]Value{True})))
}

func TestSliceProperAndImproper(t *testing.T) {
	elems, ok := List(IntegerFromInt64(1), IntegerFromInt64(2)).Slice()
	require.True(t, ok)
	assert.Len(t, elems, 2)

	_, ok = Cons(IntegerFromInt64(1), IntegerFromInt64(2)).Slice()
	assert.False(t, ok)
}

func TestPrintStringEscapes(t *testing.T) {
	assert.Equal(t, `"a~~b"`, Print(String("a~b")))
	assert.Equal(t, `"\n"`, Print(String("\n")))
	assert.Equal(t, `"\""`, Print(String(`"`)))
}

func TestPrintWholeRealKeepsPeriod(t *testing.T) {
	assert.Equal(t, "300.", Print(Real(300)))
}

func TestPrintDottedAndNestedPairs(t *testing.T) {
	assert.Equal(t, "(1 . 2)", Print(Cons(IntegerFromInt64(1), IntegerFromInt64(2))))
	assert.Equal(t, "(1 2 . 3)", Print(ImproperList(IntegerFromInt64(3), IntegerFromInt64(1), IntegerFromInt64(2))))
	assert.Equal(t, "(a (b))", Print(List(Symbol("a"), List(Symbol("b")))))
}
