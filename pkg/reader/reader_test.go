package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-hmny/schemec/pkg/sexpr"
)

func parseOne(t *testing.T, src string) sexpr.Value {
	t.Helper()
	p := NewParser(strings.NewReader(src))
	forms, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func TestReadAtoms(t *testing.T) {
	assert.True(t, sexpr.Equal(parseOne(t, "#t"), sexpr.True))
	assert.True(t, sexpr.Equal(parseOne(t, "#f"), sexpr.False))
	assert.True(t, sexpr.Equal(parseOne(t, "42"), sexpr.IntegerFromInt64(42)))
	assert.True(t, sexpr.Equal(parseOne(t, "-7"), sexpr.IntegerFromInt64(-7)))
	assert.True(t, sexpr.Equal(parseOne(t, "foo"), sexpr.Symbol("foo")))
	assert.True(t, sexpr.Equal(parseOne(t, "+"), sexpr.Symbol("+")))
	assert.True(t, sexpr.Equal(parseOne(t, `"hi\n"`), sexpr.String("hi\n")))
	assert.True(t, sexpr.Equal(parseOne(t, `#\a`), sexpr.Character('a')))
	assert.True(t, sexpr.Equal(parseOne(t, `#\space`), sexpr.Character(' ')))
}

func TestReadList(t *testing.T) {
	got := parseOne(t, "(+ 1 2)")
	want := sexpr.List(sexpr.Symbol("+"), sexpr.IntegerFromInt64(1), sexpr.IntegerFromInt64(2))
	assert.True(t, sexpr.Equal(got, want))
}

func TestReadDottedPair(t *testing.T) {
	got := parseOne(t, "(1 . 2)")
	want := sexpr.Cons(sexpr.IntegerFromInt64(1), sexpr.IntegerFromInt64(2))
	assert.True(t, sexpr.Equal(got, want))
}

func TestReadQuoteShorthand(t *testing.T) {
	got := parseOne(t, "'(a b)")
	want := sexpr.List(sexpr.Symbol("quote"), sexpr.List(sexpr.Symbol("a"), sexpr.Symbol("b")))
	assert.True(t, sexpr.Equal(got, want))

	got = parseOne(t, "`(a ,b ,@c)")
	want = sexpr.List(sexpr.Symbol("quasiquote"), sexpr.List(
		sexpr.Symbol("a"),
		sexpr.List(sexpr.Symbol("unquote"), sexpr.Symbol("b")),
		sexpr.List(sexpr.Symbol("unquote-splicing"), sexpr.Symbol("c")),
	))
	assert.True(t, sexpr.Equal(got, want))
}

func TestReadVector(t *testing.T) {
	got := parseOne(t, "#(1 2 3)")
	want := sexpr.Vector([]sexpr.Value{
		sexpr.IntegerFromInt64(1), sexpr.IntegerFromInt64(2), sexpr.IntegerFromInt64(3),
	})
	assert.True(t, sexpr.Equal(got, want))
}

func TestReadFraction(t *testing.T) {
	got := parseOne(t, "6/4")
	assert.Equal(t, "3/2", sexpr.Print(got))
}

func TestReadVoidAndCaseInsensitiveBooleans(t *testing.T) {
	assert.True(t, sexpr.Equal(parseOne(t, "#void"), sexpr.Void))
	assert.True(t, sexpr.Equal(parseOne(t, "#VOID"), sexpr.Void))
	assert.True(t, sexpr.Equal(parseOne(t, "#T"), sexpr.True))
	assert.True(t, sexpr.Equal(parseOne(t, "#F"), sexpr.False))
}

func TestReadRealShapes(t *testing.T) {
	for _, src := range []string{"3.5", ".5", "3e2", "3*10**2", "3*10^2"} {
		v := parseOne(t, src)
		require.Equal(t, sexpr.KindReal, v.Kind, "source %q", src)
	}
	assert.Equal(t, float64(300), parseOne(t, "3e2").Real)
	assert.Equal(t, float64(300), parseOne(t, "3*10**2").Real)
}

func TestReadStringEscapes(t *testing.T) {
	assert.True(t, sexpr.Equal(parseOne(t, `"a~~b"`), sexpr.String("a~b")))
	assert.True(t, sexpr.Equal(parseOne(t, `"\x41;"`), sexpr.String("A")))
}

func TestReadStringInterpolationDesugarsToStringAppend(t *testing.T) {
	got := parseOne(t, `"hello ~{(+ 1 2)} world"`)
	want := sexpr.List(
		sexpr.Symbol("string-append"),
		sexpr.String("hello "),
		sexpr.List(sexpr.Symbol("format"), sexpr.String("~a"),
			sexpr.List(sexpr.Symbol("+"), sexpr.IntegerFromInt64(1), sexpr.IntegerFromInt64(2))),
		sexpr.String(" world"),
	)
	assert.True(t, sexpr.Equal(got, want))
}

func TestStripLineAndPairedComments(t *testing.T) {
	src := "; leading comment\n(+ 1 { nested { block } comment } 2)"
	forms := mustParseAll(t, src)
	require.Len(t, forms, 1)
	assert.Equal(t, "(+ 1 2)", sexpr.Print(forms[0]))
}

func TestDatumCommentIsDropped(t *testing.T) {
	forms := mustParseAll(t, "(a #;(b c) d)")
	require.Len(t, forms, 1)
	assert.Equal(t, "(a d)", sexpr.Print(forms[0]))
}

func TestRoundTripPrintThenRead(t *testing.T) {
	for _, src := range []string{"42", "(1 . 2)", "#(1 #t \"x\")", "'(a b c)"} {
		v := parseOne(t, src)
		reprinted := parseOne(t, sexpr.Print(v))
		assert.True(t, sexpr.Equal(v, reprinted), "round trip failed for %q", src)
	}
}

func mustParseAll(t *testing.T, src string) []sexpr.Value {
	t.Helper()
	p := NewParser(strings.NewReader(src))
	forms, err := p.Parse()
	require.NoError(t, err)
	return forms
}
