package analyzer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-hmny/schemec/pkg/analyzer"
	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/reader"
)

func parseAndAnalyze(t *testing.T, src string) *ast.Node {
	t.Helper()
	p := reader.NewParser(strings.NewReader(src))
	forms, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, forms, 1)

	n, err := ast.Parse(forms[0])
	require.NoError(t, err)

	require.NoError(t, analyzer.Run([]*ast.Node{n}))
	return n
}

func TestPass1AddressesParamAndFree(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda (x) (f x))")
	require.Equal(t, ast.KindLambda, n.Kind)

	applic := n.Body
	require.Equal(t, ast.KindApplic, applic.Kind)
	assert.Equal(t, ast.AddrFree, applic.Proc.Address.Kind)
	require.Len(t, applic.Args, 1)
	assert.Equal(t, ast.AddrParam, applic.Args[0].Address.Kind)
	assert.Equal(t, 0, applic.Args[0].Address.Param)
}

func TestPass1AddressesBoundInNestedLambda(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda (x) (lambda (y) x))")
	inner := n.Body
	require.Equal(t, ast.KindLambda, inner.Kind)
	ref := inner.Body
	require.Equal(t, ast.KindVarGet, ref.Kind)
	assert.Equal(t, ast.AddrBound, ref.Address.Kind)
	assert.Equal(t, 0, ref.Address.Major)
	assert.Equal(t, 0, ref.Address.Minor)
}

func TestPass1InnerShadowsOuterParam(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda (x) (lambda (x) x))")
	inner := n.Body
	ref := inner.Body
	require.Equal(t, ast.KindVarGet, ref.Kind)
	assert.Equal(t, ast.AddrParam, ref.Address.Kind)
	assert.Equal(t, 0, ref.Address.Param)
}

func TestPass2TailPositions(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda () (if (f) (g) (h)))")
	iff := n.Body
	require.Equal(t, ast.KindIf, iff.Kind)

	assert.Equal(t, ast.NonTail, iff.Test.Tail, "test of an if is never tail")
	assert.Equal(t, ast.Tail, iff.Then.Tail)
	assert.Equal(t, ast.Tail, iff.Else.Tail)
}

func TestPass2SetValueNeverTail(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda () (set! x (f)) (g))")
	body := n.Body
	require.Equal(t, ast.KindSeq, body.Kind)
	require.Len(t, body.Exprs, 2)

	setNode := body.Exprs[0]
	require.Equal(t, ast.KindVarSet, setNode.Kind)
	assert.Equal(t, ast.NonTail, setNode.Value.Tail)

	last := body.Exprs[1]
	require.Equal(t, ast.KindApplic, last.Kind)
	assert.Equal(t, ast.Tail, last.Tail)
}

func TestPass3BoxesParamWrittenDirectlyAndReadByClosure(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda (x) (set! x 1) (lambda () x))")

	require.Equal(t, ast.KindSeq, n.Body.Kind)
	prologue := n.Body.Exprs[0]
	require.Equal(t, ast.KindVarSet, prologue.Kind, "boxing prologue keeps the VarSet(x, Box x) shape")
	assert.Equal(t, ast.AddrParam, prologue.Address.Kind)
	require.Equal(t, ast.KindBox, prologue.Value.Kind)

	directSet := n.Body.Exprs[1]
	require.Equal(t, ast.KindBoxSet, directSet.Kind, "the original write of x must become a BoxSet")

	closure := n.Body.Exprs[2]
	require.Equal(t, ast.KindLambda, closure.Kind)
	assert.Equal(t, ast.KindBoxGet, closure.Body.Kind, "the read inside the nested closure must become a BoxGet")
}

func TestPass3DoesNotBoxParamOnlyAccessedDirectly(t *testing.T) {
	n := parseAndAnalyze(t, "(lambda (x) (set! x (+ x 1)) x)")
	require.Equal(t, ast.KindSeq, n.Body.Kind)
	for _, e := range n.Body.Exprs {
		assert.NotEqual(t, ast.KindBox, e.Kind)
		assert.NotEqual(t, ast.KindBoxSet, e.Kind)
	}
}

func TestPass3DoesNotBoxWhenBothAccessesShareTheSameClosure(t *testing.T) {
	// (let ((x 0)) (lambda () (set! x (+ x 1)) x)): both the read and the
	// write of x live inside the very same nested closure, so they already
	// share one captured rib; no box indirection is required.
	n := parseAndAnalyze(t, "((lambda (x) (lambda () (set! x (+ x 1)) x)) 0)")
	require.Equal(t, ast.KindApplic, n.Kind)
	outer := n.Proc
	require.Equal(t, ast.KindLambda, outer.Kind)
	closure := outer.Body
	require.Equal(t, ast.KindLambda, closure.Kind)

	require.Equal(t, ast.KindSeq, closure.Body.Kind)
	for _, e := range closure.Body.Exprs {
		assert.NotEqual(t, ast.KindBoxSet, e.Kind)
	}
	assert.Equal(t, ast.KindVarGet, closure.Body.Exprs[1].Kind)
}

func TestPass3NestedLambdaShadowingParamIsUntouched(t *testing.T) {
	// Outer x is written directly (Param) and read from a capturing closure
	// (Bound), so it gets boxed; a second nested lambda re-declares its own
	// x and must be left completely untouched by that rewrite.
	n := parseAndAnalyze(t, "(lambda (x) (set! x 1) (lambda () x) (lambda (x) x))")
	require.Equal(t, ast.KindSeq, n.Body.Kind)
	require.Len(t, n.Body.Exprs, 4)

	capturing := n.Body.Exprs[2]
	require.Equal(t, ast.KindLambda, capturing.Kind)
	assert.Equal(t, ast.KindBoxGet, capturing.Body.Kind, "the capturing closure's read of outer x becomes a BoxGet")

	shadowing := n.Body.Exprs[3]
	require.Equal(t, ast.KindLambda, shadowing.Kind)
	assert.Equal(t, ast.KindVarGet, shadowing.Body.Kind, "shadowed parameter reference is left as a plain VarGet")
	assert.Equal(t, ast.AddrParam, shadowing.Body.Address.Kind)
}
