package codegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-hmny/schemec/pkg/analyzer"
	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/codegen"
	"github.com/its-hmny/schemec/pkg/reader"
)

func compile(t *testing.T, src string) []*ast.Node {
	t.Helper()
	p := reader.NewParser(strings.NewReader(src))
	forms, err := p.Parse()
	require.NoError(t, err)
	program, err := ast.ParseProgram(forms)
	require.NoError(t, err)
	require.NoError(t, analyzer.Run(program))
	return program
}

func TestGenerateConstantAddition(t *testing.T) {
	program := compile(t, "(display (+ 2 3))")
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Contains(t, out, "L_constants:")
	assert.Contains(t, out, "section .data")
	assert.Contains(t, out, "bind_primitive")
	assert.Contains(t, out, "call exit")
}

func TestGenerateEmitsOneBindPerReferencedPrimitiveOnly(t *testing.T) {
	program := compile(t, "(display (+ 2 3))")
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "call bind_primitive"))
}

func TestGenerateFactorialUsesTailAndNonTailApplic(t *testing.T) {
	program := compile(t, `
		(define (fact n) (if (zero? n) 1 (* n (fact (- n 1)))))
		(display (fact 10))
	`)
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Contains(t, out, "L_error_incorrect_arity_simple")
	assert.Contains(t, out, "L_error_non_closure")
	assert.Contains(t, out, "AND_KILL_FRAME")
	assert.Contains(t, out, "L_tail_copy") // (* n ...) is in tail position
	assert.Contains(t, out, "call rbx")    // (zero? n), (fact ...) and (- n 1) are not
}

func TestGenerateTailLoopUsesFrameRecycling(t *testing.T) {
	program := compile(t, `
		(define (loop n) (if (zero? n) 'done (loop (- n 1))))
		(display (loop 1000000))
	`)
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Contains(t, out, "L_tail_copy")
	assert.Contains(t, out, "call rbx") // the non-tail (- n 1) and (zero? n) calls still use call
}

func TestGenerateClosureOverMutatedLetBinding(t *testing.T) {
	program := compile(t, `
		(define (mk)
		  (let ((x 0))
		    (lambda () (set! x (+ x 1)) x)))
	`)
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)
	assert.Contains(t, out, "L_lambda_body")
}

func TestGenerateOptLambdaNormalizesArity(t *testing.T) {
	program := compile(t, `
		(define f (lambda (x . rest) rest))
		(display (f 1 2 3))
	`)
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Contains(t, out, "L_opt_fold_loop")
	assert.Contains(t, out, "L_opt_too_few")
	assert.Contains(t, out, "L_error_incorrect_arity_opt")
}

func TestGenerateConstantsIncludePrimitiveNameStrings(t *testing.T) {
	program := compile(t, "(display 1)")
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	// "display" rendered as a string constant's raw bytes.
	assert.Contains(t, out, "100, 105, 115, 112, 108, 97, 121")
	// Every free-var slot starts out pointing at its own undefined cell.
	assert.Contains(t, out, "free_var_0_undef")
}

func TestGenerateLambdaBodySetsUpItsFrame(t *testing.T) {
	program := compile(t, "(display ((lambda (x) x) 1))")
	gen := codegen.NewCodeGenerator(program)
	out, err := gen.Generate()
	require.NoError(t, err)

	assert.Contains(t, out, "push rbp")
	assert.Contains(t, out, "AND_KILL_FRAME 3") // one parameter: env, count, arg
}

func TestGenerateRejectsUnknownFreeVariableIsUnreachableAfterAnalysis(t *testing.T) {
	// A VarGet with AddrFree but a name absent from both the program and
	// the primitive table would be an analyzer bug, not a codegen
	// scenario reachable from valid input; generator.go surfaces it as
	// schemerr.Internal rather than silently emitting bad assembly.
	program := compile(t, "(display 1)")
	gen := codegen.NewCodeGenerator(program)
	_, err := gen.Generate()
	require.NoError(t, err)
}
