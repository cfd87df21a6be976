package runtime

import (
	"fmt"
	"strings"
)

// PrologueMacros is the first fixed prologue fragment: macro, entry and
// extern definitions the rest of the generated file and the runtime
// proper both rely on.
const PrologueMacros = `
%define PARAM(i) qword [rbp + 32 + 8 * (i)]
%define ENV qword [rbp + 16]
%define COUNT qword [rbp + 24]
%define SOB_CLOSURE_ENV(r) qword [r + 8]
%define SOB_CLOSURE_CODE(r) qword [r + 16]

; AND_KILL_FRAME n follows a leave: the ret pops the return address and
; the n slots above it (env, count, args), so the callee leaves the stack
; exactly as the caller found it before pushing the argument block.
%macro AND_KILL_FRAME 1
	ret 8 * %1
%endmacro

section .text
global main
extern malloc
extern bind_primitive
extern exit
extern prim_write_toplevel
extern sob_void
extern sob_nil
extern sob_boolean_false
extern L_error_fvar_undefined
extern L_error_non_closure
extern L_error_incorrect_arity_simple
extern L_error_incorrect_arity_opt
`

// PrimitiveExterns declares every primitive code-pointer label the binding
// bootstrap may reference; NASM drops the ones the file never uses.
func PrimitiveExterns() string {
	var b strings.Builder
	for _, p := range Primitives {
		fmt.Fprintf(&b, "extern %s\n", p.Label)
	}
	return b.String()
}

// SecondPrologue is the prologue fragment emitted after the free-variables
// table: it establishes main's frame before the primitive-binding loop
// runs.
const SecondPrologue = `
section .text
main:
	push rbp
	mov rbp, rsp
`

// Epilogue is the fixed fragment that closes the generated file, after
// the final print-if-not-void call.
const Epilogue = `
	mov rdi, 0
	call exit
`

// BindPrimitiveCall emits one call of the primitive-binding bootstrap
// loop: load the runtime code pointer for a primitive and bind it into
// its free-variable slot.
func BindPrimitiveCall(freeVarLabel, codeLabel string) string {
	return fmt.Sprintf(
		"\tmov rdi, %s\n\tmov rsi, %s\n\tcall %s\n",
		freeVarLabel, codeLabel, BindPrimitive,
	)
}

// PrintIfNotVoid emits the call inserted between (and after) top-level
// forms: print the value left in rax unless it is void.
// skipLabel must be unique per call site.
func PrintIfNotVoid(skipLabel string) string {
	return fmt.Sprintf(
		"\tcmp byte [rax], %d\n\tje %s\n\tmov rdi, rax\n\tcall prim_write_toplevel\n%s:\n",
		TVoid, skipLabel, skipLabel,
	)
}
