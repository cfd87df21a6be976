// Package codegen lowers an analyzed pkg/ast.Node tree into x86-64
// assembly text, against the constants and free-variables tables built by
// Collect. The generator owns no state beyond those tables and a
// label-minting counter; apart from the labels it mints, every generate*
// method depends only on its node and the two lexical-addressing contexts
// (params, envDepth) threaded through the recursion.
package codegen

import (
	"fmt"
	"strings"

	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/runtime"
	"github.com/its-hmny/schemec/pkg/schemerr"
)

// CodeGenerator lowers a whole analyzed program to one assembly file.
type CodeGenerator struct {
	program   []*ast.Node
	constants *ConstantsTable
	freeVars  *FreeVarsTable
	nLabel    uint // monotonic label counter, never reset mid-compilation
}

// NewCodeGenerator collects the constants and free-variables tables from
// program and returns a generator ready to emit it.
func NewCodeGenerator(program []*ast.Node) *CodeGenerator {
	constants, freeVars := Collect(program)
	return &CodeGenerator{program: program, constants: constants, freeVars: freeVars}
}

// label mints a fresh, unique assembly label with the given category
// prefix (e.g. "L_if_else"): a single per-compilation counter,
// incremented after every label.
func (g *CodeGenerator) label(prefix string) string {
	defer func() { g.nLabel++ }()
	return fmt.Sprintf("%s_%d", prefix, g.nLabel)
}

// Generate lowers the whole program and returns the complete assembly
// file text: prologue, constants, free-vars, primitive-binding loop, the
// translated program (each top-level form followed by a print-if-not-void
// call), and the epilogue, in that exact order.
func (g *CodeGenerator) Generate() (string, error) {
	var out strings.Builder

	out.WriteString(runtime.PrologueMacros)
	out.WriteString(runtime.PrimitiveExterns())
	out.WriteString(g.constants.Render())
	out.WriteString(g.freeVars.Render(g.constants))
	out.WriteString(runtime.SecondPrologue)
	out.WriteString(g.generateBindingLoop())

	for _, n := range g.program {
		body, err := g.GenerateNode(n, 0, 0)
		if err != nil {
			return "", err
		}
		out.WriteString(body)
		out.WriteString(runtime.PrintIfNotVoid(g.label("L_skip_print")))
	}

	out.WriteString(runtime.Epilogue)
	return out.String(), nil
}

// generateBindingLoop emits one bind_primitive call per primitive whose
// name the program actually references free); primitives
// reserved in the free-vars table but never touched by the program get no
// bootstrap call.
func (g *CodeGenerator) generateBindingLoop() string {
	var out strings.Builder
	for _, p := range runtime.Primitives {
		if !g.freeVars.Referenced(p.Name) {
			continue
		}
		label, _ := g.freeVars.Label(p.Name)
		out.WriteString(runtime.BindPrimitiveCall(label, p.Label))
	}
	return out.String()
}

// GenerateNode dispatches on n.Kind. params is the parameter count of the
// innermost enclosing lambda (0 at program top level); envDepth is the
// number of enclosing lambdas.
func (g *CodeGenerator) GenerateNode(n *ast.Node, params, envDepth int) (string, error) {
	switch n.Kind {
	case ast.KindConst:
		return g.generateConst(n)
	case ast.KindVarGet:
		return g.generateVarGet(n)
	case ast.KindVarSet:
		return g.generateVarSet(n, params, envDepth)
	case ast.KindVarDef:
		return g.generateVarDef(n, params, envDepth)
	case ast.KindBox:
		return g.generateBox(n)
	case ast.KindBoxGet:
		return g.generateBoxGet(n)
	case ast.KindBoxSet:
		return g.generateBoxSet(n, params, envDepth)
	case ast.KindIf:
		return g.generateIf(n, params, envDepth)
	case ast.KindSeq:
		return g.generateSeq(n, params, envDepth)
	case ast.KindOr:
		return g.generateOr(n, params, envDepth)
	case ast.KindLambda:
		return g.generateLambda(n, params, envDepth)
	case ast.KindApplic:
		return g.generateApplic(n, params, envDepth)
	default:
		return "", schemerr.NewInternal(fmt.Sprintf("codegen: unhandled node kind %s", n.Kind))
	}
}

// Const(s) -> load L_constants + loc(s).
func (g *CodeGenerator) generateConst(n *ast.Node) (string, error) {
	off, ok := g.constants.Offset(n.Literal)
	if !ok {
		return "", schemerr.NewInternal("codegen: literal missing from constants table")
	}
	return fmt.Sprintf("\tmov rax, %s + %d\n", runtime.LConstants, off), nil
}

// VarGet lowers a lexical read per its resolved address.
func (g *CodeGenerator) generateVarGet(n *ast.Node) (string, error) {
	switch n.Address.Kind {
	case ast.AddrFree:
		return g.generateFreeGet(n.Name)
	case ast.AddrParam:
		return fmt.Sprintf("\tmov rax, PARAM(%d)\n", n.Address.Param), nil
	case ast.AddrBound:
		return g.generateBoundGet(n.Address.Major, n.Address.Minor), nil
	default:
		return "", schemerr.NewInternal("codegen: var-get with unknown address kind")
	}
}

// VarGet(Free f) -> load [free_var_f]; compare RTTI to T_undefined and jump
// to a shared error handler if so.
func (g *CodeGenerator) generateFreeGet(name string) (string, error) {
	label, ok := g.freeVars.Label(name)
	if !ok {
		return "", schemerr.NewInternal(fmt.Sprintf("codegen: free variable %q missing from table", name))
	}
	ok2 := g.label("L_fvar_ok")
	return fmt.Sprintf(
		"\tmov rax, [%s]\n"+
			"\tcmp byte [rax], %d\n"+
			"\tjne %s\n"+
			"\tjmp %s\n"+
			"%s:\n",
		label, runtime.TUndefined, ok2, runtime.LErrorFvarUndefined, ok2,
	), nil
}

// VarGet(Bound(m,n)) -> dereference env, then the m-th rib, then the n-th
// slot.
func (g *CodeGenerator) generateBoundGet(major, minor int) string {
	return fmt.Sprintf(
		"\tmov rax, ENV\n"+
			"\tmov rax, [rax + 8*%d]\n"+
			"\tmov rax, [rax + 8*%d]\n",
		major, minor,
	)
}

// VarSet lowers a mutation per its resolved address.
func (g *CodeGenerator) generateVarSet(n *ast.Node, params, envDepth int) (string, error) {
	switch n.Address.Kind {
	case ast.AddrFree:
		return g.generateFreeSet(n.Name, n.Value, params, envDepth)
	case ast.AddrParam:
		if n.Value.Kind == ast.KindBox {
			return g.generateBoxingPrologue(n.Address.Param), nil
		}
		return g.generateParamSet(n.Address.Param, n.Value, params, envDepth)
	case ast.AddrBound:
		return g.generateBoundSet(n.Address.Major, n.Address.Minor, n.Value, params, envDepth)
	default:
		return "", schemerr.NewInternal("codegen: var-set with unknown address kind")
	}
}

// VarSet(Free f, e) -> evaluate e, store in the slot, return void.
func (g *CodeGenerator) generateFreeSet(name string, value *ast.Node, params, envDepth int) (string, error) {
	label, ok := g.freeVars.Label(name)
	if !ok {
		return "", schemerr.NewInternal(fmt.Sprintf("codegen: free variable %q missing from table", name))
	}
	body, err := g.GenerateNode(value, params, envDepth)
	if err != nil {
		return "", err
	}
	return body + fmt.Sprintf("\tmov [%s], rax\n\tmov rax, %s\n", label, runtime.SobVoid), nil
}

// VarSet(Param i, Box _) -> allocate 8 bytes, store the current parameter
// value there, replace the parameter slot with the allocated pointer,
// return void. This is the boxing prologue Pass 3 prepends.
func (g *CodeGenerator) generateBoxingPrologue(param int) string {
	return fmt.Sprintf(
		"\tmov rdi, 8\n"+
			"\tcall %s\n"+
			"\tmov rbx, PARAM(%d)\n"+
			"\tmov [rax], rbx\n"+
			"\tmov PARAM(%d), rax\n"+
			"\tmov rax, %s\n",
		runtime.Malloc, param, param, runtime.SobVoid,
	)
}

// VarSet(Param i, e) -> evaluate e and store to the addressed slot; return
// void.
func (g *CodeGenerator) generateParamSet(param int, value *ast.Node, params, envDepth int) (string, error) {
	body, err := g.GenerateNode(value, params, envDepth)
	if err != nil {
		return "", err
	}
	return body + fmt.Sprintf("\tmov PARAM(%d), rax\n\tmov rax, %s\n", param, runtime.SobVoid), nil
}

// VarSet(Bound(m,n), e) -> evaluate e and store to the addressed slot;
// return void.
func (g *CodeGenerator) generateBoundSet(major, minor int, value *ast.Node, params, envDepth int) (string, error) {
	body, err := g.GenerateNode(value, params, envDepth)
	if err != nil {
		return "", err
	}
	return body + fmt.Sprintf(
		"\tpush rax\n"+
			"\tmov rbx, ENV\n"+
			"\tmov rbx, [rbx + 8*%d]\n"+
			"\tpop rax\n"+
			"\tmov [rbx + 8*%d], rax\n"+
			"\tmov rax, %s\n",
		major, minor, runtime.SobVoid,
	), nil
}

// VarDef(Free f, e) -> as VarSet, plus the global is now considered
// defined (the generated code has no separate "defined" bit to flip: the
// store itself, overwriting the T_undefined sentinel, is what later
// VarGet(Free f) reads check against).
func (g *CodeGenerator) generateVarDef(n *ast.Node, params, envDepth int) (string, error) {
	return g.generateFreeSet(n.Name, n.Value, params, envDepth)
}

// Box(name, addr) allocates a fresh heap cell holding the current value at
// addr. Only ever reached when pass 3 folds a box allocation into a
// VarSet(Param i, Box _) prologue, handled directly by
// generateBoxingPrologue; a bare KindBox elsewhere would be a pass-3 bug.
func (g *CodeGenerator) generateBox(n *ast.Node) (string, error) {
	return "", schemerr.NewInternal("codegen: bare box node outside a var-set prologue")
}

// BoxGet(v) -> compile VarGet(v) then indirect.
func (g *CodeGenerator) generateBoxGet(n *ast.Node) (string, error) {
	get, err := g.generateVarGet(&ast.Node{Kind: ast.KindVarGet, Name: n.Name, Address: n.Address})
	if err != nil {
		return "", err
	}
	return get + "\tmov rax, [rax]\n", nil
}

// BoxSet(v, e) -> evaluate e, push; compile VarGet(v); store the popped
// value through the pointer; return void.
func (g *CodeGenerator) generateBoxSet(n *ast.Node, params, envDepth int) (string, error) {
	value, err := g.GenerateNode(n.Value, params, envDepth)
	if err != nil {
		return "", err
	}
	get, err := g.generateVarGet(&ast.Node{Kind: ast.KindVarGet, Name: n.Name, Address: n.Address})
	if err != nil {
		return "", err
	}
	return value + "\tpush rax\n" + get + fmt.Sprintf(
		"\tpop rbx\n\tmov [rax], rbx\n\tmov rax, %s\n", runtime.SobVoid,
	), nil
}

// If(test, then, else) -> straightforward control flow with fresh labels.
func (g *CodeGenerator) generateIf(n *ast.Node, params, envDepth int) (string, error) {
	test, err := g.GenerateNode(n.Test, params, envDepth)
	if err != nil {
		return "", err
	}
	then, err := g.GenerateNode(n.Then, params, envDepth)
	if err != nil {
		return "", err
	}
	els, err := g.GenerateNode(n.Else, params, envDepth)
	if err != nil {
		return "", err
	}
	elseLabel := g.label("L_if_else")
	endLabel := g.label("L_if_end")
	return fmt.Sprintf(
		"%s\tcmp rax, %s\n\tje %s\n%s\tjmp %s\n%s:\n%s%s:\n",
		test, runtime.SobBooleanFalse, elseLabel, then, endLabel, elseLabel, els, endLabel,
	), nil
}

// Seq(exprs) -> evaluate every expr in order; the value is that of the
// last.
func (g *CodeGenerator) generateSeq(n *ast.Node, params, envDepth int) (string, error) {
	var out strings.Builder
	for _, e := range n.Exprs {
		part, err := g.GenerateNode(e, params, envDepth)
		if err != nil {
			return "", err
		}
		out.WriteString(part)
	}
	return out.String(), nil
}

// Or(exprs) -> short-circuits on the first value that is not #f (void
// included), falling through to the last expr's value otherwise.
func (g *CodeGenerator) generateOr(n *ast.Node, params, envDepth int) (string, error) {
	if len(n.Exprs) == 0 {
		return fmt.Sprintf("\tmov rax, %s\n", runtime.SobBooleanFalse), nil
	}
	endLabel := g.label("L_or_end")
	var out strings.Builder
	for i, e := range n.Exprs {
		part, err := g.GenerateNode(e, params, envDepth)
		if err != nil {
			return "", err
		}
		out.WriteString(part)
		if i < len(n.Exprs)-1 {
			fmt.Fprintf(&out, "\tcmp rax, %s\n\tjne %s\n", runtime.SobBooleanFalse, endLabel)
		}
	}
	fmt.Fprintf(&out, "%s:\n", endLabel)
	return out.String(), nil
}

// Lambda(Simple|Opt, fixed, body) -> allocate a closure, extend the
// environment, and emit the body under the prologue appropriate to the
// lambda's arity kind.
func (g *CodeGenerator) generateLambda(n *ast.Node, params, envDepth int) (string, error) {
	bodyLabel := g.label("L_lambda_body")
	endLabel := g.label("L_lambda_end")

	fixed := len(n.Params)
	newParams := fixed
	if n.LambdaKind == ast.LambdaOpt {
		newParams = fixed + 1
	}

	body, err := g.GenerateNode(n.Body, newParams, envDepth+1)
	if err != nil {
		return "", err
	}

	var arityCheck string
	switch n.LambdaKind {
	case ast.LambdaSimple:
		arityCheck = fmt.Sprintf(
			"\tcmp COUNT, %d\n\tjne %s\n", fixed, runtime.LErrorIncorrectAritySimple,
		)
	case ast.LambdaOpt:
		arityCheck = g.generateOptArityPrologue(fixed)
	}

	var out strings.Builder
	// Extend the environment first (into rbx, which survives the closure
	// allocation's malloc), then allocate the closure: RTTI byte + env
	// pointer + code pointer.
	out.WriteString(g.generateEnvironmentExtension(params, envDepth))
	fmt.Fprintf(&out, "\tmov rdi, 24\n\tcall %s\n", runtime.Malloc)
	fmt.Fprintf(&out, "\tmov byte [rax], %d\n", runtime.TClosure)
	out.WriteString("\tmov [rax + 8], rbx\n")
	fmt.Fprintf(&out, "\tmov qword [rax + 16], %s\n", bodyLabel)
	fmt.Fprintf(&out, "\tjmp %s\n", endLabel)
	fmt.Fprintf(&out, "%s:\n", bodyLabel)
	out.WriteString("\tpush rbp\n\tmov rbp, rsp\n")
	out.WriteString(arityCheck)
	out.WriteString(body)
	out.WriteString("\tleave\n")
	fmt.Fprintf(&out, "\tAND_KILL_FRAME %d\n", newParams+2)
	fmt.Fprintf(&out, "%s:\n", endLabel)
	return out.String(), nil
}

// generateEnvironmentExtension allocates a rib of size params (the
// enclosing lambda's own parameter count) from the incoming arguments,
// then an extended environment of size envDepth+1 with the new rib at
// index 0 and each outer rib shifted up by one, leaving the extended
// environment pointer in rbx.
func (g *CodeGenerator) generateEnvironmentExtension(params, envDepth int) string {
	var out strings.Builder
	fmt.Fprintf(&out, "\tmov rdi, %d\n\tcall %s\n\tmov r12, rax\n", 8*params, runtime.Malloc)
	for i := 0; i < params; i++ {
		fmt.Fprintf(&out, "\tmov rcx, PARAM(%d)\n\tmov [r12 + 8*%d], rcx\n", i, i)
	}
	fmt.Fprintf(&out, "\tmov rdi, %d\n\tcall %s\n\tmov rbx, rax\n", 8*(envDepth+1), runtime.Malloc)
	out.WriteString("\tmov [rbx], r12\n")
	for i := 0; i < envDepth; i++ {
		fmt.Fprintf(&out, "\tmov rcx, ENV\n\tmov rcx, [rcx + 8*%d]\n\tmov [rbx + 8*%d], rcx\n", i, i+1)
	}
	return out.String()
}

// generateOptArityPrologue normalizes the frame of an Opt lambda to exactly
// fixed+1 argument slots before the body runs, via a three-way COUNT
// comparison: too few arguments is an arity error; an exact count
// widens the frame by one slot holding the empty rest list; a surplus folds
// the excess arguments right-to-left into a proper list and shrinks the
// frame around it.
func (g *CodeGenerator) generateOptArityPrologue(fixed int) string {
	tooFew := g.label("L_opt_too_few")
	exact := g.label("L_opt_exact")
	widen := g.label("L_opt_widen")
	fold := g.label("L_opt_fold")
	foldLoop := g.label("L_opt_fold_loop")
	foldDone := g.label("L_opt_fold_done")
	shrink := g.label("L_opt_shrink")
	done := g.label("L_opt_done")

	var out strings.Builder
	fmt.Fprintf(&out, "\tcmp COUNT, %d\n\tjl %s\n\tje %s\n\tjmp %s\n", fixed, tooFew, exact, fold)
	fmt.Fprintf(&out, "%s:\n\tjmp %s\n", tooFew, runtime.LErrorIncorrectArityOpt)

	// Exact count: shift the whole frame (saved rbp, return address, env,
	// count, the fixed args) one slot down; the vacated top slot becomes
	// the empty rest list.
	fmt.Fprintf(&out, "%s:\n", exact)
	fmt.Fprintf(&out, "\tmov rcx, %d\n", fixed+4)
	out.WriteString("\tmov rdx, rbp\n")
	fmt.Fprintf(&out, "%s:\n", widen)
	out.WriteString("\tmov r9, [rdx]\n\tmov [rdx - 8], r9\n\tadd rdx, 8\n\tdec rcx\n")
	fmt.Fprintf(&out, "\tjne %s\n", widen)
	out.WriteString("\tsub rbp, 8\n\tsub rsp, 8\n")
	fmt.Fprintf(&out, "\tmov PARAM(%d), %s\n", fixed, runtime.SobNil)
	fmt.Fprintf(&out, "\tmov COUNT, %d\n", fixed+1)
	fmt.Fprintf(&out, "\tjmp %s\n", done)

	// Surplus: cons args[fixed:] right-to-left into r13, drop the list
	// into slot fixed, then shift the frame up over the now-dead slots.
	fmt.Fprintf(&out, "%s:\n", fold)
	fmt.Fprintf(&out, "\tmov r13, %s\n", runtime.SobNil)
	out.WriteString("\tmov r14, COUNT\n")
	fmt.Fprintf(&out, "%s:\n", foldLoop)
	fmt.Fprintf(&out, "\tcmp r14, %d\n\tje %s\n", fixed, foldDone)
	fmt.Fprintf(&out, "\tmov rdi, 17\n\tcall %s\n", runtime.Malloc)
	fmt.Fprintf(&out, "\tmov byte [rax], %d\n", runtime.TPair)
	out.WriteString("\tmov rbx, qword [rbp + 24 + 8*r14]\n") // PARAM(r14 - 1)
	out.WriteString("\tmov [rax + 1], rbx\n\tmov [rax + 9], r13\n\tmov r13, rax\n")
	fmt.Fprintf(&out, "\tdec r14\n\tjmp %s\n", foldLoop)
	fmt.Fprintf(&out, "%s:\n", foldDone)
	fmt.Fprintf(&out, "\tmov PARAM(%d), r13\n", fixed)
	fmt.Fprintf(&out, "\tmov rdx, COUNT\n\tsub rdx, %d\n\tshl rdx, 3\n", fixed+1)
	fmt.Fprintf(&out, "\tmov COUNT, %d\n", fixed+1)
	fmt.Fprintf(&out, "\tmov rcx, %d\n", fixed+5)
	fmt.Fprintf(&out, "\tlea r8, [rbp + %d]\n", 8*(fixed+4))
	fmt.Fprintf(&out, "%s:\n", shrink)
	out.WriteString("\tmov r9, [r8]\n\tmov [r8 + rdx], r9\n\tsub r8, 8\n\tdec rcx\n")
	fmt.Fprintf(&out, "\tjne %s\n", shrink)
	out.WriteString("\tadd rbp, rdx\n\tadd rsp, rdx\n")
	fmt.Fprintf(&out, "%s:\n", done)
	return out.String()
}

// Applic(proc, args, kind) dispatches to the non-tail or frame-recycling
// tail-call lowering.
func (g *CodeGenerator) generateApplic(n *ast.Node, params, envDepth int) (string, error) {
	var out strings.Builder
	// Evaluate args right-to-left, pushing each.
	for i := len(n.Args) - 1; i >= 0; i-- {
		arg, err := g.GenerateNode(n.Args[i], params, envDepth)
		if err != nil {
			return "", err
		}
		out.WriteString(arg)
		out.WriteString("\tpush rax\n")
	}
	fmt.Fprintf(&out, "\tpush %d\n", len(n.Args))

	proc, err := g.GenerateNode(n.Proc, params, envDepth)
	if err != nil {
		return "", err
	}
	out.WriteString(proc)

	closureOK := g.label("L_closure_ok")
	fmt.Fprintf(&out,
		"\tcmp byte [rax], %d\n\tje %s\n\tjmp %s\n%s:\n",
		runtime.TClosure, closureOK, runtime.LErrorNonClosure, closureOK,
	)
	out.WriteString("\tpush SOB_CLOSURE_ENV(rax)\n") // closure's environment

	if n.Tail == ast.Tail {
		out.WriteString(g.generateTailJump(len(n.Args)))
	} else {
		// The callee's AND_KILL_FRAME pops the whole argument block on
		// return, so nothing to clean here.
		out.WriteString("\tmov rbx, SOB_CLOSURE_CODE(rax)\n\tcall rbx\n")
	}
	return out.String(), nil
}

// generateTailJump implements frame recycling: overlay the
// new argument block (env, count, return address, saved rbp, then the
// args) onto the caller's own frame and jmp instead of call, so a tail
// call never grows the stack.
func (g *CodeGenerator) generateTailJump(nargs int) string {
	words := nargs + 4 // args, env, count, ret addr, saved rbp
	copyLabel := g.label("L_tail_copy")
	return fmt.Sprintf(
		"\tmov rbx, SOB_CLOSURE_CODE(rax)\n"+ // closure's code pointer, survives the copy below
			"\tpush qword [rbp + 8]\n"+ // the frame's return address
			"\tpush qword [rbp]\n"+ // the frame's saved rbp
			"\tmov rcx, COUNT\n"+
			"\tlea rcx, [rbp + 24 + 8*rcx]\n"+ // destination: top word of the frame being recycled
			"\tlea rdx, [rsp + %d]\n"+ // source: top word of the freshly pushed block
			"\tmov r8, %d\n"+
			"%s:\n"+
			"\tmov r9, [rdx]\n"+
			"\tmov [rcx], r9\n"+
			"\tsub rdx, 8\n"+
			"\tsub rcx, 8\n"+
			"\tdec r8\n"+
			"\tjne %s\n"+
			"\tlea rsp, [rcx + 8]\n"+
			"\tpop rbp\n"+
			"\tjmp rbx\n",
		8*(words-1), words,
		copyLabel,
		copyLabel,
	)
}
