package codegen

import (
	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/runtime"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

// Collect walks every top-level form of an analyzed program and gathers the
// two inputs the constants and free-variables tables need: every literal
// reachable from a Const node, and every name referenced through an
// AddrFree address. Free names also land in the constants
// table as string literals: the runtime needs them to report undefined
// references, and every primitive name is reserved up front right after
// the fixed singletons.
func Collect(program []*ast.Node) (*ConstantsTable, *FreeVarsTable) {
	constants := NewConstantsTable()
	constants.AddPrimitiveNames(runtime.Names())
	free := map[string]bool{}
	markFree := func(name string) {
		free[name] = true
		constants.Add(sexpr.String(name))
	}

	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindConst:
			constants.Add(n.Literal)
		case ast.KindVarGet, ast.KindBoxGet:
			if n.Address.Kind == ast.AddrFree {
				markFree(n.Name)
			}
		case ast.KindVarSet, ast.KindBoxSet:
			if n.Address.Kind == ast.AddrFree {
				markFree(n.Name)
			}
			walk(n.Value)
		case ast.KindVarDef:
			// a definition's own name always lives in the free-variable
			// table: top-level defines have no enclosing lambda to
			// address them against.
			markFree(n.Name)
			walk(n.Value)
		case ast.KindBox:
			if n.Address.Kind == ast.AddrFree {
				markFree(n.Name)
			}
		case ast.KindIf:
			walk(n.Test)
			walk(n.Then)
			walk(n.Else)
		case ast.KindSeq, ast.KindOr:
			for _, e := range n.Exprs {
				walk(e)
			}
		case ast.KindLambda:
			walk(n.Body)
		case ast.KindApplic:
			walk(n.Proc)
			for _, a := range n.Args {
				walk(a)
			}
		}
	}

	for _, n := range program {
		walk(n)
	}

	names := make([]string, 0, len(free))
	for n := range free {
		names = append(names, n)
	}
	return constants, NewFreeVarsTable(names)
}
