package analyzer

import "github.com/its-hmny/schemec/pkg/ast"

// tailAnnotate implements pass 2: it sets Tail on every
// KindApplic node, threading whether the current node sits in tail
// position with respect to the enclosing procedure.
func tailAnnotate(n *ast.Node, inTail bool) {
	switch n.Kind {
	case ast.KindConst, ast.KindVarGet, ast.KindBoxGet:
		return

	case ast.KindVarSet, ast.KindVarDef, ast.KindBoxSet:
		tailAnnotate(n.Value, false)

	case ast.KindBox:
		return

	case ast.KindIf:
		tailAnnotate(n.Test, false)
		tailAnnotate(n.Then, inTail)
		tailAnnotate(n.Else, inTail)

	case ast.KindSeq, ast.KindOr:
		last := len(n.Exprs) - 1
		for i, e := range n.Exprs {
			tailAnnotate(e, inTail && i == last)
		}

	case ast.KindLambda:
		tailAnnotate(n.Body, true)

	case ast.KindApplic:
		tailAnnotate(n.Proc, false)
		for _, a := range n.Args {
			tailAnnotate(a, false)
		}
		if inTail {
			n.Tail = ast.Tail
		} else {
			n.Tail = ast.NonTail
		}
	}
}
