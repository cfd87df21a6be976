package analyzer

import "github.com/its-hmny/schemec/pkg/ast"

// walkForBoxing implements pass 3. It visits every Lambda
// node bottom-up (nested lambdas are fully boxed before their enclosing
// one is examined) and, at each, decides which of its own parameters need
// boxing and rewrites its body in place.
func walkForBoxing(n *ast.Node) {
	switch n.Kind {
	case ast.KindConst, ast.KindVarGet, ast.KindBoxGet, ast.KindBox:
		return

	case ast.KindVarSet, ast.KindVarDef, ast.KindBoxSet:
		walkForBoxing(n.Value)

	case ast.KindIf:
		walkForBoxing(n.Test)
		walkForBoxing(n.Then)
		walkForBoxing(n.Else)

	case ast.KindSeq, ast.KindOr:
		for _, e := range n.Exprs {
			walkForBoxing(e)
		}

	case ast.KindApplic:
		walkForBoxing(n.Proc)
		for _, a := range n.Args {
			walkForBoxing(a)
		}

	case ast.KindLambda:
		walkForBoxing(n.Body)
		boxParams(n)
	}
}

// paramCount returns how many addressable parameter slots a lambda has,
// counting the rest parameter (if any) as the last slot.
func paramCount(l *ast.Node) int {
	n := len(l.Params)
	if l.LambdaKind == ast.LambdaOpt {
		n++
	}
	return n
}

// paramName returns the name bound at slot idx of l.
func paramName(l *ast.Node, idx int) string {
	if idx < len(l.Params) {
		return l.Params[idx]
	}
	return l.RestName
}

// boxParams decides, for each parameter of l, whether it needs boxing
// and rewrites l's body accordingly.
func boxParams(l *ast.Node) {
	total := paramCount(l)
	if total == 0 {
		return
	}

	readOwners := make([]map[*ast.Node]bool, total)
	writeOwners := make([]map[*ast.Node]bool, total)
	readNodes := make([][]*ast.Node, total)
	writeNodes := make([][]*ast.Node, total)
	for i := 0; i < total; i++ {
		readOwners[i] = map[*ast.Node]bool{}
		writeOwners[i] = map[*ast.Node]bool{}
	}

	var scan func(n *ast.Node, chain []*ast.Node)
	scan = func(n *ast.Node, chain []*ast.Node) {
		switch n.Kind {
		case ast.KindConst, ast.KindBox:
			return

		case ast.KindVarGet:
			if idx, ok := targetIndex(n.Address, chain, l); ok {
				owner := chain[0]
				readOwners[idx][owner] = true
				readNodes[idx] = append(readNodes[idx], n)
			}

		case ast.KindVarSet:
			if idx, ok := targetIndex(n.Address, chain, l); ok {
				owner := chain[0]
				writeOwners[idx][owner] = true
				writeNodes[idx] = append(writeNodes[idx], n)
			}
			scan(n.Value, chain)

		case ast.KindBoxGet:
			return

		case ast.KindBoxSet:
			scan(n.Value, chain)

		case ast.KindVarDef:
			scan(n.Value, chain)

		case ast.KindIf:
			scan(n.Test, chain)
			scan(n.Then, chain)
			scan(n.Else, chain)

		case ast.KindSeq, ast.KindOr:
			for _, e := range n.Exprs {
				scan(e, chain)
			}

		case ast.KindApplic:
			scan(n.Proc, chain)
			for _, a := range n.Args {
				scan(a, chain)
			}

		case ast.KindLambda:
			scan(n.Body, append([]*ast.Node{n}, chain...))
		}
	}
	scan(l.Body, []*ast.Node{l})

	boxed := make([]bool, total)
	any := false
	for i := 0; i < total; i++ {
		if len(readOwners[i]) == 0 || len(writeOwners[i]) == 0 {
			continue
		}
		if distinctOwnerCount(readOwners[i], writeOwners[i]) > 1 {
			boxed[i] = true
			any = true
		}
	}
	if !any {
		return
	}

	for i := 0; i < total; i++ {
		if !boxed[i] {
			continue
		}
		for _, g := range readNodes[i] {
			g.Kind = ast.KindBoxGet
		}
		for _, s := range writeNodes[i] {
			s.Kind = ast.KindBoxSet
		}
	}

	prologue := make([]*ast.Node, 0, total)
	for i := 0; i < total; i++ {
		if !boxed[i] {
			continue
		}
		name := paramName(l, i)
		addr := ast.Address{Kind: ast.AddrParam, Param: i}
		setNode := ast.VarSet(name, ast.Box(name, addr))
		setNode.Address = addr
		prologue = append(prologue, setNode)
	}

	if l.Body.Kind == ast.KindSeq {
		l.Body.Exprs = append(prologue, l.Body.Exprs...)
	} else {
		l.Body = ast.Seq(append(prologue, l.Body))
	}
}

// targetIndex reports whether addr, resolved relative to chain (innermost
// enclosing lambda first), refers to one of target's own parameters, and
// if so which one.
func targetIndex(addr ast.Address, chain []*ast.Node, target *ast.Node) (int, bool) {
	switch addr.Kind {
	case ast.AddrParam:
		if len(chain) > 0 && chain[0] == target {
			return addr.Param, true
		}
	case ast.AddrBound:
		idx := addr.Major + 1
		if idx < len(chain) && chain[idx] == target {
			return addr.Minor, true
		}
	}
	return 0, false
}

func distinctOwnerCount(a, b map[*ast.Node]bool) int {
	seen := make(map[*ast.Node]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	return len(seen)
}
