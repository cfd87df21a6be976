package analyzer

import (
	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/schemerr"
)

// addressNode implements pass 1: it assigns an ast.Address
// to every VarGet/VarSet/VarDef node it visits, given the parameter list
// in scope (params) and the chain of outer parameter lists (env, innermost
// first).
func addressNode(n *ast.Node, params []string, env [][]string) error {
	switch n.Kind {
	case ast.KindConst:
		return nil

	case ast.KindVarGet:
		n.Address = resolveAddress(n.Name, params, env)
		return nil

	case ast.KindVarSet:
		n.Address = resolveAddress(n.Name, params, env)
		return addressNode(n.Value, params, env)

	case ast.KindVarDef:
		n.Address = ast.Address{Kind: ast.AddrFree}
		return addressNode(n.Value, params, env)

	case ast.KindIf:
		if err := addressNode(n.Test, params, env); err != nil {
			return err
		}
		if err := addressNode(n.Then, params, env); err != nil {
			return err
		}
		return addressNode(n.Else, params, env)

	case ast.KindSeq, ast.KindOr:
		for _, e := range n.Exprs {
			if err := addressNode(e, params, env); err != nil {
				return err
			}
		}
		return nil

	case ast.KindLambda:
		newParams := append([]string{}, n.Params...)
		if n.LambdaKind == ast.LambdaOpt {
			newParams = append(newParams, n.RestName)
		}
		newEnv := append([][]string{append([]string{}, params...)}, env...)
		return addressNode(n.Body, newParams, newEnv)

	case ast.KindApplic:
		if err := addressNode(n.Proc, params, env); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := addressNode(a, params, env); err != nil {
				return err
			}
		}
		return nil

	default:
		return schemerr.NewInternal("pass1: unexpected node kind " + n.Kind.String())
	}
}

// resolveAddress looks a name up first in the innermost parameter list,
// then in each outer rib in turn; the first hit wins, so an inner binding
// always shadows an outer one of the same name.
func resolveAddress(name string, params []string, env [][]string) ast.Address {
	for i, p := range params {
		if p == name {
			return ast.Address{Kind: ast.AddrParam, Param: i}
		}
	}
	for major, rib := range env {
		for minor, p := range rib {
			if p == name {
				return ast.Address{Kind: ast.AddrBound, Major: major, Minor: minor}
			}
		}
	}
	return ast.Address{Kind: ast.AddrFree}
}
