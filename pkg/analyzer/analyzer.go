// Package analyzer implements the three-pass semantic analyzer:
// lexical addressing, tail-call annotation and automatic
// boxing of mutated closed-over parameters. All three passes enrich the
// pkg/ast.Node tree produced by the tag parser in place; there is no
// separate "analyzed AST" type, matching the flat-sum style the rest of
// the tree already uses.
package analyzer

import "github.com/its-hmny/schemec/pkg/ast"

// Run executes the three passes, in order, over every top-level form.
// Only pass 1 can fail; passes 2 and 3 are total rewrites of an already
// well-formed tree.
func Run(program []*ast.Node) error {
	for _, n := range program {
		if err := addressNode(n, nil, nil); err != nil {
			return err
		}
	}
	for _, n := range program {
		tailAnnotate(n, false)
	}
	for _, n := range program {
		walkForBoxing(n)
	}
	return nil
}
