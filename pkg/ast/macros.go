package ast

import "github.com/its-hmny/schemec/pkg/sexpr"

// reservedWords may never be used as an identifier in binding or
// reference position.
var reservedWords = map[string]bool{
	"and": true, "begin": true, "cond": true, "define": true, "do": true,
	"else": true, "if": true, "lambda": true, "let": true, "let*": true,
	"letrec": true, "or": true, "quasiquote": true, "quote": true,
	"set!": true, "unquote": true, "unquote-splicing": true,
}

func isReserved(name string) bool { return reservedWords[name] }

// expandAnd right-folds (and e1 e2 … en) into nested ifs.
func expandAnd(rest []sexpr.Value) sexpr.Value {
	if len(rest) == 0 {
		return sexpr.True
	}
	result := rest[len(rest)-1]
	for i := len(rest) - 2; i >= 0; i-- {
		result = sexpr.List(sexpr.Symbol("if"), rest[i], result, sexpr.False)
	}
	return result
}

// expandCond rewrites a cond clause list into nested ifs/lets. A "=>"
// clause expands to three separate let bindings, calling the receiver
// procedure each time the clause fires rather than caching it.
func expandCond(clauses []sexpr.Value) sexpr.Value {
	if len(clauses) == 0 {
		return sexpr.Void
	}

	clause := clauses[0]
	rest := clauses[1:]
	items, _ := clause.Slice()

	if len(items) >= 1 && items[0].Kind == sexpr.KindSymbol && items[0].Str == "else" {
		return beginOf(items[1:])
	}

	if len(items) == 3 && items[1].Kind == sexpr.KindSymbol && items[1].Str == "=>" {
		test, proc := items[0], items[2]
		restExpanded := expandCond(rest)
		return sexpr.List(sexpr.Symbol("let"),
			sexpr.List(
				sexpr.List(sexpr.Symbol("value"), test),
				sexpr.List(sexpr.Symbol("f"), sexpr.List(sexpr.Symbol("lambda"), sexpr.Nil, proc)),
				sexpr.List(sexpr.Symbol("rest"), sexpr.List(sexpr.Symbol("lambda"), sexpr.Nil, restExpanded)),
			),
			sexpr.List(sexpr.Symbol("if"), sexpr.Symbol("value"),
				sexpr.List(sexpr.List(sexpr.Symbol("f")), sexpr.Symbol("value")),
				sexpr.List(sexpr.Symbol("rest"))),
		)
	}

	if len(items) == 0 {
		return expandCond(rest)
	}
	test := items[0]
	return sexpr.List(sexpr.Symbol("if"), test, beginOf(items[1:]), expandCond(rest))
}

// beginOf wraps a form sequence in (begin …), collapsing the empty
// sequence to void and a singleton to the form itself.
func beginOf(forms []sexpr.Value) sexpr.Value {
	if len(forms) == 0 {
		return sexpr.Void
	}
	if len(forms) == 1 {
		return forms[0]
	}
	return sexpr.List(append([]sexpr.Value{sexpr.Symbol("begin")}, forms...)...)
}

// expandLet rewrites (let ((x e)…) body…) into an immediately-applied
// lambda, including the empty-bindings (let () body…) case.
func expandLet(rest []sexpr.Value) sexpr.Value {
	bindings, _ := rest[0].Slice()
	body := rest[1:]

	names := make([]sexpr.Value, len(bindings))
	inits := make([]sexpr.Value, len(bindings))
	for i, b := range bindings {
		pair, _ := b.Slice()
		names[i], inits[i] = pair[0], pair[1]
	}

	lambdaForm := sexpr.List(sexpr.Symbol("lambda"), sexpr.List(names...), beginOf(body))
	return sexpr.List(append([]sexpr.Value{lambdaForm}, inits...)...)
}

// expandLetStar rewrites (let* ((x e) rest…) body…) into one nested
// lambda application per binding, left to right.
func expandLetStar(rest []sexpr.Value) sexpr.Value {
	bindings, _ := rest[0].Slice()
	body := rest[1:]

	if len(bindings) == 0 {
		return expandLet(rest)
	}

	first := bindings[0]
	pair, _ := first.Slice()
	x, e := pair[0], pair[1]

	innerForms := append([]sexpr.Value{sexpr.Symbol("let*"), sexpr.List(bindings[1:]...)}, body...)
	inner := sexpr.List(innerForms...)
	lambdaForm := sexpr.List(sexpr.Symbol("lambda"), sexpr.List(x), inner)
	return sexpr.List(lambdaForm, e)
}

// expandLetrec rewrites (letrec ((x e)…) body…) into a let that first
// binds every name to a placeholder, then set!s each in order.
func expandLetrec(rest []sexpr.Value) sexpr.Value {
	bindings, _ := rest[0].Slice()
	body := rest[1:]

	letBindings := make([]sexpr.Value, len(bindings))
	setForms := make([]sexpr.Value, len(bindings))
	for i, b := range bindings {
		pair, _ := b.Slice()
		x, e := pair[0], pair[1]
		letBindings[i] = sexpr.List(x, sexpr.List(sexpr.Symbol("quote"), sexpr.Symbol("whatever")))
		setForms[i] = sexpr.List(sexpr.Symbol("set!"), x, e)
	}

	newBody := append(append([]sexpr.Value{}, setForms...), body...)
	return sexpr.List(append([]sexpr.Value{sexpr.Symbol("let"), sexpr.List(letBindings...)}, newBody...)...)
}

// expandQuasiquote recursively rewrites a quasiquote template into
// cons/append/vector applications around its unquoted holes.
func expandQuasiquote(t sexpr.Value) sexpr.Value {
	switch t.Kind {
	case sexpr.KindNil:
		return sexpr.List(sexpr.Symbol("quote"), sexpr.Nil)

	case sexpr.KindSymbol:
		return sexpr.List(sexpr.Symbol("quote"), t)

	case sexpr.KindPair:
		head := *t.Car

		if head.Kind == sexpr.KindSymbol && head.Str == "unquote" {
			if tail := *t.Cdr; tail.Kind == sexpr.KindPair {
				return *tail.Car
			}
		}

		if head.Kind == sexpr.KindPair {
			headHead := *head.Car
			if headHead.Kind == sexpr.KindSymbol && headHead.Str == "unquote" {
				e := *(*head.Cdr).Car
				return sexpr.List(sexpr.Symbol("cons"), e, expandQuasiquote(*t.Cdr))
			}
			if headHead.Kind == sexpr.KindSymbol && headHead.Str == "unquote-splicing" {
				e := *(*head.Cdr).Car
				if rest := *t.Cdr; rest.Kind == sexpr.KindNil {
					return e
				}
				return sexpr.List(sexpr.Symbol("append"), e, expandQuasiquote(*t.Cdr))
			}
		}

		return sexpr.List(sexpr.Symbol("cons"), expandQuasiquote(*t.Car), expandQuasiquote(*t.Cdr))

	case sexpr.KindVector:
		hasSplice := false
		for _, e := range t.Elements {
			if e.Kind == sexpr.KindPair {
				if h := *e.Car; h.Kind == sexpr.KindSymbol && h.Str == "unquote-splicing" {
					hasSplice = true
				}
			}
		}
		if hasSplice {
			return sexpr.List(sexpr.Symbol("list->vector"), expandQuasiquote(sexpr.List(t.Elements...)))
		}
		parts := make([]sexpr.Value, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = expandQuasiquote(e)
		}
		return sexpr.List(append([]sexpr.Value{sexpr.Symbol("vector")}, parts...)...)

	default:
		return t // self-evaluating atom: void, boolean, char, string, number
	}
}
