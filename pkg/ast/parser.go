package ast

import (
	"fmt"

	"github.com/its-hmny/schemec/pkg/schemerr"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

// ParseProgram tag-parses every top-level form. Only here, and inside a
// top-level (begin ...), is a (define ...) form legal; everywhere else it is
// rejected.
func ParseProgram(forms []sexpr.Value) ([]*Node, error) {
	nodes := make([]*Node, 0, len(forms))
	for _, f := range forms {
		n, err := parseForm(f, true)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Parse tag-parses a single S-expression in a non-top-level context (a
// lambda/let body, an operand, a branch, …). Exported for callers (tests,
// future REPL-style tooling) that need the tag parser without an enclosing
// program.
func Parse(form sexpr.Value) (*Node, error) { return parseForm(form, false) }

func parseForm(form sexpr.Value, topLevel bool) (*Node, error) {
	switch form.Kind {
	case sexpr.KindVoid, sexpr.KindBool, sexpr.KindChar, sexpr.KindString,
		sexpr.KindInteger, sexpr.KindFraction, sexpr.KindReal, sexpr.KindVector:
		// Self-evaluating atoms; a bare vector literal (not
		// behind quote) has no core form to apply it to, so it is
		// self-evaluating too, same as every other non-pair atom.
		return Const(form), nil

	case sexpr.KindNil:
		return nil, schemerr.NewSyntaxError("empty application", sexpr.Print(form))

	case sexpr.KindSymbol:
		if isReserved(form.Str) {
			return nil, schemerr.NewSyntaxError("reserved word used as identifier", form.Str)
		}
		return VarGet(form.Str), nil

	case sexpr.KindPair:
		return parseList(form, topLevel)

	default:
		return nil, schemerr.NewInternal(fmt.Sprintf("unrecognized sexpr kind %v", form.Kind))
	}
}

func parseList(form sexpr.Value, topLevel bool) (*Node, error) {
	elems, proper := form.Slice()
	if len(elems) == 0 {
		return nil, schemerr.NewSyntaxError("empty application", sexpr.Print(form))
	}
	if !proper {
		return nil, schemerr.NewSyntaxError("improper list in form position", sexpr.Print(form))
	}

	head, rest := elems[0], elems[1:]

	if head.Kind == sexpr.KindSymbol {
		switch head.Str {
		case "quote":
			if len(rest) != 1 {
				return nil, schemerr.NewSyntaxError("quote takes exactly one operand", sexpr.Print(form))
			}
			return Const(rest[0]), nil

		case "if":
			return parseIf(rest)

		case "or":
			return parseOr(rest)

		case "begin":
			return parseBegin(rest, topLevel)

		case "and":
			return parseForm(expandAnd(rest), false)

		case "cond":
			return parseForm(expandCond(rest), false)

		case "quasiquote":
			if len(rest) != 1 {
				return nil, schemerr.NewSyntaxError("quasiquote takes exactly one operand", sexpr.Print(form))
			}
			return parseForm(expandQuasiquote(rest[0]), false)

		case "let":
			if len(rest) < 1 {
				return nil, schemerr.NewSyntaxError("malformed let", sexpr.Print(form))
			}
			return parseForm(expandLet(rest), false)

		case "let*":
			if len(rest) < 1 {
				return nil, schemerr.NewSyntaxError("malformed let*", sexpr.Print(form))
			}
			return parseForm(expandLetStar(rest), false)

		case "letrec":
			if len(rest) < 1 {
				return nil, schemerr.NewSyntaxError("malformed letrec", sexpr.Print(form))
			}
			return parseForm(expandLetrec(rest), false)

		case "lambda":
			return parseLambda(rest)

		case "set!":
			return parseSet(rest)

		case "define":
			if !topLevel {
				return nil, schemerr.NewNotYetImplemented("define in a non-top-level body position")
			}
			return parseDefine(rest)

		case "do":
			return nil, schemerr.NewNotYetImplemented("do form")

		case "unquote", "unquote-splicing":
			return nil, schemerr.NewSyntaxError("unquote outside quasiquote", sexpr.Print(form))
		}
	}

	proc, err := parseForm(head, false)
	if err != nil {
		return nil, err
	}
	args := make([]*Node, len(rest))
	for i, a := range rest {
		n, err := parseForm(a, false)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return Applic(proc, args), nil
}

func parseIf(rest []sexpr.Value) (*Node, error) {
	switch len(rest) {
	case 2:
		test, err := parseForm(rest[0], false)
		if err != nil {
			return nil, err
		}
		then, err := parseForm(rest[1], false)
		if err != nil {
			return nil, err
		}
		return If(test, then, Const(sexpr.Void)), nil

	case 3:
		test, err := parseForm(rest[0], false)
		if err != nil {
			return nil, err
		}
		then, err := parseForm(rest[1], false)
		if err != nil {
			return nil, err
		}
		els, err := parseForm(rest[2], false)
		if err != nil {
			return nil, err
		}
		return If(test, then, els), nil

	default:
		return nil, schemerr.NewSyntaxError("if takes 2 or 3 operands", "")
	}
}

func parseOr(rest []sexpr.Value) (*Node, error) {
	switch len(rest) {
	case 0:
		return Const(sexpr.False), nil
	case 1:
		return parseForm(rest[0], false)
	default:
		exprs, err := parseAll(rest)
		if err != nil {
			return nil, err
		}
		return Or(exprs), nil
	}
}

func parseBegin(rest []sexpr.Value, topLevel bool) (*Node, error) {
	switch len(rest) {
	case 0:
		return Const(sexpr.Void), nil
	case 1:
		return parseForm(rest[0], topLevel)
	default:
		exprs := make([]*Node, len(rest))
		for i, e := range rest {
			n, err := parseForm(e, topLevel)
			if err != nil {
				return nil, err
			}
			exprs[i] = n
		}
		return Seq(exprs), nil
	}
}

func parseAll(forms []sexpr.Value) ([]*Node, error) {
	nodes := make([]*Node, len(forms))
	for i, f := range forms {
		n, err := parseForm(f, false)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func parseLambda(rest []sexpr.Value) (*Node, error) {
	if len(rest) < 1 {
		return nil, schemerr.NewSyntaxError("lambda requires a parameter list", "")
	}

	params, kind, restName, err := parseParamSpec(rest[0])
	if err != nil {
		return nil, err
	}

	body, err := parseForm(beginOf(rest[1:]), false)
	if err != nil {
		return nil, err
	}
	return Lambda(params, kind, restName, body), nil
}

// parseParamSpec accepts a proper list (Simple), a bare symbol (zero
// fixed params + rest), or an improper list (n fixed + rest).
func parseParamSpec(spec sexpr.Value) ([]string, LambdaKind, string, error) {
	switch spec.Kind {
	case sexpr.KindNil:
		return nil, LambdaSimple, "", nil

	case sexpr.KindSymbol:
		if isReserved(spec.Str) {
			return nil, 0, "", schemerr.NewSyntaxError("reserved word as parameter", spec.Str)
		}
		return nil, LambdaOpt, spec.Str, nil

	case sexpr.KindPair:
		elems, proper := spec.Slice()
		names := make([]string, len(elems))
		for i, e := range elems {
			if e.Kind != sexpr.KindSymbol {
				return nil, 0, "", schemerr.NewSyntaxError("malformed parameter list", sexpr.Print(spec))
			}
			if isReserved(e.Str) {
				return nil, 0, "", schemerr.NewSyntaxError("reserved word as parameter", e.Str)
			}
			names[i] = e.Str
		}

		if proper {
			if err := checkDuplicates(names); err != nil {
				return nil, 0, "", err
			}
			return names, LambdaSimple, "", nil
		}

		tail := improperTail(spec)
		if tail.Kind != sexpr.KindSymbol {
			return nil, 0, "", schemerr.NewSyntaxError("malformed rest parameter", sexpr.Print(spec))
		}
		if isReserved(tail.Str) {
			return nil, 0, "", schemerr.NewSyntaxError("reserved word as parameter", tail.Str)
		}
		if err := checkDuplicates(append(append([]string{}, names...), tail.Str)); err != nil {
			return nil, 0, "", err
		}
		return names, LambdaOpt, tail.Str, nil

	default:
		return nil, 0, "", schemerr.NewSyntaxError("malformed parameter list", sexpr.Print(spec))
	}
}

func improperTail(v sexpr.Value) sexpr.Value {
	cur := v
	for cur.Kind == sexpr.KindPair {
		cur = *cur.Cdr
	}
	return cur
}

func checkDuplicates(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return schemerr.NewSyntaxError("duplicate parameter name", n)
		}
		seen[n] = true
	}
	return nil
}

func parseSet(rest []sexpr.Value) (*Node, error) {
	if len(rest) != 2 || rest[0].Kind != sexpr.KindSymbol {
		return nil, schemerr.NewSyntaxError("malformed set!", "")
	}
	if isReserved(rest[0].Str) {
		return nil, schemerr.NewSyntaxError("reserved word used as identifier", rest[0].Str)
	}
	val, err := parseForm(rest[1], false)
	if err != nil {
		return nil, err
	}
	return VarSet(rest[0].Str, val), nil
}

func parseDefine(rest []sexpr.Value) (*Node, error) {
	if len(rest) < 1 {
		return nil, schemerr.NewSyntaxError("malformed define", "")
	}

	switch rest[0].Kind {
	case sexpr.KindSymbol:
		name := rest[0].Str
		if isReserved(name) {
			return nil, schemerr.NewSyntaxError("reserved word used as identifier", name)
		}
		var valueForm sexpr.Value
		switch len(rest) {
		case 1:
			valueForm = sexpr.Void
		case 2:
			valueForm = rest[1]
		default:
			return nil, schemerr.NewSyntaxError("malformed define", "")
		}
		val, err := parseForm(valueForm, false)
		if err != nil {
			return nil, err
		}
		return VarDef(name, val), nil

	case sexpr.KindPair:
		headSym := *rest[0].Car
		if headSym.Kind != sexpr.KindSymbol {
			return nil, schemerr.NewSyntaxError("malformed define header", sexpr.Print(rest[0]))
		}
		if isReserved(headSym.Str) {
			return nil, schemerr.NewSyntaxError("reserved word used as identifier", headSym.Str)
		}
		paramSpec := *rest[0].Cdr
		lambdaForm := sexpr.List(sexpr.Symbol("lambda"), paramSpec, beginOf(rest[1:]))
		val, err := parseForm(lambdaForm, false)
		if err != nil {
			return nil, err
		}
		return VarDef(headSym.Str, val), nil

	default:
		return nil, schemerr.NewSyntaxError("malformed define", sexpr.Print(rest[0]))
	}
}
