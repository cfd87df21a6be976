// Package reader turns Scheme source text into pkg/sexpr values: the first
// stage of the pipeline. Parsing is two-phase: Parser.FromSource builds a
// generic, traversable AST with github.com/prataprc/goparsec combinators,
// then Parser.FromAST walks it into typed sexpr.Value trees.
package reader

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"regexp"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/its-hmny/schemec/pkg/schemerr"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

var ast = pc.NewAST("sexpr_stream", 0)

// pSexprFwd is the forward reference used to let list/vector/quote
// productions recurse into the full S-expression grammar before pSexpr
// itself has been assigned: goparsec combinators wire together concrete
// pc.Parser values at var-init time, so a directly self-referential var
// block would see a nil pSexpr. Wrapping the call in a closure defers the
// lookup until parse time, by which point pSexpr is assigned below.
var pSexpr pc.Parser

var pSexprFwd pc.Parser = func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pSexpr(s) }

// pItem is an S-expression or a datum comment (#;<form>); lists, vectors
// and the top-level program all iterate items so a commented-out datum can
// appear anywhere a datum can.
var pItem pc.Parser

var pItemFwd pc.Parser = func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pItem(s) }

// floatExp is the shared exponent-marker suffix of the float grammar:
// "e"/"E", "*10**", or "*10^", then an optionally signed decimal.
const floatExp = `(?:e|E|\*10\*\*|\*10\^)[+-]?[0-9]+`

var (
	// Case-insensitive; matched via Token (a regex) since
	// pc.Atom only does literal, case-sensitive matches.
	pVoid    = pc.Token(`(?i)#void`, "VOID")
	pBoolean = ast.OrdChoice("boolean", nil, pc.Token(`(?i)#t`, "TRUE"), pc.Token(`(?i)#f`, "FALSE"))

	// A real number's shape (a "." or an exponent marker) is tried before
	// the symbol token, so that e.g. "3.5" isn't split into a symbol "3"
	// plus a dangling ".5". Integers, fractions and exponent-only reals
	// like "3e2" tokenize as symbols first (every one of their characters
	// is in the symbol alphabet) and are reclassified in symbolOrNumber,
	// which is also what enforces the "not followed by a symbol char" rule
	// for numeric atoms, since the symbol token always consumes the whole
	// run: "1+" stays one symbol instead of an integer with a rider.
	pReal = pc.Token(`[+-]?(?:[0-9]+\.[0-9]*(?:`+floatExp+`)?|\.[0-9]+(?:`+floatExp+`)?)`, "REAL")

	pCharacter = pc.Token(`#\\([A-Za-z][A-Za-z0-9-]*|.)`, "CHAR")
	pString    = pc.Token(`"(?:\\.|[^"\\])*"`, "STRING")

	// The identifier alphabet for symbols; it has no
	// "." in it, which is what keeps the dotted-pair marker in pList
	// unambiguous without needing lookahead.
	pSymbol = pc.Token(`[a-zA-Z0-9!$\^\*_\-+=<>?/]+`, "SYMBOL")

	pAtom = ast.OrdChoice("atom", nil,
		pVoid, pBoolean, pCharacter, pString, pReal, pSymbol,
	)

	pSexprComment = ast.And("sexpr-comment", nil, pc.Atom("#;", "#;"), pSexprFwd)

	pList = ast.And("list", nil,
		pc.Atom("(", "("),
		ast.Kleene("items", nil, pItemFwd),
		ast.Maybe("tail", nil, ast.And("dotted-tail", nil, pc.Atom(".", "."), pSexprFwd)),
		pc.Atom(")", ")"),
	)

	pVector = ast.And("vector", nil,
		pc.Atom("#(", "#("),
		ast.Kleene("items", nil, pItemFwd),
		pc.Atom(")", ")"),
	)

	pQuote      = ast.And("quote", nil, pc.Atom("'", "'"), pSexprFwd)
	pQuasiquote = ast.And("quasiquote", nil, pc.Atom("`", "`"), pSexprFwd)
	pUnquoteAt  = ast.And("unquote-splicing", nil, pc.Atom(",@", ",@"), pSexprFwd)
	pUnquote    = ast.And("unquote", nil, pc.Atom(",", ","), pSexprFwd)

	pProgram = ast.ManyUntil("program", nil, pItemFwd, pc.End())
)

func init() {
	pSexpr = ast.OrdChoice("sexpr", nil,
		pQuote, pQuasiquote, pUnquoteAt, pUnquote, pVector, pList, pAtom,
	)
	pItem = ast.OrdChoice("item", nil, pSexprComment, pSexprFwd)
}

// The numeric shapes a symbol-alphabet token can spell out; checked in this
// order by symbolOrNumber. Symbols must not tokenize as a number, so a full
// match on any of these reclassifies the token.
var (
	reInteger  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	reFraction = regexp.MustCompile(`^[+-]?[0-9]+/[0-9]+$`)
	reRealExp  = regexp.MustCompile(`^[+-]?[0-9]+(?:` + floatExp + `)$`)
)

// Parser holds only the io.Reader the source comes from, deferring all
// state to the two-phase Parse pipeline below.
type Parser struct{ reader io.Reader }

// NewParser returns a Parser reading Scheme source from r.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse runs the full text-to-sexpr pipeline: read, strip comments,
// build the generic AST, then lower it into a flat program (a top-level
// sequence of sexpr.Value forms).
func (p *Parser) Parse() ([]sexpr.Value, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, schemerr.NewReadError(0, "cannot read source", err)
	}

	root, pos, ok := p.FromSource(content)
	if !ok {
		return nil, schemerr.NewReadError(pos, "malformed S-expression", nil)
	}

	return p.FromAST(root)
}

// FromSource scans the (comment-stripped) source and returns the raw,
// generic AST plus the scanner's final cursor (the failure offset when the
// parse did not succeed), following the same PARSEC_DEBUG / EXPORT_AST /
// PRINT_AST debugging feature flags.
func (p *Parser) FromSource(source []byte) (pc.Queryable, int, bool) {
	stripped := stripComments(source)

	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, scanner := ast.Parsewith(pProgram, pc.NewScanner(stripped))

	if os.Getenv("EXPORT_AST") != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring("\"Reader AST\"")))
		}
	}
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, scanner.GetCursor(), root != nil
}

// FromAST walks the generic AST produced by FromSource into a flat
// top-level program: one sexpr.Value per top-level datum, in source order.
func (p *Parser) FromAST(root pc.Queryable) ([]sexpr.Value, error) {
	if root.GetName() != "program" {
		return nil, schemerr.NewInternal(fmt.Sprintf("expected node 'program', found %s", root.GetName()))
	}

	return p.itemValues(root.GetChildren())
}

// itemValues lowers a run of "item" nodes, dropping datum comments: the
// commented-out sub-form is still parsed (so malformed dead code errors)
// but never appended.
func (p *Parser) itemValues(nodes []pc.Queryable) ([]sexpr.Value, error) {
	out := make([]sexpr.Value, 0, len(nodes))
	for _, it := range nodes {
		if it.GetName() == "sexpr-comment" {
			if _, err := p.toValue(it.GetChildren()[1]); err != nil {
				return nil, err
			}
			continue
		}

		v, err := p.toValue(it)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// toValue lowers a single raw AST node into a sexpr.Value, recursing into
// children for the compound forms (list, vector, quote shorthand).
func (p *Parser) toValue(node pc.Queryable) (sexpr.Value, error) {
	switch node.GetName() {
	case "VOID":
		return sexpr.Void, nil
	case "TRUE":
		return sexpr.True, nil
	case "FALSE":
		return sexpr.False, nil

	case "REAL":
		f, err := parseRealLiteral(node.GetValue())
		if err != nil {
			return sexpr.Value{}, err
		}
		return sexpr.Real(f), nil

	case "CHAR":
		return parseCharLiteral(node.GetValue())

	case "STRING":
		return parseStringLiteral(node.GetValue())

	case "SYMBOL":
		return symbolOrNumber(node.GetValue())

	case "list":
		return p.listToValue(node)

	case "vector":
		elems, err := p.itemValues(node.GetChildren()[1].GetChildren())
		if err != nil {
			return sexpr.Value{}, err
		}
		return sexpr.Vector(elems), nil

	case "quote", "quasiquote", "unquote", "unquote-splicing":
		tag := map[string]string{
			"quote": "quote", "quasiquote": "quasiquote",
			"unquote": "unquote", "unquote-splicing": "unquote-splicing",
		}[node.GetName()]
		inner, err := p.toValue(node.GetChildren()[1])
		if err != nil {
			return sexpr.Value{}, err
		}
		return sexpr.List(sexpr.Symbol(tag), inner), nil

	default:
		return sexpr.Value{}, schemerr.NewInternal(fmt.Sprintf("unrecognized AST node %q", node.GetName()))
	}
}

// listToValue lowers a "list" node: '(' items* ['.' tail]? ')'.
func (p *Parser) listToValue(node pc.Queryable) (sexpr.Value, error) {
	children := node.GetChildren()

	elems, err := p.itemValues(children[1].GetChildren())
	if err != nil {
		return sexpr.Value{}, err
	}

	// ast.Maybe resolves to the inner "dotted-tail" node itself when the
	// tail was present, or to a placeholder "missing" node when not.
	maybeTail := children[2]
	if maybeTail.GetName() != "dotted-tail" {
		return sexpr.List(elems...), nil
	}

	tail, err := p.toValue(maybeTail.GetChildren()[1])
	if err != nil {
		return sexpr.Value{}, err
	}
	return sexpr.ImproperList(tail, elems...), nil
}

// symbolOrNumber reclassifies a symbol-alphabet token that spells out a
// number: exact integers, fractions (reduced on construction), and the
// exponent-marker real shapes whose characters all live in the symbol
// alphabet ("3e2", "3*10**2", "3*10^2"). Anything else is a symbol,
// lowercased on read.
func symbolOrNumber(text string) (sexpr.Value, error) {
	switch {
	case reInteger.MatchString(text):
		n, _ := new(big.Int).SetString(text, 10)
		return sexpr.Integer(n), nil

	case reFraction.MatchString(text):
		parts := strings.SplitN(text, "/", 2)
		num, _ := new(big.Int).SetString(parts[0], 10)
		den, _ := new(big.Int).SetString(parts[1], 10)
		if den.Sign() == 0 {
			return sexpr.Value{}, schemerr.NewSyntaxError("fraction with zero denominator", text)
		}
		return sexpr.Fraction(num, den), nil

	case reRealExp.MatchString(text):
		f, err := parseRealLiteral(text)
		if err != nil {
			return sexpr.Value{}, err
		}
		return sexpr.Real(f), nil

	default:
		return sexpr.Symbol(strings.ToLower(text)), nil
	}
}

var namedCharValues = map[string]byte{
	"nul": 0x00, "null": 0x00,
	"alarm": 0x07, "backspace": 0x08, "page": 0x0c,
	"space": 0x20, "newline": 0x0a, "return": 0x0d, "tab": 0x09,
}

// parseCharLiteral lowers a raw "#\\x" / "#\\name" token into a character.
func parseCharLiteral(raw string) (sexpr.Value, error) {
	body := raw[2:] // strip "#\"
	if len(body) == 1 {
		return sexpr.Character(body[0]), nil
	}
	if b, ok := namedCharValues[strings.ToLower(body)]; ok {
		return sexpr.Character(b), nil
	}
	if strings.HasPrefix(body, "x") || strings.HasPrefix(body, "X") {
		var code int64
		if _, err := fmt.Sscanf(body[1:], "%x", &code); err == nil {
			return sexpr.Character(byte(code)), nil
		}
	}
	return sexpr.Value{}, schemerr.NewSyntaxError("unrecognized character literal", raw)
}

// parseRealLiteral normalizes the two non-standard exponent markers
// ("*10**", "*10^") to a plain "e" and parses the result, covering all
// three recognized float shapes.
func parseRealLiteral(raw string) (float64, error) {
	normalized := strings.NewReplacer("*10**", "e", "*10^", "e").Replace(raw)
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, schemerr.NewSyntaxError("malformed real literal", raw)
	}
	return f, nil
}

// parseStringLiteral lowers a raw quoted token into its value. A string
// with no "~{...}" interpolation collapses to a plain literal; one with at
// least one collapses instead to the application (string-append part…)
// with each dynamic part wrapped as (format "~a" <parsed-expr>), so a
// string literal can itself read back as an application.
func parseStringLiteral(raw string) (sexpr.Value, error) {
	inner := raw[1 : len(raw)-1]

	var parts []sexpr.Value
	var pending strings.Builder
	dynamic := false

	flush := func() {
		if pending.Len() > 0 || len(parts) == 0 {
			parts = append(parts, sexpr.String(pending.String()))
			pending.Reset()
		}
	}

	for i := 0; i < len(inner); i++ {
		switch {
		case inner[i] == '~' && i+1 < len(inner) && inner[i+1] == '~':
			pending.WriteByte('~')
			i++

		case inner[i] == '~' && i+1 < len(inner) && inner[i+1] == '{':
			end, depth := i+2, 1
			inString := false
			for end < len(inner) && depth > 0 {
				switch {
				case inString:
					if inner[end] == '\\' {
						end++
					} else if inner[end] == '"' {
						inString = false
					}
				case inner[end] == '"':
					inString = true
				case inner[end] == '{':
					depth++
				case inner[end] == '}':
					depth--
				}
				end++
			}
			if depth != 0 {
				return sexpr.Value{}, schemerr.NewReadError(0, "unterminated string interpolation", nil)
			}

			embedded, err := parseEmbeddedExpr([]byte(inner[i+2 : end-1]))
			if err != nil {
				return sexpr.Value{}, err
			}

			flush()
			parts = append(parts, sexpr.List(sexpr.Symbol("format"), sexpr.String("~a"), embedded))
			dynamic = true
			i = end - 1

		case inner[i] == '\\' && i+1 < len(inner):
			i++
			switch inner[i] {
			case 'n':
				pending.WriteByte('\n')
			case 'r':
				pending.WriteByte('\r')
			case 't':
				pending.WriteByte('\t')
			case 'f':
				pending.WriteByte('\f')
			case '"':
				pending.WriteByte('"')
			case '\\':
				pending.WriteByte('\\')
			case 'x', 'X':
				j := i + 1
				for j < len(inner) && inner[j] != ';' {
					j++
				}
				if j >= len(inner) {
					return sexpr.Value{}, schemerr.NewReadError(0, "unterminated \\x escape", nil)
				}
				code, err := strconv.ParseInt(inner[i+1:j], 16, 32)
				if err != nil || code >= 256 {
					return sexpr.Value{}, schemerr.NewSyntaxError("malformed \\x escape", inner[i-1:j+1])
				}
				pending.WriteByte(byte(code))
				i = j
			default:
				pending.WriteByte(inner[i])
			}

		default:
			pending.WriteByte(inner[i])
		}
	}
	flush()

	if !dynamic {
		return parts[0], nil
	}
	return sexpr.List(append([]sexpr.Value{sexpr.Symbol("string-append")}, parts...)...), nil
}

// parseEmbeddedExpr parses exactly one S-expression out of src, used for
// the "~{<sexpr>}" dynamic parts of an interpolated string.
func parseEmbeddedExpr(src []byte) (sexpr.Value, error) {
	root, _ := ast.Parsewith(pSexpr, pc.NewScanner(src))
	if root == nil {
		return sexpr.Value{}, schemerr.NewReadError(0, "malformed string interpolation expression", nil)
	}
	var p Parser
	return p.toValue(root)
}
