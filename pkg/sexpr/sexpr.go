// Package sexpr defines the S-expression data model: the tagged-union value
// produced by the reader (pkg/reader) and consumed by the tag parser
// (pkg/ast). It also carries structural equality (used by the code
// generator's constants table for deduplication) and the canonical printer
// used for error messages and the reader round-trip property tests.
package sexpr

import (
	"math/big"
)

// Kind tags the variant held by a Value. Values are immutable once built.
type Kind uint8

const (
	KindVoid Kind = iota
	KindNil
	KindBool
	KindChar
	KindString
	KindSymbol
	KindInteger
	KindFraction
	KindReal
	KindVector
	KindPair
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindChar:
		return "character"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindInteger:
		return "integer"
	case KindFraction:
		return "fraction"
	case KindReal:
		return "real"
	case KindVector:
		return "vector"
	case KindPair:
		return "pair"
	default:
		return "unknown"
	}
}

// Value is the single tagged-union type for every S-expression. Only the
// fields relevant to Kind are meaningful; callers must switch on Kind
// before reading a payload field.
type Value struct {
	Kind Kind

	Bool bool
	Char byte

	Str string // String payload (KindString) or interned name (KindSymbol)

	Int      *big.Int // KindInteger, and numerator of KindFraction
	Denom    *big.Int // KindFraction only, always > 0
	Real     float64  // KindReal
	Elements []Value  // KindVector

	Car, Cdr *Value // KindPair
}

// Void, Nil, True, and False are the canonical singleton-shaped values for
// their kinds; every occurrence is structurally equal to every other.
var (
	Void  = Value{Kind: KindVoid}
	Nil   = Value{Kind: KindNil}
	True  = Value{Kind: KindBool, Bool: true}
	False = Value{Kind: KindBool, Bool: false}
)

// Boolean returns the boolean literal for b (#t or #f).
func Boolean(b bool) Value {
	if b {
		return True
	}
	return False
}

// Character builds a character literal.
func Character(c byte) Value { return Value{Kind: KindChar, Char: c} }

// String builds a string literal.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Symbol builds an interned-symbol value. The name is expected to already
// be lowercased by the caller (the reader lowercases symbol text on read).
func Symbol(name string) Value { return Value{Kind: KindSymbol, Str: name} }

// Integer builds an exact integer literal.
func Integer(n *big.Int) Value { return Value{Kind: KindInteger, Int: n} }

// IntegerFromInt64 is a convenience constructor for small integer literals.
func IntegerFromInt64(n int64) Value { return Integer(big.NewInt(n)) }

// Fraction builds a reduced p/q literal. A denominator of 1 collapses to
// an integer, a zero numerator collapses to the integer 0, and the sign is
// normalized to live in the numerator.
func Fraction(p, q *big.Int) Value {
	if q.Sign() == 0 {
		panic("sexpr: zero denominator")
	}
	if q.Sign() < 0 {
		p = new(big.Int).Neg(p)
		q = new(big.Int).Neg(q)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(p), q)
	if g.Sign() != 0 {
		p = new(big.Int).Div(p, g)
		q = new(big.Int).Div(q, g)
	}
	if p.Sign() == 0 {
		return Integer(big.NewInt(0))
	}
	if q.Cmp(big.NewInt(1)) == 0 {
		return Integer(p)
	}
	return Value{Kind: KindFraction, Int: p, Denom: q}
}

// Real builds a double literal.
func Real(f float64) Value { return Value{Kind: KindReal, Real: f} }

// Vector builds a vector literal from its elements (copied).
func Vector(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{Kind: KindVector, Elements: cp}
}

// Cons builds a pair.
func Cons(car, cdr Value) Value {
	return Value{Kind: KindPair, Car: &car, Cdr: &cdr}
}

// List builds a proper list terminated by Nil from elems.
func List(elems ...Value) Value {
	result := Nil
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

// ImproperList builds a (possibly improper) list: elems cons'd in order,
// terminated by tail instead of Nil.
func ImproperList(tail Value, elems ...Value) Value {
	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

// IsList reports whether v is a proper (nil-terminated) list.
func (v Value) IsList() bool {
	cur := v
	for cur.Kind == KindPair {
		cur = *cur.Cdr
	}
	return cur.Kind == KindNil
}

// Slice flattens a proper list into a Go slice. The boolean result is false
// if v is not a proper list (the returned slice holds whatever prefix of
// conses was found).
func (v Value) Slice() ([]Value, bool) {
	var out []Value
	cur := v
	for cur.Kind == KindPair {
		out = append(out, *cur.Car)
		cur = *cur.Cdr
	}
	return out, cur.Kind == KindNil
}

// Equal reports whether a and b are structurally equal, the definition used
// by the code generator's constants table to deduplicate entries.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid, KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindChar:
		return a.Char == b.Char
	case KindString, KindSymbol:
		return a.Str == b.Str
	case KindInteger:
		return a.Int.Cmp(b.Int) == 0
	case KindFraction:
		return a.Int.Cmp(b.Int) == 0 && a.Denom.Cmp(b.Denom) == 0
	case KindReal:
		return a.Real == b.Real
	case KindVector:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case KindPair:
		return Equal(*a.Car, *b.Car) && Equal(*a.Cdr, *b.Cdr)
	default:
		return false
	}
}
