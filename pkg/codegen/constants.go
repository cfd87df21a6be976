package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/its-hmny/schemec/pkg/runtime"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

// constEntry is one row of the constants table: a deduplicated literal and
// the byte offset (from L_constants) its encoding starts at.
type constEntry struct {
	Value  sexpr.Value
	Offset int
}

// ConstantsTable builds the flat constants segment of the generated file:
// every literal the program can evaluate to, laid out once, in dependency
// order (a pair's car and cdr are always emitted before the pair itself),
// deduplicated by sexpr.Equal, so two occurrences of the same literal share
// one encoding and one offset.
type ConstantsTable struct {
	entries []constEntry
	size    int
}

// NewConstantsTable seeds the table with the five fixed singletons every
// constants segment starts with, in this exact order: void, nil, #f, #t,
// the null character.
func NewConstantsTable() *ConstantsTable {
	t := &ConstantsTable{}
	for _, v := range []sexpr.Value{sexpr.Void, sexpr.Nil, sexpr.False, sexpr.True, sexpr.Character(0x00)} {
		t.addRaw(v)
	}
	return t
}

// AddPrimitiveNames reserves a string constant for every primitive name, in
// the order given, immediately after the fixed prologue.
func (t *ConstantsTable) AddPrimitiveNames(names []string) {
	for _, n := range names {
		t.Add(sexpr.String(n))
	}
}

// Add inserts v (and, recursively, every sub-object it is built from) into
// the table in post order, and returns v's own offset. A literal already
// present (per sexpr.Equal) is not re-inserted.
func (t *ConstantsTable) Add(v sexpr.Value) int {
	if off, ok := t.Offset(v); ok {
		return off
	}
	switch v.Kind {
	case sexpr.KindPair:
		t.Add(*v.Car)
		t.Add(*v.Cdr)
	case sexpr.KindVector:
		for _, e := range v.Elements {
			t.Add(e)
		}
	case sexpr.KindSymbol:
		t.Add(sexpr.String(v.Str))
	}
	return t.addRaw(v)
}

func (t *ConstantsTable) addRaw(v sexpr.Value) int {
	off := t.size
	t.entries = append(t.entries, constEntry{Value: v, Offset: off})
	t.size += sizeOf(v)
	return off
}

// Offset reports the offset already assigned to v, if any.
func (t *ConstantsTable) Offset(v sexpr.Value) (int, bool) {
	for _, e := range t.entries {
		if sexpr.Equal(e.Value, v) {
			return e.Offset, true
		}
	}
	return 0, false
}

// sizeOf returns the number of bytes v's encoding occupies: one RTTI tag
// byte plus a payload sized per its kind's object layout.
func sizeOf(v sexpr.Value) int {
	switch v.Kind {
	case sexpr.KindVoid, sexpr.KindNil, sexpr.KindBool:
		return 1
	case sexpr.KindChar:
		return 2
	case sexpr.KindString:
		return 1 + 8 + len(v.Str)
	case sexpr.KindSymbol:
		return 1 + 8
	case sexpr.KindInteger:
		return 1 + 8
	case sexpr.KindFraction:
		return 1 + 16
	case sexpr.KindReal:
		return 1 + 8
	case sexpr.KindVector:
		return 1 + 8 + 8*len(v.Elements)
	case sexpr.KindPair:
		return 1 + 16
	default:
		return 1
	}
}

// Render emits the NASM data segment holding every entry, in insertion
// order, at L_constants. Pointers between entries (a symbol's name, a
// pair's car/cdr, a vector's elements) are expressed as L_constants-relative
// displacements, since every sub-object was inserted before its owner.
func (t *ConstantsTable) Render() string {
	var b strings.Builder
	b.WriteString("section .data\n")
	fmt.Fprintf(&b, "%s:\n", runtime.LConstants)
	for _, e := range t.entries {
		b.WriteString(t.renderEntry(e.Value))
	}
	return b.String()
}

func (t *ConstantsTable) renderEntry(v sexpr.Value) string {
	tag := func(r runtime.RTTI) string { return fmt.Sprintf("\tdb %d\t; %s\n", r, r) }
	switch v.Kind {
	case sexpr.KindVoid:
		return tag(runtime.TVoid)
	case sexpr.KindNil:
		return tag(runtime.TNil)
	case sexpr.KindBool:
		if v.Bool {
			return tag(runtime.TBooleanTrue)
		}
		return tag(runtime.TBooleanFalse)
	case sexpr.KindChar:
		return fmt.Sprintf("\tdb %d, %d\n", runtime.TChar, v.Char)
	case sexpr.KindString:
		if len(v.Str) == 0 {
			return fmt.Sprintf("%s\tdq 0\n", tag(runtime.TString))
		}
		return fmt.Sprintf("%s\tdq %d\n\tdb %s\n", tag(runtime.TString), len(v.Str), nasmBytes(v.Str))
	case sexpr.KindSymbol:
		off, _ := t.Offset(sexpr.String(v.Str))
		return fmt.Sprintf("%s\tdq %s + %d\n", tag(runtime.TInternedSymbol), runtime.LConstants, off)
	case sexpr.KindInteger:
		return fmt.Sprintf("%s\tdq %s\n", tag(runtime.TInteger), v.Int.String())
	case sexpr.KindFraction:
		return fmt.Sprintf("%s\tdq %s\n\tdq %s\n", tag(runtime.TFraction), v.Int.String(), v.Denom.String())
	case sexpr.KindReal:
		// NASM only reads a dq operand as a float when it contains a
		// period, so the fixed-precision 'e' form is mandatory here.
		return fmt.Sprintf("%s\tdq %s\n", tag(runtime.TReal), strconv.FormatFloat(v.Real, 'e', 17, 64))
	case sexpr.KindVector:
		var elems strings.Builder
		for i, e := range v.Elements {
			if i > 0 {
				elems.WriteString(", ")
			}
			off, _ := t.Offset(e)
			fmt.Fprintf(&elems, "%s + %d", runtime.LConstants, off)
		}
		if len(v.Elements) == 0 {
			return fmt.Sprintf("%s\tdq 0\n", tag(runtime.TVector))
		}
		return fmt.Sprintf("%s\tdq %d\n\tdq %s\n", tag(runtime.TVector), len(v.Elements), elems.String())
	case sexpr.KindPair:
		carOff, _ := t.Offset(*v.Car)
		cdrOff, _ := t.Offset(*v.Cdr)
		return fmt.Sprintf("%s\tdq %s + %d\n\tdq %s + %d\n",
			tag(runtime.TPair), runtime.LConstants, carOff, runtime.LConstants, cdrOff)
	default:
		return ""
	}
}

// nasmBytes renders s as a NASM db operand list of its raw bytes.
func nasmBytes(s string) string {
	if len(s) == 0 {
		return "0"
	}
	parts := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		parts[i] = strconv.Itoa(int(s[i]))
	}
	return strings.Join(parts, ", ")
}
