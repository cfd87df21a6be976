package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// namedChars is the inverse of the reader's named-character table, used to
// print characters the way they were most likely written.
var namedChars = map[byte]string{
	0x00: "nul",
	0x07: "alarm",
	0x08: "backspace",
	0x0c: "page",
	0x20: "space",
	0x0a: "newline",
	0x0d: "return",
	0x09: "tab",
}

// Print renders v in its canonical textual form, the one the reader
// round-trips: read(Print(s)) == s under Equal.
func Print(v Value) string {
	var b strings.Builder
	print(&b, v)
	return b.String()
}

func print(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindVoid:
		b.WriteString("#<void>")
	case KindNil:
		b.WriteString("()")
	case KindBool:
		if v.Bool {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case KindChar:
		b.WriteString(`#\`)
		if name, ok := namedChars[v.Char]; ok {
			b.WriteString(name)
		} else if v.Char < 0x20 || v.Char >= 0x7f {
			fmt.Fprintf(b, "x%x", v.Char)
		} else {
			b.WriteByte(v.Char)
		}
	case KindString:
		b.WriteByte('"')
		for _, c := range []byte(v.Str) {
			switch c {
			case '\\':
				b.WriteString(`\\`)
			case '"':
				b.WriteString(`\"`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\f':
				b.WriteString(`\f`)
			case '\t':
				b.WriteString(`\t`)
			case '~':
				b.WriteString("~~")
			default:
				b.WriteByte(c)
			}
		}
		b.WriteByte('"')
	case KindSymbol:
		b.WriteString(v.Str)
	case KindInteger:
		b.WriteString(v.Int.String())
	case KindFraction:
		fmt.Fprintf(b, "%s/%s", v.Int.String(), v.Denom.String())
	case KindReal:
		// A whole real must keep a period (or exponent marker) so it
		// reads back as a real, not an integer.
		s := strconv.FormatFloat(v.Real, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += "."
		}
		b.WriteString(s)
	case KindVector:
		b.WriteString("#(")
		for i, e := range v.Elements {
			if i > 0 {
				b.WriteByte(' ')
			}
			print(b, e)
		}
		b.WriteByte(')')
	case KindPair:
		b.WriteByte('(')
		print(b, *v.Car)
		cur := *v.Cdr
		for cur.Kind == KindPair {
			b.WriteByte(' ')
			print(b, *cur.Car)
			cur = *cur.Cdr
		}
		if cur.Kind != KindNil {
			b.WriteString(" . ")
			print(b, cur)
		}
		b.WriteByte(')')
	default:
		b.WriteString("#<unknown>")
	}
}
