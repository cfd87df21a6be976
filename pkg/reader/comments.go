package reader

// stripComments removes line comments (`; ...` to end of line) and nested
// paired comments (`{ ... }`) from src, respecting string and character
// literals so a `;`, `{`, or `}` inside one is never mistaken for a
// comment marker. Datum comments (`#;<datum>`) are left untouched:
// discarding a full following S-expression needs the grammar itself
// (reader.go's pSexprComment), not a lexical pre-pass.
//
// This runs before the parser combinators see the source: the paired,
// nestable form can't be expressed as a single regex token, so it is
// resolved ahead of the grammar.
func stripComments(src []byte) []byte {
	out := make([]byte, 0, len(src))

	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == '#' && i+1 < len(src) && src[i+1] == ';':
			// Datum comment marker: kept for the grammar, not a line comment.
			out = append(out, '#', ';')
			i += 2

		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case c == '"':
			start := i
			i++
			for i < len(src) {
				if src[i] == '\\' && i+1 < len(src) {
					i += 2
					continue
				}
				if src[i] == '"' {
					i++
					break
				}
				i++
			}
			out = append(out, src[start:i]...)

		case c == '#' && i+1 < len(src) && src[i+1] == '\\':
			// Character literal: #\x, #\space, #\(, ... is always exactly
			// one "name" token, never a comment delimiter even if it
			// happens to spell one out (#\; or #\|).
			start := i
			i += 2
			if i < len(src) {
				i++ // the literal character itself, whatever it is
				for i < len(src) && isSymbolByte(src[i]) {
					i++
				}
			}
			out = append(out, src[start:i]...)

		case c == '{':
			depth := 1
			i++
			for i < len(src) && depth > 0 {
				switch {
				case src[i] == '"':
					i++
					for i < len(src) {
						if src[i] == '\\' && i+1 < len(src) {
							i += 2
							continue
						}
						if src[i] == '"' {
							i++
							break
						}
						i++
					}
				case src[i] == '#' && i+1 < len(src) && src[i+1] == '\\':
					i += 2
					if i < len(src) {
						i++
						for i < len(src) && isSymbolByte(src[i]) {
							i++
						}
					}
				case src[i] == '{':
					depth++
					i++
				case src[i] == '}':
					depth--
					i++
				default:
					i++
				}
			}

		default:
			out = append(out, c)
			i++
		}
	}

	return out
}

func isSymbolByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_':
		return true
	default:
		return false
	}
}
