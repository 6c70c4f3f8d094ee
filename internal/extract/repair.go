package extract

import (
	"strings"
	"unicode/utf8"
)

// Repair applies the cosmetic cleanup passes to a candidate JSON string.
// Each pass only fixes syntax-level defects commonly produced by language
// models; none of them may change the semantic content of valid JSON.
// The passes are exposed individually so they can be tested in isolation.
func Repair(s string) string {
	s = TrimBOM(strings.TrimSpace(s))
	s = StripFenceMarkers(s)
	s = StripControlChars(s)
	s = RewriteNonFinite(s)
	s = StripTrailingCommas(s)
	return strings.TrimSpace(s)
}

// TrimBOM removes an optional UTF-8 byte order mark.
func TrimBOM(s string) string {
	if strings.HasPrefix(s, "\uFEFF") {
		return strings.TrimPrefix(s, "\uFEFF")
	}
	// Handle malformed BOM-like prefix (rare)
	if len(s) >= 3 {
		b0, b1, b2 := s[0], s[1], s[2]
		if b0 == 0xEF && b1 == 0xBB && b2 == 0xBF && utf8.ValidString(s[3:]) {
			return s[3:]
		}
	}
	return s
}

// StripFenceMarkers removes markdown code-fence lines (``` or ~~~, with or
// without a language tag) wherever they appear. Content between fences is
// left untouched.
func StripFenceMarkers(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// StripControlChars removes non-printable control characters except for
// newline, carriage return and tab, which are legal whitespace between
// JSON tokens.
func StripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StripTrailingCommas removes commas that directly precede a closing brace
// or bracket. The scan is string-aware so commas inside string values are
// never touched.
func StripTrailingCommas(s string) string {
	var (
		b        strings.Builder
		inString bool
		escape   bool
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case ',':
			// Look ahead past whitespace; drop the comma if a closer follows.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// RewriteNonFinite replaces the non-finite numeric literals NaN, Infinity
// and -Infinity with null outside of strings. JSON has no representation
// for them, but models occasionally emit them verbatim.
func RewriteNonFinite(s string) string {
	var (
		b        strings.Builder
		inString bool
		escape   bool
	)
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}
		if lit := matchNonFinite(s[i:]); lit > 0 {
			if c == '-' || !precededByIdent(s, i) {
				b.WriteString("null")
				i += lit
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func matchNonFinite(s string) int {
	for _, lit := range []string{"-Infinity", "Infinity", "NaN"} {
		if strings.HasPrefix(s, lit) && !followedByIdent(s, len(lit)) {
			return len(lit)
		}
	}
	return 0
}

func precededByIdent(s string, i int) bool {
	if i == 0 {
		return false
	}
	return isIdentByte(s[i-1])
}

func followedByIdent(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	return isIdentByte(s[i])
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
