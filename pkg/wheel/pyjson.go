package wheel

import (
	"fmt"
	"slices"
	"strings"
)

// pyObject is a JSON object with a fixed key order.
type pyObject []pyField

type pyField struct {
	Key   string
	Value any
}

// writePyJSON renders v the way Python's json.dumps does with default
// separators and ensure_ascii. Values are strings or pyObjects.
func writePyJSON(b *strings.Builder, v any) {
	switch val := v.(type) {
	case string:
		writePyString(b, val)
	case pyObject:
		b.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writePyString(b, f.Key)
			b.WriteString(": ")
			writePyJSON(b, f.Value)
		}
		b.WriteByte('}')
	default:
		panic(fmt.Sprintf("wheel: unsupported JSON value %T", v))
	}
}

func writePyString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(b, `\u%04x`, r)
			case r < 0x80:
				b.WriteRune(r)
			case r < 0x10000:
				fmt.Fprintf(b, `\u%04x`, r)
			default:
				r -= 0x10000
				fmt.Fprintf(b, `\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
			}
		}
	}
	b.WriteByte('"')
}

// pyStringLiteral renders s as a single-quoted Python string literal.
func pyStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\'':
			b.WriteString(`\'`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func sortFields(o pyObject) {
	slices.SortStableFunc(o, func(a, b pyField) int { return strings.Compare(a.Key, b.Key) })
}
