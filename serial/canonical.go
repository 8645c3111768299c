package serial

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/davazp/iredb/value"
)

const hexDigits = "0123456789abcdef"

// Canonical encodes j without whitespace, with mapping keys in UTF-16 code
// unit order and numbers in their shortest round-trip form. The output matches
// a stable stringify of the same tree byte for byte, so keys stay compatible
// with stores written by other implementations.
//
// Strings must be valid UTF-8 (see value.ValidateJSON); Canonical panics
// otherwise, since invalid bytes have no encoding of their own.
func Canonical(j value.JSON) []byte {
	var buf bytes.Buffer
	writeJSON(&buf, j)
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, j value.JSON) {
	switch j := j.(type) {
	case nil, value.Null:
		buf.WriteString("null")
	case value.Bool:
		if j {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.Number:
		buf.WriteString(formatNumber(float64(j)))
	case value.String:
		writeString(buf, string(j))
	case value.Sequence:
		buf.WriteByte('[')
		for i, el := range j {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, el)
		}
		buf.WriteByte(']')
	case value.Mapping:
		keys := make([]string, 0, len(j))
		for k := range j {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(a, b int) bool {
			return lessUTF16(keys[a], keys[b])
		})
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			writeJSON(buf, j[k])
		}
		buf.WriteByte('}')
	default:
		panic("exhaustive match fallback in canonical encoder")
	}
}

// formatNumber follows the ECMAScript Number-to-String rules.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Go writes "1e-07"; ECMAScript writes "1e-7".
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			panic(fmt.Sprintf("canonical encoding of invalid UTF-8 at byte %d of %q", i, s))
		}
		i += size
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
