package tabular

import "strings"

// Column names, units and string cell values may contain the field delimiter
// or newlines. The writer backslash-escapes them so that a raw tab in the
// file is always a delimiter and a raw newline always ends a row. The
// escaping round trip is lossless.

// EscapeField encodes tabs, newlines, carriage returns and backslashes.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, "\t\n\r\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnescapeField reverses EscapeField. A trailing lone backslash or an
// unrecognized escape is passed through verbatim rather than rejected, so
// that files written by hand still parse.
func UnescapeField(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitFields splits a data or header line on raw tabs. Escaped tabs are the
// two-byte sequence `\t` and survive the split; callers unescape each field.
func splitFields(line string) []string {
	return strings.Split(line, "\t")
}
