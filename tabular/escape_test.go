package tabular

import "testing"

func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"with\ttab",
		"with\nnewline",
		"with\r\nboth",
		`back\slash`,
		"\t\n\\\t",
		"ünïcode\tokay",
	}
	for _, s := range cases {
		if got := UnescapeField(EscapeField(s)); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

func TestEscapeRemovesDelimiters(t *testing.T) {
	for _, s := range []string{"a\tb", "a\nb", "a\rb"} {
		e := EscapeField(s)
		for _, c := range e {
			if c == '\t' || c == '\n' || c == '\r' {
				t.Errorf("EscapeField(%q) = %q still contains a raw delimiter", s, e)
			}
		}
	}
}

func TestUnescapeTolerant(t *testing.T) {
	// Hand-written files may contain stray backslashes; pass them through.
	if got := UnescapeField(`a\zb`); got != `a\zb` {
		t.Errorf("unknown escape mangled: %q", got)
	}
	if got := UnescapeField(`trailing\`); got != `trailing\` {
		t.Errorf("trailing backslash mangled: %q", got)
	}
}
