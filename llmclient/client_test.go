package llmclient

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than cap", "hola", 10, "hola"},
		{"exactly at cap", "hola", 4, "hola"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"cut lands mid-rune", "añade", 2, "a"},
		{"multibyte rune kept whole", "añade", 3, "añ"},
		{"cut inside four-byte rune", "ok🙂", 4, "ok"},
		{"zero cap", "hola", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}

func TestTruncateAccentedErrorBody(t *testing.T) {
	// An upstream error body full of two-byte runes, capped mid-sequence,
	// must still marshal as valid UTF-8.
	body := strings.Repeat("ñ", 300)
	got := Truncate(body, 499)
	if !utf8.ValidString(got) {
		t.Fatal("truncated error body is not valid UTF-8")
	}
	if len(got) != 498 {
		t.Errorf("truncated to %d bytes, want back-off to 498", len(got))
	}
}
