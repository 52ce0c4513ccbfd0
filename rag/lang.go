package rag

import (
	"regexp"
	"strings"
)

// Lang identifies one of the two supported locales.
type Lang string

const (
	LangES Lang = "es"
	LangEN Lang = "en"
)

var (
	// Checked against the raw text: Normalize would fold ñ to n.
	spanishChars = regexp.MustCompile(`(?i)[ñ¿¡]`)
	spanishWords = regexp.MustCompile(`\b(que|como|para|vos|tenes|proyecto|repositorio|enlace|links)\b`)
)

// Padded with spaces to avoid substring false positives ("other" vs "the").
var englishHints = []string{
	" the ",
	" and ",
	" what ",
	" which ",
	" how ",
	" about ",
	" project ",
	" repo ",
	" repository ",
	" demo ",
	" link ",
	" links ",
	" github ",
	" linkedin ",
}

// DetectLanguage classifies text as Spanish or English. Spanish signals take
// priority over English ones, and ambiguous input defaults to Spanish: the
// knowledge corpus is Spanish-heavy and that asymmetry is deliberate policy.
func DetectLanguage(text string) Lang {
	q := " " + Normalize(text) + " "

	if spanishChars.MatchString(text) || spanishWords.MatchString(q) {
		return LangES
	}
	for _, hint := range englishHints {
		if strings.Contains(q, hint) {
			return LangEN
		}
	}
	return LangES
}
